package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
	"github.com/zapsales/supervision-api/internal/infrastructure/metrics"
)

// DefaultBuffer is the per-subscriber event buffer.
const DefaultBuffer = 32

type subscriber struct {
	events chan liveupdate.Event
}

// Hub fans events out to the streams open on this process. A subscriber
// whose buffer is full misses the event; the events already queued for it
// still trigger an invalidation, so nothing goes stale.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	buffer      int
	log         zerolog.Logger
}

var _ liveupdate.Broker = (*Hub)(nil)

// NewHub returns a hub with buffer slots per subscriber.
func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
		buffer:      buffer,
		log:         log.With().Str("component", "event-hub").Logger(),
	}
}

// Publish delivers event to the local subscribers of conversationID.
func (h *Hub) Publish(_ context.Context, conversationID string, event liveupdate.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	metrics.RecordEventPublished(string(event.Type))
	h.Dispatch(conversationID, event)
	return nil
}

// Dispatch sends event without blocking and returns how many subscribers received it.
func (h *Hub) Dispatch(conversationID string, event liveupdate.Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subscribers[conversationID] {
		select {
		case sub.events <- event:
			delivered++
		default:
			metrics.EventsDropped.Inc()
			h.log.Debug().Str("conversation_id", conversationID).Str("type", string(event.Type)).Msg("subscriber buffer full, dropping event")
		}
	}
	return delivered
}

// Subscribe registers a stream for conversationID. The returned cancel
// function removes it and closes the channel; it is safe to call twice.
func (h *Hub) Subscribe(conversationID string) (<-chan liveupdate.Event, func()) {
	sub := &subscriber{events: make(chan liveupdate.Event, h.buffer)}

	h.mu.Lock()
	subs, ok := h.subscribers[conversationID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.subscribers[conversationID] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()
	metrics.StreamSubscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if subs, ok := h.subscribers[conversationID]; ok {
				delete(subs, sub)
				if len(subs) == 0 {
					delete(h.subscribers, conversationID)
				}
			}
			close(sub.events)
			h.mu.Unlock()
			metrics.StreamSubscribers.Dec()
		})
	}
	return sub.events, cancel
}

// SubscriberCount returns the number of open streams for conversationID.
func (h *Hub) SubscriberCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[conversationID])
}
