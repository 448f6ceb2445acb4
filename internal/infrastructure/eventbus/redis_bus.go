package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
	"github.com/zapsales/supervision-api/internal/infrastructure/metrics"
)

// RedisBus publishes events through Redis pub/sub so every replica's hub
// sees every event, whichever replica accepted it.
type RedisBus struct {
	client redis.UniversalClient
	hub    *Hub
	prefix string
	log    zerolog.Logger
}

var _ liveupdate.Broker = (*RedisBus)(nil)

func NewRedisBus(client redis.UniversalClient, hub *Hub, prefix string, log zerolog.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		hub:    hub,
		prefix: prefix,
		log:    log.With().Str("component", "redis-event-bus").Logger(),
	}
}

// Publish sends event on the conversation's channel.
func (b *RedisBus) Publish(ctx context.Context, conversationID string, event liveupdate.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := b.client.Publish(ctx, b.prefix+conversationID, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	metrics.RecordEventPublished(string(event.Type))
	return nil
}

// Subscribe registers a local stream; events arrive once Run relays them.
func (b *RedisBus) Subscribe(conversationID string) (<-chan liveupdate.Event, func()) {
	return b.hub.Subscribe(conversationID)
}

// Run relays every conversation channel into the hub until ctx is done.
func (b *RedisBus) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, b.prefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to event channels: %w", err)
	}
	b.log.Info().Str("pattern", b.prefix+"*").Msg("relaying conversation events")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("event subscription closed")
			}
			conversationID, event, err := decodeMessage(b.prefix, msg.Channel, msg.Payload)
			if err != nil {
				b.log.Debug().Err(err).Str("channel", msg.Channel).Msg("ignoring malformed event")
				continue
			}
			b.hub.Dispatch(conversationID, event)
		}
	}
}

func decodeMessage(prefix, channel, payload string) (string, liveupdate.Event, error) {
	conversationID := strings.TrimPrefix(channel, prefix)
	if conversationID == "" || conversationID == channel {
		return "", liveupdate.Event{}, fmt.Errorf("unexpected channel %q", channel)
	}

	var event liveupdate.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return "", liveupdate.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return "", liveupdate.Event{}, err
	}
	return conversationID, event, nil
}
