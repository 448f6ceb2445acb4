package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/zapsales/supervision-api/internal/config"
	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
	"github.com/zapsales/supervision-api/internal/interfaces/httpserver/requests"
	"github.com/zapsales/supervision-api/internal/utils/eventid"
	"github.com/zapsales/supervision-api/internal/utils/platformerrors"
)

// StreamHandler publishes live events and hands out subscriptions to them.
type StreamHandler struct {
	broker      liveupdate.Broker
	invalidator liveupdate.Invalidator
	heartbeat   time.Duration
	validate    *validator.Validate
	log         zerolog.Logger
}

// NewStreamHandler creates a stream handler. invalidator may be nil.
func NewStreamHandler(broker liveupdate.Broker, invalidator liveupdate.Invalidator, cfg *config.Config, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		broker:      broker,
		invalidator: invalidator,
		heartbeat:   cfg.StreamHeartbeat,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		log:         log.With().Str("handler", "stream").Logger(),
	}
}

// Heartbeat is the interval between keep-alive comments on open streams.
func (h *StreamHandler) Heartbeat() time.Duration {
	return h.heartbeat
}

// Subscribe registers a stream for one conversation.
func (h *StreamHandler) Subscribe(conversationID string) (<-chan liveupdate.Event, func()) {
	return h.broker.Subscribe(conversationID)
}

// PublishRequest validates req and publishes the event it describes.
func (h *StreamHandler) PublishRequest(ctx context.Context, conversationID string, req *requests.PublishEventRequest) (liveupdate.Event, error) {
	if err := h.validate.Struct(req); err != nil {
		return liveupdate.Event{}, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation,
			"type and data are required", err)
	}

	eventType, ok := liveupdate.ParseEventType(req.Type)
	if !ok {
		return liveupdate.Event{}, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("unknown event type %q", req.Type), nil)
	}

	event := liveupdate.Event{Type: eventType, Data: req.Data}
	if err := h.Publish(ctx, conversationID, &event); err != nil {
		return liveupdate.Event{}, err
	}
	return event, nil
}

// Publish fans an event out to every stream of the conversation. The cached
// detail is dropped first so a subscriber re-reading on the event sees the
// new state. Counts are never cached here; the conversation namespace is
// owned by client-side caches, which invalidate it when the event arrives.
// An event without an ID is given one.
func (h *StreamHandler) Publish(ctx context.Context, conversationID string, event *liveupdate.Event) error {
	if err := event.Validate(); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, err.Error(), err)
	}
	if event.ID == "" {
		event.ID = eventid.New()
	}

	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(ctx, liveupdate.DetailKey(conversationID)); err != nil {
			h.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to invalidate conversation detail")
		}
	}

	if err := h.broker.Publish(ctx, conversationID, *event); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to publish event")
	}
	return nil
}
