package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zapsales/supervision-api/internal/config"
	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
	"github.com/zapsales/supervision-api/internal/domain/triage"
	"github.com/zapsales/supervision-api/internal/infrastructure/cache"
	"github.com/zapsales/supervision-api/internal/infrastructure/metrics"
	"github.com/zapsales/supervision-api/internal/utils/platformerrors"
)

// ConversationHandler serves the triage read model.
type ConversationHandler struct {
	service   triage.Service
	cache     cache.Cache
	detailTTL time.Duration
	timeout   time.Duration
	log       zerolog.Logger
}

// NewConversationHandler creates a conversation handler. detailCache may be nil.
func NewConversationHandler(service triage.Service, detailCache cache.Cache, cfg *config.Config, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		service:   service,
		cache:     detailCache,
		detailTTL: cfg.DetailCacheTTL,
		timeout:   cfg.RequestTimeout,
		log:       log.With().Str("handler", "conversation").Logger(),
	}
}

// TabCounts never fails; the source of the counts is recorded in metrics.
func (h *ConversationHandler) TabCounts(ctx context.Context, instanceID string) triage.Result {
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	result := h.service.CountForInstance(ctx, strings.TrimSpace(instanceID))

	metrics.RecordTabCount(string(result.Source), time.Since(start))
	if result.FallbackReason != "" {
		metrics.RecordAggregateFallback(result.FallbackReason)
	}
	if result.Source == triage.SourceDegraded {
		h.log.Warn().Str("instance_id", instanceID).Msg("serving degraded tab counts")
	}
	return result
}

// Detail reads one conversation through the shared detail cache.
func (h *ConversationHandler) Detail(ctx context.Context, conversationID string) (*triage.Detail, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation,
			"conversation id is required", nil)
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	return cache.ReadThrough(ctx, h.cache, liveupdate.DetailKey(conversationID), h.detailTTL, func(ctx context.Context) (*triage.Detail, error) {
		return h.service.Detail(ctx, conversationID)
	})
}

func (h *ConversationHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}
