package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
)

// Source names the path that produced a Result.
type Source string

const (
	SourceAggregate Source = "aggregate"
	SourceFallback  Source = "fallback"
	SourceEmpty     Source = "empty"
	SourceDegraded  Source = "degraded"
)

// Fallback reasons recorded when the aggregate path is skipped.
const (
	FallbackReasonUnavailable = "unavailable"
	FallbackReasonError       = "error"
)

// Result is a TabCounts snapshot together with how it was obtained.
type Result struct {
	Counts         TabCounts
	Source         Source
	FallbackReason string
}

// Detail is a single conversation with its derived queue.
type Detail struct {
	Conversation      *conversation.Conversation `json:"conversation"`
	LastDirection     conversation.Direction     `json:"last_direction,omitempty"`
	HasPendingHandoff bool                       `json:"has_pending_handoff"`
	Queue             Queue                      `json:"queue"`
}

// Service defines the supervision triage operations.
type Service interface {
	// Count never fails: read errors degrade to zero counts.
	Count(ctx context.Context, scope Scope) Result
	// CountForInstance scopes the count to one messaging instance; "" means all.
	CountForInstance(ctx context.Context, instanceID string) Result
	Detail(ctx context.Context, conversationID string) (*Detail, error)
}

// Option customises the service.
type Option func(*service)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFallbackLimit overrides how many open conversations the fallback reads.
func WithFallbackLimit(limit int) Option {
	return func(s *service) {
		s.fallbackLimit = limit
	}
}

type service struct {
	conversations ConversationReader
	messages      MessageReader
	handoffs      HandoffReader
	scopes        ScopeResolver
	preferred     Counter
	fallback      Counter
	fallbackLimit int
	now           func() time.Time
	log           zerolog.Logger
}

// NewService wires the preferred aggregate counter in front of the fallback
// counter. aggregate may be nil, in which case every count uses the fallback.
func NewService(
	conversations ConversationReader,
	messages MessageReader,
	handoffs HandoffReader,
	aggregate AggregateReader,
	scopes ScopeResolver,
	log zerolog.Logger,
	opts ...Option,
) Service {
	s := &service{
		conversations: conversations,
		messages:      messages,
		handoffs:      handoffs,
		scopes:        scopes,
		now:           time.Now,
		log:           log.With().Str("component", "triage-service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.preferred = NewAggregateCounter(aggregate)
	s.fallback = NewFallbackCounter(conversations, messages, handoffs, s.fallbackLimit, WithFallbackLogger(s.log))
	return s
}

func (s *service) Count(ctx context.Context, scope Scope) Result {
	if scope.IsEmpty() {
		return Result{Source: SourceEmpty}
	}

	now := s.now()

	counts, err := s.preferred.Count(ctx, scope, now)
	if err == nil {
		return Result{Counts: counts, Source: SourceAggregate}
	}

	reason := FallbackReasonError
	if errors.Is(err, ErrAggregateUnavailable) {
		reason = FallbackReasonUnavailable
		s.log.Warn().Err(err).Msg("tab count aggregate unavailable, using fallback")
	} else {
		s.log.Warn().Err(err).Msg("tab count aggregate failed, using fallback")
	}

	counts, err = s.fallback.Count(ctx, scope, now)
	if err != nil {
		s.log.Error().Err(err).Msg("tab count fallback failed, returning zero counts")
		return Result{Source: SourceDegraded, FallbackReason: reason}
	}

	return Result{Counts: counts, Source: SourceFallback, FallbackReason: reason}
}

func (s *service) CountForInstance(ctx context.Context, instanceID string) Result {
	if instanceID == "" {
		return s.Count(ctx, AllConversations())
	}
	if s.scopes == nil {
		s.log.Error().Str("instance_id", instanceID).Msg("no scope resolver configured")
		return Result{Source: SourceDegraded}
	}

	ids, err := s.scopes.ConversationIDsForInstance(ctx, instanceID)
	if err != nil {
		s.log.Error().Err(err).Str("instance_id", instanceID).Msg("failed to resolve instance scope")
		return Result{Source: SourceDegraded}
	}

	return s.Count(ctx, ConversationIDs(ids))
}

func (s *service) Detail(ctx context.Context, conversationID string) (*Detail, error) {
	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	ids := []string{conv.ID}
	var (
		directions map[string]conversation.Direction
		pending    map[string]struct{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.messages.LastDirections(gctx, ids)
		if err != nil {
			return fmt.Errorf("resolve last message direction: %w", err)
		}
		directions = d
		return nil
	})
	g.Go(func() error {
		p, err := s.handoffs.PendingConversationIDs(gctx, ids)
		if err != nil {
			return fmt.Errorf("resolve pending handoff: %w", err)
		}
		pending = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	_, hasHandoff := pending[conv.ID]
	snapshot := Snapshot{
		Conversation:      conv,
		LastDirection:     directions[conv.ID],
		HasPendingHandoff: hasHandoff,
	}

	return &Detail{
		Conversation:      conv,
		LastDirection:     snapshot.LastDirection,
		HasPendingHandoff: hasHandoff,
		Queue:             Classify(snapshot, s.now()),
	}, nil
}
