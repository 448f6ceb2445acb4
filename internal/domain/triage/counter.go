package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
)

// Counter computes TabCounts for a scope at a point in time. The aggregate
// and fallback counters are interchangeable and must agree on every snapshot.
type Counter interface {
	Count(ctx context.Context, scope Scope, now time.Time) (TabCounts, error)
}

type aggregateCounter struct {
	reader AggregateReader
}

// NewAggregateCounter returns the preferred single-call counter.
func NewAggregateCounter(reader AggregateReader) Counter {
	return &aggregateCounter{reader: reader}
}

func (a *aggregateCounter) Count(ctx context.Context, scope Scope, now time.Time) (TabCounts, error) {
	if a.reader == nil {
		return TabCounts{}, ErrAggregateUnavailable
	}
	return a.reader.TabCounts(ctx, scope, now)
}

type fallbackCounter struct {
	conversations ConversationReader
	messages      MessageReader
	handoffs      HandoffReader
	limit         int
	log           zerolog.Logger
}

// FallbackOption customises the fallback counter.
type FallbackOption func(*fallbackCounter)

// WithFallbackLogger sets where the fallback counter reports truncated reads.
func WithFallbackLogger(log zerolog.Logger) FallbackOption {
	return func(f *fallbackCounter) {
		f.log = log
	}
}

// NewFallbackCounter returns a counter that reads the collaborators directly
// and classifies in memory. limit <= 0 uses FallbackConversationLimit.
func NewFallbackCounter(conversations ConversationReader, messages MessageReader, handoffs HandoffReader, limit int, opts ...FallbackOption) Counter {
	if limit <= 0 {
		limit = FallbackConversationLimit
	}
	f := &fallbackCounter{
		conversations: conversations,
		messages:      messages,
		handoffs:      handoffs,
		limit:         limit,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *fallbackCounter) Count(ctx context.Context, scope Scope, now time.Time) (TabCounts, error) {
	var (
		open   []*conversation.Conversation
		closed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := f.conversations.ListOpen(gctx, scope, f.limit)
		if err != nil {
			return fmt.Errorf("list open conversations: %w", err)
		}
		open = rows
		return nil
	})
	g.Go(func() error {
		n, err := f.conversations.CountClosed(gctx, scope, ClosedSince(now))
		if err != nil {
			return fmt.Errorf("count closed conversations: %w", err)
		}
		closed = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return TabCounts{}, err
	}
	if len(open) >= f.limit {
		f.log.Warn().
			Int("fallback_limit", f.limit).
			Msg("open conversations reached the fallback limit, counts may be lower than the aggregate")
	}

	ids := make([]string, 0, len(open))
	for _, c := range open {
		if c.IsTerminal() {
			continue
		}
		ids = append(ids, c.ID)
	}

	counts := TabCounts{Closed: closed}
	if len(ids) == 0 {
		return counts, nil
	}

	var (
		directions map[string]conversation.Direction
		pending    map[string]struct{}
	)

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := f.messages.LastDirections(gctx, ids)
		if err != nil {
			return fmt.Errorf("resolve last message directions: %w", err)
		}
		directions = d
		return nil
	})
	g.Go(func() error {
		p, err := f.handoffs.PendingConversationIDs(gctx, ids)
		if err != nil {
			return fmt.Errorf("resolve pending handoffs: %w", err)
		}
		pending = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return TabCounts{}, err
	}

	for _, c := range open {
		if c.IsTerminal() {
			continue
		}
		_, hasHandoff := pending[c.ID]
		counts.Add(Classify(Snapshot{
			Conversation:      c,
			LastDirection:     directions[c.ID],
			HasPendingHandoff: hasHandoff,
		}, now))
	}

	return counts, nil
}
