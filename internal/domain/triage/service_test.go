package triage

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestService(store *memStore, opts ...Option) Service {
	opts = append([]Option{WithClock(func() time.Time { return refNow })}, opts...)
	return NewService(store, store, store, store, store, testLogger(), opts...)
}

func TestCountEmptyScopeIssuesNoReads(t *testing.T) {
	store := referenceStore()
	svc := newTestService(store)

	result := svc.Count(context.Background(), ConversationIDs([]string{}))

	assert.Equal(t, TabCounts{}, result.Counts)
	assert.Equal(t, SourceEmpty, result.Source)
	assert.Zero(t, store.reads.Load())
}

func TestCountForInstanceWithNoConversations(t *testing.T) {
	store := referenceStore()
	store.instances = map[string][]string{"chip-1": {}}
	svc := newTestService(store)

	result := svc.CountForInstance(context.Background(), "chip-1")

	assert.Equal(t, SourceEmpty, result.Source)
	assert.Equal(t, TabCounts{}, result.Counts)
	// only the scope resolution itself
	assert.Equal(t, int64(1), store.reads.Load())
}

func TestCountPrefersAggregate(t *testing.T) {
	store := referenceStore()
	svc := newTestService(store)

	result := svc.Count(context.Background(), AllConversations())

	assert.Equal(t, SourceAggregate, result.Source)
	assert.Empty(t, result.FallbackReason)
	assert.Equal(t, TabCounts{NeedsAttention: 2, WaitingOnDoctor: 1, Closed: 1}, result.Counts)
	assert.Equal(t, int64(1), store.reads.Load())
}

func TestCountFallsBackWhenAggregateUnavailable(t *testing.T) {
	store := referenceStore()
	store.aggregateErr = ErrAggregateUnavailable
	svc := newTestService(store)

	result := svc.Count(context.Background(), AllConversations())

	assert.Equal(t, SourceFallback, result.Source)
	assert.Equal(t, FallbackReasonUnavailable, result.FallbackReason)
	assert.Equal(t, TabCounts{NeedsAttention: 2, WaitingOnDoctor: 1, Closed: 1}, result.Counts)
}

func TestCountFallsBackOnAnyAggregateError(t *testing.T) {
	store := referenceStore()
	store.aggregateErr = errors.New("statement timeout")
	svc := newTestService(store)

	result := svc.Count(context.Background(), AllConversations())

	assert.Equal(t, SourceFallback, result.Source)
	assert.Equal(t, FallbackReasonError, result.FallbackReason)
	assert.Equal(t, TabCounts{NeedsAttention: 2, WaitingOnDoctor: 1, Closed: 1}, result.Counts)
}

func TestCountWithoutAggregateReader(t *testing.T) {
	store := referenceStore()
	svc := NewService(store, store, store, nil, store, testLogger(), WithClock(func() time.Time { return refNow }))

	result := svc.Count(context.Background(), AllConversations())

	assert.Equal(t, SourceFallback, result.Source)
	assert.Equal(t, FallbackReasonUnavailable, result.FallbackReason)
	assert.Equal(t, 4, result.Counts.Total())
}

func TestCountDegradesToZero(t *testing.T) {
	failures := map[string]func(*memStore){
		"list":       func(m *memStore) { m.listErr = errors.New("connection reset") },
		"count":      func(m *memStore) { m.countErr = errors.New("connection reset") },
		"directions": func(m *memStore) { m.directionErr = errors.New("connection reset") },
		"handoffs":   func(m *memStore) { m.handoffErr = errors.New("connection reset") },
	}

	for name, inject := range failures {
		t.Run(name, func(t *testing.T) {
			store := referenceStore()
			store.aggregateErr = ErrAggregateUnavailable
			inject(store)
			svc := newTestService(store)

			result := svc.Count(context.Background(), AllConversations())

			assert.Equal(t, SourceDegraded, result.Source)
			assert.Equal(t, TabCounts{}, result.Counts)
		})
	}
}

func TestCountScopedToIDs(t *testing.T) {
	store := referenceStore()
	store.aggregateErr = ErrAggregateUnavailable
	svc := newTestService(store)

	result := svc.Count(context.Background(), ConversationIDs([]string{"c2", "c4", "c5"}))

	assert.Equal(t, TabCounts{WaitingOnDoctor: 1, Closed: 1}, result.Counts)
}

func TestCountForInstance(t *testing.T) {
	store := referenceStore()
	store.instances = map[string][]string{"chip-1": {"c1", "c3"}}
	svc := newTestService(store)

	scoped := svc.CountForInstance(context.Background(), "chip-1")
	assert.Equal(t, TabCounts{NeedsAttention: 2}, scoped.Counts)

	all := svc.CountForInstance(context.Background(), "")
	assert.Equal(t, 4, all.Counts.Total())
}

func TestCountForInstanceResolutionFailure(t *testing.T) {
	store := referenceStore()
	store.scopeErr = errors.New("relation does not exist")
	svc := newTestService(store)

	result := svc.CountForInstance(context.Background(), "chip-1")

	assert.Equal(t, SourceDegraded, result.Source)
	assert.Equal(t, TabCounts{}, result.Counts)
}

func TestFallbackLimit(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 5; i++ {
		store.conversations = append(store.conversations, &conversation.Conversation{
			ID:            string(rune('a' + i)),
			Status:        "active",
			ControlledBy:  "ai",
			LastMessageAt: ago(time.Duration(i) * time.Minute),
		})
	}
	store.aggregateErr = ErrAggregateUnavailable
	svc := newTestService(store, WithFallbackLimit(3))

	result := svc.Count(context.Background(), AllConversations())

	assert.Equal(t, 3, result.Counts.AIActive)
}

func TestFallbackLimitReachedLogsWarning(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 3; i++ {
		store.conversations = append(store.conversations, &conversation.Conversation{
			ID:           string(rune('a' + i)),
			Status:       "active",
			ControlledBy: "ai",
		})
	}

	var buf bytes.Buffer
	counter := NewFallbackCounter(store, store, store, 3, WithFallbackLogger(zerolog.New(&buf)))
	counts, err := counter.Count(context.Background(), AllConversations(), refNow)
	require.NoError(t, err)

	assert.Equal(t, 3, counts.AIActive)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"fallback_limit":3`)

	buf.Reset()
	_, err = NewFallbackCounter(store, store, store, 4, WithFallbackLogger(zerolog.New(&buf))).
		Count(context.Background(), AllConversations(), refNow)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestDetail(t *testing.T) {
	store := referenceStore()
	store.handoffs = []memHandoff{{ConversationID: "c2", Status: conversation.HandoffPending}}
	svc := newTestService(store)

	detail, err := svc.Detail(context.Background(), "c2")
	require.NoError(t, err)

	assert.Equal(t, "c2", detail.Conversation.ID)
	assert.Equal(t, conversation.DirectionOutbound, detail.LastDirection)
	assert.True(t, detail.HasPendingHandoff)
	assert.Equal(t, QueueNeedsAttention, detail.Queue)
}

func TestDetailNotFound(t *testing.T) {
	svc := newTestService(referenceStore())

	_, err := svc.Detail(context.Background(), "missing")

	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestDetailPropagatesLookupErrors(t *testing.T) {
	store := referenceStore()
	store.directionErr = errors.New("timeout")
	svc := newTestService(store)

	_, err := svc.Detail(context.Background(), "c1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
