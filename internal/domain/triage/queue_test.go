package triage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
)

var refNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := refNow.Add(-d)
	return &t
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		snapshot Snapshot
		want     Queue
	}{
		{
			name: "human control wins over outbound",
			snapshot: Snapshot{
				Conversation:  &conversation.Conversation{Status: "active", ControlledBy: "human", LastMessageAt: ago(5 * time.Minute)},
				LastDirection: conversation.DirectionOutbound,
			},
			want: QueueNeedsAttention,
		},
		{
			name: "human control wins over fresh inbound",
			snapshot: Snapshot{
				Conversation:  &conversation.Conversation{Status: "active", ControlledBy: "human", LastMessageAt: ago(time.Minute)},
				LastDirection: conversation.DirectionInbound,
			},
			want: QueueNeedsAttention,
		},
		{
			name: "pending handoff under ai control",
			snapshot: Snapshot{
				Conversation:      &conversation.Conversation{Status: "active", ControlledBy: "ai", LastMessageAt: ago(time.Minute)},
				LastDirection:     conversation.DirectionOutbound,
				HasPendingHandoff: true,
			},
			want: QueueNeedsAttention,
		},
		{
			name: "inbound past the sla",
			snapshot: Snapshot{
				Conversation:  &conversation.Conversation{Status: "active", ControlledBy: "ai", LastMessageAt: ago(90 * time.Minute)},
				LastDirection: conversation.DirectionInbound,
			},
			want: QueueNeedsAttention,
		},
		{
			name: "inbound exactly at the sla",
			snapshot: Snapshot{
				Conversation:  &conversation.Conversation{Status: "active", ControlledBy: "ai", LastMessageAt: ago(time.Hour)},
				LastDirection: conversation.DirectionInbound,
			},
			want: QueueNeedsAttention,
		},
		{
			name: "inbound at 59 minutes",
			snapshot: Snapshot{
				Conversation:  &conversation.Conversation{Status: "active", ControlledBy: "ai", LastMessageAt: ago(59 * time.Minute)},
				LastDirection: conversation.DirectionInbound,
			},
			want: QueueAIActive,
		},
		{
			name: "inbound without timestamp never breaches",
			snapshot: Snapshot{
				Conversation:  &conversation.Conversation{Status: "active", ControlledBy: "ai"},
				LastDirection: conversation.DirectionInbound,
			},
			want: QueueAIActive,
		},
		{
			name: "outbound under ai control",
			snapshot: Snapshot{
				Conversation:  &conversation.Conversation{Status: "active", ControlledBy: "ai", LastMessageAt: ago(5 * time.Minute)},
				LastDirection: conversation.DirectionOutbound,
			},
			want: QueueWaitingOnDoctor,
		},
		{
			name: "old outbound still waits",
			snapshot: Snapshot{
				Conversation:  &conversation.Conversation{Status: "active", ControlledBy: "ai", LastMessageAt: ago(30 * time.Hour)},
				LastDirection: conversation.DirectionOutbound,
			},
			want: QueueWaitingOnDoctor,
		},
		{
			name: "outbound with unknown controller",
			snapshot: Snapshot{
				Conversation:  &conversation.Conversation{Status: "active", LastMessageAt: ago(5 * time.Minute)},
				LastDirection: conversation.DirectionOutbound,
			},
			want: QueueAIActive,
		},
		{
			name: "no messages",
			snapshot: Snapshot{
				Conversation: &conversation.Conversation{Status: "active", ControlledBy: "ai"},
			},
			want: QueueAIActive,
		},
		{
			name: "terminal skips the rules",
			snapshot: Snapshot{
				Conversation:      &conversation.Conversation{Status: "Arquivada", ControlledBy: "human"},
				HasPendingHandoff: true,
			},
			want: QueueClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.snapshot, refNow))
		})
	}
}

func TestClassifyHumanAlwaysNeedsAttention(t *testing.T) {
	directions := []conversation.Direction{conversation.DirectionUnknown, conversation.DirectionInbound, conversation.DirectionOutbound}
	elapsed := []time.Duration{0, time.Minute, 59 * time.Minute, time.Hour, 72 * time.Hour}

	for _, d := range directions {
		for _, e := range elapsed {
			s := Snapshot{
				Conversation:  &conversation.Conversation{Status: "active", ControlledBy: "human", LastMessageAt: ago(e)},
				LastDirection: d,
			}
			assert.Equal(t, QueueNeedsAttention, Classify(s, refNow), "direction=%q elapsed=%s", d, e)
		}
	}
}

func TestCountsTowardClosed(t *testing.T) {
	inside := &conversation.Conversation{Status: "completed", UpdatedAt: refNow.Add(-10 * time.Hour)}
	boundary := &conversation.Conversation{Status: "completed", UpdatedAt: refNow.Add(-48 * time.Hour)}
	outside := &conversation.Conversation{Status: "archived", UpdatedAt: refNow.Add(-50 * time.Hour)}
	open := &conversation.Conversation{Status: "active", UpdatedAt: refNow}

	assert.True(t, CountsTowardClosed(inside, refNow))
	assert.True(t, CountsTowardClosed(boundary, refNow))
	assert.False(t, CountsTowardClosed(outside, refNow))
	assert.False(t, CountsTowardClosed(open, refNow))
}

func TestTabCountsAdd(t *testing.T) {
	var counts TabCounts
	counts.Add(QueueNeedsAttention)
	counts.Add(QueueNeedsAttention)
	counts.Add(QueueAIActive)
	counts.Add(QueueWaitingOnDoctor)
	counts.Add(QueueClosed)
	counts.Add(Queue("unknown"))

	assert.Equal(t, TabCounts{NeedsAttention: 2, AIActive: 1, WaitingOnDoctor: 1, Closed: 1}, counts)
	assert.Equal(t, 5, counts.Total())
}

// referenceStore holds the five reference conversations C1 to C5.
func referenceStore() *memStore {
	return &memStore{
		conversations: []*conversation.Conversation{
			{ID: "c1", Status: "active", ControlledBy: "ai", LastMessageAt: ago(90 * time.Minute), UpdatedAt: refNow.Add(-90 * time.Minute)},
			{ID: "c2", Status: "active", ControlledBy: "ai", LastMessageAt: ago(5 * time.Minute), UpdatedAt: refNow.Add(-5 * time.Minute)},
			{ID: "c3", Status: "active", ControlledBy: "human", LastMessageAt: ago(2 * time.Minute), UpdatedAt: refNow.Add(-2 * time.Minute)},
			{ID: "c4", Status: "completed", ControlledBy: "ai", LastMessageAt: ago(11 * time.Hour), UpdatedAt: refNow.Add(-10 * time.Hour)},
			{ID: "c5", Status: "archived", ControlledBy: "ai", LastMessageAt: ago(51 * time.Hour), UpdatedAt: refNow.Add(-50 * time.Hour)},
		},
		messages: []memMessage{
			{ConversationID: "c1", Direction: "outbound", CreatedAt: refNow.Add(-2 * time.Hour)},
			{ConversationID: "c1", Direction: "inbound", CreatedAt: refNow.Add(-90 * time.Minute)},
			{ConversationID: "c2", Direction: "outbound", CreatedAt: refNow.Add(-5 * time.Minute)},
			{ConversationID: "c3", Direction: "inbound", CreatedAt: refNow.Add(-2 * time.Minute)},
			{ConversationID: "c4", Direction: "outbound", CreatedAt: refNow.Add(-11 * time.Hour)},
		},
	}
}

func TestReferenceScenario(t *testing.T) {
	store := referenceStore()
	want := TabCounts{NeedsAttention: 2, WaitingOnDoctor: 1, Closed: 1}

	fallback, err := NewFallbackCounter(store, store, store, 0).Count(context.Background(), AllConversations(), refNow)
	require.NoError(t, err)
	assert.Equal(t, want, fallback)

	aggregate, err := NewAggregateCounter(store).Count(context.Background(), AllConversations(), refNow)
	require.NoError(t, err)
	assert.Equal(t, want, aggregate)
}

func TestReferenceScenarioPerConversation(t *testing.T) {
	store := referenceStore()
	svc := NewService(store, store, store, store, store, testLogger(), WithClock(func() time.Time { return refNow }))

	want := map[string]Queue{
		"c1": QueueNeedsAttention,
		"c2": QueueWaitingOnDoctor,
		"c3": QueueNeedsAttention,
		"c4": QueueClosed,
	}
	for id, queue := range want {
		detail, err := svc.Detail(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, queue, detail.Queue, id)
	}
}
