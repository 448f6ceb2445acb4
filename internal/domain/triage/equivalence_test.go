package triage

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
)

var (
	randomStatuses = []string{
		"active", "active", "paused", "Completed", "archived", "concluida", "ARQUIVADO", "finalizado", "new",
		"completed\t", "\narchived", " Concluido\r\n", "completed\u00a0", "\u2003archived",
	}
	randomControllers = []string{"ai", "ai", "human", "Human", "", "bot", "human\n", "\tai ", "human\u00a0", "ai\u2003"}
	randomDirections  = []string{"inbound", "outbound", "Inbound", "system", "inbound\r\n", " outbound\t", "inbound\u00a0"}
	randomElapsed     = []time.Duration{
		0,
		time.Minute,
		59 * time.Minute,
		time.Hour,
		time.Hour + time.Second,
		3 * time.Hour,
		47 * time.Hour,
		48 * time.Hour,
		48*time.Hour + time.Second,
		72 * time.Hour,
	}
	randomHandoffs = []conversation.HandoffStatus{conversation.HandoffPending, conversation.HandoffResolved, conversation.HandoffCancelled}
)

func randomStore(r *rand.Rand) *memStore {
	store := &memStore{}
	n := r.Intn(40)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("conv-%03d", i)
		c := &conversation.Conversation{
			ID:           id,
			Status:       conversation.Status(randomStatuses[r.Intn(len(randomStatuses))]),
			ControlledBy: conversation.ControlledBy(randomControllers[r.Intn(len(randomControllers))]),
			UpdatedAt:    refNow.Add(-randomElapsed[r.Intn(len(randomElapsed))]),
		}
		if r.Intn(5) > 0 {
			c.LastMessageAt = ago(randomElapsed[r.Intn(len(randomElapsed))])
		}
		store.conversations = append(store.conversations, c)

		messages := r.Intn(4)
		for j := 0; j < messages; j++ {
			store.messages = append(store.messages, memMessage{
				ConversationID: id,
				Direction:      randomDirections[r.Intn(len(randomDirections))],
				CreatedAt:      refNow.Add(-time.Duration(j+1) * time.Minute),
			})
		}

		if r.Intn(3) == 0 {
			store.handoffs = append(store.handoffs, memHandoff{
				ConversationID: id,
				Status:         randomHandoffs[r.Intn(len(randomHandoffs))],
			})
		}
	}
	return store
}

func randomScope(r *rand.Rand, store *memStore) Scope {
	if r.Intn(3) > 0 {
		return AllConversations()
	}
	var ids []string
	for _, c := range store.conversations {
		if r.Intn(2) == 0 {
			ids = append(ids, c.ID)
		}
	}
	ids = append(ids, "not-a-conversation")
	return ConversationIDs(ids)
}

func TestAggregateAndFallbackAgree(t *testing.T) {
	r := rand.New(rand.NewSource(20260310))

	for i := 0; i < 500; i++ {
		store := randomStore(r)
		scope := randomScope(r, store)

		aggregate, err := NewAggregateCounter(store).Count(context.Background(), scope, refNow)
		require.NoError(t, err)

		fallback, err := NewFallbackCounter(store, store, store, 0).Count(context.Background(), scope, refNow)
		require.NoError(t, err)

		if !assert.Equal(t, aggregate, fallback, "iteration %d", i) {
			return
		}
	}
}

func TestWhitespaceVariantsAgree(t *testing.T) {
	store := &memStore{}
	rows := []struct {
		id, status, controller, direction string
	}{
		{id: "tab-status", status: "completed\t", controller: "ai", direction: "outbound"},
		{id: "newline-human", status: "active", controller: "human\n", direction: "outbound"},
		{id: "crlf-inbound", status: "active", controller: "ai", direction: "inbound\r\n"},
		{id: "nbsp-status", status: "archived\u00a0", controller: "ai", direction: "outbound"},
		{id: "nbsp-human", status: "active", controller: "human\u00a0", direction: "outbound"},
	}
	for _, row := range rows {
		store.conversations = append(store.conversations, &conversation.Conversation{
			ID:            row.id,
			Status:        conversation.Status(row.status),
			ControlledBy:  conversation.ControlledBy(row.controller),
			LastMessageAt: ago(2 * time.Hour),
			UpdatedAt:     refNow.Add(-time.Hour),
		})
		store.messages = append(store.messages, memMessage{ConversationID: row.id, Direction: row.direction, CreatedAt: refNow.Add(-2 * time.Hour)})
	}

	aggregate, err := NewAggregateCounter(store).Count(context.Background(), AllConversations(), refNow)
	require.NoError(t, err)
	fallback, err := NewFallbackCounter(store, store, store, 0).Count(context.Background(), AllConversations(), refNow)
	require.NoError(t, err)

	assert.Equal(t, aggregate, fallback)
	assert.Equal(t, TabCounts{NeedsAttention: 2, WaitingOnDoctor: 1, AIActive: 1, Closed: 1}, fallback)
	assert.Equal(t, len(rows), fallback.Total())
}

func TestTerminalConversationsOnlyCountAsClosed(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		store := randomStore(r)
		for _, c := range store.conversations {
			c.Status = "completed"
			c.ControlledBy = "human"
		}

		counts, err := NewFallbackCounter(store, store, store, 0).Count(context.Background(), AllConversations(), refNow)
		require.NoError(t, err)

		expectedClosed := 0
		for _, c := range store.conversations {
			if CountsTowardClosed(c, refNow) {
				expectedClosed++
			}
		}
		assert.Equal(t, TabCounts{Closed: expectedClosed}, counts)
	}
}
