package triage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
)

type memMessage struct {
	ConversationID string
	Direction      string
	CreatedAt      time.Time
}

type memHandoff struct {
	ConversationID string
	Status         conversation.HandoffStatus
}

// memStore implements every collaborator port over plain slices. Its
// TabCounts is written from the row predicates, independently of Classify.
type memStore struct {
	mu            sync.Mutex
	conversations []*conversation.Conversation
	messages      []memMessage
	handoffs      []memHandoff
	instances     map[string][]string

	reads atomic.Int64

	listErr      error
	countErr     error
	directionErr error
	handoffErr   error
	aggregateErr error
	scopeErr     error
}

func (m *memStore) inScope(scope Scope, id string) bool {
	return scope.Contains(id)
}

func (m *memStore) ListOpen(_ context.Context, scope Scope, limit int) ([]*conversation.Conversation, error) {
	m.reads.Add(1)
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*conversation.Conversation
	for _, c := range m.conversations {
		if !m.inScope(scope, c.ID) || isTerminalRow(string(c.Status)) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastMessageAt, out[j].LastMessageAt
		switch {
		case a == nil && b == nil:
			return out[i].ID < out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return out[i].ID < out[j].ID
		default:
			return a.After(*b)
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CountClosed(_ context.Context, scope Scope, since time.Time) (int, error) {
	m.reads.Add(1)
	if m.countErr != nil {
		return 0, m.countErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.conversations {
		if m.inScope(scope, c.ID) && isTerminalRow(string(c.Status)) && !c.UpdatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*conversation.Conversation, error) {
	m.reads.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.conversations {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, conversation.ErrNotFound
}

func (m *memStore) lastMessage(id string) (memMessage, bool) {
	var (
		last  memMessage
		found bool
	)
	for _, msg := range m.messages {
		if msg.ConversationID != id {
			continue
		}
		if !found || msg.CreatedAt.After(last.CreatedAt) {
			last = msg
			found = true
		}
	}
	return last, found
}

func (m *memStore) LastDirections(_ context.Context, ids []string) (map[string]conversation.Direction, error) {
	m.reads.Add(1)
	if m.directionErr != nil {
		return nil, m.directionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]conversation.Direction, len(ids))
	for _, id := range ids {
		if msg, ok := m.lastMessage(id); ok {
			out[id] = conversation.ParseDirection(msg.Direction)
		}
	}
	return out, nil
}

func (m *memStore) hasPending(id string) bool {
	for _, h := range m.handoffs {
		if h.ConversationID == id && h.Status == conversation.HandoffPending {
			return true
		}
	}
	return false
}

func (m *memStore) PendingConversationIDs(_ context.Context, ids []string) (map[string]struct{}, error) {
	m.reads.Add(1)
	if m.handoffErr != nil {
		return nil, m.handoffErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]struct{})
	for _, id := range ids {
		if m.hasPending(id) {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (m *memStore) ConversationIDsForInstance(_ context.Context, instanceID string) ([]string, error) {
	m.reads.Add(1)
	if m.scopeErr != nil {
		return nil, m.scopeErr
	}
	return m.instances[instanceID], nil
}

// TabCounts mirrors the stored function one predicate per queue.
func (m *memStore) TabCounts(_ context.Context, scope Scope, now time.Time) (TabCounts, error) {
	m.reads.Add(1)
	if m.aggregateErr != nil {
		return TabCounts{}, m.aggregateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var counts TabCounts
	for _, c := range m.conversations {
		if !m.inScope(scope, c.ID) {
			continue
		}
		if isTerminalRow(string(c.Status)) {
			if !c.UpdatedAt.Before(now.Add(-48 * time.Hour)) {
				counts.Closed++
			}
			continue
		}

		controller := sqlNormalize(string(c.ControlledBy))
		direction := ""
		if msg, ok := m.lastMessage(c.ID); ok {
			direction = sqlNormalize(msg.Direction)
		}
		breached := c.LastMessageAt != nil && !c.LastMessageAt.After(now.Add(-time.Hour))

		needsAttention := controller == "human" || m.hasPending(c.ID) || (direction == "inbound" && breached)
		waiting := !needsAttention && direction == "outbound" && controller == "ai"

		switch {
		case needsAttention:
			counts.NeedsAttention++
		case waiting:
			counts.WaitingOnDoctor++
		default:
			counts.AIActive++
		}
	}
	return counts, nil
}

// sqlNormalize mirrors lower(btrim(x, E' \t\r\n')) as written in the
// migrations, independently of conversation.Normalize.
func sqlNormalize(raw string) string {
	start, end := 0, len(raw)
	for start < end && strings.IndexByte(" \t\r\n", raw[start]) >= 0 {
		start++
	}
	for end > start && strings.IndexByte(" \t\r\n", raw[end-1]) >= 0 {
		end--
	}
	return strings.ToLower(raw[start:end])
}

// isTerminalRow mirrors the status predicate shared by ListOpen, CountClosed
// and the stored function.
func isTerminalRow(status string) bool {
	switch sqlNormalize(status) {
	case "completed", "archived", "concluido", "concluida", "arquivado", "arquivada", "finalizado", "finalizada":
		return true
	}
	return false
}
