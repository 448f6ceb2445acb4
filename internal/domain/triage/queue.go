package triage

import (
	"time"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
)

// Queue is the supervision bucket a conversation is sorted into. It is
// always derived from the current snapshot and never stored.
type Queue string

const (
	QueueNeedsAttention  Queue = "needs_attention"
	QueueWaitingOnDoctor Queue = "waiting_on_doctor"
	QueueAIActive        Queue = "ai_active"
	QueueClosed          Queue = "closed"
)

const (
	// ResponseSLA is how long an inbound message may wait for the agent
	// before the conversation needs a human. Reaching it exactly is a breach.
	ResponseSLA = time.Hour

	// ClosedRetention bounds the closed count to recently updated conversations.
	ClosedRetention = 48 * time.Hour

	// FallbackConversationLimit caps the open conversations read by the
	// fallback path. The aggregate has no cap, so above this many open
	// conversations the fallback undercounts; it logs a warning when the
	// cap is reached.
	FallbackConversationLimit = 1000
)

// TabCounts is the per-queue aggregate shown on the supervision tabs.
type TabCounts struct {
	NeedsAttention  int `json:"needs_attention"`
	AIActive        int `json:"ai_active"`
	WaitingOnDoctor int `json:"waiting_on_doctor"`
	Closed          int `json:"closed"`
}

// Add counts one conversation in queue q.
func (t *TabCounts) Add(q Queue) {
	switch q {
	case QueueNeedsAttention:
		t.NeedsAttention++
	case QueueWaitingOnDoctor:
		t.WaitingOnDoctor++
	case QueueAIActive:
		t.AIActive++
	case QueueClosed:
		t.Closed++
	}
}

// Total returns the number of conversations counted.
func (t TabCounts) Total() int {
	return t.NeedsAttention + t.AIActive + t.WaitingOnDoctor + t.Closed
}

// Snapshot is everything the classifier needs to know about one conversation.
type Snapshot struct {
	Conversation      *conversation.Conversation
	LastDirection     conversation.Direction
	HasPendingHandoff bool
}

// Classify maps a snapshot to its queue. Rules are evaluated in order and
// the first match wins. Terminal conversations are closed and skip the rules.
func Classify(s Snapshot, now time.Time) Queue {
	c := s.Conversation
	if c == nil {
		return QueueAIActive
	}
	if c.IsTerminal() {
		return QueueClosed
	}

	if c.ControlledBy.IsHuman() || s.HasPendingHandoff {
		return QueueNeedsAttention
	}

	if s.LastDirection == conversation.DirectionInbound && SLABreached(c.LastMessageAt, now) {
		return QueueNeedsAttention
	}

	if s.LastDirection == conversation.DirectionOutbound && c.ControlledBy.IsAI() {
		return QueueWaitingOnDoctor
	}

	return QueueAIActive
}

// SLABreached reports whether a message sent at lastMessageAt has waited
// ResponseSLA or longer. A missing timestamp never breaches.
func SLABreached(lastMessageAt *time.Time, now time.Time) bool {
	if lastMessageAt == nil {
		return false
	}
	return now.Sub(*lastMessageAt) >= ResponseSLA
}

// ClosedSince returns the lower bound on updated_at for the closed count.
func ClosedSince(now time.Time) time.Time {
	return now.Add(-ClosedRetention)
}

// CountsTowardClosed reports whether a terminal conversation falls inside
// the retention window. The bound is inclusive.
func CountsTowardClosed(c *conversation.Conversation, now time.Time) bool {
	return c.IsTerminal() && !c.UpdatedAt.Before(ClosedSince(now))
}
