package triage

import (
	"context"
	"errors"
	"time"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
)

// ErrAggregateUnavailable is returned by an AggregateReader when the
// server-side aggregate is not provisioned.
var ErrAggregateUnavailable = errors.New("tab count aggregate unavailable")

// ConversationReader reads conversations in row and count modes.
type ConversationReader interface {
	// ListOpen returns up to limit non-terminal conversations in scope,
	// most recent last_message_at first.
	ListOpen(ctx context.Context, scope Scope, limit int) ([]*conversation.Conversation, error)

	// CountClosed counts terminal conversations in scope updated at or after since.
	CountClosed(ctx context.Context, scope Scope, since time.Time) (int, error)

	// FindByID returns conversation.ErrNotFound when id does not exist.
	FindByID(ctx context.Context, id string) (*conversation.Conversation, error)
}

// MessageReader resolves the direction of the most recent message per conversation.
// Conversations without messages are absent from the result.
type MessageReader interface {
	LastDirections(ctx context.Context, conversationIDs []string) (map[string]conversation.Direction, error)
}

// HandoffReader resolves which conversations have a pending handoff.
type HandoffReader interface {
	PendingConversationIDs(ctx context.Context, conversationIDs []string) (map[string]struct{}, error)
}

// AggregateReader computes TabCounts in a single server-side call.
type AggregateReader interface {
	TabCounts(ctx context.Context, scope Scope, now time.Time) (TabCounts, error)
}

// ScopeResolver maps a messaging instance to the conversations it owns.
type ScopeResolver interface {
	ConversationIDsForInstance(ctx context.Context, instanceID string) ([]string, error)
}
