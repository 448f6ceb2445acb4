package conversation

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// TrimCutset is the whitespace stripped from stored status, controller and
// direction values before comparison. Queries strip the same set with
// btrim(x, E' \t\r\n'), so row filters and in-memory rules agree.
const TrimCutset = " \t\r\n"

// Normalize lowercases raw after trimming TrimCutset from both ends.
func Normalize(raw string) string {
	return strings.ToLower(strings.Trim(raw, TrimCutset))
}

// Status is the lifecycle status of a conversation as written by the platform.
// Values outside the terminal set are treated as open.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// terminalStatuses lists every spelling that closes a conversation,
// including the Portuguese variants written by operators.
var terminalStatuses = []Status{
	StatusCompleted,
	StatusArchived,
	"concluido",
	"concluida",
	"arquivado",
	"arquivada",
	"finalizado",
	"finalizada",
}

// IsTerminal reports whether the status closes the conversation.
// The comparison ignores case and surrounding TrimCutset whitespace.
func (s Status) IsTerminal() bool {
	normalized := Status(Normalize(string(s)))
	for _, terminal := range terminalStatuses {
		if normalized == terminal {
			return true
		}
	}
	return false
}

// TerminalStatuses returns the lowercase terminal set used by queries.
func TerminalStatuses() []string {
	out := make([]string, len(terminalStatuses))
	for i, s := range terminalStatuses {
		out[i] = string(s)
	}
	return out
}

// ControlledBy names who currently drives the conversation.
type ControlledBy string

const (
	ControlledByAI    ControlledBy = "ai"
	ControlledByHuman ControlledBy = "human"
)

// IsHuman reports whether a human agent has taken control.
func (c ControlledBy) IsHuman() bool {
	return ControlledBy(Normalize(string(c))) == ControlledByHuman
}

// IsAI reports whether the automated agent is in control.
func (c ControlledBy) IsAI() bool {
	return ControlledBy(Normalize(string(c))) == ControlledByAI
}

// Direction is the direction of a message relative to the platform.
type Direction string

const (
	DirectionUnknown  Direction = ""
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ParseDirection maps stored values onto a Direction. Unrecognised values are unknown.
func ParseDirection(raw string) Direction {
	switch Direction(Normalize(raw)) {
	case DirectionInbound:
		return DirectionInbound
	case DirectionOutbound:
		return DirectionOutbound
	default:
		return DirectionUnknown
	}
}

// HandoffStatus is the state of an escalation to a human.
type HandoffStatus string

const (
	HandoffPending   HandoffStatus = "pending"
	HandoffResolved  HandoffStatus = "resolved"
	HandoffCancelled HandoffStatus = "cancelled"
)

// Conversation is the read model of one WhatsApp conversation.
type Conversation struct {
	ID            string       `json:"id"`
	InstanceID    string       `json:"instance_id,omitempty"`
	Status        Status       `json:"status"`
	ControlledBy  ControlledBy `json:"controlled_by"`
	IsPaused      bool         `json:"is_paused"`
	LastMessageAt *time.Time   `json:"last_message_at,omitempty"`
	UpdatedAt     time.Time    `json:"updated_at"`
	CreatedAt     time.Time    `json:"created_at"`
}

// IsTerminal reports whether the conversation is closed.
func (c *Conversation) IsTerminal() bool {
	return c.Status.IsTerminal()
}
