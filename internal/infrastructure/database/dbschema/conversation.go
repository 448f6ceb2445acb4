package dbschema

import (
	"time"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
)

// Conversation is the row read from the platform's conversations table.
type Conversation struct {
	ID            string     `gorm:"primaryKey;type:text"`
	InstanceID    *string    `gorm:"type:text;index"`
	Status        string     `gorm:"type:text;not null;default:'active'"`
	ControlledBy  string     `gorm:"type:text;not null;default:'ai'"`
	IsPaused      bool       `gorm:"not null;default:false"`
	LastMessageAt *time.Time `gorm:"type:timestamptz"`
	CreatedAt     time.Time  `gorm:"type:timestamptz"`
	UpdatedAt     time.Time  `gorm:"type:timestamptz"`
}

// TableName pins the platform table name.
func (Conversation) TableName() string {
	return "conversations"
}

// NewSchemaConversation converts a domain conversation to its row.
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	row := &Conversation{
		ID:            c.ID,
		Status:        string(c.Status),
		ControlledBy:  string(c.ControlledBy),
		IsPaused:      c.IsPaused,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.InstanceID != "" {
		instanceID := c.InstanceID
		row.InstanceID = &instanceID
	}
	return row
}

// EtoD converts the row to the domain model.
func (c *Conversation) EtoD() *conversation.Conversation {
	out := &conversation.Conversation{
		ID:            c.ID,
		Status:        conversation.Status(c.Status),
		ControlledBy:  conversation.ControlledBy(c.ControlledBy),
		IsPaused:      c.IsPaused,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.InstanceID != nil {
		out.InstanceID = *c.InstanceID
	}
	return out
}

// Message is the subset of the messages table supervision reads.
type Message struct {
	ID             int64     `gorm:"primaryKey"`
	ConversationID string    `gorm:"type:text;not null;index"`
	Direction      string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"type:timestamptz"`
}

// TableName pins the platform table name.
func (Message) TableName() string {
	return "messages"
}

// Handoff is the subset of the handoffs table supervision reads.
type Handoff struct {
	ID             int64      `gorm:"primaryKey"`
	ConversationID string     `gorm:"type:text;not null;index"`
	Status         string     `gorm:"type:text;not null;default:'pending'"`
	CreatedAt      time.Time  `gorm:"type:timestamptz"`
	ResolvedAt     *time.Time `gorm:"type:timestamptz"`
}

// TableName pins the platform table name.
func (Handoff) TableName() string {
	return "handoffs"
}
