package dbschema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
)

func TestConversationRoundTrip(t *testing.T) {
	lastMessage := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	domain := &conversation.Conversation{
		ID:            "conv-1",
		InstanceID:    "chip-7",
		Status:        conversation.StatusActive,
		ControlledBy:  conversation.ControlledByHuman,
		IsPaused:      true,
		LastMessageAt: &lastMessage,
		CreatedAt:     lastMessage.Add(-time.Hour),
		UpdatedAt:     lastMessage,
	}

	row := NewSchemaConversation(domain)
	assert.Equal(t, "chip-7", *row.InstanceID)
	assert.Equal(t, domain, row.EtoD())
}

func TestConversationWithoutInstance(t *testing.T) {
	row := NewSchemaConversation(&conversation.Conversation{ID: "conv-2", Status: "completed"})
	assert.Nil(t, row.InstanceID)
	assert.Empty(t, row.EtoD().InstanceID)
	assert.True(t, row.EtoD().IsTerminal())
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "conversations", Conversation{}.TableName())
	assert.Equal(t, "messages", Message{}.TableName())
	assert.Equal(t, "handoffs", Handoff{}.TableName())
}
