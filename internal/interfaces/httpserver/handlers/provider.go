package handlers

import (
	"github.com/google/wire"
)

// Provider holds all HTTP handlers.
type Provider struct {
	Conversation *ConversationHandler
	Stream       *StreamHandler
}

func NewProvider(conversation *ConversationHandler, stream *StreamHandler) *Provider {
	return &Provider{
		Conversation: conversation,
		Stream:       stream,
	}
}

// HandlerProvider provides all handlers for wire.
var HandlerProvider = wire.NewSet(
	NewConversationHandler,
	NewStreamHandler,
	NewProvider,
)
