// Package responses contains HTTP response bodies for the supervision API.
package responses

import (
	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
)

// EventAcceptedResponse acknowledges a published event.
type EventAcceptedResponse struct {
	ID             string               `json:"id"`
	ConversationID string               `json:"conversation_id"`
	Type           liveupdate.EventType `json:"type"`
	Status         string               `json:"status"`
}

// StreamHandshake is the payload of the first event on every stream.
type StreamHandshake struct {
	ConversationID string `json:"conversation_id"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
}
