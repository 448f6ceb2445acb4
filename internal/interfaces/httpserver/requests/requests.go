// Package requests contains HTTP request bodies for the supervision API.
package requests

import "encoding/json"

// PublishEventRequest is the body of POST /v1/conversations/:id/events.
type PublishEventRequest struct {
	Type string          `json:"type" validate:"required,max=64"`
	Data json.RawMessage `json:"data" validate:"required"`
}
