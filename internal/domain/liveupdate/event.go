package liveupdate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventType names a live conversation event.
type EventType string

const (
	EventNewMessage     EventType = "new_message"
	EventControlChange  EventType = "control_change"
	EventPauseChange    EventType = "pause_change"
	EventChannelMessage EventType = "channel_message"
)

// EventTypes lists every event the channel forwards.
func EventTypes() []EventType {
	return []EventType{EventNewMessage, EventControlChange, EventPauseChange, EventChannelMessage}
}

// Known reports whether t is one of the forwarded event types.
func (t EventType) Known() bool {
	switch t {
	case EventNewMessage, EventControlChange, EventPauseChange, EventChannelMessage:
		return true
	}
	return false
}

// ParseEventType maps a push event name onto an EventType. Unnamed events
// ("" or "message") are generic channel messages.
func ParseEventType(name string) (EventType, bool) {
	switch EventType(strings.TrimSpace(name)) {
	case "", "message", EventChannelMessage:
		return EventChannelMessage, true
	case EventNewMessage:
		return EventNewMessage, true
	case EventControlChange:
		return EventControlChange, true
	case EventPauseChange:
		return EventPauseChange, true
	default:
		return "", false
	}
}

// Event is one update about a conversation. ID is assigned by the
// publisher and is empty for events decoded from a push frame.
type Event struct {
	ID   string          `json:"id,omitempty"`
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Validate checks the type is known and the payload is a JSON document.
func (e Event) Validate() error {
	if !e.Type.Known() {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if len(e.Data) == 0 || !json.Valid(e.Data) {
		return fmt.Errorf("event %s: payload is not valid JSON", e.Type)
	}
	return nil
}

// DecodeEvent builds an Event from a push frame. It fails for unknown
// names and for payloads that are not JSON.
func DecodeEvent(name string, data []byte) (Event, error) {
	eventType, ok := ParseEventType(name)
	if !ok {
		return Event{}, fmt.Errorf("unknown event type %q", name)
	}
	if len(data) == 0 || !json.Valid(data) {
		return Event{}, fmt.Errorf("event %s: payload is not valid JSON", eventType)
	}
	payload := make(json.RawMessage, len(data))
	copy(payload, data)
	return Event{Type: eventType, Data: payload}, nil
}
