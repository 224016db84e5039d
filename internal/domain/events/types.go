// Package events defines all event types used in adjutant.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Session lifecycle events
	EventTypeSessionCreated       EventType = "session_created"
	EventTypeSessionRemoved       EventType = "session_removed"
	EventTypeSessionStatusChanged EventType = "session_status_changed"
	EventTypeSessionJoined        EventType = "session_joined"
	EventTypeSessionLeft          EventType = "session_left"

	// Output events
	EventTypeSessionOutput EventType = "session_output"

	// Pipe events
	EventTypePipeAttached EventType = "pipe_attached"
	EventTypePipeDetached EventType = "pipe_detached"

	// Persistence events
	EventTypeStateFileChanged EventType = "state_file_changed"

	// Connection events
	EventTypeHeartbeat EventType = "heartbeat"

	// Response events
	EventTypeError EventType = "error"
)

// Event is the base interface for all events.
type Event interface {
	// Type returns the event type.
	Type() EventType

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// ToJSON serializes the event to JSON.
	ToJSON() ([]byte, error)

	// GetSessionID returns the session ID (may be empty for global events).
	GetSessionID() string
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType EventType   `json:"event"`
	EventTime time.Time   `json:"timestamp"`
	SessionID string      `json:"session_id,omitempty"`
	Payload   interface{} `json:"payload"`
}

// Type returns the event type.
func (e *BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e *BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ToJSON serializes the event to JSON.
func (e *BaseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// GetSessionID returns the session ID.
func (e *BaseEvent) GetSessionID() string {
	return e.SessionID
}

// NewEvent creates a new base event with the given type and payload.
func NewEvent(eventType EventType, payload interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   payload,
	}
}

// NewSessionEvent creates a new event scoped to a session.
func NewSessionEvent(eventType EventType, sessionID string, payload interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		SessionID: sessionID,
		Payload:   payload,
	}
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
