package amqp

import (
	"encoding/json"
	"time"

	"halya/internal/lookup"
)

// EventMessage is the wire form of a lookup diagnostic event.
type EventMessage struct {
	Kind       string    `json:"kind"`
	SessionID  string    `json:"session_id,omitempty"`
	Operation  string    `json:"operation,omitempty"`
	Alley      string    `json:"alley,omitempty"`
	ResidentID string    `json:"resident_id,omitempty"`
	Count      int       `json:"count,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEventMessage converts a lookup event. A zero event time is replaced
// with the current time.
func NewEventMessage(e lookup.Event) *EventMessage {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &EventMessage{
		Kind:       string(e.Kind),
		SessionID:  e.SessionID,
		Operation:  e.Operation,
		Alley:      e.Alley,
		ResidentID: e.ResidentID,
		Count:      e.Count,
		Error:      e.Error,
		Timestamp:  ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON creates a message from JSON bytes
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
