package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message is a single event produced by a connection's receive loop and consumed by the
// poller (e.g. a game loop calling GetNextMessage once per tick).
// Messages are never modified after they are created.
type Message struct {
	// ConnectionID identifies the connection the event belongs to.
	// The client always uses 0, the server assigns ids starting at 1.
	ConnectionID int `json:"connection_id"`

	// Type of the event
	EventType EventType `json:"event_type"`

	// Payload, only set for Data events
	Data []byte `json:"data,omitempty"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewConnectedMessage creates a Connected event
func NewConnectedMessage(connectionID int) Message {
	return Message{ConnectionID: connectionID, EventType: Connected}
}

// NewDataMessage creates a Data event
func NewDataMessage(connectionID int, data []byte) Message {
	return Message{ConnectionID: connectionID, EventType: Data, Data: data}
}

// NewDisconnectedMessage creates a Disconnected event
func NewDisconnectedMessage(connectionID int) Message {
	return Message{ConnectionID: connectionID, EventType: Disconnected}
}

// String returns a short description of the message, e.g. "data(3, 11 bytes)"
func (m Message) String() string {
	if m.EventType == Data {
		return fmt.Sprintf("%s(%d, %d bytes)", m.EventType, m.ConnectionID, len(m.Data))
	}
	return fmt.Sprintf("%s(%d)", m.EventType, m.ConnectionID)
}

// --------------------------------------------------------------------------
// Event Type Definition
// --------------------------------------------------------------------------

// EventType defines which kind of event a Message carries
type EventType uint8

const (
	Connected    EventType = iota // A connection was established
	Data                          // A complete message was received
	Disconnected                  // The connection was closed (always the last event)
)

// String returns the string representation of an EventType
func (t EventType) String() string {
	switch t {
	case Connected:
		return "connected"
	case Data:
		return "data"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for EventType.
// This allows EventType to be serialized as a string in JSON.
func (t EventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for EventType.
func (t *EventType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "connected":
		*t = Connected
	case "data":
		*t = Data
	case "disconnected":
		*t = Disconnected
	default:
		return fmt.Errorf("unknown event type: %s", s)
	}
	return nil
}
