package signaling

import (
	"encoding/json"
	"time"

	"github.com/JaykaiDos/signaling-server/internal/relay"
)

// Message defines the envelope for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages.
//
// The opaque fields (SignalData, State, Input) hold raw bytes in the
// connection codec's own encoding and are never re-encoded by the server.
type Message struct {
	Type        string          `json:"type"`
	RoomID      string          `json:"roomId,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	PlayerCount int             `json:"playerCount,omitempty"`
	Timestamp   int64           `json:"timestamp,omitempty"`
	SignalData  json.RawMessage `json:"signalData,omitempty"`
	State       json.RawMessage `json:"state,omitempty"`
	Input       json.RawMessage `json:"input,omitempty"`
	Error       string          `json:"error,omitempty"`

	// client is the client that sent the message.
	// It's used internally by the Hub and not sent over the wire.
	client *Client `json:"-"`
}

// payload returns the opaque field that belongs to the message type.
func (m *Message) payload() []byte {
	switch m.Type {
	case relay.EventSignal:
		return m.SignalData
	case relay.EventGameState:
		return m.State
	case relay.EventPlayerInput:
		return m.Input
	}
	return nil
}

// FromOutbound converts an engine send instruction to its wire form.
func FromOutbound(ev relay.Outbound) *Message {
	msg := &Message{
		Type:        ev.Type,
		RoomID:      ev.RoomID,
		UserID:      ev.UserID,
		PlayerCount: ev.PlayerCount,
	}
	if !ev.Timestamp.IsZero() {
		msg.Timestamp = ev.Timestamp.UnixMilli()
	}

	switch ev.Type {
	case relay.EventSignal:
		msg.SignalData = ev.Payload
	case relay.EventGameState:
		msg.State = ev.Payload
	case relay.EventPlayerInput:
		msg.Input = ev.Payload
	}
	return msg
}

// Time returns Timestamp as a time.Time.
func (m *Message) Time() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.Timestamp)
}

// errorMessage builds the reply for a rejected event.
func errorMessage(reason string) *Message {
	return &Message{Type: relay.EventError, Error: reason}
}
