package relay

import (
	"errors"
	"time"
)

// Inbound event names.
const (
	EventJoinRoom    = "join-room"
	EventSignal      = "signal"
	EventGameState   = "game-state"
	EventPlayerInput = "player-input"
	EventPing        = "ping"
)

// Outbound event names. signal, game-state and player-input reuse the
// inbound names.
const (
	EventRoomJoined       = "room-joined"
	EventUserJoined       = "user-joined"
	EventUserLeft         = "user-left"
	EventHostDisconnected = "host-disconnected"
	EventRoomClosed       = "room-closed"
	EventPong             = "pong"
	EventError            = "error"
)

var (
	// ErrMissingRoomID rejects a command that names no room.
	ErrMissingRoomID = errors.New("roomId is required")
)

// Outbound is a single send instruction issued by the Engine.
type Outbound struct {
	Type        string
	RoomID      string
	UserID      string
	PlayerCount int
	Timestamp   time.Time

	// Payload is relayed untouched for signal, game-state and player-input.
	Payload []byte
}

// Sender delivers outbound events to connections. Implementations must not
// block and must not call back into the Engine.
type Sender interface {
	Send(to string, ev Outbound)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(to string, ev Outbound)

func (f SenderFunc) Send(to string, ev Outbound) { f(to, ev) }
