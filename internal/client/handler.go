package client

import (
	"log/slog"
	"time"

	"github.com/JaykaiDos/signaling-server/internal/relay"
	"github.com/JaykaiDos/signaling-server/internal/signaling"
)

// Joined acknowledges our own join.
type Joined struct {
	RoomID      string
	PlayerCount int
}

// Peer names another connection in a room.
type Peer struct {
	RoomID string
	UserID string
}

// Relayed is an opaque payload forwarded from a peer. Data is still in the
// connection codec's encoding.
type Relayed struct {
	RoomID string
	From   string
	At     time.Time
	Data   []byte
}

// Handler routes incoming relay events to typed channels.
//
// Delivery never blocks the read loop: when a channel is full the event is
// logged and dropped, the same best-effort contract the relay itself offers.
type Handler struct {
	client *Client
	log    *slog.Logger

	RoomJoined       chan Joined
	UserJoined       chan Peer
	UserLeft         chan Peer
	HostDisconnected chan string
	RoomClosed       chan string
	Signal           chan Relayed
	GameState        chan Relayed
	PlayerInput      chan Relayed
	Pong             chan time.Time
	Error            chan string

	// Done is closed once the connection's event stream ends.
	Done chan struct{}
}

// NewHandler creates a new event router.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:           client,
		log:              client.log,
		RoomJoined:       make(chan Joined, 4),
		UserJoined:       make(chan Peer, 16),
		UserLeft:         make(chan Peer, 16),
		HostDisconnected: make(chan string, 1),
		RoomClosed:       make(chan string, 1),
		Signal:           make(chan Relayed, 64),
		GameState:        make(chan Relayed, 64),
		PlayerInput:      make(chan Relayed, 64),
		Pong:             make(chan time.Time, 4),
		Error:            make(chan string, 4),
		Done:             make(chan struct{}),
	}
}

// Start consumes the client's event stream until it is closed.
func (h *Handler) Start() {
	defer close(h.Done)

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case relay.EventRoomJoined:
			offer(h, h.RoomJoined, Joined{RoomID: msg.RoomID, PlayerCount: msg.PlayerCount}, msg.Type)

		case relay.EventUserJoined:
			offer(h, h.UserJoined, Peer{RoomID: msg.RoomID, UserID: msg.UserID}, msg.Type)

		case relay.EventUserLeft:
			offer(h, h.UserLeft, Peer{RoomID: msg.RoomID, UserID: msg.UserID}, msg.Type)

		case relay.EventHostDisconnected:
			offer(h, h.HostDisconnected, msg.RoomID, msg.Type)

		case relay.EventRoomClosed:
			offer(h, h.RoomClosed, msg.RoomID, msg.Type)

		case relay.EventSignal:
			offer(h, h.Signal, relayed(msg, msg.SignalData), msg.Type)

		case relay.EventGameState:
			offer(h, h.GameState, relayed(msg, msg.State), msg.Type)

		case relay.EventPlayerInput:
			offer(h, h.PlayerInput, relayed(msg, msg.Input), msg.Type)

		case relay.EventPong:
			offer(h, h.Pong, msg.Time(), msg.Type)

		case relay.EventError:
			offer(h, h.Error, msg.Error, msg.Type)

		default:
			h.log.Debug("unhandled event", "type", msg.Type)
		}
	}
}

func relayed(msg *signaling.Message, data []byte) Relayed {
	return Relayed{RoomID: msg.RoomID, From: msg.UserID, At: msg.Time(), Data: data}
}

func offer[T any](h *Handler, ch chan T, v T, typ string) {
	select {
	case ch <- v:
	default:
		h.log.Warn("event dropped, nobody is reading", "type", typ)
	}
}
