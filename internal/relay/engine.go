package relay

import (
	"log/slog"
	"time"
)

// Engine applies the routing rules on top of the Registry and RoomTable.
//
// Engine is not safe for concurrent use. The signaling hub drives it from a
// single goroutine, so every command runs to completion before the next one.
type Engine struct {
	conns *Registry
	rooms *RoomTable
	out   Sender
	now   func() time.Time
	log   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an Engine that emits through out.
func NewEngine(out Sender, opts ...Option) *Engine {
	e := &Engine{
		conns: NewRegistry(),
		rooms: NewRoomTable(),
		out:   out,
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Connect registers a freshly accepted connection.
func (e *Engine) Connect(id string) {
	e.conns.Connect(id, e.now())
}

// Join puts id into roomID. The first joiner of an unknown room becomes its
// host; later joiners are members and the host hears about them.
func (e *Engine) Join(id, roomID string) error {
	if roomID == "" {
		return ErrMissingRoomID
	}
	conn, ok := e.conns.Get(id)
	if !ok {
		return nil
	}

	if conn.RoomID != "" && conn.RoomID != roomID {
		e.leave(id, conn.RoomID)
	}

	now := e.now()
	room, created := e.rooms.Ensure(roomID, id, now)
	if created {
		e.log.Info("room created", "room", roomID, "host", id)
	} else if e.rooms.AddMember(roomID, id) {
		e.log.Info("client joined room", "room", roomID, "client", id, "size", room.Size())
		e.out.Send(room.Host, Outbound{
			Type:      EventUserJoined,
			RoomID:    roomID,
			UserID:    id,
			Timestamp: now,
		})
	}
	e.conns.setRoom(id, roomID)

	e.out.Send(id, Outbound{
		Type:        EventRoomJoined,
		RoomID:      roomID,
		PlayerCount: room.Size(),
		Timestamp:   now,
	})
	return nil
}

// Signal relays negotiation data to every other occupant of roomID.
func (e *Engine) Signal(id, roomID string, data []byte) error {
	return e.broadcast(id, roomID, EventSignal, data)
}

// GameState relays state to every other occupant of roomID. Any occupant may
// send it; by convention only the host does.
func (e *Engine) GameState(id, roomID string, state []byte) error {
	return e.broadcast(id, roomID, EventGameState, state)
}

// PlayerInput forwards input to the host of roomID, tagged with the sender.
func (e *Engine) PlayerInput(id, roomID string, input []byte) error {
	if roomID == "" {
		return ErrMissingRoomID
	}
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return nil
	}
	e.out.Send(room.Host, Outbound{
		Type:      EventPlayerInput,
		RoomID:    roomID,
		UserID:    id,
		Timestamp: e.now(),
		Payload:   input,
	})
	return nil
}

// Heartbeat answers a ping. It never touches state.
func (e *Engine) Heartbeat(id string) {
	e.out.Send(id, Outbound{Type: EventPong, Timestamp: e.now()})
}

// Disconnect removes id from every room that references it and forgets the
// connection. A departing host tears its room down.
func (e *Engine) Disconnect(id string) {
	var held []string
	for roomID, room := range e.rooms.All() {
		if room.Has(id) {
			held = append(held, roomID)
		}
	}
	if len(held) > 1 {
		e.log.Warn("connection referenced by several rooms", "client", id, "rooms", held)
	}
	for _, roomID := range held {
		e.leave(id, roomID)
	}
	e.conns.Disconnect(id)
}

// CloseRoom deletes roomID and tells every occupant it was closed.
func (e *Engine) CloseRoom(roomID string) bool {
	room, ok := e.rooms.Close(roomID)
	if !ok {
		return false
	}
	e.notifyClosed(room)
	return true
}

// RoomSize returns host + members of roomID, 0 when unknown.
func (e *Engine) RoomSize(roomID string) int {
	return e.rooms.Size(roomID)
}

// CurrentRoom returns the room id is joined to.
func (e *Engine) CurrentRoom(id string) (string, bool) {
	return e.conns.CurrentRoom(id)
}

func (e *Engine) broadcast(id, roomID, typ string, payload []byte) error {
	if roomID == "" {
		return ErrMissingRoomID
	}
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return nil
	}
	ev := Outbound{Type: typ, RoomID: roomID, UserID: id, Payload: payload}
	for _, to := range room.Occupants() {
		if to == id {
			continue
		}
		e.out.Send(to, ev)
	}
	return nil
}

// leave applies member or host departure semantics for one room.
func (e *Engine) leave(id, roomID string) {
	rm, ok := e.rooms.RemoveMember(roomID, id)
	if !ok {
		return
	}
	e.conns.clearRoom(id, roomID)

	if rm.HostLeft {
		e.log.Info("host left, room deleted", "room", roomID, "host", id)
		for _, member := range rm.Room.Members {
			e.conns.clearRoom(member, roomID)
			e.out.Send(member, Outbound{Type: EventHostDisconnected, RoomID: roomID})
		}
		return
	}

	e.log.Info("client left room", "room", roomID, "client", id)
	e.out.Send(rm.Room.Host, Outbound{
		Type:      EventUserLeft,
		RoomID:    roomID,
		UserID:    id,
		Timestamp: e.now(),
	})
}

func (e *Engine) notifyClosed(room *Room) {
	for _, to := range room.Occupants() {
		e.conns.clearRoom(to, room.ID)
		e.out.Send(to, Outbound{Type: EventRoomClosed, RoomID: room.ID})
	}
}
