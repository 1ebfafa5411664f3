package relay

import "time"

// Connection is one live transport session.
type Connection struct {
	// ID is the opaque identity assigned by the transport on connect.
	ID string

	// RoomID is the room the connection is joined to, empty until a join.
	RoomID string

	ConnectedAt time.Time
}

// Registry tracks every live connection and its current room.
// It is not safe for concurrent use; the Engine owns it.
type Registry struct {
	conns map[string]*Connection
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Connect registers a connection. Registering an identity twice keeps the
// first record.
func (r *Registry) Connect(id string, at time.Time) *Connection {
	if c, ok := r.conns[id]; ok {
		return c
	}
	c := &Connection{ID: id, ConnectedAt: at}
	r.conns[id] = c
	return c
}

// Disconnect forgets a connection and returns its last record.
func (r *Registry) Disconnect(id string) (*Connection, bool) {
	c, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	delete(r.conns, id)
	return c, true
}

// Get returns the connection record for id.
func (r *Registry) Get(id string) (*Connection, bool) {
	c, ok := r.conns[id]
	return c, ok
}

// CurrentRoom returns the room the connection is joined to.
func (r *Registry) CurrentRoom(id string) (string, bool) {
	c, ok := r.conns[id]
	if !ok || c.RoomID == "" {
		return "", false
	}
	return c.RoomID, true
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	return len(r.conns)
}

func (r *Registry) setRoom(id, roomID string) {
	if c, ok := r.conns[id]; ok {
		c.RoomID = roomID
	}
}

// clearRoom unsets the room only if the connection still points at roomID,
// so a stale teardown never clobbers a newer membership.
func (r *Registry) clearRoom(id, roomID string) {
	if c, ok := r.conns[id]; ok && c.RoomID == roomID {
		c.RoomID = ""
	}
}
