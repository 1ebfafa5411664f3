package relay

import (
	"iter"
	"slices"
	"time"
)

// Room is one rendezvous session: a fixed host plus zero or more members.
type Room struct {
	// ID is the caller-supplied room identifier.
	ID string

	// Host is the connection that created the room. It never changes.
	Host string

	// Members are the other occupants in join order, without the host.
	Members []string

	// CreatedAt drives idle reaping.
	CreatedAt time.Time
}

// Size is the number of occupants, host included.
func (r *Room) Size() int {
	return 1 + len(r.Members)
}

// Occupants returns the host followed by every member.
func (r *Room) Occupants() []string {
	out := make([]string, 0, r.Size())
	out = append(out, r.Host)
	return append(out, r.Members...)
}

// Has reports whether id is the host or a member.
func (r *Room) Has(id string) bool {
	return r.Host == id || slices.Contains(r.Members, id)
}

// Age is the time elapsed since creation.
func (r *Room) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}

// Removal describes the outcome of RemoveMember.
type Removal struct {
	Room *Room

	// HostLeft is true when the removed identity was the host and the room
	// was torn down. Room.Members then lists the occupants left behind.
	HostLeft bool
}

// RoomTable maps room ids to rooms. Not safe for concurrent use.
type RoomTable struct {
	rooms map[string]*Room
}

func NewRoomTable() *RoomTable {
	return &RoomTable{rooms: make(map[string]*Room)}
}

// Ensure returns the room for roomID, creating it with creator as host when it
// does not exist yet. created reports whether this call created it.
func (t *RoomTable) Ensure(roomID, creator string, now time.Time) (room *Room, created bool) {
	if r, ok := t.rooms[roomID]; ok {
		return r, false
	}
	r := &Room{
		ID:        roomID,
		Host:      creator,
		CreatedAt: now,
	}
	t.rooms[roomID] = r
	return r, true
}

// AddMember adds id to an existing room. It returns false when the room is
// missing or id already occupies it.
func (t *RoomTable) AddMember(roomID, id string) bool {
	r, ok := t.rooms[roomID]
	if !ok || r.Has(id) {
		return false
	}
	r.Members = append(r.Members, id)
	return true
}

// RemoveMember takes id out of the room. Removing the host deletes the room.
func (t *RoomTable) RemoveMember(roomID, id string) (Removal, bool) {
	r, ok := t.rooms[roomID]
	if !ok {
		return Removal{}, false
	}

	if r.Host == id {
		delete(t.rooms, roomID)
		return Removal{Room: r, HostLeft: true}, true
	}

	i := slices.Index(r.Members, id)
	if i < 0 {
		return Removal{}, false
	}
	r.Members = slices.Delete(r.Members, i, i+1)
	return Removal{Room: r}, true
}

// Size returns host + members, or 0 when the room does not exist.
func (t *RoomTable) Size(roomID string) int {
	r, ok := t.rooms[roomID]
	if !ok {
		return 0
	}
	return r.Size()
}

// Get looks up a room.
func (t *RoomTable) Get(roomID string) (*Room, bool) {
	r, ok := t.rooms[roomID]
	return r, ok
}

// Close deletes the room unconditionally and returns it so the caller can
// notify the occupants.
func (t *RoomTable) Close(roomID string) (*Room, bool) {
	r, ok := t.rooms[roomID]
	if !ok {
		return nil, false
	}
	delete(t.rooms, roomID)
	return r, true
}

// All iterates over every room. Rooms must not be closed while iterating.
func (t *RoomTable) All() iter.Seq2[string, *Room] {
	return func(yield func(string, *Room) bool) {
		for id, r := range t.rooms {
			if !yield(id, r) {
				return
			}
		}
	}
}

// Len returns the number of rooms.
func (t *RoomTable) Len() int {
	return len(t.rooms)
}
