package relay

import (
	"cmp"
	"slices"
	"time"
)

// RoomInfo is a read-only view of a room for admin listings.
type RoomInfo struct {
	ID        string        `json:"id"`
	Host      string        `json:"host"`
	Members   []string      `json:"members"`
	Size      int           `json:"size"`
	CreatedAt time.Time     `json:"createdAt"`
	Age       time.Duration `json:"age"`
}

// Stats are engine-wide counters.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// Rooms snapshots every room, oldest first.
func (e *Engine) Rooms() []RoomInfo {
	now := e.now()
	out := make([]RoomInfo, 0, e.rooms.Len())
	for _, room := range e.rooms.All() {
		out = append(out, RoomInfo{
			ID:        room.ID,
			Host:      room.Host,
			Members:   slices.Clone(room.Members),
			Size:      room.Size(),
			CreatedAt: room.CreatedAt,
			Age:       room.Age(now),
		})
	}
	slices.SortFunc(out, func(a, b RoomInfo) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Stats reports how many rooms and connections are live.
func (e *Engine) Stats() Stats {
	return Stats{Rooms: e.rooms.Len(), Connections: e.conns.Len()}
}
