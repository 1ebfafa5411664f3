package relay

import (
	"slices"
	"time"
)

// Default reaping policy.
const (
	DefaultRoomMaxAge   = 2 * time.Hour
	DefaultReapInterval = 30 * time.Minute
)

// Reap closes every room created more than maxAge before now. Only creation
// time counts; recent traffic does not keep a room alive. It returns the ids
// of the closed rooms in sorted order.
func (e *Engine) Reap(now time.Time, maxAge time.Duration) []string {
	var expired []string
	for id, room := range e.rooms.All() {
		if room.Age(now) > maxAge {
			expired = append(expired, id)
		}
	}
	slices.Sort(expired)

	for _, id := range expired {
		room, ok := e.rooms.Close(id)
		if !ok {
			continue
		}
		e.log.Info("room reaped", "room", id, "age", room.Age(now).Round(time.Second), "size", room.Size())
		e.notifyClosed(room)
	}
	return expired
}
