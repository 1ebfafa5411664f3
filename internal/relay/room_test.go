package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomTable_Ensure(t *testing.T) {
	tbl := NewRoomTable()
	now := time.Now()

	r, created := tbl.Ensure("r", "a", now)
	require.True(t, created)
	assert.Equal(t, "a", r.Host)
	assert.Empty(t, r.Members)
	assert.Equal(t, now, r.CreatedAt)

	again, created := tbl.Ensure("r", "b", now.Add(time.Hour))
	assert.False(t, created)
	assert.Same(t, r, again)
	assert.Equal(t, "a", again.Host)
	assert.Equal(t, now, again.CreatedAt)
}

func TestRoomTable_AddMember(t *testing.T) {
	tbl := NewRoomTable()
	tbl.Ensure("r", "host", time.Now())

	tests := []struct {
		name string
		room string
		id   string
		want bool
		size int
	}{
		{name: "new member", room: "r", id: "m1", want: true, size: 2},
		{name: "duplicate member", room: "r", id: "m1", want: false, size: 2},
		{name: "host is not a member", room: "r", id: "host", want: false, size: 2},
		{name: "second member", room: "r", id: "m2", want: true, size: 3},
		{name: "missing room", room: "x", id: "m3", want: false, size: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tbl.AddMember(tt.room, tt.id))
			assert.Equal(t, tt.size, tbl.Size("r"))
		})
	}
}

func TestRoomTable_RemoveMember(t *testing.T) {
	tbl := NewRoomTable()
	tbl.Ensure("r", "host", time.Now())
	tbl.AddMember("r", "m1")
	tbl.AddMember("r", "m2")

	rm, ok := tbl.RemoveMember("r", "m1")
	require.True(t, ok)
	assert.False(t, rm.HostLeft)
	assert.Equal(t, []string{"host", "m2"}, rm.Room.Occupants())

	_, ok = tbl.RemoveMember("r", "m1")
	assert.False(t, ok, "already removed")

	rm, ok = tbl.RemoveMember("r", "host")
	require.True(t, ok)
	assert.True(t, rm.HostLeft)
	assert.Equal(t, []string{"m2"}, rm.Room.Members)
	assert.Equal(t, 0, tbl.Size("r"))
	assert.Equal(t, 0, tbl.Len())
}

func TestRoomTable_CloseAndAll(t *testing.T) {
	tbl := NewRoomTable()
	tbl.Ensure("a", "h1", time.Now())
	tbl.Ensure("b", "h2", time.Now())

	seen := map[string]string{}
	for id, r := range tbl.All() {
		seen[id] = r.Host
	}
	assert.Equal(t, map[string]string{"a": "h1", "b": "h2"}, seen)

	r, ok := tbl.Close("a")
	require.True(t, ok)
	assert.Equal(t, "h1", r.Host)
	_, ok = tbl.Close("a")
	assert.False(t, ok)
	assert.Equal(t, 1, tbl.Len())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	now := time.Now()

	c := reg.Connect("a", now)
	assert.Same(t, c, reg.Connect("a", now.Add(time.Second)))
	assert.Equal(t, 1, reg.Len())

	_, ok := reg.CurrentRoom("a")
	assert.False(t, ok)

	reg.setRoom("a", "r1")
	room, ok := reg.CurrentRoom("a")
	require.True(t, ok)
	assert.Equal(t, "r1", room)

	reg.clearRoom("a", "r0")
	room, _ = reg.CurrentRoom("a")
	assert.Equal(t, "r1", room, "stale clear must not unset a newer room")

	reg.clearRoom("a", "r1")
	_, ok = reg.CurrentRoom("a")
	assert.False(t, ok)

	_, ok = reg.Disconnect("a")
	assert.True(t, ok)
	_, ok = reg.Disconnect("a")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}
