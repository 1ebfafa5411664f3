package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_ReapUsesCreationTimeOnly(t *testing.T) {
	e, rec, clock := newTestEngine(t, "h1", "m1", "h2")

	require.NoError(t, e.Join("h1", "old"))
	require.NoError(t, e.Join("m1", "old"))

	clock.advance(90 * time.Minute)
	require.NoError(t, e.Join("h2", "young"))

	clock.advance(31 * time.Minute)
	// Traffic moments before the sweep does not keep the room alive.
	require.NoError(t, e.GameState("h1", "old", []byte(`{}`)))
	rec.reset()

	reaped := e.Reap(clock.now(), DefaultRoomMaxAge)

	assert.Equal(t, []string{"old"}, reaped)
	assert.Len(t, rec.ofType("h1", EventRoomClosed), 1)
	assert.Len(t, rec.ofType("m1", EventRoomClosed), 1)
	assert.Empty(t, rec.to("h2"))
	assert.Equal(t, 0, e.RoomSize("old"))
	assert.Equal(t, 1, e.RoomSize("young"))

	_, ok := e.CurrentRoom("m1")
	assert.False(t, ok)
}

func TestEngine_ReapIsIdempotent(t *testing.T) {
	e, rec, clock := newTestEngine(t, "h")
	require.NoError(t, e.Join("h", "r"))
	clock.advance(3 * time.Hour)

	assert.Equal(t, []string{"r"}, e.Reap(clock.now(), DefaultRoomMaxAge))
	assert.Empty(t, e.Reap(clock.now(), DefaultRoomMaxAge))
	assert.Len(t, rec.ofType("h", EventRoomClosed), 1)
}

func TestEngine_ReapBoundary(t *testing.T) {
	e, _, clock := newTestEngine(t, "h")
	require.NoError(t, e.Join("h", "r"))

	clock.advance(DefaultRoomMaxAge)
	assert.Empty(t, e.Reap(clock.now(), DefaultRoomMaxAge), "exactly maxAge is not older than maxAge")

	clock.advance(time.Millisecond)
	assert.Equal(t, []string{"r"}, e.Reap(clock.now(), DefaultRoomMaxAge))
}

func TestEngine_Rooms(t *testing.T) {
	e, _, clock := newTestEngine(t, "a", "b", "c")
	require.NoError(t, e.Join("a", "first"))
	clock.advance(time.Minute)
	require.NoError(t, e.Join("b", "second"))
	require.NoError(t, e.Join("c", "first"))
	clock.advance(time.Minute)

	rooms := e.Rooms()
	require.Len(t, rooms, 2)
	assert.Equal(t, "first", rooms[0].ID)
	assert.Equal(t, "a", rooms[0].Host)
	assert.Equal(t, []string{"c"}, rooms[0].Members)
	assert.Equal(t, 2, rooms[0].Size)
	assert.Equal(t, 2*time.Minute, rooms[0].Age)
	assert.Equal(t, "second", rooms[1].ID)
	assert.Equal(t, time.Minute, rooms[1].Age)
}
