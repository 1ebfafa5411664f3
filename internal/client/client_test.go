package client

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaykaiDos/signaling-server/internal/relay"
	"github.com/JaykaiDos/signaling-server/internal/server"
	"github.com/JaykaiDos/signaling-server/internal/signaling"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func startRelay(t *testing.T, codec signaling.Codec) string {
	t.Helper()
	hub := signaling.NewHub(signaling.WithCodec(codec), signaling.WithLogger(quiet), signaling.WithReaping(0, time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(server.NewRouter(hub, server.Options{CORSAllow: []string{"*"}, Logger: quiet}))
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string, codec signaling.Codec) (*Client, *Handler) {
	t.Helper()
	c := New(url, codec, quiet)
	require.NoError(t, c.Connect(context.Background()))
	h := NewHandler(c)
	go h.Start()
	t.Cleanup(c.Close)
	return c, h
}

func wait[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		var zero T
		t.Fatal("timed out waiting for event")
		return zero
	}
}

type move struct {
	Dir   string `json:"dir" msgpack:"dir"`
	Speed int    `json:"speed" msgpack:"speed"`
}

func testRoundTrip(t *testing.T, codec signaling.Codec) {
	url := startRelay(t, codec)
	host, hostEv := dial(t, url, codec)
	guest, guestEv := dial(t, url, codec)

	require.NoError(t, host.Join("arena"))
	assert.Equal(t, Joined{RoomID: "arena", PlayerCount: 1}, wait(t, hostEv.RoomJoined))

	require.NoError(t, guest.Join("arena"))
	assert.Equal(t, 2, wait(t, guestEv.RoomJoined).PlayerCount)
	peer := wait(t, hostEv.UserJoined)
	assert.Equal(t, "arena", peer.RoomID)

	require.NoError(t, guest.Emit(relay.EventPlayerInput, "arena", move{Dir: "left", Speed: 3}))
	in := wait(t, hostEv.PlayerInput)
	assert.Equal(t, peer.UserID, in.From)
	assert.False(t, in.At.IsZero())

	var got move
	require.NoError(t, codec.UnmarshalPayload(in.Data, &got))
	assert.Equal(t, move{Dir: "left", Speed: 3}, got)

	require.NoError(t, host.Emit(relay.EventGameState, "arena", map[string]int{"tick": 9}))
	state := wait(t, guestEv.GameState)
	var tick map[string]int
	require.NoError(t, codec.UnmarshalPayload(state.Data, &tick))
	assert.Equal(t, 9, tick["tick"])

	require.NoError(t, guest.Ping())
	assert.False(t, wait(t, guestEv.Pong).IsZero())

	guest.Close()
	left := wait(t, hostEv.UserLeft)
	assert.Equal(t, peer.UserID, left.UserID)
}

func TestClient_JSON(t *testing.T) {
	testRoundTrip(t, signaling.JSONCodec{})
}

func TestClient_Msgpack(t *testing.T) {
	testRoundTrip(t, signaling.MsgpackCodec{})
}

func TestClient_ErrorEvent(t *testing.T) {
	url := startRelay(t, signaling.JSONCodec{})
	c, ev := dial(t, url, signaling.JSONCodec{})

	require.NoError(t, c.Join(""))
	assert.Equal(t, relay.ErrMissingRoomID.Error(), wait(t, ev.Error))
}

func TestClient_EmitRejectsPayloadlessEvents(t *testing.T) {
	c := New("ws://unused", signaling.JSONCodec{}, quiet)
	err := c.Emit(relay.EventPing, "", struct{}{})
	assert.ErrorIs(t, err, ErrNoPayload)
}

func TestClient_SendAfterClose(t *testing.T) {
	url := startRelay(t, signaling.JSONCodec{})
	c, ev := dial(t, url, signaling.JSONCodec{})

	c.Close()
	c.Close()
	assert.ErrorIs(t, c.Ping(), ErrClosed)
	wait(t, ev.Done)
}
