package signaling

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaykaiDos/signaling-server/internal/metrics"
	"github.com/JaykaiDos/signaling-server/internal/relay"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type hubFixture struct {
	hub     *Hub
	clock   *testClock
	metrics *metrics.Collector
}

func startHub(t *testing.T, opts ...Option) *hubFixture {
	t.Helper()
	f := newHubFixture(opts...)
	f.run(t)
	return f
}

func newHubFixture(opts ...Option) *hubFixture {
	clock := &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := metrics.New(prometheus.NewRegistry())
	base := []Option{
		WithClock(clock.now),
		WithMetrics(m),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithReaping(0, time.Hour),
		WithSendBuffer(8),
	}
	h := NewHub(append(base, opts...)...)
	return &hubFixture{hub: h, clock: clock, metrics: m}
}

func (f *hubFixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go f.hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-f.hub.Done()
	})
}

// connect registers a client that has no socket; tests read its queue directly.
func (f *hubFixture) connect(t *testing.T, id string) *Client {
	t.Helper()
	c := &Client{ID: id, hub: f.hub, codec: f.hub.codec, send: make(chan *Message, f.hub.sendBuffer)}
	require.True(t, f.hub.register(c))
	return c
}

func (f *hubFixture) emit(t *testing.T, c *Client, msg *Message) {
	t.Helper()
	msg.client = c
	require.True(t, f.hub.deliver(msg))
	f.sync(t)
}

// sync waits until the loop has processed everything queued before it.
func (f *hubFixture) sync(t *testing.T) {
	t.Helper()
	_, err := f.hub.Stats(context.Background())
	require.NoError(t, err)
}

func next(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID)
		return nil
	}
}

func assertIdle(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("client %s got unexpected %q", c.ID, msg.Type)
	default:
	}
}

func TestHub_JoinAndRelay(t *testing.T) {
	f := startHub(t)
	a := f.connect(t, "A")
	b := f.connect(t, "B")

	f.emit(t, a, &Message{Type: relay.EventJoinRoom, RoomID: "R"})
	joined := next(t, a)
	assert.Equal(t, relay.EventRoomJoined, joined.Type)
	assert.Equal(t, 1, joined.PlayerCount)

	f.emit(t, b, &Message{Type: relay.EventJoinRoom, RoomID: "R"})
	userJoined := next(t, a)
	assert.Equal(t, relay.EventUserJoined, userJoined.Type)
	assert.Equal(t, "B", userJoined.UserID)
	assert.Equal(t, 2, next(t, b).PlayerCount)

	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	f.emit(t, a, &Message{Type: relay.EventSignal, RoomID: "R", SignalData: sdp})
	sig := next(t, b)
	assert.Equal(t, relay.EventSignal, sig.Type)
	assert.Equal(t, "A", sig.UserID)
	assert.JSONEq(t, string(sdp), string(sig.SignalData))
	assertIdle(t, a)

	f.emit(t, b, &Message{Type: relay.EventPlayerInput, RoomID: "R", Input: json.RawMessage(`{"k":"up"}`)})
	in := next(t, a)
	assert.Equal(t, relay.EventPlayerInput, in.Type)
	assert.Equal(t, "B", in.UserID)
	assert.JSONEq(t, `{"k":"up"}`, string(in.Input))

	f.emit(t, a, &Message{Type: relay.EventGameState, RoomID: "R", State: json.RawMessage(`{"tick":1}`)})
	st := next(t, b)
	assert.Equal(t, relay.EventGameState, st.Type)
	assert.JSONEq(t, `{"tick":1}`, string(st.State))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Rooms))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Connections))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Events.WithLabelValues(relay.EventJoinRoom)))
}

func TestHub_PingGetsPong(t *testing.T) {
	f := startHub(t)
	a := f.connect(t, "A")

	f.emit(t, a, &Message{Type: relay.EventPing})
	pong := next(t, a)
	assert.Equal(t, relay.EventPong, pong.Type)
	assert.Equal(t, f.clock.now().UnixMilli(), pong.Timestamp)
}

func TestHub_MissingRoomIDRepliesWithError(t *testing.T) {
	f := startHub(t)
	a := f.connect(t, "A")

	f.emit(t, a, &Message{Type: relay.EventJoinRoom})
	reply := next(t, a)
	assert.Equal(t, relay.EventError, reply.Type)
	assert.Equal(t, relay.ErrMissingRoomID.Error(), reply.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Rejected.WithLabelValues(relay.EventJoinRoom)))
}

func TestHub_UnknownTypeIsIgnored(t *testing.T) {
	f := startHub(t)
	a := f.connect(t, "A")

	f.emit(t, a, &Message{Type: "dance", RoomID: "R"})
	assertIdle(t, a)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Rejected.WithLabelValues("unknown")))
}

func TestHub_UnregisterNotifiesRoom(t *testing.T) {
	f := startHub(t)
	a := f.connect(t, "A")
	b := f.connect(t, "B")
	f.emit(t, a, &Message{Type: relay.EventJoinRoom, RoomID: "R"})
	f.emit(t, b, &Message{Type: relay.EventJoinRoom, RoomID: "R"})
	next(t, a) // room-joined
	next(t, a) // user-joined
	next(t, b) // room-joined

	f.hub.unregister(a)
	f.sync(t)

	gone := next(t, b)
	assert.Equal(t, relay.EventHostDisconnected, gone.Type)
	assert.Equal(t, "R", gone.RoomID)

	_, ok := <-a.send
	assert.False(t, ok, "unregistered client queue must be closed")

	rooms, err := f.hub.Rooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rooms)

	// A second unregister for the same client is a no-op.
	f.hub.unregister(a)
	f.sync(t)
}

func TestHub_FullQueueDropsMessages(t *testing.T) {
	f := startHub(t, WithSendBuffer(1))
	a := f.connect(t, "A")

	f.emit(t, a, &Message{Type: relay.EventPing})
	f.emit(t, a, &Message{Type: relay.EventPing})

	assert.Equal(t, relay.EventPong, next(t, a).Type)
	assertIdle(t, a)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Dropped))
}

func TestHub_CloseRoom(t *testing.T) {
	f := startHub(t)
	a := f.connect(t, "A")
	f.emit(t, a, &Message{Type: relay.EventJoinRoom, RoomID: "R"})
	next(t, a)

	closed, err := f.hub.CloseRoom(context.Background(), "R")
	require.NoError(t, err)
	assert.True(t, closed)

	ev := next(t, a)
	assert.Equal(t, relay.EventRoomClosed, ev.Type)
	assert.Equal(t, "R", ev.RoomID)

	closed, err = f.hub.CloseRoom(context.Background(), "R")
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestHub_ReapClosesOldRooms(t *testing.T) {
	f := startHub(t)
	a := f.connect(t, "A")
	b := f.connect(t, "B")
	f.emit(t, a, &Message{Type: relay.EventJoinRoom, RoomID: "old"})
	next(t, a)

	f.clock.advance(50 * time.Minute)
	f.emit(t, b, &Message{Type: relay.EventJoinRoom, RoomID: "new"})
	next(t, b)

	f.clock.advance(20 * time.Minute)
	reaped, err := f.hub.Reap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, reaped)
	assert.Equal(t, relay.EventRoomClosed, next(t, a).Type)
	assertIdle(t, b)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Reaped))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Rooms))
}

func TestHub_PeriodicReap(t *testing.T) {
	f := startHub(t, WithReaping(20*time.Millisecond, time.Hour))
	a := f.connect(t, "A")
	f.emit(t, a, &Message{Type: relay.EventJoinRoom, RoomID: "R"})
	next(t, a)

	f.clock.advance(2 * time.Hour)

	ev := next(t, a)
	assert.Equal(t, relay.EventRoomClosed, ev.Type)
	assert.Equal(t, "R", ev.RoomID)

	f.sync(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Reaped))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.Rooms))
}

func TestHub_DispatchPanicIsContained(t *testing.T) {
	f := newHubFixture()
	h := f.hub
	h.engine = relay.NewEngine(relay.SenderFunc(func(to string, ev relay.Outbound) {
		if ev.Type == relay.EventRoomJoined {
			panic("boom")
		}
		h.Send(to, ev)
	}), relay.WithClock(f.clock.now), relay.WithLogger(h.log))
	f.run(t)

	a := f.connect(t, "A")
	b := f.connect(t, "B")

	f.emit(t, a, &Message{Type: relay.EventJoinRoom, RoomID: "R"})
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Panics))
	assertIdle(t, a)

	stats, err := h.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Connections)

	f.emit(t, b, &Message{Type: relay.EventPing})
	assert.Equal(t, relay.EventPong, next(t, b).Type)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Panics))
}

func TestHub_StoppedHubRefusesWork(t *testing.T) {
	h := NewHub(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	c := &Client{ID: "A", hub: h, codec: h.codec, send: make(chan *Message, 1)}
	require.True(t, h.register(c))

	cancel()
	<-h.Done()

	_, ok := <-c.send
	assert.False(t, ok)
	assert.False(t, h.register(&Client{ID: "B", hub: h, send: make(chan *Message, 1)}))
	assert.False(t, h.deliver(&Message{Type: relay.EventPing, client: c}))

	_, err := h.Stats(context.Background())
	assert.ErrorIs(t, err, ErrHubStopped)
}
