package signaling

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaykaiDos/signaling-server/internal/metrics"
	"github.com/JaykaiDos/signaling-server/internal/relay"
)

// ErrHubStopped is returned by calls made after the hub loop exited.
var ErrHubStopped = errors.New("hub stopped")

// Hub is the central brain of the signaling server.
//
// A single goroutine (Run) owns the relay engine and the client table.
// Registration, inbound events, admin calls and reap ticks are all funneled
// through channels into that goroutine, so no engine state is ever shared.
type Hub struct {
	engine  *relay.Engine
	clients map[string]*Client

	registerCh   chan *Client
	unregisterCh chan *Client
	inbound      chan *Message
	calls        chan func()
	done         chan struct{}

	codec          Codec
	sendBuffer     int
	maxMessageSize int64
	reapInterval   time.Duration
	roomMaxAge     time.Duration
	now            func() time.Time

	log     *slog.Logger
	metrics *metrics.Collector
}

// Option configures a Hub.
type Option func(*Hub)

// WithCodec selects the wire codec for every client.
func WithCodec(c Codec) Option { return func(h *Hub) { h.codec = c } }

// WithLogger sets the hub logger. The engine logs through it too.
func WithLogger(l *slog.Logger) Option { return func(h *Hub) { h.log = l } }

// WithMetrics sets the collector updated by the loop.
func WithMetrics(m *metrics.Collector) Option { return func(h *Hub) { h.metrics = m } }

// WithReaping sets the sweep period and the maximum room age.
// A non-positive interval disables the periodic sweep.
func WithReaping(interval, maxAge time.Duration) Option {
	return func(h *Hub) {
		h.reapInterval = interval
		h.roomMaxAge = maxAge
	}
}

// WithSendBuffer sets the per-client outbound queue length.
func WithSendBuffer(n int) Option { return func(h *Hub) { h.sendBuffer = n } }

// WithMaxMessageSize sets the websocket read limit.
func WithMaxMessageSize(n int64) Option { return func(h *Hub) { h.maxMessageSize = n } }

// WithClock overrides time.Now for the hub and the engine.
func WithClock(now func() time.Time) Option { return func(h *Hub) { h.now = now } }

// NewHub creates a new Hub instance.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:        make(map[string]*Client),
		registerCh:     make(chan *Client),
		unregisterCh:   make(chan *Client),
		inbound:        make(chan *Message),
		calls:          make(chan func()),
		done:           make(chan struct{}),
		codec:          JSONCodec{},
		sendBuffer:     DefaultSendBuffer,
		maxMessageSize: DefaultMaxMessageSize,
		reapInterval:   relay.DefaultReapInterval,
		roomMaxAge:     relay.DefaultRoomMaxAge,
		now:            time.Now,
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = metrics.New(prometheus.NewRegistry())
	}
	h.engine = relay.NewEngine(h, relay.WithClock(h.now), relay.WithLogger(h.log))
	return h
}

// Codec returns the wire codec clients are framed with.
func (h *Hub) Codec() Codec { return h.codec }

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Run starts the hub's main processing loop and blocks until ctx is done.
// This is the single goroutine that safely manages all state (rooms, clients).
func (h *Hub) Run(ctx context.Context) {
	var reap <-chan time.Time
	if h.reapInterval > 0 {
		ticker := time.NewTicker(h.reapInterval)
		defer ticker.Stop()
		reap = ticker.C
	}

	h.log.Info("hub started", "codec", h.codec.Name(), "reap_interval", h.reapInterval, "room_max_age", h.roomMaxAge)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.registerCh:
			h.clients[client.ID] = client
			h.engine.Connect(client.ID)
			h.log.Debug("client registered", "client", client.ID)

		case client := <-h.unregisterCh:
			if _, ok := h.clients[client.ID]; !ok {
				continue
			}
			h.safely("disconnect", func() { h.engine.Disconnect(client.ID) })
			delete(h.clients, client.ID)
			close(client.send)
			h.log.Debug("client unregistered", "client", client.ID)

		case msg := <-h.inbound:
			h.dispatch(msg)

		case fn := <-h.calls:
			h.safely("call", fn)

		case <-reap:
			h.safely("reap", func() { h.reap() })
		}

		h.observe()
	}
}

// Send implements relay.Sender. It only runs on the hub goroutine.
func (h *Hub) Send(to string, ev relay.Outbound) {
	client, ok := h.clients[to]
	if !ok {
		h.metrics.Dropped.Inc()
		return
	}
	h.push(client, FromOutbound(ev))
}

// Rooms returns a snapshot of every open room.
func (h *Hub) Rooms(ctx context.Context) ([]relay.RoomInfo, error) {
	var rooms []relay.RoomInfo
	err := h.call(ctx, func() { rooms = h.engine.Rooms() })
	return rooms, err
}

// Stats returns the live room and connection counts.
func (h *Hub) Stats(ctx context.Context) (relay.Stats, error) {
	var stats relay.Stats
	err := h.call(ctx, func() { stats = h.engine.Stats() })
	return stats, err
}

// CloseRoom force-closes a room; occupants receive room-closed.
func (h *Hub) CloseRoom(ctx context.Context, roomID string) (bool, error) {
	var closed bool
	err := h.call(ctx, func() {
		closed = h.engine.CloseRoom(roomID)
		if closed {
			h.log.Info("room closed by admin", "room", roomID)
		}
	})
	return closed, err
}

// Reap runs one idle sweep immediately and returns the closed room ids.
func (h *Hub) Reap(ctx context.Context) ([]string, error) {
	var reaped []string
	err := h.call(ctx, func() { reaped = h.reap() })
	return reaped, err
}

func (h *Hub) reap() []string {
	reaped := h.engine.Reap(h.now(), h.roomMaxAge)
	if len(reaped) > 0 {
		h.metrics.Reaped.Add(float64(len(reaped)))
		h.log.Info("idle sweep closed rooms", "count", len(reaped))
	}
	return reaped
}

// dispatch routes one inbound event to the engine.
func (h *Hub) dispatch(msg *Message) {
	client := msg.client
	if _, ok := h.clients[client.ID]; !ok {
		// Raced with unregister.
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.metrics.Panics.Inc()
			h.log.Error("event dispatch panicked, event dropped", "client", client.ID, "type", msg.Type, "panic", r)
		}
	}()

	switch msg.Type {
	case relay.EventJoinRoom, relay.EventSignal, relay.EventGameState, relay.EventPlayerInput, relay.EventPing:
		h.metrics.Events.WithLabelValues(msg.Type).Inc()
	default:
		h.log.Debug("unknown message type", "client", client.ID, "type", msg.Type)
		h.metrics.Rejected.WithLabelValues("unknown").Inc()
		return
	}

	var err error
	switch msg.Type {
	case relay.EventJoinRoom:
		err = h.engine.Join(client.ID, msg.RoomID)
	case relay.EventSignal:
		err = h.engine.Signal(client.ID, msg.RoomID, msg.payload())
	case relay.EventGameState:
		err = h.engine.GameState(client.ID, msg.RoomID, msg.payload())
	case relay.EventPlayerInput:
		err = h.engine.PlayerInput(client.ID, msg.RoomID, msg.payload())
	case relay.EventPing:
		h.engine.Heartbeat(client.ID)
	}

	if err != nil {
		h.log.Debug("event rejected", "client", client.ID, "type", msg.Type, "err", err)
		h.metrics.Rejected.WithLabelValues(msg.Type).Inc()
		h.push(client, errorMessage(err.Error()))
	}
}

// push queues msg without blocking the loop. A full queue drops it.
func (h *Hub) push(client *Client, msg *Message) {
	select {
	case client.send <- msg:
	default:
		h.metrics.Dropped.Inc()
		h.log.Warn("send queue full, message dropped", "client", client.ID, "type", msg.Type)
	}
}

func (h *Hub) safely(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.metrics.Panics.Inc()
			h.log.Error("hub operation panicked", "op", op, "panic", r)
		}
	}()
	fn()
}

func (h *Hub) observe() {
	stats := h.engine.Stats()
	h.metrics.Rooms.Set(float64(stats.Rooms))
	h.metrics.Connections.Set(float64(stats.Connections))
}

func (h *Hub) shutdown() {
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
	close(h.done)
	h.log.Info("hub stopped")
}

// register hands c to the loop. It reports false once the hub has stopped.
func (h *Hub) register(c *Client) bool {
	select {
	case h.registerCh <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.unregisterCh <- c:
	case <-h.done:
	}
}

// deliver forwards an inbound event. It reports false once the hub has stopped.
func (h *Hub) deliver(msg *Message) bool {
	select {
	case h.inbound <- msg:
		return true
	case <-h.done:
		return false
	}
}

// call runs fn on the hub goroutine and waits for it to finish.
func (h *Hub) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case h.calls <- wrapped:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}
