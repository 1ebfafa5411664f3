package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JaykaiDos/signaling-server/internal/relay"
	"github.com/JaykaiDos/signaling-server/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var (
	ErrClosed    = errors.New("connection closed")
	ErrNoPayload = errors.New("event carries no payload")
)

// Client manages the WebSocket connection to the relay.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	codec     signaling.Codec
	log       *slog.Logger

	incoming chan *signaling.Message
	outgoing chan *signaling.Message
	done     chan struct{}
	once     sync.Once
}

// New creates a new relay client. The codec must match the server's.
func New(serverURL string, codec signaling.Codec, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		serverURL: serverURL,
		codec:     codec,
		log:       log,
		incoming:  make(chan *signaling.Message, 16),
		outgoing:  make(chan *signaling.Message, 16),
		done:      make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the pumps.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// resolveHost falls back to public DNS when the system lookup fails.
	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = dialContext

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()
	return nil
}

// readPump reads frames from the connection and decodes them.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		// Any traffic proves the server is alive.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := c.codec.Decode(data)
		if err != nil {
			c.log.Debug("undecodable frame from server", "err", err)
			continue
		}

		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			data, err := c.codec.Encode(msg)
			if err != nil {
				c.log.Error("encode failed", "type", msg.Type, "err", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues msg for the server.
func (c *Client) Send(msg *signaling.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Join asks the relay to put this connection into roomID.
func (c *Client) Join(roomID string) error {
	return c.Send(&signaling.Message{Type: relay.EventJoinRoom, RoomID: roomID})
}

// Ping sends a heartbeat; the answer arrives as a pong event.
func (c *Client) Ping() error {
	return c.Send(&signaling.Message{Type: relay.EventPing})
}

// Emit encodes v with the connection codec and sends it as the payload of a
// signal, game-state or player-input event.
func (c *Client) Emit(typ, roomID string, v any) error {
	data, err := c.codec.MarshalPayload(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", typ, err)
	}

	msg := &signaling.Message{Type: typ, RoomID: roomID}
	switch typ {
	case relay.EventSignal:
		msg.SignalData = data
	case relay.EventGameState:
		msg.State = data
	case relay.EventPlayerInput:
		msg.Input = data
	default:
		return fmt.Errorf("%w: %s", ErrNoPayload, typ)
	}
	return c.Send(msg)
}

// Incoming returns the channel of decoded server events. It is closed when
// the connection drops.
func (c *Client) Incoming() <-chan *signaling.Message {
	return c.incoming
}

// Codec returns the wire codec in use.
func (c *Client) Codec() signaling.Codec {
	return c.codec
}

// Close closes the WebSocket connection and cleans up resources.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}
