package signaling

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// DefaultMaxMessageSize is enough for SDP offers with a full ICE set.
	DefaultMaxMessageSize = 64 * 1024

	// DefaultSendBuffer is the outbound queue length per client.
	DefaultSendBuffer = 256
)

// Client is a wrapper for a single websocket connection (a peer).
type Client struct {
	// ID is the opaque identity assigned on connect.
	ID string

	hub   *Hub
	conn  *websocket.Conn
	codec Codec

	// send is a buffered channel for all outbound messages. Only the hub
	// writes to it and only the hub closes it.
	send chan *Message
}

// NewClient wraps an upgraded connection and assigns it a fresh identity.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:    uuid.NewString(),
		hub:   hub,
		conn:  conn,
		codec: hub.codec,
		send:  make(chan *Message, hub.sendBuffer),
	}
}

// Start registers the client with the hub and starts both pumps.
func (c *Client) Start() {
	if !c.hub.register(c) {
		c.conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump pumps messages from the websocket connection to the hub.
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("read failed", "client", c.ID, "err", err)
			}
			return
		}

		msg, err := c.codec.Decode(data)
		if err != nil {
			c.hub.log.Debug("undecodable frame skipped", "client", c.ID, "err", err)
			c.hub.metrics.Rejected.WithLabelValues("undecodable").Inc()
			continue
		}
		msg.client = c

		if !c.hub.deliver(msg) {
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := c.codec.Encode(msg)
			if err != nil {
				c.hub.log.Error("encode failed", "client", c.ID, "type", msg.Type, "err", err)
				continue
			}
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				c.hub.log.Debug("write failed", "client", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
