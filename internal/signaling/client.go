package signaling

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/venudhannoju-glitch/ChitChat/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16 * 1024
)

// Client is a wrapper for a single websocket connection (a participant).
type Client struct {
	// ID identifies the connection to the room manager.
	ID session.ConnID

	// Hub is the hub that manages this client.
	Hub *Hub

	// Conn is the websocket connection.
	Conn *websocket.Conn

	// Send is a buffered channel of outbound messages. The hub writes to it
	// without blocking; WritePump drains it to the websocket.
	Send chan *Message

	// codec encodes outbound frames.
	codec Codec

	// limiter throttles inbound frames.
	limiter *rate.Limiter
}

// NewClient wraps conn for hub, encoding outbound frames with codec.
func NewClient(hub *Hub, conn *websocket.Conn, codec Codec) *Client {
	return &Client{
		ID:      session.ConnID(uuid.NewString()),
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan *Message, hub.opts.SendBuffer),
		codec:   codec,
		limiter: rate.NewLimiter(rate.Limit(hub.opts.RateLimit), hub.opts.RateBurst),
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	log := c.Hub.log.With("conn", c.ID)

	// When this function exits (e.g., connection closes), unregister the client
	defer func() {
		c.Hub.unregisterClient(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		frameType, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("websocket read failed", "err", err)
			}
			return
		}

		if !c.limiter.Allow() {
			c.Hub.metrics.FrameLimited()
			log.Debug("inbound frame rate limited")
			continue
		}

		codec, ok := codecForFrame(frameType)
		if !ok {
			continue
		}
		var msg Message
		if err := codec.Unmarshal(data, &msg); err != nil {
			log.Debug("undecodable frame dropped", "codec", codec.Name(), "err", err)
			continue
		}

		msg.client = c
		if !c.Hub.submit(&msg) {
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := c.codec.Marshal(message)
			if err != nil {
				c.Hub.log.Error("encode outbound message", "conn", c.ID, "type", message.Type, "err", err)
				continue
			}
			if err := c.Conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				c.Hub.log.Debug("websocket write failed", "conn", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
