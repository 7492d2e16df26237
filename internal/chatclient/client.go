package chatclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/venudhannoju-glitch/ChitChat/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// ErrClosed is returned when sending on a closed client.
var ErrClosed = errors.New("chat client closed")

// Options configures Dial.
type Options struct {
	// Codec defaults to signaling.JSON.
	Codec signaling.Codec

	// Resolver, when set, resolves the server host before dialing.
	Resolver *Resolver
}

// Client manages the WebSocket connection to the chat server.
type Client struct {
	conn     *websocket.Conn
	codec    signaling.Codec
	incoming chan *signaling.Message
	outgoing chan *signaling.Message
	done     chan struct{}

	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// Dial connects to the chat server at serverURL and starts the pumps.
func Dial(ctx context.Context, serverURL string, opts Options) (*Client, error) {
	if opts.Codec == nil {
		opts.Codec = signaling.JSON
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	q := u.Query()
	q.Set("codec", opts.Codec.Name())
	u.RawQuery = q.Encode()

	dialer := *websocket.DefaultDialer
	if opts.Resolver != nil {
		resolver := opts.Resolver
		dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}

			ip, err := resolver.Lookup(ctx, host)
			if err != nil {
				return nil, fmt.Errorf("dns lookup failed: %w", err)
			}

			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
		}
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Client{
		conn:     conn,
		codec:    opts.Codec,
		incoming: make(chan *signaling.Message, 16),
		outgoing: make(chan *signaling.Message, 16),
		done:     make(chan struct{}),
	}

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return c, nil
}

// readPump reads messages from the WebSocket connection. Incoming is closed
// when the connection ends.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		frameType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.setErr(err)
			}
			return
		}

		codec := signaling.JSON
		if frameType == websocket.BinaryMessage {
			codec = signaling.Msgpack
		}

		var msg signaling.Message
		if err := codec.Unmarshal(data, &msg); err != nil {
			continue
		}

		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the WebSocket connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			data, err := c.codec.Marshal(msg)
			if err != nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				c.setErr(err)
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

func (c *Client) CreateRoom() error {
	return c.Send(&signaling.Message{Type: signaling.TypeCreateRoom})
}

func (c *Client) JoinRoom(code string) error {
	return c.Send(&signaling.Message{Type: signaling.TypeJoinRoom, Room: code})
}

func (c *Client) SendChat(code, text string) error {
	return c.Send(&signaling.Message{Type: signaling.TypeChatMessage, Room: code, Message: text})
}

// SetTyping announces that the user started or stopped typing.
func (c *Client) SetTyping(code string, typing bool) error {
	t := signaling.TypeStopTyping
	if typing {
		t = signaling.TypeTyping
	}
	return c.Send(&signaling.Message{Type: t, Room: code})
}

func (c *Client) LeaveRoom(code string) error {
	return c.Send(&signaling.Message{Type: signaling.TypeLeaveRoom, Room: code})
}

// Incoming returns the channel for receiving messages.
func (c *Client) Incoming() <-chan *signaling.Message {
	return c.incoming
}

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// Close sends a close frame and shuts the connection down. It is safe to call
// more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
