package signaling

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/venudhannoju-glitch/ChitChat/internal/session"
)

// Metrics is the instrumentation the hub reports to.
type Metrics interface {
	session.Observer
	ConnectionOpened()
	ConnectionClosed()
	EventDropped()
	FrameLimited()
}

type nopMetrics struct{}

func (nopMetrics) RoomCreated()                        {}
func (nopMetrics) RoomPaired()                         {}
func (nopMetrics) RoomDestroyed(session.DestroyReason) {}
func (nopMetrics) JoinRejected(error)                  {}
func (nopMetrics) EventRelayed(session.EventType)      {}
func (nopMetrics) ConnectionOpened()                   {}
func (nopMetrics) ConnectionClosed()                   {}
func (nopMetrics) EventDropped()                       {}
func (nopMetrics) FrameLimited()                       {}

// Options configures a Hub.
type Options struct {
	IdleTimeout time.Duration
	RateLimit   float64
	RateBurst   int
	SendBuffer  int

	Logger  *slog.Logger
	Metrics Metrics

	// Clock drives room expiry. Defaults to the system clock.
	Clock session.Clock
}

// Hub is the central brain of the chat server. It owns the room manager and
// every connected client, and serializes client traffic through one loop.
type Hub struct {
	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients.
	Unregister chan *Client

	// Inbound carries decoded messages from the read pumps.
	Inbound chan *Message

	rooms   *session.Manager
	opts    Options
	log     *slog.Logger
	metrics Metrics

	// mu guards clients. Notify reads it from timer goroutines.
	mu      sync.RWMutex
	clients map[session.ConnID]*Client

	// done is closed when Run returns.
	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a Hub and the room manager it drives.
func NewHub(opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 40
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}

	h := &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *Message),
		opts:       opts,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		clients:    make(map[session.ConnID]*Client),
		done:       make(chan struct{}),
	}

	h.rooms = session.NewManager(h, session.Options{
		IdleTimeout: opts.IdleTimeout,
		Clock:       opts.Clock,
		Logger:      opts.Logger,
		Observer:    opts.Metrics,
	})
	return h
}

// Rooms returns the room manager driven by the hub.
func (h *Hub) Rooms() *session.Manager { return h.rooms }

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Run starts the hub's main processing loop and blocks until ctx is
// cancelled. On return every client has been closed and the room registry
// torn down.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case client := <-h.Register:
			h.register(client)

		case client := <-h.Unregister:
			h.unregister(client)

		case message := <-h.Inbound:
			h.handle(message)

		case <-ctx.Done():
			return
		}
	}
}

// Attach registers client with the running hub. It returns false if the hub
// has stopped.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) submit(message *Message) bool {
	select {
	case h.Inbound <- message:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	h.log.Info("client connected", "conn", client.ID, "addr", client.Conn.RemoteAddr().String(), "codec", client.codec.Name())
}

// unregister tears a client down. Repeated calls for the same client are
// no-ops.
func (h *Hub) unregister(client *Client) {
	h.mu.RLock()
	_, ok := h.clients[client.ID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	h.rooms.Disconnect(client.ID)

	h.mu.Lock()
	delete(h.clients, client.ID)
	close(client.Send)
	h.mu.Unlock()

	h.metrics.ConnectionClosed()
	h.log.Info("client disconnected", "conn", client.ID)
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		for id, client := range h.clients {
			delete(h.clients, id)
			close(client.Send)
			h.metrics.ConnectionClosed()
		}
		h.mu.Unlock()

		h.rooms.Close()
		h.log.Info("hub stopped")
	})
}

// handle applies one inbound message to the room manager.
func (h *Hub) handle(message *Message) {
	client := message.client

	h.mu.RLock()
	_, live := h.clients[client.ID]
	h.mu.RUnlock()
	if !live {
		return
	}

	switch message.Type {
	case TypeCreateRoom:
		if _, err := h.rooms.Create(client.ID); err != nil {
			h.sendError(client, err)
		}

	case TypeJoinRoom:
		code := strings.TrimSpace(message.Room)
		if !session.ValidCode(code) {
			h.sendError(client, ErrInvalidCode)
			return
		}
		if err := h.rooms.Join(client.ID, code); err != nil {
			h.sendError(client, err)
		}

	case TypeChatMessage:
		if code, ok := h.roomFor(client, message.Room); ok {
			h.rooms.RelayMessage(client.ID, code, message.Message)
		}

	case TypeTyping, TypeStopTyping:
		if code, ok := h.roomFor(client, message.Room); ok {
			h.rooms.RelayTyping(client.ID, code, message.Type == TypeTyping)
		}

	case TypeLeaveRoom:
		if code, ok := h.roomFor(client, message.Room); ok {
			h.rooms.Leave(client.ID, code)
		}

	default:
		h.log.Debug("unknown message type", "conn", client.ID, "type", message.Type)
	}
}

// roomFor resolves the room a relay or leave refers to. A missing code means
// the sender's current room.
func (h *Hub) roomFor(client *Client, code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return h.rooms.RoomOf(client.ID)
	}
	if !session.ValidCode(code) {
		h.log.Debug("malformed room code dropped", "conn", client.ID, "code", code)
		return "", false
	}
	return code, true
}

func (h *Hub) sendError(client *Client, err error) {
	h.deliver(client.ID, &Message{Type: TypeError, Error: errorText(err)})
}

// Notify implements session.Notifier by queueing a frame for the connection.
func (h *Hub) Notify(conn session.ConnID, ev session.Event) {
	message := &Message{Type: string(ev.Type)}
	switch ev.Type {
	case session.EventRoomCreated, session.EventRoomJoined:
		message.Room = ev.Code
	case session.EventChatMessage:
		message.Message = ev.Text
	case session.EventError:
		message.Error = ev.Text
	}
	h.deliver(conn, message)
}

// deliver enqueues without blocking; a full buffer drops the message.
func (h *Hub) deliver(conn session.ConnID, message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[conn]
	if !ok {
		return
	}
	select {
	case client.Send <- message:
	default:
		h.metrics.EventDropped()
		h.log.Warn("send buffer full, message dropped", "conn", conn, "type", message.Type)
	}
}
