package signaling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venudhannoju-glitch/ChitChat/internal/session"
)

type countingMetrics struct {
	nopMetrics
	opened, closed, dropped, limited atomic.Int64
}

func (m *countingMetrics) ConnectionOpened() { m.opened.Add(1) }
func (m *countingMetrics) ConnectionClosed() { m.closed.Add(1) }
func (m *countingMetrics) EventDropped()     { m.dropped.Add(1) }
func (m *countingMetrics) FrameLimited()     { m.limited.Add(1) }

type testServer struct {
	hub    *Hub
	srv    *httptest.Server
	cancel context.CancelFunc
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	hub := NewHub(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		codec, err := CodecByName(r.URL.Query().Get("codec"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, codec)
		if !hub.Attach(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testServer{hub: hub, srv: srv, cancel: cancel}
}

type peer struct {
	t     *testing.T
	conn  *websocket.Conn
	codec Codec
}

func (ts *testServer) dial(t *testing.T, codec Codec) *peer {
	t.Helper()

	before := ts.hub.clientCount()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws?codec=" + codec.Name()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Wait for the hub to seat the connection so later frames are not raced.
	require.Eventually(t, func() bool { return ts.hub.clientCount() > before }, time.Second, 5*time.Millisecond)
	return &peer{t: t, conn: conn, codec: codec}
}

func (p *peer) send(msg Message) {
	p.t.Helper()
	data, err := p.codec.Marshal(&msg)
	require.NoError(p.t, err)
	require.NoError(p.t, p.conn.WriteMessage(p.codec.FrameType(), data))
}

func (p *peer) recv() Message {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	frameType, data, err := p.conn.ReadMessage()
	require.NoError(p.t, err)
	require.Equal(p.t, p.codec.FrameType(), frameType)

	var msg Message
	require.NoError(p.t, p.codec.Unmarshal(data, &msg))
	return msg
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func TestHubPairChatDisconnect(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.dial(t, JSON)
	bob := ts.dial(t, JSON)

	alice.send(Message{Type: TypeCreateRoom})
	created := alice.recv()
	require.Equal(t, TypeRoomCreated, created.Type)
	require.True(t, session.ValidCode(created.Room))

	bob.send(Message{Type: TypeJoinRoom, Room: created.Room})
	assert.Equal(t, Message{Type: TypeRoomJoined, Room: created.Room}, bob.recv())
	assert.Equal(t, Message{Type: TypeUserJoined}, alice.recv())

	alice.send(Message{Type: TypeChatMessage, Room: created.Room, Message: "hello"})
	assert.Equal(t, Message{Type: TypeChatMessage, Message: "hello"}, bob.recv())

	bob.send(Message{Type: TypeTyping})
	assert.Equal(t, Message{Type: TypeTyping}, alice.recv())
	bob.send(Message{Type: TypeStopTyping, Room: created.Room})
	assert.Equal(t, Message{Type: TypeStopTyping}, alice.recv())

	require.NoError(t, bob.conn.Close())
	assert.Equal(t, Message{Type: TypeUserLeft}, alice.recv())
	assert.Equal(t, Message{Type: TypeWaitingForPartner}, alice.recv())

	info, ok := ts.hub.Rooms().Room(created.Room)
	require.True(t, ok)
	assert.Equal(t, session.Waiting, info.Phase)
}

func TestHubJoinErrors(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.dial(t, JSON)

	for _, code := range []string{"12a4", "0999", "123", ""} {
		alice.send(Message{Type: TypeJoinRoom, Room: code})
		assert.Equal(t, Message{Type: TypeError, Error: "Please enter a valid 4-digit code."}, alice.recv(), code)
	}

	alice.send(Message{Type: TypeJoinRoom, Room: "9999"})
	assert.Equal(t, Message{Type: TypeError, Error: "Room does not exist. Create a new one!"}, alice.recv())

	alice.send(Message{Type: TypeCreateRoom})
	created := alice.recv()
	alice.send(Message{Type: TypeJoinRoom, Room: " " + created.Room + " "})
	assert.Equal(t, Message{Type: TypeError, Error: "Room is currently full."}, alice.recv())
}

func TestHubMsgpackClient(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.dial(t, Msgpack)
	bob := ts.dial(t, JSON)

	alice.send(Message{Type: TypeCreateRoom})
	created := alice.recv()
	require.Equal(t, TypeRoomCreated, created.Type)

	bob.send(Message{Type: TypeJoinRoom, Room: created.Room})
	assert.Equal(t, TypeRoomJoined, bob.recv().Type)
	assert.Equal(t, TypeUserJoined, alice.recv().Type)

	bob.send(Message{Type: TypeChatMessage, Message: "binary hello"})
	assert.Equal(t, Message{Type: TypeChatMessage, Message: "binary hello"}, alice.recv())
}

func TestHubRoomExpires(t *testing.T) {
	ts := newTestServer(t, Options{IdleTimeout: 50 * time.Millisecond})
	alice := ts.dial(t, JSON)

	alice.send(Message{Type: TypeCreateRoom})
	created := alice.recv()
	assert.Equal(t, Message{Type: TypeRoomExpired}, alice.recv())

	_, ok := ts.hub.Rooms().Room(created.Room)
	assert.False(t, ok)
}

func TestHubLeaveWithoutCode(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := ts.dial(t, JSON)

	alice.send(Message{Type: TypeCreateRoom})
	alice.recv()
	alice.send(Message{Type: TypeLeaveRoom})

	require.Eventually(t, func() bool {
		return ts.hub.Rooms().Stats().Rooms == 0
	}, time.Second, 5*time.Millisecond)
}

func TestHubRateLimitsFrames(t *testing.T) {
	m := &countingMetrics{}
	ts := newTestServer(t, Options{RateLimit: 0.001, RateBurst: 1, Metrics: m})
	alice := ts.dial(t, JSON)

	alice.send(Message{Type: TypeCreateRoom})
	alice.send(Message{Type: TypeCreateRoom})
	alice.send(Message{Type: TypeCreateRoom})

	assert.Equal(t, TypeRoomCreated, alice.recv().Type)
	require.Eventually(t, func() bool { return m.limited.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, ts.hub.Rooms().Stats().Rooms)
}

func TestHubShutdownClosesClients(t *testing.T) {
	m := &countingMetrics{}
	ts := newTestServer(t, Options{Metrics: m})
	alice := ts.dial(t, JSON)

	alice.send(Message{Type: TypeCreateRoom})
	alice.recv()

	ts.cancel()
	<-ts.hub.Done()

	require.NoError(t, alice.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := alice.conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure), "got %v", err)
	assert.Equal(t, 0, ts.hub.Rooms().Stats().Rooms)
	assert.Equal(t, int64(1), m.opened.Load())
	assert.Equal(t, int64(1), m.closed.Load())
}

func TestNotifyMapsEvents(t *testing.T) {
	h := NewHub(Options{SendBuffer: 4})
	c := &Client{ID: "a", Send: make(chan *Message, 4)}
	h.clients[c.ID] = c

	h.Notify("a", session.Event{Type: session.EventRoomCreated, Code: "4821"})
	h.Notify("a", session.Event{Type: session.EventChatMessage, Code: "4821", Text: "hi"})
	h.Notify("a", session.Event{Type: session.EventUserLeft, Code: "4821"})
	h.Notify("nobody", session.Event{Type: session.EventTyping})

	assert.Equal(t, &Message{Type: TypeRoomCreated, Room: "4821"}, <-c.Send)
	assert.Equal(t, &Message{Type: TypeChatMessage, Message: "hi"}, <-c.Send)
	assert.Equal(t, &Message{Type: TypeUserLeft}, <-c.Send)
	assert.Empty(t, c.Send)
}

func TestNotifyDropsWhenBufferFull(t *testing.T) {
	m := &countingMetrics{}
	h := NewHub(Options{Metrics: m})
	c := &Client{ID: "a", Send: make(chan *Message, 1)}
	h.clients[c.ID] = c

	h.Notify("a", session.Event{Type: session.EventTyping})
	h.Notify("a", session.Event{Type: session.EventStopTyping})

	assert.Len(t, c.Send, 1)
	assert.Equal(t, int64(1), m.dropped.Load())
}
