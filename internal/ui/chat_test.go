package ui

import (
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venudhannoju-glitch/ChitChat/internal/session"
	"github.com/venudhannoju-glitch/ChitChat/internal/signaling"
)

type call struct {
	op, code, text string
}

type fakeConn struct {
	mu       sync.Mutex
	calls    []call
	incoming chan *signaling.Message
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan *signaling.Message, 8)}
}

func (f *fakeConn) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return nil
}

func (f *fakeConn) SendChat(code, text string) error {
	return f.record(call{op: "chat", code: code, text: text})
}

func (f *fakeConn) CreateRoom() error                   { return f.record(call{op: "create"}) }
func (f *fakeConn) JoinRoom(code string) error          { return f.record(call{op: "join", code: code}) }
func (f *fakeConn) LeaveRoom(code string) error         { return f.record(call{op: "leave", code: code}) }
func (f *fakeConn) Incoming() <-chan *signaling.Message { return f.incoming }

func (f *fakeConn) SetTyping(code string, typing bool) error {
	op := "stopTyping"
	if typing {
		op = "typing"
	}
	return f.record(call{op: op, code: code})
}

func (f *fakeConn) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// frozenClock never fires timers.
type frozenClock struct{}

type frozenTimer struct{}

func (frozenClock) Now() time.Time                                { return time.Unix(0, 0) }
func (frozenClock) AfterFunc(time.Duration, func()) session.Timer { return frozenTimer{} }
func (frozenTimer) Stop() bool                                    { return true }

func newChat(opts ChatOptions) (*ChatModel, *fakeConn) {
	conn := newFakeConn()
	opts.Clock = frozenClock{}
	return NewChatModel(conn, opts), conn
}

func deliver(m *ChatModel, msg signaling.Message) {
	m.Update(incomingMsg{&msg})
}

func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

func typeText(m *ChatModel, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestChatCreateAndPair(t *testing.T) {
	m, conn := newChat(ChatOptions{Create: true})

	deliver(m, signaling.Message{Type: signaling.TypeRoomCreated, Room: "4821"})
	assert.Equal(t, stateWaiting, m.state)
	assert.Contains(t, m.View(), "4821")
	assert.Contains(t, m.View(), "waiting for partner")

	deliver(m, signaling.Message{Type: signaling.TypeUserJoined})
	assert.Equal(t, statePaired, m.state)
	assert.Contains(t, m.View(), "connected")

	typeText(m, "hi there")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(cmd)

	assert.Equal(t, []call{
		{op: "typing"},
		{op: "stopTyping"},
		{op: "chat", code: "4821", text: "hi there"},
	}, conn.Calls())
	assert.Contains(t, m.View(), "hi there")
	assert.Empty(t, m.input.Value())
}

func TestChatPartnerTypingIndicator(t *testing.T) {
	m, _ := newChat(ChatOptions{})
	deliver(m, signaling.Message{Type: signaling.TypeRoomJoined, Room: "1234"})

	deliver(m, signaling.Message{Type: signaling.TypeTyping})
	assert.Contains(t, m.View(), "Partner is typing...")

	deliver(m, signaling.Message{Type: signaling.TypeChatMessage, Message: "yo"})
	assert.NotContains(t, m.View(), "Partner is typing...")
	assert.Contains(t, m.View(), "yo")

	deliver(m, signaling.Message{Type: signaling.TypeTyping})
	deliver(m, signaling.Message{Type: signaling.TypeStopTyping})
	assert.NotContains(t, m.View(), "Partner is typing...")
}

func TestChatPartnerLeavesAndRoomExpires(t *testing.T) {
	m, _ := newChat(ChatOptions{})
	deliver(m, signaling.Message{Type: signaling.TypeRoomJoined, Room: "1234"})

	deliver(m, signaling.Message{Type: signaling.TypeUserLeft})
	deliver(m, signaling.Message{Type: signaling.TypeWaitingForPartner})
	assert.Equal(t, stateWaiting, m.state)
	assert.Equal(t, "1234", m.room)
	assert.Contains(t, m.View(), "Your partner left.")

	deliver(m, signaling.Message{Type: signaling.TypeRoomExpired})
	assert.Equal(t, stateLobby, m.state)
	assert.Empty(t, m.room)
	assert.Contains(t, m.View(), "The room expired.")
}

func TestChatCommands(t *testing.T) {
	m, conn := newChat(ChatOptions{})

	typeText(m, "/join")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Usage: /join CODE")

	typeText(m, "/join 4821")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(cmd)

	typeText(m, "/leave")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "You are not in a room.")

	deliver(m, signaling.Message{Type: signaling.TypeRoomJoined, Room: "4821"})
	typeText(m, "/leave")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(cmd)
	assert.Equal(t, stateLobby, m.state)

	typeText(m, "/create")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(cmd)

	assert.Equal(t, []call{
		{op: "join", code: "4821"},
		{op: "leave", code: "4821"},
		{op: "create"},
	}, conn.Calls())
}

func TestChatRejectsMessageWithoutPartner(t *testing.T) {
	m, conn := newChat(ChatOptions{})
	deliver(m, signaling.Message{Type: signaling.TypeRoomCreated, Room: "4821"})

	typeText(m, "anyone?")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, conn.Calls())
	assert.Contains(t, m.View(), "Nobody is here to read that yet.")
}

func TestChatShowsServerErrors(t *testing.T) {
	m, _ := newChat(ChatOptions{})
	deliver(m, signaling.Message{Type: signaling.TypeError, Error: "Room is currently full."})
	assert.Contains(t, m.View(), "Room is currently full.")
}

func TestChatQuitsOnDisconnect(t *testing.T) {
	m, conn := newChat(ChatOptions{})

	cmd := m.listen()
	close(conn.incoming)
	msg := cmd()
	require.IsType(t, disconnectedMsg{}, msg)

	_, cmd = m.Update(msg)
	assert.Equal(t, tea.Quit(), run(cmd))
	assert.Contains(t, m.View(), "Disconnected from server.")
}

func TestChatEscLeavesRoom(t *testing.T) {
	m, conn := newChat(ChatOptions{})
	deliver(m, signaling.Message{Type: signaling.TypeRoomJoined, Room: "1234"})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, tea.Quit(), run(cmd))
	assert.True(t, m.quitting)
	assert.Equal(t, []call{{op: "leave", code: "1234"}}, conn.Calls())
}
