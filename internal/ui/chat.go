package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/venudhannoju-glitch/ChitChat/internal/chatclient"
	"github.com/venudhannoju-glitch/ChitChat/internal/session"
	"github.com/venudhannoju-glitch/ChitChat/internal/signaling"
)

// maxLines bounds the chat history kept on screen.
const maxLines = 200

// Conn is the server connection the chat screen drives.
type Conn interface {
	CreateRoom() error
	JoinRoom(code string) error
	SendChat(code, text string) error
	SetTyping(code string, typing bool) error
	LeaveRoom(code string) error
	Incoming() <-chan *signaling.Message
}

type chatState int

const (
	stateLobby chatState = iota
	stateWaiting
	statePaired
)

type lineKind int

const (
	lineSelf lineKind = iota
	linePartner
	lineSystem
	lineError
)

type chatLine struct {
	kind lineKind
	text string
}

type (
	incomingMsg     struct{ msg *signaling.Message }
	disconnectedMsg struct{}
	sendErrMsg      struct{ err error }
)

// ChatOptions selects what the chat screen does on start.
type ChatOptions struct {
	Create bool
	Join   string

	// Clock drives the typing indicator. Nil uses the system clock.
	Clock session.Clock
}

// ChatModel is the bubbletea model for an interactive chat session.
type ChatModel struct {
	conn   Conn
	opts   ChatOptions
	typist *chatclient.Typist

	state         chatState
	room          string
	partnerTyping bool
	lines         []chatLine

	input   textinput.Model
	spinner spinner.Model
	width   int

	quitting bool
}

// NewChatModel builds the chat screen on top of conn.
func NewChatModel(conn Conn, opts ChatOptions) *ChatModel {
	ti := textinput.New()
	ti.Placeholder = "Type a message, /create, /join CODE, /leave or /quit"
	ti.Prompt = "› "
	ti.CharLimit = 4000
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = SpinnerStyle

	m := &ChatModel{
		conn:    conn,
		opts:    opts,
		input:   ti,
		spinner: s,
	}
	// An empty room code means the sender's current room.
	m.typist = chatclient.NewTypist(opts.Clock, func(typing bool) {
		conn.SetTyping("", typing)
	})
	return m
}

func (m *ChatModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, m.listen()}
	switch {
	case m.opts.Join != "":
		cmds = append(cmds, m.call(func() error { return m.conn.JoinRoom(m.opts.Join) }))
	case m.opts.Create:
		cmds = append(cmds, m.call(m.conn.CreateRoom))
	}
	return tea.Batch(cmds...)
}

// listen waits for the next server message.
func (m *ChatModel) listen() tea.Cmd {
	incoming := m.conn.Incoming()
	return func() tea.Msg {
		msg, ok := <-incoming
		if !ok {
			return disconnectedMsg{}
		}
		return incomingMsg{msg}
	}
}

func (m *ChatModel) call(f func() error) tea.Cmd {
	return func() tea.Msg {
		if err := f(); err != nil {
			return sendErrMsg{err}
		}
		return nil
	}
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, m.quit()
		case tea.KeyEnter:
			return m, m.submit()
		}

		var cmd tea.Cmd
		before := m.input.Value()
		m.input, cmd = m.input.Update(msg)
		if m.state == statePaired && m.input.Value() != before && !strings.HasPrefix(m.input.Value(), "/") {
			m.typist.Keystroke()
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(10, msg.Width-4)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case incomingMsg:
		m.apply(msg.msg)
		return m, m.listen()

	case disconnectedMsg:
		m.typist.Reset()
		m.addLine(lineError, "Disconnected from server.")
		m.quitting = true
		return m, tea.Quit

	case sendErrMsg:
		m.addLine(lineError, msg.err.Error())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// apply folds one server message into the screen state.
func (m *ChatModel) apply(msg *signaling.Message) {
	switch msg.Type {
	case signaling.TypeRoomCreated:
		m.state, m.room = stateWaiting, msg.Room
		m.addLine(lineSystem, RoomInfo{Code: msg.Room, Created: true}.View())
	case signaling.TypeRoomJoined:
		m.state, m.room = statePaired, msg.Room
		m.addLine(lineSystem, fmt.Sprintf("Joined room %s. Say hi!", msg.Room))
	case signaling.TypeUserJoined:
		m.state = statePaired
		m.addLine(lineSystem, "Your partner joined.")
	case signaling.TypeChatMessage:
		m.partnerTyping = false
		m.addLine(linePartner, msg.Message)
	case signaling.TypeTyping:
		m.partnerTyping = true
	case signaling.TypeStopTyping:
		m.partnerTyping = false
	case signaling.TypeUserLeft:
		m.partnerTyping = false
		m.typist.Reset()
		m.addLine(lineSystem, "Your partner left.")
	case signaling.TypeWaitingForPartner:
		m.state = stateWaiting
		m.addLine(lineSystem, fmt.Sprintf("Waiting for someone to join %s...", m.room))
	case signaling.TypeRoomExpired:
		m.reset()
		m.addLine(lineSystem, "The room expired. /create to open a new one.")
	case signaling.TypeError:
		m.addLine(lineError, msg.Error)
	}
}

// submit handles the enter key: a slash command or a chat message.
func (m *ChatModel) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		fields := strings.Fields(text)
		switch fields[0] {
		case "/quit":
			return m.quit()
		case "/create":
			return m.call(m.conn.CreateRoom)
		case "/join":
			if len(fields) != 2 {
				m.addLine(lineError, "Usage: /join CODE")
				return nil
			}
			code := fields[1]
			return m.call(func() error { return m.conn.JoinRoom(code) })
		case "/leave":
			if m.room == "" {
				m.addLine(lineError, "You are not in a room.")
				return nil
			}
			code := m.room
			m.typist.Submitted()
			m.reset()
			m.addLine(lineSystem, fmt.Sprintf("Left room %s.", code))
			return m.call(func() error { return m.conn.LeaveRoom(code) })
		default:
			m.addLine(lineError, fmt.Sprintf("Unknown command %s", fields[0]))
			return nil
		}
	}

	if m.state != statePaired {
		m.addLine(lineError, "Nobody is here to read that yet.")
		return nil
	}

	m.typist.Submitted()
	m.addLine(lineSelf, text)
	code := m.room
	return m.call(func() error { return m.conn.SendChat(code, text) })
}

func (m *ChatModel) quit() tea.Cmd {
	m.quitting = true
	if m.room == "" {
		return tea.Quit
	}
	m.typist.Reset()
	m.conn.LeaveRoom(m.room)
	return tea.Quit
}

func (m *ChatModel) reset() {
	m.typist.Reset()
	m.state, m.room, m.partnerTyping = stateLobby, "", false
}

func (m *ChatModel) addLine(kind lineKind, text string) {
	m.lines = append(m.lines, chatLine{kind: kind, text: text})
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
}

func (m *ChatModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(IconChat+" ChitChat") + "  " + m.status() + "\n\n")

	for _, l := range m.lines {
		switch l.kind {
		case lineSelf:
			b.WriteString(SelfStyle.Render("You") + ": " + l.text)
		case linePartner:
			b.WriteString(PartnerStyle.Render("Partner") + ": " + l.text)
		case lineError:
			b.WriteString(ErrorStyle.Render(IconError + " " + l.text))
		default:
			b.WriteString(SystemStyle.Render(l.text))
		}
		b.WriteString("\n")
	}

	if m.partnerTyping {
		b.WriteString(MutedStyle.Render("Partner is typing...") + "\n")
	} else {
		b.WriteString("\n")
	}

	if m.quitting {
		return b.String()
	}

	b.WriteString(m.input.View())
	b.WriteString("\n" + FooterStyle.Render("enter send • /create • /join CODE • /leave • esc quit"))
	return b.String()
}

func (m *ChatModel) status() string {
	switch m.state {
	case stateWaiting:
		return fmt.Sprintf("%s %s %s", StatusStyle.Render("Room "+m.room), m.spinner.View(), MutedStyle.Render("waiting for partner"))
	case statePaired:
		return StatusStyle.Render("Room "+m.room) + " " + SuccessStyle.Render("connected")
	default:
		return MutedStyle.Render("not in a room")
	}
}
