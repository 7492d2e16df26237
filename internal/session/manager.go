package session

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a waiting room survives without a partner.
const DefaultIdleTimeout = 60 * time.Second

// DestroyReason records why a room left the registry.
type DestroyReason string

const (
	ReasonEmptied DestroyReason = "emptied"
	ReasonExpired DestroyReason = "expired"
	ReasonClosed  DestroyReason = "closed"
)

// Observer receives lifecycle callbacks for instrumentation. Calls are made
// with the Manager's lock held.
type Observer interface {
	RoomCreated()
	RoomPaired()
	RoomDestroyed(reason DestroyReason)
	JoinRejected(err error)
	EventRelayed(t EventType)
}

type nopObserver struct{}

func (nopObserver) RoomCreated()                {}
func (nopObserver) RoomPaired()                 {}
func (nopObserver) RoomDestroyed(DestroyReason) {}
func (nopObserver) JoinRejected(error)          {}
func (nopObserver) EventRelayed(EventType)      {}

// Options configures a Manager. The zero value is usable.
type Options struct {
	// IdleTimeout defaults to DefaultIdleTimeout.
	IdleTimeout time.Duration

	// Clock defaults to SystemClock.
	Clock Clock

	Logger   *slog.Logger
	Observer Observer

	// RandIndex returns a uniform index in [0, n). Defaults to crypto/rand.
	RandIndex func(n int) int
}

// Manager is the registry of live rooms.
//
// Every operation, including timer callbacks, runs under a single mutex, so no
// operation observes a partially updated room. Events are handed to the
// Notifier while the lock is held, which keeps each connection's event stream
// in operation order.
type Manager struct {
	mu sync.Mutex

	// rooms maps room codes to live rooms.
	rooms map[string]*Room

	// conns maps each seated connection to the code of its room.
	conns map[ConnID]string

	notifier  Notifier
	clock     Clock
	idle      time.Duration
	log       *slog.Logger
	obs       Observer
	randIndex func(int) int

	// nextToken numbers armed timers.
	nextToken uint64
}

// NewManager creates an empty registry that reports events to notifier.
func NewManager(notifier Notifier, opts Options) *Manager {
	m := &Manager{
		rooms:     make(map[string]*Room),
		conns:     make(map[ConnID]string),
		notifier:  notifier,
		clock:     opts.Clock,
		idle:      opts.IdleTimeout,
		log:       opts.Logger,
		obs:       opts.Observer,
		randIndex: opts.RandIndex,
	}
	if m.notifier == nil {
		m.notifier = NotifierFunc(func(ConnID, Event) {})
	}
	if m.clock == nil {
		m.clock = SystemClock()
	}
	if m.idle <= 0 {
		m.idle = DefaultIdleTimeout
	}
	if m.log == nil {
		m.log = slog.New(slog.DiscardHandler)
	}
	if m.obs == nil {
		m.obs = nopObserver{}
	}
	if m.randIndex == nil {
		m.randIndex = randomIndex
	}
	return m
}

// Create opens a new waiting room with conn as its only member and returns
// its code. A connection already seated elsewhere leaves that room first.
func (m *Manager) Create(conn ConnID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, err := m.generateCode()
	if err != nil {
		m.log.Warn("room create failed", "conn", conn, "err", err)
		return "", newRoomError("create", "", err)
	}

	if prev, ok := m.conns[conn]; ok {
		m.depart(conn, prev)
	}

	r := newRoom(code, conn)
	m.rooms[code] = r
	m.conns[conn] = code
	m.arm(r)
	m.obs.RoomCreated()

	m.log.Info("room created", "code", code, "conn", conn)
	m.notifier.Notify(conn, Event{Type: EventRoomCreated, Code: code})
	return code, nil
}

// Join seats conn as the second member of the room with the given code.
//
// It fails with ErrRoomNotFound when no live room has the code, and with
// ErrRoomFull when the room is paired or conn is already its member. A failed
// join changes nothing.
func (m *Manager) Join(conn ConnID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[code]
	if !ok {
		return m.rejectJoin(conn, code, ErrRoomNotFound)
	}
	if r.Phase() != Waiting || r.has(conn) {
		return m.rejectJoin(conn, code, ErrRoomFull)
	}

	if prev, ok := m.conns[conn]; ok {
		m.depart(conn, prev)
	}

	r.add(conn)
	m.conns[conn] = code
	m.disarm(r)
	m.obs.RoomPaired()

	m.log.Info("room paired", "code", code, "conn", conn)
	m.notifier.Notify(conn, Event{Type: EventRoomJoined, Code: code})
	for _, other := range r.others(conn) {
		m.notifier.Notify(other, Event{Type: EventUserJoined})
	}
	return nil
}

func (m *Manager) rejectJoin(conn ConnID, code string, err error) error {
	m.obs.JoinRejected(err)
	m.log.Info("room join rejected", "code", code, "conn", conn, "err", err)
	return newRoomError("join", code, err)
}

// RelayMessage forwards text unmodified to the other member of the room.
// Messages from non-members, or to a room with nobody else in it, are dropped.
func (m *Manager) RelayMessage(conn ConnID, code, text string) {
	m.relay(conn, code, Event{Type: EventChatMessage, Text: text})
}

// RelayTyping forwards a typing or stopTyping signal to the other member.
func (m *Manager) RelayTyping(conn ConnID, code string, typing bool) {
	t := EventStopTyping
	if typing {
		t = EventTyping
	}
	m.relay(conn, code, Event{Type: t})
}

func (m *Manager) relay(conn ConnID, code string, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[code]
	if !ok || !r.has(conn) {
		m.log.Debug("relay from non-member dropped", "code", code, "conn", conn, "type", ev.Type)
		return
	}
	for _, other := range r.others(conn) {
		m.notifier.Notify(other, ev)
		m.obs.EventRelayed(ev.Type)
	}
}

// Leave removes conn from the room with the given code. An emptied room is
// destroyed at once; a remaining partner is told and the room starts waiting
// again. Leaving a room conn is not in does nothing.
func (m *Manager) Leave(conn ConnID, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[code]
	if !ok || !r.has(conn) {
		m.log.Debug("leave from non-member ignored", "code", code, "conn", conn)
		return
	}
	m.depart(conn, code)
}

// Disconnect applies Leave to every room conn belongs to. Calling it again for
// the same connection is a no-op.
func (m *Manager) Disconnect(conn ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, ok := m.conns[conn]
	if !ok {
		return
	}
	m.depart(conn, code)
}

// Expire destroys the room if it has at most one member, telling that member
// first. Paired and unknown rooms are left alone.
func (m *Manager) Expire(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.rooms[code]; ok {
		m.expireRoom(r)
	}
}

// expire is the timer callback. A token that no longer matches the room's
// means the timer was cancelled or replaced after it had already fired.
func (m *Manager) expire(code string, token uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[code]
	if !ok || r.token != token {
		return
	}
	r.timer = nil
	m.expireRoom(r)
}

func (m *Manager) expireRoom(r *Room) {
	if r.Phase() == Paired {
		m.log.Warn("expiry on paired room ignored", "code", r.Code)
		return
	}
	for _, member := range r.members {
		m.notifier.Notify(member, Event{Type: EventRoomExpired})
	}
	m.destroy(r, ReasonExpired)
}

// depart removes conn from the room at code. The caller must hold m.mu.
func (m *Manager) depart(conn ConnID, code string) {
	if m.conns[conn] == code {
		delete(m.conns, conn)
	}

	r, ok := m.rooms[code]
	if !ok {
		m.log.Warn("connection indexed to missing room", "code", code, "conn", conn)
		return
	}
	if !r.remove(conn) {
		m.log.Warn("connection not a member of its room", "code", code, "conn", conn)
		return
	}

	switch r.Phase() {
	case Empty:
		m.destroy(r, ReasonEmptied)
	case Waiting:
		m.log.Info("partner left", "code", code, "conn", conn)
		for _, member := range r.members {
			m.notifier.Notify(member, Event{Type: EventUserLeft})
			m.notifier.Notify(member, Event{Type: EventWaitingForPartner})
		}
		m.arm(r)
	}
}

func (m *Manager) destroy(r *Room, reason DestroyReason) {
	m.disarm(r)
	for _, member := range r.members {
		if m.conns[member] == r.Code {
			delete(m.conns, member)
		}
	}
	delete(m.rooms, r.Code)
	m.obs.RoomDestroyed(reason)
	m.log.Info("room destroyed", "code", r.Code, "reason", reason)
}

// arm replaces any pending timer on r with a fresh one.
func (m *Manager) arm(r *Room) {
	m.disarm(r)

	m.nextToken++
	token, code := m.nextToken, r.Code
	r.token = token
	r.deadline = m.clock.Now().Add(m.idle)
	r.timer = m.clock.AfterFunc(m.idle, func() { m.expire(code, token) })
}

func (m *Manager) disarm(r *Room) {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.token = 0
	r.deadline = time.Time{}
}

// Room returns a snapshot of the room with the given code.
func (m *Manager) Room(code string) (RoomInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[code]
	if !ok {
		return RoomInfo{}, false
	}
	return r.info(), true
}

// RoomOf returns the code of the room conn is seated in.
func (m *Manager) RoomOf(conn ConnID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, ok := m.conns[conn]
	return code, ok
}

// Stats counts live rooms by phase.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{Rooms: len(m.rooms), Connections: len(m.conns)}
	for _, r := range m.rooms {
		switch r.Phase() {
		case Waiting:
			s.Waiting++
		case Paired:
			s.Paired++
		}
	}
	return s
}

// Close stops every pending timer and empties the registry.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rooms {
		m.disarm(r)
		m.obs.RoomDestroyed(ReasonClosed)
	}
	clear(m.rooms)
	clear(m.conns)
	m.log.Info("room registry closed")
}
