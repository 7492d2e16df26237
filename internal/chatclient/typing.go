package chatclient

import (
	"sync"
	"time"

	"github.com/venudhannoju-glitch/ChitChat/internal/session"
)

const (
	// TypingRefresh is the minimum gap between repeated typing notices.
	TypingRefresh = 2 * time.Second

	// TypingIdle is how long after the last keystroke stopTyping is sent.
	TypingIdle = 3 * time.Second
)

// Typist turns keystrokes into typing and stopTyping notices.
//
// The first keystroke sends typing, and further keystrokes resend it at most
// once per TypingRefresh. Stop is sent TypingIdle after the last keystroke or
// as soon as a message is submitted.
type Typist struct {
	mu     sync.Mutex
	clock  session.Clock
	notify func(typing bool)

	active   bool
	lastSent time.Time
	idle     session.Timer
	gen      uint64
}

// NewTypist reports state changes through notify. A nil clock uses the system
// clock.
func NewTypist(clock session.Clock, notify func(typing bool)) *Typist {
	if clock == nil {
		clock = session.SystemClock()
	}
	return &Typist{clock: clock, notify: notify}
}

// Keystroke records input activity.
func (t *Typist) Keystroke() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if !t.active || now.Sub(t.lastSent) >= TypingRefresh {
		t.active = true
		t.lastSent = now
		t.notify(true)
	}

	t.stopTimer()
	gen := t.gen
	t.idle = t.clock.AfterFunc(TypingIdle, func() { t.expire(gen) })
}

// Submitted ends the typing state because a message was sent.
func (t *Typist) Submitted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stop()
}

// Reset clears state without notifying, for when the room goes away.
func (t *Typist) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTimer()
	t.active = false
}

// Active reports whether a typing notice is outstanding.
func (t *Typist) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Typist) expire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return
	}
	t.stop()
}

func (t *Typist) stop() {
	t.stopTimer()
	if t.active {
		t.active = false
		t.notify(false)
	}
}

func (t *Typist) stopTimer() {
	if t.idle != nil {
		t.idle.Stop()
		t.idle = nil
	}
	t.gen++
}
