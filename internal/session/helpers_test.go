package session

import (
	"sort"
	"sync"
	"time"
)

// fakeClock fires timers only when Advance moves time past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer

	// ignoreStop makes Stop a no-op, as if the timer had already fired and
	// its callback were racing the caller for the manager lock.
	ignoreStop bool
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.clock.ignoreStop || t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward and runs every due timer in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if t.fired || (t.stopped && !c.ignoreStop) {
			continue
		}
		if !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Pending counts timers that are neither stopped nor fired.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// recorder is a Notifier that keeps every event per connection.
type recorder struct {
	mu     sync.Mutex
	events map[ConnID][]Event
}

func newRecorder() *recorder {
	return &recorder{events: make(map[ConnID][]Event)}
}

func (r *recorder) Notify(conn ConnID, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[conn] = append(r.events[conn], ev)
}

func (r *recorder) For(conn ConnID) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events[conn]...)
}

func (r *recorder) Types(conn ConnID) []EventType {
	var out []EventType
	for _, ev := range r.For(conn) {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, evs := range r.events {
		n += len(evs)
	}
	return n
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.events)
}

// sequence returns a RandIndex that yields values in order, then repeats the
// last one.
func sequence(values ...int) func(int) int {
	var mu sync.Mutex
	i := 0
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		v := values[min(i, len(values)-1)]
		i++
		return v % n
	}
}

func newTestManager(opts Options) (*Manager, *recorder, *fakeClock) {
	rec := newRecorder()
	clock := newFakeClock()
	if opts.Clock == nil {
		opts.Clock = clock
	}
	return NewManager(rec, opts), rec, clock
}
