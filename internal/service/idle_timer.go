package service

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// IdleTimer runs a callback once after a period without Reset calls.
// At most one timer is pending at a time. Callbacks from a timer that was
// stopped or replaced are discarded even if they already fired.
type IdleTimer struct {
	clock  clockwork.Clock
	onIdle func()

	mu      sync.Mutex
	timer   clockwork.Timer
	gen     uint64
	armedAt time.Time
	period  time.Duration
	closed  bool
}

// NewIdleTimer creates a disarmed timer that calls onIdle on expiry.
func NewIdleTimer(clock clockwork.Clock, onIdle func()) *IdleTimer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &IdleTimer{clock: clock, onIdle: onIdle}
}

// Arm (re)starts the countdown from zero with period d.
func (t *IdleTimer) Arm(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || d <= 0 {
		return
	}
	t.stopLocked()
	t.gen++
	gen := t.gen
	t.armedAt = t.clock.Now()
	t.period = d
	t.timer = t.clock.AfterFunc(d, func() { t.fire(gen) })
}

// Reset restarts a pending countdown with period d. It reports false and does
// nothing when the timer is not armed.
func (t *IdleTimer) Reset(d time.Duration) bool {
	t.mu.Lock()
	armed := t.timer != nil && !t.closed
	t.mu.Unlock()
	if !armed {
		return false
	}
	t.Arm(d)
	return true
}

// Disarm cancels any pending countdown.
func (t *IdleTimer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Armed reports whether a countdown is pending.
func (t *IdleTimer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// Deadline returns when the pending countdown expires.
func (t *IdleTimer) Deadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer == nil {
		return time.Time{}, false
	}
	return t.armedAt.Add(t.period), true
}

// Close disarms the timer permanently.
func (t *IdleTimer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.closed = true
}

// stopLocked must be called with mu held.
func (t *IdleTimer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

func (t *IdleTimer) fire(gen uint64) {
	t.mu.Lock()
	if t.closed || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.mu.Unlock()

	if t.onIdle != nil {
		t.onIdle()
	}
}
