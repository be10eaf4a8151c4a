package session

import (
	"math"
	"sync"
	"time"
)

// DefaultTickInterval is the countdown cadence.
const DefaultTickInterval = time.Second

// DeadlineTimer drives the countdown of one session. Callbacks are
// registered before Start. Expiry fires at most once per instance.
type DeadlineTimer interface {
	Start(deadline time.Time)
	OnTick(fn func(secondsRemaining int))
	OnExpire(fn func())
	Cancel()
}

// TimerFactory creates a fresh DeadlineTimer for each session.
type TimerFactory func() DeadlineTimer

// Timer is the ticker-backed DeadlineTimer.
//
// Remaining time is derived from the wall clock on every tick rather than
// by counting ticks, so a host that sleeps past the deadline sees one
// clamped tick at zero and a single expiry.
type Timer struct {
	cadence time.Duration
	now     func() time.Time

	mu        sync.Mutex
	onTick    func(int)
	onExpire  func()
	deadline  time.Time
	started   bool
	expired   bool
	cancelled bool

	stop     chan struct{}
	stopOnce sync.Once
}

// NewTimer returns a timer ticking every cadence. A nil now uses time.Now.
func NewTimer(cadence time.Duration, now func() time.Time) *Timer {
	if cadence <= 0 {
		cadence = DefaultTickInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Timer{
		cadence: cadence,
		now:     now,
		stop:    make(chan struct{}),
	}
}

func (t *Timer) OnTick(fn func(int)) {
	t.mu.Lock()
	t.onTick = fn
	t.mu.Unlock()
}

func (t *Timer) OnExpire(fn func()) {
	t.mu.Lock()
	t.onExpire = fn
	t.mu.Unlock()
}

// Start begins ticking toward deadline. Starting twice, or after Cancel,
// does nothing.
func (t *Timer) Start(deadline time.Time) {
	t.mu.Lock()
	if t.started || t.cancelled {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.deadline = deadline
	t.mu.Unlock()

	go t.run()
}

// Cancel stops all future ticks and expiry. It is safe to call any number
// of times, before Start, or after expiry.
func (t *Timer) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *Timer) run() {
	ticker := time.NewTicker(t.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if done := t.tick(t.now()); done {
				return
			}
		}
	}
}

// tick evaluates the countdown at now and reports whether the timer is
// finished.
func (t *Timer) tick(now time.Time) bool {
	t.mu.Lock()
	if t.cancelled || t.expired || !t.started {
		t.mu.Unlock()
		return t.cancelled || t.expired
	}
	remaining := secondsUntil(t.deadline, now)
	onTick := t.onTick
	var onExpire func()
	if remaining == 0 {
		t.expired = true
		onExpire = t.onExpire
	}
	t.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if onExpire != nil {
		onExpire()
	}
	return remaining == 0
}

// secondsUntil rounds up so the display shows 1 until the deadline passes.
func secondsUntil(deadline, now time.Time) int {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
