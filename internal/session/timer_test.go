package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tickLog struct {
	mu      sync.Mutex
	ticks   []int
	expired int
}

func (l *tickLog) attach(t *Timer) {
	t.OnTick(func(s int) {
		l.mu.Lock()
		l.ticks = append(l.ticks, s)
		l.mu.Unlock()
	})
	t.OnExpire(func() {
		l.mu.Lock()
		l.expired++
		l.mu.Unlock()
	})
}

// manualTimer returns a started timer whose goroutine never ticks, so the
// test drives tick directly.
func manualTimer(t *testing.T, deadline time.Time) (*Timer, *tickLog) {
	t.Helper()
	tm := NewTimer(time.Hour, nil)
	log := &tickLog{}
	log.attach(tm)
	tm.Start(deadline)
	t.Cleanup(tm.Cancel)
	return tm, log
}

func TestTimer_CountsDown(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tm, log := manualTimer(t, start.Add(3*time.Second))

	for i := 1; i <= 3; i++ {
		tm.tick(start.Add(time.Duration(i) * time.Second))
	}

	assert.Equal(t, []int{2, 1, 0}, log.ticks)
	assert.Equal(t, 1, log.expired)
}

func TestTimer_RoundsUp(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tm, log := manualTimer(t, start.Add(1500*time.Millisecond))

	tm.tick(start.Add(time.Second))
	assert.Equal(t, []int{1}, log.ticks)
	assert.Equal(t, 0, log.expired)
}

func TestTimer_SuspendPastDeadlineExpiresOnce(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tm, log := manualTimer(t, start.Add(60*time.Second))

	tm.tick(start.Add(time.Second))
	// Host sleeps for ten minutes; several delayed ticks arrive at once.
	late := start.Add(10 * time.Minute)
	for range 5 {
		tm.tick(late)
	}

	assert.Equal(t, []int{59, 0}, log.ticks)
	assert.Equal(t, 1, log.expired)
}

func TestTimer_CancelStopsEverything(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tm, log := manualTimer(t, start.Add(time.Second))

	tm.Cancel()
	tm.Cancel()
	tm.tick(start.Add(time.Hour))

	assert.Empty(t, log.ticks)
	assert.Equal(t, 0, log.expired)
}

func TestTimer_CancelBeforeStart(t *testing.T) {
	tm := NewTimer(time.Millisecond, nil)
	var fired atomic.Int32
	tm.OnExpire(func() { fired.Add(1) })

	tm.Cancel()
	tm.Start(time.Now())
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, int32(0), fired.Load())
}

func TestTimer_CancelAfterExpiry(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tm, log := manualTimer(t, start)

	tm.tick(start)
	require.Equal(t, 1, log.expired)
	tm.Cancel()
	tm.tick(start.Add(time.Second))
	assert.Equal(t, 1, log.expired)
}

func TestTimer_RealTicker(t *testing.T) {
	tm := NewTimer(5*time.Millisecond, nil)
	var ticks, expiries atomic.Int32
	tm.OnTick(func(int) { ticks.Add(1) })
	tm.OnExpire(func() { expiries.Add(1) })
	tm.Start(time.Now().Add(20 * time.Millisecond))
	defer tm.Cancel()

	require.Eventually(t, func() bool { return expiries.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), expiries.Load())
	assert.GreaterOrEqual(t, ticks.Load(), int32(1))
}

func TestSecondsUntil(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 0},
		{-5 * time.Second, 0},
		{time.Millisecond, 1},
		{time.Second, 1},
		{59*time.Second + 1, 60},
	}
	for _, tt := range tests {
		if got := secondsUntil(now.Add(tt.in), now); got != tt.want {
			t.Errorf("secondsUntil(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
