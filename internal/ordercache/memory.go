// Package ordercache pins the presented question order of an exam per
// user, so re-opening the exam before its time runs out shows the same
// sequence.
package ordercache

import (
	"context"
	"sync"
	"time"

	"github.com/abhisek/examtaker/internal/session"
)

var (
	_ session.OrderStore = (*Memory)(nil)
	_ session.OrderStore = (*Redis)(nil)
)

type memEntry struct {
	order   []int
	expires time.Time // zero means no expiry
}

// Memory is a process-local OrderStore.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry), now: time.Now}
}

func (m *Memory) Load(_ context.Context, key string) ([]int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]int(nil), e.order...), true, nil
}

func (m *Memory) Save(_ context.Context, key string, order []int, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memEntry{order: append([]int(nil), order...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}
