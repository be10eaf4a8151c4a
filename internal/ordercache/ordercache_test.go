package ordercache

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemory(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
	m := NewMemory()
	m.now = clk.Now
	ctx := context.Background()

	_, ok, err := m.Load(ctx, "3:alice")
	require.NoError(t, err)
	assert.False(t, ok)

	order := []int{4, 1, 3, 2}
	require.NoError(t, m.Save(ctx, "3:alice", order, 10*time.Minute))
	order[0] = 99 // caller's slice is copied

	got, ok, err := m.Load(ctx, "3:alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{4, 1, 3, 2}, got)

	clk.advance(10 * time.Minute)
	_, ok, _ = m.Load(ctx, "3:alice")
	assert.False(t, ok, "expired at ttl")

	require.NoError(t, m.Save(ctx, "3:bob", []int{1}, 0))
	clk.advance(24 * time.Hour)
	_, ok, _ = m.Load(ctx, "3:bob")
	assert.True(t, ok, "zero ttl never expires")
}

func newRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client), mr
}

func TestRedis(t *testing.T) {
	r, mr := newRedis(t)
	ctx := context.Background()

	_, ok, err := r.Load(ctx, "5:carol")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Save(ctx, "5:carol", []int{2, 3, 1}, 30*time.Minute))
	assert.True(t, mr.Exists("examtaker:order:5:carol"))
	assert.Equal(t, 30*time.Minute, mr.TTL("examtaker:order:5:carol"))

	got, ok, err := r.Load(ctx, "5:carol")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{2, 3, 1}, got)

	mr.FastForward(31 * time.Minute)
	_, ok, err = r.Load(ctx, "5:carol")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCorruptValue(t *testing.T) {
	r, mr := newRedis(t)
	require.NoError(t, mr.Set("examtaker:order:1:x", "not json"))

	_, _, err := r.Load(context.Background(), "1:x")
	assert.Error(t, err)
}

func TestDialRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	r, err := DialRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = DialRedis(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
