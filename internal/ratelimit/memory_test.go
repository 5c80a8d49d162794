package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter()
	l.now = clock.now
	return l, clock
}

func TestMemory_LimitReachedAfterMaxHits(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter()

	for i := 1; i <= 5; i++ {
		blocked, err := l.TooManyAttempts(ctx, "login:1.2.3.4", 5)
		require.NoError(t, err)
		assert.False(t, blocked, "attempt %d", i)

		n, err := l.Hit(ctx, "login:1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	blocked, err := l.TooManyAttempts(ctx, "login:1.2.3.4", 5)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestMemory_TooManyAttemptsDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter()

	for range 10 {
		_, err := l.TooManyAttempts(ctx, "k", 5)
		require.NoError(t, err)
	}
	n, err := l.Hit(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemory_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter()

	for range 5 {
		_, err := l.Hit(ctx, "login:1.1.1.1", time.Minute)
		require.NoError(t, err)
	}

	blocked, err := l.TooManyAttempts(ctx, "login:2.2.2.2", 5)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestMemory_WindowResetsAfterDecay(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter()

	for range 5 {
		_, err := l.Hit(ctx, "k", time.Minute)
		require.NoError(t, err)
	}

	clock.advance(30 * time.Second)
	in, err := l.AvailableIn(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, in)

	clock.advance(30 * time.Second)
	blocked, err := l.TooManyAttempts(ctx, "k", 5)
	require.NoError(t, err)
	assert.False(t, blocked)

	in, err = l.AvailableIn(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, in)
}

func TestMemory_HitsInsideWindowDoNotExtendIt(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter()

	_, err := l.Hit(ctx, "k", time.Minute)
	require.NoError(t, err)
	clock.advance(50 * time.Second)
	_, err = l.Hit(ctx, "k", time.Minute)
	require.NoError(t, err)

	in, err := l.AvailableIn(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, in)
}

func TestMemory_Prune(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter()

	_, err := l.Hit(ctx, "old", time.Minute)
	require.NoError(t, err)
	clock.advance(45 * time.Second)
	_, err = l.Hit(ctx, "new", time.Minute)
	require.NoError(t, err)
	clock.advance(30 * time.Second)

	assert.Equal(t, 1, l.Prune())
	assert.Len(t, l.windows, 1)
	assert.Contains(t, l.windows, "new")
}

func TestNewJanitor(t *testing.T) {
	l, _ := newTestLimiter()

	c, err := NewJanitor(l, "@every 1m", nil)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = NewJanitor(l, "not a spec", nil)
	assert.Error(t, err)
}
