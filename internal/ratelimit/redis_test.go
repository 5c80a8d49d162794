package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/ErlanBelekov/credential-gateway/internal/ratelimit"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T) (*ratelimit.RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return ratelimit.NewRedisLimiter(rdb, "ratelimit:"), mr
}

func TestRedis_LimitReachedAfterMaxHits(t *testing.T) {
	ctx := context.Background()
	l, _ := newRedisLimiter(t)

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

func TestRedis_UnknownKeyIsNotLimited(t *testing.T) {
	l, _ := newRedisLimiter(t)

	blocked, err := l.TooManyAttempts(context.Background(), "login:9.9.9.9", 5)
	require.NoError(t, err)
	assert.False(t, blocked)

	in, err := l.AvailableIn(context.Background(), "login:9.9.9.9")
	require.NoError(t, err)
	assert.Zero(t, in)
}

func TestRedis_WindowSetByFirstHitOnly(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)

	_, err := l.Hit(ctx, "k", time.Minute)
	require.NoError(t, err)
	mr.FastForward(40 * time.Second)
	_, err = l.Hit(ctx, "k", time.Minute)
	require.NoError(t, err)

	in, err := l.AvailableIn(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, in)
}

func TestRedis_WindowExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t)

	for range 5 {
		_, err := l.Hit(ctx, "k", time.Minute)
		require.NoError(t, err)
	}
	mr.FastForward(time.Minute)

	blocked, err := l.TooManyAttempts(ctx, "k", 5)
	require.NoError(t, err)
	assert.False(t, blocked)

	n, err := l.Hit(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedis_ConnectionError(t *testing.T) {
	l, mr := newRedisLimiter(t)
	mr.Close()

	_, err := l.TooManyAttempts(context.Background(), "k", 5)
	assert.Error(t, err)
}
