package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares windows across instances. The window is a single
// counter key whose TTL is set only by the hit that creates it.
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisLimiter(rdb *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix}
}

func (l *RedisLimiter) TooManyAttempts(ctx context.Context, key string, maxAttempts int) (bool, error) {
	count, err := l.rdb.Get(ctx, l.prefix+key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get attempts: %w", err)
	}
	return count >= maxAttempts, nil
}

func (l *RedisLimiter) Hit(ctx context.Context, key string, decay time.Duration) (int, error) {
	k := l.prefix + key

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, decay)
		incr = pipe.Incr(ctx, k)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("hit: %w", err)
	}
	return int(incr.Val()), nil
}

func (l *RedisLimiter) AvailableIn(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := l.rdb.TTL(ctx, l.prefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("ttl: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
