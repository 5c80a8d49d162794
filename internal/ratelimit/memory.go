package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps windows in process memory. Suitable for a single
// instance; use RedisLimiter when running more than one.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) TooManyAttempts(_ context.Context, key string, maxAttempts int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.live(key)
	return ok && w.count >= maxAttempts, nil
}

func (l *MemoryLimiter) Hit(_ context.Context, key string, decay time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.live(key)
	if !ok {
		w = &window{resetAt: l.now().Add(decay)}
		l.windows[key] = w
	}
	w.count++
	return w.count, nil
}

func (l *MemoryLimiter) AvailableIn(_ context.Context, key string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.live(key)
	if !ok {
		return 0, nil
	}
	return w.resetAt.Sub(l.now()), nil
}

// Prune drops expired windows and returns how many were removed.
func (l *MemoryLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// NewJanitor returns a cron runner that prunes l on spec (e.g. "@every 1m").
// The caller starts and stops it.
func NewJanitor(l *MemoryLimiter, spec string, onPrune func(removed int)) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n := l.Prune()
		if onPrune != nil {
			onPrune(n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule limiter janitor: %w", err)
	}
	return c, nil
}

// live returns key's window if it has not expired. Caller holds mu.
func (l *MemoryLimiter) live(key string) (*window, bool) {
	w, ok := l.windows[key]
	if !ok {
		return nil, false
	}
	if !l.now().Before(w.resetAt) {
		delete(l.windows, key)
		return nil, false
	}
	return w, true
}
