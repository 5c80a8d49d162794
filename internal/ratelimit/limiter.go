// Package ratelimit counts attempts per key over a fixed window.
//
// A window opens on the first Hit for a key and lasts for the decay passed
// to that Hit. Later hits inside the window only increment the counter.
package ratelimit

import (
	"context"
	"time"
)

type Limiter interface {
	// TooManyAttempts reports whether key already has maxAttempts or more
	// hits in its current window. It never records a hit.
	TooManyAttempts(ctx context.Context, key string, maxAttempts int) (bool, error)

	// Hit records one attempt and returns the count in the current window.
	Hit(ctx context.Context, key string, decay time.Duration) (int, error)

	// AvailableIn returns how long until key's window resets. Zero when no
	// window is open.
	AvailableIn(ctx context.Context, key string) (time.Duration, error)
}
