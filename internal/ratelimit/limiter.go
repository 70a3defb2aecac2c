// Package ratelimit shares outbound request budgets between the imagery
// and street-level providers.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter admits at most permits acquisitions per window.
type Limiter struct {
	limiter *rate.Limiter
	permits int
	window  time.Duration
}

// New creates a token bucket that refills permits tokens evenly across window
// and allows a burst of the full budget.
func New(permits int, window time.Duration) (*Limiter, error) {
	if permits <= 0 {
		return nil, fmt.Errorf("rate limit permits must be positive, got %d", permits)
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", window)
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(permits)), permits),
		permits: permits,
		window:  window,
	}, nil
}

// Acquire blocks until a permit is available or ctx is done.
// A nil Limiter admits everything.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// Allow takes a permit without blocking.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}

func (l *Limiter) String() string {
	return fmt.Sprintf("%d per %s", l.permits, l.window)
}
