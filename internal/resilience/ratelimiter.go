package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiter admits a fixed number of calls per period. A caller that finds
// the current period exhausted waits for the next one if it starts within the
// admission timeout, and is rejected otherwise.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	timeout time.Duration
	clock   func() time.Time

	windowStart time.Time
	used        int
}

func NewRateLimiter(cfg RateLimiterPolicy, clock func() time.Time) *RateLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &RateLimiter{
		limit:   cfg.LimitForPeriod,
		period:  cfg.Period,
		timeout: cfg.Timeout,
		clock:   clock,
	}
}

// Acquire takes one permit or returns ErrRateLimited.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	deadline := r.clock().Add(r.timeout)
	for {
		wait, ok := r.reserve()
		if ok {
			return nil
		}
		if r.clock().Add(wait).After(deadline) {
			return ErrRateLimited
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a permit from the current window, or reports how long until
// the next window opens.
func (r *RateLimiter) reserve() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	if r.windowStart.IsZero() || !now.Before(r.windowStart.Add(r.period)) {
		r.windowStart = now
		r.used = 0
	}
	if r.used < r.limit {
		r.used++
		return 0, true
	}
	return r.windowStart.Add(r.period).Sub(now), false
}

// Remaining returns the permits left in the current window.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.windowStart.IsZero() || !r.clock().Before(r.windowStart.Add(r.period)) {
		return r.limit
	}
	return r.limit - r.used
}
