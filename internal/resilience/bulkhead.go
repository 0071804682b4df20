package resilience

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Bulkhead caps concurrent calls into a category.
type Bulkhead struct {
	sem     *semaphore.Weighted
	maxWait time.Duration
}

func NewBulkhead(cfg BulkheadPolicy) *Bulkhead {
	return &Bulkhead{
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		maxWait: cfg.MaxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. It returns ErrBulkheadFull
// when no slot freed up in time, or the caller's context error.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if b.maxWait <= 0 {
		if b.sem.TryAcquire(1) {
			return nil
		}
		return ErrBulkheadFull
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.maxWait)
	defer cancel()
	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBulkheadFull
	}
	return nil
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	b.sem.Release(1)
}
