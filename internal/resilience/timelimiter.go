package resilience

import (
	"context"
	"errors"
	"time"
)

type attemptResult[T any] struct {
	value T
	err   error
}

// limitTime runs fn with a deadline. On timeout the attempt's context is
// cancelled and ErrTimeout is returned without waiting for fn to notice.
// A panic inside fn is recovered into a *panicError.
func limitTime[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan attemptResult[T], 1)
	go func() {
		var res attemptResult[T]
		defer func() {
			if r := recover(); r != nil {
				res = attemptResult[T]{err: &panicError{value: r}}
			}
			done <- res
		}()
		res.value, res.err = fn(attemptCtx)
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return res.value, errors.Join(ErrTimeout, res.err)
		}
		return res.value, res.err
	case <-attemptCtx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, ErrTimeout
	}
}
