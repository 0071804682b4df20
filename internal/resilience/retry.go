package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	dErrors "clearing/pkg/domain-errors"
)

// newBackOff builds the retry schedule for at most attempts tries. Elapsed
// time is bounded by the attempt count, not by wall clock.
func newBackOff(ctx context.Context, cfg RetryPolicy, attempts int) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.InitialBackoff
	eb.Multiplier = cfg.Multiplier
	eb.RandomizationFactor = cfg.Jitter
	eb.MaxInterval = cfg.MaxBackoff
	if eb.MaxInterval <= 0 {
		eb.MaxInterval = backoff.DefaultMaxInterval
	}
	eb.MaxElapsedTime = 0
	eb.Reset()

	retries := 0
	if attempts > 1 {
		retries = attempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// retry runs attempt until it succeeds, returns a non-retryable error, the
// schedule runs out or ctx ends. It returns the number of tries made.
func retry[T any](
	ctx context.Context,
	cfg RetryPolicy,
	attempts int,
	attempt func(context.Context) (T, error),
	onRetry func(err error, wait time.Duration),
) (T, int, error) {
	var (
		value T
		tries int
	)
	op := func() error {
		tries++
		v, err := attempt(ctx)
		if err == nil {
			value = v
			return nil
		}
		if !retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.RetryNotify(op, newBackOff(ctx, cfg, attempts), onRetry)
	return value, tries, err
}

// retryable reports whether another physical attempt may help. Caller errors
// never improve on retry, and neither does a cancelled caller.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if dErrors.IsClientError(err) {
		return false
	}
	var p *panicError
	if errors.As(err, &p) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
