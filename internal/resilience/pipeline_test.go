package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	dErrors "clearing/pkg/domain-errors"
)

var errDownstream = errors.New("connection reset by peer")

// fastPolicy keeps every stage active with millisecond timings.
func fastPolicy() Policy {
	return Policy{
		CircuitBreaker: BreakerPolicy{FailureRateThreshold: 50, SlidingWindowSize: 10, MinimumCalls: 3, WaitInOpen: 30 * time.Second, HalfOpenCalls: 2, AutomaticTransition: true},
		Retry:          RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, Multiplier: 2, MaxBackoff: 5 * time.Millisecond},
		TimeLimiter:    TimeLimiterPolicy{Timeout: 50 * time.Millisecond},
		Bulkhead:       BulkheadPolicy{MaxConcurrent: 2, MaxWait: 0},
		RateLimiter:    RateLimiterPolicy{LimitForPeriod: 100, Period: time.Second, Timeout: 0},
	}
}

type PipelineSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *fakeClock
	metrics *Metrics
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = newFakeClock()
	s.metrics = NewMetrics(prometheus.NewRegistry())
}

func (s *PipelineSuite) newPipeline(policy Policy) *Pipeline {
	return NewPipeline(CategoryClearingSystem, policy, WithClock(s.clock.Now), WithMetrics(s.metrics))
}

func (s *PipelineSuite) TestSuccess() {
	p := s.newPipeline(fastPolicy())

	got, err := Call(s.ctx, p, "submit", func(context.Context) (string, error) {
		return "ok", nil
	}, nil)

	s.Require().NoError(err)
	s.Equal("ok", got)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Calls.WithLabelValues("clearing-system", "success")))
}

func (s *PipelineSuite) TestRetriesTransientFailures() {
	p := s.newPipeline(fastPolicy())
	var calls atomic.Int32

	got, err := Call(s.ctx, p, "submit", func(context.Context) (int, error) {
		if calls.Add(1) < 3 {
			return 0, errDownstream
		}
		return 42, nil
	}, nil)

	s.Require().NoError(err)
	s.Equal(42, got)
	s.Equal(int32(3), calls.Load())
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Retries.WithLabelValues("clearing-system")))
	s.Equal(StateClosed, p.BreakerState(), "one logical success despite two physical failures")
}

func (s *PipelineSuite) TestExhaustedRetriesReturnOperationFailure() {
	p := s.newPipeline(fastPolicy())
	var calls atomic.Int32

	_, err := Call(s.ctx, p, "submit", func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errDownstream
	}, nil)

	failure, ok := AsOperationFailure(err)
	s.Require().True(ok)
	s.Equal("submit", failure.Operation)
	s.Equal(CategoryClearingSystem, failure.Category)
	s.Equal(ReasonRetriesExhausted, failure.Reason)
	s.Equal(3, failure.Attempts)
	s.ErrorIs(err, errDownstream)
	s.True(failure.Retryable())
	s.Equal(int32(3), calls.Load())
}

func (s *PipelineSuite) TestClientErrorsPassThrough() {
	p := s.newPipeline(fastPolicy())
	var calls atomic.Int32
	notFound := dErrors.New(dErrors.CodeNotFound, "adapter not found")

	for range 5 {
		_, err := Call(s.ctx, p, "load", func(context.Context) (int, error) {
			calls.Add(1)
			return 0, notFound
		}, nil)
		s.Require().Error(err)
		s.False(IsOperationFailure(err))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	}

	s.Equal(int32(5), calls.Load(), "client errors are not retried")
	s.Equal(StateClosed, p.BreakerState(), "client errors do not trip the breaker")
}

func (s *PipelineSuite) TestPerCallOptionsOnlyTighten() {
	s.Run("max attempts lowered", func() {
		p := s.newPipeline(fastPolicy())
		var calls atomic.Int32
		_, err := Call(s.ctx, p, "submit", func(context.Context) (int, error) {
			calls.Add(1)
			return 0, errDownstream
		}, nil, WithMaxAttempts(1))
		s.True(IsOperationFailure(err))
		s.Equal(int32(1), calls.Load())
	})

	s.Run("max attempts cannot exceed policy", func() {
		p := s.newPipeline(fastPolicy())
		var calls atomic.Int32
		_, _ = Call(s.ctx, p, "submit", func(context.Context) (int, error) {
			calls.Add(1)
			return 0, errDownstream
		}, nil, WithMaxAttempts(10))
		s.Equal(int32(3), calls.Load())
	})

	s.Run("timeout cannot exceed policy", func() {
		policy := fastPolicy()
		policy.Retry.MaxAttempts = 1
		p := s.newPipeline(policy)
		_, err := Call(s.ctx, p, "submit", func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}, nil, WithTimeout(time.Hour))
		failure, ok := AsOperationFailure(err)
		s.Require().True(ok)
		s.Equal(ReasonTimeout, failure.Reason)
	})
}

func (s *PipelineSuite) TestLimitsReflectCallOptions() {
	p := s.newPipeline(fastPolicy())

	timeout, attempts := p.Limits()
	s.Equal(50*time.Millisecond, timeout)
	s.Equal(3, attempts)

	timeout, attempts = p.Limits(WithTimeout(10*time.Millisecond), WithMaxAttempts(2))
	s.Equal(10*time.Millisecond, timeout)
	s.Equal(2, attempts)

	timeout, attempts = p.Limits(WithTimeout(time.Minute), WithMaxAttempts(9))
	s.Equal(50*time.Millisecond, timeout)
	s.Equal(3, attempts)
}

func (s *PipelineSuite) TestTimeoutCancelsAttempt() {
	policy := fastPolicy()
	policy.Retry.MaxAttempts = 2
	p := s.newPipeline(policy)
	cancelled := make(chan struct{}, 2)

	_, err := Call(s.ctx, p, "submit", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		cancelled <- struct{}{}
		return 0, ctx.Err()
	}, nil)

	failure, ok := AsOperationFailure(err)
	s.Require().True(ok)
	s.Equal(ReasonTimeout, failure.Reason)
	s.Equal(2, failure.Attempts)
	s.ErrorIs(err, ErrTimeout)
	s.Eventually(func() bool { return len(cancelled) == 2 }, time.Second, 5*time.Millisecond,
		"each timed-out attempt saw its context cancelled")
}

func (s *PipelineSuite) TestTimeoutWhenAttemptIgnoresContext() {
	policy := fastPolicy()
	policy.Retry.MaxAttempts = 1
	p := s.newPipeline(policy)
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := Call(s.ctx, p, "submit", func(context.Context) (int, error) {
		<-release
		return 1, nil
	}, nil)

	s.Less(time.Since(start), time.Second)
	failure, ok := AsOperationFailure(err)
	s.Require().True(ok)
	s.Equal(ReasonTimeout, failure.Reason)
}

func (s *PipelineSuite) TestBreakerOpensAndFailsFast() {
	policy := fastPolicy()
	policy.Retry.MaxAttempts = 1
	p := s.newPipeline(policy)
	var calls atomic.Int32
	failing := func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errDownstream
	}

	for range 3 {
		_, err := Call(s.ctx, p, "submit", failing, nil)
		s.Require().True(IsOperationFailure(err))
	}
	s.Require().Equal(StateOpen, p.BreakerState())
	s.Equal(int32(3), calls.Load())

	for range 5 {
		_, err := Call(s.ctx, p, "submit", failing, nil)
		failure, ok := AsOperationFailure(err)
		s.Require().True(ok)
		s.Equal(ReasonCircuitOpen, failure.Reason)
		s.ErrorIs(err, ErrCircuitOpen)
	}
	s.Equal(int32(3), calls.Load(), "open breaker never reaches the downstream")

	s.clock.Advance(policy.CircuitBreaker.WaitInOpen)
	for range 2 {
		_, err := Call(s.ctx, p, "submit", func(context.Context) (int, error) {
			calls.Add(1)
			return 1, nil
		}, nil)
		s.Require().NoError(err)
	}
	s.Equal(StateClosed, p.BreakerState())
	s.Equal(int32(5), calls.Load())
}

func (s *PipelineSuite) TestFallbackReceivesFailure() {
	policy := fastPolicy()
	policy.Retry.MaxAttempts = 1
	p := s.newPipeline(policy)
	var seen *OperationFailure

	got, err := Call(s.ctx, p, "resolve-endpoint", func(context.Context) (string, error) {
		return "", errDownstream
	}, func(_ context.Context, failure *OperationFailure) (string, error) {
		seen = failure
		return "https://standby.clearing.example", nil
	})

	s.Require().NoError(err)
	s.Equal("https://standby.clearing.example", got)
	s.Require().NotNil(seen)
	s.Equal("resolve-endpoint", seen.Operation)
	s.ErrorIs(seen, errDownstream)
}

func (s *PipelineSuite) TestPanicIsRecovered() {
	p := s.newPipeline(fastPolicy())
	var calls atomic.Int32

	s.NotPanics(func() {
		_, err := Call(s.ctx, p, "submit", func(context.Context) (int, error) {
			calls.Add(1)
			panic("nil map write")
		}, nil)
		failure, ok := AsOperationFailure(err)
		s.Require().True(ok)
		s.Equal(ReasonPanic, failure.Reason)
		s.False(failure.Retryable())
	})
	s.Equal(int32(1), calls.Load(), "panics are not retried")
}

func (s *PipelineSuite) TestBulkheadRejectsWhenFull() {
	policy := fastPolicy()
	policy.Retry.MaxAttempts = 1
	policy.TimeLimiter.Timeout = 5 * time.Second
	p := s.newPipeline(policy)
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var wg sync.WaitGroup

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = Do(s.ctx, p, "submit", func(context.Context) error {
				started <- struct{}{}
				<-release
				return nil
			})
		}()
	}
	<-started
	<-started

	_, err := Call(s.ctx, p, "submit", func(context.Context) (int, error) { return 1, nil }, nil)
	failure, ok := AsOperationFailure(err)
	s.Require().True(ok)
	s.Equal(ReasonBulkheadFull, failure.Reason)

	close(release)
	wg.Wait()

	_, err = Call(s.ctx, p, "submit", func(context.Context) (int, error) { return 1, nil }, nil)
	s.NoError(err, "slots are released when calls finish")
}

func (s *PipelineSuite) TestRateLimiterRejectsOverQuota() {
	policy := fastPolicy()
	policy.RateLimiter.LimitForPeriod = 2
	p := s.newPipeline(policy)
	ok := func(context.Context) (int, error) { return 1, nil }

	_, err := Call(s.ctx, p, "submit", ok, nil)
	s.Require().NoError(err)
	_, err = Call(s.ctx, p, "submit", ok, nil)
	s.Require().NoError(err)

	_, err = Call(s.ctx, p, "submit", ok, nil)
	failure, isFailure := AsOperationFailure(err)
	s.Require().True(isFailure)
	s.Equal(ReasonRateLimited, failure.Reason)

	s.clock.Advance(time.Second)
	_, err = Call(s.ctx, p, "submit", ok, nil)
	s.NoError(err, "a new period restores the quota")
}

func (s *PipelineSuite) TestCallerCancellation() {
	p := s.newPipeline(fastPolicy())
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := Call(ctx, p, "submit", func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	}, nil)

	failure, ok := AsOperationFailure(err)
	s.Require().True(ok)
	s.Equal(ReasonCancelled, failure.Reason)
	s.Equal(StateClosed, p.BreakerState())
}
