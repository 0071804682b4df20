// Package resilience wraps calls to downstream dependencies in a fixed chain
// of protections: bulkhead, rate limiter, circuit breaker, retry and time
// limiter, outermost first. Callers get back either the call's value, their
// own client error untouched, or an *OperationFailure.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "clearing/pkg/domain-errors"
)

const tracerName = "clearing/internal/resilience"

// Pipeline is the protection chain for one category (and, with tenant
// isolation, one tenant). Pipelines are long-lived and shared by every call
// site of their category.
type Pipeline struct {
	category Category
	scope    string
	policy   Policy
	bulkhead *Bulkhead
	limiter  *RateLimiter
	breaker  *Breaker
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipelineConfig)

type pipelineConfig struct {
	scope   string
	clock   func() time.Time
	metrics *Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

func WithScope(scope string) PipelineOption {
	return func(c *pipelineConfig) { c.scope = scope }
}

// WithClock sets the time source of the breaker and rate limiter.
func WithClock(clock func() time.Time) PipelineOption {
	return func(c *pipelineConfig) { c.clock = clock }
}

func WithMetrics(m *Metrics) PipelineOption {
	return func(c *pipelineConfig) { c.metrics = m }
}

func WithLogger(logger *slog.Logger) PipelineOption {
	return func(c *pipelineConfig) { c.logger = logger }
}

func WithTracer(tracer trace.Tracer) PipelineOption {
	return func(c *pipelineConfig) { c.tracer = tracer }
}

// NewPipeline builds the chain for category from policy.
func NewPipeline(category Category, policy Policy, opts ...PipelineOption) *Pipeline {
	cfg := pipelineConfig{clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(tracerName)
	}
	scopeLabel := cfg.scope
	if scopeLabel == "" {
		scopeLabel = "shared"
	}

	p := &Pipeline{
		category: category,
		scope:    cfg.scope,
		policy:   policy,
		bulkhead: NewBulkhead(policy.Bulkhead),
		limiter:  NewRateLimiter(policy.RateLimiter, cfg.clock),
		metrics:  cfg.metrics,
		logger:   cfg.logger.With("category", string(category)),
		tracer:   cfg.tracer,
	}
	p.breaker = NewBreaker(string(category), policy.CircuitBreaker,
		WithBreakerClock(cfg.clock),
		WithTransitionObserver(func(t Transition) {
			p.logger.Warn("circuit breaker state changed",
				"scope", scopeLabel,
				"from", t.From.String(),
				"to", t.To.String(),
			)
			if p.metrics != nil {
				p.metrics.SetBreakerState(category, scopeLabel, t.To)
			}
		}),
	)
	if p.metrics != nil {
		p.metrics.SetBreakerState(category, scopeLabel, StateClosed)
	}
	return p
}

func (p *Pipeline) Category() Category { return p.category }

func (p *Pipeline) Policy() Policy { return p.policy }

// BreakerState reports the circuit breaker state.
func (p *Pipeline) BreakerState() State { return p.breaker.State() }

// Breaker exposes the circuit breaker, mainly for operational resets.
func (p *Pipeline) Breaker() *Breaker { return p.breaker }

// CallOption tightens the category policy for a single call.
type CallOption func(*callSettings)

type callSettings struct {
	timeout  time.Duration
	attempts int
}

// WithTimeout bounds each physical attempt. It can only shorten the category
// timeout; non-positive values are ignored.
func WithTimeout(d time.Duration) CallOption {
	return func(s *callSettings) {
		if d > 0 && d < s.timeout {
			s.timeout = d
		}
	}
}

// WithMaxAttempts caps the number of physical attempts, first try included.
// It can only lower the category limit; values below 1 are ignored.
func WithMaxAttempts(n int) CallOption {
	return func(s *callSettings) {
		if n >= 1 && n < s.attempts {
			s.attempts = n
		}
	}
}

func (p *Pipeline) settings(opts []CallOption) callSettings {
	settings := callSettings{timeout: p.policy.TimeLimiter.Timeout, attempts: p.policy.Retry.MaxAttempts}
	for _, opt := range opts {
		opt(&settings)
	}
	return settings
}

// Limits returns the per-attempt timeout and attempt count a call with opts
// would run under.
func (p *Pipeline) Limits(opts ...CallOption) (time.Duration, int) {
	s := p.settings(opts)
	return s.timeout, s.attempts
}

// Fallback turns a pipeline failure into the caller's result. It is supplied
// explicitly by every call site that wants one.
type Fallback[T any] func(ctx context.Context, failure *OperationFailure) (T, error)

// Call runs fn through p. The outcome is exactly one of:
//   - fn's value and a nil error;
//   - fn's client error (dErrors.IsClientError), neither retried nor counted
//     against the breaker;
//   - the fallback's result, or a *OperationFailure when fallback is nil.
func Call[T any](
	ctx context.Context,
	p *Pipeline,
	operation string,
	fn func(context.Context) (T, error),
	fallback Fallback[T],
	opts ...CallOption,
) (T, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "resilience."+operation, trace.WithAttributes(
		attribute.String("resilience.category", string(p.category)),
		attribute.String("resilience.operation", operation),
	))
	defer span.End()

	settings := p.settings(opts)

	fail := func(reason Reason, attempts int, cause error) (T, error) {
		failure := &OperationFailure{
			Operation: operation,
			Category:  p.category,
			Reason:    reason,
			Attempts:  attempts,
			Cause:     cause,
		}
		span.RecordError(failure)
		span.SetStatus(codes.Error, string(reason))
		p.observe(string(reason), start)
		p.logger.WarnContext(ctx, "downstream call failed",
			"operation", operation,
			"reason", string(reason),
			"attempts", attempts,
			"error", cause,
		)
		if fallback != nil {
			return fallback(ctx, failure)
		}
		var zero T
		return zero, failure
	}

	if err := p.bulkhead.Acquire(ctx); err != nil {
		return fail(admissionReason(ctx, ReasonBulkheadFull), 0, err)
	}
	defer p.bulkhead.Release()

	if err := p.limiter.Acquire(ctx); err != nil {
		return fail(admissionReason(ctx, ReasonRateLimited), 0, err)
	}

	permit, err := p.breaker.Allow()
	if err != nil {
		return fail(ReasonCircuitOpen, 0, err)
	}

	attempt := func(ctx context.Context) (T, error) {
		return limitTime(ctx, settings.timeout, fn)
	}
	onRetry := func(err error, wait time.Duration) {
		if p.metrics != nil {
			p.metrics.IncrementRetry(p.category)
		}
		p.logger.DebugContext(ctx, "retrying downstream call",
			"operation", operation,
			"wait", wait,
			"error", err,
		)
	}
	value, tries, err := retry(ctx, p.policy.Retry, settings.attempts, attempt, onRetry)
	span.SetAttributes(attribute.Int("resilience.attempts", tries))

	switch {
	case err == nil:
		p.breaker.Record(permit, OutcomeSuccess)
		p.observe("success", start)
		return value, nil
	case dErrors.IsClientError(err):
		p.breaker.Record(permit, OutcomeIgnored)
		p.observe("client_error", start)
		var zero T
		return zero, err
	case ctx.Err() != nil:
		p.breaker.Record(permit, OutcomeIgnored)
		return fail(ReasonCancelled, tries, err)
	}

	p.breaker.Record(permit, OutcomeFailure)
	var pe *panicError
	switch {
	case errors.As(err, &pe):
		return fail(ReasonPanic, tries, err)
	case errors.Is(err, ErrTimeout):
		return fail(ReasonTimeout, tries, err)
	default:
		return fail(ReasonRetriesExhausted, tries, err)
	}
}

// Do is Call for operations without a result value.
func Do(ctx context.Context, p *Pipeline, operation string, fn func(context.Context) error, opts ...CallOption) error {
	_, err := Call(ctx, p, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, nil, opts...)
	return err
}

func (p *Pipeline) observe(outcome string, start time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveCall(p.category, outcome, start)
	}
}

func admissionReason(ctx context.Context, reason Reason) Reason {
	if ctx.Err() != nil {
		return ReasonCancelled
	}
	return reason
}
