// Package screening runs pre-transmission checks on payments. One generic
// engine is configured with three catalogs: compliance, fraud and risk.
package screening

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clearing/internal/adapter/models"
	id "clearing/pkg/domain"
)

// Engine evaluates one catalog. It never returns an error: a faulty rule is
// converted into an alert and the remaining rules still run.
type Engine struct {
	catalog Catalog
	clock   func() time.Time
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(catalog Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		clock:   time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the catalog name.
func (e *Engine) Name() string {
	return e.catalog.Name
}

// Evaluate runs every rule of the catalog in order against the request.
func (e *Engine) Evaluate(ctx context.Context, adapter *models.ClearingAdapter, req models.PaymentRequest, tenant id.TenantContext) Result {
	now := e.clock()
	subject := Subject{Adapter: adapter, Request: req, Tenant: tenant, Now: now}

	res := Result{
		Engine:         e.catalog.Name,
		CorrelationID:  req.PaymentID,
		AppliedRuleIDs: make([]string, 0, len(e.catalog.Rules)),
		Alerts:         []string{},
		Warnings:       []string{},
		EvaluatedAt:    now,
		Tenant:         tenant,
	}
	if adapter != nil {
		res.SubjectID = adapter.ID
	}

	for _, rule := range e.catalog.Rules {
		var out Signals
		if err := e.run(ctx, rule, subject, &out); err != nil {
			// the rule's partial signals are discarded in favour of one alert
			res.Alerts = append(res.Alerts, fmt.Sprintf("%s: rule evaluation fault", rule.ID))
			res.Faults = append(res.Faults, rule.ID)
			e.logger.ErrorContext(ctx, "screening rule faulted",
				"engine", e.catalog.Name,
				"rule_id", rule.ID,
				"payment_id", string(req.PaymentID),
				"error", err,
			)
			if e.metrics != nil {
				e.metrics.IncrementRuleFault(e.catalog.Name, rule.ID)
			}
		} else {
			res.Alerts = append(res.Alerts, out.alerts...)
			res.Warnings = append(res.Warnings, out.warnings...)
		}
		res.AppliedRuleIDs = append(res.AppliedRuleIDs, rule.ID)
	}

	e.decide(&res)
	if e.metrics != nil {
		e.metrics.ObserveEvaluation(e.catalog.Name, res)
	}
	return res
}

func (e *Engine) decide(res *Result) {
	policy := e.catalog.Scoring
	switch policy.Mode {
	case DecideNoAlerts:
		res.Passed = len(res.Alerts) == 0
	case DecideScoreThreshold:
		res.Score = policy.Score(len(res.Alerts), len(res.Warnings))
		res.Passed = res.Score < policy.Threshold
	case DecideLevelGate:
		res.Score = policy.Score(len(res.Alerts), len(res.Warnings))
		res.Level = policy.LevelFor(res.Score)
		res.Passed = !res.Level.AtLeast(policy.Gate)
	}
}

func (e *Engine) run(ctx context.Context, rule Rule, s Subject, out *Signals) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rule.Check(ctx, s, out)
}
