package screening

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/cucumber/godog"

	"clearing/internal/adapter/models"
	"clearing/internal/adapter/service"
	"clearing/internal/screening"
	id "clearing/pkg/domain"
)

// TestContext is what the screening steps need from the scenario context.
type TestContext interface {
	Service() *service.Service
	Tenant() id.TenantContext
}

// RegisterSteps registers screening and submission step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &screeningSteps{tc: tc}

	ctx.Step(`^a payment of (\d+\.\d{2}) "([^"]*)" to beneficiary account "([^"]*)"$`, steps.payment)
	ctx.Step(`^I screen the payment on "([^"]*)"$`, steps.screen)
	ctx.Step(`^I submit the payment on "([^"]*)"$`, steps.submit)
	ctx.Step(`^a (fraud|risk) rule set raising (\d+) alerts? and (\d+) warnings?$`, steps.ruleSet)
	ctx.Step(`^the rule set is evaluated on "([^"]*)"$`, steps.evaluate)

	ctx.Step(`^the compliance alerts include "([^"]*)"$`, steps.complianceAlertsInclude)
	ctx.Step(`^the payment is not compliant$`, steps.notCompliant)
	ctx.Step(`^the score is (\d+(?:\.\d+)?)$`, steps.scoreIs)
	ctx.Step(`^fraud is detected$`, steps.fraudDetected)
	ctx.Step(`^the risk level is "([^"]*)"$`, steps.levelIs)
	ctx.Step(`^the payment outcome is "([^"]*)"$`, steps.outcomeIs)
}

type screeningSteps struct {
	tc TestContext

	request models.PaymentRequest
	catalog screening.Catalog
	outcome screening.Outcome
	result  screening.Result
	submitted *service.SubmissionResult
}

func (s *screeningSteps) payment(_ context.Context, amount, currency, account string) error {
	var major, minor int64
	if _, err := fmt.Sscanf(amount, "%d.%d", &major, &minor); err != nil {
		return err
	}
	s.request = models.PaymentRequest{
		PaymentID:      id.PaymentID(fmt.Sprintf("PAY-%d", time.Now().UnixNano())),
		Amount:         major*100 + minor,
		Currency:       currency,
		Debtor:         models.Party{Name: "Acme Mining", Account: "ZA001122", AgentBIC: "SBZAZAJJ"},
		Creditor:       models.Party{Name: "Karoo Logistics", Account: account, AgentBIC: "FIRNZAJJ"},
		Destination:    "ZA",
		RemittanceInfo: "INV-2026-051",
	}
	return nil
}

func (s *screeningSteps) adapter(ctx context.Context, adapterID string) (*models.ClearingAdapter, error) {
	return s.tc.Service().GetAdapter(ctx, s.tc.Tenant(), id.AdapterID(adapterID))
}

func (s *screeningSteps) screen(ctx context.Context, adapterID string) error {
	a, err := s.adapter(ctx, adapterID)
	if err != nil {
		return err
	}
	screener := screening.NewDefaultScreener(screening.NewListScreener())
	s.outcome = screener.Screen(ctx, a, s.request, s.tc.Tenant())
	return nil
}

func (s *screeningSteps) submit(ctx context.Context, adapterID string) error {
	res, err := s.tc.Service().SubmitPayment(ctx, s.tc.Tenant(), id.AdapterID(adapterID), s.request)
	if err != nil {
		return err
	}
	s.submitted = res
	return nil
}

func (s *screeningSteps) ruleSet(_ context.Context, kind string, alerts, warnings int) error {
	base := screening.FraudCatalog(screening.DefaultFraudConfig())
	if kind == "risk" {
		base = screening.RiskCatalog(screening.DefaultRiskConfig())
	}
	s.catalog = screening.Catalog{
		Name: base.Name,
		Rules: []screening.Rule{{
			ID: "E2E-SIGNALS",
			Check: func(_ context.Context, _ screening.Subject, out *screening.Signals) error {
				for range alerts {
					out.Alert("synthetic alert")
				}
				for range warnings {
					out.Warn("synthetic warning")
				}
				return nil
			},
		}},
		Scoring: base.Scoring,
	}
	return nil
}

func (s *screeningSteps) evaluate(ctx context.Context, adapterID string) error {
	a, err := s.adapter(ctx, adapterID)
	if err != nil {
		return err
	}
	s.result = screening.NewEngine(s.catalog).Evaluate(ctx, a, s.request, s.tc.Tenant())
	return nil
}

func (s *screeningSteps) complianceAlertsInclude(_ context.Context, alert string) error {
	if !slices.Contains(s.outcome.Compliance.Alerts, alert) {
		return fmt.Errorf("alert %q not in %v", alert, s.outcome.Compliance.Alerts)
	}
	return nil
}

func (s *screeningSteps) notCompliant(context.Context) error {
	if s.outcome.Compliance.IsCompliant() {
		return fmt.Errorf("payment was compliant")
	}
	return nil
}

func (s *screeningSteps) scoreIs(_ context.Context, want float64) error {
	if math.Abs(s.result.Score-want) > 1e-9 {
		return fmt.Errorf("expected score %v, got %v", want, s.result.Score)
	}
	return nil
}

func (s *screeningSteps) fraudDetected(context.Context) error {
	if !s.result.IsFraudDetected() {
		return fmt.Errorf("fraud not detected at score %v", s.result.Score)
	}
	return nil
}

func (s *screeningSteps) levelIs(_ context.Context, level string) error {
	if string(s.result.Level) != level {
		return fmt.Errorf("expected level %s, got %s", level, s.result.Level)
	}
	return nil
}

func (s *screeningSteps) outcomeIs(_ context.Context, outcome string) error {
	if s.submitted == nil {
		return fmt.Errorf("no payment was submitted")
	}
	if string(s.submitted.Outcome) != outcome {
		return fmt.Errorf("expected outcome %s, got %s (%v)", outcome, s.submitted.Outcome, s.submitted.Alerts)
	}
	return nil
}
