package screening

import (
	"context"

	"clearing/internal/adapter/models"
	id "clearing/pkg/domain"
)

// Stage names where a payment was stopped.
const (
	StageCompliance = "compliance"
	StageFraud      = "fraud"
	StageRisk       = "risk"
)

// Outcome is the combined result of screening one payment. Engines after a
// blocking stage do not run and their result is nil.
type Outcome struct {
	Compliance   *Result `json:"compliance"`
	Fraud        *Result `json:"fraud,omitempty"`
	Risk         *Result `json:"risk,omitempty"`
	FraudVerdict Verdict `json:"fraud_verdict,omitempty"`
	BlockedBy    string  `json:"blocked_by,omitempty"`
}

// Blocked reports whether any stage stopped the payment.
func (o Outcome) Blocked() bool {
	return o.BlockedBy != ""
}

// Alerts returns the alerts of the blocking stage, for the audit trail.
func (o Outcome) Alerts() []string {
	switch o.BlockedBy {
	case StageCompliance:
		return o.Compliance.Alerts
	case StageFraud:
		return o.Fraud.Alerts
	case StageRisk:
		return o.Risk.Alerts
	}
	return nil
}

// Screener runs compliance, then fraud, then risk. Warnings and flags never
// stop the sequence; a blocking result does.
type Screener struct {
	compliance *Engine
	fraud      *Engine
	risk       *Engine
}

func NewScreener(compliance, fraud, risk *Engine) *Screener {
	return &Screener{compliance: compliance, fraud: fraud, risk: risk}
}

// NewDefaultScreener wires the three standard catalogs.
func NewDefaultScreener(sanctions SanctionsScreener, opts ...Option) *Screener {
	cc := DefaultComplianceConfig()
	if sanctions != nil {
		cc.Sanctions = sanctions
	}
	return NewScreener(
		NewEngine(ComplianceCatalog(cc), opts...),
		NewEngine(FraudCatalog(DefaultFraudConfig()), opts...),
		NewEngine(RiskCatalog(DefaultRiskConfig()), opts...),
	)
}

func (s *Screener) Screen(ctx context.Context, adapter *models.ClearingAdapter, req models.PaymentRequest, tenant id.TenantContext) Outcome {
	var out Outcome

	compliance := s.compliance.Evaluate(ctx, adapter, req, tenant)
	out.Compliance = &compliance
	if !compliance.Passed {
		out.BlockedBy = StageCompliance
		return out
	}

	fraud := s.fraud.Evaluate(ctx, adapter, req, tenant)
	out.Fraud = &fraud
	out.FraudVerdict = fraud.Verdict()
	if out.FraudVerdict == VerdictBlock {
		out.BlockedBy = StageFraud
		return out
	}

	risk := s.risk.Evaluate(ctx, adapter, req, tenant)
	out.Risk = &risk
	if !risk.Passed {
		out.BlockedBy = StageRisk
	}
	return out
}
