package screening

import (
	"context"
	"fmt"
	"strings"

	"clearing/internal/iso20022"
)

// ComplianceConfig holds compliance thresholds in minor units.
type ComplianceConfig struct {
	AMLThreshold       int64
	ReportingThreshold int64
	Sanctions          SanctionsScreener
}

// DefaultComplianceConfig reports from 2.5m and 5m major units.
func DefaultComplianceConfig() ComplianceConfig {
	return ComplianceConfig{
		AMLThreshold:       2_500_000_00,
		ReportingThreshold: 5_000_000_00,
		Sanctions:          NewListScreener(),
	}
}

// ComplianceCatalog builds the compliance rules. The result passes only when
// no alert was raised; there is no score.
func ComplianceCatalog(cfg ComplianceConfig) Catalog {
	return Catalog{
		Name: "compliance",
		Rules: []Rule{
			{ID: "CMP-AML-THRESHOLD", Check: amlThreshold(cfg)},
			{ID: "CMP-KYC-FIELDS", Check: kycFields},
			{ID: "CMP-SANCTIONS", Check: sanctionsCheck(cfg.Sanctions)},
			{ID: "CMP-REG-REPORTING", Check: regulatoryReporting(cfg)},
			{ID: "CMP-ADAPTER-STATE", Check: adapterState},
		},
		Scoring: Scoring{Mode: DecideNoAlerts},
	}
}

func amlThreshold(cfg ComplianceConfig) func(context.Context, Subject, *Signals) error {
	return func(_ context.Context, s Subject, out *Signals) error {
		if s.Request.Amount < cfg.AMLThreshold {
			return nil
		}
		if strings.TrimSpace(s.Request.RemittanceInfo) == "" {
			out.Alert("remittance information required above AML threshold")
			return nil
		}
		out.Warn(fmt.Sprintf("amount %s %s at or above AML threshold",
			iso20022.FormatAmount(s.Request.Amount, s.Request.Currency), s.Request.Currency))
		return nil
	}
}

func kycFields(_ context.Context, s Subject, out *Signals) error {
	r := s.Request
	if strings.TrimSpace(r.Creditor.Account) == "" {
		out.Alert("beneficiary account required")
	}
	if strings.TrimSpace(r.Creditor.Name) == "" {
		out.Alert("beneficiary name required")
	}
	if strings.TrimSpace(r.Debtor.Account) == "" {
		out.Alert("originator account required")
	}
	if strings.TrimSpace(r.Debtor.Name) == "" {
		out.Alert("originator name required")
	}
	if strings.TrimSpace(r.Debtor.CustomerID) == "" {
		out.Warn("originator customer id missing")
	}
	return nil
}

func sanctionsCheck(screener SanctionsScreener) func(context.Context, Subject, *Signals) error {
	return func(ctx context.Context, s Subject, out *Signals) error {
		if screener == nil {
			return fmt.Errorf("no sanctions screener configured")
		}
		hits, err := screener.Screen(ctx, s.Request.Debtor.Name, s.Request.Creditor.Name)
		if err != nil {
			return fmt.Errorf("screen parties: %w", err)
		}
		for _, h := range hits {
			out.Alert("sanctions list match: " + h)
		}
		return nil
	}
}

func regulatoryReporting(cfg ComplianceConfig) func(context.Context, Subject, *Signals) error {
	return func(_ context.Context, s Subject, out *Signals) error {
		if s.Request.Amount >= cfg.ReportingThreshold {
			out.Warn("regulatory report required")
		}
		if crossBorder(s.Request.Debtor.AgentBIC, s.Request.Creditor.AgentBIC) {
			out.Warn("cross-border payment is reportable")
		}
		return nil
	}
}

func adapterState(_ context.Context, s Subject, out *Signals) error {
	if s.Adapter == nil {
		out.Alert("adapter unknown")
		return nil
	}
	if !s.Adapter.IsActive() {
		out.Alert("adapter is not active")
	}
	if !s.Adapter.EncryptionEnabled {
		out.Alert("encryption must be enabled for clearing traffic")
	}
	return nil
}

// crossBorder compares the country code (characters 5-6) of two BICs.
func crossBorder(a, b string) bool {
	if len(a) < 6 || len(b) < 6 {
		return false
	}
	return !strings.EqualFold(a[4:6], b[4:6])
}
