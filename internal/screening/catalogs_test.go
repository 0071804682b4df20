package screening

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clearing/internal/adapter/models"
)

type CatalogSuite struct {
	suite.Suite
	ctx       context.Context
	adapter   *models.ClearingAdapter
	sanctions *ListScreener
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) SetupTest() {
	s.ctx = context.Background()
	a, _, err := models.NewClearingAdapter("A1", tenant, "samos-main", "https://samos.example", "ops", evalTime.Add(-time.Hour))
	s.Require().NoError(err)
	a.CertificateRef = "vault:cert/samos"
	_, err = a.AddRoute(models.NewRoute{ID: "r1", Name: "domestic", Destination: "ZA", Priority: 1}, "ops", evalTime)
	s.Require().NoError(err)
	s.adapter = a
	s.sanctions = NewListScreener("Blocked Holdings Ltd")
}

func (s *CatalogSuite) cleanRequest() models.PaymentRequest {
	return models.PaymentRequest{
		PaymentID:   "P1",
		Amount:      1_234_56,
		Currency:    "ZAR",
		Debtor:      models.Party{Name: "Acme Ltd", Account: "62000000001", AgentBIC: "FIRNZAJJ", CustomerID: "C-1"},
		Creditor:    models.Party{Name: "Widget Co", Account: "10100000002", AgentBIC: "SBZAZAJJ"},
		Destination: "ZA",
		ValueDate:   evalTime,
		SubmittedAt: evalTime,
	}
}

func (s *CatalogSuite) engine(c Catalog) *Engine {
	return NewEngine(c, WithClock(func() time.Time { return evalTime }))
}

func (s *CatalogSuite) TestCleanPaymentPassesAllEngines() {
	screener := NewScreener(
		s.engine(ComplianceCatalog(ComplianceConfig{AMLThreshold: 2_500_000_00, ReportingThreshold: 5_000_000_00, Sanctions: s.sanctions})),
		s.engine(FraudCatalog(DefaultFraudConfig())),
		s.engine(RiskCatalog(DefaultRiskConfig())),
	)

	out := screener.Screen(s.ctx, s.adapter, s.cleanRequest(), tenant)

	s.False(out.Blocked())
	s.Equal(VerdictPass, out.FraudVerdict)
	s.Require().NotNil(out.Risk)
	s.Equal(LevelMinimal, out.Risk.Level)
	s.Len(out.Compliance.AppliedRuleIDs, 5)
	s.Len(out.Fraud.AppliedRuleIDs, 5)
	s.Len(out.Risk.AppliedRuleIDs, 5)
}

func (s *CatalogSuite) TestComplianceRequiresBeneficiaryAccount() {
	req := s.cleanRequest()
	req.Creditor.Account = ""

	res := s.engine(ComplianceCatalog(DefaultComplianceConfig())).Evaluate(s.ctx, s.adapter, req, tenant)

	s.Contains(res.Alerts, "beneficiary account required")
	s.False(res.IsCompliant())
	s.Equal([]string{"CMP-AML-THRESHOLD", "CMP-KYC-FIELDS", "CMP-SANCTIONS", "CMP-REG-REPORTING", "CMP-ADAPTER-STATE"}, res.AppliedRuleIDs)
}

func (s *CatalogSuite) TestComplianceRules() {
	cfg := ComplianceConfig{AMLThreshold: 1_000_00, ReportingThreshold: 2_000_00, Sanctions: s.sanctions}

	s.Run("sanctioned party", func() {
		req := s.cleanRequest()
		req.Creditor.Name = "  blocked   HOLDINGS ltd "
		res := s.engine(ComplianceCatalog(cfg)).Evaluate(s.ctx, s.adapter, req, tenant)
		s.Contains(res.Alerts, "sanctions list match:   blocked   HOLDINGS ltd ")
	})

	s.Run("screener outage fails closed", func() {
		cfg := cfg
		cfg.Sanctions = failingScreener{}
		res := s.engine(ComplianceCatalog(cfg)).Evaluate(s.ctx, s.adapter, s.cleanRequest(), tenant)
		s.Contains(res.Alerts, "CMP-SANCTIONS: rule evaluation fault")
		s.False(res.IsCompliant())
	})

	s.Run("AML threshold without remittance info", func() {
		res := s.engine(ComplianceCatalog(cfg)).Evaluate(s.ctx, s.adapter, s.cleanRequest(), tenant)
		s.Contains(res.Alerts, "remittance information required above AML threshold")
	})

	s.Run("AML threshold with remittance info only warns", func() {
		req := s.cleanRequest()
		req.RemittanceInfo = "INV-2026-044"
		res := s.engine(ComplianceCatalog(cfg)).Evaluate(s.ctx, s.adapter, req, tenant)
		s.True(res.IsCompliant())
		s.Contains(res.Warnings, "amount 1234.56 ZAR at or above AML threshold")
	})

	s.Run("cross-border is reportable", func() {
		req := s.cleanRequest()
		req.Creditor.AgentBIC = "DEUTDEFF"
		res := s.engine(ComplianceCatalog(DefaultComplianceConfig())).Evaluate(s.ctx, s.adapter, req, tenant)
		s.Contains(res.Warnings, "cross-border payment is reportable")
	})

	s.Run("inactive adapter", func() {
		a := s.adapter.Clone()
		a.Deactivate("maintenance", "ops", evalTime)
		res := s.engine(ComplianceCatalog(DefaultComplianceConfig())).Evaluate(s.ctx, a, s.cleanRequest(), tenant)
		s.Contains(res.Alerts, "adapter is not active")
	})
}

func (s *CatalogSuite) TestFraudScoreScenario() {
	// two alerts (high value, self transfer) and one warning (weekend)
	req := s.cleanRequest()
	req.Amount = 10_000_000_01
	req.Creditor.Account = req.Debtor.Account
	req.SubmittedAt = time.Date(2026, 4, 11, 10, 0, 0, 0, time.UTC) // Saturday

	res := s.engine(FraudCatalog(DefaultFraudConfig())).Evaluate(s.ctx, s.adapter, req, tenant)

	s.Len(res.Alerts, 2)
	s.Len(res.Warnings, 1)
	s.Equal(0.7, res.Score)
	s.True(res.IsFraudDetected())
	s.Equal(VerdictBlock, res.Verdict())
}

func (s *CatalogSuite) TestFraudVelocity() {
	cfg := DefaultFraudConfig()
	cfg.VelocityLimit = 3
	hash := "a3f1c4e2b5d60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"
	for i := range 3 {
		_, err := s.adapter.LogMessage(models.NewLogEntry{
			ID: string(rune('a' + i)), Direction: models.DirectionOutbound, MessageType: "pacs.008", PayloadHash: hash,
		}, evalTime.Add(-time.Duration(3-i)*time.Second))
		s.Require().NoError(err)
	}

	res := s.engine(FraudCatalog(cfg)).Evaluate(s.ctx, s.adapter, s.cleanRequest(), tenant)
	s.Contains(res.Alerts, "3 outbound messages in the last 1m0s")
	s.Equal(VerdictFlag, res.Verdict(), "one alert flags but does not block")
}

func (s *CatalogSuite) TestRiskLevelScenario() {
	// one alert (value date in the past) and one warning (no routes)
	a, _, err := models.NewClearingAdapter("A2", tenant, "samos-dr", "https://dr.samos.example", "ops", evalTime)
	s.Require().NoError(err)
	a.CertificateRef = "vault:cert/samos-dr"
	req := s.cleanRequest()
	req.ValueDate = evalTime.AddDate(0, 0, -2)

	res := s.engine(RiskCatalog(DefaultRiskConfig())).Evaluate(s.ctx, a, req, tenant)

	s.Equal([]string{"value date is in the past"}, res.Alerts)
	s.Equal([]string{"adapter has no routes configured"}, res.Warnings)
	s.Equal(0.55, res.Score)
	s.Equal(LevelMedium, res.Level)
	s.True(res.Passed, "MEDIUM is below the HIGH gate")
}

func (s *CatalogSuite) TestRiskRules() {
	s.Run("plain http endpoint and unknown currency", func() {
		a, _, err := models.NewClearingAdapter("A3", tenant, "legacy", "http://legacy.example", "ops", evalTime)
		s.Require().NoError(err)
		req := s.cleanRequest()
		req.Currency = "XAU"
		res := s.engine(RiskCatalog(DefaultRiskConfig())).Evaluate(s.ctx, a, req, tenant)
		s.Contains(res.Alerts, "endpoint does not use TLS")
		s.Contains(res.Alerts, "currency XAU is not settled by the network")
		s.Equal(LevelCritical, res.Level)
		s.False(res.Passed)
	})

	s.Run("unrouted destination", func() {
		req := s.cleanRequest()
		req.Destination = "NA"
		res := s.engine(RiskCatalog(DefaultRiskConfig())).Evaluate(s.ctx, s.adapter, req, tenant)
		s.Contains(res.Alerts, `no route to destination "NA"`)
	})
}

func (s *CatalogSuite) TestScreenerShortCircuits() {
	screener := NewScreener(
		s.engine(ComplianceCatalog(DefaultComplianceConfig())),
		s.engine(FraudCatalog(DefaultFraudConfig())),
		s.engine(RiskCatalog(DefaultRiskConfig())),
	)

	s.Run("compliance block skips fraud and risk", func() {
		req := s.cleanRequest()
		req.Creditor.Account = ""
		out := screener.Screen(s.ctx, s.adapter, req, tenant)
		s.Equal(StageCompliance, out.BlockedBy)
		s.Nil(out.Fraud)
		s.Nil(out.Risk)
		s.Contains(out.Alerts(), "beneficiary account required")
	})

	s.Run("fraud flag continues to risk", func() {
		req := s.cleanRequest()
		req.SubmittedAt = time.Date(2026, 4, 7, 22, 0, 0, 0, time.UTC)
		out := screener.Screen(s.ctx, s.adapter, req, tenant)
		s.False(out.Blocked())
		s.Equal(VerdictFlag, out.FraudVerdict)
		s.NotNil(out.Risk)
	})

	s.Run("fraud block skips risk", func() {
		req := s.cleanRequest()
		req.Amount = 10_000_000_01
		req.RemittanceInfo = "INV-2026-051"
		req.Creditor.Account = req.Debtor.Account
		req.SubmittedAt = time.Date(2026, 4, 7, 22, 0, 0, 0, time.UTC)
		out := screener.Screen(s.ctx, s.adapter, req, tenant)
		s.Equal(StageFraud, out.BlockedBy)
		s.Nil(out.Risk)
	})
}

type failingScreener struct{}

func (failingScreener) Screen(context.Context, ...string) ([]string, error) {
	return nil, errors.New("sanctions provider timeout")
}
