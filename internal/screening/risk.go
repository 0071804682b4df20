package screening

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// RiskConfig holds risk limits. Amounts are in minor units.
type RiskConfig struct {
	AlertWeight         float64
	WarningWeight       float64
	Gate                Level
	ExposureLimit       int64
	DomesticCurrencies  []string
	SettledCurrencies   []string
	MaxForwardValueDays int
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		AlertWeight:         0.4,
		WarningWeight:       0.15,
		Gate:                LevelHigh,
		ExposureLimit:       50_000_000_00,
		DomesticCurrencies:  []string{"ZAR"},
		SettledCurrencies:   []string{"ZAR", "USD", "EUR", "GBP"},
		MaxForwardValueDays: 30,
	}
}

// RiskCatalog builds the risk rules. The score is banded into a level and
// the payment is held at or above the gate level.
func RiskCatalog(cfg RiskConfig) Catalog {
	return Catalog{
		Name: "risk",
		Rules: []Rule{
			{ID: "RSK-EXPOSURE", Check: exposure(cfg)},
			{ID: "RSK-CURRENCY", Check: currency(cfg)},
			{ID: "RSK-ROUTE", Check: routeAvailability},
			{ID: "RSK-TRANSPORT-SECURITY", Check: transportSecurity},
			{ID: "RSK-VALUE-DATE", Check: valueDate(cfg)},
		},
		Scoring: Scoring{
			Mode:          DecideLevelGate,
			AlertWeight:   cfg.AlertWeight,
			WarningWeight: cfg.WarningWeight,
			Bands:         RiskBands,
			Gate:          cfg.Gate,
		},
	}
}

func exposure(cfg RiskConfig) func(context.Context, Subject, *Signals) error {
	return func(_ context.Context, s Subject, out *Signals) error {
		switch {
		case s.Request.Amount > cfg.ExposureLimit:
			out.Alert("amount exceeds settlement exposure limit")
		case s.Request.Amount > cfg.ExposureLimit/2:
			out.Warn("amount above half the settlement exposure limit")
		}
		return nil
	}
}

func currency(cfg RiskConfig) func(context.Context, Subject, *Signals) error {
	return func(_ context.Context, s Subject, out *Signals) error {
		c := s.Request.Currency
		switch {
		case slices.Contains(cfg.DomesticCurrencies, c):
		case slices.Contains(cfg.SettledCurrencies, c):
			out.Warn("foreign currency settlement " + c)
		default:
			out.Alert("currency " + c + " is not settled by the network")
		}
		return nil
	}
}

func routeAvailability(_ context.Context, s Subject, out *Signals) error {
	if s.Adapter == nil {
		return nil
	}
	if len(s.Adapter.Routes) == 0 {
		out.Warn("adapter has no routes configured")
		return nil
	}
	if _, ok := s.Adapter.ResolveRoute(s.Request.Destination); !ok {
		out.Alert(fmt.Sprintf("no route to destination %q", s.Request.Destination))
	}
	return nil
}

func transportSecurity(_ context.Context, s Subject, out *Signals) error {
	if s.Adapter == nil {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(s.Adapter.Endpoint), "http://") {
		out.Alert("endpoint does not use TLS")
	}
	if strings.TrimSpace(s.Adapter.CertificateRef) == "" {
		out.Warn("no client certificate configured")
	}
	return nil
}

func valueDate(cfg RiskConfig) func(context.Context, Subject, *Signals) error {
	return func(_ context.Context, s Subject, out *Signals) error {
		if s.Request.ValueDate.IsZero() {
			return nil
		}
		today := s.Now.UTC().Truncate(24 * time.Hour)
		value := s.Request.ValueDate.UTC().Truncate(24 * time.Hour)
		switch {
		case value.Before(today):
			out.Alert("value date is in the past")
		case value.After(today.AddDate(0, 0, cfg.MaxForwardValueDays)):
			out.Warn("value date is far in the future")
		}
		return nil
	}
}
