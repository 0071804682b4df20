package screening

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clearing/internal/adapter/models"
)

// FraudConfig holds fraud heuristics. Amounts are in minor units.
type FraudConfig struct {
	AlertWeight    float64
	WarningWeight  float64
	Threshold      float64
	HighValue      int64
	VelocityWindow time.Duration
	VelocityLimit  int
	RoundUnit      int64
	RoundMinimum   int64
	BusinessStart  int // hour, inclusive
	BusinessEnd    int // hour, exclusive
	Location       *time.Location
}

func DefaultFraudConfig() FraudConfig {
	return FraudConfig{
		AlertWeight:    0.3,
		WarningWeight:  0.1,
		Threshold:      0.7,
		HighValue:      10_000_000_00,
		VelocityWindow: time.Minute,
		VelocityLimit:  60,
		RoundUnit:      1_000_00,
		RoundMinimum:   100_000_00,
		BusinessStart:  7,
		BusinessEnd:    19,
		Location:       time.UTC,
	}
}

// FraudCatalog builds the fraud rules. The result fails (fraud detected) when
// the score reaches the threshold, inclusive.
func FraudCatalog(cfg FraudConfig) Catalog {
	return Catalog{
		Name: "fraud",
		Rules: []Rule{
			{ID: "FRD-HIGH-VALUE", Check: highValue(cfg)},
			{ID: "FRD-VELOCITY", Check: velocity(cfg)},
			{ID: "FRD-ROUND-AMOUNT", Check: roundAmount(cfg)},
			{ID: "FRD-SELF-TRANSFER", Check: selfTransfer},
			{ID: "FRD-OFF-HOURS", Check: offHours(cfg)},
		},
		Scoring: Scoring{
			Mode:          DecideScoreThreshold,
			AlertWeight:   cfg.AlertWeight,
			WarningWeight: cfg.WarningWeight,
			Threshold:     cfg.Threshold,
		},
	}
}

func highValue(cfg FraudConfig) func(context.Context, Subject, *Signals) error {
	return func(_ context.Context, s Subject, out *Signals) error {
		switch {
		case s.Request.Amount >= cfg.HighValue:
			out.Alert("amount exceeds high-value limit")
		case s.Request.Amount >= cfg.HighValue/2:
			out.Warn("amount approaching high-value limit")
		}
		return nil
	}
}

func velocity(cfg FraudConfig) func(context.Context, Subject, *Signals) error {
	return func(_ context.Context, s Subject, out *Signals) error {
		if s.Adapter == nil || cfg.VelocityLimit <= 0 {
			return nil
		}
		recent := s.Adapter.MessagesSince(models.DirectionOutbound, s.Now.Add(-cfg.VelocityWindow))
		switch {
		case recent >= cfg.VelocityLimit:
			out.Alert(fmt.Sprintf("%d outbound messages in the last %s", recent, cfg.VelocityWindow))
		case recent*5 >= cfg.VelocityLimit*4:
			out.Warn("outbound message rate approaching limit")
		}
		return nil
	}
}

func roundAmount(cfg FraudConfig) func(context.Context, Subject, *Signals) error {
	return func(_ context.Context, s Subject, out *Signals) error {
		if cfg.RoundUnit > 0 && s.Request.Amount >= cfg.RoundMinimum && s.Request.Amount%cfg.RoundUnit == 0 {
			out.Warn("large round-figure amount")
		}
		return nil
	}
}

func selfTransfer(_ context.Context, s Subject, out *Signals) error {
	debtor := strings.TrimSpace(s.Request.Debtor.Account)
	if debtor != "" && debtor == strings.TrimSpace(s.Request.Creditor.Account) {
		out.Alert("originator and beneficiary accounts are identical")
	}
	return nil
}

func offHours(cfg FraudConfig) func(context.Context, Subject, *Signals) error {
	return func(_ context.Context, s Subject, out *Signals) error {
		at := s.Request.SubmittedAt
		if at.IsZero() {
			at = s.Now
		}
		loc := cfg.Location
		if loc == nil {
			loc = time.UTC
		}
		local := at.In(loc)
		weekend := local.Weekday() == time.Saturday || local.Weekday() == time.Sunday
		if weekend || local.Hour() < cfg.BusinessStart || local.Hour() >= cfg.BusinessEnd {
			out.Warn("submitted outside business hours")
		}
		return nil
	}
}
