package screening

import (
	"context"
	"math"
	"time"

	"clearing/internal/adapter/models"
	id "clearing/pkg/domain"
)

// Subject is what the rules look at.
type Subject struct {
	Adapter *models.ClearingAdapter
	Request models.PaymentRequest
	Tenant  id.TenantContext
	Now     time.Time
}

// Signals collects a rule's output.
type Signals struct {
	alerts   []string
	warnings []string
}

// Alert raises a hard signal.
func (s *Signals) Alert(msg string) { s.alerts = append(s.alerts, msg) }

// Warn raises a soft signal.
func (s *Signals) Warn(msg string) { s.warnings = append(s.warnings, msg) }

// Rule is one named predicate. Check may raise any number of signals; a
// returned error or a panic is turned into an alert for the rule.
type Rule struct {
	ID    string
	Check func(ctx context.Context, s Subject, out *Signals) error
}

// DecisionMode selects how a catalog turns signals into a pass/fail.
type DecisionMode int

const (
	// DecideNoAlerts passes when no alert was raised. No score is computed.
	DecideNoAlerts DecisionMode = iota
	// DecideScoreThreshold fails when the score reaches Threshold.
	DecideScoreThreshold
	// DecideLevelGate fails when the banded level reaches Gate.
	DecideLevelGate
)

// Band maps scores at or above Min to Level.
type Band struct {
	Min   float64
	Level Level
}

// Scoring weighs signals and decides.
type Scoring struct {
	Mode          DecisionMode
	AlertWeight   float64
	WarningWeight float64
	Threshold     float64
	Bands         []Band // highest Min first
	Gate          Level
}

// Score returns min(1, alerts*AlertWeight + warnings*WarningWeight), rounded
// to six decimals so inclusive thresholds compare exactly.
func (p Scoring) Score(alerts, warnings int) float64 {
	raw := float64(alerts)*p.AlertWeight + float64(warnings)*p.WarningWeight
	return math.Round(math.Min(1, math.Max(0, raw))*1e6) / 1e6
}

// LevelFor maps score to the first band whose floor it reaches.
func (p Scoring) LevelFor(score float64) Level {
	for _, b := range p.Bands {
		if score >= b.Min {
			return b.Level
		}
	}
	return LevelNone
}

// Catalog is an ordered rule list plus its scoring policy.
type Catalog struct {
	Name    string
	Rules   []Rule
	Scoring Scoring
}

// RiskBands are the standard risk levels.
var RiskBands = []Band{
	{Min: 0.8, Level: LevelCritical},
	{Min: 0.6, Level: LevelHigh},
	{Min: 0.4, Level: LevelMedium},
	{Min: 0.2, Level: LevelLow},
	{Min: 0, Level: LevelMinimal},
}
