package screening

import (
	"time"

	id "clearing/pkg/domain"
)

// Level is a risk band.
type Level string

const (
	LevelNone     Level = ""
	LevelMinimal  Level = "MINIMAL"
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

var levelRank = map[Level]int{
	LevelNone:     0,
	LevelMinimal:  1,
	LevelLow:      2,
	LevelMedium:   3,
	LevelHigh:     4,
	LevelCritical: 5,
}

// AtLeast reports whether l is as severe as other or more.
func (l Level) AtLeast(other Level) bool {
	return levelRank[l] >= levelRank[other]
}

// Verdict is the three-way fraud outcome.
type Verdict string

const (
	VerdictPass  Verdict = "pass"
	VerdictFlag  Verdict = "flag"
	VerdictBlock Verdict = "block"
)

// Result is the immutable outcome of one engine run.
type Result struct {
	Engine         string           `json:"engine"`
	SubjectID      id.AdapterID     `json:"subject_id"`
	CorrelationID  id.PaymentID     `json:"correlation_id"`
	Passed         bool             `json:"passed"`
	Score          float64          `json:"score"`
	Level          Level            `json:"level,omitempty"`
	AppliedRuleIDs []string         `json:"applied_rule_ids"`
	Alerts         []string         `json:"alerts"`
	Warnings       []string         `json:"warnings"`
	Faults         []string         `json:"faults,omitempty"`
	EvaluatedAt    time.Time        `json:"evaluated_at"`
	Tenant         id.TenantContext `json:"tenant"`
}

// IsCompliant is the compliance reading of the result: no alerts.
func (r Result) IsCompliant() bool {
	return len(r.Alerts) == 0
}

// IsFraudDetected is the fraud reading: the score reached the threshold.
func (r Result) IsFraudDetected() bool {
	return !r.Passed
}

// Verdict splits a fraud result into block, flag and pass. A result that is
// not blocked but carries any signal is flagged for review.
func (r Result) Verdict() Verdict {
	switch {
	case !r.Passed:
		return VerdictBlock
	case len(r.Alerts) > 0 || len(r.Warnings) > 0:
		return VerdictFlag
	default:
		return VerdictPass
	}
}
