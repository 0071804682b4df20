package screening

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks screening outcomes.
type Metrics struct {
	Evaluations *prometheus.CounterVec
	Scores      *prometheus.HistogramVec
	RuleFaults  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clearing_screening_evaluations_total",
			Help: "Screening evaluations by engine and decision",
		}, []string{"engine", "decision"}),
		Scores: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clearing_screening_score",
			Help:    "Distribution of screening scores",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}, []string{"engine"}),
		RuleFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clearing_screening_rule_faults_total",
			Help: "Rules that errored or panicked and were failed closed",
		}, []string{"engine", "rule_id"}),
	}
}

func (m *Metrics) ObserveEvaluation(engine string, res Result) {
	decision := "pass"
	if !res.Passed {
		decision = "fail"
	}
	m.Evaluations.WithLabelValues(engine, decision).Inc()
	m.Scores.WithLabelValues(engine).Observe(res.Score)
}

func (m *Metrics) IncrementRuleFault(engine, ruleID string) {
	m.RuleFaults.WithLabelValues(engine, ruleID).Inc()
}
