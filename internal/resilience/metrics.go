package resilience

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks pipeline outcomes per category.
type Metrics struct {
	Calls        *prometheus.CounterVec
	Retries      *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec
	CallDuration *prometheus.HistogramVec
}

// NewMetrics registers the pipeline metrics with reg, or with the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clearing_resilience_calls_total",
			Help: "Pipeline calls by category and outcome",
		}, []string{"category", "outcome"}),
		Retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clearing_resilience_retries_total",
			Help: "Physical retry attempts by category",
		}, []string{"category"}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clearing_resilience_breaker_state",
			Help: "Circuit breaker state per category (0 closed, 1 open, 2 half-open)",
		}, []string{"category", "scope"}),
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clearing_resilience_call_duration_seconds",
			Help:    "Duration of pipeline calls including retries",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"category"}),
	}
}

// ObserveCall records a finished call. outcome is "success", "client_error"
// or a failure Reason.
func (m *Metrics) ObserveCall(category Category, outcome string, start time.Time) {
	m.Calls.WithLabelValues(string(category), outcome).Inc()
	m.CallDuration.WithLabelValues(string(category)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementRetry(category Category) {
	m.Retries.WithLabelValues(string(category)).Inc()
}

func (m *Metrics) SetBreakerState(category Category, scope string, state State) {
	m.BreakerState.WithLabelValues(string(category), scope).Set(float64(state))
}
