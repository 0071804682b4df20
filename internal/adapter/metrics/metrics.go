package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics provides observability for the adapter module.
// Tracks operation outcomes, adapter creation and payment submissions.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	AdaptersCreated   prometheus.Counter
	Payments          *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
}

// New registers the adapter metrics with reg, or with the default registerer
// when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clearing_adapter_operations_total",
			Help: "Adapter service operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clearing_adapter_operation_duration_seconds",
			Help:    "Duration of adapter service operations",
			Buckets: durationBuckets,
		}, []string{"operation"}),
		AdaptersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "clearing_adapters_created_total",
			Help: "Total number of clearing adapters created",
		}),
		Payments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clearing_payments_total",
			Help: "Payment submissions by outcome and fraud verdict",
		}, []string{"outcome", "fraud_verdict"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clearing_adapter_events_unpublished_total",
			Help: "Domain events persisted but not published",
		}, []string{"event_type"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clearing_adapter_cache_lookups_total",
			Help: "Adapter cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
	}
}

// ObserveOperation records the outcome and duration of a service operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, err error, start time.Time) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncrementAdaptersCreated records a successful adapter creation.
func (m *Metrics) IncrementAdaptersCreated() {
	m.AdaptersCreated.Inc()
}

// IncrementPayment records a payment submission result.
func (m *Metrics) IncrementPayment(outcome, fraudVerdict string) {
	m.Payments.WithLabelValues(outcome, fraudVerdict).Inc()
}

// IncrementEventUnpublished records an event that failed to publish.
func (m *Metrics) IncrementEventUnpublished(eventType string) {
	m.EventsDropped.WithLabelValues(eventType).Inc()
}

// IncrementCacheLookup records a cache hit, miss or error.
func (m *Metrics) IncrementCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}
