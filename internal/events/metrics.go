package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for event delivery.
type Metrics struct {
	Published      *prometheus.CounterVec
	BufferDropped  prometheus.Counter
	OutboxRelayed  prometheus.Counter
	OutboxFailures prometheus.Counter
	OutboxPending  prometheus.Gauge
}

// NewMetrics registers the event metrics with reg, or the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clearing_events_published_total",
			Help: "Domain events handed to a sink, by sink and outcome",
		}, []string{"sink", "outcome"}),
		BufferDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "clearing_events_buffer_dropped_total",
			Help: "Events dropped because the publish buffer was full",
		}),
		OutboxRelayed: f.NewCounter(prometheus.CounterOpts{
			Name: "clearing_outbox_relayed_total",
			Help: "Outbox entries delivered and marked processed",
		}),
		OutboxFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "clearing_outbox_relay_failures_total",
			Help: "Outbox relay batches that failed",
		}),
		OutboxPending: f.NewGauge(prometheus.GaugeOpts{
			Name: "clearing_outbox_pending",
			Help: "Unprocessed outbox entries seen by the last relay pass",
		}),
	}
}

func (m *Metrics) ObservePublish(sink string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.Published.WithLabelValues(sink, outcome).Inc()
}

func (m *Metrics) IncrementBufferDropped() {
	m.BufferDropped.Inc()
}

func (m *Metrics) AddOutboxRelayed(n int) {
	m.OutboxRelayed.Add(float64(n))
}

func (m *Metrics) IncrementOutboxFailure() {
	m.OutboxFailures.Inc()
}

func (m *Metrics) SetOutboxPending(n int) {
	m.OutboxPending.Set(float64(n))
}
