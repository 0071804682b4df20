// Package events delivers adapter domain events. Sinks live in subpackages
// (kafka, stan, webhook, outbox); this package holds the wire encoding and
// the decorators that compose sinks: fan-out, resilience and buffering.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"clearing/internal/adapter/models"
	"clearing/internal/adapter/ports"
	"clearing/internal/resilience"
)

// Header names carried with every encoded event.
const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
	HeaderTenantID  = "tenant-id"
)

// Encode is the wire form shared by every sink.
func Encode(e models.DomainEvent) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	return b, nil
}

func Decode(b []byte) (models.DomainEvent, error) {
	var e models.DomainEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return models.DomainEvent{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

// Headers returns the routing metadata for e.
func Headers(e models.DomainEvent) map[string]string {
	return map[string]string{
		HeaderEventID:   e.ID,
		HeaderEventType: string(e.Type),
		HeaderTenantID:  string(e.Tenant.TenantID),
	}
}

// LogPublisher writes events to the structured log. It is the sink of last
// resort when no bus is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e models.DomainEvent) error {
	p.logger.InfoContext(ctx, "domain event",
		"event_id", e.ID,
		"event_type", string(e.Type),
		"adapter_id", string(e.AggregateID),
		"tenant_id", string(e.Tenant.TenantID),
		"occurred_at", e.OccurredAt,
	)
	return nil
}

// Fanout publishes to every sink and joins their errors. One failing sink
// does not stop the others.
type Fanout struct {
	sinks []ports.EventPublisher
}

func NewFanout(sinks ...ports.EventPublisher) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Publish(ctx context.Context, e models.DomainEvent) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Resilient runs every publish through a resilience pipeline, normally the
// kafka or webhook category.
type Resilient struct {
	next     ports.EventPublisher
	pipeline *resilience.Pipeline
}

func NewResilient(next ports.EventPublisher, pipeline *resilience.Pipeline) *Resilient {
	return &Resilient{next: next, pipeline: pipeline}
}

func (r *Resilient) Publish(ctx context.Context, e models.DomainEvent) error {
	return resilience.Do(ctx, r.pipeline, "publish_event", func(ctx context.Context) error {
		return r.next.Publish(ctx, e)
	})
}

var (
	_ ports.EventPublisher = (*LogPublisher)(nil)
	_ ports.EventPublisher = (*Fanout)(nil)
	_ ports.EventPublisher = (*Resilient)(nil)
)
