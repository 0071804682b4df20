package models

import (
	"time"

	"github.com/google/uuid"

	id "clearing/pkg/domain"
)

// EventType names a domain event. The string values are part of the
// published contract.
type EventType string

const (
	EventAdapterCreated              EventType = "AdapterCreated"
	EventAdapterConfigurationUpdated EventType = "AdapterConfigurationUpdated"
	EventAdapterActivated            EventType = "AdapterActivated"
	EventAdapterDeactivated          EventType = "AdapterDeactivated"
	EventRouteAdded                  EventType = "RouteAdded"
	EventMessageLogged               EventType = "MessageLogged"
)

// DomainEvent is an immutable record of one adapter state change.
type DomainEvent struct {
	ID          string           `json:"id"`
	Type        EventType        `json:"event_type"`
	AggregateID id.AdapterID     `json:"aggregate_id"`
	Tenant      id.TenantContext `json:"tenant"`
	Actor       string           `json:"actor,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Payload     map[string]any   `json:"payload,omitempty"`
}

func newEvent(t EventType, a *ClearingAdapter, actor string, now time.Time, payload map[string]any) DomainEvent {
	return DomainEvent{
		ID:          uuid.NewString(),
		Type:        t,
		AggregateID: a.ID,
		Tenant:      a.Tenant,
		Actor:       actor,
		OccurredAt:  now,
		Payload:     payload,
	}
}
