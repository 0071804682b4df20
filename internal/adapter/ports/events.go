package ports

import (
	"context"

	"clearing/internal/adapter/models"
)

// EventPublisher delivers domain events. Callers log publish failures and
// carry on; durable delivery is the publisher's concern.
type EventPublisher interface {
	Publish(ctx context.Context, event models.DomainEvent) error
}
