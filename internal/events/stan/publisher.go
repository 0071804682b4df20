// Package stan publishes domain events to NATS Streaming.
package stan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/stan.go"

	"clearing/internal/adapter/models"
	"clearing/internal/adapter/ports"
	"clearing/internal/events"
	"clearing/internal/platform/config"
)

// Conn is the slice of stan.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Connect opens a streaming connection from cfg.
func Connect(cfg config.NATS, logger *slog.Logger) (stan.Conn, error) {
	sc, err := stan.Connect(cfg.ClusterID, cfg.ClientID,
		stan.NatsURL(cfg.URL),
		stan.SetConnectionLostHandler(func(_ stan.Conn, err error) {
			logger.Error("nats streaming connection lost", "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("stan connect: %w", err)
	}
	return sc, nil
}

// Publisher sends events to subject, or to subject.<event type> when
// PerType is set.
type Publisher struct {
	conn    Conn
	subject string
	perType bool
}

type Option func(*Publisher)

// PerType routes each event type to its own subject.
func PerType() Option {
	return func(p *Publisher) { p.perType = true }
}

func NewPublisher(conn Conn, subject string, opts ...Option) *Publisher {
	p := &Publisher{conn: conn, subject: subject}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish waits for the streaming server's ack. ctx is only checked before
// sending since stan has no context-aware publish.
func (p *Publisher) Publish(ctx context.Context, e models.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := events.Encode(e)
	if err != nil {
		return err
	}
	subject := p.subject
	if p.perType {
		subject += "." + string(e.Type)
	}
	if err := p.conn.Publish(subject, b); err != nil {
		return fmt.Errorf("stan publish %s: %w", subject, err)
	}
	return nil
}

var _ ports.EventPublisher = (*Publisher)(nil)
