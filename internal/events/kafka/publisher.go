// Package kafka publishes domain events to a Kafka topic, keyed by adapter
// id so one adapter's events stay ordered within a partition.
package kafka

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"

	"clearing/internal/adapter/models"
	"clearing/internal/adapter/ports"
	"clearing/internal/events"
)

// Producer is the slice of *kgo.Client the publisher uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Publisher struct {
	producer Producer
	topic    string
}

func NewPublisher(producer Producer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// Publish blocks until the broker acknowledges the record.
func (p *Publisher) Publish(ctx context.Context, e models.DomainEvent) error {
	rec, err := Record(p.topic, e)
	if err != nil {
		return err
	}
	return p.producer.ProduceSync(ctx, rec).FirstErr()
}

// Record encodes e as a Kafka record for topic.
func Record(topic string, e models.DomainEvent) (*kgo.Record, error) {
	value, err := events.Encode(e)
	if err != nil {
		return nil, err
	}
	rec := &kgo.Record{
		Topic:     topic,
		Key:       []byte(e.AggregateID),
		Value:     value,
		Timestamp: e.OccurredAt,
	}
	for k, v := range events.Headers(e) {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	return rec, nil
}

var _ ports.EventPublisher = (*Publisher)(nil)
