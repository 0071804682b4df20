// Package consumer runs a franz-go consumer group and hands each record to a
// Handler, committing offsets only after the handler is done with a record.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/twmb/franz-go/pkg/kgo"

	dErrors "clearing/pkg/domain-errors"
)

// Message is a consumed record, decoupled from the client library.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes one message. Client errors (dErrors.IsClientError) mark
// the message as poison: it is logged and skipped. Other errors are retried
// with backoff until MaxRetryElapsed, then skipped.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// Client is the slice of *kgo.Client the consumer uses.
type Client interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
}

type Consumer struct {
	client          Client
	handler         Handler
	logger          *slog.Logger
	maxRetryElapsed time.Duration
	onSkip          func(msg *Message, err error)
}

type Option func(*Consumer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) { c.logger = logger }
}

func WithMaxRetryElapsed(d time.Duration) Option {
	return func(c *Consumer) { c.maxRetryElapsed = d }
}

// WithSkipHook is called for every message given up on.
func WithSkipHook(fn func(msg *Message, err error)) Option {
	return func(c *Consumer) { c.onSkip = fn }
}

func New(client Client, handler Handler, opts ...Option) *Consumer {
	c := &Consumer{
		client:          client,
		handler:         handler,
		logger:          slog.Default(),
		maxRetryElapsed: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		for _, fe := range fetches.Errors() {
			if errors.Is(fe.Err, context.Canceled) {
				return nil
			}
			c.logger.ErrorContext(ctx, "kafka fetch failed",
				"topic", fe.Topic,
				"partition", fe.Partition,
				"error", fe.Err,
			)
		}

		var done []*kgo.Record
		fetches.EachRecord(func(r *kgo.Record) {
			if ctx.Err() != nil {
				return
			}
			if c.process(ctx, r) {
				done = append(done, r)
			}
		})
		if len(done) == 0 {
			continue
		}
		if err := c.client.CommitRecords(ctx, done...); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "kafka commit failed", "records", len(done), "error", err)
		}
	}
}

// process reports whether the record is finished with, either handled or
// skipped. A record interrupted by shutdown is left uncommitted.
func (c *Consumer) process(ctx context.Context, r *kgo.Record) bool {
	msg := toMessage(r)
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = c.maxRetryElapsed

	err := backoff.Retry(func() error {
		err := c.handler.Handle(ctx, msg)
		if err != nil && dErrors.IsClientError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	c.logger.ErrorContext(ctx, "kafka message skipped",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"error", err,
	)
	if c.onSkip != nil {
		c.onSkip(msg, err)
	}
	return true
}

func toMessage(r *kgo.Record) *Message {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
		Timestamp: r.Timestamp,
	}
}
