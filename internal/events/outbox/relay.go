package outbox

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clearing/internal/adapter/ports"
	"clearing/internal/events"
	txcontext "clearing/pkg/platform/tx"
)

// Relay moves outbox entries to a sink. Delivery is at least once: an entry
// is marked processed only after the sink accepted it, in the same
// transaction that locked it.
type Relay struct {
	db        *sql.DB
	store     *Store
	sink      ports.EventPublisher
	interval  time.Duration
	batchSize int
	metrics   *events.Metrics
	logger    *slog.Logger
}

type RelayOption func(*Relay)

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithMetrics(m *events.Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = logger }
}

func NewRelay(db *sql.DB, store *Store, sink ports.EventPublisher, opts ...RelayOption) *Relay {
	r := &Relay{
		db:        db,
		store:     store,
		sink:      sink,
		interval:  time.Second,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays on every tick until ctx is cancelled. A failed pass is logged
// and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		for {
			n, err := r.RelayOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
				if r.metrics != nil {
					r.metrics.IncrementOutboxFailure()
				}
				break
			}
			if n < r.batchSize {
				break
			}
		}
		if r.metrics != nil {
			if pending, err := r.store.CountPending(ctx); err == nil {
				r.metrics.SetOutboxPending(pending)
			}
		}
	}
}

// RelayOnce delivers one batch and returns how many entries it processed.
// Delivery stops at the first sink failure; entries before it are still
// marked and the sink error is returned.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var (
		relayed int
		sinkErr error
	)
	err := txcontext.RunInTx(ctx, r.db, func(ctx context.Context) error {
		entries, err := r.store.ClaimPending(ctx, r.batchSize)
		if err != nil {
			return err
		}
		done := make([]uuid.UUID, 0, len(entries))
		for _, entry := range entries {
			e, err := events.Decode(entry.Payload)
			if err != nil {
				// unreadable rows would block the queue forever
				r.logger.ErrorContext(ctx, "dropping undecodable outbox entry", "entry_id", entry.ID, "error", err)
				done = append(done, entry.ID)
				continue
			}
			if sinkErr = r.sink.Publish(ctx, e); sinkErr != nil {
				break
			}
			done = append(done, entry.ID)
		}
		if err := r.store.MarkProcessed(ctx, done...); err != nil {
			return err
		}
		relayed = len(done)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if r.metrics != nil && relayed > 0 {
		r.metrics.AddOutboxRelayed(relayed)
	}
	return relayed, sinkErr
}
