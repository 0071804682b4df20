// Package outbox persists domain events in Postgres and relays them to the
// event bus. Appends join a transaction carried in ctx (pkg/platform/tx).
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clearing/internal/adapter/models"
	"clearing/internal/adapter/ports"
	"clearing/internal/events"
	txcontext "clearing/pkg/platform/tx"
)

const aggregateType = "clearing_adapter"

// Entry is one outbox row.
type Entry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Store writes events to the outbox table. It implements
// ports.EventPublisher so the service can publish straight into it.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Publish appends e. The event id is the row id, so appending the same event
// twice is a no-op.
func (s *Store) Publish(ctx context.Context, e models.DomainEvent) error {
	rowID, err := uuid.Parse(e.ID)
	if err != nil {
		return fmt.Errorf("outbox event id %q: %w", e.ID, err)
	}
	payload, err := events.Encode(e)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		rowID,
		aggregateType,
		string(e.AggregateID),
		string(e.Type),
		payload,
		s.clock(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ClaimPending locks up to limit unprocessed entries, oldest first. It must
// run inside a transaction; rows locked by another relay are skipped.
func (s *Store) ClaimPending(ctx context.Context, limit int) ([]Entry, error) {
	if _, ok := txcontext.From(ctx); !ok {
		return nil, fmt.Errorf("claim outbox entries: no transaction in context")
	}
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return out, nil
}

func (s *Store) MarkProcessed(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	now := s.clock()
	for _, entryID := range ids {
		if _, err := s.execer(ctx).ExecContext(ctx,
			`UPDATE outbox SET processed_at = $2 WHERE id = $1`, entryID, now); err != nil {
			return fmt.Errorf("mark outbox entry %s: %w", entryID, err)
		}
	}
	return nil
}

// CountPending reports unprocessed entries.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM outbox WHERE processed_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count outbox: %w", err)
	}
	return n, nil
}

var _ ports.EventPublisher = (*Store)(nil)
