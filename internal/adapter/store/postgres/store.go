package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"clearing/internal/adapter/models"
	id "clearing/pkg/domain"
	"clearing/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Store persists adapters in PostgreSQL. Routes and the message log are
// stored as JSONB columns on the adapter row; the aggregate is always
// written whole.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL adapter store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectColumns = `
	id, tenant_id, business_unit_id, name, endpoint, api_version,
	timeout_seconds, retry_attempts, encryption_enabled, certificate_ref,
	status, routes, message_log, version,
	created_by, created_at, updated_by, updated_at`

func (s *Store) Save(ctx context.Context, adapter *models.ClearingAdapter) error {
	routes, err := json.Marshal(adapter.Routes)
	if err != nil {
		return fmt.Errorf("marshal routes: %w", err)
	}
	log, err := json.Marshal(adapter.MessageLog)
	if err != nil {
		return fmt.Errorf("marshal message log: %w", err)
	}

	if adapter.Version == 0 {
		return s.insert(ctx, adapter, routes, log)
	}
	return s.update(ctx, adapter, routes, log)
}

func (s *Store) insert(ctx context.Context, a *models.ClearingAdapter, routes, log []byte) error {
	query := `
		INSERT INTO clearing_adapters (
			id, tenant_id, business_unit_id, name, endpoint, api_version,
			timeout_seconds, retry_attempts, encryption_enabled, certificate_ref,
			status, routes, message_log, version,
			created_by, created_at, updated_by, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1, $14, $15, $16, $17)
	`
	_, err := s.pool.Exec(ctx, query,
		string(a.ID), string(a.Tenant.TenantID), string(a.Tenant.BusinessUnitID),
		a.Name, a.Endpoint, a.APIVersion,
		a.TimeoutSeconds, a.RetryAttempts, a.EncryptionEnabled, a.CertificateRef,
		string(a.Status), routes, log,
		a.CreatedBy, a.CreatedAt, a.UpdatedBy, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert adapter: %w", err)
	}
	a.Version = 1
	return nil
}

func (s *Store) update(ctx context.Context, a *models.ClearingAdapter, routes, log []byte) error {
	query := `
		UPDATE clearing_adapters SET
			endpoint = $2, api_version = $3, timeout_seconds = $4, retry_attempts = $5,
			encryption_enabled = $6, certificate_ref = $7, status = $8,
			routes = $9, message_log = $10,
			updated_by = $11, updated_at = $12, version = version + 1
		WHERE id = $1 AND version = $13
	`
	tag, err := s.pool.Exec(ctx, query,
		string(a.ID), a.Endpoint, a.APIVersion, a.TimeoutSeconds, a.RetryAttempts,
		a.EncryptionEnabled, a.CertificateRef, string(a.Status),
		routes, log,
		a.UpdatedBy, a.UpdatedAt, a.Version,
	)
	if err != nil {
		return fmt.Errorf("update adapter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM clearing_adapters WHERE id = $1)`, string(a.ID)).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check adapter: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrStaleVersion
	}
	a.Version++
	return nil
}

func (s *Store) FindByID(ctx context.Context, adapterID id.AdapterID) (*models.ClearingAdapter, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM clearing_adapters WHERE id = $1`, string(adapterID))
	return scanAdapter(row)
}

func (s *Store) FindByTenantAndName(ctx context.Context, tenant id.TenantContext, name string) (*models.ClearingAdapter, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+`
		FROM clearing_adapters
		WHERE tenant_id = $1 AND business_unit_id = $2 AND lower(name) = lower($3)`,
		string(tenant.TenantID), string(tenant.BusinessUnitID), name)
	return scanAdapter(row)
}

func (s *Store) ExistsByTenantAndName(ctx context.Context, tenant id.TenantContext, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM clearing_adapters
			WHERE tenant_id = $1 AND business_unit_id = $2 AND lower(name) = lower($3)
		)`, string(tenant.TenantID), string(tenant.BusinessUnitID), name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check adapter name: %w", err)
	}
	return exists, nil
}

func (s *Store) CountActiveByTenant(ctx context.Context, tenant id.TenantContext) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM clearing_adapters
		WHERE tenant_id = $1 AND business_unit_id = $2 AND status = $3`,
		string(tenant.TenantID), string(tenant.BusinessUnitID), string(models.StatusActive)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active adapters: %w", err)
	}
	return n, nil
}

func scanAdapter(row pgx.Row) (*models.ClearingAdapter, error) {
	var (
		a              models.ClearingAdapter
		adapterID      string
		tenantID, unit string
		status         string
		routes, log    []byte
	)
	err := row.Scan(
		&adapterID, &tenantID, &unit, &a.Name, &a.Endpoint, &a.APIVersion,
		&a.TimeoutSeconds, &a.RetryAttempts, &a.EncryptionEnabled, &a.CertificateRef,
		&status, &routes, &log, &a.Version,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedBy, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan adapter: %w", err)
	}
	a.ID = id.AdapterID(adapterID)
	a.Tenant = id.TenantContext{TenantID: id.TenantID(tenantID), BusinessUnitID: id.BusinessUnitID(unit)}
	a.Status = models.OperationalStatus(status)
	if err := json.Unmarshal(routes, &a.Routes); err != nil {
		return nil, fmt.Errorf("unmarshal routes: %w", err)
	}
	if err := json.Unmarshal(log, &a.MessageLog); err != nil {
		return nil, fmt.Errorf("unmarshal message log: %w", err)
	}
	if a.Routes == nil {
		a.Routes = []models.Route{}
	}
	if a.MessageLog == nil {
		a.MessageLog = []models.MessageLogEntry{}
	}
	return &a, nil
}
