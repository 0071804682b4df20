package ports

import (
	"context"

	"clearing/internal/adapter/models"
	id "clearing/pkg/domain"
)

// Repository persists adapter aggregates.
//
// Save inserts when adapter.Version is 0 and otherwise updates only if the
// stored version still equals adapter.Version; on success adapter.Version is
// advanced. Implementations return sentinel.ErrAlreadyExists when the id or
// the (tenant, business unit, name) triple is taken, sentinel.ErrStaleVersion
// on a version mismatch, and sentinel.ErrNotFound from the finders.
type Repository interface {
	Save(ctx context.Context, adapter *models.ClearingAdapter) error
	FindByID(ctx context.Context, adapterID id.AdapterID) (*models.ClearingAdapter, error)
	FindByTenantAndName(ctx context.Context, tenant id.TenantContext, name string) (*models.ClearingAdapter, error)
	ExistsByTenantAndName(ctx context.Context, tenant id.TenantContext, name string) (bool, error)
	CountActiveByTenant(ctx context.Context, tenant id.TenantContext) (int, error)
}
