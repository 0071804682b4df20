package memory

import (
	"context"
	"strings"
	"sync"

	"clearing/internal/adapter/models"
	id "clearing/pkg/domain"
	"clearing/pkg/platform/sentinel"
)

// InMemory is a Repository for tests and single-process runs. Stored
// aggregates are cloned on the way in and out.
type InMemory struct {
	mu       sync.RWMutex
	adapters map[id.AdapterID]*models.ClearingAdapter
	names    map[nameKey]id.AdapterID
}

type nameKey struct {
	tenant id.TenantID
	unit   id.BusinessUnitID
	name   string
}

func keyFor(tenant id.TenantContext, name string) nameKey {
	return nameKey{tenant: tenant.TenantID, unit: tenant.BusinessUnitID, name: strings.ToLower(name)}
}

func NewInMemory() *InMemory {
	return &InMemory{
		adapters: make(map[id.AdapterID]*models.ClearingAdapter),
		names:    make(map[nameKey]id.AdapterID),
	}
}

func (s *InMemory) Save(_ context.Context, adapter *models.ClearingAdapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(adapter.Tenant, adapter.Name)
	current, exists := s.adapters[adapter.ID]

	if adapter.Version == 0 {
		if exists {
			return sentinel.ErrAlreadyExists
		}
		if _, taken := s.names[key]; taken {
			return sentinel.ErrAlreadyExists
		}
	} else {
		if !exists {
			return sentinel.ErrNotFound
		}
		if current.Version != adapter.Version {
			return sentinel.ErrStaleVersion
		}
	}

	stored := adapter.Clone()
	stored.Version = adapter.Version + 1
	s.adapters[adapter.ID] = stored
	s.names[key] = adapter.ID
	adapter.Version = stored.Version
	return nil
}

func (s *InMemory) FindByID(_ context.Context, adapterID id.AdapterID) (*models.ClearingAdapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.adapters[adapterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

func (s *InMemory) FindByTenantAndName(_ context.Context, tenant id.TenantContext, name string) (*models.ClearingAdapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	adapterID, ok := s.names[keyFor(tenant, name)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.adapters[adapterID].Clone(), nil
}

func (s *InMemory) ExistsByTenantAndName(_ context.Context, tenant id.TenantContext, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[keyFor(tenant, name)]
	return ok, nil
}

func (s *InMemory) CountActiveByTenant(_ context.Context, tenant id.TenantContext) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.adapters {
		if a.Tenant == tenant && a.IsActive() {
			n++
		}
	}
	return n, nil
}
