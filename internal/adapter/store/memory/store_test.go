package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clearing/internal/adapter/models"
	id "clearing/pkg/domain"
	"clearing/pkg/platform/sentinel"
)

type AdapterStoreSuite struct {
	suite.Suite
	store  *InMemory
	ctx    context.Context
	tenant id.TenantContext
}

func TestAdapterStoreSuite(t *testing.T) {
	suite.Run(t, new(AdapterStoreSuite))
}

func (s *AdapterStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.tenant = id.TenantContext{TenantID: "T1", BusinessUnitID: "retail"}
}

func (s *AdapterStoreSuite) newAdapter(adapterID id.AdapterID, tenant id.TenantContext, name string) *models.ClearingAdapter {
	a, _, err := models.NewClearingAdapter(adapterID, tenant, name, "https://clearing.example", "ops", time.Now())
	s.Require().NoError(err)
	return a
}

func (s *AdapterStoreSuite) TestSaveAndFind() {
	a := s.newAdapter("A1", s.tenant, "samos-main")
	s.Require().NoError(s.store.Save(s.ctx, a))
	s.Equal(1, a.Version)

	s.Run("by id", func() {
		found, err := s.store.FindByID(s.ctx, "A1")
		s.Require().NoError(err)
		s.Equal("samos-main", found.Name)
		s.Equal(1, found.Version)
	})

	s.Run("by tenant and name, case-insensitive", func() {
		found, err := s.store.FindByTenantAndName(s.ctx, s.tenant, "SAMOS-MAIN")
		s.Require().NoError(err)
		s.Equal(id.AdapterID("A1"), found.ID)
	})

	s.Run("unknown id", func() {
		_, err := s.store.FindByID(s.ctx, "missing")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned copies are isolated", func() {
		found, err := s.store.FindByID(s.ctx, "A1")
		s.Require().NoError(err)
		found.Name = "mutated"
		again, err := s.store.FindByID(s.ctx, "A1")
		s.Require().NoError(err)
		s.Equal("samos-main", again.Name)
	})
}

func (s *AdapterStoreSuite) TestUniqueness() {
	s.Require().NoError(s.store.Save(s.ctx, s.newAdapter("A1", s.tenant, "samos-main")))

	s.Run("same name in same tenant", func() {
		err := s.store.Save(s.ctx, s.newAdapter("A2", s.tenant, "samos-main"))
		s.ErrorIs(err, sentinel.ErrAlreadyExists)
	})

	s.Run("same id", func() {
		err := s.store.Save(s.ctx, s.newAdapter("A1", s.tenant, "other"))
		s.ErrorIs(err, sentinel.ErrAlreadyExists)
	})

	s.Run("same name in another business unit", func() {
		other := id.TenantContext{TenantID: "T1", BusinessUnitID: "corporate"}
		s.NoError(s.store.Save(s.ctx, s.newAdapter("A3", other, "samos-main")))
	})

	s.Run("same name in another tenant", func() {
		other := id.TenantContext{TenantID: "T2", BusinessUnitID: "retail"}
		s.NoError(s.store.Save(s.ctx, s.newAdapter("A4", other, "samos-main")))
	})

	exists, err := s.store.ExistsByTenantAndName(s.ctx, s.tenant, "samos-main")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *AdapterStoreSuite) TestOptimisticConcurrency() {
	s.Require().NoError(s.store.Save(s.ctx, s.newAdapter("A1", s.tenant, "samos-main")))

	first, err := s.store.FindByID(s.ctx, "A1")
	s.Require().NoError(err)
	second, err := s.store.FindByID(s.ctx, "A1")
	s.Require().NoError(err)

	first.Deactivate("maintenance", "ops", time.Now())
	s.Require().NoError(s.store.Save(s.ctx, first))
	s.Equal(2, first.Version)

	second.Deactivate("other", "ops", time.Now())
	s.ErrorIs(s.store.Save(s.ctx, second), sentinel.ErrStaleVersion)
}

func (s *AdapterStoreSuite) TestConcurrentCreateSameName() {
	const goroutines = 20
	var wg sync.WaitGroup
	var successes atomic.Int32

	for i := range goroutines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := s.newAdapter(id.AdapterID(string(rune('a'+i))), s.tenant, "samos-main")
			if s.store.Save(s.ctx, a) == nil {
				successes.Add(1)
			}
		}(i)
	}
	wg.Wait()
	s.Equal(int32(1), successes.Load())
}

func (s *AdapterStoreSuite) TestCountActiveByTenant() {
	s.Require().NoError(s.store.Save(s.ctx, s.newAdapter("A1", s.tenant, "one")))
	s.Require().NoError(s.store.Save(s.ctx, s.newAdapter("A2", s.tenant, "two")))
	inactive := s.newAdapter("A3", s.tenant, "three")
	inactive.Deactivate("retired", "ops", time.Now())
	s.Require().NoError(s.store.Save(s.ctx, inactive))
	s.Require().NoError(s.store.Save(s.ctx, s.newAdapter("A4", id.TenantContext{TenantID: "T2", BusinessUnitID: "retail"}, "one")))

	n, err := s.store.CountActiveByTenant(s.ctx, s.tenant)
	s.Require().NoError(err)
	s.Equal(2, n)
}
