//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clearing/internal/adapter/models"
	"clearing/internal/adapter/store/postgres"
	id "clearing/pkg/domain"
	"clearing/pkg/platform/sentinel"
	"clearing/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
	tenant   id.TenantContext
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "clearing_adapters"))
	s.tenant = id.TenantContext{TenantID: "T1", BusinessUnitID: "retail"}
}

func (s *PostgresStoreSuite) newAdapter(name string) *models.ClearingAdapter {
	now := time.Now().UTC().Truncate(time.Microsecond)
	a, _, err := models.NewClearingAdapter(id.AdapterID(uuid.NewString()), s.tenant, name, "https://clearing.example/api", "ops", now)
	s.Require().NoError(err)
	return a
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	a := s.newAdapter("samos-main")
	now := a.CreatedAt
	_, err := a.AddRoute(models.NewRoute{ID: "r1", Name: "za", Destination: "ZA", Priority: 1}, "ops", now)
	s.Require().NoError(err)
	code := 202
	_, err = a.LogMessage(models.NewLogEntry{
		ID:          "m1",
		Direction:   models.DirectionOutbound,
		MessageType: "pacs.008",
		PayloadHash: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		StatusCode:  &code,
	}, now)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Save(ctx, a))
	s.Equal(1, a.Version)

	found, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(a.Name, found.Name)
	s.Equal(a.Tenant, found.Tenant)
	s.Equal(models.StatusActive, found.Status)
	s.Require().Len(found.Routes, 1)
	s.Equal("ZA", found.Routes[0].Destination)
	s.Require().Len(found.MessageLog, 1)
	s.Require().NotNil(found.MessageLog[0].StatusCode)
	s.Equal(202, *found.MessageLog[0].StatusCode)
	s.Equal(1, found.Version)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByTenantAndName(context.Background(), s.tenant, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestNameUniqueWithinTenant() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.newAdapter("samos-main")))

	err := s.store.Save(ctx, s.newAdapter("SAMOS-MAIN"))
	s.ErrorIs(err, sentinel.ErrAlreadyExists)

	exists, err := s.store.ExistsByTenantAndName(ctx, s.tenant, "Samos-Main")
	s.Require().NoError(err)
	s.True(exists)

	s.tenant = id.TenantContext{TenantID: "T1", BusinessUnitID: "corporate"}
	s.NoError(s.store.Save(ctx, s.newAdapter("samos-main")))
}

func (s *PostgresStoreSuite) TestStaleVersionRejected() {
	ctx := context.Background()
	a := s.newAdapter("samos-main")
	s.Require().NoError(s.store.Save(ctx, a))

	first, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)
	second, err := s.store.FindByID(ctx, a.ID)
	s.Require().NoError(err)

	first.Deactivate("maintenance", "ops", time.Now())
	s.Require().NoError(s.store.Save(ctx, first))
	s.Equal(2, first.Version)

	second.Deactivate("other", "ops", time.Now())
	s.ErrorIs(s.store.Save(ctx, second), sentinel.ErrStaleVersion)
}

func (s *PostgresStoreSuite) TestConcurrentCreateSameName() {
	ctx := context.Background()
	const goroutines = 10
	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, _, err := models.NewClearingAdapter(id.AdapterID(uuid.NewString()), s.tenant, "samos-main", "https://clearing.example", "ops", time.Now())
			if err != nil {
				return
			}
			switch err := s.store.Save(ctx, a); {
			case err == nil:
				successes.Add(1)
			case err == sentinel.ErrAlreadyExists:
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestCountActiveByTenant() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.newAdapter("one")))
	s.Require().NoError(s.store.Save(ctx, s.newAdapter("two")))
	inactive := s.newAdapter("three")
	inactive.Deactivate("retired", "ops", time.Now())
	s.Require().NoError(s.store.Save(ctx, inactive))

	n, err := s.store.CountActiveByTenant(ctx, s.tenant)
	s.Require().NoError(err)
	s.Equal(2, n)
}
