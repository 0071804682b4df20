package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clearing/internal/adapter/ports"
	dErrors "clearing/pkg/domain-errors"
)

type RegistrySuite struct {
	suite.Suite
	now      time.Time
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s.registry = New(
		WithClock(func() time.Time { return s.now }),
		WithHealthCacheTTL(10*time.Second),
	)
}

func (s *RegistrySuite) TestParseInstances() {
	s.Run("assigns ordinal ids per service", func() {
		got, err := ParseInstances([]string{"samos=https://a", "samos=https://b", "rtc=https://c"})
		s.Require().NoError(err)
		s.Require().Len(got, 3)
		s.Equal("samos-1", got[0].ID)
		s.Equal("samos-2", got[1].ID)
		s.Equal("rtc-1", got[2].ID)
	})

	s.Run("rejects entries without a url", func() {
		_, err := ParseInstances([]string{"samos="})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *RegistrySuite) TestListInstances() {
	ctx := context.Background()

	s.Run("unknown service is not found", func() {
		_, err := s.registry.ListInstances(ctx, "missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("register replaces by id and deregister removes", func() {
		s.registry.Register(ports.Instance{ID: "gw-1", Service: "gw", URL: "https://old"})
		s.registry.Register(ports.Instance{ID: "gw-2", Service: "gw", URL: "https://two"})
		s.registry.Register(ports.Instance{ID: "gw-1", Service: "gw", URL: "https://new"})

		got, err := s.registry.ListInstances(ctx, "gw")
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal("https://new", got[0].URL)

		s.registry.Deregister("gw", "gw-1")
		got, err = s.registry.ListInstances(ctx, "gw")
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal("gw-2", got[0].ID)
		s.Equal([]string{"gw"}, s.registry.Services())
	})
}

func (s *RegistrySuite) TestIsHealthyCachesProbes() {
	var hits atomic.Int32
	status := atomic.Int32{}
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		s.Equal("/healthz", r.URL.Path)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	in := ports.Instance{ID: "gw-1", Service: "gw", URL: srv.URL + "/"}
	ctx := context.Background()

	s.True(s.registry.IsHealthy(ctx, in))
	status.Store(http.StatusServiceUnavailable)
	s.True(s.registry.IsHealthy(ctx, in), "cached result within ttl")
	s.Equal(int32(1), hits.Load())

	s.now = s.now.Add(11 * time.Second)
	s.False(s.registry.IsHealthy(ctx, in))
	s.Equal(int32(2), hits.Load())
}

func (s *RegistrySuite) TestUnreachableInstanceIsUnhealthy() {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s.False(s.registry.IsHealthy(context.Background(), ports.Instance{ID: "dead", Service: "gw", URL: url}))
}
