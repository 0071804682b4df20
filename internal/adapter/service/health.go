package service

import (
	"context"

	"clearing/internal/resilience"
)

// HealthReport summarises the service's dependencies.
type HealthReport struct {
	// CacheHealthy is true when no cache is configured.
	CacheHealthy bool
	Breakers     map[string]resilience.State
	OpenBreakers []string
}

// Degraded reports whether any dependency is unhealthy. A degraded service
// still works; it is slower or failing fast for some categories.
func (h HealthReport) Degraded() bool {
	return !h.CacheHealthy || len(h.OpenBreakers) > 0
}

// CheckHealth pings the cache and reports circuit breaker states.
func (s *Service) CheckHealth(ctx context.Context) HealthReport {
	report := HealthReport{
		CacheHealthy: true,
		Breakers:     s.resilience.BreakerStates(),
		OpenBreakers: s.resilience.OpenBreakers(),
	}
	if s.cache != nil {
		report.CacheHealthy = s.cache.Ping(ctx)
	}
	return report
}
