package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clearing/internal/adapter/service"
)

type healthChecker interface {
	CheckHealth(ctx context.Context) service.HealthReport
}

// pinger is satisfied by *sql.DB, *pgxpool.Pool and the redis client.
type pinger func(ctx context.Context) error

type readiness struct {
	Status       string            `json:"status"`
	Cache        bool              `json:"cache_healthy"`
	Breakers     map[string]string `json:"breakers"`
	OpenBreakers []string          `json:"open_breakers,omitempty"`
	Failed       []string          `json:"failed,omitempty"`
}

func (a *app) opsRouter() http.Handler {
	checks := map[string]pinger{}
	if a.db != nil {
		checks["database"] = a.db.PingContext
	}
	if a.pool != nil {
		checks["pool"] = a.pool.Ping
	}
	return newOpsRouter(a.service, checks, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}), a.ops.Middleware)
}

func newOpsRouter(health healthChecker, checks map[string]pinger, metrics http.Handler, instrument func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if instrument != nil {
		r.Use(instrument)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// readyz fails only when storage is unreachable. Open breakers and a
	// failing cache degrade the service but it still answers.
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		report := health.CheckHealth(ctx)
		body := readiness{
			Status:       "ready",
			Cache:        report.CacheHealthy,
			Breakers:     make(map[string]string, len(report.Breakers)),
			OpenBreakers: report.OpenBreakers,
		}
		for name, state := range report.Breakers {
			body.Breakers[name] = state.String()
		}
		if report.Degraded() {
			body.Status = "degraded"
		}
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				body.Failed = append(body.Failed, name)
			}
		}

		status := http.StatusOK
		if len(body.Failed) > 0 {
			body.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, body)
	})

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
