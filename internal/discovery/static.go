// Package discovery resolves logical service names to instances from a static
// registry and probes their health over HTTP.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"clearing/internal/adapter/ports"
	dErrors "clearing/pkg/domain-errors"
)

// Registry is a static ports.ServiceDiscovery. Health probes are cached per
// instance for a short TTL.
type Registry struct {
	mu        sync.RWMutex
	instances map[string][]ports.Instance
	health    map[string]probe

	client     *http.Client
	healthPath string
	ttl        time.Duration
	clock      func() time.Time
	logger     *slog.Logger
}

type probe struct {
	healthy bool
	at      time.Time
}

type Option func(*Registry)

func WithHTTPClient(c *http.Client) Option {
	return func(r *Registry) { r.client = c }
}

func WithHealthPath(path string) Option {
	return func(r *Registry) {
		if path != "" {
			r.healthPath = "/" + strings.TrimLeft(path, "/")
		}
	}
}

func WithHealthCacheTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

func WithClock(clock func() time.Time) Option {
	return func(r *Registry) { r.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		instances:  make(map[string][]ports.Instance),
		health:     make(map[string]probe),
		client:     &http.Client{Timeout: 2 * time.Second},
		healthPath: "/healthz",
		ttl:        10 * time.Second,
		clock:      time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseInstances reads "service=url" entries. Instance ids are the service
// name and a 1-based ordinal.
func ParseInstances(entries []string) ([]ports.Instance, error) {
	counts := make(map[string]int)
	out := make([]ports.Instance, 0, len(entries))
	for _, e := range entries {
		service, url, ok := strings.Cut(e, "=")
		service, url = strings.TrimSpace(service), strings.TrimSpace(url)
		if !ok || service == "" || url == "" {
			return nil, dErrors.Newf(dErrors.CodeValidation, "invalid discovery instance %q, want service=url", e)
		}
		counts[service]++
		out = append(out, ports.Instance{
			ID:      fmt.Sprintf("%s-%d", service, counts[service]),
			Service: service,
			URL:     url,
		})
	}
	return out, nil
}

// Register adds or replaces an instance, keyed by its id.
func (r *Registry) Register(in ports.Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.instances[in.Service]
	for i := range list {
		if list[i].ID == in.ID {
			list[i] = in
			delete(r.health, in.ID)
			return
		}
	}
	r.instances[in.Service] = append(list, in)
}

func (r *Registry) Deregister(service, instanceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.instances[service]
	for i := range list {
		if list[i].ID == instanceID {
			r.instances[service] = append(list[:i:i], list[i+1:]...)
			delete(r.health, instanceID)
			return
		}
	}
}

// ListInstances returns the service's instances in registration order.
func (r *Registry) ListInstances(ctx context.Context, service string) ([]ports.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	list, ok := r.instances[service]
	if !ok || len(list) == 0 {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no instances registered for %q", service)
	}
	return append([]ports.Instance(nil), list...), nil
}

// Services lists the registered service names.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.instances))
	for s := range r.instances {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// IsHealthy probes the instance's health endpoint. Any 2xx answer counts as
// healthy. Results are cached for the configured TTL.
func (r *Registry) IsHealthy(ctx context.Context, in ports.Instance) bool {
	now := r.clock()
	r.mu.RLock()
	p, ok := r.health[in.ID]
	r.mu.RUnlock()
	if ok && now.Sub(p.at) < r.ttl {
		return p.healthy
	}

	healthy := r.probe(ctx, in)
	r.mu.Lock()
	r.health[in.ID] = probe{healthy: healthy, at: now}
	r.mu.Unlock()
	return healthy
}

func (r *Registry) probe(ctx context.Context, in ports.Instance) bool {
	url := strings.TrimRight(in.URL, "/") + r.healthPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.logger.WarnContext(ctx, "invalid instance url", "instance_id", in.ID, "error", err)
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.WarnContext(ctx, "instance health probe failed", "instance_id", in.ID, "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

var _ ports.ServiceDiscovery = (*Registry)(nil)
