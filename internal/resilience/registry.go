package resilience

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Registry owns the process-wide pipelines. It is built once at startup and
// handed to every call site.
//
// By default every tenant shares one pipeline per category, so one tenant's
// downstream outage can open the breaker for all tenants. With tenant
// isolation on, pipelines are keyed by (category, tenant) instead.
type Registry struct {
	mu              sync.Mutex
	policies        map[Category]Policy
	pipelines       map[registryKey]*Pipeline
	tenantIsolation bool

	clock   func() time.Time
	metrics *Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

type registryKey struct {
	category Category
	tenant   string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

func WithTenantIsolation(enabled bool) RegistryOption {
	return func(r *Registry) { r.tenantIsolation = enabled }
}

func WithRegistryClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

func WithRegistryMetrics(m *Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

func WithRegistryTracer(tracer trace.Tracer) RegistryOption {
	return func(r *Registry) { r.tracer = tracer }
}

// NewRegistry creates a registry over policies. Categories missing from
// policies fall back to their compiled-in defaults.
func NewRegistry(policies map[Category]Policy, opts ...RegistryOption) *Registry {
	merged := DefaultPolicies()
	for c, p := range policies {
		merged[c] = p
	}
	r := &Registry{
		policies:  merged,
		pipelines: make(map[registryKey]*Pipeline),
		clock:     time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pipeline returns the shared pipeline for category.
func (r *Registry) Pipeline(category Category) *Pipeline {
	return r.get(registryKey{category: category})
}

// ForTenant returns the pipeline a tenant's calls into category go through.
// Without tenant isolation this is the shared pipeline.
func (r *Registry) ForTenant(category Category, tenant string) *Pipeline {
	if !r.tenantIsolation || tenant == "" {
		return r.Pipeline(category)
	}
	return r.get(registryKey{category: category, tenant: tenant})
}

// Policy returns the policy in force for category.
func (r *Registry) Policy(category Category) Policy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.policyLocked(category)
}

// BreakerStates returns the breaker state of every pipeline created so far,
// keyed "category" or "category/tenant".
func (r *Registry) BreakerStates() map[string]State {
	r.mu.Lock()
	pipelines := make(map[string]*Pipeline, len(r.pipelines))
	for k, p := range r.pipelines {
		name := string(k.category)
		if k.tenant != "" {
			name += "/" + k.tenant
		}
		pipelines[name] = p
	}
	r.mu.Unlock()

	states := make(map[string]State, len(pipelines))
	for name, p := range pipelines {
		states[name] = p.BreakerState()
	}
	return states
}

// OpenBreakers lists the pipelines whose breaker is not closed, sorted.
func (r *Registry) OpenBreakers() []string {
	var open []string
	for name, state := range r.BreakerStates() {
		if state != StateClosed {
			open = append(open, name)
		}
	}
	sort.Strings(open)
	return open
}

func (r *Registry) get(key registryKey) *Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pipelines[key]; ok {
		return p
	}
	opts := []PipelineOption{
		WithScope(key.tenant),
		WithClock(r.clock),
		WithMetrics(r.metrics),
		WithLogger(r.logger),
	}
	if r.tracer != nil {
		opts = append(opts, WithTracer(r.tracer))
	}
	p := NewPipeline(key.category, r.policyLocked(key.category), opts...)
	r.pipelines[key] = p
	return p
}

func (r *Registry) policyLocked(category Category) Policy {
	if p, ok := r.policies[category]; ok {
		return p
	}
	r.logger.Warn("no resilience policy for category, using clearing-system defaults", "category", string(category))
	return r.policies[CategoryClearingSystem]
}
