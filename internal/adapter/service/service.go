// Package service orchestrates clearing adapters: lifecycle, routing, the
// message log and payment submission. Every downstream step runs through a
// resilience pipeline; domain events are published only after the change
// they describe has been persisted.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"clearing/internal/adapter/metrics"
	"clearing/internal/adapter/models"
	"clearing/internal/adapter/ports"
	"clearing/internal/iso20022"
	"clearing/internal/resilience"
	"clearing/internal/screening"
	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
	"clearing/pkg/platform/sentinel"
	"clearing/pkg/requestcontext"
)

const (
	tracerName      = "clearing/internal/adapter/service"
	defaultCacheTTL = 5 * time.Minute
	endpointTTL     = 30 * time.Second
)

// Service orchestrates adapter operations.
type Service struct {
	repo       ports.Repository
	cache      ports.Cache
	publisher  ports.EventPublisher
	secrets    ports.SecretAccessor
	discovery  ports.ServiceDiscovery
	transport  ports.ClearingTransport
	codec      *iso20022.Codec
	screener   *screening.Screener
	resilience *resilience.Registry
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	clock      func() time.Time
	newID      func() string
	cacheTTL   time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCache enables read-through caching of adapters.
func WithCache(c ports.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithPublisher(p ports.EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithSecrets(sa ports.SecretAccessor) Option {
	return func(s *Service) {
		s.secrets = sa
	}
}

func WithDiscovery(d ports.ServiceDiscovery) Option {
	return func(s *Service) {
		s.discovery = d
	}
}

func WithTransport(t ports.ClearingTransport) Option {
	return func(s *Service) {
		s.transport = t
	}
}

func WithCodec(c *iso20022.Codec) Option {
	return func(s *Service) {
		s.codec = c
	}
}

func WithScreener(sc *screening.Screener) Option {
	return func(s *Service) {
		s.screener = sc
	}
}

// WithResilience shares a process-wide pipeline registry with the service.
func WithResilience(r *resilience.Registry) Option {
	return func(s *Service) {
		s.resilience = r
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithIDGenerator sets how route, log entry and adapter ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.cacheTTL = ttl
	}
}

// New constructs a Service. Only the repository is required; payment
// submission additionally needs a transport and a secret accessor.
func New(repo ports.Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		clock:    time.Now,
		newID:    uuid.NewString,
		cacheTTL: defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.resilience == nil {
		s.resilience = resilience.NewRegistry(nil, resilience.WithRegistryLogger(s.logger))
	}
	if s.screener == nil {
		s.screener = screening.NewDefaultScreener(screening.NewListScreener(), screening.WithClock(s.clock), screening.WithLogger(s.logger))
	}
	return s
}

func (s *Service) pipeline(category resilience.Category, tenant id.TenantContext) *resilience.Pipeline {
	return s.resilience.ForTenant(category, string(tenant.TenantID))
}

// mutate loads the adapter, applies change and persists it when change
// produced events. The whole step runs as one clearing-system call, so a
// stale-version conflict is retried against a fresh copy. Events are
// published after the call succeeds, including when a retry finds the change
// already saved by an attempt that timed out.
func (s *Service) mutate(
	ctx context.Context,
	operation string,
	tenant id.TenantContext,
	adapterID id.AdapterID,
	change func(a *models.ClearingAdapter) ([]models.DomainEvent, error),
) (*models.ClearingAdapter, error) {
	type applied struct {
		adapter *models.ClearingAdapter
		events  []models.DomainEvent
	}

	result, err := resilience.Call(ctx, s.pipeline(resilience.CategoryClearingSystem, tenant), operation,
		func(ctx context.Context) (applied, error) {
			a, err := s.load(ctx, tenant, adapterID)
			if err != nil {
				return applied{}, err
			}
			events, err := change(a)
			if errors.Is(err, models.ErrAlreadyApplied) {
				// an earlier attempt saved the change; its events were never published
				return applied{adapter: a, events: events}, nil
			}
			if err != nil {
				return applied{}, err
			}
			if len(events) == 0 {
				return applied{adapter: a}, nil
			}
			if err := s.repo.Save(ctx, a); err != nil {
				return applied{}, translateStoreError(err, "failed to save adapter")
			}
			return applied{adapter: a, events: events}, nil
		}, nil)
	if err != nil {
		return nil, err
	}

	if len(result.events) > 0 {
		s.invalidate(ctx, tenant, adapterID)
		s.publish(ctx, result.events)
	}
	return result.adapter, nil
}

// load reads an adapter from the repository and checks it belongs to tenant.
// An adapter of another tenant is reported as not found.
func (s *Service) load(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID) (*models.ClearingAdapter, error) {
	a, err := s.repo.FindByID(ctx, adapterID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load adapter")
	}
	if a.Tenant != tenant {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "adapter %s not found", adapterID)
	}
	return a, nil
}

// translateStoreError maps store sentinels onto domain codes. Stale versions
// and unavailability stay as they are so the pipeline retries them.
func translateStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "adapter not found")
	case errors.Is(err, sentinel.ErrAlreadyExists):
		return dErrors.Wrap(err, dErrors.CodeAlreadyExists, "adapter already exists")
	case errors.Is(err, sentinel.ErrStaleVersion), errors.Is(err, sentinel.ErrUnavailable):
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// publish delivers events in emission order. Failures are logged and counted;
// the triggering operation has already succeeded.
func (s *Service) publish(ctx context.Context, events []models.DomainEvent) {
	if s.publisher == nil {
		return
	}
	for _, e := range events {
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish domain event",
				"event_id", e.ID,
				"event_type", string(e.Type),
				"adapter_id", string(e.AggregateID),
				"tenant_id", string(e.Tenant.TenantID),
				"correlation_id", requestcontext.CorrelationID(ctx),
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.IncrementEventUnpublished(string(e.Type))
			}
		}
	}
}

// actor returns by, or the principal carried on ctx when by is empty.
func actor(ctx context.Context, by string) string {
	if by != "" {
		return by
	}
	return requestcontext.Actor(ctx)
}

func cacheKey(tenant id.TenantContext, adapterID id.AdapterID) string {
	return "adapter:" + tenant.String() + ":" + string(adapterID)
}

func (s *Service) cached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		result := "miss"
		if !errors.Is(err, sentinel.ErrCacheMiss) {
			result = "error"
			s.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
		s.countCache(result)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key, "error", err)
		s.countCache("error")
		return false
	}
	s.countCache("hit")
	return true
}

func (s *Service) remember(ctx context.Context, key string, value any, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

// invalidate drops the cached adapter and everything derived from it.
func (s *Service) invalidate(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID) {
	if s.cache == nil {
		return
	}
	key := cacheKey(tenant, adapterID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "cache delete failed", "key", key, "error", err)
	}
	if err := s.cache.DeleteByPrefix(ctx, key+":"); err != nil {
		s.logger.WarnContext(ctx, "cache prefix delete failed", "prefix", key+":", "error", err)
	}
}

func (s *Service) countCache(result string) {
	if s.metrics != nil {
		s.metrics.IncrementCacheLookup(result)
	}
}

func (s *Service) observe(operation string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, err, start)
	}
}
