package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"clearing/internal/adapter/models"
	"clearing/internal/resilience"
	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
	"clearing/pkg/platform/sentinel"
)

// AddRouteRequest describes a route to add. The service assigns its id.
type AddRouteRequest struct {
	Name        string
	Source      string
	Destination string
	Priority    int
}

// LogMessageRequest describes a message to append to the log.
type LogMessageRequest struct {
	Direction   models.Direction
	MessageType string
	PayloadHash string
	StatusCode  *int
}

// Create registers a new ACTIVE adapter. An empty adapterID is replaced with
// a generated one. The name must be unused within the tenant context.
func (s *Service) Create(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID, name, endpoint, createdBy string) (adapter *models.ClearingAdapter, err error) {
	start := time.Now()
	defer func() { s.observe("create", err, start) }()

	if adapterID.IsNil() {
		adapterID = id.AdapterID(s.newID())
	}
	candidate, events, err := models.NewClearingAdapter(adapterID, tenant, name, endpoint, actor(ctx, createdBy), s.clock())
	if err != nil {
		return nil, err
	}

	// set once this call has sent a Save; only then can a taken name be our own write
	attempted := false
	created, err := resilience.Call(ctx, s.pipeline(resilience.CategoryClearingSystem, tenant), "create_adapter",
		func(ctx context.Context) (*models.ClearingAdapter, error) {
			taken, err := s.repo.ExistsByTenantAndName(ctx, tenant, candidate.Name)
			if err != nil {
				return nil, translateStoreError(err, "failed to check adapter name")
			}
			if taken {
				if attempted {
					if existing, err := s.repo.FindByID(ctx, adapterID); err == nil &&
						existing.Tenant == tenant && strings.EqualFold(existing.Name, candidate.Name) {
						return existing, nil
					}
				}
				return nil, dErrors.Newf(dErrors.CodeAlreadyExists, "adapter named %q already exists", candidate.Name)
			}
			a := candidate.Clone()
			attempted = true
			if err := s.repo.Save(ctx, a); err != nil {
				if errors.Is(err, sentinel.ErrAlreadyExists) {
					return nil, dErrors.Wrap(err, dErrors.CodeAlreadyExists, "adapter already exists")
				}
				return nil, translateStoreError(err, "failed to save adapter")
			}
			return a, nil
		}, nil)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	if s.metrics != nil {
		s.metrics.IncrementAdaptersCreated()
	}
	s.logger.InfoContext(ctx, "clearing adapter created",
		"adapter_id", string(created.ID),
		"tenant_id", string(tenant.TenantID),
		"business_unit_id", string(tenant.BusinessUnitID),
	)
	return created, nil
}

// UpdateConfiguration applies a partial configuration update. The adapter's
// timeout and retry settings take effect on its next clearing-system call,
// clamped to the category policy.
func (s *Service) UpdateConfiguration(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID, update models.ConfigurationUpdate, updatedBy string) (adapter *models.ClearingAdapter, err error) {
	start := time.Now()
	defer func() { s.observe("update_configuration", err, start) }()

	if err := update.Validate(); err != nil {
		return nil, err
	}
	a, err := s.mutate(ctx, "update_configuration", tenant, adapterID, func(a *models.ClearingAdapter) ([]models.DomainEvent, error) {
		return a.UpdateConfiguration(update, actor(ctx, updatedBy), s.clock())
	})
	if err != nil {
		return nil, err
	}

	if update.TimeoutSeconds != nil || update.RetryAttempts != nil {
		timeout, attempts := s.pipeline(resilience.CategoryClearingSystem, tenant).Limits(callOptions(a)...)
		s.logger.InfoContext(ctx, "adapter resilience limits applied",
			"adapter_id", string(a.ID),
			"timeout", timeout,
			"max_attempts", attempts,
		)
	}
	return a, nil
}

// Activate moves the adapter to ACTIVE. An already active adapter is
// returned unchanged.
func (s *Service) Activate(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID, activatedBy string) (adapter *models.ClearingAdapter, err error) {
	start := time.Now()
	defer func() { s.observe("activate", err, start) }()

	return s.mutate(ctx, "activate_adapter", tenant, adapterID, func(a *models.ClearingAdapter) ([]models.DomainEvent, error) {
		return a.Activate(actor(ctx, activatedBy), s.clock()), nil
	})
}

// Deactivate moves the adapter to INACTIVE. An already inactive adapter is
// returned unchanged.
func (s *Service) Deactivate(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID, reason, deactivatedBy string) (adapter *models.ClearingAdapter, err error) {
	start := time.Now()
	defer func() { s.observe("deactivate", err, start) }()

	return s.mutate(ctx, "deactivate_adapter", tenant, adapterID, func(a *models.ClearingAdapter) ([]models.DomainEvent, error) {
		return a.Deactivate(reason, actor(ctx, deactivatedBy), s.clock()), nil
	})
}

// AddRoute adds a route to an ACTIVE adapter and returns it.
func (s *Service) AddRoute(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID, req AddRouteRequest, addedBy string) (route models.Route, err error) {
	start := time.Now()
	defer func() { s.observe("add_route", err, start) }()

	routeID := s.newID()
	a, err := s.mutate(ctx, "add_route", tenant, adapterID, func(a *models.ClearingAdapter) ([]models.DomainEvent, error) {
		return a.AddRoute(models.NewRoute{
			ID:          routeID,
			Name:        req.Name,
			Source:      req.Source,
			Destination: req.Destination,
			Priority:    req.Priority,
		}, actor(ctx, addedBy), s.clock())
	})
	if err != nil {
		return models.Route{}, err
	}
	for _, r := range a.Routes {
		if r.ID == routeID {
			return r, nil
		}
	}
	return models.Route{}, dErrors.New(dErrors.CodeInternal, "route missing after save")
}

// LogMessage appends an entry to the adapter's message log and returns it.
func (s *Service) LogMessage(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID, req LogMessageRequest) (entry models.MessageLogEntry, err error) {
	start := time.Now()
	defer func() { s.observe("log_message", err, start) }()

	return s.logMessage(ctx, tenant, adapterID, req)
}

func (s *Service) logMessage(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID, req LogMessageRequest) (models.MessageLogEntry, error) {
	entryID := s.newID()
	a, err := s.mutate(ctx, "log_message", tenant, adapterID, func(a *models.ClearingAdapter) ([]models.DomainEvent, error) {
		return a.LogMessage(models.NewLogEntry{
			ID:          entryID,
			Direction:   req.Direction,
			MessageType: req.MessageType,
			PayloadHash: req.PayloadHash,
			StatusCode:  req.StatusCode,
		}, s.clock())
	})
	if err != nil {
		return models.MessageLogEntry{}, err
	}
	for i := len(a.MessageLog) - 1; i >= 0; i-- {
		if a.MessageLog[i].ID == entryID {
			return a.MessageLog[i], nil
		}
	}
	return models.MessageLogEntry{}, dErrors.New(dErrors.CodeInternal, "log entry missing after save")
}

// GetAdapter returns the adapter, from the cache when possible. Cache
// failures fall back to the repository.
func (s *Service) GetAdapter(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID) (adapter *models.ClearingAdapter, err error) {
	start := time.Now()
	defer func() { s.observe("get_adapter", err, start) }()

	return s.getAdapter(ctx, tenant, adapterID)
}

func (s *Service) getAdapter(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID) (*models.ClearingAdapter, error) {
	key := cacheKey(tenant, adapterID)
	var hit models.ClearingAdapter
	if s.cached(ctx, key, &hit) {
		return &hit, nil
	}

	a, err := resilience.Call(ctx, s.pipeline(resilience.CategoryConfigService, tenant), "get_adapter",
		func(ctx context.Context) (*models.ClearingAdapter, error) {
			return s.load(ctx, tenant, adapterID)
		}, nil)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, key, a, s.cacheTTL)
	return a, nil
}

// ListRoutes returns the adapter's routes in precedence order.
func (s *Service) ListRoutes(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID) ([]models.Route, error) {
	a, err := s.getAdapter(ctx, tenant, adapterID)
	if err != nil {
		return nil, err
	}
	return a.Routes, nil
}

// ResolveRoute returns the highest-precedence route serving destination.
func (s *Service) ResolveRoute(ctx context.Context, tenant id.TenantContext, adapterID id.AdapterID, destination string) (models.Route, error) {
	a, err := s.getAdapter(ctx, tenant, adapterID)
	if err != nil {
		return models.Route{}, err
	}
	r, ok := a.ResolveRoute(destination)
	if !ok {
		return models.Route{}, dErrors.Newf(dErrors.CodeNotFound, "no route to destination %q", destination)
	}
	return r, nil
}

// CountActive counts the tenant's ACTIVE adapters.
func (s *Service) CountActive(ctx context.Context, tenant id.TenantContext) (n int, err error) {
	start := time.Now()
	defer func() { s.observe("count_active", err, start) }()

	if err := tenant.Validate(); err != nil {
		return 0, err
	}
	return resilience.Call(ctx, s.pipeline(resilience.CategoryConfigService, tenant), "count_active_adapters",
		func(ctx context.Context) (int, error) {
			n, err := s.repo.CountActiveByTenant(ctx, tenant)
			if err != nil {
				return 0, translateStoreError(err, "failed to count adapters")
			}
			return n, nil
		}, nil)
}

// callOptions turns the adapter's declared timeout and retry count into
// per-call options. The pipeline only lets them tighten its policy.
func callOptions(a *models.ClearingAdapter) []resilience.CallOption {
	return []resilience.CallOption{
		resilience.WithTimeout(time.Duration(a.TimeoutSeconds) * time.Second),
		resilience.WithMaxAttempts(a.RetryAttempts + 1),
	}
}
