package models

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
)

// DiscoveryScheme marks an endpoint that names a service to look up rather
// than a fixed URL, e.g. "discovery://samos-gateway".
const DiscoveryScheme = "discovery://"

const (
	DefaultAPIVersion     = "v1"
	DefaultTimeoutSeconds = 30
	DefaultRetryAttempts  = 3
	maxNameLength         = 128
)

// ErrAlreadyApplied is returned, together with the rebuilt event, when a
// route or log entry with the same ID is already present. The adapter is
// unchanged and needs no save.
var ErrAlreadyApplied = errors.New("change already applied")

// Audit carries who changed the adapter and when.
type Audit struct {
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClearingAdapter is the aggregate root for one tenant's connection to the
// clearing network.
//
// Invariants:
//   - Name is unique within the tenant context (enforced with the repository)
//   - TimeoutSeconds > 0 and RetryAttempts >= 0
//   - Status is ACTIVE or INACTIVE; routing and logging require ACTIVE
//   - Routes stay in precedence order (see Route)
//   - MessageLog is append-only
//
// Every mutator returns the events it caused. A call that changes nothing
// returns no events, and the caller must not persist or publish.
type ClearingAdapter struct {
	ID                id.AdapterID      `json:"id"`
	Tenant            id.TenantContext  `json:"tenant"`
	Name              string            `json:"name"`
	Endpoint          string            `json:"endpoint"`
	APIVersion        string            `json:"api_version"`
	TimeoutSeconds    int               `json:"timeout_seconds"`
	RetryAttempts     int               `json:"retry_attempts"`
	EncryptionEnabled bool              `json:"encryption_enabled"`
	CertificateRef    string            `json:"certificate_ref,omitempty"`
	Status            OperationalStatus `json:"status"`
	Routes            []Route           `json:"routes"`
	MessageLog        []MessageLogEntry `json:"message_log"`
	Version           int               `json:"version"`
	Audit
}

// NewClearingAdapter constructs an ACTIVE adapter with default connection
// settings.
func NewClearingAdapter(adapterID id.AdapterID, tenant id.TenantContext, name, endpoint, createdBy string, now time.Time) (*ClearingAdapter, []DomainEvent, error) {
	if adapterID.IsNil() {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "adapter id is required")
	}
	if err := tenant.Validate(); err != nil {
		return nil, nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "adapter name is required")
	}
	if len(name) > maxNameLength {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "adapter name must be 128 characters or less")
	}
	if err := ValidateEndpoint(endpoint); err != nil {
		return nil, nil, err
	}

	a := &ClearingAdapter{
		ID:                adapterID,
		Tenant:            tenant,
		Name:              name,
		Endpoint:          endpoint,
		APIVersion:        DefaultAPIVersion,
		TimeoutSeconds:    DefaultTimeoutSeconds,
		RetryAttempts:     DefaultRetryAttempts,
		EncryptionEnabled: true,
		Status:            StatusActive,
		Routes:            []Route{},
		MessageLog:        []MessageLogEntry{},
		Audit: Audit{
			CreatedBy: createdBy,
			CreatedAt: now,
			UpdatedBy: createdBy,
			UpdatedAt: now,
		},
	}
	event := newEvent(EventAdapterCreated, a, createdBy, now, map[string]any{
		"name":     a.Name,
		"endpoint": a.Endpoint,
		"status":   a.Status.String(),
	})
	return a, []DomainEvent{event}, nil
}

func (a *ClearingAdapter) IsActive() bool {
	return a.Status == StatusActive
}

// UsesDiscovery reports whether the endpoint must be resolved through
// service discovery.
func (a *ClearingAdapter) UsesDiscovery() bool {
	return strings.HasPrefix(a.Endpoint, DiscoveryScheme)
}

// DiscoveryService returns the logical service name of a discovery endpoint.
func (a *ClearingAdapter) DiscoveryService() string {
	return strings.TrimPrefix(a.Endpoint, DiscoveryScheme)
}

// ConfigurationUpdate is a partial update; nil fields are left unchanged.
type ConfigurationUpdate struct {
	Endpoint          *string
	APIVersion        *string
	TimeoutSeconds    *int
	RetryAttempts     *int
	EncryptionEnabled *bool
	CertificateRef    *string
}

// Validate checks every field that is present.
func (u ConfigurationUpdate) Validate() error {
	if u.Endpoint != nil {
		if err := ValidateEndpoint(*u.Endpoint); err != nil {
			return err
		}
	}
	if u.APIVersion != nil && strings.TrimSpace(*u.APIVersion) == "" {
		return dErrors.New(dErrors.CodeValidation, "api version cannot be blank")
	}
	if u.TimeoutSeconds != nil && *u.TimeoutSeconds <= 0 {
		return dErrors.New(dErrors.CodeValidation, "timeout seconds must be positive")
	}
	if u.RetryAttempts != nil && *u.RetryAttempts < 0 {
		return dErrors.New(dErrors.CodeValidation, "retry attempts cannot be negative")
	}
	return nil
}

// UpdateConfiguration applies u. Allowed in either status.
func (a *ClearingAdapter) UpdateConfiguration(u ConfigurationUpdate, updatedBy string, now time.Time) ([]DomainEvent, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	changed := map[string]any{}
	if u.Endpoint != nil && *u.Endpoint != a.Endpoint {
		a.Endpoint = *u.Endpoint
		changed["endpoint"] = a.Endpoint
	}
	if u.APIVersion != nil && *u.APIVersion != a.APIVersion {
		a.APIVersion = *u.APIVersion
		changed["api_version"] = a.APIVersion
	}
	if u.TimeoutSeconds != nil && *u.TimeoutSeconds != a.TimeoutSeconds {
		a.TimeoutSeconds = *u.TimeoutSeconds
		changed["timeout_seconds"] = a.TimeoutSeconds
	}
	if u.RetryAttempts != nil && *u.RetryAttempts != a.RetryAttempts {
		a.RetryAttempts = *u.RetryAttempts
		changed["retry_attempts"] = a.RetryAttempts
	}
	if u.EncryptionEnabled != nil && *u.EncryptionEnabled != a.EncryptionEnabled {
		a.EncryptionEnabled = *u.EncryptionEnabled
		changed["encryption_enabled"] = a.EncryptionEnabled
	}
	// certificate references are not echoed into events
	if u.CertificateRef != nil && *u.CertificateRef != a.CertificateRef {
		a.CertificateRef = *u.CertificateRef
		changed["certificate_ref_changed"] = true
	}
	if len(changed) == 0 {
		return nil, nil
	}

	a.touch(updatedBy, now)
	return []DomainEvent{newEvent(EventAdapterConfigurationUpdated, a, updatedBy, now, changed)}, nil
}

// Activate moves an INACTIVE adapter to ACTIVE. Activating an ACTIVE adapter
// succeeds without events.
func (a *ClearingAdapter) Activate(activatedBy string, now time.Time) []DomainEvent {
	if !a.Status.CanTransitionTo(StatusActive) {
		return nil
	}
	a.Status = StatusActive
	a.touch(activatedBy, now)
	return []DomainEvent{newEvent(EventAdapterActivated, a, activatedBy, now, nil)}
}

// Deactivate moves an ACTIVE adapter to INACTIVE. Deactivating an INACTIVE
// adapter succeeds without events.
func (a *ClearingAdapter) Deactivate(reason, deactivatedBy string, now time.Time) []DomainEvent {
	if !a.Status.CanTransitionTo(StatusInactive) {
		return nil
	}
	a.Status = StatusInactive
	a.touch(deactivatedBy, now)
	return []DomainEvent{newEvent(EventAdapterDeactivated, a, deactivatedBy, now, map[string]any{
		"reason": reason,
	})}
}

// CanRoute returns an error unless the adapter accepts routing changes and
// traffic.
func (a *ClearingAdapter) CanRoute() error {
	if !a.IsActive() {
		return dErrors.Newf(dErrors.CodeInvalidState, "adapter %s is inactive", a.ID)
	}
	return nil
}

// AddRoute inserts a route in precedence order. A route whose ID is already
// present is not inserted again; its RouteAdded event is rebuilt and returned
// with ErrAlreadyApplied.
func (a *ClearingAdapter) AddRoute(r NewRoute, addedBy string, now time.Time) ([]DomainEvent, error) {
	if err := a.CanRoute(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.ID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "route id is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "route name is required")
	}
	if strings.TrimSpace(r.Destination) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "route destination is required")
	}
	if r.Priority < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "route priority cannot be negative")
	}
	for _, existing := range a.Routes {
		if existing.ID == r.ID {
			return []DomainEvent{routeAddedEvent(a, existing)}, ErrAlreadyApplied
		}
	}

	route := Route{
		ID:          r.ID,
		Name:        r.Name,
		Source:      r.Source,
		Destination: r.Destination,
		Priority:    r.Priority,
		AddedBy:     addedBy,
		AddedAt:     now,
	}
	a.Routes = insertRoute(a.Routes, route)
	a.touch(addedBy, now)
	return []DomainEvent{routeAddedEvent(a, route)}, nil
}

func routeAddedEvent(a *ClearingAdapter, r Route) DomainEvent {
	return newEvent(EventRouteAdded, a, r.AddedBy, r.AddedAt, map[string]any{
		"route_id":    r.ID,
		"name":        r.Name,
		"source":      r.Source,
		"destination": r.Destination,
		"priority":    r.Priority,
	})
}

// ResolveRoute returns the highest-precedence route serving destination.
func (a *ClearingAdapter) ResolveRoute(destination string) (Route, bool) {
	for _, r := range a.Routes {
		if r.Matches(destination) {
			return r, true
		}
	}
	return Route{}, false
}

// LogMessage appends to the message log. An entry whose ID is already
// present is not appended again; see AddRoute.
func (a *ClearingAdapter) LogMessage(e NewLogEntry, now time.Time) ([]DomainEvent, error) {
	if err := a.CanRoute(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(e.ID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "log entry id is required")
	}
	if !e.Direction.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown message direction %q", e.Direction)
	}
	if strings.TrimSpace(e.MessageType) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "message type is required")
	}
	if !isPayloadHash(e.PayloadHash) {
		return nil, dErrors.New(dErrors.CodeValidation, "payload hash must be a lowercase hex SHA-256")
	}
	for _, existing := range a.MessageLog {
		if existing.ID == e.ID {
			return []DomainEvent{messageLoggedEvent(a, existing)}, ErrAlreadyApplied
		}
	}

	entry := MessageLogEntry{
		ID:          e.ID,
		Direction:   e.Direction,
		MessageType: e.MessageType,
		PayloadHash: e.PayloadHash,
		StatusCode:  e.StatusCode,
		Timestamp:   now,
	}
	a.MessageLog = append(a.MessageLog, entry)
	return []DomainEvent{messageLoggedEvent(a, entry)}, nil
}

func messageLoggedEvent(a *ClearingAdapter, e MessageLogEntry) DomainEvent {
	payload := map[string]any{
		"entry_id":     e.ID,
		"direction":    string(e.Direction),
		"message_type": e.MessageType,
		"payload_hash": e.PayloadHash,
	}
	if e.StatusCode != nil {
		payload["status_code"] = *e.StatusCode
	}
	return newEvent(EventMessageLogged, a, "", e.Timestamp, payload)
}

// MessagesSince counts log entries in direction at or after since.
func (a *ClearingAdapter) MessagesSince(direction Direction, since time.Time) int {
	n := 0
	for i := len(a.MessageLog) - 1; i >= 0; i-- {
		e := a.MessageLog[i]
		if e.Timestamp.Before(since) {
			break
		}
		if e.Direction == direction {
			n++
		}
	}
	return n
}

// Clone returns a deep copy, so stores and caches never share slices with
// callers.
func (a *ClearingAdapter) Clone() *ClearingAdapter {
	c := *a
	c.Routes = append([]Route(nil), a.Routes...)
	c.MessageLog = make([]MessageLogEntry, len(a.MessageLog))
	for i, e := range a.MessageLog {
		c.MessageLog[i] = e
		if e.StatusCode != nil {
			code := *e.StatusCode
			c.MessageLog[i].StatusCode = &code
		}
	}
	if c.Routes == nil {
		c.Routes = []Route{}
	}
	return &c
}

func (a *ClearingAdapter) touch(by string, now time.Time) {
	a.UpdatedBy = by
	a.UpdatedAt = now
}

// ValidateEndpoint accepts an absolute http(s) URL or a discovery name.
func ValidateEndpoint(endpoint string) error {
	if name, ok := strings.CutPrefix(endpoint, DiscoveryScheme); ok {
		if !govalidator.IsDNSName(name) {
			return dErrors.Newf(dErrors.CodeValidation, "invalid discovery service name %q", name)
		}
		return nil
	}
	if !govalidator.IsRequestURL(endpoint) {
		return dErrors.New(dErrors.CodeValidation, "endpoint must be an absolute URL")
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return dErrors.New(dErrors.CodeValidation, "endpoint must be an http or https URL")
	}
	return nil
}
