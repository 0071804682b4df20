// Package e2e runs the clearing adapter's acceptance scenarios in-process:
// the real service over the in-memory store, the real clearing-network
// client against a stub network, and the real vault.
package e2e

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"clearing/internal/adapter/models"
	"clearing/internal/adapter/ports"
	"clearing/internal/adapter/service"
	"clearing/internal/adapter/store/memory"
	"clearing/internal/clearingnet"
	"clearing/internal/iso20022"
	"clearing/internal/resilience"
	"clearing/internal/secrets"
	id "clearing/pkg/domain"
)

const signingKey = "e2e-signing-key"

// TestContext is the state shared by the steps of one scenario.
type TestContext struct {
	svc     *service.Service
	network *httptest.Server
	vault   *secrets.Vault
	events  *recorder

	tenant  id.TenantContext
	lastErr error
}

func newTestContext() (*TestContext, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	network := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Clearing-Reference", "NET-"+r.Header.Get("X-Message-Type"))
		w.WriteHeader(http.StatusAccepted)
	}))

	key, err := secrets.GenerateMasterKey()
	if err != nil {
		network.Close()
		return nil, err
	}
	vault, err := secrets.New(secrets.NewMemoryBackend(), key, secrets.WithLogger(logger))
	if err != nil {
		network.Close()
		return nil, err
	}
	codec, err := iso20022.New(1)
	if err != nil {
		network.Close()
		return nil, err
	}

	policies := resilience.DefaultPolicies()
	for cat, p := range policies {
		p.Retry.InitialBackoff = time.Millisecond
		p.Retry.MaxBackoff = 5 * time.Millisecond
		policies[cat] = p
	}

	events := &recorder{}
	svc := service.New(memory.NewInMemory(),
		service.WithLogger(logger),
		service.WithPublisher(events),
		service.WithSecrets(vault),
		service.WithCodec(codec),
		service.WithTransport(clearingnet.New(
			clearingnet.NewSigner("clearing-adapter", "clearing-network", time.Minute),
			clearingnet.WithHTTPClient(network.Client()),
			clearingnet.WithLogger(logger),
		)),
		service.WithResilience(resilience.NewRegistry(policies, resilience.WithRegistryLogger(logger))),
	)
	return &TestContext{svc: svc, network: network, vault: vault, events: events}, nil
}

func (tc *TestContext) close() {
	tc.network.Close()
}

// Service returns the service under test.
func (tc *TestContext) Service() *service.Service { return tc.svc }

// Tenant returns the tenant context of the current step.
func (tc *TestContext) Tenant() id.TenantContext { return tc.tenant }

// UseTenant switches the tenant context and provisions its signing key.
func (tc *TestContext) UseTenant(tenantID, businessUnitID string) error {
	tenant, err := id.NewTenantContext(tenantID, businessUnitID)
	if err != nil {
		return err
	}
	tc.tenant = tenant
	return tc.vault.StoreSecret(context.Background(), tenant, ports.SecretSigningKey, signingKey)
}

// NetworkURL is the endpoint of the stub clearing network.
func (tc *TestContext) NetworkURL() string { return tc.network.URL }

// Record keeps the outcome of a step for later assertions.
func (tc *TestContext) Record(err error) { tc.lastErr = err }

// LastError is the error of the most recent recorded step.
func (tc *TestContext) LastError() error { return tc.lastErr }

// EventCount counts published events of the given type.
func (tc *TestContext) EventCount(t models.EventType) int { return tc.events.count(t) }

type recorder struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (r *recorder) Publish(_ context.Context, e models.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) count(t models.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}
