package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"clearing/internal/adapter/models"
	"clearing/internal/adapter/service"
	id "clearing/pkg/domain"
	dErrors "clearing/pkg/domain-errors"
)

// TestContext is what the adapter steps need from the scenario context.
type TestContext interface {
	Service() *service.Service
	Tenant() id.TenantContext
	UseTenant(tenantID, businessUnitID string) error
	NetworkURL() string
	Record(err error)
	LastError() error
	EventCount(t models.EventType) int
}

const actor = "ops@bank.example"

// RegisterSteps registers adapter lifecycle step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adapterSteps{tc: tc}

	ctx.Step(`^the tenant context "([^"]*)" / "([^"]*)"$`, tc.UseTenant)
	ctx.Step(`^adapter "([^"]*)" named "([^"]*)" exists$`, steps.adapterExists)
	ctx.Step(`^I create adapter "([^"]*)" named "([^"]*)" with endpoint "([^"]*)"$`, steps.createAdapter)
	ctx.Step(`^I fetch adapter "([^"]*)"$`, steps.fetchAdapter)
	ctx.Step(`^I activate "([^"]*)"$`, steps.activate)
	ctx.Step(`^I deactivate "([^"]*)" because "([^"]*)"$`, steps.deactivate)
	ctx.Step(`^I add route "([^"]*)" to "([^"]*)" with priority (\d+) on "([^"]*)"$`, steps.addRoute)
	ctx.Step(`^I log an (INBOUND|OUTBOUND) "([^"]*)" message on "([^"]*)" with status (\d+)$`, steps.logMessage)

	ctx.Step(`^the adapter "([^"]*)" has status "([^"]*)"$`, steps.adapterHasStatus)
	ctx.Step(`^exactly (\d+) "([^"]*)" events? (?:was|were) published$`, steps.eventsPublished)
	ctx.Step(`^the message log of "([^"]*)" has (\d+) entr(?:y|ies)$`, steps.messageLogHas)
	ctx.Step(`^the routes of "([^"]*)" are "([^"]*)"$`, steps.routesAre)
	ctx.Step(`^the destination "([^"]*)" resolves to route "([^"]*)" on "([^"]*)"$`, steps.resolvesTo)
	ctx.Step(`^the operation fails with "([^"]*)"$`, steps.operationFailsWith)
}

type adapterSteps struct {
	tc TestContext
}

func (s *adapterSteps) adapterExists(ctx context.Context, adapterID, name string) error {
	_, err := s.tc.Service().Create(ctx, s.tc.Tenant(), id.AdapterID(adapterID), name, s.tc.NetworkURL(), actor)
	return err
}

func (s *adapterSteps) createAdapter(ctx context.Context, adapterID, name, endpoint string) error {
	_, err := s.tc.Service().Create(ctx, s.tc.Tenant(), id.AdapterID(adapterID), name, endpoint, actor)
	s.tc.Record(err)
	return nil
}

func (s *adapterSteps) fetchAdapter(ctx context.Context, adapterID string) error {
	_, err := s.tc.Service().GetAdapter(ctx, s.tc.Tenant(), id.AdapterID(adapterID))
	s.tc.Record(err)
	return nil
}

func (s *adapterSteps) activate(ctx context.Context, adapterID string) error {
	_, err := s.tc.Service().Activate(ctx, s.tc.Tenant(), id.AdapterID(adapterID), actor)
	s.tc.Record(err)
	return err
}

func (s *adapterSteps) deactivate(ctx context.Context, adapterID, reason string) error {
	_, err := s.tc.Service().Deactivate(ctx, s.tc.Tenant(), id.AdapterID(adapterID), reason, actor)
	s.tc.Record(err)
	return err
}

func (s *adapterSteps) addRoute(ctx context.Context, name, destination string, priority int, adapterID string) error {
	_, err := s.tc.Service().AddRoute(ctx, s.tc.Tenant(), id.AdapterID(adapterID), service.AddRouteRequest{
		Name:        name,
		Source:      "LOCAL",
		Destination: destination,
		Priority:    priority,
	}, actor)
	s.tc.Record(err)
	return nil
}

func (s *adapterSteps) logMessage(ctx context.Context, direction, messageType, adapterID string, status int) error {
	_, err := s.tc.Service().LogMessage(ctx, s.tc.Tenant(), id.AdapterID(adapterID), service.LogMessageRequest{
		Direction:   models.Direction(direction),
		MessageType: messageType,
		PayloadHash: strings.Repeat("ab", 32),
		StatusCode:  &status,
	})
	s.tc.Record(err)
	return nil
}

func (s *adapterSteps) adapterHasStatus(ctx context.Context, adapterID, status string) error {
	a, err := s.tc.Service().GetAdapter(ctx, s.tc.Tenant(), id.AdapterID(adapterID))
	if err != nil {
		return err
	}
	if string(a.Status) != status {
		return fmt.Errorf("expected status %s, got %s", status, a.Status)
	}
	return nil
}

func (s *adapterSteps) eventsPublished(_ context.Context, n int, eventType string) error {
	if got := s.tc.EventCount(models.EventType(eventType)); got != n {
		return fmt.Errorf("expected %d %s events, got %d", n, eventType, got)
	}
	return nil
}

func (s *adapterSteps) messageLogHas(ctx context.Context, adapterID string, n int) error {
	if err := s.tc.LastError(); err != nil {
		return fmt.Errorf("previous step failed: %w", err)
	}
	a, err := s.tc.Service().GetAdapter(ctx, s.tc.Tenant(), id.AdapterID(adapterID))
	if err != nil {
		return err
	}
	if len(a.MessageLog) != n {
		return fmt.Errorf("expected %d log entries, got %d", n, len(a.MessageLog))
	}
	return nil
}

func (s *adapterSteps) routesAre(ctx context.Context, adapterID, names string) error {
	routes, err := s.tc.Service().ListRoutes(ctx, s.tc.Tenant(), id.AdapterID(adapterID))
	if err != nil {
		return err
	}
	got := make([]string, 0, len(routes))
	for _, r := range routes {
		got = append(got, r.Name)
	}
	if want := strings.Join(strings.Fields(strings.ReplaceAll(names, ",", " ")), ", "); strings.Join(got, ", ") != want {
		return fmt.Errorf("expected routes %q, got %q", want, strings.Join(got, ", "))
	}
	return nil
}

func (s *adapterSteps) resolvesTo(ctx context.Context, destination, name, adapterID string) error {
	r, err := s.tc.Service().ResolveRoute(ctx, s.tc.Tenant(), id.AdapterID(adapterID), destination)
	if err != nil {
		return err
	}
	if r.Name != name {
		return fmt.Errorf("expected route %s, got %s", name, r.Name)
	}
	return nil
}

func (s *adapterSteps) operationFailsWith(_ context.Context, code string) error {
	err := s.tc.LastError()
	if err == nil {
		return fmt.Errorf("expected a %s error, got success", code)
	}
	if !dErrors.HasCode(err, dErrors.Code(code)) {
		return fmt.Errorf("expected a %s error, got %v", code, err)
	}
	return nil
}
