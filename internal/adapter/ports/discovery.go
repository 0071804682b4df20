package ports

import "context"

// Instance is one registered endpoint of a service.
type Instance struct {
	ID       string
	Service  string
	URL      string
	Metadata map[string]string
}

// ServiceDiscovery resolves logical service names to live instances.
type ServiceDiscovery interface {
	ListInstances(ctx context.Context, service string) ([]Instance, error)
	IsHealthy(ctx context.Context, instance Instance) bool
}
