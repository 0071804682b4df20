// Package ports declares the collaborators the adapter service depends on.
package ports

//go:generate mockgen -source=repository.go -destination=mocks/repository.go -package=mocks
//go:generate mockgen -source=secrets.go -destination=mocks/secrets.go -package=mocks
//go:generate mockgen -source=cache.go -destination=mocks/cache.go -package=mocks
//go:generate mockgen -source=discovery.go -destination=mocks/discovery.go -package=mocks
//go:generate mockgen -source=events.go -destination=mocks/events.go -package=mocks
//go:generate mockgen -source=transport.go -destination=mocks/transport.go -package=mocks
