package models

import (
	"sort"
	"strings"
	"time"
)

// WildcardDestination matches any destination.
const WildcardDestination = "*"

// Route directs payments for a destination through the adapter.
// A lower Priority value takes precedence; equal priorities keep their
// insertion order. Routes are immutable once added.
type Route struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Priority    int       `json:"priority"`
	AddedBy     string    `json:"added_by"`
	AddedAt     time.Time `json:"added_at"`
}

// Matches reports whether the route serves destination.
func (r Route) Matches(destination string) bool {
	return r.Destination == WildcardDestination || strings.EqualFold(r.Destination, destination)
}

// insertRoute places r after every route of equal or better precedence.
func insertRoute(routes []Route, r Route) []Route {
	i := sort.Search(len(routes), func(i int) bool {
		return routes[i].Priority > r.Priority
	})
	routes = append(routes, Route{})
	copy(routes[i+1:], routes[i:])
	routes[i] = r
	return routes
}

// NewRoute describes a route to add. ID is chosen by the caller so a retried
// AddRoute is recognised as already applied.
type NewRoute struct {
	ID          string
	Name        string
	Source      string
	Destination string
	Priority    int
}
