package screening

import (
	"context"
	"strings"
	"sync"
)

// SanctionsScreener checks party names against a sanctions list and returns
// the names that matched.
type SanctionsScreener interface {
	Screen(ctx context.Context, names ...string) ([]string, error)
}

// ListScreener matches names exactly after case folding and whitespace
// normalisation. It stands in for a real list provider.
type ListScreener struct {
	mu      sync.RWMutex
	entries map[string]struct{}
}

func NewListScreener(names ...string) *ListScreener {
	l := &ListScreener{entries: make(map[string]struct{}, len(names))}
	l.Add(names...)
	return l
}

// Add puts names on the list.
func (l *ListScreener) Add(names ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range names {
		if key := normaliseName(n); key != "" {
			l.entries[key] = struct{}{}
		}
	}
}

func (l *ListScreener) Screen(_ context.Context, names ...string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var hits []string
	for _, n := range names {
		if _, ok := l.entries[normaliseName(n)]; ok {
			hits = append(hits, n)
		}
	}
	return hits, nil
}

func normaliseName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
