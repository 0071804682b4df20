// Package cache provides the ports.Cache implementations: Redis for shared
// deployments, an in-process map for single instances and tests, and a noop.
package cache

import (
	"context"
	"time"

	"clearing/internal/adapter/ports"
	"clearing/pkg/platform/sentinel"
)

// Noop never stores anything. Every Get is a miss.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, sentinel.ErrCacheMiss }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }

func (Noop) DeleteByPrefix(context.Context, string) error { return nil }

func (Noop) Ping(context.Context) bool { return true }

var (
	_ ports.Cache = Noop{}
	_ ports.Cache = (*Memory)(nil)
	_ ports.Cache = (*Redis)(nil)
)
