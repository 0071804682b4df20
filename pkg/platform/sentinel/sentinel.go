package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and collaborators
// return these (optionally wrapped) and services translate them into
// domain-errors codes.
//
//   - ErrNotFound: record does not exist
//   - ErrAlreadyExists: a uniqueness constraint rejected the write
//   - ErrStaleVersion: optimistic concurrency check failed, reload and retry
//   - ErrCacheMiss: key not present in the cache
//   - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrStaleVersion  = errors.New("stale version")
	ErrCacheMiss     = errors.New("cache miss")
	ErrUnavailable   = errors.New("unavailable")
)
