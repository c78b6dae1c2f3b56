// Package cache provides the shared read-through response cache. Entries are
// raw response bytes keyed by a content hash of the request, with a TTL chosen
// per call site.
package cache

import (
	"context"
	"time"
)

// PopulateFunc produces the value for a missing cache entry.
type PopulateFunc func(ctx context.Context) ([]byte, error)

type Cache interface {
	// Fetch returns the cached value for key, populating it via fn on a miss.
	Fetch(ctx context.Context, key string, ttl time.Duration, fn PopulateFunc) ([]byte, error)
	// Delete removes a single entry. Used for targeted invalidation after
	// mutations.
	Delete(ctx context.Context, key string) error
}

// Noop satisfies Cache without storing anything. Used when caching is
// disabled.
type Noop struct{}

func (Noop) Fetch(ctx context.Context, _ string, _ time.Duration, fn PopulateFunc) ([]byte, error) {
	return fn(ctx)
}

func (Noop) Delete(context.Context, string) error { return nil }
