// Package cache provides the domain types and contracts for the cache
// orchestration engine: structured keys, entries, per-read policies, and
// the backing-store interfaces implemented by L1 and L2 adapters.
package cache

import (
	"context"
	"time"
)

// FetchFunc loads a value from the source of truth on a cache miss.
// It must be idempotent; its result is cached under the requested key.
type FetchFunc func(ctx context.Context) (any, error)

// Store defines the uniform contract every backing store satisfies.
// Implementations may be in-process, Redis, or any other key-value
// substrate with TTL support.
type Store interface {
	// Get retrieves the stored bytes for a key.
	// Returns the payload, whether it was found, and any error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores bytes under a key with the given TTL. A zero TTL means
	// no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// ScanKeys iterates keys matching a prefix pattern ("org:42:risk:*"),
	// invoking fn for each. Iteration stops when fn returns false.
	// Maintenance-path only: never used on the hot get/set path.
	ScanKeys(ctx context.Context, pattern string, fn func(key string) bool) error
}

// BatchStore is implemented by stores that can serve several keys in a
// single round-trip. The orchestrator's BulkGet requires it of L2 so a
// bulk read costs one network call instead of N.
type BatchStore interface {
	// GetMany retrieves the stored bytes for each present key.
	// Absent keys are simply missing from the result map.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// DeleteMany removes all given keys.
	DeleteMany(ctx context.Context, keys []string) error
}

// Pinger is an optional interface for stores with a liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}
