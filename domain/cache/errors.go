package cache

import "errors"

// Domain errors for cache operations.
var (
	// ErrStoreUnavailable is returned by store adapters when the backing
	// store cannot be reached. The orchestrator absorbs it and degrades to
	// fewer layers; it is never surfaced to callers.
	ErrStoreUnavailable = errors.New("cache store unavailable")

	// ErrFetchFailed wraps a failure of the caller-supplied fetch function.
	// It is propagated to the caller and never cached.
	ErrFetchFailed = errors.New("origin fetch failed")

	// ErrFetchTimeout is returned when a fetch exceeds its configured
	// timeout. Treated as a fetch failure: nothing is cached.
	ErrFetchTimeout = errors.New("origin fetch timed out")

	// ErrSerialization is returned when a payload cannot be encoded or
	// decoded. On read it is treated as a miss; on write it propagates.
	ErrSerialization = errors.New("cache serialization failed")

	// ErrKeyNotFound is returned when a key does not exist in a store.
	ErrKeyNotFound = errors.New("cache key not found")

	// ErrInvalidKey is returned when a key is structurally invalid.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrInvalidPolicy is returned when a policy fails validation.
	ErrInvalidPolicy = errors.New("invalid cache policy")

	// ErrClosed is returned when an operation is attempted after Shutdown.
	ErrClosed = errors.New("cache orchestrator closed")
)
