package resilience

import (
	"time"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
)

// Option configures the guarded store.
type Option func(*GuardConfig)

// WithFailureThreshold sets the consecutive failures before opening.
func WithFailureThreshold(n int) Option {
	return func(c *GuardConfig) {
		c.FailureThreshold = n
	}
}

// WithOpenTimeout sets how long the circuit stays open before probing.
func WithOpenTimeout(d time.Duration) Option {
	return func(c *GuardConfig) {
		c.OpenTimeout = d
	}
}

// WithMaxProbes sets the half-open probe limit.
func WithMaxProbes(n int) Option {
	return func(c *GuardConfig) {
		c.MaxProbes = n
	}
}

// NewGuardedStoreWithOptions wraps a store with the given options applied
// over the default configuration.
func NewGuardedStoreWithOptions(inner cache.Store, opts ...Option) *GuardedStore {
	config := DefaultGuardConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewGuardedStore(inner, config)
}
