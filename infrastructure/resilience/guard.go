// Package resilience wraps the distributed store in a circuit breaker so
// that a failing backend degrades the cache to local-only service instead
// of stalling every read on a dead connection.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
)

// GuardConfig configures the circuit breaker around the distributed store.
type GuardConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int

	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration

	// MaxProbes limits half-open probe requests.
	MaxProbes int
}

// DefaultGuardConfig returns a configuration with sensible defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		FailureThreshold: 5,
		OpenTimeout:      15 * time.Second,
		MaxProbes:        3,
	}
}

type getResult struct {
	value []byte
	found bool
}

// GuardedStore wraps a cache.Store with a circuit breaker. While the
// circuit is open every operation fails fast with ErrStoreUnavailable,
// which callers treat as a miss rather than an error.
type GuardedStore struct {
	inner   cache.Store
	batch   cache.BatchStore
	breaker circuitbreaker.CircuitBreaker[any]
}

// NewGuardedStore wraps the given store. If the store also implements
// cache.BatchStore, the batch operations are guarded too.
func NewGuardedStore(inner cache.Store, config GuardConfig) *GuardedStore {
	threshold := config.FailureThreshold
	if threshold <= 0 {
		threshold = 5
	}
	probes := config.MaxProbes
	if probes <= 0 {
		probes = 3
	}

	g := &GuardedStore{
		inner: inner,
		breaker: circuitbreaker.New[any](circuitbreaker.Config{
			MaxRequests: uint32(probes), // #nosec G115 -- bounds checked above
			Interval:    config.OpenTimeout,
			Timeout:     config.OpenTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
	}
	if batch, ok := inner.(cache.BatchStore); ok {
		g.batch = batch
	}
	return g
}

// Get reads a value through the breaker.
func (g *GuardedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := g.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		value, found, err := g.inner.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return getResult{value: value, found: found}, nil
	})
	if err != nil {
		return nil, false, g.wrap("get", err)
	}
	gr := res.(getResult)
	return gr.value, gr.found, nil
}

// Set writes a value through the breaker.
func (g *GuardedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := g.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return nil, g.inner.Set(ctx, key, value, ttl)
	})
	if err != nil {
		return g.wrap("set", err)
	}
	return nil
}

// Delete removes a key through the breaker.
func (g *GuardedStore) Delete(ctx context.Context, key string) error {
	_, err := g.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return nil, g.inner.Delete(ctx, key)
	})
	if err != nil {
		return g.wrap("delete", err)
	}
	return nil
}

// ScanKeys iterates keys through the breaker.
func (g *GuardedStore) ScanKeys(ctx context.Context, pattern string, fn func(key string) bool) error {
	_, err := g.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return nil, g.inner.ScanKeys(ctx, pattern, fn)
	})
	if err != nil {
		return g.wrap("scan", err)
	}
	return nil
}

// GetMany reads a batch of keys through the breaker. Falls back to
// sequential Gets when the inner store has no batch support.
func (g *GuardedStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	res, err := g.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		if g.batch != nil {
			return g.batch.GetMany(ctx, keys)
		}
		out := make(map[string][]byte, len(keys))
		for _, key := range keys {
			value, found, err := g.inner.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				out[key] = value
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, g.wrap("get many", err)
	}
	return res.(map[string][]byte), nil
}

// DeleteMany removes a batch of keys through the breaker.
func (g *GuardedStore) DeleteMany(ctx context.Context, keys []string) error {
	_, err := g.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		if g.batch != nil {
			return nil, g.batch.DeleteMany(ctx, keys)
		}
		for _, key := range keys {
			if err := g.inner.Delete(ctx, key); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return g.wrap("delete many", err)
	}
	return nil
}

// State returns the current breaker state.
func (g *GuardedStore) State() circuitbreaker.State {
	return g.breaker.State()
}

// Healthy reports whether the circuit is closed.
func (g *GuardedStore) Healthy() bool {
	return g.breaker.State().String() == "closed"
}

func (g *GuardedStore) wrap(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("guarded store %s: %w", op, err)
	}
	if errors.Is(err, cache.ErrStoreUnavailable) {
		return err
	}
	return errors.Join(cache.ErrStoreUnavailable, fmt.Errorf("guarded store %s: %w", op, err))
}

var (
	_ cache.Store      = (*GuardedStore)(nil)
	_ cache.BatchStore = (*GuardedStore)(nil)
)
