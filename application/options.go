package application

import (
	"time"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
	"github.com/felixgeelhaar/cacheflow/domain/dependency"
	"github.com/felixgeelhaar/cacheflow/domain/tag"
	"github.com/felixgeelhaar/cacheflow/infrastructure/codec"
	"github.com/felixgeelhaar/cacheflow/infrastructure/prefetch"
	"github.com/felixgeelhaar/cacheflow/infrastructure/telemetry"
)

// Option configures the orchestrator.
type Option func(*OrchestratorConfig)

// WithL2 sets the shared distributed store.
func WithL2(store cache.Store) Option {
	return func(c *OrchestratorConfig) {
		c.L2 = store
	}
}

// WithDependencies sets the invalidation dependency table.
func WithDependencies(t *dependency.Table) Option {
	return func(c *OrchestratorConfig) {
		c.Dependencies = t
	}
}

// WithCodec sets the payload codec.
func WithCodec(cd *codec.Codec) Option {
	return func(c *OrchestratorConfig) {
		c.Codec = cd
	}
}

// WithMetrics sets the metrics provider.
func WithMetrics(m *telemetry.MetricsProvider) Option {
	return func(c *OrchestratorConfig) {
		c.Metrics = m
	}
}

// WithPlanner sets the prefetch planner.
func WithPlanner(p *prefetch.Planner) Option {
	return func(c *OrchestratorConfig) {
		c.Planner = p
	}
}

// WithOriginProvider sets the origin fetch provider used by Warm.
func WithOriginProvider(origin FetchProvider) Option {
	return func(c *OrchestratorConfig) {
		c.Origin = origin
	}
}

// WithPolicies sets the per-category default policies applied to reads
// that pass a zero TTL.
func WithPolicies(p *cache.PolicySet) Option {
	return func(c *OrchestratorConfig) {
		c.Policies = p
	}
}

// WithBroadcast sets the invalidation broadcast hook.
func WithBroadcast(fn BroadcastFunc) Option {
	return func(c *OrchestratorConfig) {
		c.Broadcast = fn
	}
}

// WithFetchTimeout bounds a single origin fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *OrchestratorConfig) {
		c.FetchTimeout = d
	}
}

// WithRefreshPool sizes the background refresh pool.
func WithRefreshPool(workers, queueSize int) Option {
	return func(c *OrchestratorConfig) {
		c.RefreshWorkers = workers
		c.RefreshQueueSize = queueSize
	}
}

// WithAuditCapacity sets how many invalidation records to retain.
func WithAuditCapacity(n int) Option {
	return func(c *OrchestratorConfig) {
		c.AuditCapacity = n
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *OrchestratorConfig) {
		c.Now = now
	}
}

// NewOrchestratorWithOptions creates an orchestrator from the required
// collaborators plus functional options.
func NewOrchestratorWithOptions(l1 cache.Store, index tag.Index, opts ...Option) (*Orchestrator, error) {
	config := OrchestratorConfig{
		L1:       l1,
		TagIndex: index,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return NewOrchestrator(config)
}
