// Package api is the embedding surface for the cache engine: it assembles
// the orchestrator and its collaborators from an EngineConfig so host
// applications and the CLI construct the engine the same way.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/cacheflow/application"
	"github.com/felixgeelhaar/cacheflow/domain/cache"
	"github.com/felixgeelhaar/cacheflow/domain/config"
	"github.com/felixgeelhaar/cacheflow/domain/dependency"
	"github.com/felixgeelhaar/cacheflow/domain/tag"
	"github.com/felixgeelhaar/cacheflow/infrastructure/codec"
	infraconfig "github.com/felixgeelhaar/cacheflow/infrastructure/config"
	"github.com/felixgeelhaar/cacheflow/infrastructure/logging"
	"github.com/felixgeelhaar/cacheflow/infrastructure/prefetch"
	"github.com/felixgeelhaar/cacheflow/infrastructure/resilience"
	badgerstore "github.com/felixgeelhaar/cacheflow/infrastructure/storage/badger"
	"github.com/felixgeelhaar/cacheflow/infrastructure/storage/memory"
	redisstore "github.com/felixgeelhaar/cacheflow/infrastructure/storage/redis"
	"github.com/felixgeelhaar/cacheflow/infrastructure/tagindex"
	"github.com/felixgeelhaar/cacheflow/infrastructure/telemetry"
)

// Engine bundles the orchestrator with the resources it owns. Close
// releases them in reverse construction order.
type Engine struct {
	Orchestrator *application.Orchestrator

	instanceID string
	closers    []func()
}

// EngineOption customizes engine assembly beyond what EngineConfig
// expresses.
type EngineOption func(*engineOptions)

type engineOptions struct {
	origin       application.FetchProvider
	dependencies *dependency.Table
}

// WithOrigin attaches an origin fetch provider, enabling Warm and
// prefetch-driven loads.
func WithOrigin(origin application.FetchProvider) EngineOption {
	return func(o *engineOptions) { o.origin = origin }
}

// WithDependencies overrides the invalidation dependency table.
func WithDependencies(table *dependency.Table) EngineOption {
	return func(o *engineOptions) { o.dependencies = table }
}

// NewEngine assembles an engine from configuration: sharded L1, guarded
// Redis L2, tag index, codec, metrics, prefetch planner, and the
// invalidation broadcast loop.
func NewEngine(cfg *config.EngineConfig, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if errs := config.NewValidator().Validate(cfg); errs.HasErrors() {
		return nil, errs
	}

	options := engineOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	engine := &Engine{instanceID: uuid.NewString()}

	var metrics *telemetry.MetricsProvider
	if cfg.Metrics.Enabled {
		metricsConfig := telemetry.DefaultMetricsConfig()
		metricsConfig.ResetInterval = cfg.Metrics.ResetInterval.Duration()
		metrics = telemetry.NewMetricsProvider(metricsConfig)
		engine.closers = append(engine.closers, metrics.Close)
	}

	var l1Opts []memory.Option
	if cfg.L1.Capacity > 0 {
		l1Opts = append(l1Opts, memory.WithCapacity(cfg.L1.Capacity))
	}
	if cfg.L1.Shards > 0 {
		l1Opts = append(l1Opts, memory.WithShards(cfg.L1.Shards))
	}
	if metrics != nil {
		l1Opts = append(l1Opts, memory.WithEvictionHook(func(key string) {
			metrics.RecordEviction(context.Background())
		}))
	}
	l1 := memory.NewStore(l1Opts...)

	var (
		l2          cache.Store
		index       tag.Index
		broadcaster *redisstore.Broadcaster
	)
	if cfg.L2.Enabled {
		dialTimeout := cfg.L2.DialTimeout.Duration()
		if dialTimeout <= 0 {
			dialTimeout = 5 * time.Second
		}
		store, err := redisstore.NewStore(redisstore.Config{
			Address:     cfg.L2.Address,
			Password:    cfg.L2.Password,
			DB:          cfg.L2.DB,
			DialTimeout: dialTimeout,
		}, redisstore.WithKeyPrefix(cfg.L2.KeyPrefix))
		if err != nil {
			return nil, fmt.Errorf("l2 store: %w", err)
		}
		engine.closers = append(engine.closers, func() { _ = store.Close() })

		l2 = resilience.NewGuardedStore(store, resilience.GuardConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			OpenTimeout:      cfg.Breaker.OpenTimeout.Duration(),
			MaxProbes:        cfg.Breaker.MaxProbes,
		})
		index = tagindex.NewRedis(store.Client(), tagindex.WithKeyPrefix(cfg.L2.KeyPrefix))
		broadcaster = redisstore.NewBroadcaster(store.Client(), cfg.L2.BroadcastChannel, engine.instanceID)
	} else {
		index = tagindex.NewMemory()
		if cfg.Durable.Enabled {
			// Single-instance deployments can back the second layer with an
			// embedded store instead of Redis, surviving restarts.
			var opts []badgerstore.Option
			if cfg.Durable.Path != "" {
				opts = append(opts, badgerstore.WithDir(cfg.Durable.Path))
			}
			if cfg.Durable.InMemory {
				opts = append(opts, badgerstore.WithInMemory())
			}
			if gc := cfg.Durable.GCInterval.Duration(); gc > 0 {
				opts = append(opts, badgerstore.WithGCInterval(gc))
			}
			store, err := badgerstore.NewStore(badgerstore.DefaultConfig(), opts...)
			if err != nil {
				return nil, fmt.Errorf("durable store: %w", err)
			}
			engine.closers = append(engine.closers, func() { _ = store.Close() })
			l2 = store
		}
	}

	var planner *prefetch.Planner
	if cfg.Prefetch.Enabled {
		warm := func(ctx context.Context, key string) error {
			return engine.Orchestrator.Warm(ctx, key)
		}
		p, err := prefetch.NewPlanner(prefetch.Config{
			Window:       cfg.Prefetch.Window.Duration(),
			TriggerCount: cfg.Prefetch.TriggerCount,
			Workers:      cfg.Prefetch.Workers,
			QueueSize:    cfg.Prefetch.QueueSize,
		}, prefetch.CoAccessMap(cfg.Prefetch.CoAccess), warm)
		if err != nil {
			engine.Close()
			return nil, fmt.Errorf("prefetch planner: %w", err)
		}
		planner = p
	}

	orchConfig := application.OrchestratorConfig{
		L1:               l1,
		L2:               l2,
		TagIndex:         index,
		Dependencies:     options.dependencies,
		Codec:            codec.New(codecOptions(cfg)...),
		Metrics:          metrics,
		Planner:          planner,
		Origin:           options.origin,
		Policies:         policySet(cfg),
		FetchTimeout:     cfg.Fetch.Timeout.Duration(),
		RefreshWorkers:   cfg.Refresh.Workers,
		RefreshQueueSize: cfg.Refresh.QueueSize,
	}
	if broadcaster != nil {
		orchConfig.Broadcast = func(ctx context.Context, keys, tags []string) error {
			return broadcaster.Publish(ctx, redisstore.InvalidationMessage{
				RequestID: uuid.NewString(),
				Keys:      keys,
				Tags:      tags,
			})
		}
	}

	orch, err := application.NewOrchestrator(orchConfig)
	if err != nil {
		engine.Close()
		return nil, err
	}
	engine.Orchestrator = orch
	engine.closers = append(engine.closers, func() { _ = orch.Close() })

	if broadcaster != nil {
		cancel, err := broadcaster.Subscribe(context.Background(), func(msg redisstore.InvalidationMessage) {
			orch.DropLocal(msg.Keys)
		})
		if err != nil {
			logging.Warn().
				Add(logging.Component("engine")).
				Add(logging.ErrorField(err)).
				Msg("invalidation subscription failed, peers will rely on TTL expiry")
		} else {
			engine.closers = append(engine.closers, cancel)
		}
	}

	logging.Info().
		Add(logging.Component("engine")).
		Add(logging.Str("instance", engine.instanceID)).
		Add(logging.Str("name", cfg.Name)).
		Msg("engine assembled")
	return engine, nil
}

// policySet maps the configured TTL categories onto per-namespace default
// policies.
func policySet(cfg *config.EngineConfig) *cache.PolicySet {
	categories := make(map[string]cache.Category, len(cfg.TTL.Categories))
	for ns, category := range cfg.TTL.Categories {
		categories[ns] = cache.Category(category)
	}
	return cache.NewPolicySet(
		cfg.TTL.Short.Duration(),
		cfg.TTL.Medium.Duration(),
		cfg.TTL.Long.Duration(),
		cfg.TTL.StaleWindow.Duration(),
		categories,
	)
}

// codecOptions maps the compression settings onto codec options, keeping
// the codec defaults where the config is silent.
func codecOptions(cfg *config.EngineConfig) []codec.Option {
	var opts []codec.Option
	if cfg.Compression.ThresholdBytes > 0 {
		opts = append(opts, codec.WithThreshold(cfg.Compression.ThresholdBytes))
	}
	if cfg.Compression.MinSavingsRatio > 0 {
		opts = append(opts, codec.WithMinSavings(cfg.Compression.MinSavingsRatio))
	}
	return opts
}

// InstanceID identifies this engine instance in invalidation broadcasts.
func (e *Engine) InstanceID() string {
	return e.instanceID
}

// Close releases the engine's resources in reverse construction order.
func (e *Engine) Close() error {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
	return nil
}

// LoadConfig reads and validates an engine configuration file, expanding
// environment references. Strict mode fails on unresolved variables.
func LoadConfig(path string, strict bool) (*config.EngineConfig, error) {
	loader := infraconfig.NewLoaderWithOptions(
		infraconfig.WithValidation(true),
		infraconfig.WithStrictEnv(strict),
	)
	cfg, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigureLogging applies the configured log level and format. Safe to
// call once per process; later calls are ignored.
func ConfigureLogging(cfg *config.EngineConfig) {
	if cfg == nil {
		return
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}
