// Package config provides domain models for cache engine configuration.
package config

import "time"

// EngineConfig represents the complete cache engine configuration.
type EngineConfig struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`
	// Description describes the deployment.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// L1 contains in-process store settings.
	L1 L1Config `json:"l1,omitempty" yaml:"l1,omitempty"`
	// L2 contains distributed store settings.
	L2 L2Config `json:"l2,omitempty" yaml:"l2,omitempty"`
	// Durable contains embedded durable store settings.
	Durable DurableConfig `json:"durable,omitempty" yaml:"durable,omitempty"`
	// TTL contains default TTLs per data category.
	TTL TTLConfig `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// Compression contains payload compression settings.
	Compression CompressionConfig `json:"compression,omitempty" yaml:"compression,omitempty"`
	// Prefetch contains speculative warm settings.
	Prefetch PrefetchConfig `json:"prefetch,omitempty" yaml:"prefetch,omitempty"`
	// Refresh contains stale-while-revalidate pool settings.
	Refresh RefreshConfig `json:"refresh,omitempty" yaml:"refresh,omitempty"`
	// Breaker contains L2 circuit breaker settings.
	Breaker BreakerConfig `json:"breaker,omitempty" yaml:"breaker,omitempty"`
	// Fetch contains origin fetch settings.
	Fetch FetchConfig `json:"fetch,omitempty" yaml:"fetch,omitempty"`
	// Metrics contains metrics reporting settings.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	// Logging contains log output settings.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// L1Config contains in-process store settings.
type L1Config struct {
	// Capacity is the maximum number of entries before LRU eviction.
	Capacity int `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	// Shards is the number of lock stripes (rounded up to a power of two).
	Shards int `json:"shards,omitempty" yaml:"shards,omitempty"`
}

// L2Config contains distributed store settings.
type L2Config struct {
	// Enabled turns the distributed tier on.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Address is the host:port of the store.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// Password authenticates the connection.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	// DB selects the logical database.
	DB int `json:"db,omitempty" yaml:"db,omitempty"`
	// KeyPrefix namespaces every key written by this deployment.
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	// DialTimeout bounds connection establishment.
	DialTimeout Duration `json:"dial_timeout,omitempty" yaml:"dial_timeout,omitempty"`
	// BroadcastChannel carries cross-instance invalidation messages.
	BroadcastChannel string `json:"broadcast_channel,omitempty" yaml:"broadcast_channel,omitempty"`
}

// DurableConfig contains embedded durable store settings.
type DurableConfig struct {
	// Enabled turns the durable tier on.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Path is the on-disk directory.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// InMemory keeps the store off disk. Used in tests.
	InMemory bool `json:"in_memory,omitempty" yaml:"in_memory,omitempty"`
	// GCInterval is how often value log garbage collection runs.
	GCInterval Duration `json:"gc_interval,omitempty" yaml:"gc_interval,omitempty"`
}

// TTLConfig contains default TTLs per data category.
type TTLConfig struct {
	// Short applies to volatile lists.
	Short Duration `json:"short,omitempty" yaml:"short,omitempty"`
	// Medium applies to per-record views.
	Medium Duration `json:"medium,omitempty" yaml:"medium,omitempty"`
	// Long applies to static reference data.
	Long Duration `json:"long,omitempty" yaml:"long,omitempty"`
	// StaleWindow is how long past freshness an entry may still be
	// served while a background refresh runs.
	StaleWindow Duration `json:"stale_window,omitempty" yaml:"stale_window,omitempty"`
	// Categories maps a key namespace to its category (short, medium or
	// long). Unlisted namespaces get the medium default.
	Categories map[string]string `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// CompressionConfig contains payload compression settings.
type CompressionConfig struct {
	// ThresholdBytes is the minimum payload size considered for compression.
	ThresholdBytes int `json:"threshold_bytes,omitempty" yaml:"threshold_bytes,omitempty"`
	// MinSavingsRatio is the fraction of bytes compression must save.
	MinSavingsRatio float64 `json:"min_savings_ratio,omitempty" yaml:"min_savings_ratio,omitempty"`
}

// PrefetchConfig contains speculative warm settings.
type PrefetchConfig struct {
	// Enabled turns prefetching on.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Window is the sliding access observation interval.
	Window Duration `json:"window,omitempty" yaml:"window,omitempty"`
	// TriggerCount is accesses within Window that arm a namespace.
	TriggerCount int `json:"trigger_count,omitempty" yaml:"trigger_count,omitempty"`
	// Workers is the warm worker pool size.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
	// QueueSize bounds pending warm tasks.
	QueueSize int `json:"queue_size,omitempty" yaml:"queue_size,omitempty"`
	// CoAccess maps a namespace to keys warmed alongside it.
	CoAccess map[string][]string `json:"co_access,omitempty" yaml:"co_access,omitempty"`
}

// RefreshConfig contains stale-while-revalidate pool settings.
type RefreshConfig struct {
	// Workers is the background refresh pool size.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
	// QueueSize bounds pending refresh tasks.
	QueueSize int `json:"queue_size,omitempty" yaml:"queue_size,omitempty"`
}

// BreakerConfig contains L2 circuit breaker settings.
type BreakerConfig struct {
	// FailureThreshold is consecutive failures before opening.
	FailureThreshold int `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout Duration `json:"open_timeout,omitempty" yaml:"open_timeout,omitempty"`
	// MaxProbes limits half-open probe requests.
	MaxProbes int `json:"max_probes,omitempty" yaml:"max_probes,omitempty"`
}

// FetchConfig contains origin fetch settings.
type FetchConfig struct {
	// Timeout bounds a single origin fetch. A timeout is a fetch failure.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// MetricsConfig contains metrics reporting settings.
type MetricsConfig struct {
	// Enabled turns metric recording on.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// ResetInterval is how often the local snapshot counters reset.
	ResetInterval Duration `json:"reset_interval,omitempty" yaml:"reset_interval,omitempty"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is the output format (json or console).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Default returns a configuration with sensible defaults for a single
// instance without a distributed tier.
func Default() *EngineConfig {
	return &EngineConfig{
		Name:    "cacheflow",
		Version: "1",
		L1: L1Config{
			Capacity: 10000,
			Shards:   16,
		},
		TTL: TTLConfig{
			Short:       Duration(30 * time.Second),
			Medium:      Duration(5 * time.Minute),
			Long:        Duration(time.Hour),
			StaleWindow: Duration(time.Minute),
			Categories: map[string]string{
				"dashboard": "short",
				"reference": "long",
			},
		},
		Compression: CompressionConfig{
			ThresholdBytes:  1024,
			MinSavingsRatio: 0.2,
		},
		Prefetch: PrefetchConfig{
			Enabled:      true,
			Window:       Duration(10 * time.Second),
			TriggerCount: 3,
			Workers:      2,
			QueueSize:    64,
		},
		Refresh: RefreshConfig{
			Workers:   4,
			QueueSize: 128,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			OpenTimeout:      Duration(15 * time.Second),
			MaxProbes:        3,
		},
		Fetch: FetchConfig{
			Timeout: Duration(5 * time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	// Handle null
	if string(b) == "null" {
		return nil
	}

	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	// Parse duration
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
