// Package telemetry provides observability infrastructure including
// OpenTelemetry metrics support for the cache engine.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments. It also keeps
// lock-free local counters so callers can query a Snapshot without going
// through a metrics reader.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	l1Hits        metric.Int64Counter
	l2Hits        metric.Int64Counter
	misses        metric.Int64Counter
	prefetchWarms metric.Int64Counter
	invalidations metric.Int64Counter
	evictions     metric.Int64Counter
	bytesSaved    metric.Int64Counter
	errors        metric.Int64Counter

	// Histograms
	getDuration metric.Float64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	storeDegraded metric.Int64UpDownCounter

	initOnce sync.Once
	initErr  error

	counters  snapshotCounters
	resetStop chan struct{}
	resetOnce sync.Once
}

// snapshotCounters accumulates the local view behind Snapshot().
type snapshotCounters struct {
	l1Hits        atomic.Int64
	l2Hits        atomic.Int64
	misses        atomic.Int64
	prefetchWarms atomic.Int64
	invalidations atomic.Int64
	evictions     atomic.Int64
	bytesSaved    atomic.Int64
	latencyNanos  atomic.Int64
	latencyCount  atomic.Int64
}

// Snapshot is a point-in-time view of the cache counters.
type Snapshot struct {
	L1Hits         int64         `json:"l1_hits"`
	L2Hits         int64         `json:"l2_hits"`
	Misses         int64         `json:"misses"`
	PrefetchWarms  int64         `json:"prefetch_warms"`
	Invalidations  int64         `json:"invalidations"`
	Evictions      int64         `json:"evictions"`
	BytesSaved     int64         `json:"bytes_saved"`
	AverageLatency time.Duration `json:"average_latency_ns"`
}

// HitRatio returns hits over total lookups, or 0 when nothing was read.
func (s Snapshot) HitRatio() float64 {
	total := s.L1Hits + s.L2Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.L1Hits+s.L2Hits) / float64(total)
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Attributes are default attributes to attach to all metrics.
	Attributes []attribute.KeyValue
	// ResetInterval is how often the local snapshot counters are zeroed.
	// Zero disables the reset loop; the OpenTelemetry instruments stay
	// cumulative either way.
	ResetInterval time.Duration
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/cacheflow",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		def := DefaultMetricsConfig()
		config.MeterName = def.MeterName
		config.MeterVersion = def.MeterVersion
	}

	provider := otel.GetMeterProvider()
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{
		meter: meter,
	}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	if config.ResetInterval > 0 {
		mp.resetStop = make(chan struct{})
		go mp.resetLoop(config.ResetInterval)
	}

	return mp
}

// resetLoop zeroes the local snapshot counters on the configured interval.
func (mp *MetricsProvider) resetLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			mp.Reset()
		case <-mp.resetStop:
			return
		}
	}
}

// Close stops the snapshot reset loop, if one is running.
func (mp *MetricsProvider) Close() {
	if mp.resetStop == nil {
		return
	}
	mp.resetOnce.Do(func() { close(mp.resetStop) })
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	var err error

	mp.l1Hits, err = mp.meter.Int64Counter(
		"cache.l1.hits",
		metric.WithDescription("Number of in-process cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	mp.l2Hits, err = mp.meter.Int64Counter(
		"cache.l2.hits",
		metric.WithDescription("Number of distributed cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	mp.misses, err = mp.meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Number of lookups missing every layer"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	mp.prefetchWarms, err = mp.meter.Int64Counter(
		"cache.prefetch.warms",
		metric.WithDescription("Number of speculative warm fetches executed"),
		metric.WithUnit("{warm}"),
	)
	if err != nil {
		return err
	}

	mp.invalidations, err = mp.meter.Int64Counter(
		"cache.invalidations",
		metric.WithDescription("Number of keys removed by invalidation"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return err
	}

	mp.evictions, err = mp.meter.Int64Counter(
		"cache.l1.evictions",
		metric.WithDescription("Number of entries evicted under capacity pressure"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	mp.bytesSaved, err = mp.meter.Int64Counter(
		"cache.compression.saved_bytes",
		metric.WithDescription("Bytes saved by payload compression"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	mp.errors, err = mp.meter.Int64Counter(
		"cache.errors",
		metric.WithDescription("Number of cache errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	mp.getDuration, err = mp.meter.Float64Histogram(
		"cache.get.duration",
		metric.WithDescription("Duration of cache reads"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.storeDegraded, err = mp.meter.Int64UpDownCounter(
		"cache.store.degraded",
		metric.WithDescription("Whether the distributed store is degraded"),
		metric.WithUnit("{store}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordL1Hit records an in-process cache hit.
func (mp *MetricsProvider) RecordL1Hit(ctx context.Context, namespace string) {
	mp.counters.l1Hits.Add(1)
	mp.l1Hits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.namespace", namespace),
	))
}

// RecordL2Hit records a distributed cache hit.
func (mp *MetricsProvider) RecordL2Hit(ctx context.Context, namespace string) {
	mp.counters.l2Hits.Add(1)
	mp.l2Hits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.namespace", namespace),
	))
}

// RecordMiss records a lookup that fell through to the origin fetch.
func (mp *MetricsProvider) RecordMiss(ctx context.Context, namespace string) {
	mp.counters.misses.Add(1)
	mp.misses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.namespace", namespace),
	))
}

// RecordPrefetchWarm records a completed speculative warm.
func (mp *MetricsProvider) RecordPrefetchWarm(ctx context.Context, namespace string) {
	mp.counters.prefetchWarms.Add(1)
	mp.prefetchWarms.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.namespace", namespace),
	))
}

// RecordInvalidation records keys removed by one invalidation call.
func (mp *MetricsProvider) RecordInvalidation(ctx context.Context, entityType string, keys int64) {
	mp.counters.invalidations.Add(keys)
	mp.invalidations.Add(ctx, keys, metric.WithAttributes(
		attribute.String("entity.type", entityType),
	))
}

// RecordEviction records an L1 capacity eviction.
func (mp *MetricsProvider) RecordEviction(ctx context.Context) {
	mp.counters.evictions.Add(1)
	mp.evictions.Add(ctx, 1)
}

// RecordBytesSaved records compression savings for one write.
func (mp *MetricsProvider) RecordBytesSaved(ctx context.Context, saved int64) {
	if saved <= 0 {
		return
	}
	mp.counters.bytesSaved.Add(saved)
	mp.bytesSaved.Add(ctx, saved)
}

// RecordError records a cache error by type.
func (mp *MetricsProvider) RecordError(ctx context.Context, errorType string) {
	mp.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.type", errorType),
	))
}

// RecordGetDuration records the latency of one read.
func (mp *MetricsProvider) RecordGetDuration(ctx context.Context, duration time.Duration, layer string) {
	mp.counters.latencyNanos.Add(int64(duration))
	mp.counters.latencyCount.Add(1)
	mp.getDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("cache.layer", layer),
	))
}

// SetStoreDegraded flips the distributed-store degradation gauge.
func (mp *MetricsProvider) SetStoreDegraded(ctx context.Context, degraded bool) {
	if degraded {
		mp.storeDegraded.Add(ctx, 1)
	} else {
		mp.storeDegraded.Add(ctx, -1)
	}
}

// Snapshot returns the current local counter view. Never blocks readers
// or writers.
func (mp *MetricsProvider) Snapshot() Snapshot {
	s := Snapshot{
		L1Hits:        mp.counters.l1Hits.Load(),
		L2Hits:        mp.counters.l2Hits.Load(),
		Misses:        mp.counters.misses.Load(),
		PrefetchWarms: mp.counters.prefetchWarms.Load(),
		Invalidations: mp.counters.invalidations.Load(),
		Evictions:     mp.counters.evictions.Load(),
		BytesSaved:    mp.counters.bytesSaved.Load(),
	}
	if count := mp.counters.latencyCount.Load(); count > 0 {
		s.AverageLatency = time.Duration(mp.counters.latencyNanos.Load() / count)
	}
	return s
}

// Reset zeroes the local snapshot counters. The OpenTelemetry instruments
// are cumulative and unaffected.
func (mp *MetricsProvider) Reset() {
	mp.counters.l1Hits.Store(0)
	mp.counters.l2Hits.Store(0)
	mp.counters.misses.Store(0)
	mp.counters.prefetchWarms.Store(0)
	mp.counters.invalidations.Store(0)
	mp.counters.evictions.Store(0)
	mp.counters.bytesSaved.Store(0)
	mp.counters.latencyNanos.Store(0)
	mp.counters.latencyCount.Store(0)
}
