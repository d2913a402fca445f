// Package application provides the cache orchestration service: the
// layered read-through path, coordinated invalidation, and the background
// refresh and prefetch machinery around them.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
	"github.com/felixgeelhaar/cacheflow/domain/dependency"
	"github.com/felixgeelhaar/cacheflow/domain/tag"
	"github.com/felixgeelhaar/cacheflow/infrastructure/codec"
	"github.com/felixgeelhaar/cacheflow/infrastructure/logging"
	"github.com/felixgeelhaar/cacheflow/infrastructure/prefetch"
	"github.com/felixgeelhaar/cacheflow/infrastructure/telemetry"
)

// FetchProvider builds origin fetch functions per key. Satisfied by
// origin.Fetcher.
type FetchProvider interface {
	FetchFor(key string) (cache.FetchFunc, error)
}

// BroadcastFunc publishes an invalidation to other instances sharing L2,
// so they can drop the affected keys from their local L1.
type BroadcastFunc func(ctx context.Context, keys, tags []string) error

// Orchestrator coordinates the cache hierarchy: L1, then L2, then the
// caller-supplied fetch, populating both layers on the way back and
// expanding invalidations through the tag index.
//
// One instance is constructed at process start and passed to every
// consumer; there is no package-level singleton.
type Orchestrator struct {
	l1       cache.Store
	l2       cache.Store
	l2batch  cache.BatchStore
	index    tag.Index
	deps     *dependency.Table
	codec    *codec.Codec
	metrics  *telemetry.MetricsProvider
	planner  *prefetch.Planner
	origin   FetchProvider
	audit    *AuditLog
	policies *cache.PolicySet

	broadcast BroadcastFunc

	group   singleflight.Group
	refresh *refreshPool

	fetchTimeout time.Duration
	now          func() time.Time
	closed       atomic.Bool
}

// OrchestratorConfig contains the orchestrator's collaborators and knobs.
type OrchestratorConfig struct {
	// L1 is the in-process store. Required.
	L1 cache.Store

	// L2 is the shared distributed store. Optional; without it the
	// orchestrator runs local-only.
	L2 cache.Store

	// TagIndex maintains tag -> key associations. Required.
	TagIndex tag.Index

	// Dependencies expands entity changes into affected tags.
	// Defaults to dependency.Default().
	Dependencies *dependency.Table

	// Codec serializes and compresses payloads. Defaults to codec.New().
	Codec *codec.Codec

	// Metrics records counters and latencies. Optional.
	Metrics *telemetry.MetricsProvider

	// Planner observes access patterns and warms co-accessed keys. Optional.
	Planner *prefetch.Planner

	// Origin builds fetch functions for Warm. Optional.
	Origin FetchProvider

	// Policies supplies per-category default policies for reads that pass
	// a zero TTL. Defaults to cache.DefaultPolicy for every namespace.
	Policies *cache.PolicySet

	// Broadcast publishes invalidations to peer instances. Optional.
	Broadcast BroadcastFunc

	// FetchTimeout bounds a single origin fetch. A timeout is treated as
	// a fetch failure. Defaults to 5s.
	FetchTimeout time.Duration

	// RefreshWorkers and RefreshQueueSize size the background
	// stale-while-revalidate pool.
	RefreshWorkers   int
	RefreshQueueSize int

	// AuditCapacity is how many invalidation records to retain.
	AuditCapacity int

	// Now overrides the time source. Used in tests.
	Now func() time.Time
}

// NewOrchestrator creates an orchestrator with the given configuration.
func NewOrchestrator(config OrchestratorConfig) (*Orchestrator, error) {
	if config.L1 == nil {
		return nil, errors.New("l1 store is required")
	}
	if config.TagIndex == nil {
		return nil, errors.New("tag index is required")
	}

	o := &Orchestrator{
		l1:           config.L1,
		l2:           config.L2,
		index:        config.TagIndex,
		deps:         config.Dependencies,
		codec:        config.Codec,
		metrics:      config.Metrics,
		planner:      config.Planner,
		origin:       config.Origin,
		policies:     config.Policies,
		broadcast:    config.Broadcast,
		audit:        NewAuditLog(config.AuditCapacity),
		fetchTimeout: config.FetchTimeout,
		now:          config.Now,
	}

	// Set defaults
	if o.deps == nil {
		o.deps = dependency.Default()
	}
	if o.codec == nil {
		o.codec = codec.New()
	}
	if o.fetchTimeout <= 0 {
		o.fetchTimeout = 5 * time.Second
	}
	if o.now == nil {
		o.now = time.Now
	}
	if batch, ok := config.L2.(cache.BatchStore); ok {
		o.l2batch = batch
	}
	o.refresh = newRefreshPool(config.RefreshWorkers, config.RefreshQueueSize, o.runRefresh)

	return o, nil
}

// Get serves a key through the hierarchy: L1, L2, then fetch. A fresh hit
// returns immediately; a stale-but-serveable hit returns the stale value
// and refreshes in the background; a miss fetches synchronously, writes
// L2 then L1, and registers tags.
func (o *Orchestrator) Get(ctx context.Context, key string, fetch cache.FetchFunc, policy cache.Policy) (json.RawMessage, error) {
	if o.closed.Load() {
		return nil, cache.ErrClosed
	}
	parsed, err := cache.ParseKey(key)
	if err != nil {
		return nil, err
	}
	policy = o.normalizePolicy(parsed.Namespace, policy)
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	start := o.now()
	if o.planner != nil {
		o.planner.Observe(key)
	}

	// A layer can hold a live entry the caller still cannot be served
	// from, e.g. stale-but-serveable with a nil fetch. Its index
	// references must survive so invalidation still reaches it.
	live := false

	// L1
	if entry, ok := o.readLayer(ctx, o.l1, key, "l1"); ok {
		if raw, served := o.serve(ctx, o.l1, entry, key, fetch, policy, "l1", start); served {
			return raw, nil
		}
		if entry.Serveable(o.now()) {
			live = true
		}
	}

	// L2
	if o.l2 != nil {
		if entry, ok := o.readLayer(ctx, o.l2, key, "l2"); ok {
			now := o.now()
			if entry.Serveable(now) {
				live = true
				o.promote(ctx, key, entry, now)
			}
			if raw, served := o.serve(ctx, o.l2, entry, key, fetch, policy, "l2", start); served {
				return raw, nil
			}
		}
	}

	// Miss. When the key is truly gone from both layers, any index
	// references to it are dead; prune them so the index does not
	// accumulate stale entries.
	if o.metrics != nil {
		o.metrics.RecordMiss(ctx, parsed.Namespace)
	}
	if !live {
		if err := o.index.Prune(ctx, key); err != nil {
			logging.Debug().
				Add(logging.Component("orchestrator")).
				Add(logging.Key(key)).
				Add(logging.ErrorField(err)).
				Msg("index prune failed")
		}
	}
	if fetch == nil {
		return nil, fmt.Errorf("%w: %s", cache.ErrKeyNotFound, key)
	}

	raw, err := o.fetchCoalesced(ctx, key, parsed, fetch, policy)
	if err != nil {
		return nil, err
	}
	if o.metrics != nil {
		o.metrics.RecordGetDuration(ctx, o.now().Sub(start), "origin")
	}
	return raw, nil
}

// BulkGet partitions keys into L1 hits, L2 hits, and misses, issuing a
// single batched L2 read for the candidate set. Absent keys are simply
// missing from the result; callers fetch and repopulate them.
func (o *Orchestrator) BulkGet(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	if o.closed.Load() {
		return nil, cache.ErrClosed
	}

	out := make(map[string]json.RawMessage, len(keys))
	candidates := make([]string, 0, len(keys))

	for _, key := range keys {
		parsed, err := cache.ParseKey(key)
		if err != nil {
			continue
		}
		entry, ok := o.readLayer(ctx, o.l1, key, "l1")
		if ok && entry.Serveable(o.now()) {
			if raw, err := o.codec.RawValue(entry.Payload, entry.Compressed); err == nil {
				out[key] = raw
				if o.metrics != nil {
					o.metrics.RecordL1Hit(ctx, parsed.Namespace)
				}
				continue
			}
		}
		candidates = append(candidates, key)
	}

	if len(candidates) > 0 && o.l2 != nil {
		values := o.bulkReadL2(ctx, candidates)
		for key, data := range values {
			entry, err := o.codec.UnmarshalEntry(data)
			if err != nil {
				continue
			}
			now := o.now()
			if !entry.Serveable(now) {
				continue
			}
			raw, err := o.codec.RawValue(entry.Payload, entry.Compressed)
			if err != nil {
				continue
			}
			out[key] = raw
			o.promote(ctx, key, entry, now)
			if o.metrics != nil {
				if parsed, perr := cache.ParseKey(key); perr == nil {
					o.metrics.RecordL2Hit(ctx, parsed.Namespace)
				}
			}
		}
	}

	if o.metrics != nil {
		for _, key := range keys {
			if _, ok := out[key]; !ok {
				if parsed, err := cache.ParseKey(key); err == nil {
					o.metrics.RecordMiss(ctx, parsed.Namespace)
				}
			}
		}
	}
	return out, nil
}

// Set populates a key directly, e.g. pre-warming after a write. The value
// goes through the same serialize, L2-then-L1, register-tags path as a
// fetched one.
func (o *Orchestrator) Set(ctx context.Context, key string, value any, policy cache.Policy) error {
	if o.closed.Load() {
		return cache.ErrClosed
	}
	parsed, err := cache.ParseKey(key)
	if err != nil {
		return err
	}
	policy = o.normalizePolicy(parsed.Namespace, policy)
	if err := policy.Validate(); err != nil {
		return err
	}

	_, err = o.store(ctx, key, parsed, value, policy)
	return err
}

// Invalidate expands one entity change into its full tag closure and
// removes every key registered under those tags from both layers.
// Idempotent: a second call with the same arguments finds nothing left to
// delete and still succeeds.
func (o *Orchestrator) Invalidate(ctx context.Context, entityType, entityID, tenantScope string) error {
	if o.closed.Load() {
		return cache.ErrClosed
	}
	scope, err := cache.ParseScope(tenantScope)
	if err != nil {
		return err
	}
	tagsList, err := o.deps.Closure(scope, dependency.EntityType(entityType), entityID)
	if err != nil {
		return err
	}

	keys, err := o.index.KeysFor(ctx, tagsList)
	if err != nil {
		// A degraded index can only cost extra deletions later, never a
		// missed one: the entity's own key is still removed below.
		logging.Warn().
			Add(logging.Component("orchestrator")).
			Add(logging.Operation("invalidate")).
			Add(logging.ErrorField(err)).
			Msg("tag index lookup failed")
		keys = nil
	}

	own := dependency.OwnTag(scope, dependency.EntityType(entityType), entityID)
	seen := map[string]struct{}{own: {}}
	all := []string{own}
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		all = append(all, k)
	}

	o.deleteEverywhere(ctx, all)

	if err := o.index.DropTags(ctx, tagsList); err != nil {
		logging.Warn().
			Add(logging.Component("orchestrator")).
			Add(logging.Operation("invalidate")).
			Add(logging.ErrorField(err)).
			Msg("tag index drop failed")
	}

	if o.planner != nil {
		for _, k := range all {
			o.planner.Invalidated(k)
		}
	}
	if o.metrics != nil {
		o.metrics.RecordInvalidation(ctx, entityType, int64(len(all)))
	}
	o.audit.Append(AuditRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Scope:      tenantScope,
		Tags:       tagsList,
		KeyCount:   len(all),
		At:         o.now(),
	})
	if o.broadcast != nil {
		if err := o.broadcast(ctx, all, tagsList); err != nil {
			logging.Warn().
				Add(logging.Component("orchestrator")).
				Add(logging.Operation("invalidate")).
				Add(logging.ErrorField(err)).
				Msg("invalidation broadcast failed")
		}
	}

	logging.Debug().
		Add(logging.Component("orchestrator")).
		Add(logging.EntityType(entityType)).
		Add(logging.EntityID(entityID)).
		Add(logging.Tenant(tenantScope)).
		Add(logging.KeyCount(len(all))).
		Msg("invalidated")
	return nil
}

// Warm loads a key through the registered origin, populating both layers.
// Used by the prefetch planner and by explicit pre-warming.
func (o *Orchestrator) Warm(ctx context.Context, key string) error {
	if o.origin == nil {
		return errors.New("no origin fetcher configured")
	}
	fetch, err := o.origin.FetchFor(key)
	if err != nil {
		return err
	}
	if _, err := o.Get(ctx, key, fetch, cache.Policy{}); err != nil {
		return err
	}
	if o.metrics != nil {
		if parsed, perr := cache.ParseKey(key); perr == nil {
			o.metrics.RecordPrefetchWarm(ctx, parsed.Namespace)
		}
	}
	return nil
}

// LocalKeys lists L1 keys matching a prefix pattern ("org:42:*"), sorted,
// up to limit (0 means unlimited). Administrative use only; the scan walks
// the whole store.
func (o *Orchestrator) LocalKeys(ctx context.Context, pattern string, limit int) ([]string, error) {
	if o.closed.Load() {
		return nil, cache.ErrClosed
	}
	var keys []string
	err := o.l1.ScanKeys(ctx, pattern, func(key string) bool {
		keys = append(keys, key)
		return limit <= 0 || len(keys) < limit
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}

// DropLocal removes keys from L1 only. Applied when a peer instance
// broadcasts an invalidation; the peer already handled L2.
func (o *Orchestrator) DropLocal(keys []string) {
	ctx := context.Background()
	for _, key := range keys {
		_ = o.l1.Delete(ctx, key)
		if o.planner != nil {
			o.planner.Invalidated(key)
		}
	}
}

// Stats is a point-in-time operational view of the engine.
type Stats struct {
	Counters        telemetry.Snapshot `json:"counters"`
	L2Degraded      bool               `json:"l2_degraded"`
	PrefetchFired   uint64             `json:"prefetch_fired"`
	PrefetchDropped uint64             `json:"prefetch_dropped"`
	PrefetchSkipped uint64             `json:"prefetch_skipped"`
}

// Stats returns current counters and store health. Never blocks the
// read/write paths.
func (o *Orchestrator) Stats() Stats {
	s := Stats{}
	if o.metrics != nil {
		s.Counters = o.metrics.Snapshot()
	}
	if h, ok := o.l2.(interface{ Healthy() bool }); ok {
		s.L2Degraded = !h.Healthy()
	}
	if o.planner != nil {
		s.PrefetchFired = o.planner.Fired()
		s.PrefetchDropped = o.planner.Dropped()
		s.PrefetchSkipped = o.planner.Skipped()
	}
	return s
}

// RecentInvalidations returns up to n audit records, newest first.
func (o *Orchestrator) RecentInvalidations(n int) []AuditRecord {
	return o.audit.Recent(n)
}

// Close stops the background pools. Further operations return ErrClosed.
func (o *Orchestrator) Close() error {
	if o.closed.Swap(true) {
		return nil
	}
	o.refresh.close()
	if o.planner != nil {
		o.planner.Close()
	}
	return nil
}

// readLayer reads and decodes an entry from one store. Store failures and
// undecodable entries are treated as misses; the latter are deleted so
// the next read refetches cleanly.
func (o *Orchestrator) readLayer(ctx context.Context, store cache.Store, key, layer string) (*cache.Entry, bool) {
	if store == nil {
		return nil, false
	}
	data, found, err := store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrStoreUnavailable) {
			logging.Warn().
				Add(logging.Component("orchestrator")).
				Add(logging.Layer(layer)).
				Add(logging.Key(key)).
				Add(logging.ErrorField(err)).
				Msg("store read failed")
		}
		return nil, false
	}
	if !found {
		return nil, false
	}
	entry, err := o.codec.UnmarshalEntry(data)
	if err != nil {
		logging.Warn().
			Add(logging.Component("orchestrator")).
			Add(logging.Layer(layer)).
			Add(logging.Key(key)).
			Add(logging.ErrorField(err)).
			Msg("undecodable entry dropped")
		_ = store.Delete(ctx, key)
		return nil, false
	}
	return entry, true
}

// serve returns the entry's value if it is fresh, or stale-but-serveable
// with a background refresh scheduled. Reports whether the caller was
// served.
func (o *Orchestrator) serve(ctx context.Context, store cache.Store, entry *cache.Entry, key string, fetch cache.FetchFunc, policy cache.Policy, layer string, start time.Time) (json.RawMessage, bool) {
	now := o.now()
	fresh := entry.Fresh(now)
	if !fresh && !(entry.Serveable(now) && fetch != nil) {
		return nil, false
	}

	raw, err := o.codec.RawValue(entry.Payload, entry.Compressed)
	if err != nil {
		_ = store.Delete(ctx, key)
		return nil, false
	}
	if !fresh {
		o.refresh.enqueue(refreshTask{key: key, fetch: fetch, policy: policy})
	}
	if o.metrics != nil {
		parsed, perr := cache.ParseKey(key)
		if perr == nil {
			if layer == "l1" {
				o.metrics.RecordL1Hit(ctx, parsed.Namespace)
			} else {
				o.metrics.RecordL2Hit(ctx, parsed.Namespace)
			}
		}
		o.metrics.RecordGetDuration(ctx, o.now().Sub(start), layer)
	}
	return raw, true
}

// promote copies a serveable L2 entry into L1 with its remaining TTL so
// both layers expire together.
func (o *Orchestrator) promote(ctx context.Context, key string, entry *cache.Entry, now time.Time) {
	remaining := entry.Remaining(now)
	if remaining <= 0 {
		return
	}
	data, err := o.codec.MarshalEntry(entry)
	if err != nil {
		return
	}
	_ = o.l1.Set(ctx, key, data, remaining)
}

// fetchCoalesced runs the fetch once per key regardless of how many
// callers wait on it. A cancelled caller stops waiting; the shared fetch
// keeps running so other waiters and the cache write are unaffected.
func (o *Orchestrator) fetchCoalesced(ctx context.Context, key string, parsed cache.Key, fetch cache.FetchFunc, policy cache.Policy) (json.RawMessage, error) {
	detached := context.WithoutCancel(ctx)
	ch := o.group.DoChan(key, func() (any, error) {
		return o.populate(detached, key, parsed, fetch, policy)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	}
}

// populate fetches from the origin and writes the result through both
// layers. Fetch failures propagate and are never cached.
func (o *Orchestrator) populate(ctx context.Context, key string, parsed cache.Key, fetch cache.FetchFunc, policy cache.Policy) (json.RawMessage, error) {
	fctx := ctx
	if o.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, o.fetchTimeout)
		defer cancel()
	}

	value, err := fetch(fctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Join(cache.ErrFetchFailed, cache.ErrFetchTimeout, err)
		}
		if errors.Is(err, cache.ErrFetchFailed) {
			return nil, err
		}
		return nil, errors.Join(cache.ErrFetchFailed, err)
	}

	return o.store(ctx, key, parsed, value, policy)
}

// store serializes the value and writes it L2 first, then L1, then
// registers tags. The ordering matters twice over: a crash after an
// L1-only write could leave this instance ahead of its peers, and a tag
// registered before the entry exists could let a concurrent invalidation
// miss it.
func (o *Orchestrator) store(ctx context.Context, key string, parsed cache.Key, value any, policy cache.Policy) (json.RawMessage, error) {
	payload, compressed, saved, err := o.codec.EncodeValue(value)
	if err != nil {
		return nil, err
	}

	entry := &cache.Entry{
		Payload:      payload,
		Compressed:   compressed,
		WrittenAt:    o.now(),
		TTLSeconds:   policy.TTLSeconds,
		StaleSeconds: policy.StaleWhileRevalidateSeconds,
		Tags:         o.tagsFor(parsed, policy),
	}
	data, err := o.codec.MarshalEntry(entry)
	if err != nil {
		return nil, err
	}

	if o.l2 != nil {
		if err := o.l2.Set(ctx, key, data, entry.StoreTTL()); err != nil {
			logging.Warn().
				Add(logging.Component("orchestrator")).
				Add(logging.Layer("l2")).
				Add(logging.Key(key)).
				Add(logging.ErrorField(err)).
				Msg("l2 write failed, continuing local-only")
		}
	}
	if err := o.l1.Set(ctx, key, data, entry.StoreTTL()); err != nil {
		logging.Warn().
			Add(logging.Component("orchestrator")).
			Add(logging.Layer("l1")).
			Add(logging.Key(key)).
			Add(logging.ErrorField(err)).
			Msg("l1 write failed")
	}

	if err := o.index.Register(ctx, key, entry.Tags); err != nil {
		logging.Warn().
			Add(logging.Component("orchestrator")).
			Add(logging.Key(key)).
			Add(logging.Tags(entry.Tags)).
			Add(logging.ErrorField(err)).
			Msg("tag registration failed")
	}

	if o.metrics != nil && saved > 0 {
		o.metrics.RecordBytesSaved(ctx, int64(saved))
	}

	return o.codec.RawValue(payload, compressed)
}

// tagsFor combines the key's structural tags with the policy's. The
// entity's own tag and its list tag are always present so invalidation
// closures reach every cached view.
func (o *Orchestrator) tagsFor(parsed cache.Key, policy cache.Policy) []string {
	tags := []string{
		parsed.String(),
		parsed.Scope.String() + ":" + parsed.Namespace,
	}
	seen := map[string]struct{}{tags[0]: {}, tags[1]: {}}
	for _, t := range policy.Tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

func (o *Orchestrator) bulkReadL2(ctx context.Context, keys []string) map[string][]byte {
	if o.l2batch != nil {
		values, err := o.l2batch.GetMany(ctx, keys)
		if err != nil {
			return nil
		}
		return values
	}

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		data, found, err := o.l2.Get(ctx, key)
		if err != nil {
			return out
		}
		if found {
			out[key] = data
		}
	}
	return out
}

func (o *Orchestrator) deleteEverywhere(ctx context.Context, keys []string) {
	if o.l2batch != nil {
		if err := o.l2batch.DeleteMany(ctx, keys); err != nil {
			logging.Warn().
				Add(logging.Component("orchestrator")).
				Add(logging.Layer("l2")).
				Add(logging.KeyCount(len(keys))).
				Add(logging.ErrorField(err)).
				Msg("l2 batch delete failed")
		}
	} else if o.l2 != nil {
		for _, key := range keys {
			if err := o.l2.Delete(ctx, key); err != nil {
				logging.Warn().
					Add(logging.Component("orchestrator")).
					Add(logging.Layer("l2")).
					Add(logging.Key(key)).
					Add(logging.ErrorField(err)).
					Msg("l2 delete failed")
				break
			}
		}
	}
	for _, key := range keys {
		_ = o.l1.Delete(ctx, key)
	}
}

// runRefresh executes one background stale-while-revalidate refresh,
// coalesced with any foreground fetch for the same key. Failures are
// dropped; the caller already got the stale value.
func (o *Orchestrator) runRefresh(ctx context.Context, t refreshTask) {
	if o.closed.Load() {
		return
	}
	parsed, err := cache.ParseKey(t.key)
	if err != nil {
		return
	}
	_, err, _ = o.group.Do(t.key, func() (any, error) {
		return o.populate(ctx, t.key, parsed, t.fetch, t.policy)
	})
	if err != nil {
		logging.Debug().
			Add(logging.Component("refresh")).
			Add(logging.Key(t.key)).
			Add(logging.ErrorField(err)).
			Msg("background refresh failed")
	}
}

// normalizePolicy substitutes the namespace's category default when the
// caller passes a zero TTL, preserving any tags, stale window, and
// priority they set.
func (o *Orchestrator) normalizePolicy(namespace string, policy cache.Policy) cache.Policy {
	if policy.TTLSeconds == 0 {
		def := cache.DefaultPolicy()
		if o.policies != nil {
			def = o.policies.For(namespace)
		}
		def.Tags = policy.Tags
		if policy.StaleWhileRevalidateSeconds > 0 {
			def.StaleWhileRevalidateSeconds = policy.StaleWhileRevalidateSeconds
		}
		if policy.Priority != "" {
			def.Priority = policy.Priority
		}
		return def
	}
	if policy.Priority == "" {
		policy.Priority = cache.PriorityNormal
	}
	return policy
}
