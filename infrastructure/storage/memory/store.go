// Package memory provides the in-process L1 store: a sharded, LRU-bounded
// map with lazy TTL expiry. Sharding keeps lock contention per-shard so
// unrelated traffic never serializes on a single mutex.
package memory

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
)

// EvictFunc is invoked synchronously when capacity pressure evicts a key.
type EvictFunc func(key string)

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
	element   *list.Element
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type shard struct {
	mu       sync.Mutex
	entries  map[string]*entry
	lru      *list.List
	capacity int
	onEvict  EvictFunc
}

// Store is a sharded in-memory implementation of cache.Store with a
// per-shard capacity bound and least-recently-used eviction.
type Store struct {
	shards []*shard
	mask   uint64
}

// Option configures the store.
type Option func(*config)

type config struct {
	capacity int
	shards   int
	onEvict  EvictFunc
}

// WithCapacity bounds the total number of entries across all shards.
func WithCapacity(n int) Option {
	return func(c *config) {
		c.capacity = n
	}
}

// WithShards sets the shard count, rounded up to a power of two.
func WithShards(n int) Option {
	return func(c *config) {
		c.shards = n
	}
}

// WithEvictionHook registers a callback invoked on every capacity eviction.
func WithEvictionHook(fn EvictFunc) Option {
	return func(c *config) {
		c.onEvict = fn
	}
}

// NewStore creates an L1 store. Defaults: 10000 entries across 16 shards.
func NewStore(opts ...Option) *Store {
	cfg := config{capacity: 10000, shards: 16}
	for _, opt := range opts {
		opt(&cfg)
	}

	n := 1
	for n < cfg.shards {
		n <<= 1
	}
	perShard := cfg.capacity / n
	if perShard < 1 {
		perShard = 1
	}

	s := &Store{
		shards: make([]*shard, n),
		mask:   uint64(n - 1),
	}
	for i := range s.shards {
		s.shards[i] = &shard{
			entries:  make(map[string]*entry),
			lru:      list.New(),
			capacity: perShard,
			onEvict:  cfg.onEvict,
		}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	return s.shards[xxhash.Sum64String(key)&s.mask]
}

// Get retrieves a value, updating LRU ordering. Expired entries are
// removed lazily and reported as absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		sh.removeLocked(e, false)
		return nil, false, nil
	}

	sh.lru.MoveToFront(e.element)
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true, nil
}

// Set stores a value, evicting the least recently used entry of the
// shard when its capacity is exceeded.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, ok := sh.entries[key]; ok {
		e.value = valueCopy
		e.expiresAt = expiresAt
		sh.lru.MoveToFront(e.element)
		return nil
	}

	if sh.lru.Len() >= sh.capacity {
		sh.evictOldestLocked()
	}

	e := &entry{key: key, value: valueCopy, expiresAt: expiresAt}
	e.element = sh.lru.PushFront(e)
	sh.entries[key] = e
	return nil
}

// Delete removes a key. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, ok := sh.entries[key]; ok {
		sh.removeLocked(e, false)
	}
	return nil
}

// ScanKeys iterates keys matching a prefix pattern ("org:42:*" or an exact
// key). Keys are snapshotted per shard so fn runs without locks held.
func (s *Store) ScanKeys(ctx context.Context, pattern string, fn func(key string) bool) error {
	prefix, wildcard := strings.CutSuffix(pattern, "*")
	now := time.Now()

	for _, sh := range s.shards {
		if err := ctx.Err(); err != nil {
			return err
		}

		sh.mu.Lock()
		matched := make([]string, 0, len(sh.entries))
		for key, e := range sh.entries {
			if e.expired(now) {
				continue
			}
			if wildcard && strings.HasPrefix(key, prefix) || !wildcard && key == pattern {
				matched = append(matched, key)
			}
		}
		sh.mu.Unlock()

		for _, key := range matched {
			if !fn(key) {
				return nil
			}
		}
	}
	return nil
}

// GetMany retrieves each present key. Local lookups, no batching needed.
func (s *Store) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, ok, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = value
		}
	}
	return out, nil
}

// DeleteMany removes all given keys.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// CleanupExpired removes expired entries across all shards, returning the
// number removed. Called from a background sweep, never the hot path.
func (s *Store) CleanupExpired() int {
	now := time.Now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, e := range sh.entries {
			if e.expired(now) {
				sh.removeLocked(e, false)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len returns the current number of entries.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.entries)
		sh.mu.Unlock()
	}
	return total
}

func (sh *shard) removeLocked(e *entry, evicted bool) {
	sh.lru.Remove(e.element)
	delete(sh.entries, e.key)
	if evicted && sh.onEvict != nil {
		sh.onEvict(e.key)
	}
}

func (sh *shard) evictOldestLocked() {
	oldest := sh.lru.Back()
	if oldest == nil {
		return
	}
	sh.removeLocked(oldest.Value.(*entry), true)
}

var (
	_ cache.Store      = (*Store)(nil)
	_ cache.BatchStore = (*Store)(nil)
)
