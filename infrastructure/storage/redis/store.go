package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
)

// Store is the Redis-backed L2 implementation of cache.Store and
// cache.BatchStore, shared across process instances.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// NewStore creates a Redis store with the given configuration.
func NewStore(cfg Config, opts ...ConfigOption) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(cache.ErrStoreUnavailable, err)
	}

	return &Store{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

// NewStoreFromClient creates a store from an existing Redis client.
func NewStoreFromClient(client *redis.Client, keyPrefix string) *Store {
	return &Store{client: client, keyPrefix: keyPrefix}
}

func (s *Store) prefixKey(key string) string {
	return s.keyPrefix + key
}

func (s *Store) stripPrefix(key string) string {
	return key[len(s.keyPrefix):]
}

// Get retrieves a value. A redis.Nil reply is a miss, not an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	value, err := s.client.Get(ctx, s.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, s.wrapError(err)
	}
	return value, true, nil
}

// Set stores a value with the given TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	if err := s.client.Set(ctx, s.prefixKey(key), value, ttl).Err(); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.client.Del(ctx, s.prefixKey(key)).Err(); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// ScanKeys iterates keys matching the pattern via SCAN, never KEYS, so
// iteration does not block the server. Maintenance-path only.
func (s *Store) ScanKeys(ctx context.Context, pattern string, fn func(key string) bool) error {
	iter := s.client.Scan(ctx, 0, s.keyPrefix+pattern, 100).Iterator()
	for iter.Next(ctx) {
		if !fn(s.stripPrefix(iter.Val())) {
			return nil
		}
	}
	if err := iter.Err(); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// GetMany retrieves all present keys in a single MGET round-trip.
func (s *Store) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.prefixKey(key)
	}

	values, err := s.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, s.wrapError(err)
	}

	out := make(map[string][]byte, len(keys))
	for i, v := range values {
		if v == nil {
			continue
		}
		// MGET replies are strings for present keys.
		if str, ok := v.(string); ok {
			out[keys[i]] = []byte(str)
		}
	}
	return out, nil
}

// DeleteMany removes all given keys with one DEL.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.prefixKey(key)
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client for advanced operations.
func (s *Store) Client() *redis.Client {
	return s.client
}

// wrapError maps transport failures onto the store-unavailable sentinel so
// the orchestrator can degrade instead of propagating.
func (s *Store) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Join(cache.ErrStoreUnavailable, err)
}

var (
	_ cache.Store      = (*Store)(nil)
	_ cache.BatchStore = (*Store)(nil)
	_ cache.Pinger     = (*Store)(nil)
)
