package tagindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
	"github.com/felixgeelhaar/cacheflow/domain/tag"
)

// Redis implements tag.Index on Redis sets, so that every instance sharing
// the L2 store also shares the tag membership view. Each tag maps to a set
// of entry keys; a reverse set per key supports pruning on eviction.
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

// RedisOption customizes the Redis index.
type RedisOption func(*Redis)

// WithKeyPrefix overrides the prefix applied to index keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.keyPrefix = prefix
	}
}

// NewRedis creates a tag index backed by the given Redis client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client:    client,
		keyPrefix: "cacheflow:tag:",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) tagKey(t string) string {
	return r.keyPrefix + "t:" + t
}

func (r *Redis) revKey(key string) string {
	return r.keyPrefix + "k:" + key
}

// Register adds the key to each tag's set and records the reverse mapping.
func (r *Redis) Register(ctx context.Context, key string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, t := range tags {
		pipe.SAdd(ctx, r.tagKey(t), key)
	}
	members := make([]interface{}, len(tags))
	for i, t := range tags {
		members[i] = t
	}
	pipe.SAdd(ctx, r.revKey(key), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapIndexError("register", err)
	}
	return nil
}

// KeysFor returns the union of keys across the given tags via SUNION.
func (r *Redis) KeysFor(ctx context.Context, tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	tagKeys := make([]string, len(tags))
	for i, t := range tags {
		tagKeys[i] = r.tagKey(t)
	}
	keys, err := r.client.SUnion(ctx, tagKeys...).Result()
	if err != nil {
		return nil, wrapIndexError("keys for", err)
	}
	return keys, nil
}

// Prune removes a key from every tag set it was registered under.
func (r *Redis) Prune(ctx context.Context, key string) error {
	tags, err := r.client.SMembers(ctx, r.revKey(key)).Result()
	if err != nil {
		return wrapIndexError("prune", err)
	}
	if len(tags) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, t := range tags {
		pipe.SRem(ctx, r.tagKey(t), key)
	}
	pipe.Del(ctx, r.revKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapIndexError("prune", err)
	}
	return nil
}

// DropTags deletes the given tag sets and their reverse entries.
func (r *Redis) DropTags(ctx context.Context, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	for _, t := range tags {
		keys, err := r.client.SMembers(ctx, r.tagKey(t)).Result()
		if err != nil {
			return wrapIndexError("drop tags", err)
		}
		pipe := r.client.Pipeline()
		for _, key := range keys {
			pipe.SRem(ctx, r.revKey(key), t)
		}
		pipe.Del(ctx, r.tagKey(t))
		if _, err := pipe.Exec(ctx); err != nil {
			return wrapIndexError("drop tags", err)
		}
	}
	return nil
}

func wrapIndexError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("tag index %s: %w", op, err)
	}
	return errors.Join(cache.ErrStoreUnavailable, fmt.Errorf("tag index %s: %w", op, err))
}

var _ tag.Index = (*Redis)(nil)
