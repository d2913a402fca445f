package tagindex

import (
	"context"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedis(client)
}

func TestRedisRegisterAndKeysFor(t *testing.T) {
	t.Parallel()

	idx := newTestRedis(t)
	ctx := context.Background()

	if err := idx.Register(ctx, "org:42:risk:7", []string{"org:42:risk", "org:42:dashboard"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := idx.Register(ctx, "org:42:risk:9", []string{"org:42:risk"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	keys, err := idx.KeysFor(ctx, []string{"org:42:risk"})
	if err != nil {
		t.Fatalf("KeysFor() error = %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "org:42:risk:7" || keys[1] != "org:42:risk:9" {
		t.Errorf("KeysFor() = %v, want [org:42:risk:7 org:42:risk:9]", keys)
	}
}

func TestRedisKeysForUnion(t *testing.T) {
	t.Parallel()

	idx := newTestRedis(t)
	ctx := context.Background()

	_ = idx.Register(ctx, "org:42:risk:7", []string{"org:42:risk", "org:42:dashboard"})
	_ = idx.Register(ctx, "org:42:doc:3", []string{"org:42:document", "org:42:dashboard"})

	keys, err := idx.KeysFor(ctx, []string{"org:42:dashboard"})
	if err != nil {
		t.Fatalf("KeysFor() error = %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("KeysFor() returned %d keys, want 2: %v", len(keys), keys)
	}
}

func TestRedisPrune(t *testing.T) {
	t.Parallel()

	idx := newTestRedis(t)
	ctx := context.Background()

	_ = idx.Register(ctx, "org:42:risk:7", []string{"org:42:risk", "org:42:dashboard"})
	_ = idx.Register(ctx, "org:42:risk:9", []string{"org:42:risk"})

	if err := idx.Prune(ctx, "org:42:risk:7"); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	keys, _ := idx.KeysFor(ctx, []string{"org:42:risk", "org:42:dashboard"})
	if len(keys) != 1 || keys[0] != "org:42:risk:9" {
		t.Errorf("after Prune, KeysFor() = %v, want [org:42:risk:9]", keys)
	}
}

func TestRedisPruneUnknownKey(t *testing.T) {
	t.Parallel()

	idx := newTestRedis(t)

	if err := idx.Prune(context.Background(), "org:42:risk:404"); err != nil {
		t.Fatalf("Prune(unknown) error = %v", err)
	}
}

func TestRedisDropTags(t *testing.T) {
	t.Parallel()

	idx := newTestRedis(t)
	ctx := context.Background()

	_ = idx.Register(ctx, "org:42:risk:7", []string{"org:42:risk", "org:42:dashboard"})

	if err := idx.DropTags(ctx, []string{"org:42:risk"}); err != nil {
		t.Fatalf("DropTags() error = %v", err)
	}

	keys, _ := idx.KeysFor(ctx, []string{"org:42:risk"})
	if len(keys) != 0 {
		t.Errorf("after DropTags, KeysFor(dropped) = %v, want empty", keys)
	}

	keys, _ = idx.KeysFor(ctx, []string{"org:42:dashboard"})
	if len(keys) != 1 {
		t.Errorf("DropTags removed unrelated membership: %v", keys)
	}
}
