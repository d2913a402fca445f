package badger

import (
	"context"
	"sort"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(DefaultConfig(), WithInMemory(), WithKeyPrefix("cacheflow:"), WithGCInterval(0))
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	if err := s.Set(ctx, "org:42:risk:7", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	value, ok, err := s.Get(ctx, "org:42:risk:7")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok || string(value) != "v1" {
		t.Errorf("Get() = %q, %v", value, ok)
	}

	if err := s.Delete(ctx, "org:42:risk:7"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "org:42:risk:7"); ok {
		t.Error("Get() after Delete() should miss")
	}
}

func TestStore_MissIsNotError(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, ok, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get() on absent key error: %v", err)
	}
	if ok {
		t.Error("Get() on absent key should report not found")
	}
}

func TestStore_GetManyDeleteMany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	for _, k := range []string{"a", "b", "c"} {
		if err := s.Set(ctx, k, []byte("v-"+k), 0); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetMany(ctx, []string{"a", "c", "missing"})
	if err != nil {
		t.Fatalf("GetMany() error: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "v-a" {
		t.Errorf("GetMany() = %v", got)
	}

	if err := s.DeleteMany(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("DeleteMany() error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Error("a should be deleted")
	}
	if _, ok, _ := s.Get(ctx, "c"); !ok {
		t.Error("c should survive")
	}
}

func TestStore_ScanKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)
	for _, k := range []string{"org:42:risk:1", "org:42:risk:2", "org:43:risk:1"} {
		if err := s.Set(ctx, k, []byte("v"), 0); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	if err := s.ScanKeys(ctx, "org:42:*", func(key string) bool {
		got = append(got, key)
		return true
	}); err != nil {
		t.Fatalf("ScanKeys() error: %v", err)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "org:42:risk:1" {
		t.Errorf("ScanKeys() = %v", got)
	}
}
