package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestStore_SetGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()
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

	// Deleting an absent key is not an error.
	if err := s.Delete(ctx, "org:42:risk:7"); err != nil {
		t.Errorf("second Delete() error: %v", err)
	}
}

func TestStore_EmptyKeyRejected(t *testing.T) {
	t.Parallel()

	s := NewStore()
	if err := s.Set(context.Background(), "", []byte("v"), 0); err == nil {
		t.Error("Set() with empty key should fail")
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()
	if err := s.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(25 * time.Millisecond)

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expired entry should be reported absent")
	}
}

func TestStore_ValueIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()
	original := []byte("abc")
	if err := s.Set(ctx, "k", original, 0); err != nil {
		t.Fatal(err)
	}
	original[0] = 'x'

	value, _, _ := s.Get(ctx, "k")
	if string(value) != "abc" {
		t.Errorf("stored value mutated externally: %q", value)
	}
	value[0] = 'y'

	again, _, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("returned value aliased store memory: %q", again)
	}
}

func TestStore_LRUEviction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var evicted []string
	var mu sync.Mutex
	s := NewStore(WithCapacity(3), WithShards(1), WithEvictionHook(func(key string) {
		mu.Lock()
		evicted = append(evicted, key)
		mu.Unlock()
	}))

	for i := 1; i <= 3; i++ {
		if err := s.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0); err != nil {
			t.Fatal(err)
		}
	}
	// Touch k1 so k2 becomes the LRU victim.
	if _, ok, _ := s.Get(ctx, "k1"); !ok {
		t.Fatal("k1 should be present")
	}
	if err := s.Set(ctx, "k4", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := s.Get(ctx, "k2"); ok {
		t.Error("k2 should have been evicted")
	}
	if _, ok, _ := s.Get(ctx, "k1"); !ok {
		t.Error("recently used k1 should survive eviction")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(evicted) != 1 || evicted[0] != "k2" {
		t.Errorf("eviction hook saw %v, want [k2]", evicted)
	}
}

func TestStore_ScanKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()
	keys := []string{"org:42:risk:1", "org:42:risk:2", "org:42:doc:1", "org:43:risk:1"}
	for _, k := range keys {
		if err := s.Set(ctx, k, []byte("v"), 0); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	if err := s.ScanKeys(ctx, "org:42:risk:*", func(key string) bool {
		got = append(got, key)
		return true
	}); err != nil {
		t.Fatalf("ScanKeys() error: %v", err)
	}
	sort.Strings(got)
	want := []string{"org:42:risk:1", "org:42:risk:2"}
	if len(got) != len(want) {
		t.Fatalf("ScanKeys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ScanKeys()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStore_ScanKeysEarlyStop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore(WithShards(1))
	for i := 0; i < 10; i++ {
		if err := s.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0); err != nil {
			t.Fatal(err)
		}
	}

	count := 0
	if err := s.ScanKeys(ctx, "k*", func(string) bool {
		count++
		return count < 3
	}); err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("iteration continued after fn returned false: %d", count)
	}
}

func TestStore_GetMany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()
	for _, k := range []string{"a", "b"} {
		if err := s.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetMany(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("GetMany() error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("GetMany() returned %d entries, want 2", len(got))
	}
	if _, ok := got["missing"]; ok {
		t.Error("absent key should be omitted from result")
	}
}

func TestStore_CleanupExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()
	if err := s.Set(ctx, "short", []byte("v"), 5*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "long", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	time.Sleep(15 * time.Millisecond)

	if removed := s.CleanupExpired(); removed != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", removed)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore(WithCapacity(128))
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%32)
				_ = s.Set(ctx, key, []byte("v"), time.Minute)
				_, _, _ = s.Get(ctx, key)
				if i%10 == 0 {
					_ = s.Delete(ctx, key)
				}
			}
		}(g)
	}
	wg.Wait()
}
