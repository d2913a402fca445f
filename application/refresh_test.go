package application

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRefreshPoolRunsTasks(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	ran := make(map[string]int)
	pool := newRefreshPool(2, 16, func(ctx context.Context, task refreshTask) {
		mu.Lock()
		ran[task.key]++
		mu.Unlock()
	})
	defer pool.close()

	pool.enqueue(refreshTask{key: "org:1:risk:1"})
	pool.enqueue(refreshTask{key: "org:1:risk:2"})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ran["org:1:risk:1"] == 1 && ran["org:1:risk:2"] == 1
	}, "tasks never ran")
}

func TestRefreshPoolDeduplicatesInflightKeys(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	runs := 0
	pool := newRefreshPool(1, 16, func(ctx context.Context, task refreshTask) {
		once.Do(func() { close(started) })
		<-release
		mu.Lock()
		runs++
		mu.Unlock()
	})
	defer pool.close()

	pool.enqueue(refreshTask{key: "org:1:risk:1"})
	<-started

	// Same key while the first refresh is still running: dropped.
	pool.enqueue(refreshTask{key: "org:1:risk:1"})
	pool.enqueue(refreshTask{key: "org:1:risk:1"})
	close(release)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs == 1
	}, "first refresh never finished")

	// Deduplication is over inflight work only; a later enqueue runs.
	time.Sleep(20 * time.Millisecond)
	pool.enqueue(refreshTask{key: "org:1:risk:1"})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs == 2
	}, "post-completion enqueue never ran")
}

func TestRefreshPoolDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	ran := make(map[string]bool)
	pool := newRefreshPool(1, 1, func(ctx context.Context, task refreshTask) {
		once.Do(func() { close(started) })
		<-release
		mu.Lock()
		ran[task.key] = true
		mu.Unlock()
	})
	defer pool.close()

	pool.enqueue(refreshTask{key: "org:1:risk:1"})
	<-started
	pool.enqueue(refreshTask{key: "org:1:risk:2"}) // fills the queue
	pool.enqueue(refreshTask{key: "org:1:risk:3"}) // dropped
	close(release)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ran["org:1:risk:1"] && ran["org:1:risk:2"]
	}, "queued tasks never ran")

	mu.Lock()
	dropped := !ran["org:1:risk:3"]
	mu.Unlock()
	if !dropped {
		t.Error("task beyond queue capacity should have been dropped")
	}
}

func TestRefreshPoolCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	pool := newRefreshPool(2, 4, func(ctx context.Context, task refreshTask) {})
	pool.close()
	pool.close()
}
