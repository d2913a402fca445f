package prefetch

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

type warmRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (r *warmRecorder) warm(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

func (r *warmRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func newTestPlanner(t *testing.T, config Config, coaccess CoAccessMap, warm WarmFunc) *Planner {
	t.Helper()
	p, err := NewPlanner(config, coaccess, warm)
	if err != nil {
		t.Fatalf("NewPlanner() error = %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestPlannerFiresAtThreshold(t *testing.T) {
	t.Parallel()

	rec := &warmRecorder{}
	p := newTestPlanner(t, Config{
		Window:       time.Minute,
		TriggerCount: 3,
		Workers:      1,
		QueueSize:    8,
	}, CoAccessMap{
		"risk": {"risk:summary", "dashboard:metrics"},
	}, rec.warm)

	p.Observe("org:42:risk:7")
	p.Observe("org:42:risk:8")
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("warmed %v below trigger threshold", got)
	}

	p.Observe("org:42:risk:9")

	waitFor(t, func() bool { return len(rec.snapshot()) == 2 })
	got := rec.snapshot()
	sort.Strings(got)
	want := []string{"org:42:dashboard:metrics", "org:42:risk:summary"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("warmed[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPlannerExpandsIDTemplate(t *testing.T) {
	t.Parallel()

	rec := &warmRecorder{}
	p := newTestPlanner(t, Config{
		Window:       time.Minute,
		TriggerCount: 2,
		Workers:      1,
		QueueSize:    8,
	}, CoAccessMap{
		"document": {"docmeta:{id}"},
	}, rec.warm)

	p.Observe("org:7:document:3")
	p.Observe("org:7:document:3")

	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	if got := rec.snapshot()[0]; got != "org:7:docmeta:3" {
		t.Errorf("warmed %q, want org:7:docmeta:3", got)
	}
}

func TestPlannerNamespacesAreIndependent(t *testing.T) {
	t.Parallel()

	rec := &warmRecorder{}
	p := newTestPlanner(t, Config{
		Window:       time.Minute,
		TriggerCount: 3,
		Workers:      1,
		QueueSize:    8,
	}, CoAccessMap{
		"risk": {"risk:summary"},
	}, rec.warm)

	// Two namespaces accrue accesses separately; neither reaches three.
	p.Observe("org:42:risk:1")
	p.Observe("org:42:risk:2")
	p.Observe("org:99:risk:1")
	p.Observe("org:99:risk:2")

	time.Sleep(50 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("cross-namespace accesses fired a prefetch: %v", got)
	}
}

func TestPlannerIgnoresMalformedKeys(t *testing.T) {
	t.Parallel()

	rec := &warmRecorder{}
	p := newTestPlanner(t, DefaultConfig(), CoAccessMap{}, rec.warm)

	p.Observe("not-a-key")
	p.Observe("")
	p.Invalidated("also:bad")
}

func TestPlannerInvalidationResetsWindow(t *testing.T) {
	t.Parallel()

	rec := &warmRecorder{}
	p := newTestPlanner(t, Config{
		Window:       time.Minute,
		TriggerCount: 3,
		Workers:      1,
		QueueSize:    8,
	}, CoAccessMap{
		"risk": {"risk:summary"},
	}, rec.warm)

	p.Observe("org:42:risk:1")
	p.Observe("org:42:risk:2")
	p.Invalidated("org:42:risk:1")

	// The window restarted; two more accesses stay below the trigger.
	p.Observe("org:42:risk:3")
	p.Observe("org:42:risk:4")
	time.Sleep(50 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("prefetch fired from a reset window: %v", got)
	}

	p.Observe("org:42:risk:5")
	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
}

func TestPlannerSkipsInvalidatedTarget(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var warmed []string
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	warm := func(_ context.Context, key string) error {
		once.Do(func() {
			close(firstStarted)
			<-release
		})
		mu.Lock()
		warmed = append(warmed, key)
		mu.Unlock()
		return nil
	}

	p := newTestPlanner(t, Config{
		Window:       time.Minute,
		TriggerCount: 2,
		Workers:      1,
		QueueSize:    8,
	}, CoAccessMap{
		"risk": {"risk:summary", "dashboard:metrics"},
	}, warm)

	p.Observe("org:42:risk:7")
	p.Observe("org:42:risk:7")

	// The single worker is blocked inside the first warm task while the
	// second target is invalidated behind it.
	<-firstStarted
	p.Invalidated("org:42:dashboard:metrics")
	close(release)

	waitFor(t, func() bool { return p.Skipped() == 1 })

	mu.Lock()
	defer mu.Unlock()
	if len(warmed) != 1 || warmed[0] != "org:42:risk:summary" {
		t.Errorf("warmed = %v, want only org:42:risk:summary", warmed)
	}
}

func TestPlannerDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	warm := func(_ context.Context, _ string) error {
		once.Do(func() {
			close(started)
			<-release
		})
		return nil
	}

	p := newTestPlanner(t, Config{
		Window:       time.Minute,
		TriggerCount: 1,
		Workers:      1,
		QueueSize:    1,
	}, CoAccessMap{
		"risk": {"risk:summary"},
	}, warm)

	// First fire occupies the worker, second fills the queue, third drops.
	p.Observe("org:42:risk:1")
	p.Observe("org:42:risk:1")
	<-started
	p.Observe("org:99:risk:1")
	p.Observe("org:99:risk:1")
	p.Observe("org:77:risk:1")
	p.Observe("org:77:risk:1")
	close(release)

	waitFor(t, func() bool { return p.Dropped() >= 1 })
}
