package prefetch

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
)

// WarmFunc loads a key into the cache. Wired to the orchestrator's warm
// path; any error is discarded by the planner.
type WarmFunc func(ctx context.Context, key string) error

// CoAccessMap declares which keys to warm when a namespace runs hot. It
// maps a resource namespace to "namespace:id" templates expanded within
// the observed key's tenant scope; the "{id}" placeholder is replaced
// with the observed key's identifier.
//
// Example: {"risk": {"risk:summary", "dashboard:metrics"}} warms
// org:42:risk:summary and org:42:dashboard:metrics whenever reads of
// org:42:risk:* cross the trigger threshold.
type CoAccessMap map[string][]string

// Config tunes the planner's observation window and worker pool.
type Config struct {
	// Window is the sliding interval accesses are counted over.
	Window time.Duration

	// TriggerCount is the number of accesses within Window that arms a
	// namespace for prefetch.
	TriggerCount int

	// Workers is the number of background warm workers.
	Workers int

	// QueueSize bounds pending warm tasks. When full, new tasks are
	// dropped silently.
	QueueSize int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Window:       10 * time.Second,
		TriggerCount: 3,
		Workers:      2,
		QueueSize:    64,
	}
}

type task struct {
	key string
	gen uint64
}

// Planner tracks access patterns per tenant-scoped namespace and issues
// background warm fetches through a bounded worker pool.
type Planner struct {
	config   Config
	coaccess CoAccessMap
	warm     WarmFunc
	now      func() time.Time

	machine *statekit.MachineConfig[*nsContext]

	mu       sync.Mutex
	interps  map[string]*statekit.Interpreter[*nsContext]
	contexts map[string]*nsContext

	genMu sync.Mutex
	gens  map[string]uint64

	tasks chan task
	stop  chan struct{}
	wg    sync.WaitGroup

	closeOnce sync.Once

	fired   atomic.Uint64
	dropped atomic.Uint64
	skipped atomic.Uint64
}

// Option configures the planner.
type Option func(*Planner)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		p.now = now
	}
}

// NewPlanner creates a planner and starts its worker pool.
func NewPlanner(config Config, coaccess CoAccessMap, warm WarmFunc, opts ...Option) (*Planner, error) {
	if config.Window <= 0 {
		config.Window = 10 * time.Second
	}
	if config.TriggerCount <= 0 {
		config.TriggerCount = 3
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}

	machine, err := newNamespaceMachine()
	if err != nil {
		return nil, err
	}

	p := &Planner{
		config:   config,
		coaccess: coaccess,
		warm:     warm,
		now:      time.Now,
		machine:  machine,
		interps:  make(map[string]*statekit.Interpreter[*nsContext]),
		contexts: make(map[string]*nsContext),
		gens:     make(map[string]uint64),
		tasks:    make(chan task, config.QueueSize),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < config.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p, nil
}

// Observe records an access to a key. When the key's namespace crosses
// the trigger threshold within the window, co-accessed keys are queued
// for background warming. Never blocks on the warm work itself.
func (p *Planner) Observe(key string) {
	parsed, err := cache.ParseKey(key)
	if err != nil {
		return
	}
	targets := p.targetsFor(parsed)

	p.mu.Lock()
	defer p.mu.Unlock()

	interp := p.interpreterFor(parsed)
	at := p.now()
	interp.Send(statekit.Event{
		Type:    eventAccess,
		Payload: accessPayload{Key: key, At: at},
	})

	if interp.State().Value != stateArmed {
		return
	}
	interp.Send(statekit.Event{Type: eventFire})

	for _, target := range targets {
		if target == key {
			continue
		}
		p.enqueue(target)
	}

	interp.Send(statekit.Event{Type: eventReset})
}

// Invalidated cancels any pending prefetch for the key and resets the
// key's namespace machine so a fresh observation window starts.
func (p *Planner) Invalidated(key string) {
	p.genMu.Lock()
	p.gens[key]++
	p.genMu.Unlock()

	parsed, err := cache.ParseKey(key)
	if err != nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if interp, ok := p.interps[parsed.NamespacePrefix()]; ok {
		interp.Send(statekit.Event{Type: eventInvalidate})
	}
}

// Close stops the worker pool and waits for in-flight warms to finish.
func (p *Planner) Close() {
	p.closeOnce.Do(func() {
		close(p.stop)
		p.wg.Wait()
	})
}

// Fired returns the number of warm tasks executed.
func (p *Planner) Fired() uint64 {
	return p.fired.Load()
}

// Dropped returns the number of warm tasks dropped due to a full queue.
func (p *Planner) Dropped() uint64 {
	return p.dropped.Load()
}

// Skipped returns the number of warm tasks skipped after invalidation.
func (p *Planner) Skipped() uint64 {
	return p.skipped.Load()
}

func (p *Planner) targetsFor(key cache.Key) []string {
	templates := p.coaccess[key.Namespace]
	if len(templates) == 0 {
		return nil
	}
	targets := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		suffix := strings.ReplaceAll(tmpl, "{id}", key.ID)
		targets = append(targets, key.Scope.String()+":"+suffix)
	}
	return targets
}

// interpreterFor returns the machine for a namespace, creating and
// starting it on first access. Caller holds p.mu.
func (p *Planner) interpreterFor(key cache.Key) *statekit.Interpreter[*nsContext] {
	prefix := key.NamespacePrefix()
	if interp, ok := p.interps[prefix]; ok {
		return interp
	}

	nsCtx := &nsContext{
		Prefix:  prefix,
		Window:  p.config.Window,
		Trigger: p.config.TriggerCount,
		Now:     p.now,
	}
	interp := statekit.NewInterpreter(p.machine)
	interp.UpdateContext(func(c **nsContext) {
		*c = nsCtx
	})
	interp.Start()

	p.interps[prefix] = interp
	p.contexts[prefix] = nsCtx
	return interp
}

func (p *Planner) enqueue(key string) {
	p.genMu.Lock()
	gen := p.gens[key]
	p.genMu.Unlock()

	select {
	case p.tasks <- task{key: key, gen: gen}:
	default:
		p.dropped.Add(1)
	}
}

func (p *Planner) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case t := <-p.tasks:
			p.run(t)
		}
	}
}

// run executes one warm task, skipping it if the key was invalidated
// after the task was queued. Errors are dropped.
func (p *Planner) run(t task) {
	p.genMu.Lock()
	current := p.gens[t.key]
	p.genMu.Unlock()
	if current != t.gen {
		p.skipped.Add(1)
		return
	}

	if err := p.warm(context.Background(), t.key); err != nil {
		return
	}
	p.fired.Add(1)
}
