package application

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
	"github.com/felixgeelhaar/cacheflow/infrastructure/logging"
)

// refreshTask is one stale-while-revalidate refresh: re-run the fetch and
// write the result back, off the request path.
type refreshTask struct {
	key    string
	fetch  cache.FetchFunc
	policy cache.Policy
}

// refreshPool runs background refreshes with a fixed concurrency cap.
// When the queue is full new tasks are dropped silently: the stale value
// was already served, so a missed refresh only delays convergence.
type refreshPool struct {
	run   func(ctx context.Context, t refreshTask)
	tasks chan refreshTask
	stop  chan struct{}
	wg    sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}

	closeOnce sync.Once
}

func newRefreshPool(workers, queueSize int, run func(ctx context.Context, t refreshTask)) *refreshPool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 128
	}

	p := &refreshPool{
		run:      run,
		tasks:    make(chan refreshTask, queueSize),
		stop:     make(chan struct{}),
		inflight: make(map[string]struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// enqueue schedules a refresh. A key already queued or running is not
// queued again; a full queue drops the task.
func (p *refreshPool) enqueue(t refreshTask) {
	p.mu.Lock()
	if _, busy := p.inflight[t.key]; busy {
		p.mu.Unlock()
		return
	}
	p.inflight[t.key] = struct{}{}
	p.mu.Unlock()

	select {
	case p.tasks <- t:
	default:
		p.release(t.key)
		logging.Debug().
			Add(logging.Component("refresh")).
			Add(logging.Key(t.key)).
			Msg("refresh queue full, dropping task")
	}
}

func (p *refreshPool) release(key string) {
	p.mu.Lock()
	delete(p.inflight, key)
	p.mu.Unlock()
}

func (p *refreshPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case t := <-p.tasks:
			p.run(context.Background(), t)
			p.release(t.key)
		}
	}
}

func (p *refreshPool) close() {
	p.closeOnce.Do(func() {
		close(p.stop)
		p.wg.Wait()
	})
}
