// Package scheduler implements spec.md §5's scheduling model: an OS-thread
// worker pool running cooperatively scheduled tasks, each owning its own
// evaluator state. Workers steal from peers' deques when their own queue
// empties; a global injector queue receives newly spawned tasks. Grounded on
// the teacher's internal/core/api_scheduler.go cooperative-slot design
// (waiting queue, metrics counters, config struct) generalized from an
// API-call admission gate into a general task scheduler, and on
// golang.org/x/sync/errgroup for worker lifecycle/shutdown coordination.
package scheduler

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	scmrt "github.com/cwbudde/scmcore/internal/runtime"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Task is a unit of scheduled work. Run receives the context the pool
// cancels on Shutdown; it owns its own evaluator/environment/continuation
// state internally (spec.md §5: "each task owns its evaluator state").
type Task struct {
	ID  uint64
	Run func(ctx context.Context) (scmrt.Value, error)

	result chan taskResult
}

type taskResult struct {
	val scmrt.Value
	err error
}

// Config parameterizes the Pool. Workers default to runtime.NumCPU, matching
// spec.md §6's embedding config field max_worker_threads.
type Config struct {
	Workers   int
	Arena     *scmrt.Arena // safepoint source; nil disables polling
	Log       *zap.Logger
}

func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU()}
}

// Pool is the worker pool. Each worker owns a Deque; the Pool also holds a
// global injector queue for tasks spawned from outside any worker (e.g. the
// embedding host's first call into the runtime).
type Pool struct {
	cfg Config
	log *zap.Logger

	deques   []*Deque
	injector chan *Task

	nextID atomic.Uint64

	submitted atomic.Int64
	completed atomic.Int64
	stolen    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	closeOnce sync.Once
}

// New creates and starts a Pool with cfg.Workers goroutines, each bound to
// its own Deque.
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	p := &Pool{
		cfg:      cfg,
		log:      cfg.Log,
		deques:   make([]*Deque, cfg.Workers),
		injector: make(chan *Task, 4096),
		ctx:      gctx,
		cancel:   cancel,
		group:    group,
	}
	for i := range p.deques {
		p.deques[i] = NewDeque()
	}
	for i := 0; i < cfg.Workers; i++ {
		id := i
		group.Go(func() error {
			p.runWorker(id)
			return nil
		})
	}
	return p
}

// Spawn enqueues fn as a new task on the global injector queue and returns
// its *Task handle. The future package wraps Spawn to produce an actual
// *future.Future, and pkg/scmcore wraps Spawn plus Task.Await into
// evaluator.Evaluator.Spawn; Spawn itself stays primitive, with no import of
// internal/concurrency/future.
func (p *Pool) Spawn(fn func(ctx context.Context) (scmrt.Value, error)) *Task {
	t := &Task{ID: p.nextID.Add(1), Run: fn, result: make(chan taskResult, 1)}
	p.submitted.Add(1)
	select {
	case p.injector <- t:
	case <-p.ctx.Done():
		t.result <- taskResult{err: p.ctx.Err()}
	}
	return t
}

// Await blocks until t completes or ctx is cancelled.
func (t *Task) Await(ctx context.Context) (scmrt.Value, error) {
	select {
	case r := <-t.result:
		t.result <- r // allow repeated Await
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runWorker is the per-worker loop: drain local deque bottom, then the
// injector, then steal from peers' tops; park briefly when everything is empty.
// Between tasks it polls the arena's safepoint flag, matching spec.md §5's
// "every worker periodically checks a safepoint flag and parks at the next
// bytecode boundary ... until the collector releases".
func (p *Pool) runWorker(id int) {
	own := p.deques[id]
	for {
		if p.ctx.Err() != nil {
			return
		}
		p.pollSafepoint()

		if t, ok := own.PopBottom(); ok {
			p.execute(t)
			continue
		}
		if t, ok := p.tryInject(); ok {
			p.execute(t)
			continue
		}
		if t, ok := p.trySteal(id); ok {
			p.stolen.Add(1)
			p.execute(t)
			continue
		}
		// Everything empty: yield the thread rather than spin-wait, per
		// spec.md §5 ("workers yield the thread when all queues and the
		// injector are empty").
		select {
		case t := <-p.injector:
			p.execute(t)
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) tryInject() (*Task, bool) {
	select {
	case t := <-p.injector:
		return t, true
	default:
		return nil, false
	}
}

func (p *Pool) trySteal(self int) (*Task, bool) {
	n := len(p.deques)
	for i := 1; i < n; i++ {
		victim := (self + i) % n
		if t, ok := p.deques[victim].StealTop(); ok {
			return t, true
		}
	}
	return nil, false
}

func (p *Pool) pollSafepoint() {
	if p.cfg.Arena == nil {
		return
	}
	for p.cfg.Arena.AtSafepoint() {
		select {
		case <-p.ctx.Done():
			return
		default:
		}
		runtime.Gosched()
	}
}

func (p *Pool) execute(t *Task) {
	val, err := t.Run(p.ctx)
	p.completed.Add(1)
	t.result <- taskResult{val: val, err: err}
}

// PushLocal submits t to the calling worker's own deque rather than the
// injector; used by tasks spawning child tasks to keep work close (classic
// work-stealing locality). workerID must be a valid index into p.deques.
func (p *Pool) PushLocal(workerID int, t *Task) {
	p.submitted.Add(1)
	p.deques[workerID%len(p.deques)].PushBottom(t)
}

// Stats reports point-in-time scheduling counters.
type Stats struct {
	Submitted, Completed, Stolen int64
	Workers                      int
}

func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Stolen:    p.stolen.Load(),
		Workers:   p.cfg.Workers,
	}
}

// Shutdown cancels all workers and waits for them to drain their current
// task. Queued-but-unstarted tasks are abandoned (their Await callers see
// ctx.Err()).
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		p.cancel()
	})
	_ = p.group.Wait()
}
