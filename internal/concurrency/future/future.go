// Package future implements spec.md §4's future value kind and the
// new/resolved/rejected/await/map/then/all/race/timeout/delay operation set,
// built on top of internal/concurrency/scheduler's worker pool. Grounded on
// the teacher's ShardExecutionState/waitQueue bookkeeping style in
// internal/core/api_scheduler.go, generalized from "API call slot" futures
// to general task futures.
package future

import (
	"context"
	"sync"
	"time"

	scmerrors "github.com/cwbudde/scmcore/internal/errors"
	scmrt "github.com/cwbudde/scmcore/internal/runtime"
	"github.com/cwbudde/scmcore/internal/concurrency/scheduler"
)

// State is a future's lifecycle stage.
type State int

const (
	Pending State = iota
	Resolved
	Rejected
)

func (s State) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Future is a write-once container for a task's eventual result. It
// satisfies scmrt.Value so it can flow through the evaluator like any other
// Scheme value.
type Future struct {
	mu       sync.Mutex
	state    State
	val      scmrt.Value
	err      error
	done     chan struct{}
	watchers []chan struct{}
}

func (f *Future) Kind() string   { return "future" }
func (f *Future) String() string { return "#[future " + f.State().String() + "]" }
func (f *Future) Trace(visit func(scmrt.Value)) {
	f.mu.Lock()
	v := f.val
	f.mu.Unlock()
	if v != nil {
		visit(v)
	}
}

func newPending() *Future {
	return &Future{done: make(chan struct{})}
}

// New spawns fn on pool and returns a Future that settles with its result.
func New(pool *scheduler.Pool, fn func(ctx context.Context) (scmrt.Value, error)) *Future {
	f := newPending()
	task := pool.Spawn(fn)
	go func() {
		val, err := task.Await(context.Background())
		if err != nil {
			f.reject(err)
		} else {
			f.resolve(val)
		}
	}()
	return f
}

// Resolved returns an already-settled, successful Future.
func Resolved(v scmrt.Value) *Future {
	f := newPending()
	f.resolve(v)
	return f
}

// Rejected returns an already-settled, failed Future.
func Rejected(err error) *Future {
	f := newPending()
	f.reject(err)
	return f
}

func (f *Future) resolve(v scmrt.Value) {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return
	}
	f.state = Resolved
	f.val = v
	watchers := f.watchers
	f.watchers = nil
	f.mu.Unlock()
	close(f.done)
	for _, w := range watchers {
		close(w)
	}
}

func (f *Future) reject(err error) {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return
	}
	f.state = Rejected
	f.err = err
	watchers := f.watchers
	f.watchers = nil
	f.mu.Unlock()
	close(f.done)
	for _, w := range watchers {
		close(w)
	}
}

func (f *Future) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Await blocks (a scheduler suspension point per spec.md §5) until f
// settles or ctx is done, whichever first.
func (f *Future) Await(ctx context.Context) (scmrt.Value, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.val, f.err
	case <-ctx.Done():
		return nil, scmerrors.NewConcurrencyKind("timeout", "future await: %v", ctx.Err())
	}
}

// Timeout awaits f with a bounded deadline, producing a Concurrency/timeout
// error (spec.md §7, §8 scenario d) if it expires first.
func (f *Future) Timeout(d time.Duration) (scmrt.Value, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return f.Await(ctx)
}

// Map returns a new Future that resolves to fn(v) once f resolves, or
// propagates f's rejection unchanged.
func (f *Future) Map(pool *scheduler.Pool, fn func(scmrt.Value) (scmrt.Value, error)) *Future {
	return New(pool, func(ctx context.Context) (scmrt.Value, error) {
		v, err := f.Await(ctx)
		if err != nil {
			return nil, err
		}
		return fn(v)
	})
}

// Then chains fn, which itself returns a Future, flattening the result
// (classic promise/future monadic bind).
func (f *Future) Then(pool *scheduler.Pool, fn func(scmrt.Value) *Future) *Future {
	return New(pool, func(ctx context.Context) (scmrt.Value, error) {
		v, err := f.Await(ctx)
		if err != nil {
			return nil, err
		}
		return fn(v).Await(ctx)
	})
}

// All waits for every future to settle, returning their values in order or
// the first rejection encountered (spec.md §8 invariant 7's order
// preservation applies equally here).
func All(ctx context.Context, futures []*Future) ([]scmrt.Value, error) {
	out := make([]scmrt.Value, len(futures))
	for i, fut := range futures {
		v, err := fut.Await(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Race returns the value/error of whichever future settles first.
func Race(ctx context.Context, futures []*Future) (scmrt.Value, error) {
	type result struct {
		val scmrt.Value
		err error
	}
	out := make(chan result, len(futures))
	for _, fut := range futures {
		fut := fut
		go func() {
			v, err := fut.Await(ctx)
			select {
			case out <- result{v, err}:
			default:
			}
		}()
	}
	select {
	case r := <-out:
		return r.val, r.err
	case <-ctx.Done():
		return nil, scmerrors.NewConcurrencyKind("timeout", "race: %v", ctx.Err())
	}
}

// Delay returns a Future that resolves to v after d elapses, spawned on
// pool so the wait itself happens off whatever task created it.
func Delay(pool *scheduler.Pool, v scmrt.Value, d time.Duration) *Future {
	return New(pool, func(ctx context.Context) (scmrt.Value, error) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return v, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}
