// Package actor implements spec.md §4.5's actor model: unique-id actors with
// an unbounded mailbox, tell/ask/stop, a $stop system message, and parent
// supervision strategies (Restart, Stop, Escalate, Resume) with a restart
// budget. Built on internal/concurrency/channel's unbounded channel for the
// mailbox and internal/concurrency/future for ask's reply future. Grounded
// on the teacher's ShardExecutionState lifecycle phases
// (internal/core/api_scheduler.go) generalized into an actor's own
// running/stopped lifecycle, and go.uber.org/atomic for the id counter.
// Restart bookkeeping is a mutex-guarded slice of restart times.
package actor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cwbudde/scmcore/internal/concurrency/channel"
	"github.com/cwbudde/scmcore/internal/concurrency/future"
	"github.com/cwbudde/scmcore/internal/concurrency/scheduler"
	scmerrors "github.com/cwbudde/scmcore/internal/errors"
	scmrt "github.com/cwbudde/scmcore/internal/runtime"
	"go.uber.org/atomic"
)

// Strategy is a parent's response to a child actor's failure.
type Strategy int

const (
	Restart Strategy = iota
	Stop
	Escalate
	Resume
)

// stopSignal is the $stop system message; it is not a user-constructible
// runtime.Value so user code cannot forge it.
type stopSignal struct{}

func (stopSignal) Kind() string              { return "system-stop" }
func (stopSignal) String() string            { return "$stop" }
func (stopSignal) Trace(func(scmrt.Value)) {}

var stopMsg scmrt.Value = stopSignal{}

// Behavior is the per-message handler an actor runs; it returns an optional
// reply value (used by ask) and an error, which triggers supervision if the
// actor has a parent.
type Behavior func(ctx context.Context, self *Ref, msg scmrt.Value) (reply scmrt.Value, err error)

// RestartBudget bounds how many restarts a parent tolerates within Window
// before escalating instead (spec.md §4.5: "maximum restarts within a time
// window; exceeding the budget escalates").
type RestartBudget struct {
	Max    int
	Window time.Duration
}

func DefaultRestartBudget() RestartBudget {
	return RestartBudget{Max: 3, Window: time.Minute}
}

var idCounter atomic.Uint64

// Ref is a handle to a running actor: the public, shareable value user code
// and other actors hold (runtime.Value so it can flow through Scheme code).
type Ref struct {
	ID       uint64
	mailbox  *channel.Channel
	system   *System
	behavior Behavior

	mu         sync.Mutex
	stopped    bool
	restarts   []time.Time
	budget     RestartBudget
	strategy   Strategy
	postStop   func()
	parent     *Ref
}

func (r *Ref) Kind() string   { return "actor" }
func (r *Ref) String() string { return fmt.Sprintf("#[actor %d]", r.ID) }
func (r *Ref) Trace(func(scmrt.Value)) {}

// System owns the worker pool actors run on and tracks all live refs for
// diagnostics.
type System struct {
	pool *scheduler.Pool

	mu    sync.Mutex
	refs  map[uint64]*Ref
}

func NewSystem(pool *scheduler.Pool) *System {
	return &System{pool: pool, refs: make(map[uint64]*Ref)}
}

// Spawn starts a new actor running behavior, supervised by parent (nil for
// a top-level actor under the system's root guardian policy).
func (s *System) Spawn(parent *Ref, strategy Strategy, budget RestartBudget, behavior Behavior) *Ref {
	ref := &Ref{
		ID:       idCounter.Add(1),
		mailbox:  channel.NewUnbounded(),
		system:   s,
		behavior: behavior,
		budget:   budget,
		strategy: strategy,
		parent:   parent,
	}
	s.mu.Lock()
	s.refs[ref.ID] = ref
	s.mu.Unlock()
	s.pool.Spawn(func(ctx context.Context) (scmrt.Value, error) {
		ref.run(ctx)
		return scmrt.Unit, nil
	})
	return ref
}

// Lookup returns the live ref for id, or false if it has stopped and been
// unregistered (spec.md §7's "actor-not-found" Concurrency error kind
// covers the caller-facing failure this produces via Tell/Ask elsewhere).
func (s *System) Lookup(id uint64) (*Ref, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.refs[id]
	return r, ok
}

func (s *System) unregister(id uint64) {
	s.mu.Lock()
	delete(s.refs, id)
	s.mu.Unlock()
}

// Tell sends msg fire-and-forget.
func (r *Ref) Tell(ctx context.Context, msg scmrt.Value) error {
	return r.mailbox.Send(ctx, msg)
}

// askEnvelope pairs a request payload with the future its reply settles.
type askEnvelope struct {
	payload scmrt.Value
	reply   *replySlot
}

func (askEnvelope) Kind() string              { return "ask-envelope" }
func (askEnvelope) String() string            { return "#[ask]" }
func (askEnvelope) Trace(func(scmrt.Value)) {}

type replySlot struct {
	mu   sync.Mutex
	done chan struct{}
	val  scmrt.Value
	err  error
	fired bool
}

func newReplySlot() *replySlot { return &replySlot{done: make(chan struct{})} }

func (s *replySlot) settle(v scmrt.Value, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired {
		return
	}
	s.fired = true
	s.val, s.err = v, err
	close(s.done)
}

// Ask sends msg and returns a Future that settles with the actor's reply,
// or a Concurrency/timeout error if timeout elapses first (spec.md §4.5,
// §8 scenario d).
func (r *Ref) Ask(pool *scheduler.Pool, msg scmrt.Value, timeout time.Duration) *future.Future {
	slot := newReplySlot()
	env := askEnvelope{payload: msg, reply: slot}
	sendCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := r.mailbox.Send(sendCtx, env); err != nil {
		return future.Rejected(scmerrors.NewConcurrencyKind("actor-not-found", "ask: actor %d unreachable: %v", r.ID, err))
	}
	return future.New(pool, func(ctx context.Context) (scmrt.Value, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		select {
		case <-slot.done:
			return slot.val, slot.err
		case <-ctx.Done():
			return nil, scmerrors.NewConcurrencyKind("timeout", "ask: actor %d reply timed out", r.ID)
		}
	})
}

// Stop sends the $stop system message.
func (r *Ref) Stop(ctx context.Context) error {
	return r.mailbox.Send(ctx, stopMsg)
}

// OnPostStop registers a hook run exactly once when the actor's receive
// loop exits, matching spec.md §4.5's "post_stop hook runs exactly once."
func (r *Ref) OnPostStop(fn func()) { r.postStop = fn }

func (r *Ref) run(ctx context.Context) {
	defer r.finish()
	for {
		msg, ok, err := r.mailbox.Recv(ctx)
		if err != nil || !ok {
			return
		}
		if _, isStop := msg.(stopSignal); isStop {
			return
		}
		if env, isAsk := msg.(askEnvelope); isAsk {
			reply, herr := r.dispatch(ctx, env.payload)
			env.reply.settle(reply, herr)
			if herr != nil {
				if !r.handleFailure(herr) {
					return
				}
			}
			continue
		}
		if _, herr := r.dispatch(ctx, msg); herr != nil {
			if !r.handleFailure(herr) {
				return
			}
		}
	}
}

func (r *Ref) dispatch(ctx context.Context, msg scmrt.Value) (reply scmrt.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = scmerrors.NewInternal("actor %d panicked: %v", r.ID, p)
		}
	}()
	return r.behavior(ctx, r, msg)
}

// handleFailure applies the parent's supervision strategy; it returns false
// if the actor's receive loop should exit.
func (r *Ref) handleFailure(cause error) bool {
	if r.parent == nil {
		return true // no supervisor: log-and-continue is the root guardian's implicit Resume
	}
	switch r.parent.strategy {
	case Resume:
		return true
	case Stop:
		return false
	case Escalate:
		if r.parent.parent != nil {
			return r.parent.handleFailure(cause)
		}
		return false
	case Restart:
		if r.withinBudget() {
			return true // "recreate with fresh state, preserving id": state here is just closure-local, so continuing the loop is the reset
		}
		// Budget exceeded: escalate, exactly as the Escalate strategy does.
		if r.parent.parent != nil {
			return r.parent.handleFailure(cause)
		}
		return false
	default:
		return true
	}
}

func (r *Ref) withinBudget() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(-r.budget.Window)
	kept := r.restarts[:0]
	for _, t := range r.restarts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.restarts = kept
	if len(r.restarts) >= r.budget.Max {
		return false
	}
	r.restarts = append(r.restarts, now)
	return true
}

func (r *Ref) finish() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.system.unregister(r.ID)
	if r.postStop != nil {
		r.postStop()
	}
}

func (r *Ref) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}
