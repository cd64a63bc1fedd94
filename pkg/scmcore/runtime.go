// Package scmcore is the embedding API spec.md §6 specifies: new_runtime,
// eval, call, shutdown. It wires together every internal service package
// (environment/arena/generation, evaluator, primitives, JIT tier manager,
// concurrency scheduler) the way a host embeds the core, without exposing
// any of those packages' internals directly.
package scmcore

import (
	"context"
	stdruntime "runtime"

	"go.uber.org/zap"

	"github.com/cwbudde/scmcore/internal/concurrency/actor"
	"github.com/cwbudde/scmcore/internal/concurrency/scheduler"
	scmerrors "github.com/cwbudde/scmcore/internal/errors"
	"github.com/cwbudde/scmcore/internal/evaluator"
	"github.com/cwbudde/scmcore/internal/fingerprint"
	"github.com/cwbudde/scmcore/internal/jit"
	"github.com/cwbudde/scmcore/internal/primitive"
	scmrt "github.com/cwbudde/scmcore/internal/runtime"
	"github.com/cwbudde/scmcore/internal/symbol"
	"github.com/cwbudde/scmcore/pkg/ast"
)

// Runtime is a single embedded instance of the core: its own arena,
// generation manager, JIT manager, root environment, worker pool, and actor
// system. Nothing here is a process-wide singleton except the symbol table
// (spec.md §9: "Process-wide singletons are acceptable only for the symbol
// table, and even then must be reentrant" — internal/symbol.Intern already
// satisfies that).
type Runtime struct {
	cfg    Config
	log    *zap.Logger
	gen    *scmrt.GenerationManager
	arena  *scmrt.Arena
	jitMgr *jit.Manager
	ev     *evaluator.Evaluator
	root   *scmrt.Environment
	pool   *scheduler.Pool
	actors *actor.System
	stop   chan struct{}
}

// New constructs a Runtime from DefaultConfig plus opts. It bootstraps the
// root environment with call/cc and the primitive table, wires the
// evaluator's Spawn hook to the scheduler, wires the JIT manager as the
// evaluator's Hotspot, and wires the arena's memory-pressure signal to the
// code cache's eviction.
func New(opts ...Option) (*Runtime, error) {
	return NewWithLogger(nil, opts...)
}

// NewWithLogger is New, but lets the host supply its own *zap.Logger
// (SPEC_FULL.md's ambient logging section: the core never constructs its
// own process-wide logger config, it accepts one).
func NewWithLogger(log *zap.Logger, opts ...Option) (*Runtime, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxWorkerThreads <= 0 {
		cfg.MaxWorkerThreads = stdruntime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}

	gen := scmrt.NewGenerationManager()
	arena := scmrt.NewArenaWithOldThreshold(cfg.YoungHeapBytes, cfg.OldHeapBytes)

	jitCfg := jit.DefaultConfig()
	jitCfg.CacheCapacity = cfg.CodeCacheCapacity
	jitCfg.EnableJIT = cfg.EnableJIT
	jitCfg.EnableSpeculative = cfg.EnableSpeculativeCompile
	jitCfg.MaxTier = cfg.MaxTier
	jitCfg.Thresholds.N1 = cfg.HotspotExecutions
	jitCfg.Thresholds.T1 = cfg.HotspotTime
	jitMgr := jit.New(jitCfg, gen, log)

	ev := evaluator.New(gen, arena, jitMgr, fingerprint.Compute, log)

	pool := scheduler.New(scheduler.Config{Workers: cfg.MaxWorkerThreads, Arena: arena, Log: log})
	ev.Spawn = func(thunk func() (scmrt.Value, error)) scmrt.Value {
		task := pool.Spawn(func(ctx context.Context) (scmrt.Value, error) { return thunk() })
		v, err := task.Await(context.Background())
		if err != nil {
			re, ok := err.(*scmerrors.RuntimeError)
			if !ok {
				re = scmerrors.NewConcurrency("spawned task failed: %v", err)
			}
			return scmrt.NewErrorObject(re, nil)
		}
		return v
	}

	root := scmrt.NewEnvironment()
	root.Define(symbol.Intern("call/cc"), evaluator.CallCC)
	root.Define(symbol.Intern("call-with-current-continuation"), evaluator.CallCC)
	primitive.Install(root, primitive.Bootstrap())
	root.Seal()

	stop := make(chan struct{})
	if cfg.GCMode == GCAutomatic || cfg.GCMode == GCAdaptive {
		go watchPressure(arena, jitMgr, stop)
	}

	return &Runtime{
		cfg:    cfg,
		log:    log,
		gen:    gen,
		arena:  arena,
		jitMgr: jitMgr,
		ev:     ev,
		root:   root,
		pool:   pool,
		actors: actor.NewSystem(pool),
		stop:   stop,
	}, nil
}

// watchPressure clears the code cache every time the arena signals memory
// pressure, matching spec.md §4.7's "Eviction is triggered by ... memory
// pressure (signaled by the GC)". It exits once stop is closed by Shutdown.
func watchPressure(arena *scmrt.Arena, jitMgr *jit.Manager, stop chan struct{}) {
	for {
		ch := arena.Pressure()
		select {
		case <-ch:
			jitMgr.OnMemoryPressure()
		case <-stop:
			return
		}
	}
}

// Eval evaluates program's top-level forms in sequence in the root
// environment, returning the value of the last form (spec.md §6's
// eval(runtime, program) -> value | error).
func (r *Runtime) Eval(program *ast.Program) (scmrt.Value, error) {
	var last scmrt.Value = scmrt.Unit
	for _, form := range program.Forms {
		v, err := r.ev.Eval(form, r.root)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

// Call applies procedure to args (spec.md §6's call(runtime, procedure,
// args) -> value | error).
func (r *Runtime) Call(procedure scmrt.Value, args []scmrt.Value) (scmrt.Value, error) {
	return r.ev.Call(procedure, args)
}

// Root returns the runtime's root environment, so a host can Define
// additional bindings (foreign-call targets, extra primitives) before
// calling Eval.
func (r *Runtime) Root() *scmrt.Environment { return r.root }

// Actors returns the runtime's actor system, for hosts that spawn actors
// directly from Go rather than through a Scheme-level `spawn-actor`
// primitive.
func (r *Runtime) Actors() *actor.System { return r.actors }

// Pool returns the runtime's worker pool, for hosts building their own
// concurrency primitives (futures, channels, parallel combinators) on top
// of it.
func (r *Runtime) Pool() *scheduler.Pool { return r.pool }

// Stats reports point-in-time scheduling, allocation, and GC counters,
// useful for a host's own metrics/health endpoints.
type Stats struct {
	Scheduler scheduler.Stats
	Arena     scmrt.Stats
	GC        scmrt.GCStats
}

func (r *Runtime) Stats() Stats {
	return Stats{Scheduler: r.pool.Stats(), Arena: r.arena.Stats(), GC: r.arena.GCStats()}
}

// Collect forces an immediate minor and major collection. This is the
// host-facing entry point for Config.GCMode == GCManual, where
// NewWithLogger does not start watchPressure and nothing else ever drives
// a collection.
func (r *Runtime) Collect() { r.arena.Collect() }

// Shutdown stops the worker pool, draining in-flight tasks' current step
// but abandoning anything still queued (spec.md §6's shutdown(runtime)).
func (r *Runtime) Shutdown(ctx context.Context) {
	close(r.stop)
	done := make(chan struct{})
	go func() {
		r.pool.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
