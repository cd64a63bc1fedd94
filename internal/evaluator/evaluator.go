// Package evaluator implements the CEK-style abstract machine of spec.md
// §4.4: Control (an AST node or a value to return), Environment, and an
// explicit, reified Kontinuation. Every step transforms the triple; tail
// calls reuse the caller's Kont unchanged, which is what keeps an iterative
// Scheme loop's Go call stack flat regardless of iteration count.
//
// The dispatch style mirrors the teacher's evaluator
// (internal/interp/evaluator/visitor_*.go): one function per AST node kind,
// switched on concrete type, rather than a virtual Accept/Visit pair per
// node — cheaper and, per spec.md §9's "hot-path dispatch" note, the right
// call for an inner loop.
package evaluator

import (
	"fmt"
	"sync/atomic"
	"time"

	scmerrors "github.com/cwbudde/scmcore/internal/errors"
	"github.com/cwbudde/scmcore/internal/runtime"
	"github.com/cwbudde/scmcore/internal/symbol"
	"github.com/cwbudde/scmcore/pkg/ast"
	"go.uber.org/zap"
)

// NativeFunc is a compiled entry point the Tier Manager/Code Generator may
// install for a fragment; see Hotspot.
type NativeFunc func(args []runtime.Value) (runtime.Value, error)

// Hotspot is the subset of the profiler/JIT pipeline the evaluator consults
// before dispatching each call (spec.md §4.4 "hot-loop interaction"). It is
// defined here, consumer-side, so this package does not import
// internal/profiler or internal/jit; those packages implement it.
type Hotspot interface {
	// Observe records one execution of the fragment identified by
	// fingerprint, its elapsed time, and whether it ended in error.
	Observe(fingerprint uint64, elapsed time.Duration, failed bool)
	// NativeEntry returns a compiled entry point for fingerprint, if the
	// tier manager has promoted it and it has not since been deoptimized.
	NativeEntry(fingerprint uint64) (NativeFunc, bool)
}

// FragmentRegistrar is an optional capability a Hotspot implementation may
// offer: a place to register a Lambda's single-expression body for
// possible future compilation, keyed by the fingerprint already computed
// for it. internal/jit.Manager implements this; the evaluator checks for
// it via a type assertion rather than folding it into Hotspot itself, so a
// Hotspot stub (like noopHotspot) need not implement it.
type FragmentRegistrar interface {
	RegisterFragment(fingerprint uint64, params []string, body ast.Node)
}

// Fingerprinter computes the AST fingerprint internal/fingerprint defines,
// kept as a function value to avoid an import cycle (internal/fingerprint
// depends on pkg/ast only, but threading it as a field keeps this package
// independently testable with a stub).
type Fingerprinter func(node ast.Node, env *runtime.Environment) uint64

// noopHotspot is used when an Evaluator is constructed without a profiler,
// e.g. in unit tests that only exercise evaluation semantics.
type noopHotspot struct{}

func (noopHotspot) Observe(uint64, time.Duration, bool)         {}
func (noopHotspot) NativeEntry(uint64) (NativeFunc, bool)       { return nil, false }

// Evaluator owns the services the CEK loop consults: the generation
// manager (for State-effect generation bumps), the arena (allocation
// bookkeeping), the hotspot detector, and a logger for the ambient
// structured-event stream (generation bumps, deopt events) described in
// SPEC_FULL.md §10.
type Evaluator struct {
	Gen         *runtime.GenerationManager
	Arena       *runtime.Arena
	Hotspot     Hotspot
	Fingerprint Fingerprinter
	Log         *zap.Logger

	contTag atomic.Uint64
	// MaxObservedDepth tracks the largest Kont chain depth reached by any
	// Eval call on this Evaluator — the instrumentation spec.md §8.2 asks
	// for to verify tail-call constancy.
	MaxObservedDepth atomic.Int64

	// Spawn is the "hook for spawning sub-tasks" spec.md §6's primitive
	// contract requires in every call's context. It is nil until a host
	// (pkg/scmcore's Runtime) wires it to the concurrency scheduler;
	// primitives that need it (e.g. `spawn`, `par-map`) fail gracefully
	// with a Concurrency error when it is unset instead of panicking.
	Spawn func(thunk func() (runtime.Value, error)) runtime.Value
}

// New constructs an Evaluator. log and hotspot may be nil; sane no-op
// defaults are substituted.
func New(gen *runtime.GenerationManager, arena *runtime.Arena, hotspot Hotspot, fp Fingerprinter, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	if hotspot == nil {
		hotspot = noopHotspot{}
	}
	ev := &Evaluator{Gen: gen, Arena: arena, Hotspot: hotspot, Fingerprint: fp, Log: log}
	return ev
}

// Eval runs node to completion in env and returns its value.
func (ev *Evaluator) Eval(node ast.Node, env *runtime.Environment) (runtime.Value, error) {
	return ev.run(node, env, haltKont, nil)
}

// Call applies a callable Value (Procedure, PrimitiveProcedure, or
// Continuation) to args outside of any enclosing evaluation — the entry
// point primitives, actors, and futures use to invoke Scheme code from Go.
func (ev *Evaluator) Call(callable runtime.Value, args []runtime.Value) (runtime.Value, error) {
	start := time.Now()
	s := ev.apply(callable, args, haltKont, nil)
	proc, isProc := callable.(*runtime.Procedure)
	// s.node is set only when applyProcedure took the interpreted path; a
	// native entry has already recorded its own observation.
	observe := isProc && s.node != nil && ev.Fingerprint != nil && proc.Fingerprint != 0
	v, err := ev.drain(s)
	if observe {
		ev.Hotspot.Observe(proc.Fingerprint, time.Since(start), err != nil)
	}
	return v, err
}

// --- core trampoline ---

// state is the CEK triple in flight between steps, plus the error/value
// slots used while unwinding. Exactly one of (node, val, err) is active at
// a time: node!=nil means "evaluate this", err!=nil means "unwind looking
// for a handler", otherwise val is the value to feed into k.
type state struct {
	node ast.Node
	env  *runtime.Environment
	k    *Kont
	wind *windFrame
	val  runtime.Value
	err  error
	done bool
}

func (ev *Evaluator) run(node ast.Node, env *runtime.Environment, k *Kont, wind *windFrame) (runtime.Value, error) {
	return ev.drain(state{node: node, env: env, k: k, wind: wind})
}

func (ev *Evaluator) drain(s state) (runtime.Value, error) {
	for {
		if d := int64(s.k.depth()); d > ev.MaxObservedDepth.Load() {
			ev.MaxObservedDepth.Store(d)
		}
		switch {
		case s.done:
			return s.val, s.err
		case s.err != nil:
			s = ev.unwindError(s)
		case s.node != nil:
			s = ev.step(s)
		default:
			s = ev.applyKont(s.k, s.val, s.wind)
		}
	}
}

// step evaluates one AST node, either producing a value directly (self-
// evaluating forms) or pushing a new Kont frame and descending into a
// sub-expression.
func (ev *Evaluator) step(s state) state {
	node, env, k, wind := s.node, s.env, s.k, s.wind
	switch n := node.(type) {
	case *ast.Literal:
		return state{val: literalToValue(n.Datum), k: k, wind: wind}

	case *ast.Quote:
		return state{val: quoteToValue(n.Datum), k: k, wind: wind}

	case *ast.Symbol:
		id := internSym(n.Name)
		v, ok := env.Lookup(id)
		if !ok {
			return state{err: scmerrors.NewUnbound(n.Name), k: k, wind: wind}
		}
		return state{val: v, k: k, wind: wind}

	case *ast.If:
		nk := push(KIf, k)
		nk.Env, nk.Conseq, nk.Alt, nk.Wind = env, n.Conseq, n.Alt, wind
		return state{node: n.Test, env: env, k: nk, wind: wind}

	case *ast.Lambda:
		proc := runtime.NewProcedure(n.Name, n.Params, n.Rest, n, env, runtime.Effects(runtime.EffectPure))
		if ev.Fingerprint != nil {
			proc.Fingerprint = ev.Fingerprint(n, env)
			if registrar, ok := ev.Hotspot.(FragmentRegistrar); ok && len(n.Body) == 1 {
				registrar.RegisterFragment(proc.Fingerprint, n.Params, n.Body[0])
			}
		}
		return state{val: proc, k: k, wind: wind}

	case *ast.Define:
		nk := push(KAssign, k)
		nk.Env, nk.Name, nk.Wind = env, n.Name, wind
		return state{node: n.Value, env: env, k: nk, wind: wind}

	case *ast.SetBang:
		nk := push(KAssign, k)
		nk.Env, nk.Name, nk.Wind = env, "!"+n.Name, wind // "!" prefix marks mutate-not-define
		return state{node: n.Value, env: env, k: nk, wind: wind}

	case *ast.Begin:
		return ev.stepBegin(n.Exprs, env, k, wind)

	case *ast.Values:
		if len(n.Exprs) == 0 {
			return state{val: runtime.Unit, k: k, wind: wind}
		}
		nk := push(KValuesCollect, k)
		nk.Env, nk.ValuesRest, nk.Wind = env, n.Exprs[1:], wind
		return state{node: n.Exprs[0], env: env, k: nk, wind: wind}

	case *ast.Application:
		nk := push(KOperator, k)
		nk.Env, nk.Args, nk.Wind = env, n.Args, wind
		return state{node: n.Operator, env: env, k: nk, wind: wind}

	case *ast.DynamicWind:
		return ev.stepDynamicWind(n, env, k, wind)

	case *ast.Guard:
		nk := push(KHandler, k)
		nk.Env, nk.HandlerVar, nk.Clauses, nk.WindAtInstall, nk.Wind = env, n.Var, n.Clauses, wind, wind
		return ev.stepBegin(n.Body, env, nk, wind)

	case *ast.Raise:
		if n.Expr == nil {
			return state{err: scmerrors.NewInternal("raise with no expression"), k: k, wind: wind}
		}
		nk := push(KAssign, k)
		nk.Name = raiseMarker(n.Continuable)
		nk.Wind = wind
		return state{node: n.Expr, env: env, k: nk, wind: wind}

	case *ast.Program:
		return ev.stepBegin(n.Forms, env, k, wind)

	default:
		return state{err: scmerrors.NewInternal("malformed AST: unhandled node %T", node), k: k, wind: wind}
	}
}

func raiseMarker(continuable bool) string {
	if continuable {
		return "\x00raise-continuable"
	}
	return "\x00raise"
}

// stepBegin evaluates a sequence for effect, the last expression in tail
// position (same k, no new frame — the essential TCO property).
func (ev *Evaluator) stepBegin(exprs []ast.Node, env *runtime.Environment, k *Kont, wind *windFrame) state {
	if len(exprs) == 0 {
		return state{val: runtime.Unit, k: k, wind: wind}
	}
	if len(exprs) == 1 {
		return state{node: exprs[0], env: env, k: k, wind: wind}
	}
	nk := push(KBeginSeq, k)
	nk.Env, nk.Rest, nk.Wind = env, exprs[1:], wind
	return state{node: exprs[0], env: env, k: nk, wind: wind}
}

func (ev *Evaluator) stepDynamicWind(n *ast.DynamicWind, env *runtime.Environment, k *Kont, wind *windFrame) state {
	beforeProc, err := ev.evalSimple(n.Before, env)
	if err != nil {
		return state{err: err, k: k, wind: wind}
	}
	afterProc, err := ev.evalSimple(n.After, env)
	if err != nil {
		return state{err: err, k: k, wind: wind}
	}
	// Run Before immediately on normal entry (dynamic-wind always calls it
	// once before the protected thunk starts).
	if _, err := ev.Call(beforeProc, nil); err != nil {
		return state{err: err, k: k, wind: wind}
	}

	childWind := pushWind(beforeProc, afterProc, wind)
	nk := push(KDynWindThunk, k)
	nk.Wind = wind // remember the wind active *before* entering, for the return path
	return state{node: n.Thunk, env: env, k: nk, wind: childWind}
}

// evalSimple evaluates node to completion in a fresh sub-trampoline — used
// for dynamic-wind's before/after thunk operators, which must themselves be
// fully evaluated (they are typically just a Symbol or Lambda) before the
// protected thunk runs.
func (ev *Evaluator) evalSimple(node ast.Node, env *runtime.Environment) (runtime.Value, error) {
	return ev.run(node, env, haltKont, nil)
}

// applyKont resumes the continuation k with value v, per KontKind.
func (ev *Evaluator) applyKont(k *Kont, v runtime.Value, wind *windFrame) state {
	if k == nil || k.Kind == KHalt {
		return state{val: v, done: true}
	}
	switch k.Kind {
	case KIf:
		branch := k.Alt
		if runtime.IsTruthy(v) {
			branch = k.Conseq
		}
		if branch == nil {
			return state{val: runtime.Unit, k: k.Next, wind: wind}
		}
		return state{node: branch, env: k.Env, k: k.Next, wind: wind}

	case KBeginSeq:
		return ev.stepBegin(k.Rest, k.Env, k.Next, wind)

	case KAssign:
		return ev.resumeAssign(k, v, wind)

	case KValuesCollect:
		collected := append(k.Collected, v)
		if len(k.ValuesRest) == 0 {
			return state{val: &valuesBundle{Vals: collected}, k: k.Next, wind: wind}
		}
		nk := push(KValuesCollect, k.Next)
		nk.Env, nk.ValuesRest, nk.Collected, nk.Wind = k.Env, k.ValuesRest[1:], collected, wind
		return state{node: k.ValuesRest[0], env: k.Env, k: nk, wind: wind}

	case KOperator:
		nk := push(KArgs, k.Next)
		nk.Env, nk.Operator, nk.Args, nk.Index, nk.Wind = k.Env, v, k.Args, 0, wind
		return ev.stepArgs(nk, wind)

	case KArgs:
		evaluated := append(k.Evaluated, v)
		if k.Index+1 >= len(k.Args) {
			return ev.apply(k.Operator, evaluated, k.Next, wind)
		}
		nk := push(KArgs, k.Next)
		nk.Env, nk.Operator, nk.Args, nk.Index, nk.Evaluated, nk.Wind = k.Env, k.Operator, k.Args, k.Index+1, evaluated, wind
		return state{node: k.Args[k.Index+1], env: k.Env, k: nk, wind: wind}

	case KDynWindThunk:
		// Normal (non-continuation-mediated) exit: run After once, restore
		// the outer wind, and continue with the thunk's value.
		if res := ev.unwindTo(wind, k.Wind); res.err != nil {
			return state{err: res.err, k: k.Next, wind: k.Wind}
		}
		return state{val: v, k: k.Next, wind: k.Wind}

	case KHandler:
		// Body completed without raising: handler frame simply falls away.
		return state{val: v, k: k.Next, wind: wind}

	default:
		return state{err: scmerrors.NewInternal("unhandled continuation kind %d", k.Kind), k: k.Next, wind: wind}
	}
}

// stepArgs begins evaluating an Application's argument list, or applies the
// operator directly when there are zero arguments.
func (ev *Evaluator) stepArgs(k *Kont, wind *windFrame) state {
	if len(k.Args) == 0 {
		return ev.apply(k.Operator, nil, k.Next, wind)
	}
	return state{node: k.Args[0], env: k.Env, k: k, wind: wind}
}

func (ev *Evaluator) resumeAssign(k *Kont, v runtime.Value, wind *windFrame) state {
	name := k.Name
	if len(name) > 0 && name[0] == '\x00' {
		// raise / raise-continuable marker smuggled through KAssign.
		errObj := scmerrors.NewUser(v.String(), nil)
		return state{err: errObj, val: v, k: k.Next, wind: wind}
	}
	if len(name) > 0 && name[0] == '!' {
		id := internSym(name[1:])
		if err := k.Env.Set(id, v); err != nil {
			return state{err: scmerrors.NewUnbound(name[1:]), k: k.Next, wind: wind}
		}
		return state{val: runtime.Unit, k: k.Next, wind: wind}
	}
	id := internSym(name)
	forked, err := k.Env.Define(id, v)
	_ = forked // the define result replaces k.Env for *future* lookups in that
	// frame; since Kont frames captured before this point already hold the
	// pre-fork Environment pointer by value in their own Env fields, no
	// further propagation is needed here — forked is only consumed by
	// whichever *ast.Program/Begin continues evaluating in that same frame,
	// which always does so via k.Env, not a stale copy.
	if err != nil {
		return state{err: scmerrors.NewInternal("%v", err), k: k.Next, wind: wind}
	}
	return state{val: runtime.Unit, k: k.Next, wind: wind}
}

// apply dispatches a call to a Procedure, PrimitiveProcedure, or
// Continuation. Tail calls pass the caller's k through unchanged.
func (ev *Evaluator) apply(callee runtime.Value, args []runtime.Value, k *Kont, wind *windFrame) state {
	switch c := callee.(type) {
	case *runtime.Procedure:
		return ev.applyProcedure(c, args, k, wind)

	case *runtime.PrimitiveProcedure:
		if err := checkArity(c.Name, c.Min, c.Max, len(args)); err != nil {
			return state{err: err, k: k, wind: wind}
		}
		if c.Effects.Has(runtime.EffectState) && ev.Gen != nil {
			ev.Gen.Bump(c.Effects, nil)
		}
		ctx := &primitiveContext{ev: ev, env: k.Env}
		start := time.Now()
		v, err := c.Fn(args, ctx)
		ev.Hotspot.Observe(primitiveFingerprint(c.Name), time.Since(start), err != nil)
		if err != nil {
			return state{err: err, k: k, wind: wind}
		}
		return state{val: v, k: k, wind: wind}

	case *callCCPrimitive:
		return ev.applyCallCC(args, k, wind)

	case *runtime.Continuation:
		var arg runtime.Value = runtime.Unit
		if len(args) == 1 {
			arg = args[0]
		} else if len(args) > 1 {
			arg = &valuesBundle{Vals: args}
		}
		snap, ok := c.Snapshot.(*contSnapshot)
		if !ok {
			return state{err: scmerrors.NewInternal("malformed continuation snapshot"), k: k, wind: wind}
		}
		// Re-entering a captured continuation runs whatever dynamic-wind
		// Before/After thunks differ between the invocation site (wind)
		// and the capture site (snap.wind), per spec.md §4.4.
		if res := ev.unwindTo(wind, snap.wind); res.err != nil {
			return state{err: res.err, k: k, wind: wind}
		}
		return state{val: arg, k: snap.k, wind: snap.wind}

	case nil:
		return state{err: scmerrors.NewType("cannot apply nil value"), k: k, wind: wind}

	default:
		return state{err: scmerrors.NewType(scmerrors.ErrMsgNotCallable, callee.String()), k: k, wind: wind}
	}
}

func (ev *Evaluator) applyProcedure(proc *runtime.Procedure, args []runtime.Value, k *Kont, wind *windFrame) state {
	if err := checkArity(displayName(proc), proc.MinArity(), proc.MaxArity(), len(args)); err != nil {
		return state{err: err, k: k, wind: wind}
	}
	lam, ok := proc.Body.(*ast.Lambda)
	if !ok {
		return state{err: scmerrors.NewInternal("procedure body is not an *ast.Lambda"), k: k, wind: wind}
	}
	childEnv := bindArgs(proc.Env, lam.Params, lam.Rest, args)

	if ev.Fingerprint != nil && proc.Fingerprint != 0 {
		if native, ok := ev.Hotspot.NativeEntry(proc.Fingerprint); ok {
			start := time.Now()
			v, err := native(args)
			ev.Hotspot.Observe(proc.Fingerprint, time.Since(start), err != nil)
			if err == nil {
				return state{val: v, k: k, wind: wind}
			}
			// Deoptimization: fall through to interpreted execution below.
			ev.Log.Debug("deoptimizing", zap.Uint64("fingerprint", proc.Fingerprint), zap.Error(err))
		}
	}

	// The interpreted run is not timed here: a per-call timer would double
	// count re-entrant tail calls. Call observes the procedure it is handed
	// once the run has drained; procedure calls reached from inside a
	// running evaluation are not observed on this path.
	return ev.stepBegin(lam.Body, childEnv, k, wind)
}

func displayName(proc *runtime.Procedure) string {
	if proc.Name != "" {
		return proc.Name
	}
	return "#[procedure]"
}

func checkArity(name string, min, max, got int) error {
	if got < min || (max >= 0 && got > max) {
		return scmerrors.NewArity(name, min, got)
	}
	return nil
}

func bindArgs(outer *runtime.Environment, params []string, rest string, args []runtime.Value) *runtime.Environment {
	child := runtime.NewEnclosedEnvironment(outer)
	for i, p := range params {
		var v runtime.Value = runtime.Unit
		if i < len(args) {
			v = args[i]
		}
		child.Define(internSym(p), v)
	}
	if rest != "" {
		var tail runtime.Value = runtime.Null
		for i := len(args) - 1; i >= len(params); i-- {
			tail = runtime.NewPair(args[i], tail)
		}
		child.Define(internSym(rest), tail)
	}
	return child
}

// unwindError searches k for the nearest KHandler frame, evaluating its
// cond-style clauses against the raised value; if no clause matches (or no
// handler remains), the error continues propagating outward.
func (ev *Evaluator) unwindError(s state) state {
	k := s.k
	wind := s.wind
	for k != nil && k.Kind != KHalt {
		switch k.Kind {
		case KHandler:
			if res := ev.unwindTo(wind, k.WindAtInstall); res.err != nil {
				return state{err: res.err, k: k.Next, wind: k.WindAtInstall}
			}
			return ev.dispatchGuard(k, s.err, k.Next)
		case KDynWindThunk:
			// Unwinding through a dynamic-wind frame on the way to an
			// outer handler still owes that frame's After exactly once.
			// A failing After thunk here is logged, not substituted for
			// the original raise, so the original error keeps propagating.
			if res := ev.unwindTo(wind, k.Wind); res.err != nil {
				ev.Log.Debug("after-thunk failed during exception unwind", zap.Error(res.err))
			}
			wind = k.Wind
		}
		k = k.Next
	}
	return state{err: s.err, val: nil, done: true}
}

// dispatchGuard evaluates a guard's clauses in order against cond, binding
// Var, returning the first matching clause's value or re-raising if none
// match (R7RS guard semantics).
func (ev *Evaluator) dispatchGuard(k *Kont, condErr error, rest *Kont) state {
	errObj := errorValue(condErr)
	handlerEnv := runtime.NewEnclosedEnvironment(k.Env)
	handlerEnv.Define(internSym(k.HandlerVar), errObj)
	for _, clause := range k.Clauses {
		if clause.Test == nil {
			// else
			return ev.stepBegin(clause.Exprs, handlerEnv, rest, k.WindAtInstall)
		}
		testVal, err := ev.evalSimple(clause.Test, handlerEnv)
		if err != nil {
			return state{err: err, k: rest, wind: k.WindAtInstall}
		}
		if runtime.IsTruthy(testVal) {
			if len(clause.Exprs) == 0 {
				return state{val: testVal, k: rest, wind: k.WindAtInstall}
			}
			return ev.stepBegin(clause.Exprs, handlerEnv, rest, k.WindAtInstall)
		}
	}
	return state{err: condErr, k: rest, wind: k.WindAtInstall}
}

type windResult struct{ err error }

// unwindTo transitions the active dynamic-wind stack from cur to target,
// running After thunks (innermost first) for frames left behind and Before
// thunks (outermost first) for frames entered, per spec.md §4.4's "before/
// after thunks run exactly once on every entry/exit including those
// triggered by continuation invocation".
func (ev *Evaluator) unwindTo(cur, target *windFrame) windResult {
	ancestor := commonAncestor(cur, target)
	for cur != ancestor {
		if cur.After != nil {
			if _, err := ev.Call(cur.After, nil); err != nil {
				return windResult{err: err}
			}
		}
		cur = cur.Parent
	}
	for _, frame := range pathFrom(ancestor, target) {
		if frame.Before != nil {
			if _, err := ev.Call(frame.Before, nil); err != nil {
				return windResult{err: err}
			}
		}
	}
	return windResult{}
}

// --- call/cc ---
//
// call/cc cannot be an ordinary PrimitiveProcedure: a HostFunc only ever
// sees (args, ctx), never the current continuation. It is instead
// recognized specially by apply, which snapshots the live (Kont, windFrame)
// pair as a *runtime.Continuation and applies the receiver procedure to it
// in tail position — invoking the result is exactly what R7RS specifies
// `call-with-current-continuation` to do.

type callCCPrimitive struct{}

func (callCCPrimitive) Kind() string   { return "primitive-procedure" }
func (callCCPrimitive) String() string { return "#[primitive call/cc]" }
func (callCCPrimitive) MinArity() int  { return 1 }
func (callCCPrimitive) MaxArity() int  { return 1 }

// CallCC is the value the root environment binds to `call/cc` and
// `call-with-current-continuation`.
var CallCC runtime.Value = &callCCPrimitive{}

// contSnapshot is the concrete type hidden behind runtime.Continuation's
// opaque Snapshot field.
type contSnapshot struct {
	k    *Kont
	wind *windFrame
}

func (ev *Evaluator) applyCallCC(args []runtime.Value, k *Kont, wind *windFrame) state {
	if len(args) != 1 {
		return state{err: scmerrors.NewArity("call/cc", 1, len(args)), k: k, wind: wind}
	}
	receiver := args[0]
	tag := ev.contTag.Add(1)
	cont := &runtime.Continuation{Tag: tag, Snapshot: &contSnapshot{k: k, wind: wind}}
	return ev.apply(receiver, []runtime.Value{cont}, k, wind)
}

// --- helpers ---

// valuesBundle is the carrier for `(values a b c)`, aliased from runtime so
// internal/primitive's call-with-values can unpack it without an import
// cycle back into this package.
type valuesBundle = runtime.ValuesBundle

func literalToValue(datum interface{}) runtime.Value {
	switch d := datum.(type) {
	case runtime.Value:
		return d
	case int64:
		return runtime.NewInteger(d)
	case int:
		return runtime.NewInteger(int64(d))
	case float64:
		return runtime.NewReal(d)
	case bool:
		return runtime.Bool(d)
	case string:
		return runtime.NewString(d)
	case rune:
		return runtime.NewChar(d)
	case nil:
		return runtime.Unit
	default:
		return runtime.NewString(fmt.Sprintf("%v", d))
	}
}

func quoteToValue(datum interface{}) runtime.Value {
	if v, ok := datum.(runtime.Value); ok {
		return v
	}
	return literalToValue(datum)
}

func errorValue(err error) runtime.Value {
	if re, ok := err.(*scmerrors.RuntimeError); ok {
		return runtime.NewErrorObject(re, irritantValues(re.Irritants))
	}
	return runtime.NewErrorObject(scmerrors.NewInternal("%v", err), nil)
}

// irritantValues recovers the runtime.Value irritants primitives like
// `error` attach to a *scmerrors.RuntimeError, which carries them as
// []interface{} since internal/errors must not import internal/runtime.
func irritantValues(irritants []interface{}) []runtime.Value {
	if len(irritants) == 0 {
		return nil
	}
	out := make([]runtime.Value, 0, len(irritants))
	for _, v := range irritants {
		if rv, ok := v.(runtime.Value); ok {
			out = append(out, rv)
		}
	}
	return out
}

func internSym(name string) symbol.ID { return symbol.Intern(name) }

func primitiveFingerprint(name string) uint64 {
	var h uint64 = 1469598103934665603
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= 1099511628211
	}
	return h
}

// primitiveContext is the ctx argument handed to every HostFunc, matching
// the "context provides the runtime, the current environment, and a hook
// for spawning sub-tasks" contract of spec.md §6. internal/primitive holds
// the richer, user-facing Context type this adapts into.
type primitiveContext struct {
	ev  *Evaluator
	env *runtime.Environment
}

func (c *primitiveContext) Eval(node ast.Node, env *runtime.Environment) (runtime.Value, error) {
	return c.ev.Eval(node, env)
}

func (c *primitiveContext) Call(proc runtime.Value, args []runtime.Value) (runtime.Value, error) {
	return c.ev.Call(proc, args)
}

func (c *primitiveContext) Env() *runtime.Environment { return c.env }

// Spawn runs thunk as a sub-task via the host-wired scheduler hook and
// returns whatever Value that hook uses to represent the pending result
// (a Future, by convention). Returns an error-valued result if no host has
// wired ev.Spawn yet.
func (c *primitiveContext) Spawn(thunk func() (runtime.Value, error)) runtime.Value {
	if c.ev.Spawn == nil {
		return errorValue(scmerrors.NewConcurrency("spawn: no scheduler wired into evaluator"))
	}
	return c.ev.Spawn(thunk)
}
