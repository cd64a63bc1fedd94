// Package jit implements the Tier Manager of spec.md §4.7: it owns
// per-fragment tier metadata (via internal/profiler's Detector), drives
// compilation requests against internal/codegen's narrow fast-path
// compiler, and serves internal/evaluator's Hotspot interface so the CEK
// loop can consult a compiled entry on every call site without this
// package reaching back into the evaluator.
package jit

import (
	"sync"
	"time"

	"github.com/cwbudde/scmcore/internal/codegen"
	"github.com/cwbudde/scmcore/internal/profiler"
	"github.com/cwbudde/scmcore/internal/runtime"
	"github.com/cwbudde/scmcore/pkg/ast"
	"go.uber.org/zap"
)

// NativeFunc matches internal/evaluator.NativeFunc structurally (same
// underlying function shape), so a *Manager satisfies evaluator.Hotspot
// without this package importing internal/evaluator.
type NativeFunc func(args []runtime.Value) (runtime.Value, error)

// Transition records one tier change for a fragment, kept in a bounded
// per-fragment history for introspection per spec.md §4.7.
type Transition struct {
	From, To profiler.Tier
	At       time.Time
	Reason   string
}

const transitionHistoryLimit = 32

// Config parameterizes the manager; pkg/scmcore's Config maps onto this
// directly (enable_jit, enable_speculative_compile, max_tier, code cache
// capacity).
type Config struct {
	Thresholds          profiler.Thresholds
	CacheCapacity       int
	EnableJIT           bool
	EnableSpeculative   bool
	MaxTier             profiler.Tier
	MaxDeoptsBeforeBan  int
	EstimatedCompileCost time.Duration
}

func DefaultConfig() Config {
	return Config{
		Thresholds:           profiler.DefaultThresholds(),
		CacheCapacity:        512,
		EnableJIT:            true,
		EnableSpeculative:    false,
		MaxTier:              profiler.TierOptimizedNative,
		MaxDeoptsBeforeBan:   3,
		EstimatedCompileCost: 50 * time.Microsecond,
	}
}

// Manager is the tier manager + code cache pair. It implements
// internal/evaluator.Hotspot (Observe, NativeEntry).
type Manager struct {
	cfg      Config
	detector *profiler.Detector
	cache    *codegen.Cache
	gen      *runtime.GenerationManager
	log      *zap.Logger

	mu          sync.Mutex
	transitions map[uint64][]Transition
	fragments   map[uint64]fragmentSource
}

// fragmentSource is what the manager needs to attempt a compile: the
// lambda's parameter names and its single-expression body. internal/
// evaluator registers this once per Lambda node, alongside computing its
// fingerprint. Lambdas with a multi-expression body are never registered
// (codegen.Compile only ever sees the sort of single-expression fragment
// its narrow fast path supports).
type fragmentSource struct {
	Params []string
	Body   ast.Node
}

func New(cfg Config, gen *runtime.GenerationManager, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:         cfg,
		detector:    profiler.New(cfg.Thresholds),
		cache:       codegen.NewCache(cfg.CacheCapacity),
		gen:         gen,
		log:         log,
		transitions: make(map[uint64][]Transition),
		fragments:   make(map[uint64]fragmentSource),
	}
}

// RegisterFragment tells the manager how to attempt compiling fingerprint,
// should it become hot. Called once per distinct Lambda the evaluator
// evaluates.
func (m *Manager) RegisterFragment(fingerprint uint64, params []string, body ast.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fragments[fingerprint]; !ok {
		m.fragments[fingerprint] = fragmentSource{Params: params, Body: body}
	}
}

// Observe implements evaluator.Hotspot. On every call, it records the
// execution and, if the fragment just crossed a promotion threshold,
// attempts a compile.
func (m *Manager) Observe(fingerprint uint64, elapsed time.Duration, failed bool) {
	m.detector.Observe(fingerprint, elapsed, failed)
	if !m.cfg.EnableJIT {
		return
	}
	tier, promote := m.detector.Decide(fingerprint, m.cfg.EstimatedCompileCost)
	if !promote || tier > m.cfg.MaxTier {
		return
	}
	m.tryPromote(fingerprint, tier)
}

// NativeEntry implements evaluator.Hotspot: it looks up a still-valid
// cached compiled entry for fingerprint.
func (m *Manager) NativeEntry(fingerprint uint64) (NativeFunc, bool) {
	var currentGen uint64
	if m.gen != nil {
		currentGen = m.gen.Current()
	}
	e, ok := m.cache.Get(fingerprint, currentGen)
	if !ok {
		return nil, false
	}
	m.cache.IncrementExec(fingerprint)
	native := e.Native
	return func(args []runtime.Value) (runtime.Value, error) {
		boxed := make([]interface{}, len(args))
		for i, a := range args {
			boxed[i] = unboxValue(a)
		}
		result, err := native(boxed)
		if err != nil {
			m.Deoptimize(fingerprint, "native entry error: "+err.Error())
			return nil, err
		}
		v, ok := boxValue(result)
		if !ok {
			m.Deoptimize(fingerprint, "native entry returned unboxable result")
			return nil, &codegen.CompileError{Reason: "cannot box native result"}
		}
		return v, nil
	}, true
}

func (m *Manager) tryPromote(fingerprint uint64, tier profiler.Tier) {
	m.mu.Lock()
	src, ok := m.fragments[fingerprint]
	m.mu.Unlock()
	if !ok {
		return // nothing registered to compile (e.g. a primitive call site)
	}
	native, err := codegen.Compile(src.Params, src.Body)
	if err != nil {
		m.log.Debug("jit: compile failed, staying at lower tier", zap.Uint64("fingerprint", fingerprint), zap.Error(err))
		return
	}
	var gen uint64
	if m.gen != nil {
		gen = m.gen.Current()
	}
	m.cache.Put(fingerprint, native, int(tier), gen, time.Now())
	m.detector.Commit(fingerprint, tier)
	m.recordTransition(fingerprint, tier, "promoted")
}

// Deoptimize drops fingerprint's cache entry and decrements its recorded
// tier, per spec.md §4.6's deoptimization contract; repeated deopts ban
// further speculative promotion.
func (m *Manager) Deoptimize(fingerprint uint64, reason string) {
	m.cache.Invalidate(fingerprint)
	newTier, banned := m.detector.Deoptimize(fingerprint, m.cfg.MaxDeoptsBeforeBan)
	m.recordTransition(fingerprint, newTier, "deopt: "+reason)
	if banned {
		m.log.Info("jit: fragment banned from further speculation", zap.Uint64("fingerprint", fingerprint))
	}
}

// OnMemoryPressure clears the entire code cache — wired to
// runtime.Arena.Pressure() by pkg/scmcore's Runtime at startup.
func (m *Manager) OnMemoryPressure() {
	m.cache.Clear()
}

// Transitions returns fingerprint's bounded transition history.
func (m *Manager) Transitions(fingerprint uint64) []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.transitions[fingerprint]))
	copy(out, m.transitions[fingerprint])
	return out
}

func (m *Manager) recordTransition(fingerprint uint64, to profiler.Tier, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hist := m.transitions[fingerprint]
	var from profiler.Tier
	if len(hist) > 0 {
		from = hist[len(hist)-1].To
	}
	hist = append(hist, Transition{From: from, To: to, At: time.Now(), Reason: reason})
	if len(hist) > transitionHistoryLimit {
		hist = hist[len(hist)-transitionHistoryLimit:]
	}
	m.transitions[fingerprint] = hist
}

// Record exposes the underlying profiler record for diagnostics/tests.
func (m *Manager) Record(fingerprint uint64) *profiler.Record {
	return m.detector.Record(fingerprint)
}

func boxValue(v interface{}) (runtime.Value, bool) {
	switch x := v.(type) {
	case int64:
		return runtime.NewInteger(x), true
	case bool:
		return runtime.Bool(x), true
	case float64:
		return runtime.NewReal(x), true
	case nil:
		return runtime.Unit, true
	default:
		return nil, false
	}
}

func unboxValue(v runtime.Value) interface{} {
	switch x := v.(type) {
	case *runtime.Integer:
		return x.V
	case *runtime.Real:
		return x.V
	default:
		if x.Kind() == "boolean" {
			return runtime.IsTruthy(x)
		}
		return v
	}
}
