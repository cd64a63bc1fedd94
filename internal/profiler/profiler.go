// Package profiler implements the hotspot detector spec.md §4.6 describes:
// a per-AST-fingerprint record of execution count, total/average time, type
// feedback, and failure count, plus the threshold policy that decides when
// a fragment becomes eligible for a higher compilation tier.
//
// The atomic-counters-in-a-struct style for per-fragment stats mirrors the
// teacher's object-pool instrumentation (internal/interp/runtime/pool.go's
// poolStats), adapted from one global counters struct to one counters
// struct per tracked fragment.
package profiler

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tier mirrors the four compilation levels spec.md §4.7 names; profiler
// only ever recommends tiers 0-3, leaving the actual transition bookkeeping
// to internal/jit.
type Tier int

const (
	TierInterpret Tier = iota
	TierBytecode
	TierBasicNative
	TierOptimizedNative
)

func (t Tier) String() string {
	switch t {
	case TierInterpret:
		return "interpret"
	case TierBytecode:
		return "bytecode"
	case TierBasicNative:
		return "basic"
	case TierOptimizedNative:
		return "optimized"
	default:
		return "unknown"
	}
}

// Trend classifies a fragment's recent performance trajectory over the
// sliding window tracked in Record.samples.
type Trend int

const (
	TrendUnknown Trend = iota
	TrendImproving
	TrendStable
	TrendDegrading
)

// Thresholds parameterizes the N/T promotion policy of spec.md §4.6.
// pkg/scmcore's Config surfaces N1 and T1 as hotspot_executions and
// hotspot_time; the other fields keep jit.DefaultConfig's values.
type Thresholds struct {
	N1 uint64        // executions crossing N1 (OR T1) -> bytecode
	T1 time.Duration
	N2 uint64 // executions crossing N2 (AND T2) -> basic native
	T2 time.Duration
	N3 uint64 // executions crossing N3 (AND T3, AND stable trend) -> optimized native
	T3 time.Duration
	// MinBenefit is the minimum estimated-speedup-over-compile-cost ratio a
	// promotion must clear; see Record.benefit.
	MinBenefit float64
}

// DefaultThresholds are conservative values suitable for an embedded
// interpreter workload, not tuned against any real benchmark corpus.
func DefaultThresholds() Thresholds {
	return Thresholds{
		N1: 50, T1: 2 * time.Millisecond,
		N2: 1_000, T2: 20 * time.Millisecond,
		N3: 10_000, T3: 200 * time.Millisecond,
		MinBenefit: 1.2,
	}
}

const windowSize = 16

// Record is one fragment's profiling state, keyed by AST fingerprint.
type Record struct {
	Fingerprint uint64

	count        atomic.Uint64
	totalNanos   atomic.Uint64
	failureCount atomic.Uint64

	mu          sync.Mutex
	samples     [windowSize]time.Duration
	sampleCount int
	sampleNext  int

	typeMu      sync.Mutex
	typeCounts  map[string]map[string]uint64 // param label -> type name -> count
	tier        Tier
	deoptCount  int
	banned      bool
}

// Count returns the total number of observed executions.
func (r *Record) Count() uint64 { return r.count.Load() }

// TotalTime returns cumulative elapsed time across all observed executions.
func (r *Record) TotalTime() time.Duration { return time.Duration(r.totalNanos.Load()) }

// AverageTime returns TotalTime / Count, or 0 if never observed.
func (r *Record) AverageTime() time.Duration {
	n := r.count.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(r.totalNanos.Load() / n)
}

// FailureCount returns how many observed executions ended in error.
func (r *Record) FailureCount() uint64 { return r.failureCount.Load() }

// Tier returns the tier the detector last recommended for this fragment.
func (r *Record) Tier() Tier {
	r.typeMu.Lock()
	defer r.typeMu.Unlock()
	return r.tier
}

// Banned reports whether repeated deoptimization has disqualified this
// fragment from further speculative promotion, per spec.md §4.6.
func (r *Record) Banned() bool {
	r.typeMu.Lock()
	defer r.typeMu.Unlock()
	return r.banned
}

func (r *Record) observe(elapsed time.Duration, failed bool) {
	r.count.Add(1)
	r.totalNanos.Add(uint64(elapsed))
	if failed {
		r.failureCount.Add(1)
	}
	r.mu.Lock()
	r.samples[r.sampleNext] = elapsed
	r.sampleNext = (r.sampleNext + 1) % windowSize
	if r.sampleCount < windowSize {
		r.sampleCount++
	}
	r.mu.Unlock()
}

// observeTypes folds a call's actual parameter type names into this
// fragment's type-feedback table, used by the JIT to decide whether a
// speculative, type-specialized compile is safe.
func (r *Record) observeTypes(paramTypes []string) {
	if len(paramTypes) == 0 {
		return
	}
	r.typeMu.Lock()
	defer r.typeMu.Unlock()
	if r.typeCounts == nil {
		r.typeCounts = make(map[string]map[string]uint64, len(paramTypes))
	}
	for i, t := range paramTypes {
		label := paramLabel(i)
		m := r.typeCounts[label]
		if m == nil {
			m = make(map[string]uint64)
			r.typeCounts[label] = m
		}
		m[t]++
	}
}

func paramLabel(i int) string {
	const digits = "0123456789"
	if i < 10 {
		return "#" + string(digits[i])
	}
	return "#n"
}

// TypeConfidence returns the dominant observed type for parameter i and its
// confidence (fraction of observed calls agreeing), or ("", 0) if no
// observations exist.
func (r *Record) TypeConfidence(i int) (string, float64) {
	r.typeMu.Lock()
	defer r.typeMu.Unlock()
	m := r.typeCounts[paramLabel(i)]
	if len(m) == 0 {
		return "", 0
	}
	var total uint64
	var bestType string
	var bestCount uint64
	for t, c := range m {
		total += c
		if c > bestCount {
			bestCount, bestType = c, t
		}
	}
	if total == 0 {
		return "", 0
	}
	return bestType, float64(bestCount) / float64(total)
}

// trend classifies the sliding window: compares the mean of its older half
// against its newer half.
func (r *Record) trend() Trend {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sampleCount < windowSize {
		return TrendUnknown
	}
	half := windowSize / 2
	var older, newer time.Duration
	for i := 0; i < half; i++ {
		older += r.samples[(r.sampleNext+i)%windowSize]
		newer += r.samples[(r.sampleNext+half+i)%windowSize]
	}
	switch {
	case newer < older*9/10:
		return TrendImproving
	case newer > older*11/10:
		return TrendDegrading
	default:
		return TrendStable
	}
}

// benefit estimates expected speedup per spec.md §4.6's "promotion benefit
// check": a fragment executed many times with a high average cost has more
// to gain from compilation than one executed rarely or already fast.
func (r *Record) benefit(compileCost time.Duration) float64 {
	avg := r.AverageTime()
	n := r.count.Load()
	if compileCost <= 0 || avg <= 0 || n == 0 {
		return 0
	}
	projectedSaved := avg * time.Duration(n) / 2 // compiled code assumed ~2x
	return float64(projectedSaved) / float64(compileCost)
}

// Detector tracks one Record per fingerprint and applies the threshold
// policy to recommend tier transitions. It does not compile anything
// itself — internal/jit consumes Detector.Decide to drive actual
// compilation requests and code cache population.
type Detector struct {
	thresholds Thresholds

	mu      sync.RWMutex
	records map[uint64]*Record
}

func New(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds, records: make(map[uint64]*Record, 256)}
}

func (d *Detector) recordFor(fingerprint uint64) *Record {
	d.mu.RLock()
	r, ok := d.records[fingerprint]
	d.mu.RUnlock()
	if ok {
		return r
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.records[fingerprint]; ok {
		return r
	}
	r = &Record{Fingerprint: fingerprint}
	d.records[fingerprint] = r
	return r
}

// Observe records one execution of fingerprint. Matches the signature
// evaluator.Hotspot.Observe expects, so a Detector embedded in a
// jit.Manager satisfies that interface directly.
func (d *Detector) Observe(fingerprint uint64, elapsed time.Duration, failed bool) {
	d.recordFor(fingerprint).observe(elapsed, failed)
}

// ObserveTypes records the actual argument types a call supplied, for type
// feedback driven speculative compilation.
func (d *Detector) ObserveTypes(fingerprint uint64, paramTypes []string) {
	d.recordFor(fingerprint).observeTypes(paramTypes)
}

// Record returns the tracking record for fingerprint, creating one if this
// is the first reference (with a zeroed execution history).
func (d *Detector) Record(fingerprint uint64) *Record {
	return d.recordFor(fingerprint)
}

// Decide applies the threshold policy and returns the tier fingerprint is
// now eligible for, and whether a promotion beyond its current tier
// actually clears the benefit check. compileCost estimates the cost of
// compiling to the candidate tier (the caller, internal/jit, knows its own
// compiler's typical latency).
func (d *Detector) Decide(fingerprint uint64, compileCost time.Duration) (tier Tier, shouldPromote bool) {
	r := d.recordFor(fingerprint)
	if r.Banned() {
		return r.Tier(), false
	}
	n := r.Count()
	total := r.TotalTime()

	candidate := TierInterpret
	switch {
	case n >= d.thresholds.N3 && total >= d.thresholds.T3 && r.trend() == TrendStable:
		candidate = TierOptimizedNative
	case n >= d.thresholds.N2 && total >= d.thresholds.T2:
		candidate = TierBasicNative
	case n >= d.thresholds.N1 || total >= d.thresholds.T1:
		candidate = TierBytecode
	}

	r.typeMu.Lock()
	current := r.tier
	r.typeMu.Unlock()
	if candidate <= current {
		return current, false
	}
	if r.benefit(compileCost) < d.thresholds.MinBenefit {
		return current, false
	}
	return candidate, true
}

// Commit records that fingerprint was promoted to tier (called by
// internal/jit after a successful compile).
func (d *Detector) Commit(fingerprint uint64, tier Tier) {
	r := d.recordFor(fingerprint)
	r.typeMu.Lock()
	r.tier = tier
	r.typeMu.Unlock()
}

// Deoptimize decrements fingerprint's recorded tier by one and, once a
// fragment has deoptimized maxDeopts times, bans it from further
// speculative promotion — spec.md §4.6's "repeated deoptimizations ban
// speculative optimization for that fragment".
func (d *Detector) Deoptimize(fingerprint uint64, maxDeopts int) (newTier Tier, banned bool) {
	r := d.recordFor(fingerprint)
	r.typeMu.Lock()
	defer r.typeMu.Unlock()
	if r.tier > TierInterpret {
		r.tier--
	}
	r.deoptCount++
	if r.deoptCount >= maxDeopts {
		r.banned = true
	}
	return r.tier, r.banned
}
