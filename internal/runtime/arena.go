package runtime

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Arena is the GC-managed heap region spec.md §4.1 describes: allocation
// bookkeeping split into a young (bump-allocated, scavenged frequently)
// and old (mark-sweep, collected less often) region, plus the safepoint
// coordination workers poll during concurrent GC (spec.md §5).
//
// Go's own runtime already reclaims the memory behind every Value this
// package allocates — there is no way (or need) for a hosted language
// runtime to bypass that. What Arena actually owns is the *bookkeeping*
// real embedded-language runtimes layer on top of the host GC: promotion
// counters that decide when a value has survived enough young-generation
// passes to count as "old" for tracing purposes, a pressure signal the JIT
// tier manager and code cache listen to (spec.md §4.7's "memory pressure
// (signaled by the GC)"), the safepoint flag workers check between bytecode
// steps, and collection statistics (counts, average pause time per
// generation) in the shape of original_source/src/runtime/gc/parallel_gc.rs's
// GcStatistics, surfaced here as GCStats.
type Arena struct {
	youngAllocs atomic.Uint64
	youngBytes  atomic.Uint64
	oldAllocs   atomic.Uint64
	oldBytes    atomic.Uint64
	scavenges   atomic.Uint64

	youngThresholdBytes uint64
	oldThresholdBytes   uint64

	// GC collection statistics, grounded on
	// original_source/src/runtime/gc/parallel_gc.rs's GcStatistics: counts
	// and cumulative pause time per generation, from which an average pause
	// is derived on read rather than maintained incrementally.
	minorCollections     atomic.Uint64
	majorCollections     atomic.Uint64
	minorPauseTotalNanos atomic.Uint64
	majorPauseTotalNanos atomic.Uint64

	safepoint atomic.Bool

	mu        sync.Mutex
	pressureC chan struct{} // closed+replaced each time pressure fires
}

// NewArena creates an Arena with the default old-generation threshold (16x
// the young threshold, the same ratio pkg/scmcore.DefaultConfig uses between
// YoungHeapBytes and OldHeapBytes). youngHeapBytes is the approximate size
// (in a notional, Value-count-scaled unit — this is bookkeeping, not a real
// byte-accurate allocator) at which the young region is considered full and
// a scavenge (minor GC pass) is signaled.
func NewArena(youngHeapBytes uint64) *Arena {
	if youngHeapBytes == 0 {
		youngHeapBytes = 1 << 20
	}
	return NewArenaWithOldThreshold(youngHeapBytes, youngHeapBytes*16)
}

// NewArenaWithOldThreshold is NewArena plus an explicit old-generation
// threshold, in the same notional unit as youngHeapBytes, past which a
// major collection is signaled.
func NewArenaWithOldThreshold(youngHeapBytes, oldHeapBytes uint64) *Arena {
	if youngHeapBytes == 0 {
		youngHeapBytes = 1 << 20
	}
	if oldHeapBytes == 0 {
		oldHeapBytes = youngHeapBytes * 16
	}
	a := &Arena{youngThresholdBytes: youngHeapBytes, oldThresholdBytes: oldHeapBytes}
	a.pressureC = make(chan struct{})
	return a
}

// approxSize is a crude per-kind size estimate used purely to decide when
// the young region is "full"; it is not meant to track real byte counts.
func approxSize(v Value) uint64 {
	switch v.(type) {
	case *Pair:
		return 32
	case *Vector:
		return 48
	case *Record:
		return 48
	default:
		return 16
	}
}

// Alloc records a new allocation of v in the young region, returning v
// unchanged (the allocation itself already happened via Go's `new`/struct
// literal; Alloc exists to update Arena's bookkeeping and, when the young
// region crosses its threshold, trigger a scavenge signal).
func (a *Arena) Alloc(v Value) Value {
	a.youngAllocs.Add(1)
	sz := a.youngBytes.Add(approxSize(v))
	if sz >= a.youngThresholdBytes {
		a.scavenge()
	}
	return v
}

// scavenge resets the young-generation counters (simulating a minor GC pass
// promoting survivors to old), records the pause for GCStats, and fires the
// pressure signal.
func (a *Arena) scavenge() {
	start := time.Now()
	a.youngBytes.Store(0)
	a.scavenges.Add(1)
	a.minorCollections.Add(1)
	a.minorPauseTotalNanos.Add(uint64(time.Since(start).Nanoseconds()))
	a.signalPressure()
}

// Promote marks n values (sized by approxSize) as having survived into the
// old generation. Once the old region crosses its own threshold this
// triggers a major collection, mirroring parallel_gc.rs's minor/major split:
// minor collections are cheap and frequent (the young scavenge above), major
// collections are rarer and their pause time is tracked separately.
func (a *Arena) Promote(n int) {
	a.oldAllocs.Add(uint64(n))
	sz := a.oldBytes.Add(uint64(n) * approxSize(nil))
	if sz >= a.oldThresholdBytes {
		a.majorCollect()
	}
}

// majorCollect resets the old-generation byte counter (simulating a
// mark-sweep pass over the old region), records the pause for GCStats, and
// fires the pressure signal.
func (a *Arena) majorCollect() {
	start := time.Now()
	a.oldBytes.Store(0)
	a.majorCollections.Add(1)
	a.majorPauseTotalNanos.Add(uint64(time.Since(start).Nanoseconds()))
	a.signalPressure()
}

// Collect forces an immediate minor and major collection, giving a host
// configured with gc_mode "manual" (spec.md §4.1) an explicit trigger rather
// than relying purely on threshold crossings.
func (a *Arena) Collect() {
	a.scavenge()
	a.majorCollect()
}

func (a *Arena) signalPressure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	close(a.pressureC)
	a.pressureC = make(chan struct{})
}

// Pressure returns a channel that is closed the next time the arena
// signals memory pressure (young-region scavenge or explicit Collect).
// Callers (the code cache, in particular) re-subscribe after each fire.
func (a *Arena) Pressure() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pressureC
}

// Stats is a point-in-time snapshot of allocation counters.
type Stats struct {
	YoungAllocs uint64
	OldAllocs   uint64
	Scavenges   uint64
}

func (a *Arena) Stats() Stats {
	return Stats{
		YoungAllocs: a.youngAllocs.Load(),
		OldAllocs:   a.oldAllocs.Load(),
		Scavenges:   a.scavenges.Load(),
	}
}

// GCStats reports collection counts and average pause times, the
// Go-idiomatic surface for what original_source/src/runtime/gc/parallel_gc.rs
// exposes as GcStatistics (there: minor_collections, major_collections,
// minor/major_collection_time as running totals, plus an average derived on
// read rather than stored). HeapUtilizationPct approximates parallel_gc.rs's
// heap_utilization gauge using the current young/old byte counters against
// their configured thresholds.
type GCStats struct {
	MinorCollections   uint64
	MajorCollections   uint64
	AvgMinorPauseNanos uint64
	AvgMajorPauseNanos uint64
	HeapUtilizationPct float64
}

func (a *Arena) GCStats() GCStats {
	minor := a.minorCollections.Load()
	major := a.majorCollections.Load()
	var avgMinor, avgMajor uint64
	if minor > 0 {
		avgMinor = a.minorPauseTotalNanos.Load() / minor
	}
	if major > 0 {
		avgMajor = a.majorPauseTotalNanos.Load() / major
	}
	var utilization float64
	if total := a.youngThresholdBytes + a.oldThresholdBytes; total > 0 {
		used := a.youngBytes.Load() + a.oldBytes.Load()
		utilization = float64(used) / float64(total) * 100
	}
	return GCStats{
		MinorCollections:   minor,
		MajorCollections:   major,
		AvgMinorPauseNanos: avgMinor,
		AvgMajorPauseNanos: avgMajor,
		HeapUtilizationPct: utilization,
	}
}

// Trace performs a full reachability walk from roots using the Tracer
// interface values opt into, returning the reachable set. This is used for
// diagnostics (cycle detection tests, heap dumps) rather than reclamation
// — reclamation of unreachable Go memory is the host Go GC's job.
func Trace(roots []Value) map[Value]struct{} {
	seen := make(map[Value]struct{}, 64)
	var stack []Value
	stack = append(stack, roots...)
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if v == nil {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		if t, ok := v.(Tracer); ok {
			t.Trace(func(child Value) {
				if child != nil {
					stack = append(stack, child)
				}
			})
		}
	}
	return seen
}

// --- safepoints ---
//
// Every concurrency worker polls AtSafepoint between bytecode/primitive
// boundaries (spec.md §5's "every worker periodically checks a safepoint
// flag and parks at the next bytecode boundary or primitive call until the
// collector releases"). RequestSafepoint/Release are called by whatever
// drives a stop-the-world-style pause (here: nothing does, by default —
// gc_mode "manual"/"automatic"/"adaptive" decide whether Runtime ever
// calls RequestSafepoint on its own).

// RequestSafepoint raises the flag; workers calling AtSafepoint will park.
func (a *Arena) RequestSafepoint() { a.safepoint.Store(true) }

// ReleaseSafepoint lowers the flag, letting parked workers resume.
func (a *Arena) ReleaseSafepoint() { a.safepoint.Store(false) }

// AtSafepoint reports whether a safepoint is currently requested. Workers
// should treat a true return as "park until false", typically by spinning
// on a short backoff or select-ing on a release channel; this package
// exposes the flag, not the parking policy, matching spec.md's emphasis on
// workers voluntarily checking at well-defined points.
func (a *Arena) AtSafepoint() bool { return a.safepoint.Load() }
