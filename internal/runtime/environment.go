package runtime

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cwbudde/scmcore/internal/symbol"
)

// Environment is a lexical binding frame. It mirrors the teacher's
// Environment (internal/interp/runtime/environment.go): a symbol-keyed
// store plus an outer pointer for nested scopes. Two differences from the
// teacher's DWScript environment: lookups key on symbol.ID (eq-identity,
// case-sensitive) instead of a case-insensitive ident.Map, and every frame
// additionally tracks a generation number + an optional small lookup
// cache with hit/miss counters and hot-variable reporting, per spec.md
// §3/§4.2 and original_source/src/eval/optimized_environment.rs's
// VariableCache/EnvironmentStats (hits, misses, per-entry access counts,
// frequency-based eviction).
type Environment struct {
	mu    sync.RWMutex
	store map[symbol.ID]Value
	outer *Environment

	// generation increases on every mutation (define on a non-empty
	// rebind, or any set!) to this frame specifically.
	generation uint64

	// sealed marks a frame (typically the root) that rejects new defines
	// once bootstrapping has finished, per spec.md §4.2's "define on a
	// sealed frame signals an error".
	sealed bool

	// captured is set once this frame has been closed over by a Procedure
	// or snapshotted by a Continuation. A captured frame's Define switches
	// from in-place mutation to copy-on-write, so a continuation or
	// closure that already holds this *Environment keeps observing the
	// bindings as they were at capture time even after a later `define`
	// shadows one of them — spec.md §4.4's "it sees the environment
	// generation that was current when it was captured for any binding
	// that has since been shadowed by a new define".
	captured bool

	cache lookupCache
}

// NewEnvironment creates a root-level environment with no outer scope.
func NewEnvironment() *Environment {
	return &Environment{store: make(map[symbol.ID]Value, 64)}
}

// NewEnclosedEnvironment creates a frame for function entry / let whose
// parent is outer.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	return &Environment{store: make(map[symbol.ID]Value, 8), outer: outer}
}

// Outer returns the enclosing environment, or nil for the root.
func (e *Environment) Outer() *Environment { return e.outer }

// Generation returns this frame's current generation number.
func (e *Environment) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

// Seal prevents further Define calls on this frame (used for the root
// environment once primitive bootstrapping completes, matching spec.md
// §4.2's "define on a sealed frame ... signals an error").
func (e *Environment) Seal() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sealed = true
}

// Lookup walks the chain root-ward (innermost first), consulting the
// per-frame lookup cache before falling back to the map. Cache hit/miss
// counters and per-variable access counts are updated as a side effect
// (see EnvironmentStats), so this takes the frame's write lock rather than
// a read lock.
func (e *Environment) Lookup(id symbol.ID) (Value, bool) {
	for env := e; env != nil; env = env.outer {
		env.mu.Lock()
		if v, ok := env.cache.get(id, env.generation); ok {
			env.mu.Unlock()
			return v, true
		}
		v, ok := env.store[id]
		if ok {
			env.cache.put(id, v, env.generation)
		}
		env.mu.Unlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// LookupFrame walks the chain like Lookup but returns the specific frame the
// binding was found in rather than its value. internal/fingerprint uses
// this to fold free-variable *binding identity* (which frame, not just
// which name) into an AST fingerprint, per spec.md §3's "AST Fingerprint
// ... a stable hash of an expression subtree plus the identity of its
// free-variable bindings".
func (e *Environment) LookupFrame(id symbol.ID) (*Environment, bool) {
	for env := e; env != nil; env = env.outer {
		env.mu.RLock()
		_, ok := env.store[id]
		env.mu.RUnlock()
		if ok {
			return env, true
		}
	}
	return nil, false
}

// Define adds (or rebinds, within the innermost frame only) a binding. It
// returns the Environment callers should use going forward: e itself when
// no copy-on-write was needed, or a fresh frame when e had already been
// captured by a closure/continuation (see the captured field doc).
//
// Per spec.md §4.2, introducing a brand-new name never bumps the
// generation — no observer could have captured a snapshot expecting that
// name to be absent in a way that matters. Only shadowing an existing name
// does, and only then does a captured frame need to fork.
func (e *Environment) Define(id symbol.ID, v Value) (*Environment, error) {
	e.mu.Lock()
	if e.sealed {
		e.mu.Unlock()
		return e, fmt.Errorf("define on sealed environment: %s", symbol.Text(id))
	}
	_, existed := e.store[id]
	if existed && e.captured {
		fork := e.cloneLocked()
		e.mu.Unlock()
		fork.store[id] = v
		fork.generation++
		return fork, nil
	}
	if existed {
		e.generation++
		e.cache.invalidate(id)
	}
	e.store[id] = v
	e.mu.Unlock()
	return e, nil
}

// cloneLocked copies this frame's own bindings into a fresh, uncaptured
// frame sharing the same outer pointer. Caller must hold e.mu.
func (e *Environment) cloneLocked() *Environment {
	fork := &Environment{
		store:      make(map[symbol.ID]Value, len(e.store)+1),
		outer:      e.outer,
		generation: e.generation,
		sealed:     e.sealed,
	}
	for k, v := range e.store {
		fork.store[k] = v
	}
	return fork
}

// MarkCaptured flags this frame and every ancestor as captured, switching
// their future Define calls to copy-on-write. Called once whenever a
// Lambda closes over an environment or a continuation snapshots one —
// cheap relative to the call/closure creation itself, and conservative:
// once any closure anywhere in a chain exists, every frame in that chain
// becomes CoW for defines, which is sufficient (if not maximally precise)
// to guarantee spec.md §4.4's referential-transparency invariant.
func (e *Environment) MarkCaptured() {
	for env := e; env != nil; env = env.outer {
		env.mu.Lock()
		already := env.captured
		env.captured = true
		env.mu.Unlock()
		if already {
			break
		}
	}
}

// Set mutates an existing binding, searching outward from e, and always
// creates a new generation on the frame where the binding was found (per
// spec.md §4.2). Returns an error if the name is unbound anywhere in the
// chain.
func (e *Environment) Set(id symbol.ID, v Value) error {
	for env := e; env != nil; env = env.outer {
		env.mu.Lock()
		if _, ok := env.store[id]; ok {
			env.store[id] = v
			env.generation++
			env.cache.invalidate(id)
			env.mu.Unlock()
			return nil
		}
		env.mu.Unlock()
	}
	return fmt.Errorf("unbound variable: %s", symbol.Text(id))
}

// Extend creates a new child frame pre-populated with bindings, for
// function entry.
func (e *Environment) Extend(names []symbol.ID, values []Value) *Environment {
	child := NewEnclosedEnvironment(e)
	for i, n := range names {
		if i < len(values) {
			child.store[n] = values[i]
		}
	}
	return child
}

// Size reports the number of bindings in this frame only (not outer
// frames); used by tests and diagnostics.
func (e *Environment) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.store)
}

// Trace enumerates every value directly reachable from this frame (not
// outer frames, which the GC visits as their own roots when it walks the
// chain via Outer()).
func (e *Environment) Trace(visit func(Value)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, v := range e.store {
		visit(v)
	}
}

// EnvironmentStats reports this frame's lookup-cache performance and
// hottest cached variables, the Go-idiomatic surface for what
// original_source/src/eval/optimized_environment.rs exposes as
// EnvironmentStats/get_stats (there: total_lookups, cache_hits,
// cache_misses, hit_rate, hot_variables). Unlike the original this does
// not recurse into parent frames on its own; a caller wanting whole-chain
// figures walks Outer() and sums them.
type EnvironmentStats struct {
	CacheHits    uint64
	CacheMisses  uint64
	HitRatePct   float64
	HotVariables []HotVariable
}

// HotVariable names one cached binding and how many times the cache has
// served it, most-accessed first when returned from Stats.
type HotVariable struct {
	ID          symbol.ID
	AccessCount uint64
}

// Stats reports this frame's own lookup-cache counters.
func (e *Environment) Stats() EnvironmentStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	hits, misses := e.cache.hits, e.cache.misses
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total) * 100
	}
	hot := make([]HotVariable, 0, lookupCacheCapacity)
	for i := range e.cache.entries {
		if e.cache.filled[i] {
			hot = append(hot, HotVariable{ID: e.cache.entries[i].id, AccessCount: e.cache.entries[i].accessCount})
		}
	}
	sort.Slice(hot, func(i, j int) bool { return hot[i].AccessCount > hot[j].AccessCount })
	return EnvironmentStats{CacheHits: hits, CacheMisses: misses, HitRatePct: rate, HotVariables: hot}
}

// --- per-frame lookup cache ---
//
// Small, fixed-capacity cache mapping symbol.ID -> (Value, generation at
// population time, access count). A cache hit is only honored if the
// stored generation still matches the frame's current generation;
// otherwise the entry is stale and the caller falls through to a fresh map
// lookup. This is the "lookup caches store the generation they were
// populated at and invalidate themselves on mismatch" invariant from
// spec.md §4.2. Eviction and hit/miss/access-count bookkeeping follow
// original_source/src/eval/optimized_environment.rs's VariableCache:
// evict the least-frequently-accessed entry when the cache is full
// (there: evict_lru, despite the name actually ranking by access count
// rather than recency), and track hits/misses plus per-entry access
// counts for EnvironmentStats/hot-variable reporting.

const lookupCacheCapacity = 8

type cacheEntry struct {
	id          symbol.ID
	value       Value
	generation  uint64
	accessCount uint64
}

type lookupCache struct {
	entries [lookupCacheCapacity]cacheEntry
	filled  [lookupCacheCapacity]bool
	hits    uint64
	misses  uint64
}

func (c *lookupCache) get(id symbol.ID, currentGen uint64) (Value, bool) {
	for i := range c.entries {
		if c.filled[i] && c.entries[i].id == id {
			if c.entries[i].generation != currentGen {
				c.filled[i] = false
				c.misses++
				return nil, false
			}
			c.entries[i].accessCount++
			c.hits++
			return c.entries[i].value, true
		}
	}
	c.misses++
	return nil, false
}

func (c *lookupCache) put(id symbol.ID, v Value, gen uint64) {
	for i := range c.entries {
		if c.filled[i] && c.entries[i].id == id {
			c.entries[i].value = v
			c.entries[i].generation = gen
			return
		}
	}
	slot := c.slotForInsert()
	c.entries[slot] = cacheEntry{id: id, value: v, generation: gen, accessCount: 1}
	c.filled[slot] = true
}

// slotForInsert returns an empty slot if one exists, else the index of
// the least-frequently-accessed occupied entry to evict.
func (c *lookupCache) slotForInsert() int {
	for i := range c.filled {
		if !c.filled[i] {
			return i
		}
	}
	min := 0
	for i := 1; i < len(c.entries); i++ {
		if c.entries[i].accessCount < c.entries[min].accessCount {
			min = i
		}
	}
	return min
}

func (c *lookupCache) invalidate(id symbol.ID) {
	for i := range c.entries {
		if c.filled[i] && c.entries[i].id == id {
			c.filled[i] = false
		}
	}
}
