package runtime

import (
	"sync"
	"weak"
)

// GenerationRecord identifies one generation: the id, which effects caused
// it, its parent, and a weak set of environments still observing it. Once
// no live environment references a record and the manager has more than
// historyLimit records, the oldest unreferenced ones are dropped —
// spec.md §3's "Generations beyond a bounded history are garbage-collected
// when no live environment references them".
type GenerationRecord struct {
	ID     uint64
	Cause  EffectSet
	Parent uint64

	mu   sync.Mutex
	live []weak.Pointer[Environment]
}

func (g *GenerationRecord) trackLive(env *Environment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.live = append(g.live, weak.Make(env))
}

// liveCount reports how many of the tracked environments have not yet been
// collected by the Go GC. It also compacts the slice, dropping dead
// entries, as a side effect.
func (g *GenerationRecord) liveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.live[:0]
	for _, w := range g.live {
		if w.Value() != nil {
			kept = append(kept, w)
		}
	}
	g.live = kept
	return len(g.live)
}

const generationHistoryLimit = 4096

// GenerationManager is the Effect & Generation Manager of spec.md §4.3: it
// is the single monotonic counter concurrent mutators serialize through
// instead of per-cell reader/writer locks. Every State-effect primitive
// call requests a new generation before the evaluator proceeds with the
// mutation.
type GenerationManager struct {
	mu      sync.Mutex
	nextID  uint64
	current uint64
	history []*GenerationRecord // ring of recent records, oldest first
}

func NewGenerationManager() *GenerationManager {
	return &GenerationManager{nextID: 1, current: 0}
}

// Bump requests a new generation caused by effects, whose parent is the
// manager's current generation, and returns the new record. env, when
// non-nil, is registered as a live observer of the new generation.
func (m *GenerationManager) Bump(effects EffectSet, env *Environment) *GenerationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := &GenerationRecord{ID: m.nextID, Cause: effects, Parent: m.current}
	m.nextID++
	m.current = rec.ID
	m.history = append(m.history, rec)
	if env != nil {
		rec.trackLive(env)
	}
	m.compactLocked()
	return rec
}

// Current returns the id of the most recently created generation.
func (m *GenerationManager) Current() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// History returns a snapshot of the bounded transition history, oldest
// first, for introspection (e.g. the code cache's invalidation logic).
func (m *GenerationManager) History() []*GenerationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*GenerationRecord, len(m.history))
	copy(out, m.history)
	return out
}

// compactLocked evicts the oldest records once the history exceeds the
// bound, but only those with no remaining live environment observers —
// a record still being observed is kept regardless of age, since
// discarding it would break a continuation still holding that snapshot.
// Caller must hold m.mu.
func (m *GenerationManager) compactLocked() {
	if len(m.history) <= generationHistoryLimit {
		return
	}
	drop := len(m.history) - generationHistoryLimit/2
	kept := m.history[:0]
	for _, rec := range m.history {
		if drop > 0 && rec.liveCount() == 0 {
			drop--
			continue // drop: old enough and nobody observes it
		}
		kept = append(kept, rec)
	}
	m.history = kept
}
