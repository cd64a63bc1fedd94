package runtime

import "testing"

func TestGenerationManagerMonotonic(t *testing.T) {
	m := NewGenerationManager()
	var last uint64
	for i := 0; i < 10; i++ {
		rec := m.Bump(Effects(EffectState), nil)
		if rec.ID <= last {
			t.Fatalf("generation id not increasing: %d <= %d", rec.ID, last)
		}
		last = rec.ID
		if m.Current() != rec.ID {
			t.Fatalf("Current() = %d, want %d", m.Current(), rec.ID)
		}
	}
}

func TestGenerationParentChain(t *testing.T) {
	m := NewGenerationManager()
	first := m.Bump(Effects(EffectState), nil)
	second := m.Bump(Effects(EffectIO), nil)
	if second.Parent != first.ID {
		t.Fatalf("second.Parent = %d, want %d", second.Parent, first.ID)
	}
}

func TestGenerationRecordTracksLiveEnvironment(t *testing.T) {
	m := NewGenerationManager()
	env := NewEnvironment()
	rec := m.Bump(Effects(EffectState), env)
	if rec.liveCount() != 1 {
		t.Fatalf("liveCount() = %d, want 1", rec.liveCount())
	}
}

func TestArenaPressureSignalsOnScavenge(t *testing.T) {
	a := NewArena(64) // tiny threshold so a couple allocs trigger it
	ch := a.Pressure()
	for i := 0; i < 8; i++ {
		a.Alloc(NewPair(Unit, Unit))
	}
	select {
	case <-ch:
		// expected: pressure fired
	default:
		t.Fatal("expected arena to signal pressure after crossing young threshold")
	}
}

func TestArenaSafepoint(t *testing.T) {
	a := NewArena(0)
	if a.AtSafepoint() {
		t.Fatal("safepoint should start released")
	}
	a.RequestSafepoint()
	if !a.AtSafepoint() {
		t.Fatal("RequestSafepoint should raise the flag")
	}
	a.ReleaseSafepoint()
	if a.AtSafepoint() {
		t.Fatal("ReleaseSafepoint should lower the flag")
	}
}

func TestTraceReachability(t *testing.T) {
	shared := NewInteger(1)
	p1 := NewPair(shared, Null)
	p2 := NewPair(p1, p1) // cyclic-ish shared structure, not a true cycle here
	reachable := Trace([]Value{p2})
	if _, ok := reachable[shared]; !ok {
		t.Fatal("Trace should reach values nested two levels deep")
	}
	if _, ok := reachable[p1]; !ok {
		t.Fatal("Trace should reach p1")
	}
}

func TestTraceHandlesCycles(t *testing.T) {
	a := NewPair(Unit, Null)
	b := NewPair(Unit, Null)
	a.Cdr = b
	b.Cdr = a // cycle
	reachable := Trace([]Value{a})
	// Both pairs plus the Unit singleton they share as Car.
	if len(reachable) != 3 {
		t.Fatalf("Trace over a 2-cycle should visit exactly 3 values, got %d", len(reachable))
	}
}

func TestArenaGCStatsCountsMinorAndMajorCollections(t *testing.T) {
	a := NewArenaWithOldThreshold(64, 128)
	for i := 0; i < 8; i++ {
		a.Alloc(NewPair(Unit, Unit))
	}
	a.Promote(8) // 8 * approxSize(nil)=16 = 128, crosses the 128 old threshold

	stats := a.GCStats()
	if stats.MinorCollections == 0 {
		t.Fatal("expected at least one minor collection after crossing the young threshold")
	}
	if stats.MajorCollections == 0 {
		t.Fatal("expected at least one major collection after crossing the old threshold")
	}
}

func TestArenaCollectForcesMinorAndMajor(t *testing.T) {
	a := NewArena(1 << 20) // threshold high enough that nothing fires on its own
	before := a.GCStats()
	a.Collect()
	after := a.GCStats()
	if after.MinorCollections != before.MinorCollections+1 {
		t.Fatalf("Collect should record one minor collection, got %d -> %d", before.MinorCollections, after.MinorCollections)
	}
	if after.MajorCollections != before.MajorCollections+1 {
		t.Fatalf("Collect should record one major collection, got %d -> %d", before.MajorCollections, after.MajorCollections)
	}
}

func TestNewArenaDefaultsOldThresholdTo16xYoung(t *testing.T) {
	a := NewArena(1 << 10)
	if a.oldThresholdBytes != 16<<10 {
		t.Fatalf("oldThresholdBytes = %d, want %d", a.oldThresholdBytes, 16<<10)
	}
}
