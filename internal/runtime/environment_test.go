package runtime

import (
	"testing"

	"github.com/cwbudde/scmcore/internal/symbol"
)

func TestNewEnvironment(t *testing.T) {
	env := NewEnvironment()
	if env.Outer() != nil {
		t.Error("root environment should have no outer environment")
	}
	if env.Size() != 0 {
		t.Errorf("new environment should be empty, got size %d", env.Size())
	}
}

func TestDefineAndLookup(t *testing.T) {
	env := NewEnvironment()
	x := symbol.Intern("x")

	if _, err := env.Define(x, NewInteger(42)); err != nil {
		t.Fatalf("Define: %v", err)
	}

	v, ok := env.Lookup(x)
	if !ok {
		t.Fatal("variable x not found after Define")
	}
	if i, ok := v.(*Integer); !ok || i.V != 42 {
		t.Fatalf("Lookup(x) = %v, want 42", v)
	}
}

func TestLookupWalksOuter(t *testing.T) {
	root := NewEnvironment()
	y := symbol.Intern("y")
	root.Define(y, NewInteger(7))

	child := NewEnclosedEnvironment(root)
	v, ok := child.Lookup(y)
	if !ok || v.(*Integer).V != 7 {
		t.Fatalf("child environment did not see outer binding y")
	}
}

func TestSetUnboundFails(t *testing.T) {
	env := NewEnvironment()
	z := symbol.Intern("z")
	if err := env.Set(z, NewInteger(1)); err == nil {
		t.Fatal("Set on unbound variable should fail")
	}
}

func TestSetMutatesAndBumpsGeneration(t *testing.T) {
	env := NewEnvironment()
	n := symbol.Intern("n")
	env.Define(n, NewInteger(1))

	g0 := env.Generation()
	if err := env.Set(n, NewInteger(2)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	g1 := env.Generation()
	if g1 <= g0 {
		t.Fatalf("generation did not increase: g0=%d g1=%d", g0, g1)
	}

	v, _ := env.Lookup(n)
	if v.(*Integer).V != 2 {
		t.Fatalf("Set did not update the binding: got %v", v)
	}
}

func TestGenerationMonotonicitySequence(t *testing.T) {
	env := NewEnvironment()
	n := symbol.Intern("n")
	env.Define(n, NewInteger(0))

	var last uint64
	for i := 1; i <= 50; i++ {
		if err := env.Set(n, NewInteger(int64(i))); err != nil {
			t.Fatalf("Set: %v", err)
		}
		g := env.Generation()
		if g <= last {
			t.Fatalf("generation not strictly increasing at step %d: %d <= %d", i, g, last)
		}
		last = g
	}
}

func TestSealedEnvironmentRejectsDefine(t *testing.T) {
	env := NewEnvironment()
	env.Seal()
	if _, err := env.Define(symbol.Intern("x"), Unit); err == nil {
		t.Fatal("Define on a sealed environment should fail")
	}
}

func TestCopyOnWriteOnCapturedRedefine(t *testing.T) {
	env := NewEnvironment()
	x := symbol.Intern("x")
	env.Define(x, NewInteger(1))

	// Simulate a closure capturing env.
	env.MarkCaptured()

	forked, err := env.Define(x, NewInteger(2))
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if forked == env {
		t.Fatal("re-defining a captured binding should fork a new Environment")
	}

	oldVal, _ := env.Lookup(x)
	newVal, _ := forked.Lookup(x)
	if oldVal.(*Integer).V != 1 {
		t.Fatalf("captured snapshot should still see the old value, got %v", oldVal)
	}
	if newVal.(*Integer).V != 2 {
		t.Fatalf("forked environment should see the new value, got %v", newVal)
	}
}

func TestExtendCreatesChildFrame(t *testing.T) {
	root := NewEnvironment()
	a, b := symbol.Intern("a"), symbol.Intern("b")
	child := root.Extend([]symbol.ID{a, b}, []Value{NewInteger(1), NewInteger(2)})

	if child.Outer() != root {
		t.Fatal("Extend should set outer to the receiver")
	}
	v, ok := child.Lookup(a)
	if !ok || v.(*Integer).V != 1 {
		t.Fatalf("Extend did not bind a correctly: %v", v)
	}
}

func TestStatsTracksHitsAndMisses(t *testing.T) {
	env := NewEnvironment()
	x := symbol.Intern("x")
	env.Define(x, NewInteger(1))

	env.Lookup(x) // first lookup after Define misses and populates the cache; Define itself never fills it
	env.Lookup(x)
	env.Lookup(x)

	stats := env.Stats()
	if stats.CacheHits == 0 {
		t.Fatalf("expected at least one cache hit after repeated lookups, got %+v", stats)
	}
	if len(stats.HotVariables) == 0 {
		t.Fatal("expected at least one hot variable reported")
	}
	if stats.HotVariables[0].ID != x {
		t.Fatalf("expected x to be the hottest (only) cached variable, got %+v", stats.HotVariables)
	}
}

func TestStatsHotVariablesSortedByAccessCount(t *testing.T) {
	env := NewEnvironment()
	hot, cold := symbol.Intern("hot"), symbol.Intern("cold")
	env.Define(hot, NewInteger(1))
	env.Define(cold, NewInteger(2))

	for i := 0; i < 5; i++ {
		env.Lookup(hot)
	}
	env.Lookup(cold)

	stats := env.Stats()
	if len(stats.HotVariables) != 2 {
		t.Fatalf("expected both variables cached, got %+v", stats.HotVariables)
	}
	if stats.HotVariables[0].ID != hot {
		t.Fatalf("expected hot to sort first, got %+v", stats.HotVariables)
	}
	if stats.HotVariables[0].AccessCount <= stats.HotVariables[1].AccessCount {
		t.Fatalf("expected hot's access count to exceed cold's: %+v", stats.HotVariables)
	}
}

func TestCacheInvalidatesOnGenerationBump(t *testing.T) {
	env := NewEnvironment()
	n := symbol.Intern("n")
	env.Define(n, NewInteger(1))
	env.Lookup(n) // populate the cache

	if err := env.Set(n, NewInteger(2)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok := env.Lookup(n)
	if !ok || v.(*Integer).V != 2 {
		t.Fatalf("Lookup after Set should see the new value via a fresh map read, got %v", v)
	}
}
