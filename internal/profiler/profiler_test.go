package profiler

import (
	"testing"
	"time"
)

func TestPromotesAcrossThresholds(t *testing.T) {
	th := Thresholds{N1: 5, T1: time.Hour, N2: 10, T2: time.Nanosecond, N3: 20, T3: time.Nanosecond, MinBenefit: 0}
	d := New(th)
	const fp = uint64(42)

	for i := 0; i < 4; i++ {
		d.Observe(fp, time.Millisecond, false)
	}
	if tier, _ := d.Decide(fp, time.Microsecond); tier != TierInterpret {
		t.Fatalf("tier = %v, want interpret before N1", tier)
	}

	d.Observe(fp, time.Millisecond, false)
	tier, promote := d.Decide(fp, time.Microsecond)
	if tier != TierBytecode || !promote {
		t.Fatalf("tier = %v promote=%v, want bytecode/true after N1", tier, promote)
	}
	d.Commit(fp, tier)

	for i := 0; i < 10; i++ {
		d.Observe(fp, time.Millisecond, false)
	}
	tier, promote = d.Decide(fp, time.Microsecond)
	if tier != TierBasicNative || !promote {
		t.Fatalf("tier = %v promote=%v, want basic/true after N2", tier, promote)
	}
}

func TestFailureCountTracked(t *testing.T) {
	d := New(DefaultThresholds())
	d.Observe(1, time.Millisecond, true)
	d.Observe(1, time.Millisecond, false)
	if got := d.Record(1).FailureCount(); got != 1 {
		t.Fatalf("FailureCount = %d, want 1", got)
	}
	if got := d.Record(1).Count(); got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}
}

func TestDeoptimizeBansAfterLimit(t *testing.T) {
	d := New(DefaultThresholds())
	d.Commit(7, TierOptimizedNative)
	for i := 0; i < 3; i++ {
		d.Deoptimize(7, 3)
	}
	if !d.Record(7).Banned() {
		t.Fatal("expected fragment banned after repeated deoptimization")
	}
}

func TestTypeConfidence(t *testing.T) {
	d := New(DefaultThresholds())
	d.ObserveTypes(9, []string{"integer"})
	d.ObserveTypes(9, []string{"integer"})
	d.ObserveTypes(9, []string{"real"})
	typ, conf := d.Record(9).TypeConfidence(0)
	if typ != "integer" || conf < 0.6 {
		t.Fatalf("got %s/%f, want integer with >=0.6 confidence", typ, conf)
	}
}
