package jit

import (
	"testing"
	"time"

	"github.com/cwbudde/scmcore/internal/profiler"
	"github.com/cwbudde/scmcore/internal/runtime"
	"github.com/cwbudde/scmcore/pkg/ast"
)

func pos() ast.Position { return ast.Position{Line: 1, Column: 1} }

func TestPromotesAndServesNativeEntry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds = profiler.Thresholds{N1: 3, T1: time.Hour, MinBenefit: 0}
	gen := runtime.NewGenerationManager()
	m := New(cfg, gen, nil)

	const fp = uint64(123)
	body := ast.NewApplication(pos(), ast.NewSymbol(pos(), "+"), []ast.Node{
		ast.NewSymbol(pos(), "x"), ast.NewLiteral(pos(), int64(1)),
	})
	m.RegisterFragment(fp, []string{"x"}, body)

	for i := 0; i < 3; i++ {
		m.Observe(fp, time.Millisecond, false)
	}

	native, ok := m.NativeEntry(fp)
	if !ok {
		t.Fatal("expected a compiled native entry after crossing N1")
	}
	v, err := native([]runtime.Value{runtime.NewInteger(41)})
	if err != nil {
		t.Fatalf("native entry: %v", err)
	}
	if v.(*runtime.Integer).V != 42 {
		t.Fatalf("got %v, want 42", v)
	}
}

func TestDeoptimizeInvalidatesCache(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds = profiler.Thresholds{N1: 1, T1: time.Hour, MinBenefit: 0}
	gen := runtime.NewGenerationManager()
	m := New(cfg, gen, nil)
	const fp = uint64(7)
	body := ast.NewLiteral(pos(), int64(99))
	m.RegisterFragment(fp, nil, body)
	m.Observe(fp, time.Millisecond, false)

	if _, ok := m.NativeEntry(fp); !ok {
		t.Fatal("expected entry to be compiled")
	}
	m.Deoptimize(fp, "test-forced")
	if _, ok := m.NativeEntry(fp); ok {
		t.Fatal("expected entry to be evicted after deopt")
	}
}

func TestNoFragmentRegisteredNeverCompiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds = profiler.Thresholds{N1: 1, T1: time.Hour, MinBenefit: 0}
	m := New(cfg, runtime.NewGenerationManager(), nil)
	m.Observe(999, time.Millisecond, false)
	if _, ok := m.NativeEntry(999); ok {
		t.Fatal("expected no native entry without a registered fragment")
	}
}
