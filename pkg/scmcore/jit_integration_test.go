package scmcore

import (
	"context"
	"testing"

	"github.com/cwbudde/scmcore/internal/profiler"
	scmrt "github.com/cwbudde/scmcore/internal/runtime"
	"github.com/cwbudde/scmcore/pkg/ast"
)

// defineAbs defines (define (f x) (if (< x 0) (- 0 x) x)) and returns the
// proc value once looked up from root.
func defineAbs(t *testing.T, rt *Runtime) scmrt.Value {
	t.Helper()
	lambda := ast.NewLambda(pos(), "f", []string{"x"}, "", []ast.Node{
		ast.NewIf(pos(),
			ast.NewApplication(pos(), ast.NewSymbol(pos(), "<"), []ast.Node{
				ast.NewSymbol(pos(), "x"), ast.NewLiteral(pos(), int64(0)),
			}),
			ast.NewApplication(pos(), ast.NewSymbol(pos(), "-"), []ast.Node{
				ast.NewLiteral(pos(), int64(0)), ast.NewSymbol(pos(), "x"),
			}),
			ast.NewSymbol(pos(), "x"),
		),
	})
	prog := &ast.Program{Forms: []ast.Node{ast.NewDefine(pos(), "f", lambda)}}
	if _, err := rt.Eval(prog); err != nil {
		t.Fatalf("define: %v", err)
	}
	proc, ok := rt.Root().Lookup(scmrt.Intern("f").ID)
	if !ok {
		t.Fatal("expected f to be bound")
	}
	return proc
}

func pos() ast.Position { return ast.Position{Line: 1, Column: 1} }

// TestInterpretedAndCompiledTiersAgree exercises spec.md §8 invariant 8:
// whatever tier a fragment ends up executing at, the observable result is
// identical to the freshly-interpreted baseline.
func TestInterpretedAndCompiledTiersAgree(t *testing.T) {
	rt, err := New(WithHotspotThreshold(5, 0))
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Shutdown(context.Background())
	proc := defineAbs(t, rt)

	inputs := []int64{-7, 0, 3, -1000, 42}
	for i := 0; i < 200; i++ {
		for _, in := range inputs {
			v, err := rt.Call(proc, []scmrt.Value{scmrt.NewInteger(in)})
			if err != nil {
				t.Fatalf("call(%d): %v", in, err)
			}
			want := in
			if want < 0 {
				want = -want
			}
			got, ok := v.(*scmrt.Integer)
			if !ok || got.V != want {
				t.Fatalf("call(%d) = %v, want %d (iteration %d)", in, v, want, i)
			}
		}
	}
}

// TestJITTiersToBasicNativeUnderSustainedLoad is spec.md §8 scenario (f):
// after enough executions the tier manager must have promoted the
// fragment to at least tier 2 (basic native), and its output must still
// match the interpreted baseline.
func TestJITTiersToBasicNativeUnderSustainedLoad(t *testing.T) {
	rt, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Shutdown(context.Background())
	proc := defineAbs(t, rt)

	const iterations = 10_000
	for i := int64(0); i < iterations; i++ {
		v, err := rt.Call(proc, []scmrt.Value{scmrt.NewInteger(-i)})
		if err != nil {
			t.Fatalf("call(%d): %v", i, err)
		}
		if got := v.(*scmrt.Integer).V; got != i {
			t.Fatalf("call(%d) = %d, want %d", -i, got, i)
		}
	}

	fp := proc.(*scmrt.Procedure).Fingerprint
	tier := rt.jitMgr.Record(fp).Tier()
	if tier < profiler.TierBasicNative {
		t.Fatalf("after %d executions, tier = %v, want >= %v", iterations, tier, profiler.TierBasicNative)
	}
}

// TestDeoptimizeIsIdempotent is spec.md §8 invariant 9: deoptimizing an
// already-deoptimized (or never-compiled) fragment is safe and leaves
// subsequent calls correct.
func TestDeoptimizeIsIdempotent(t *testing.T) {
	rt, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Shutdown(context.Background())
	proc := defineAbs(t, rt)
	fp := proc.(*scmrt.Procedure).Fingerprint

	for i := 0; i < 5; i++ {
		rt.jitMgr.Deoptimize(fp, "test-forced")
	}

	v, err := rt.Call(proc, []scmrt.Value{scmrt.NewInteger(-9)})
	if err != nil {
		t.Fatalf("call after repeated deopt: %v", err)
	}
	if v.(*scmrt.Integer).V != 9 {
		t.Fatalf("got %v, want 9", v)
	}
}
