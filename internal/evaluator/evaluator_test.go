package evaluator

import (
	"testing"

	"github.com/cwbudde/scmcore/internal/runtime"
	"github.com/cwbudde/scmcore/pkg/ast"
)

func newTestEvaluator() (*Evaluator, *runtime.Environment) {
	gen := runtime.NewGenerationManager()
	arena := runtime.NewArena(0)
	ev := New(gen, arena, nil, nil, nil)
	root := runtime.NewEnvironment()
	root.Define(internSym("call/cc"), CallCC)
	root.Define(internSym("call-with-current-continuation"), CallCC)
	return ev, root
}

func pos() ast.Position { return ast.Position{Line: 1, Column: 1} }

func TestEvalLiteral(t *testing.T) {
	ev, env := newTestEvaluator()
	v, err := ev.Eval(ast.NewLiteral(pos(), int64(42)), env)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if i, ok := v.(*runtime.Integer); !ok || i.V != 42 {
		t.Fatalf("got %v, want 42", v)
	}
}

func TestEvalIf(t *testing.T) {
	ev, env := newTestEvaluator()
	n := ast.NewIf(pos(), ast.NewLiteral(pos(), true), ast.NewLiteral(pos(), int64(1)), ast.NewLiteral(pos(), int64(2)))
	v, err := ev.Eval(n, env)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.(*runtime.Integer).V != 1 {
		t.Fatalf("got %v, want 1", v)
	}
}

func TestEvalDefineAndLookup(t *testing.T) {
	ev, env := newTestEvaluator()
	def := ast.NewDefine(pos(), "x", ast.NewLiteral(pos(), int64(7)))
	if _, err := ev.Eval(def, env); err != nil {
		t.Fatalf("define: %v", err)
	}
	v, err := ev.Eval(ast.NewSymbol(pos(), "x"), env)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if v.(*runtime.Integer).V != 7 {
		t.Fatalf("got %v, want 7", v)
	}
}

// factorial(n, acc) via a tail-recursive named lambda bound through define,
// the scenario spec.md §8 end-to-end scenario (a) exercises.
func buildFactorial() (*ast.Lambda, ast.Node) {
	p := pos()
	nSym := ast.NewSymbol(p, "n")
	accSym := ast.NewSymbol(p, "acc")
	test := ast.NewApplication(p, ast.NewSymbol(p, "="), []ast.Node{nSym, ast.NewLiteral(p, int64(0))})
	recur := ast.NewApplication(p, ast.NewSymbol(p, "fact"), []ast.Node{
		ast.NewApplication(p, ast.NewSymbol(p, "-"), []ast.Node{nSym, ast.NewLiteral(p, int64(1))}),
		ast.NewApplication(p, ast.NewSymbol(p, "*"), []ast.Node{nSym, accSym}),
	})
	body := ast.NewIf(p, test, accSym, recur)
	lam := ast.NewLambda(p, "fact", []string{"n", "acc"}, "", []ast.Node{body})
	return lam, lam
}

func installArithmetic(env *runtime.Environment) {
	def := func(name string, fn func(a, b int64) int64) {
		env.Define(internSym(name), &runtime.PrimitiveProcedure{
			Name: name, Min: 2, Max: 2,
			Fn: func(args []runtime.Value, _ interface{}) (runtime.Value, error) {
				a := args[0].(*runtime.Integer).V
				b := args[1].(*runtime.Integer).V
				return runtime.NewInteger(fn(a, b)), nil
			},
		})
	}
	def("+", func(a, b int64) int64 { return a + b })
	def("-", func(a, b int64) int64 { return a - b })
	def("*", func(a, b int64) int64 { return a * b })
	env.Define(internSym("="), &runtime.PrimitiveProcedure{
		Name: "=", Min: 2, Max: 2,
		Fn: func(args []runtime.Value, _ interface{}) (runtime.Value, error) {
			return runtime.Bool(args[0].(*runtime.Integer).V == args[1].(*runtime.Integer).V), nil
		},
	})
}

func TestTailCallConstancy(t *testing.T) {
	ev, env := newTestEvaluator()
	installArithmetic(env)
	lam, _ := buildFactorial()
	proc := runtime.NewProcedure("fact", lam.Params, lam.Rest, lam, env, runtime.Effects(runtime.EffectPure))
	env.Define(internSym("fact"), proc)

	for _, n := range []int64{10, 1000, 100000} {
		v, err := ev.Call(proc, []runtime.Value{runtime.NewInteger(n), runtime.NewInteger(1)})
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		_ = v
	}
	if ev.MaxObservedDepth.Load() > 64 {
		t.Fatalf("tail-recursive loop grew Kont depth to %d, want O(1)", ev.MaxObservedDepth.Load())
	}
}

func TestFactorial20(t *testing.T) {
	ev, env := newTestEvaluator()
	installArithmetic(env)
	lam, _ := buildFactorial()
	proc := runtime.NewProcedure("fact", lam.Params, lam.Rest, lam, env, runtime.Effects(runtime.EffectPure))
	env.Define(internSym("fact"), proc)

	v, err := ev.Call(proc, []runtime.Value{runtime.NewInteger(20), runtime.NewInteger(1)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	want := int64(2432902008176640000)
	if got := v.(*runtime.Integer).V; got != want {
		t.Fatalf("20! = %d, want %d", got, want)
	}
}

// TestCallCCRoundTrip verifies spec.md §8.10: (call/cc (lambda (k) (k v))) = v.
func TestCallCCRoundTrip(t *testing.T) {
	ev, env := newTestEvaluator()
	p := pos()
	kSym := ast.NewSymbol(p, "k")
	lam := ast.NewLambda(p, "", []string{"k"}, "", []ast.Node{
		ast.NewApplication(p, kSym, []ast.Node{ast.NewLiteral(p, int64(99))}),
	})
	call := ast.NewApplication(p, ast.NewSymbol(p, "call/cc"), []ast.Node{lam})

	v, err := ev.Eval(call, env)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.(*runtime.Integer).V != 99 {
		t.Fatalf("got %v, want 99", v)
	}
}

// TestGuardCatchesRaise exercises raise/guard matching.
func TestGuardCatchesRaise(t *testing.T) {
	ev, env := newTestEvaluator()
	p := pos()
	guard := ast.NewGuard(p, "e", []ast.CondClause{
		{Test: nil, Exprs: []ast.Node{ast.NewLiteral(p, int64(-1))}},
	}, []ast.Node{
		ast.NewRaise(p, ast.NewLiteral(p, "boom"), false),
	})
	v, err := ev.Eval(guard, env)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.(*runtime.Integer).V != -1 {
		t.Fatalf("got %v, want -1", v)
	}
}

// TestDynamicWindOrdering exercises spec.md §8 scenario (b): before/after
// thunks run exactly once across a normal (non-continuation-mediated) entry
// and exit.
func TestDynamicWindOrdering(t *testing.T) {
	ev, env := newTestEvaluator()
	var trace []string
	mkThunk := func(label string) runtime.Value {
		return &runtime.PrimitiveProcedure{Name: label, Max: 0, Fn: func([]runtime.Value, interface{}) (runtime.Value, error) {
			trace = append(trace, label)
			return runtime.Unit, nil
		}}
	}
	env.Define(internSym("B1"), mkThunk("B1"))
	env.Define(internSym("A1"), mkThunk("A1"))
	p := pos()
	dw := ast.NewDynamicWind(p, ast.NewSymbol(p, "B1"), ast.NewLiteral(p, int64(5)), ast.NewSymbol(p, "A1"))
	if _, err := ev.Eval(dw, env); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if len(trace) != 2 || trace[0] != "B1" || trace[1] != "A1" {
		t.Fatalf("trace = %v, want [B1 A1]", trace)
	}
}
