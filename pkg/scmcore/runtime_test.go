package scmcore

import (
	"context"
	"testing"
	"time"

	scmrt "github.com/cwbudde/scmcore/internal/runtime"
	"github.com/cwbudde/scmcore/pkg/ast"
)

func p() ast.Position { return ast.Position{Line: 1, Column: 1} }

func TestEvalArithmeticProgram(t *testing.T) {
	rt, err := New(WithMaxWorkerThreads(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Shutdown(context.Background())

	// (+ 1 2)
	prog := &ast.Program{Forms: []ast.Node{
		ast.NewApplication(p(), ast.NewSymbol(p(), "+"), []ast.Node{
			ast.NewLiteral(p(), int64(1)), ast.NewLiteral(p(), int64(2)),
		}),
	}}
	v, err := rt.Eval(prog)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v.(*scmrt.Integer).V != 3 {
		t.Fatalf("got %v, want 3", v)
	}
}

func TestCallProcedureDefinedByProgram(t *testing.T) {
	rt, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Shutdown(context.Background())

	// (define (double x) (* x 2))
	lambda := ast.NewLambda(p(), "double", []string{"x"}, "", []ast.Node{
		ast.NewApplication(p(), ast.NewSymbol(p(), "*"), []ast.Node{
			ast.NewSymbol(p(), "x"), ast.NewLiteral(p(), int64(2)),
		}),
	})
	prog := &ast.Program{Forms: []ast.Node{ast.NewDefine(p(), "double", lambda)}}
	if _, err := rt.Eval(prog); err != nil {
		t.Fatalf("Eval define: %v", err)
	}
	proc, ok := rt.Root().Lookup(scmrt.Intern("double").ID)
	if !ok {
		t.Fatal("expected double to be bound")
	}
	v, err := rt.Call(proc, []scmrt.Value{scmrt.NewInteger(21)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v.(*scmrt.Integer).V != 42 {
		t.Fatalf("got %v, want 42", v)
	}
}

func TestPoolSpawnAndAwait(t *testing.T) {
	rt, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Shutdown(context.Background())

	f := rt.Pool().Spawn(func(ctx context.Context) (scmrt.Value, error) {
		return scmrt.NewInteger(5), nil
	})
	v, err := f.Await(context.Background())
	if err != nil || v.(*scmrt.Integer).V != 5 {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestShutdownStopsPressureWatcher(t *testing.T) {
	rt, err := New(WithGCMode(GCAutomatic))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rt.Shutdown(ctx)
}
