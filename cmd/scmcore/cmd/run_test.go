package cmd

import (
	"context"
	"testing"

	scmrt "github.com/cwbudde/scmcore/internal/runtime"
	"github.com/cwbudde/scmcore/pkg/scmcore"
)

func TestFactorialProgramEvaluatesToExpectedResult(t *testing.T) {
	rt, err := scmcore.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Shutdown(context.Background())

	v, err := rt.Eval(factorialProgram(20))
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	got, ok := v.(*scmrt.Integer)
	if !ok {
		t.Fatalf("got %T, want *runtime.Integer", v)
	}
	if got.V != 2432902008176640000 {
		t.Fatalf("got %d, want 2432902008176640000", got.V)
	}
}
