package fingerprint

import (
	"testing"

	"github.com/cwbudde/scmcore/internal/runtime"
	"github.com/cwbudde/scmcore/internal/symbol"
	"github.com/cwbudde/scmcore/pkg/ast"
)

func lambda(body ast.Node) *ast.Lambda {
	p := ast.Position{Line: 1, Column: 1}
	return ast.NewLambda(p, "", []string{"x"}, "", []ast.Node{body})
}

func TestComputeStableAcrossReparse(t *testing.T) {
	p := ast.Position{Line: 1, Column: 1}
	a := lambda(ast.NewApplication(p, ast.NewSymbol(p, "+"), []ast.Node{ast.NewSymbol(p, "x"), ast.NewLiteral(p, int64(1))}))
	b := lambda(ast.NewApplication(p, ast.NewSymbol(p, "+"), []ast.Node{ast.NewSymbol(p, "x"), ast.NewLiteral(p, int64(1))}))
	if Compute(a, nil) != Compute(b, nil) {
		t.Fatal("structurally identical nodes with distinct ids must fingerprint the same")
	}
}

func TestComputeDiffersOnLiteral(t *testing.T) {
	p := ast.Position{Line: 1, Column: 1}
	a := lambda(ast.NewLiteral(p, int64(1)))
	b := lambda(ast.NewLiteral(p, int64(2)))
	if Compute(a, nil) == Compute(b, nil) {
		t.Fatal("different literals must not collide")
	}
}

func TestComputeDiffersOnFreeVariableBinding(t *testing.T) {
	p := ast.Position{Line: 1, Column: 1}
	node := ast.NewApplication(p, ast.NewSymbol(p, "+"), []ast.Node{ast.NewSymbol(p, "x"), ast.NewSymbol(p, "y")})

	env1 := runtime.NewEnvironment()
	env1.Define(symbol.Intern("y"), runtime.NewInteger(1))
	env2 := runtime.NewEnvironment()
	env2.Define(symbol.Intern("y"), runtime.NewInteger(1))

	if Compute(node, env1) == Compute(node, env2) {
		t.Fatal("same textual free variable bound in two distinct frames must fingerprint differently")
	}
}
