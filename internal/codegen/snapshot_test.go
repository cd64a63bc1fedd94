package codegen

import (
	"fmt"
	"strings"

	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/cwbudde/scmcore/pkg/ast"
)

// TestCompiledFragmentsMatchSnapshot locks in the compiled native closures'
// output across a sweep of inputs, the same way the teacher's fixture
// harness snapshots interpreter output per test category (see
// internal/interp/fixture_test.go in the teacher tree). Here the fixture
// set is every fragment shape Compile accepts rather than DWScript source
// files, since this module has no surface-syntax fixtures to run.
func TestCompiledFragmentsMatchSnapshot(t *testing.T) {
	p := pos()

	fragments := []struct {
		name   string
		params []string
		body   ast.Node
		inputs [][]interface{}
	}{
		{
			name:   "arithmetic",
			params: []string{"x", "y"},
			body: ast.NewApplication(p, ast.NewSymbol(p, "+"), []ast.Node{
				ast.NewSymbol(p, "x"),
				ast.NewApplication(p, ast.NewSymbol(p, "*"), []ast.Node{ast.NewSymbol(p, "y"), ast.NewLiteral(p, int64(2))}),
			}),
			inputs: [][]interface{}{{int64(3), int64(4)}, {int64(0), int64(0)}, {int64(-1), int64(5)}},
		},
		{
			name:   "abs-via-if",
			params: []string{"x"},
			body: ast.NewIf(p,
				ast.NewApplication(p, ast.NewSymbol(p, "<"), []ast.Node{ast.NewSymbol(p, "x"), ast.NewLiteral(p, int64(0))}),
				ast.NewApplication(p, ast.NewSymbol(p, "-"), []ast.Node{ast.NewLiteral(p, int64(0)), ast.NewSymbol(p, "x")}),
				ast.NewSymbol(p, "x"),
			),
			inputs: [][]interface{}{{int64(-5)}, {int64(5)}, {int64(0)}},
		},
	}

	for _, frag := range fragments {
		native, err := Compile(frag.params, frag.body)
		if err != nil {
			t.Fatalf("%s: Compile: %v", frag.name, err)
		}
		var lines []string
		for _, in := range frag.inputs {
			v, err := native(in)
			if err != nil {
				lines = append(lines, fmt.Sprintf("%v -> error: %v", in, err))
				continue
			}
			lines = append(lines, fmt.Sprintf("%v -> %v", in, v))
		}
		snaps.MatchSnapshot(t, strings.Join(lines, "\n"))
	}
}
