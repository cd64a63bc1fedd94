package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/scmcore/pkg/ast"
	"github.com/cwbudde/scmcore/pkg/scmcore"
)

// runCmd builds the tail-recursive factorial program from spec.md §8
// scenario (a) directly as AST (this module takes already-expanded AST,
// not source text) and evaluates it through the embedding API, printing
// the result and the resulting scheduler/arena stats.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate a built-in tail-recursive factorial demo program",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := scmcore.New()
		if err != nil {
			return fmt.Errorf("new runtime: %w", err)
		}
		defer rt.Shutdown(context.Background())

		prog := factorialProgram(20)
		v, err := rt.Eval(prog)
		if err != nil {
			return fmt.Errorf("eval: %w", err)
		}
		fmt.Printf("(f 20 1) = %v\n", v)

		if verbose {
			stats := rt.Stats()
			fmt.Printf("scheduler: %+v\n", stats.Scheduler)
			fmt.Printf("arena:     %+v\n", stats.Arena)
			fmt.Printf("gc:        %+v\n", stats.GC)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func pos() ast.Position { return ast.Position{Line: 1, Column: 1} }

// factorialProgram builds:
//
//	(define (f n a) (if (= n 0) a (f (- n 1) (* n a))))
//	(f n 1)
func factorialProgram(n int64) *ast.Program {
	body := ast.NewIf(pos(),
		ast.NewApplication(pos(), ast.NewSymbol(pos(), "="), []ast.Node{
			ast.NewSymbol(pos(), "n"), ast.NewLiteral(pos(), int64(0)),
		}),
		ast.NewSymbol(pos(), "a"),
		ast.NewApplication(pos(), ast.NewSymbol(pos(), "f"), []ast.Node{
			ast.NewApplication(pos(), ast.NewSymbol(pos(), "-"), []ast.Node{
				ast.NewSymbol(pos(), "n"), ast.NewLiteral(pos(), int64(1)),
			}),
			ast.NewApplication(pos(), ast.NewSymbol(pos(), "*"), []ast.Node{
				ast.NewSymbol(pos(), "n"), ast.NewSymbol(pos(), "a"),
			}),
		}),
	)
	lambda := ast.NewLambda(pos(), "f", []string{"n", "a"}, "", []ast.Node{body})
	define := ast.NewDefine(pos(), "f", lambda)
	call := ast.NewApplication(pos(), ast.NewSymbol(pos(), "f"), []ast.Node{
		ast.NewLiteral(pos(), n), ast.NewLiteral(pos(), int64(1)),
	})
	return &ast.Program{Forms: []ast.Node{define, call}}
}
