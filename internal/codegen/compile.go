package codegen

import (
	"fmt"

	"github.com/cwbudde/scmcore/pkg/ast"
)

// CompileError explains why a fragment could not be compiled; per spec.md
// §4.7, a compilation failure falls back to the next lower tier and is
// never fatal, so callers (internal/jit) only need the message for
// diagnostics, not to abort anything.
type CompileError struct{ Reason string }

func (e *CompileError) Error() string { return "codegen: " + e.Reason }

// compiledExpr is a node of the tiny closure tree Compile builds: it takes
// a flat argument vector (already positionally resolved to the lambda's
// parameters) and produces a value, without re-walking the AST or chasing
// environment lookups on every call.
type compiledExpr func(args []interface{}) (interface{}, error)

// Compile attempts to specialize lam's body into a NativeFunc. It only
// handles a restricted fragment shape — literals, parameter references,
// `if`, and arithmetic/comparison calls to the stock numeric primitives —
// returning a non-nil error on anything else (nested defines, call/cc,
// dynamic-wind, calls to unknown or user-defined procedures, ...). This is
// deliberately narrow: spec.md's non-goal list excludes a production-grade
// optimizing compiler, and the tier manager's deoptimization path exists
// precisely to fall back cleanly when a fragment turns out not to be
// compilable or its assumptions stop holding.
func Compile(params []string, body ast.Node) (NativeFunc, error) {
	index := make(map[string]int, len(params))
	for i, p := range params {
		index[p] = i
	}
	expr, err := compileNode(body, index)
	if err != nil {
		return nil, err
	}
	return func(args []interface{}) (interface{}, error) {
		return expr(args)
	}, nil
}

func compileNode(node ast.Node, index map[string]int) (compiledExpr, error) {
	switch n := node.(type) {
	case *ast.Literal:
		v := n.Datum
		return func([]interface{}) (interface{}, error) { return v, nil }, nil

	case *ast.Symbol:
		i, ok := index[n.Name]
		if !ok {
			return nil, &CompileError{Reason: fmt.Sprintf("free variable %q not specializable", n.Name)}
		}
		return func(args []interface{}) (interface{}, error) {
			if i >= len(args) {
				return nil, &CompileError{Reason: "arity mismatch at native entry"}
			}
			return args[i], nil
		}, nil

	case *ast.If:
		test, err := compileNode(n.Test, index)
		if err != nil {
			return nil, err
		}
		conseq, err := compileNode(n.Conseq, index)
		if err != nil {
			return nil, err
		}
		var alt compiledExpr
		if n.Alt != nil {
			alt, err = compileNode(n.Alt, index)
			if err != nil {
				return nil, err
			}
		}
		return func(args []interface{}) (interface{}, error) {
			tv, err := test(args)
			if err != nil {
				return nil, err
			}
			if isTruthy(tv) {
				return conseq(args)
			}
			if alt == nil {
				return nil, nil
			}
			return alt(args)
		}, nil

	case *ast.Application:
		return compileApplication(n, index)

	default:
		return nil, &CompileError{Reason: fmt.Sprintf("unsupported node kind %T", node)}
	}
}

func isTruthy(v interface{}) bool {
	b, ok := v.(bool)
	return !ok || b
}

var arithOps = map[string]func(a, b int64) int64{
	"+": func(a, b int64) int64 { return a + b },
	"-": func(a, b int64) int64 { return a - b },
	"*": func(a, b int64) int64 { return a * b },
}

var compareOps = map[string]func(a, b int64) bool{
	"=":  func(a, b int64) bool { return a == b },
	"<":  func(a, b int64) bool { return a < b },
	">":  func(a, b int64) bool { return a > b },
	"<=": func(a, b int64) bool { return a <= b },
	">=": func(a, b int64) bool { return a >= b },
}

func compileApplication(app *ast.Application, index map[string]int) (compiledExpr, error) {
	sym, ok := app.Operator.(*ast.Symbol)
	if !ok {
		return nil, &CompileError{Reason: "operator is not a specializable primitive reference"}
	}
	if len(app.Args) < 2 {
		return nil, &CompileError{Reason: "arity below native fast-path minimum"}
	}
	operands := make([]compiledExpr, len(app.Args))
	for i, a := range app.Args {
		e, err := compileNode(a, index)
		if err != nil {
			return nil, err
		}
		operands[i] = e
	}
	evalInts := func(args []interface{}) ([]int64, error) {
		out := make([]int64, len(operands))
		for i, op := range operands {
			v, err := op(args)
			if err != nil {
				return nil, err
			}
			i64, ok := v.(int64)
			if !ok {
				return nil, &CompileError{Reason: "native fast-path requires int64 operands"}
			}
			out[i] = i64
		}
		return out, nil
	}
	if fold, ok := arithOps[sym.Name]; ok {
		return func(args []interface{}) (interface{}, error) {
			ints, err := evalInts(args)
			if err != nil {
				return nil, err
			}
			acc := ints[0]
			for _, v := range ints[1:] {
				acc = fold(acc, v)
			}
			return acc, nil
		}, nil
	}
	if cmp, ok := compareOps[sym.Name]; ok {
		return func(args []interface{}) (interface{}, error) {
			ints, err := evalInts(args)
			if err != nil {
				return nil, err
			}
			for i := 0; i+1 < len(ints); i++ {
				if !cmp(ints[i], ints[i+1]) {
					return false, nil
				}
			}
			return true, nil
		}, nil
	}
	return nil, &CompileError{Reason: fmt.Sprintf("call to %q is not specializable", sym.Name)}
}
