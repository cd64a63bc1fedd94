package evaluator

import (
	"github.com/cwbudde/scmcore/internal/runtime"
	"github.com/cwbudde/scmcore/pkg/ast"
)

// KontKind tags a Kont frame's variant, mirroring the minimum set spec.md
// §4.4 requires. The teacher's evaluator dispatches per-AST-node-kind
// through a family of visitor_*.go files (visitor_statements.go,
// visitor_expressions_*.go); this evaluator applies that same per-kind
// dispatch idiom to continuation frames instead of AST nodes.
type KontKind int

const (
	KHalt KontKind = iota
	KOperator
	KArgs
	KIf
	KBeginSeq
	KAssign
	KValuesCollect
	KDynWindThunk
	KHandler
)

// Kont is a single reified continuation frame, chained to the rest of the
// continuation via Next. The chain is immutable once built: each call/cc
// snapshot is just a *Kont pointer, safe to hold and reinvoke without
// risk of another evaluation mutating what it points to.
type Kont struct {
	Kind KontKind
	Next *Kont

	// Depth is the logical call depth at this frame, Next.Depth+1 (0 for
	// Halt). Tracking it here makes the tail-call-constancy invariant
	// (spec.md §8.2) an O(1) read instead of a chain walk: a tail call
	// reuses the caller's Kont verbatim, so Depth never grows across an
	// iterative loop's recursive calls.
	Depth int

	Env *runtime.Environment

	// KOperator / KArgs
	Args       []ast.Node
	Index      int
	Operator   runtime.Value
	Evaluated  []runtime.Value

	// KIf
	Conseq, Alt ast.Node

	// KBeginSeq
	Rest []ast.Node

	// KAssign
	Name string

	// KValuesCollect
	ValuesRest []ast.Node
	Collected  []runtime.Value

	// KDynWindThunk: remembers the windFrame active before entering the
	// protected thunk, so returning (normally or via a later continuation
	// invocation) runs After exactly once.
	Wind *windFrame

	// KHandler (guard)
	HandlerVar string
	Clauses    []ast.CondClause
	WindAtInstall *windFrame
}

func push(kind KontKind, next *Kont) *Kont {
	return &Kont{Kind: kind, Next: next, Depth: next.depth() + 1}
}

func (k *Kont) depth() int {
	if k == nil {
		return 0
	}
	return k.Depth
}

var haltKont = &Kont{Kind: KHalt}
