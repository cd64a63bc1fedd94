// Package primitive implements the primitive-registration contract: a
// built-in is a name, a min/max arity, an effect set, and a Go function of
// shape (args, Context) -> (Value, error). Context is the richer,
// user-facing counterpart of the opaque ctx interface{} that
// runtime.HostFunc threads through — it exposes the evaluator (for
// primitives like `apply` and `call-with-values` that need to invoke
// Scheme code), the calling environment, and the sub-task spawning hook
// spec.md §6 requires every primitive's execution context to carry.
//
// The split-by-category registration style (registry.go aggregating
// per-file Register* functions) mirrors the teacher's
// internal/bytecode/vm_builtins*.go layout.
package primitive

import (
	"github.com/cwbudde/scmcore/internal/runtime"
	"github.com/cwbudde/scmcore/pkg/ast"
)

// Context is the ctx argument every primitive receives, upcast from the
// interface{} runtime.HostFunc declares.
type Context interface {
	// Eval evaluates node in env, for primitives that need full evaluation
	// semantics (not just Call) — currently unused by the stock table but
	// kept for primitives macro-expansion may add later.
	Eval(node ast.Node, env *runtime.Environment) (runtime.Value, error)
	// Call applies a callable Value to args, running it to completion.
	Call(proc runtime.Value, args []runtime.Value) (runtime.Value, error)
	// Env returns the environment the primitive was invoked from.
	Env() *runtime.Environment
	// Spawn runs thunk as a concurrently-scheduled sub-task and returns a
	// Value representing its pending result (a Future, by convention).
	Spawn(thunk func() (runtime.Value, error)) runtime.Value
}

// asContext upcasts the opaque ctx interface{} runtime.HostFunc carries.
// Primitives call this once at the top of their Fn body rather than
// repeating the type assertion everywhere.
func asContext(ctx interface{}) Context {
	c, ok := ctx.(Context)
	if !ok {
		return nil
	}
	return c
}
