package primitive

import "github.com/cwbudde/scmcore/internal/runtime"

// Fn is a primitive's Go implementation, with Context already upcast.
type Fn func(args []runtime.Value, ctx Context) (runtime.Value, error)

// Registration describes one built-in procedure: its name, arity bounds
// (Max == -1 for variadic), declared effects, and implementation.
type Registration struct {
	Name    string
	Min     int
	Max     int
	Effects runtime.EffectSet
	Fn      Fn
}

// adapt wraps a Registration's Fn as a runtime.HostFunc, upcasting the
// opaque ctx parameter once per call rather than in every primitive body.
func (r Registration) adapt() runtime.HostFunc {
	fn := r.Fn
	return func(args []runtime.Value, ctx interface{}) (runtime.Value, error) {
		return fn(args, asContext(ctx))
	}
}

// Install defines every registration in env as a runtime.PrimitiveProcedure.
func Install(env *runtime.Environment, regs []Registration) {
	for _, r := range regs {
		env.Define(runtime.Intern(r.Name).ID, &runtime.PrimitiveProcedure{
			Name:    r.Name,
			Min:     r.Min,
			Max:     r.Max,
			Effects: r.Effects,
			Fn:      r.adapt(),
		})
	}
}

// Bootstrap returns the full stock primitive table: numeric, pair/list,
// predicate, string, vector, control, and I/O builtins. pkg/scmcore's
// Runtime.New calls Install(root, Bootstrap()) before sealing the root
// environment.
func Bootstrap() []Registration {
	var regs []Registration
	regs = append(regs, numericPrimitives()...)
	regs = append(regs, pairPrimitives()...)
	regs = append(regs, predicatePrimitives()...)
	regs = append(regs, stringPrimitives()...)
	regs = append(regs, vectorPrimitives()...)
	regs = append(regs, controlPrimitives()...)
	regs = append(regs, ioPrimitives()...)
	return regs
}
