package primitive

import (
	scmerrors "github.com/cwbudde/scmcore/internal/errors"
	"github.com/cwbudde/scmcore/internal/runtime"
)

func vectorPrimitives() []Registration {
	return []Registration{
		{Name: "vector", Min: 0, Max: -1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			items := make([]runtime.Value, len(args))
			copy(items, args)
			return runtime.NewVector(items), nil
		}},
		{Name: "make-vector", Min: 1, Max: 2, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			n, ok := args[0].(*runtime.Integer)
			if !ok || n.V < 0 {
				return nil, scmerrors.NewType("make-vector: expected non-negative integer length")
			}
			fill := runtime.Value(runtime.Unit)
			if len(args) == 2 {
				fill = args[1]
			}
			items := make([]runtime.Value, n.V)
			for i := range items {
				items[i] = fill
			}
			return runtime.NewVector(items), nil
		}},
		{Name: "vector-length", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			v, ok := args[0].(*runtime.Vector)
			if !ok {
				return nil, scmerrors.NewType("vector-length: expected vector")
			}
			return runtime.NewInteger(v.Length()), nil
		}},
		{Name: "vector-ref", Min: 2, Max: 2, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			v, ok := args[0].(*runtime.Vector)
			idx, iok := args[1].(*runtime.Integer)
			if !ok || !iok {
				return nil, scmerrors.NewType("vector-ref: expected (vector, integer)")
			}
			val, err := v.GetIndex(idx.V)
			if err != nil {
				return nil, scmerrors.NewArithmetic("%v", err)
			}
			return val, nil
		}},
		{Name: "vector-set!", Min: 3, Max: 3, Effects: runtime.Effects(runtime.EffectState), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			v, ok := args[0].(*runtime.Vector)
			idx, iok := args[1].(*runtime.Integer)
			if !ok || !iok {
				return nil, scmerrors.NewType("vector-set!: expected (vector, integer, value)")
			}
			if err := v.SetIndex(idx.V, args[2]); err != nil {
				return nil, scmerrors.NewArithmetic("%v", err)
			}
			return runtime.Unit, nil
		}},
		{Name: "vector->list", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			v, ok := args[0].(*runtime.Vector)
			if !ok {
				return nil, scmerrors.NewType("vector->list: expected vector")
			}
			return sliceToList(v.Items), nil
		}},
		{Name: "list->vector", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			xs, err := listToSlice(args[0])
			if err != nil {
				return nil, err
			}
			return runtime.NewVector(xs), nil
		}},
		{Name: "vector-fill!", Min: 2, Max: 2, Effects: runtime.Effects(runtime.EffectState), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			v, ok := args[0].(*runtime.Vector)
			if !ok {
				return nil, scmerrors.NewType("vector-fill!: expected vector")
			}
			for i := range v.Items {
				v.Items[i] = args[1]
			}
			return runtime.Unit, nil
		}},
		{Name: "vector-map", Min: 2, Max: 2, Fn: func(args []runtime.Value, ctx Context) (runtime.Value, error) {
			v, ok := args[1].(*runtime.Vector)
			if !ok {
				return nil, scmerrors.NewType("vector-map: expected vector")
			}
			out := make([]runtime.Value, len(v.Items))
			for i, item := range v.Items {
				r, err := ctx.Call(args[0], []runtime.Value{item})
				if err != nil {
					return nil, err
				}
				out[i] = r
			}
			return runtime.NewVector(out), nil
		}},
		{Name: "vector-for-each", Min: 2, Max: 2, Effects: runtime.Effects(runtime.EffectIO), Fn: func(args []runtime.Value, ctx Context) (runtime.Value, error) {
			v, ok := args[1].(*runtime.Vector)
			if !ok {
				return nil, scmerrors.NewType("vector-for-each: expected vector")
			}
			for _, item := range v.Items {
				if _, err := ctx.Call(args[0], []runtime.Value{item}); err != nil {
					return nil, err
				}
			}
			return runtime.Unit, nil
		}},
	}
}
