package primitive

import (
	scmerrors "github.com/cwbudde/scmcore/internal/errors"
	"github.com/cwbudde/scmcore/internal/runtime"
)

func listToSlice(v runtime.Value) ([]runtime.Value, error) {
	var out []runtime.Value
	for {
		if v == runtime.Null {
			return out, nil
		}
		p, ok := v.(*runtime.Pair)
		if !ok {
			return nil, scmerrors.NewType("expected a proper list")
		}
		out = append(out, p.Car)
		v = p.Cdr
	}
}

func sliceToList(vs []runtime.Value) runtime.Value {
	result := runtime.Null
	for i := len(vs) - 1; i >= 0; i-- {
		result = runtime.NewPair(vs[i], result)
	}
	return result
}

func pairPrimitives() []Registration {
	return []Registration{
		{Name: "cons", Min: 2, Max: 2, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			return runtime.NewPair(args[0], args[1]), nil
		}},
		{Name: "car", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			p, ok := args[0].(*runtime.Pair)
			if !ok {
				return nil, scmerrors.NewType("car: "+scmerrors.ErrMsgTypeMismatch, "pair", args[0].Kind())
			}
			return p.Car, nil
		}},
		{Name: "cdr", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			p, ok := args[0].(*runtime.Pair)
			if !ok {
				return nil, scmerrors.NewType("cdr: "+scmerrors.ErrMsgTypeMismatch, "pair", args[0].Kind())
			}
			return p.Cdr, nil
		}},
		{Name: "set-car!", Min: 2, Max: 2, Effects: runtime.Effects(runtime.EffectState), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			p, ok := args[0].(*runtime.Pair)
			if !ok {
				return nil, scmerrors.NewType("set-car!: expected pair")
			}
			p.Car = args[1]
			return runtime.Unit, nil
		}},
		{Name: "set-cdr!", Min: 2, Max: 2, Effects: runtime.Effects(runtime.EffectState), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			p, ok := args[0].(*runtime.Pair)
			if !ok {
				return nil, scmerrors.NewType("set-cdr!: expected pair")
			}
			p.Cdr = args[1]
			return runtime.Unit, nil
		}},
		{Name: "list", Min: 0, Max: -1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			return sliceToList(args), nil
		}},
		{Name: "length", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			xs, err := listToSlice(args[0])
			if err != nil {
				return nil, err
			}
			return runtime.NewInteger(int64(len(xs))), nil
		}},
		{Name: "append", Min: 0, Max: -1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			var all []runtime.Value
			for _, a := range args {
				xs, err := listToSlice(a)
				if err != nil {
					return nil, err
				}
				all = append(all, xs...)
			}
			return sliceToList(all), nil
		}},
		{Name: "reverse", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			xs, err := listToSlice(args[0])
			if err != nil {
				return nil, err
			}
			rev := make([]runtime.Value, len(xs))
			for i, v := range xs {
				rev[len(xs)-1-i] = v
			}
			return sliceToList(rev), nil
		}},
		{Name: "list-ref", Min: 2, Max: 2, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			xs, err := listToSlice(args[0])
			if err != nil {
				return nil, err
			}
			idx, ok := args[1].(*runtime.Integer)
			if !ok {
				return nil, scmerrors.NewType("list-ref: expected integer index")
			}
			if idx.V < 0 || int(idx.V) >= len(xs) {
				return nil, scmerrors.NewArithmetic(scmerrors.ErrMsgIndexOutOfRange, idx.V, len(xs))
			}
			return xs[idx.V], nil
		}},
		{Name: "map", Min: 2, Max: -1, Fn: func(args []runtime.Value, ctx Context) (runtime.Value, error) {
			proc := args[0]
			lists := make([][]runtime.Value, len(args)-1)
			minLen := -1
			for i, l := range args[1:] {
				xs, err := listToSlice(l)
				if err != nil {
					return nil, err
				}
				lists[i] = xs
				if minLen == -1 || len(xs) < minLen {
					minLen = len(xs)
				}
			}
			out := make([]runtime.Value, minLen)
			for i := 0; i < minLen; i++ {
				callArgs := make([]runtime.Value, len(lists))
				for j, l := range lists {
					callArgs[j] = l[i]
				}
				v, err := ctx.Call(proc, callArgs)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return sliceToList(out), nil
		}},
		{Name: "for-each", Min: 2, Max: -1, Effects: runtime.Effects(runtime.EffectIO), Fn: func(args []runtime.Value, ctx Context) (runtime.Value, error) {
			proc := args[0]
			lists := make([][]runtime.Value, len(args)-1)
			minLen := -1
			for i, l := range args[1:] {
				xs, err := listToSlice(l)
				if err != nil {
					return nil, err
				}
				lists[i] = xs
				if minLen == -1 || len(xs) < minLen {
					minLen = len(xs)
				}
			}
			for i := 0; i < minLen; i++ {
				callArgs := make([]runtime.Value, len(lists))
				for j, l := range lists {
					callArgs[j] = l[i]
				}
				if _, err := ctx.Call(proc, callArgs); err != nil {
					return nil, err
				}
			}
			return runtime.Unit, nil
		}},
		{Name: "filter", Min: 2, Max: 2, Fn: func(args []runtime.Value, ctx Context) (runtime.Value, error) {
			xs, err := listToSlice(args[1])
			if err != nil {
				return nil, err
			}
			var out []runtime.Value
			for _, v := range xs {
				keep, err := ctx.Call(args[0], []runtime.Value{v})
				if err != nil {
					return nil, err
				}
				if runtime.IsTruthy(keep) {
					out = append(out, v)
				}
			}
			return sliceToList(out), nil
		}},
		{Name: "fold-left", Min: 3, Max: 3, Fn: func(args []runtime.Value, ctx Context) (runtime.Value, error) {
			xs, err := listToSlice(args[2])
			if err != nil {
				return nil, err
			}
			acc := args[1]
			for _, v := range xs {
				acc, err = ctx.Call(args[0], []runtime.Value{acc, v})
				if err != nil {
					return nil, err
				}
			}
			return acc, nil
		}},
	}
}
