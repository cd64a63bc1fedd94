package primitive

import (
	scmerrors "github.com/cwbudde/scmcore/internal/errors"
	"github.com/cwbudde/scmcore/internal/runtime"
)

// numeric returns each arg as a runtime.Numeric (for AsInt/AsFloat), and
// whether any argument was a *runtime.Real (which forces the whole
// operation to flonum arithmetic, matching R7RS numeric tower contagion).
func numeric(name string, args []runtime.Value) ([]runtime.Numeric, bool, error) {
	ns := make([]runtime.Numeric, len(args))
	anyFloat := false
	for i, a := range args {
		n, ok := a.(runtime.Numeric)
		if !ok {
			return nil, false, scmerrors.NewType("%s: expected number, got %s", name, a.Kind())
		}
		if _, isInt := n.(*runtime.Integer); !isInt {
			anyFloat = true
		}
		ns[i] = n
	}
	return ns, anyFloat, nil
}

func numericPrimitives() []Registration {
	arith := func(name string, identity int64, intOp func(a, b int64) int64, floatOp func(a, b float64) float64) Registration {
		return Registration{Name: name, Min: 0, Max: -1, Effects: runtime.Effects(runtime.EffectPure), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			ns, anyFloat, err := numeric(name, args)
			if err != nil {
				return nil, err
			}
			if len(ns) == 0 {
				return runtime.NewInteger(identity), nil
			}
			if anyFloat {
				f, _ := ns[0].AsFloat()
				for _, n := range ns[1:] {
					g, _ := n.AsFloat()
					f = floatOp(f, g)
				}
				return runtime.NewReal(f), nil
			}
			i, _ := ns[0].AsInt()
			for _, n := range ns[1:] {
				j, _ := n.AsInt()
				i = intOp(i, j)
			}
			return runtime.NewInteger(i), nil
		}}
	}

	sub := Registration{Name: "-", Min: 1, Max: -1, Effects: runtime.Effects(runtime.EffectPure), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
		ns, anyFloat, err := numeric("-", args)
		if err != nil {
			return nil, err
		}
		if len(ns) == 1 {
			if anyFloat {
				f, _ := ns[0].AsFloat()
				return runtime.NewReal(-f), nil
			}
			i, _ := ns[0].AsInt()
			return runtime.NewInteger(-i), nil
		}
		if anyFloat {
			f, _ := ns[0].AsFloat()
			for _, n := range ns[1:] {
				g, _ := n.AsFloat()
				f -= g
			}
			return runtime.NewReal(f), nil
		}
		i, _ := ns[0].AsInt()
		for _, n := range ns[1:] {
			j, _ := n.AsInt()
			i -= j
		}
		return runtime.NewInteger(i), nil
	}}

	div := Registration{Name: "/", Min: 1, Max: -1, Effects: runtime.Effects(runtime.EffectPure), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
		ns, _, err := numeric("/", args)
		if err != nil {
			return nil, err
		}
		vals := make([]float64, len(ns))
		for i, n := range ns {
			vals[i], _ = n.AsFloat()
		}
		if len(vals) == 1 {
			if vals[0] == 0 {
				return nil, scmerrors.NewArithmetic("/: division by zero")
			}
			return runtime.NewReal(1 / vals[0]), nil
		}
		f := vals[0]
		for _, g := range vals[1:] {
			if g == 0 {
				return nil, scmerrors.NewArithmetic("/: division by zero")
			}
			f /= g
		}
		return runtime.NewReal(f), nil
	}}

	compare := func(name string, ok func(cmp int) bool) Registration {
		return Registration{Name: name, Min: 1, Max: -1, Effects: runtime.Effects(runtime.EffectPure), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			for i := 0; i+1 < len(args); i++ {
				a, aok := args[i].(runtime.Numeric)
				b, bok := args[i+1].(runtime.Numeric)
				if !aok || !bok {
					return nil, scmerrors.NewType("%s: expected number", name)
				}
				orderable, okc := a.(runtime.Orderable)
				if !okc {
					return nil, scmerrors.NewType("%s: not orderable", name)
				}
				cmp, err := orderable.Compare(b)
				if err != nil {
					return nil, scmerrors.NewType("%s: %v", name, err)
				}
				if !ok(cmp) {
					return runtime.False, nil
				}
			}
			return runtime.True, nil
		}}
	}

	quotientLike := func(name string, op func(a, b int64) (int64, error)) Registration {
		return Registration{Name: name, Min: 2, Max: 2, Effects: runtime.Effects(runtime.EffectPure), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			a, aok := args[0].(*runtime.Integer)
			b, bok := args[1].(*runtime.Integer)
			if !aok || !bok {
				return nil, scmerrors.NewType("%s: expected integer arguments", name)
			}
			if b.V == 0 {
				return nil, scmerrors.NewArithmetic("%s: division by zero", name)
			}
			v, err := op(a.V, b.V)
			if err != nil {
				return nil, err
			}
			return runtime.NewInteger(v), nil
		}}
	}

	return []Registration{
		arith("+", 0, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b }),
		sub,
		arith("*", 1, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }),
		div,
		compare("=", func(c int) bool { return c == 0 }),
		compare("<", func(c int) bool { return c < 0 }),
		compare(">", func(c int) bool { return c > 0 }),
		compare("<=", func(c int) bool { return c <= 0 }),
		compare(">=", func(c int) bool { return c >= 0 }),
		quotientLike("quotient", func(a, b int64) (int64, error) { return a / b, nil }),
		quotientLike("remainder", func(a, b int64) (int64, error) { return a % b, nil }),
		quotientLike("modulo", func(a, b int64) (int64, error) {
			m := a % b
			if m != 0 && (m < 0) != (b < 0) {
				m += b
			}
			return m, nil
		}),
		{Name: "abs", Min: 1, Max: 1, Effects: runtime.Effects(runtime.EffectPure), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			switch n := args[0].(type) {
			case *runtime.Integer:
				if n.V < 0 {
					return runtime.NewInteger(-n.V), nil
				}
				return n, nil
			case *runtime.Real:
				if n.V < 0 {
					return runtime.NewReal(-n.V), nil
				}
				return n, nil
			default:
				return nil, scmerrors.NewType("abs: expected number, got %s", args[0].Kind())
			}
		}},
		{Name: "zero?", Min: 1, Max: 1, Effects: runtime.Effects(runtime.EffectPure), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			n, ok := args[0].(runtime.Numeric)
			if !ok {
				return nil, scmerrors.NewType("zero?: expected number")
			}
			f, _ := n.AsFloat()
			return runtime.Bool(f == 0), nil
		}},
	}
}
