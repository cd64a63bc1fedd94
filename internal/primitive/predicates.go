package primitive

import "github.com/cwbudde/scmcore/internal/runtime"

func predicate(name string, test func(v runtime.Value) bool) Registration {
	return Registration{Name: name, Min: 1, Max: 1, Effects: runtime.Effects(runtime.EffectPure), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
		return runtime.Bool(test(args[0])), nil
	}}
}

func predicatePrimitives() []Registration {
	return []Registration{
		predicate("null?", func(v runtime.Value) bool { return v == runtime.Null }),
		predicate("pair?", func(v runtime.Value) bool { _, ok := v.(*runtime.Pair); return ok }),
		predicate("symbol?", func(v runtime.Value) bool { _, ok := v.(*runtime.Symbol); return ok }),
		predicate("string?", func(v runtime.Value) bool { _, ok := v.(*runtime.String); return ok }),
		predicate("char?", func(v runtime.Value) bool { _, ok := v.(*runtime.Char); return ok }),
		predicate("vector?", func(v runtime.Value) bool { _, ok := v.(*runtime.Vector); return ok }),
		predicate("boolean?", func(v runtime.Value) bool { return v.Kind() == "boolean" }),
		predicate("procedure?", func(v runtime.Value) bool { _, ok := v.(runtime.Callable); return ok }),
		predicate("number?", func(v runtime.Value) bool { _, ok := v.(runtime.Numeric); return ok }),
		predicate("integer?", func(v runtime.Value) bool { _, ok := v.(*runtime.Integer); return ok }),
		predicate("real?", func(v runtime.Value) bool { _, ok := v.(runtime.Numeric); return ok }),
		predicate("error-object?", func(v runtime.Value) bool { _, ok := v.(*runtime.ErrorObject); return ok }),
		predicate("hashtable?", func(v runtime.Value) bool { _, ok := v.(*runtime.Hashtable); return ok }),
		{Name: "not", Min: 1, Max: 1, Effects: runtime.Effects(runtime.EffectPure), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			return runtime.Bool(!runtime.IsTruthy(args[0])), nil
		}},
		{Name: "eq?", Min: 2, Max: 2, Effects: runtime.Effects(runtime.EffectPure), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			return runtime.Bool(eqIdentical(args[0], args[1])), nil
		}},
		{Name: "eqv?", Min: 2, Max: 2, Effects: runtime.Effects(runtime.EffectPure), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			return runtime.Bool(eqIdentical(args[0], args[1]) || equalValue(args[0], args[1])), nil
		}},
		{Name: "equal?", Min: 2, Max: 2, Effects: runtime.Effects(runtime.EffectPure), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			return runtime.Bool(equalValue(args[0], args[1])), nil
		}},
		{Name: "error-object-message", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			e, ok := args[0].(*runtime.ErrorObject)
			if !ok {
				return runtime.NewString(""), nil
			}
			return runtime.NewString(e.Message), nil
		}},
		{Name: "error-object-irritants", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			e, ok := args[0].(*runtime.ErrorObject)
			if !ok {
				return runtime.Null, nil
			}
			return sliceToList(e.Irritants), nil
		}},
	}
}

// eqIdentical approximates `eq?`: pointer identity for heap values, value
// identity for the interned singletons (Unit, True/False, Null, Symbol).
func eqIdentical(a, b runtime.Value) bool {
	if a == b {
		return true
	}
	as, aok := a.(*runtime.Symbol)
	bs, bok := b.(*runtime.Symbol)
	if aok && bok {
		return as.ID == bs.ID
	}
	return false
}

func equalValue(a, b runtime.Value) bool {
	if eqIdentical(a, b) {
		return true
	}
	if ac, ok := a.(runtime.Comparable); ok {
		return ac.Equal(b)
	}
	ap, aok := a.(*runtime.Pair)
	bp, bok := b.(*runtime.Pair)
	if aok && bok {
		return equalValue(ap.Car, bp.Car) && equalValue(ap.Cdr, bp.Cdr)
	}
	av, aok2 := a.(*runtime.Vector)
	bv, bok2 := b.(*runtime.Vector)
	if aok2 && bok2 {
		if len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !equalValue(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}
