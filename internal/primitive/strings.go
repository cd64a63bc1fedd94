package primitive

import (
	"strconv"
	"strings"

	scmerrors "github.com/cwbudde/scmcore/internal/errors"
	"github.com/cwbudde/scmcore/internal/runtime"
)

func stringPrimitives() []Registration {
	return []Registration{
		{Name: "string-length", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			s, ok := args[0].(*runtime.String)
			if !ok {
				return nil, scmerrors.NewType("string-length: expected string")
			}
			return runtime.NewInteger(int64(s.Len())), nil
		}},
		{Name: "string-ref", Min: 2, Max: 2, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			s, ok := args[0].(*runtime.String)
			idx, iok := args[1].(*runtime.Integer)
			if !ok || !iok {
				return nil, scmerrors.NewType("string-ref: expected (string, integer)")
			}
			r, err := s.Ref(int(idx.V))
			if err != nil {
				return nil, scmerrors.NewArithmetic("%v", err)
			}
			return runtime.NewChar(r), nil
		}},
		{Name: "string-set!", Min: 3, Max: 3, Effects: runtime.Effects(runtime.EffectState), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			s, ok := args[0].(*runtime.String)
			idx, iok := args[1].(*runtime.Integer)
			c, cok := args[2].(*runtime.Char)
			if !ok || !iok || !cok {
				return nil, scmerrors.NewType("string-set!: expected (string, integer, char)")
			}
			if err := s.Set(int(idx.V), c.V); err != nil {
				return nil, scmerrors.NewArithmetic("%v", err)
			}
			return runtime.Unit, nil
		}},
		{Name: "string-append", Min: 0, Max: -1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			var sb strings.Builder
			for _, a := range args {
				s, ok := a.(*runtime.String)
				if !ok {
					return nil, scmerrors.NewType("string-append: expected string, got %s", a.Kind())
				}
				sb.WriteString(s.String())
			}
			return runtime.NewString(sb.String()), nil
		}},
		{Name: "substring", Min: 2, Max: 3, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			s, ok := args[0].(*runtime.String)
			if !ok {
				return nil, scmerrors.NewType("substring: expected string")
			}
			runes := []rune(s.String())
			start, ok := args[1].(*runtime.Integer)
			if !ok {
				return nil, scmerrors.NewType("substring: expected integer start")
			}
			end := int64(len(runes))
			if len(args) == 3 {
				e, ok := args[2].(*runtime.Integer)
				if !ok {
					return nil, scmerrors.NewType("substring: expected integer end")
				}
				end = e.V
			}
			if start.V < 0 || end > int64(len(runes)) || start.V > end {
				return nil, scmerrors.NewArithmetic(scmerrors.ErrMsgStringOutOfRange, start.V, len(runes))
			}
			return runtime.NewString(string(runes[start.V:end])), nil
		}},
		{Name: "string->symbol", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			s, ok := args[0].(*runtime.String)
			if !ok {
				return nil, scmerrors.NewType("string->symbol: expected string")
			}
			return runtime.Intern(s.String()), nil
		}},
		{Name: "symbol->string", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			s, ok := args[0].(*runtime.Symbol)
			if !ok {
				return nil, scmerrors.NewType("symbol->string: expected symbol")
			}
			return runtime.NewString(s.Name()), nil
		}},
		{Name: "string->number", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			s, ok := args[0].(*runtime.String)
			if !ok {
				return nil, scmerrors.NewType("string->number: expected string")
			}
			return parseNumber(s.String()), nil
		}},
		{Name: "number->string", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			n, ok := args[0].(runtime.Numeric)
			if !ok {
				return nil, scmerrors.NewType("number->string: expected number")
			}
			return runtime.NewString(n.String()), nil
		}},
		{Name: "string=?", Min: 2, Max: -1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			for i := 0; i+1 < len(args); i++ {
				a, aok := args[i].(*runtime.String)
				b, bok := args[i+1].(*runtime.String)
				if !aok || !bok || a.String() != b.String() {
					return runtime.False, nil
				}
			}
			return runtime.True, nil
		}},
	}
}

func parseNumber(s string) runtime.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return runtime.NewInteger(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return runtime.NewReal(f)
	}
	return runtime.False
}
