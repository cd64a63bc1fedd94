package primitive

import (
	scmerrors "github.com/cwbudde/scmcore/internal/errors"
	"github.com/cwbudde/scmcore/internal/runtime"
)

func controlPrimitives() []Registration {
	return []Registration{
		{Name: "apply", Min: 1, Max: -1, Fn: func(args []runtime.Value, ctx Context) (runtime.Value, error) {
			proc := args[0]
			if len(args) == 1 {
				return ctx.Call(proc, nil)
			}
			tail, err := listToSlice(args[len(args)-1])
			if err != nil {
				return nil, err
			}
			callArgs := append(append([]runtime.Value{}, args[1:len(args)-1]...), tail...)
			return ctx.Call(proc, callArgs)
		}},
		{Name: "call-with-values", Min: 2, Max: 2, Fn: func(args []runtime.Value, ctx Context) (runtime.Value, error) {
			produced, err := ctx.Call(args[0], nil)
			if err != nil {
				return nil, err
			}
			if bundle, ok := produced.(*runtime.ValuesBundle); ok {
				return ctx.Call(args[1], bundle.Vals)
			}
			return ctx.Call(args[1], []runtime.Value{produced})
		}},
		{Name: "force", Min: 1, Max: 1, Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			p, ok := args[0].(*runtime.Promise)
			if !ok {
				return args[0], nil
			}
			return p.Force()
		}},
		{Name: "error", Min: 1, Max: -1, Effects: runtime.Effects(runtime.EffectException), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			msg, ok := args[0].(*runtime.String)
			message := ""
			if ok {
				message = msg.String()
			}
			irritants := make([]interface{}, len(args)-1)
			for i, a := range args[1:] {
				irritants[i] = a
			}
			return nil, scmerrors.NewUser(message, irritants)
		}},
	}
}
