package primitive

import (
	"fmt"
	"io"
	"os"

	scmerrors "github.com/cwbudde/scmcore/internal/errors"
	"github.com/cwbudde/scmcore/internal/runtime"
)

// NewStdoutPort wraps os.Stdout as a Scheme output port, for pkg/scmcore's
// Runtime to install as the default (current-output-port).
func NewStdoutPort() *runtime.Port {
	return &runtime.Port{Name: "stdout", Output: true, Write: os.Stdout.Write}
}

func portWriter(args []runtime.Value, idx int, fallback io.Writer) (io.Writer, error) {
	if len(args) <= idx {
		return fallback, nil
	}
	p, ok := args[idx].(*runtime.Port)
	if !ok {
		return nil, scmerrors.NewType("expected a port")
	}
	if p.Closed {
		return nil, scmerrors.NewIO(scmerrors.ErrMsgPortClosed, p.Name)
	}
	return writerFunc(p.Write), nil
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func ioPrimitives() []Registration {
	return []Registration{
		{Name: "display", Min: 1, Max: 2, Effects: runtime.Effects(runtime.EffectIO), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			w, err := portWriter(args, 1, os.Stdout)
			if err != nil {
				return nil, err
			}
			fmt.Fprint(w, displayText(args[0]))
			return runtime.Unit, nil
		}},
		{Name: "write", Min: 1, Max: 2, Effects: runtime.Effects(runtime.EffectIO), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			w, err := portWriter(args, 1, os.Stdout)
			if err != nil {
				return nil, err
			}
			fmt.Fprint(w, writeText(args[0]))
			return runtime.Unit, nil
		}},
		{Name: "newline", Min: 0, Max: 1, Effects: runtime.Effects(runtime.EffectIO), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			w, err := portWriter(args, 0, os.Stdout)
			if err != nil {
				return nil, err
			}
			fmt.Fprintln(w)
			return runtime.Unit, nil
		}},
		{Name: "close-port", Min: 1, Max: 1, Effects: runtime.Effects(runtime.EffectIO), Fn: func(args []runtime.Value, _ Context) (runtime.Value, error) {
			p, ok := args[0].(*runtime.Port)
			if !ok {
				return nil, scmerrors.NewType("close-port: expected a port")
			}
			p.Closed = true
			return runtime.Unit, nil
		}},
	}
}

func displayText(v runtime.Value) string {
	if s, ok := v.(*runtime.String); ok {
		return s.String()
	}
	return v.String()
}

func writeText(v runtime.Value) string {
	if s, ok := v.(*runtime.String); ok {
		return fmt.Sprintf("%q", s.String())
	}
	return v.String()
}
