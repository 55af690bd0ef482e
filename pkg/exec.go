package tilo

import (
	"fmt"
	"io"
	"math"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"
)

// maxCallDepth bounds recursion so a self-calling definition fails with an
// error instead of exhausting the stack.
const maxCallDepth = 10000

// HostFunc is a Go function callable from lowered code through an extern
// declaration.
type HostFunc func(args ...float64) float64

// Engine evaluates lowered functions, standing in for a JIT at the
// execute(function) -> value boundary. Functions without a body are extern
// declarations and resolve against the host table.
type Engine struct {
	hosts map[string]HostFunc
	depth int
}

// NewEngine returns an engine whose default host bindings write their
// output to out.
func NewEngine(out io.Writer) *Engine {
	return &Engine{hosts: hostDefaults(out)}
}

// Bind registers (or overrides) the host binding for an extern name.
func (e *Engine) Bind(name string, fn HostFunc) {
	e.hosts[name] = fn
}

// Execute runs f with the given arguments and returns its result.
func (e *Engine) Execute(f *ir.Func, args ...float64) (float64, error) {
	if len(args) != len(f.Params) {
		return 0, &ArgCountError{Callee: f.Name(), Want: len(f.Params), Got: len(args)}
	}

	if len(f.Blocks) == 0 {
		host, ok := e.hosts[f.Name()]
		if !ok {
			return 0, &UnknownExternError{Name: f.Name()}
		}

		return host(args...), nil
	}

	if e.depth >= maxCallDepth {
		return 0, fmt.Errorf("call depth limit exceeded in %s", f.Name())
	}
	e.depth++
	defer func() { e.depth-- }()

	frame := make(map[value.Value]float64, len(args))
	for i, param := range f.Params {
		frame[param] = args[i]
	}

	block := f.Blocks[0]
	for {
		for _, inst := range block.Insts {
			if err := e.step(frame, inst); err != nil {
				return 0, err
			}
		}

		switch term := block.Term.(type) {
		case *ir.TermRet:
			if term.X == nil {
				return 0, fmt.Errorf("function %s returns no value", f.Name())
			}
			return e.operand(frame, term.X)
		case *ir.TermBr:
			block = term.Target.(*ir.Block)
		default:
			return 0, fmt.Errorf("unsupported terminator %T in %s", block.Term, f.Name())
		}
	}
}

func (e *Engine) step(frame map[value.Value]float64, inst ir.Instruction) error {
	switch i := inst.(type) {
	case *ir.InstFAdd:
		x, y, err := e.operands(frame, i.X, i.Y)
		if err != nil {
			return err
		}
		frame[i] = x + y
	case *ir.InstFSub:
		x, y, err := e.operands(frame, i.X, i.Y)
		if err != nil {
			return err
		}
		frame[i] = x - y
	case *ir.InstFMul:
		x, y, err := e.operands(frame, i.X, i.Y)
		if err != nil {
			return err
		}
		frame[i] = x * y
	case *ir.InstFCmp:
		if i.Pred != enum.FPredULT {
			return fmt.Errorf("unsupported comparison predicate %d", i.Pred)
		}
		x, y, err := e.operands(frame, i.X, i.Y)
		if err != nil {
			return err
		}
		if x < y || math.IsNaN(x) || math.IsNaN(y) {
			frame[i] = 1
		} else {
			frame[i] = 0
		}
	case *ir.InstUIToFP:
		v, err := e.operand(frame, i.From)
		if err != nil {
			return err
		}
		frame[i] = v
	case *ir.InstCall:
		callee, ok := i.Callee.(*ir.Func)
		if !ok {
			return fmt.Errorf("indirect calls are not supported")
		}

		args := make([]float64, len(i.Args))
		for j, arg := range i.Args {
			v, err := e.operand(frame, arg)
			if err != nil {
				return err
			}
			args[j] = v
		}

		ret, err := e.Execute(callee, args...)
		if err != nil {
			return err
		}
		frame[i] = ret
	default:
		return fmt.Errorf("unsupported instruction %T", inst)
	}

	return nil
}

func (e *Engine) operand(frame map[value.Value]float64, v value.Value) (float64, error) {
	switch c := v.(type) {
	case *constant.Float:
		f, _ := c.X.Float64()
		return f, nil
	case *constant.Int:
		return float64(c.X.Int64()), nil
	}

	if val, ok := frame[v]; ok {
		return val, nil
	}

	return 0, fmt.Errorf("no value computed for operand %s", v.Ident())
}

func (e *Engine) operands(frame map[value.Value]float64, x, y value.Value) (float64, float64, error) {
	xv, err := e.operand(frame, x)
	if err != nil {
		return 0, 0, err
	}

	yv, err := e.operand(frame, y)
	if err != nil {
		return 0, 0, err
	}

	return xv, yv, nil
}
