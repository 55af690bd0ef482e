package tilo

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// anonName is the backend name given to the anonymous wrapper function
// that hosts a bare top-level expression.
const anonName = "__anon_expr"

// CodeGen lowers AST nodes into LLVM IR. It owns the backend module, the
// global function table that persists across the session, and the active
// scope table, which holds exactly the parameters of the function being
// lowered.
type CodeGen struct {
	mod      *ir.Module
	pipeline *Pipeline

	fns    map[string]*ir.Func
	values map[string]value.Value
	block  *ir.Block
}

func NewCodeGen() *CodeGen {
	g := &CodeGen{}
	g.Reset()

	return g
}

// Reset opens a fresh compilation unit: a new module, function table, and
// pass pipeline. The engine resolves calls through the module, so nothing
// lowered or executed before the reset survives it.
func (g *CodeGen) Reset() {
	g.mod = ir.NewModule()
	g.pipeline = NewPipeline()
	g.fns = make(map[string]*ir.Func)
	g.values = make(map[string]value.Value)
	g.block = nil
}

func (g *CodeGen) Module() *ir.Module {
	return g.mod
}

// Lookup returns the backend function declared under name, if any.
func (g *CodeGen) Lookup(name string) (*ir.Func, bool) {
	f, ok := g.fns[name]
	return f, ok
}

// EmitPrototype declares a backend function for proto, with a double
// parameter per declared name and a double return. If the name is already
// declared the existing function is reused, so an extern can be completed
// by a later definition; re-declaring with a different parameter count is
// rejected.
func (g *CodeGen) EmitPrototype(proto *Prototype) (*ir.Func, error) {
	if f, ok := g.fns[proto.Name]; ok {
		if len(f.Params) != len(proto.Params) {
			return nil, &RedeclaredFunctionError{
				Name: proto.Name,
				Want: len(f.Params),
				Got:  len(proto.Params),
			}
		}

		return f, nil
	}

	name := proto.Name
	if name == "" {
		name = anonName
	}

	params := make([]*ir.Param, len(proto.Params))
	for i, param := range proto.Params {
		params[i] = ir.NewParam(param, types.Double)
	}

	f := g.mod.NewFunc(name, types.Double, params...)
	if proto.Name != "" {
		g.fns[proto.Name] = f
	}

	return f, nil
}

// EmitFunction lowers fn into a finished backend function: it resolves or
// creates the declaration, lowers the body in a fresh scope, verifies the
// result, and runs it through the pass pipeline. A nil body is an extern
// declaration and stops after the prototype.
//
// When lowering the body fails, nothing is left behind: a function created
// by this call is erased from the module, and a pre-existing extern
// declaration keeps only its signature.
func (g *CodeGen) EmitFunction(fn *Function) (*ir.Func, error) {
	_, existed := g.fns[fn.Proto.Name]

	f, err := g.EmitPrototype(fn.Proto)
	if err != nil {
		return nil, err
	}

	if fn.Body == nil {
		return f, nil
	}

	if len(f.Blocks) != 0 {
		return nil, &RedefinedFunctionError{Name: fn.Proto.Name}
	}

	g.block = f.NewBlock("entry")
	g.values = make(map[string]value.Value, len(f.Params))
	for _, param := range f.Params {
		g.values[param.Name()] = param
	}

	ret, err := g.emitExpr(fn.Body)
	if err != nil {
		g.discard(f, existed)
		return nil, err
	}

	g.block.NewRet(ret)

	if err := verifyFunc(f); err != nil {
		g.discard(f, existed)
		return nil, err
	}

	g.pipeline.Run(f)

	return f, nil
}

// RemoveFunction erases f from the backend module and the function table.
// The driver uses this to drop anonymous wrappers after execution.
func (g *CodeGen) RemoveFunction(f *ir.Func) {
	for i, mf := range g.mod.Funcs {
		if mf == f {
			g.mod.Funcs = append(g.mod.Funcs[:i], g.mod.Funcs[i+1:]...)
			break
		}
	}

	for name, mf := range g.fns {
		if mf == f {
			delete(g.fns, name)
		}
	}
}

func (g *CodeGen) discard(f *ir.Func, keepDecl bool) {
	if keepDecl {
		f.Blocks = nil
		return
	}

	g.RemoveFunction(f)
}

func (g *CodeGen) emitExpr(expr Expr) (value.Value, error) {
	switch e := expr.(type) {
	case *NumberExpr:
		return constant.NewFloat(types.Double, e.Val), nil
	case *VariableExpr:
		v, ok := g.values[e.Name]
		if !ok {
			return nil, &UnknownVariableError{Name: e.Name}
		}

		return v, nil
	case *BinaryExpr:
		return g.emitBinary(e)
	case *CallExpr:
		return g.emitCall(e)
	default:
		return nil, fmt.Errorf("cannot lower expression of type %T", expr)
	}
}

func (g *CodeGen) emitBinary(e *BinaryExpr) (value.Value, error) {
	lhs, err := g.emitExpr(e.LHS)
	if err != nil {
		return nil, err
	}

	rhs, err := g.emitExpr(e.RHS)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "+":
		return g.block.NewFAdd(lhs, rhs), nil
	case "-":
		return g.block.NewFSub(lhs, rhs), nil
	case "*":
		return g.block.NewFMul(lhs, rhs), nil
	case "<":
		// The comparison is boolean-typed; widen it back to the language's
		// one numeric type (true -> 1.0, false -> 0.0).
		cmp := g.block.NewFCmp(enum.FPredULT, lhs, rhs)
		return g.block.NewUIToFP(cmp, types.Double), nil
	default:
		return nil, &InvalidOperatorError{Op: e.Op}
	}
}

func (g *CodeGen) emitCall(e *CallExpr) (value.Value, error) {
	callee, ok := g.fns[e.Callee]
	if !ok {
		return nil, &UnknownFunctionError{Name: e.Callee}
	}

	if len(callee.Params) != len(e.Args) {
		return nil, &ArgCountError{
			Callee: e.Callee,
			Want:   len(callee.Params),
			Got:    len(e.Args),
		}
	}

	args := make([]value.Value, len(e.Args))
	for i, arg := range e.Args {
		v, err := g.emitExpr(arg)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	return g.block.NewCall(callee, args...), nil
}

// verifyFunc checks the structural consistency of a lowered function:
// every block must end in a terminator, and every operand must be
// available at its use (a constant, a parameter, or an instruction emitted
// earlier in the function).
func verifyFunc(f *ir.Func) error {
	if len(f.Blocks) == 0 {
		return fmt.Errorf("function %s has no body to verify", f.Name())
	}

	seen := make(map[value.Value]bool, len(f.Params))
	for _, param := range f.Params {
		seen[param] = true
	}

	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			for _, op := range instOperands(inst) {
				if err := checkOperand(f, seen, op); err != nil {
					return err
				}
			}

			if v, ok := inst.(value.Value); ok {
				seen[v] = true
			}
		}

		if block.Term == nil {
			return fmt.Errorf("block %s in %s has no terminator", block.Name(), f.Name())
		}

		if ret, ok := block.Term.(*ir.TermRet); ok && ret.X != nil {
			if err := checkOperand(f, seen, ret.X); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkOperand(f *ir.Func, seen map[value.Value]bool, op value.Value) error {
	if _, ok := op.(constant.Constant); ok {
		// Covers literals and function references.
		return nil
	}

	if seen[op] {
		return nil
	}

	return fmt.Errorf("operand %s used before definition in %s", op.Ident(), f.Name())
}

func instOperands(inst ir.Instruction) []value.Value {
	switch i := inst.(type) {
	case *ir.InstFAdd:
		return []value.Value{i.X, i.Y}
	case *ir.InstFSub:
		return []value.Value{i.X, i.Y}
	case *ir.InstFMul:
		return []value.Value{i.X, i.Y}
	case *ir.InstFCmp:
		return []value.Value{i.X, i.Y}
	case *ir.InstUIToFP:
		return []value.Value{i.From}
	case *ir.InstCall:
		ops := make([]value.Value, 0, len(i.Args)+1)
		ops = append(ops, i.Callee)
		return append(ops, i.Args...)
	default:
		return nil
	}
}
