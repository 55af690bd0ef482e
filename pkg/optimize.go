package tilo

import (
	"fmt"
	"math"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// A Pass rewrites one function in place and reports whether it changed
// anything.
type Pass func(f *ir.Func) bool

// Pipeline is the per-function optimization sequence run after
// verification. The order is fixed: peephole instruction simplification,
// operand reassociation, redundant-computation elimination, control-flow
// simplification.
type Pipeline struct {
	passes []Pass
}

func NewPipeline() *Pipeline {
	return &Pipeline{
		passes: []Pass{
			simplifyInsts,
			reassociate,
			eliminateRedundant,
			simplifyCFG,
		},
	}
}

func (p *Pipeline) Run(f *ir.Func) {
	for _, pass := range p.passes {
		pass(f)
	}
}

// simplifyInsts folds instructions whose operands are constants and
// applies the algebraic identities x+0, x-0, x*1 and 1*x.
func simplifyInsts(f *ir.Func) bool {
	changed := false
	repl := make(map[value.Value]value.Value)

	for _, block := range f.Blocks {
		kept := block.Insts[:0]
		for _, inst := range block.Insts {
			rewriteOperands(repl, inst)

			if v := foldInst(inst); v != nil {
				repl[inst.(value.Value)] = v
				changed = true
				continue
			}

			kept = append(kept, inst)
		}

		block.Insts = kept
		rewriteTerm(repl, block.Term)
	}

	return changed
}

func foldInst(inst ir.Instruction) value.Value {
	switch i := inst.(type) {
	case *ir.InstFAdd:
		if x, ok := floatConst(i.X); ok {
			if y, ok := floatConst(i.Y); ok {
				return constant.NewFloat(types.Double, x+y)
			}
		}
		if y, ok := floatConst(i.Y); ok && y == 0 {
			return i.X
		}
	case *ir.InstFSub:
		if x, ok := floatConst(i.X); ok {
			if y, ok := floatConst(i.Y); ok {
				return constant.NewFloat(types.Double, x-y)
			}
		}
		if y, ok := floatConst(i.Y); ok && y == 0 {
			return i.X
		}
	case *ir.InstFMul:
		if x, ok := floatConst(i.X); ok {
			if y, ok := floatConst(i.Y); ok {
				return constant.NewFloat(types.Double, x*y)
			}
			if x == 1 {
				return i.Y
			}
		}
		if y, ok := floatConst(i.Y); ok && y == 1 {
			return i.X
		}
	case *ir.InstFCmp:
		if i.Pred != enum.FPredULT {
			return nil
		}
		if x, ok := floatConst(i.X); ok {
			if y, ok := floatConst(i.Y); ok {
				if x < y || math.IsNaN(x) || math.IsNaN(y) {
					return constant.NewInt(types.I1, 1)
				}
				return constant.NewInt(types.I1, 0)
			}
		}
	case *ir.InstUIToFP:
		if c, ok := i.From.(*constant.Int); ok {
			return constant.NewFloat(types.Double, float64(c.X.Int64()))
		}
	}

	return nil
}

// reassociate canonicalizes commutative operations so constant operands
// come second, exposing more folding to later runs of the pipeline.
func reassociate(f *ir.Func) bool {
	changed := false

	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			switch i := inst.(type) {
			case *ir.InstFAdd:
				if swapConstLeft(&i.X, &i.Y) {
					changed = true
				}
			case *ir.InstFMul:
				if swapConstLeft(&i.X, &i.Y) {
					changed = true
				}
			}
		}
	}

	return changed
}

func swapConstLeft(x, y *value.Value) bool {
	if _, ok := (*x).(*constant.Float); !ok {
		return false
	}
	if _, ok := (*y).(*constant.Float); ok {
		return false
	}

	*x, *y = *y, *x
	return true
}

// eliminateRedundant removes recomputations of an expression already
// available in the same block (local value numbering). Calls are kept:
// callees may have side effects.
func eliminateRedundant(f *ir.Func) bool {
	changed := false

	for _, block := range f.Blocks {
		avail := make(map[string]value.Value)
		repl := make(map[value.Value]value.Value)

		kept := block.Insts[:0]
		for _, inst := range block.Insts {
			rewriteOperands(repl, inst)

			key, ok := instKey(inst)
			if !ok {
				kept = append(kept, inst)
				continue
			}

			if prev, ok := avail[key]; ok {
				repl[inst.(value.Value)] = prev
				changed = true
				continue
			}

			avail[key] = inst.(value.Value)
			kept = append(kept, inst)
		}

		block.Insts = kept
		rewriteTerm(repl, block.Term)
	}

	return changed
}

func instKey(inst ir.Instruction) (string, bool) {
	switch i := inst.(type) {
	case *ir.InstFAdd:
		return commutativeKey("fadd", i.X, i.Y), true
	case *ir.InstFSub:
		return fmt.Sprintf("fsub %s %s", operandID(i.X), operandID(i.Y)), true
	case *ir.InstFMul:
		return commutativeKey("fmul", i.X, i.Y), true
	case *ir.InstFCmp:
		return fmt.Sprintf("fcmp %d %s %s", i.Pred, operandID(i.X), operandID(i.Y)), true
	case *ir.InstUIToFP:
		return fmt.Sprintf("uitofp %s", operandID(i.From)), true
	default:
		return "", false
	}
}

func commutativeKey(op string, x, y value.Value) string {
	a, b := operandID(x), operandID(y)
	if a > b {
		a, b = b, a
	}

	return op + " " + a + " " + b
}

// operandID gives a stable identity for hashing operands. Locals may not
// have names or IDs assigned yet, so non-constants key on pointer identity.
func operandID(v value.Value) string {
	if c, ok := v.(constant.Constant); ok {
		return c.Ident()
	}

	return fmt.Sprintf("%p", v)
}

// simplifyCFG drops blocks unreachable from the entry block.
func simplifyCFG(f *ir.Func) bool {
	if len(f.Blocks) <= 1 {
		return false
	}

	reachable := map[*ir.Block]bool{f.Blocks[0]: true}
	work := []*ir.Block{f.Blocks[0]}
	for len(work) > 0 {
		block := work[0]
		work = work[1:]

		for _, succ := range block.Term.Succs() {
			if !reachable[succ] {
				reachable[succ] = true
				work = append(work, succ)
			}
		}
	}

	kept := f.Blocks[:0]
	for _, block := range f.Blocks {
		if reachable[block] {
			kept = append(kept, block)
		}
	}

	changed := len(kept) != len(f.Blocks)
	f.Blocks = kept

	return changed
}

func rewriteOperands(repl map[value.Value]value.Value, inst ir.Instruction) {
	switch i := inst.(type) {
	case *ir.InstFAdd:
		i.X, i.Y = resolve(repl, i.X), resolve(repl, i.Y)
	case *ir.InstFSub:
		i.X, i.Y = resolve(repl, i.X), resolve(repl, i.Y)
	case *ir.InstFMul:
		i.X, i.Y = resolve(repl, i.X), resolve(repl, i.Y)
	case *ir.InstFCmp:
		i.X, i.Y = resolve(repl, i.X), resolve(repl, i.Y)
	case *ir.InstUIToFP:
		i.From = resolve(repl, i.From)
	case *ir.InstCall:
		for j, arg := range i.Args {
			i.Args[j] = resolve(repl, arg)
		}
	}
}

func rewriteTerm(repl map[value.Value]value.Value, term ir.Terminator) {
	if ret, ok := term.(*ir.TermRet); ok && ret.X != nil {
		ret.X = resolve(repl, ret.X)
	}
}

func resolve(repl map[value.Value]value.Value, v value.Value) value.Value {
	for {
		r, ok := repl[v]
		if !ok {
			return v
		}
		v = r
	}
}

func floatConst(v value.Value) (float64, bool) {
	c, ok := v.(*constant.Float)
	if !ok {
		return 0, false
	}

	f, _ := c.X.Float64()
	return f, true
}
