package vm

import (
	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/value"
)

// opCompare implements EQ/NEQ/LT/LE/GT/GE/IDENTICAL/NOT_IDENT. Ordering
// comparisons always coerce to float per §4.1's loose-comparison rules;
// equality opcodes defer to value.LooseEqual/Identical directly.
func opCompare(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	right := vm.stack.pop()
	left := vm.stack.pop()

	var result bool
	switch instr.Op {
	case bytecode.OpEq:
		result = value.LooseEqual(left, right)
	case bytecode.OpNeq:
		result = !value.LooseEqual(left, right)
	case bytecode.OpIdentical:
		result = value.Identical(left, right)
	case bytecode.OpNotIdent:
		result = !value.Identical(left, right)
	default:
		lf, _ := left.ToFloat()
		rf, _ := right.ToFloat()
		switch instr.Op {
		case bytecode.OpLt:
			result = lf < rf
		case bytecode.OpLe:
			result = lf <= rf
		case bytecode.OpGt:
			result = lf > rf
		case bytecode.OpGe:
			result = lf >= rf
		}
	}

	if err := vm.stack.push(value.Bool(result)); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}
