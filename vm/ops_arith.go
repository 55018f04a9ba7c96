package vm

import (
	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/diag"
	"github.com/mxphp/corevm/feedback"
	"github.com/mxphp/corevm/value"
)

// opArith implements every ADD/SUB/MUL/DIV/MOD opcode, generic and
// specialized alike (§4.7). The generic ANY form observes operand
// types and asks the specializer to quicken the site once its feedback
// record is monomorphic enough; a specialized INT/FLOAT form re-checks
// its guard on every execution and falls back (deoptimizing the site
// in place) the instant an operand stops matching.
func opArith(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	right := vm.stack.pop()
	left := vm.stack.pop()
	frame := vm.currentFrame()
	siteID := int(instr.Operand1)
	rec := vm.feedback.Site(siteID)

	observed := left.Tag()
	if right.Tag() == value.TagFloat {
		observed = value.TagFloat
	}

	if feedback.IsGenericArith(instr.Op) {
		rec.Observe(observed)
		result, err := genericArith(vm, instr.Op, left, right, pc)
		if err != nil {
			return 0, err
		}
		if err := vm.stack.push(result); err != nil {
			return 0, err
		}
		feedback.Specialize(frame.Fn, pc, rec, vm.specializeThreshold())
		return DispatchContinue, nil
	}

	if !feedback.CheckGuard(frame.Fn, pc, rec, observed) {
		generic, _ := feedback.GenericOf(instr.Op)
		result, err := genericArith(vm, generic, left, right, pc)
		if err != nil {
			return 0, err
		}
		if err := vm.stack.push(result); err != nil {
			return 0, err
		}
		return DispatchContinue, nil
	}

	result, err := fastArith(vm, instr.Op, left, right, pc)
	if err != nil {
		return 0, err
	}
	if err := vm.stack.push(result); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

// opConcat implements CONCAT, which has no specialized sibling since
// string concatenation has exactly one representation.
func opConcat(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	right := vm.stack.pop()
	left := vm.stack.pop()
	result := left.ToStringValue() + right.ToStringValue()
	if err := vm.stack.push(value.String(result, nil)); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

func genericArith(vm *VM, op bytecode.Opcode, left, right value.Value, pc int) (value.Value, error) {
	switch op {
	case bytecode.OpAddAny:
		return numericOp(vm, left, right, pc, value.AddInt, func(a, b float64) float64 { return a + b })
	case bytecode.OpSubAny:
		return numericOp(vm, left, right, pc, value.SubInt, func(a, b float64) float64 { return a - b })
	case bytecode.OpMulAny:
		return numericOp(vm, left, right, pc, value.MulInt, func(a, b float64) float64 { return a * b })
	case bytecode.OpDivAny:
		return divAny(vm, left, right, pc)
	default:
		return value.Null(), diag.NewFatal(diag.VerificationFailure, "opArith: unhandled generic opcode %s", op)
	}
}

func fastArith(vm *VM, op bytecode.Opcode, left, right value.Value, pc int) (value.Value, error) {
	switch op {
	case bytecode.OpAddInt:
		return value.Int(value.AddInt(mustInt(left), mustInt(right))), nil
	case bytecode.OpSubInt:
		return value.Int(value.SubInt(mustInt(left), mustInt(right))), nil
	case bytecode.OpMulInt:
		return value.Int(value.MulInt(mustInt(left), mustInt(right))), nil
	case bytecode.OpDivInt:
		return divInt(vm, mustInt(left), mustInt(right), pc)
	case bytecode.OpModInt:
		return modInt(vm, mustInt(left), mustInt(right), pc)
	case bytecode.OpAddFloat:
		return value.Float(mustFloat(left) + mustFloat(right)), nil
	case bytecode.OpSubFloat:
		return value.Float(mustFloat(left) - mustFloat(right)), nil
	case bytecode.OpMulFloat:
		return value.Float(mustFloat(left) * mustFloat(right)), nil
	case bytecode.OpDivFloat:
		return divFloat(vm, mustFloat(left), mustFloat(right), pc)
	default:
		return value.Null(), diag.NewFatal(diag.VerificationFailure, "opArith: unhandled specialized opcode %s", op)
	}
}

func numericOp(vm *VM, left, right value.Value, pc int, intOp func(a, b int64) int64, floatOp func(a, b float64) float64) (value.Value, error) {
	if left.Tag() == value.TagFloat || right.Tag() == value.TagFloat {
		lf, _ := left.ToFloat()
		rf, _ := right.ToFloat()
		return value.Float(floatOp(lf, rf)), nil
	}
	li, ok1 := left.ToInt()
	ri, ok2 := right.ToInt()
	if !ok1 || !ok2 {
		vm.sink.Report(recoverableAt(pc, diag.CoercionWarning, "non-numeric operand coerced to 0"))
	}
	return value.Int(intOp(li, ri)), nil
}

func divAny(vm *VM, left, right value.Value, pc int) (value.Value, error) {
	if left.Tag() == value.TagFloat || right.Tag() == value.TagFloat {
		lf, _ := left.ToFloat()
		rf, _ := right.ToFloat()
		return divFloat(vm, lf, rf, pc)
	}
	li, _ := left.ToInt()
	ri, _ := right.ToInt()
	return divInt(vm, li, ri, pc)
}

func divInt(vm *VM, a, b int64, pc int) (value.Value, error) {
	res := value.DivInt(a, b)
	if res.Warned {
		vm.sink.Report(recoverableAt(pc, diag.DivisionByZero, "division by zero"))
	}
	if res.IsFloat {
		return value.Float(res.FloatResult), nil
	}
	return value.Int(res.IntResult), nil
}

func divFloat(vm *VM, a, b float64, pc int) (value.Value, error) {
	res, warn := value.DivFloat(a, b)
	if warn {
		vm.sink.Report(recoverableAt(pc, diag.DivisionByZero, "division by zero"))
	}
	return value.Float(res), nil
}

func modInt(vm *VM, a, b int64, pc int) (value.Value, error) {
	res, ok := value.ModInt(a, b)
	if !ok {
		vm.sink.Report(recoverableAt(pc, diag.DivisionByZero, "modulo by zero"))
		return value.Int(0), nil
	}
	return value.Int(res), nil
}

func mustInt(v value.Value) int64 {
	n, _ := v.ToInt()
	return n
}

func mustFloat(v value.Value) float64 {
	f, _ := v.ToFloat()
	return f
}
