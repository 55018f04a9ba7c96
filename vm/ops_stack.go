package vm

import (
	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/diag"
	"github.com/mxphp/corevm/value"
)

func opNop(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	return DispatchContinue, nil
}

func opPushConst(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	frame := vm.currentFrame()
	c := frame.Fn.Consts.Get(int(instr.Operand1))
	if err := vm.stack.push(constToValue(c)); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

func opPushLocal(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	frame := vm.currentFrame()
	v := vm.stack.at(frame.LocalsBase + int(instr.Operand1))
	if err := vm.stack.push(v); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

func opPushGlobal(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	v, ok := vm.globals[int(instr.Operand1)]
	if !ok {
		v = value.Null()
		vm.sink.Report(recoverableAt(pc, diag.UndefinedVariable, "undefined global"))
	}
	if err := vm.stack.push(v); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

func opStoreLocal(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	frame := vm.currentFrame()
	v := vm.stack.pop()
	vm.stack.setAt(frame.LocalsBase+int(instr.Operand1), v)
	return DispatchContinue, nil
}

// opStoreGlobal implements STORE_GLOBAL. A global outlives the request
// that created it, so any aggregate stored here escapes the request
// arena immediately rather than waiting for end_request to find it
// already gone (§4.4).
func opStoreGlobal(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	v := vm.stack.pop()
	if box := v.Box(); box != nil {
		vm.reqArena.MarkEscape(box)
	}
	vm.globals[int(instr.Operand1)] = v
	return DispatchContinue, nil
}

func opPop(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	vm.stack.pop()
	return DispatchContinue, nil
}

func opDup(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	v := vm.stack.peek()
	if err := vm.stack.push(v); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

func opSwap(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	a := vm.stack.pop()
	b := vm.stack.pop()
	_ = vm.stack.push(a)
	_ = vm.stack.push(b)
	return DispatchContinue, nil
}
