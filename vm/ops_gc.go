package vm

import "github.com/mxphp/corevm/bytecode"

// opNewStruct implements NEW_STRUCT, the escape-analysis-driven
// allocation path for a value the compiler proved does not escape its
// function (§4.8). The allocation is also registered with the active
// request arena (§4.4): it is freed in O(1) at end_request unless
// something marks it escaping first (a STORE_GLOBAL or a value
// surviving to the function's own return).
func opNewStruct(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	classID := int(instr.Operand1)
	val := vm.NewStruct(classID)
	if box := val.Box(); box != nil {
		vm.reqArena.Alloc(box)
	}
	if err := vm.stack.push(val); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

// opCheckGC is the safepoint the compiler inserts at loop back-edges
// (§4.7); it is not emitted at CALL/RET. It drives one incremental marking
// batch and checks the cancellation signal, without itself triggering
// a minor collection (allocation sites do that on their own).
func opCheckGC(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	if err := vm.checkCancel(); err != nil {
		return 0, err
	}
	vm.mm.StepMark()
	return DispatchContinue, nil
}
