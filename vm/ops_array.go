package vm

import (
	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/diag"
	"github.com/mxphp/corevm/value"
)

func opNewArray(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	if err := vm.stack.push(vm.NewArray()); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

// opGetElem implements GET_ELEM. A miss reports UndefinedIndex and
// yields null rather than throwing, matching the recoverable-by-
// default posture §7 assigns to undefined-index access.
func opGetElem(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	idxVal := vm.stack.pop()
	arrVal := vm.stack.pop()
	arr := arrayOf(arrVal)
	idx, _ := idxVal.ToInt()
	v, found := arr.Get(int(idx))
	if !found {
		vm.sink.Report(recoverableAt(pc, diag.UndefinedIndex, "undefined array index"))
	}
	if err := vm.stack.push(v); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

// opSetElem implements SET_ELEM, growing the array when the index is
// at or past its current length (§8's boundary behavior).
func opSetElem(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	val := vm.stack.pop()
	idxVal := vm.stack.pop()
	arrVal := vm.stack.pop()
	arr := arrayOf(arrVal)
	idx, _ := idxVal.ToInt()
	arr.Set(int(idx), val)
	if box := val.Box(); box != nil {
		vm.mm.WriteBarrier(arrVal.Box(), box)
	}
	return DispatchContinue, nil
}

func opArrayPush(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	val := vm.stack.pop()
	arrVal := vm.stack.pop()
	arr := arrayOf(arrVal)
	arr.Push(val)
	if box := val.Box(); box != nil {
		vm.mm.WriteBarrier(arrVal.Box(), box)
	}
	return DispatchContinue, nil
}

func opArrayLen(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	arrVal := vm.stack.pop()
	arr := arrayOf(arrVal)
	if err := vm.stack.push(value.Int(int64(arr.Len()))); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}
