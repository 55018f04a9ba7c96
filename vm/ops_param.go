package vm

import (
	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/cow"
	"github.com/mxphp/corevm/value"
)

// opPassByValue marks the top-of-stack argument as bound by value: a
// plain Value copy with no ownership transfer, the default for small
// scalars and const-size structs (§4.9's table).
func opPassByValue(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	vm.pendingConv = append(vm.pendingConv, cow.ByValue)
	return DispatchContinue, nil
}

// opPassByRef marks a const-reference binding: no retain, the callee
// is compiled to never attempt a write through it.
func opPassByRef(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	vm.pendingConv = append(vm.pendingConv, cow.ByConstRef)
	return DispatchContinue, nil
}

// opPassByCOW retains the top-of-stack aggregate's backing buffer so
// caller and callee share it until one of them writes, the default
// for mutable strings/arrays that are not the call's last use.
func opPassByCOW(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	_ = vm.stack.peek().Retain()
	vm.pendingConv = append(vm.pendingConv, cow.ByCOW)
	return DispatchContinue, nil
}

// opPassByMove transfers ownership of the top-of-stack value to the
// callee without retaining, used at a parameter's statically-proven
// last use.
func opPassByMove(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	vm.pendingConv = append(vm.pendingConv, cow.ByMove)
	return DispatchContinue, nil
}

// opCOWCheck implements the RuntimeCheck convention: the compiler
// could not decide statically between move and COW, so the choice is
// made here from the backing buffer's live share count.
func opCOWCheck(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	v := vm.stack.peek()
	if shared, ok := sharedOf(v); ok && shared {
		_ = v.Retain()
	}
	vm.pendingConv = append(vm.pendingConv, cow.RuntimeCheck)
	return DispatchContinue, nil
}

// opCOWCopy forces an eager private copy of the top-of-stack aggregate
// instead of sharing its buffer, used where a callee's mutation must
// never be observed by the caller. Only arrays have a payload this
// runtime knows how to duplicate; any other value passes through
// unchanged.
func opCOWCopy(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	v := vm.stack.pop()
	box := v.Box()
	if box == nil {
		return pushValueContinue(vm, v)
	}
	p, ok := box.Payload.(*arrayPayload)
	if !ok {
		return pushValueContinue(vm, v)
	}
	elems := make([]value.Value, p.arr.Len())
	for i := range elems {
		elems[i], _ = p.arr.Get(i)
	}
	copied := &arrayPayload{arr: cow.NewCOWArray(elems)}
	newBox := vm.mm.AllocArray(0, copied)
	return pushValueContinue(vm, value.Aggregate(value.TagArray, newBox))
}

func sharedOf(v value.Value) (shared bool, ok bool) {
	box := v.Box()
	if box == nil {
		return false, false
	}
	if p, isArr := box.Payload.(*arrayPayload); isArr {
		return p.arr.IsShared(), true
	}
	return false, false
}

func pushValueContinue(vm *VM, v value.Value) (DispatchResult, error) {
	if err := vm.stack.push(v); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}
