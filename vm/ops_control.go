package vm

import (
	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/diag"
	"github.com/mxphp/corevm/value"
)

// opJmp, opJz and opJnz all target an instruction index (the Builder
// resolves labels to indices, not byte offsets, see bytecode.Builder.
// BindLabel), so every jump here converts through instrBytes before
// assigning vm.pc.
func opJmp(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	vm.pc = int(instr.Operand1) * instrBytes
	return DispatchJump, nil
}

func opJz(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	cond := vm.stack.pop()
	if !cond.ToBool() {
		vm.pc = int(instr.Operand1) * instrBytes
		return DispatchJump, nil
	}
	return DispatchContinue, nil
}

func opJnz(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	cond := vm.stack.pop()
	if cond.ToBool() {
		vm.pc = int(instr.Operand1) * instrBytes
		return DispatchJump, nil
	}
	return DispatchContinue, nil
}

// opCall implements CALL: Operand1 is a FunctionRegistry id (the
// compiler emits the callee's interned name id here directly, which
// an embedder's loader registers functions under in the same order,
// the same convention NEW_OBJ relies on for class ids), Operand2 a
// call-site id reserved for a future call-target PIC. Argument count
// is never carried as an operand: it is however many PASS_BY_*/
// COW_CHECK opcodes the compiler emitted just before this CALL, drained
// from vm.pendingConv. Arguments are popped in reverse push order so
// args[] ends up in declaration order.
func opCall(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	fnID := int(instr.Operand1)
	fn, ok := vm.functions.Get(fnID)
	if !ok {
		return 0, diag.NewFatal(diag.VerificationFailure, "call: unknown function id %d", fnID)
	}
	args := popArgs(vm, vm.drainPendingConv())
	return vm.invokeWithArgs(fn, args, pc+instrBytes)
}

// opCallMethod implements CALL_METHOD: Operand1 is the method name's
// interned id, resolved against the VM's name table; Operand2 is a
// call-site id reserved for a future method PIC. Argument count comes
// from vm.pendingConv the same way CALL derives it. The receiver sits
// below its arguments on the stack and is bound as the callee's first
// local, per the $this convention the compiler's method-call codegen
// relies on.
func opCallMethod(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	frame := vm.currentFrame()
	name, ok := vm.names.Lookup(int(instr.Operand1))
	if !ok {
		return 0, diag.NewFatal(diag.VerificationFailure, "call_method: unknown name id %d", instr.Operand1)
	}
	args := popArgs(vm, vm.drainPendingConv())
	receiver := vm.stack.pop()

	payload, ok := receiver.Box().Payload.(*objectPayload)
	if !ok {
		return 0, diag.NewThrown("TypeError", "call_method on non-object receiver",
			frame.Fn.LineForPC(pc/instrBytes), vm.stackTrace(), vm.display)
	}
	method, ok := vm.classes.Method(payload.classID, name)
	if !ok {
		return 0, diag.NewThrown("Error", "call to undefined method "+name,
			frame.Fn.LineForPC(pc/instrBytes), vm.stackTrace(), vm.display)
	}

	allArgs := make([]value.Value, 0, len(args)+1)
	allArgs = append(allArgs, receiver)
	allArgs = append(allArgs, args...)
	return vm.invokeWithArgs(method, allArgs, pc+instrBytes)
}

// opCallBuiltin implements CALL_BUILTIN: native functions execute
// synchronously in the caller's frame, so unlike CALL/CALL_METHOD this
// never pushes a CallFrame.
func opCallBuiltin(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	id := int(instr.Operand1)
	argc := int(instr.Operand2)
	args := popArgs(vm, argc)

	entry, ok := vm.builtins.Get(id)
	if !ok {
		return 0, diag.NewFatal(diag.VerificationFailure, "call_builtin: unknown builtin id %d", id)
	}
	if err := entry.checkArity(len(args)); err != nil {
		return 0, diag.NewThrown("ArgumentCountError", err.Error(), 0, vm.stackTrace(), vm.display)
	}
	result, err := entry.Call(vm, args)
	if err != nil {
		return 0, err
	}
	if err := vm.stack.push(result); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

// opRet pops the current frame's return value, unwinds its locals off
// the operand stack, and either finishes the whole run (if this was
// the outermost frame Call pushed) or resumes the caller at its
// recorded return address.
func opRet(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	if err := vm.checkCancel(); err != nil {
		return 0, err
	}
	retVal := vm.stack.pop()
	popped := vm.frames.pop()
	vm.stack.truncate(popped.LocalsBase)

	if err := vm.stack.push(retVal); err != nil {
		return 0, err
	}
	if vm.frames.len() == 0 {
		return DispatchReturnValue, nil
	}
	vm.pc = popped.ReturnPC
	return DispatchFrameChanged, nil
}

// opThrow implements THROW: the top-of-stack value becomes a Thrown
// exception carrying the current call chain's stack trace, per §7.
func opThrow(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	frame := vm.currentFrame()
	thrownVal := vm.stack.pop()

	className := "Exception"
	if box := thrownVal.Box(); box != nil {
		if payload, ok := box.Payload.(*objectPayload); ok {
			if cls, ok := vm.classes.Get(payload.classID); ok {
				className = cls.Name
			}
		}
	}

	return 0, diag.NewThrown(className, thrownVal.ToStringValue(),
		frame.Fn.LineForPC(pc/instrBytes), vm.stackTrace(), vm.display)
}

func popArgs(vm *VM, argc int) []value.Value {
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.stack.pop()
	}
	return args
}
