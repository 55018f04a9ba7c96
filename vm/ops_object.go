package vm

import (
	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/diag"
	"github.com/mxphp/corevm/value"
)

// opNewObj implements NEW_OBJ: Operand1 is a ClassRegistry id. It only
// allocates the instance at the empty shape; it does not run the
// class's Constructor, and the compiler emits no call to it either.
func opNewObj(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	classID := int(instr.Operand1)
	if _, ok := vm.classes.Get(classID); !ok {
		return 0, diag.NewFatal(diag.VerificationFailure, "new_obj: unknown class id %d", classID)
	}
	if err := vm.stack.push(vm.NewObject(classID)); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

// opGetProp is the non-cached property read: a full shape walk on
// every execution. Nothing rewrites a GET_PROP site to GET_PROP_IC;
// the compiler emits GET_PROP_IC for property reads directly.
// Operand1 is the property name's interned id, resolved against the
// VM's name table the same way GET_PROP_IC does.
func opGetProp(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	name, ok := vm.names.Lookup(int(instr.Operand1))
	if !ok {
		return 0, diag.NewFatal(diag.VerificationFailure, "get_prop: unknown name id %d", instr.Operand1)
	}
	recv := vm.stack.pop()

	payload, ok := objectOf(recv)
	if !ok {
		vm.sink.Report(recoverableAt(pc, diag.UndefinedProperty, "get_prop on non-object"))
		return pushNullContinue(vm)
	}
	slot, found := vm.shapes.Lookup(payload.shapeID, name)
	if !found {
		vm.sink.Report(recoverableAt(pc, diag.UndefinedProperty, "undefined property "+name))
		return pushNullContinue(vm)
	}
	if err := vm.stack.push(payload.get(slot)); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

// opSetProp is the non-cached property write: it transitions the
// receiver's shape on first insertion of a property, per §3. Operand1
// is the property name's interned id.
func opSetProp(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	frame := vm.currentFrame()
	name, nameOK := vm.names.Lookup(int(instr.Operand1))
	if !nameOK {
		return 0, diag.NewFatal(diag.VerificationFailure, "set_prop: unknown name id %d", instr.Operand1)
	}
	val := vm.stack.pop()
	recv := vm.stack.pop()

	payload, ok := objectOf(recv)
	if !ok {
		return 0, diag.NewThrown("TypeError", "set_prop on non-object",
			frame.Fn.LineForPC(pc/instrBytes), vm.stackTrace(), vm.display)
	}
	slot, found := vm.shapes.Lookup(payload.shapeID, name)
	if !found {
		shape := vm.shapes.Transition(payload.shapeID, name)
		payload.shapeID = shape.ID
		slot = shape.Slot
	}
	payload.set(slot, val)
	if box := val.Box(); box != nil {
		vm.mm.WriteBarrier(recv.Box(), box)
	}
	return DispatchContinue, nil
}

// opGetPropIC is GET_PROP's inline-cached sibling: Operand1 is the
// property name's interned id (consulted against the name table on a
// cache miss), Operand2 the call-site id the PIC is keyed by.
func opGetPropIC(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	siteID := int(instr.Operand2)
	name, ok := vm.names.Lookup(int(instr.Operand1))
	if !ok {
		return 0, diag.NewFatal(diag.VerificationFailure, "get_prop_ic: unknown name id %d", instr.Operand1)
	}
	recv := vm.stack.pop()

	payload, ok := objectOf(recv)
	if !ok {
		vm.sink.Report(recoverableAt(pc, diag.UndefinedProperty, "get_prop_ic on non-object"))
		return pushNullContinue(vm)
	}

	pic := vm.pics.PICFor(siteID)
	if slot, found := pic.Lookup(payload.shapeID); found {
		if err := vm.stack.push(payload.get(slot)); err != nil {
			return 0, err
		}
		return DispatchContinue, nil
	}

	slot, found := vm.shapes.Lookup(payload.shapeID, name)
	if !found {
		vm.sink.Report(recoverableAt(pc, diag.UndefinedProperty, "undefined property "+name))
		return pushNullContinue(vm)
	}
	pic.Install(payload.shapeID, slot)
	if err := vm.stack.push(payload.get(slot)); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

// opSetPropIC mirrors opGetPropIC for writes, additionally handling
// the shape-transition path a cache miss can trigger on first
// insertion of a new property.
func opSetPropIC(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	frame := vm.currentFrame()
	siteID := int(instr.Operand2)
	name, nameOK := vm.names.Lookup(int(instr.Operand1))
	if !nameOK {
		return 0, diag.NewFatal(diag.VerificationFailure, "set_prop_ic: unknown name id %d", instr.Operand1)
	}
	val := vm.stack.pop()
	recv := vm.stack.pop()

	payload, ok := objectOf(recv)
	if !ok {
		return 0, diag.NewThrown("TypeError", "set_prop_ic on non-object",
			frame.Fn.LineForPC(pc/instrBytes), vm.stackTrace(), vm.display)
	}

	pic := vm.pics.PICFor(siteID)
	if slot, found := pic.Lookup(payload.shapeID); found {
		payload.set(slot, val)
		if box := val.Box(); box != nil {
			vm.mm.WriteBarrier(recv.Box(), box)
		}
		return DispatchContinue, nil
	}

	slot, found := vm.shapes.Lookup(payload.shapeID, name)
	if !found {
		shape := vm.shapes.Transition(payload.shapeID, name)
		payload.shapeID = shape.ID
		slot = shape.Slot
	}
	pic.Install(payload.shapeID, slot)
	payload.set(slot, val)
	if box := val.Box(); box != nil {
		vm.mm.WriteBarrier(recv.Box(), box)
	}
	return DispatchContinue, nil
}

// opInstanceOf implements INSTANCEOF against Operand1's class id. This
// runtime's ClassRegistry does not model inheritance chains, so the
// check is class identity rather than a walk up a parent chain.
func opInstanceOf(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	classID := int(instr.Operand1)
	v := vm.stack.pop()
	result := false
	if payload, ok := objectOf(v); ok {
		result = payload.classID == classID
	}
	if err := vm.stack.push(value.Bool(result)); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

// opClone implements CLONE: a shallow copy of the receiver's property
// slots at a freshly allocated box, each slot retained since the clone
// shares aggregate references with the original until one of them
// writes (object properties follow plain retain/release, not COW).
func opClone(vm *VM, instr bytecode.Instruction, pc int) (DispatchResult, error) {
	v := vm.stack.pop()
	payload, ok := objectOf(v)
	if !ok {
		return 0, diag.NewFatal(diag.VerificationFailure, "clone: non-object operand")
	}
	slots := make([]value.Value, len(payload.slots))
	copy(slots, payload.slots)
	for _, s := range slots {
		_ = s.Retain()
	}
	cloned := &objectPayload{classID: payload.classID, shapeID: payload.shapeID, slots: slots}
	box := vm.mm.AllocObject(len(slots)*8, cloned)
	if err := vm.stack.push(value.Aggregate(value.TagObject, box)); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}

func objectOf(v value.Value) (*objectPayload, bool) {
	box := v.Box()
	if box == nil {
		return nil, false
	}
	payload, ok := box.Payload.(*objectPayload)
	return payload, ok
}

func pushNullContinue(vm *VM) (DispatchResult, error) {
	if err := vm.stack.push(value.Null()); err != nil {
		return 0, err
	}
	return DispatchContinue, nil
}
