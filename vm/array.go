package vm

import (
	"github.com/mxphp/corevm/cow"
	"github.com/mxphp/corevm/gc"
	"github.com/mxphp/corevm/value"
)

// arrayPayload adapts a *cow.COWArray (which knows nothing about the
// GC) into a gc.Traceable heap payload, the same pattern object.go
// uses for property slots.
type arrayPayload struct {
	arr *cow.COWArray
}

func (p *arrayPayload) Trace(visit func(*gc.Box)) {
	for i := 0; i < p.arr.Len(); i++ {
		v, ok := p.arr.Get(i)
		if !ok {
			continue
		}
		if b := v.Box(); b != nil {
			visit(b)
		}
	}
}

// NewArray allocates an empty COW array.
func (vm *VM) NewArray() value.Value {
	payload := &arrayPayload{arr: cow.NewCOWArray(nil)}
	box := vm.mm.AllocArray(0, payload)
	return value.Aggregate(value.TagArray, box)
}

// arrayOf extracts the backing *cow.COWArray from an array-tagged
// Value, panicking on a type mismatch since GET_ELEM/SET_ELEM/
// ARRAY_PUSH/ARRAY_LEN are only ever emitted by the compiler against
// statically-known array operands (a mismatch here is a compiler or
// decode bug, not a user-facing condition).
func arrayOf(v value.Value) *cow.COWArray {
	return v.Box().Payload.(*arrayPayload).arr
}
