package vm

import (
	"github.com/mxphp/corevm/gc"
	"github.com/mxphp/corevm/value"
)

// objectPayload is the Traceable heap payload backing a TagObject (or
// TagStruct, for the escape-analysis NEW_STRUCT path) Value: a class
// id, the object's current Shape, and its property slots in
// insertion order. Implements gc.Traceable so the collector can find
// outgoing references without the gc package knowing about objects.
type objectPayload struct {
	classID int
	shapeID uint64
	slots   []value.Value
}

func newObjectPayload(classID int) *objectPayload {
	return &objectPayload{classID: classID, shapeID: emptyShapeID}
}

func (p *objectPayload) Trace(visit func(*gc.Box)) {
	for _, v := range p.slots {
		if b := v.Box(); b != nil {
			visit(b)
		}
	}
}

func (p *objectPayload) get(slot int) value.Value {
	if slot < 0 || slot >= len(p.slots) {
		return value.Null()
	}
	return p.slots[slot]
}

func (p *objectPayload) set(slot int, v value.Value) {
	for slot >= len(p.slots) {
		p.slots = append(p.slots, value.Null())
	}
	p.slots[slot] = v
}

// NewObject allocates a fresh instance of classID in mm, starting at
// the empty shape; its first property insertion transitions it via
// the VM's ShapeTable.
func (vm *VM) NewObject(classID int) value.Value {
	payload := newObjectPayload(classID)
	box := vm.mm.AllocObject(len(payload.slots)*8, payload)
	return value.Aggregate(value.TagObject, box)
}

// NewStruct allocates a fixed-shape record for the escape-analysis
// NEW_STRUCT path (§4.8). This interpreter tier does not perform
// genuine stack allocation (there is no native call stack frame to
// place Go values into at this layer); the opcode is still honored so
// a CompiledFunction emitted with scalar replacement enabled executes
// correctly, just without the throughput win a machine-code tier
// would get from skipping the heap entirely.
func (vm *VM) NewStruct(classID int) value.Value {
	payload := newObjectPayload(classID)
	box := vm.mm.AllocStruct(len(payload.slots)*8, payload)
	return value.Aggregate(value.TagStruct, box)
}
