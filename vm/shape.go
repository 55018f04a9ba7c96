package vm

// Shape implements §3's "ordered property descriptor for objects,
// forming a tree rooted at the empty shape; each property insertion
// transitions to a child shape." Objects referencing the same Shape
// share property indexing, which is what makes the PIC's (shape id ->
// slot) entries reusable across objects built the same way.
type Shape struct {
	ID       uint64
	Parent   uint64
	Property string
	Slot     int // index into an object's slot table this property occupies
	size     int // number of properties including this one
}

// ShapeTable is the supplemented shape cache of SPEC_FULL.md D.1: a
// transition tree keyed by (parentShapeID, propertyName) so two
// objects built via the same sequence of property insertions converge
// on the same shape chain instead of allocating a fresh one each time.
type ShapeTable struct {
	shapes      map[uint64]*Shape
	transitions map[shapeKey]uint64
	next        uint64
}

type shapeKey struct {
	parent uint64
	prop   string
}

// emptyShapeID is the root of every transition tree, per §3 ("a tree
// rooted at the empty shape").
const emptyShapeID uint64 = 0

func NewShapeTable() *ShapeTable {
	return &ShapeTable{
		shapes:      map[uint64]*Shape{emptyShapeID: {ID: emptyShapeID}},
		transitions: make(map[shapeKey]uint64),
		next:        1,
	}
}

// Transition returns the child shape reached from parentID by adding
// property, creating it on first use and reusing it for every later
// object that inserts the same property in the same place.
func (t *ShapeTable) Transition(parentID uint64, property string) *Shape {
	key := shapeKey{parent: parentID, prop: property}
	if id, ok := t.transitions[key]; ok {
		return t.shapes[id]
	}
	parent := t.shapes[parentID]
	id := t.next
	t.next++
	s := &Shape{ID: id, Parent: parentID, Property: property, Slot: parent.size, size: parent.size + 1}
	t.shapes[id] = s
	t.transitions[key] = id
	return s
}

// Lookup walks from shapeID back to the root looking for property,
// used by the non-IC GET_PROP/SET_PROP fallback path.
func (t *ShapeTable) Lookup(shapeID uint64, property string) (slot int, found bool) {
	id := shapeID
	for {
		s, ok := t.shapes[id]
		if !ok {
			return 0, false
		}
		if s.Property == property {
			return s.Slot, true
		}
		if id == emptyShapeID {
			return 0, false
		}
		id = s.Parent
	}
}

// Size returns how many property slots shapeID's objects allocate.
func (t *ShapeTable) Size(shapeID uint64) int {
	if s, ok := t.shapes[shapeID]; ok {
		return s.size
	}
	return 0
}
