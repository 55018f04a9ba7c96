package vm

import (
	"fmt"

	"github.com/mxphp/corevm/value"
)

// BuiltinFunc is a native function registered by the embedder via
// `vm.register_builtin(name, arity_min, arity_max, callback)` (§6).
type BuiltinFunc func(vm *VM, args []value.Value) (value.Value, error)

type builtinEntry struct {
	name     string
	arityMin int
	arityMax int // -1 means unbounded (variadic)
	fn       BuiltinFunc
}

func (e *builtinEntry) checkArity(n int) error {
	if n < e.arityMin || (e.arityMax >= 0 && n > e.arityMax) {
		return fmt.Errorf("%s() expects between %d and %d arguments, %d given", e.name, e.arityMin, e.arityMax, n)
	}
	return nil
}

func (e *builtinEntry) Call(vm *VM, args []value.Value) (value.Value, error) {
	return e.fn(vm, args)
}

// BuiltinTable maps the small integer ids OP_CALL_BUILTIN carries to a
// registered native function plus its arity bounds, the supplemented
// validation SPEC_FULL.md D.5 adds on top of §6's bare registration
// call.
type BuiltinTable struct {
	entries []*builtinEntry
	byName  map[string]int
}

func NewBuiltinTable() *BuiltinTable {
	return &BuiltinTable{byName: make(map[string]int)}
}

// Register adds a builtin and returns the id OP_CALL_BUILTIN
// instructions reference to invoke it.
func (t *BuiltinTable) Register(name string, arityMin, arityMax int, fn BuiltinFunc) int {
	id := len(t.entries)
	t.entries = append(t.entries, &builtinEntry{name: name, arityMin: arityMin, arityMax: arityMax, fn: fn})
	t.byName[name] = id
	return id
}

func (t *BuiltinTable) Get(id int) (*builtinEntry, bool) {
	if id < 0 || id >= len(t.entries) {
		return nil, false
	}
	return t.entries[id], true
}

// Lookup resolves name to its registered id, used by the compiler
// while emitting OP_CALL_BUILTIN against a known embedder surface.
func (t *BuiltinTable) Lookup(name string) (int, bool) {
	id, ok := t.byName[name]
	return id, ok
}
