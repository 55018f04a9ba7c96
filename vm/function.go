package vm

import "github.com/mxphp/corevm/bytecode"

// FunctionRegistry maps the small integer ids OP_CALL carries to the
// CompiledFunction they invoke, populated by the embedder ahead of
// time (the same "register before running" boundary §6 draws for
// classes and builtins). The compiler emits a call's callee interned
// name id directly as this id, so a loader must register functions
// in the same order the front-end assigned them call-name ids, the
// same convention NEW_OBJ relies on for ClassRegistry.
type FunctionRegistry struct {
	functions []*bytecode.CompiledFunction
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{}
}

// Register adds fn and returns the id OP_CALL instructions reference
// to invoke it.
func (r *FunctionRegistry) Register(fn *bytecode.CompiledFunction) int {
	r.functions = append(r.functions, fn)
	return len(r.functions) - 1
}

func (r *FunctionRegistry) Get(id int) (*bytecode.CompiledFunction, bool) {
	if id < 0 || id >= len(r.functions) {
		return nil, false
	}
	return r.functions[id], true
}
