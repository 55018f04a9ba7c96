package vm

import "github.com/mxphp/corevm/bytecode"

// Class is the runtime representation registered by
// `vm.register_class(name, shape, methods, constructor?, destructor?)`
// (§6). RootShape is the empty shape new instances start from before
// any constructor-driven property insertion transitions them further.
type Class struct {
	Name        string
	RootShape   uint64
	Methods     map[string]*bytecode.CompiledFunction
	Constructor *bytecode.CompiledFunction
	Destructor  *bytecode.CompiledFunction
}

// ClassRegistry maps the small integer ids NEW_OBJ/NEW_STRUCT/
// INSTANCEOF carry as operands to their Class, populated ahead of
// time by the embedder (§6's external interface boundary).
// CALL_METHOD resolves methods dynamically by name against the
// receiver's own class id instead (see Method), since a receiver's
// runtime class is not always the compiler's static callee.
type ClassRegistry struct {
	classes []*Class
}

func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{}
}

// Register adds c and returns the id future NEW_OBJ instructions must
// reference to allocate instances of it.
func (r *ClassRegistry) Register(c *Class) int {
	r.classes = append(r.classes, c)
	return len(r.classes) - 1
}

func (r *ClassRegistry) Get(id int) (*Class, bool) {
	if id < 0 || id >= len(r.classes) {
		return nil, false
	}
	return r.classes[id], true
}

// Method resolves name on the class registered at classID, used by
// CALL_METHOD once the receiver's class is known.
func (r *ClassRegistry) Method(classID int, name string) (*bytecode.CompiledFunction, bool) {
	c, ok := r.Get(classID)
	if !ok {
		return nil, false
	}
	fn, ok := c.Methods[name]
	return fn, ok
}
