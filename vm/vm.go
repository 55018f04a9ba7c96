// Package vm implements the stack-based bytecode interpreter of §4.7:
// computed dispatch over a contiguous operand stack, call frames with
// an exception-table-driven unwind, GC/type-feedback safepoints at
// CALL/RET/CHECK_GC, and a cancellation signal checked at those same
// points.
//
// Grounded on the teacher's virtualMachine (vm.go): a single mutable
// struct carrying pc/stack/bytecode plus a labeled `code:`/`fail:`
// dispatch loop, generalized here from PEG backtracking frames to
// call frames and from a monolithic switch to a computed-dispatch
// table (dispatch.go), per §4.7's explicit rationale ("minimizes
// branch mispredictions relative to a monolithic switch").
package vm

import (
	"github.com/mxphp/corevm/arena"
	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/config"
	"github.com/mxphp/corevm/cow"
	"github.com/mxphp/corevm/diag"
	"github.com/mxphp/corevm/feedback"
	"github.com/mxphp/corevm/gc"
	"github.com/mxphp/corevm/value"
)

// instrBytes is the fixed instruction width (bytecode.instrSizeBytes
// is unexported; the vm package treats it as a known protocol
// constant rather than importing internals).
const instrBytes = 5

// VM is one execution instance: one operand stack, one frame stack,
// its own feedback/PIC tables (type feedback is per VM instance, not
// shared across concurrently executing VMs), and references to the
// shared, embedder-owned memory manager and class/shape registries.
type VM struct {
	mm        *gc.MemoryManager
	cfg       *config.Config
	sink      diag.Sink
	classes   *ClassRegistry
	shapes    *ShapeTable
	builtins  *BuiltinTable
	functions *FunctionRegistry
	names     *NameTable
	display   diag.DisplayMode

	feedback *feedback.Table
	pics     *feedback.PICTable

	globals map[int]value.Value

	stack  *valueStack
	frames frameStack
	pc     int // byte offset into the active frame's Fn.Code

	pendingConv []cow.Convention

	// reqArena backs §4.4's RequestArena: vm.Call's entry/exit brackets
	// one logical request, matching how memory.begin_request/end_request
	// scope a request at the embedder boundary (§4.2).
	reqArena  *arena.Arena
	requestID uint64

	cancel <-chan struct{}
}

// New builds a VM sharing mm (and therefore the heap, roots, and GC
// state) with every other VM instance the embedder runs concurrently,
// per §5's "shared heap across concurrent VM instances."
func New(mm *gc.MemoryManager, cfg *config.Config, sink diag.Sink) *VM {
	return &VM{
		mm:        mm,
		cfg:       cfg,
		sink:      sink,
		classes:   NewClassRegistry(),
		shapes:    NewShapeTable(),
		builtins:  NewBuiltinTable(),
		functions: NewFunctionRegistry(),
		names:     NewNameTable(),
		feedback:  feedback.NewTable(),
		pics:      feedback.NewPICTable(),
		globals:   make(map[int]value.Value),
		stack:     newValueStack(int(cfg.GetInt("vm.max_stack_values"))),
		reqArena:  arena.New(),
	}
}

// Functions exposes the function registry OP_CALL resolves against.
func (vm *VM) Functions() *FunctionRegistry { return vm.functions }

// Classes exposes the class registry so an embedder can
// register_class before running any code (§6).
func (vm *VM) Classes() *ClassRegistry { return vm.classes }

// Builtins exposes the builtin-function table for register_builtin
// (§6).
func (vm *VM) Builtins() *BuiltinTable { return vm.builtins }

// Names exposes the property/method name table a loader populates
// from the front-end's intern table before running any code emitted
// against GET_PROP_IC/SET_PROP_IC/CALL_METHOD.
func (vm *VM) Names() *NameTable { return vm.names }

// SetDisplayMode controls how thrown exceptions format their message
// (§7's front-end-specific display mode, applied at render time).
func (vm *VM) SetDisplayMode(m diag.DisplayMode) { vm.display = m }

// SetCancel installs the cancellation channel §5 describes: closing
// it raises a cancellation exception the next time a safepoint is
// reached.
func (vm *VM) SetCancel(c <-chan struct{}) { vm.cancel = c }

func (vm *VM) currentFrame() *CallFrame { return vm.frames.top() }

func (vm *VM) checkCancel() error {
	if vm.cancel == nil {
		return nil
	}
	select {
	case <-vm.cancel:
		return diag.NewThrown("CancellationException", "execution cancelled", 0, nil, vm.display)
	default:
		return nil
	}
}

// Call invokes fn with args bound to its declared parameters
// (missing ones receive their default; extras are discarded unless
// fn.Variadic, §4.7), running the dispatch loop until the outermost
// frame returns or an uncaught exception/fatal propagates. The call
// also brackets one logical request (§4.4): NEW_STRUCT allocations
// made during it go into the request arena unless a STORE_GLOBAL or
// the call's own return value marks them escaping, in which case
// end_request promotes them to a GC root instead of discarding them.
func (vm *VM) Call(fn *bytecode.CompiledFunction, args []value.Value) (value.Value, error) {
	vm.requestID++
	vm.reqArena.Begin(vm.requestID)

	base := vm.stack.len()
	vm.bindParams(fn, args, base)
	vm.frames.push(CallFrame{Fn: fn, ReturnPC: -1, CallerBase: base, LocalsBase: base})
	vm.pc = 0
	result, err := vm.run()

	if err == nil {
		if box := result.Box(); box != nil {
			vm.reqArena.MarkEscape(box)
		}
	}
	vm.reqArena.End(func(b *gc.Box) *gc.Box {
		vm.mm.AddRoot(b)
		return b
	})
	return result, err
}

// bindParams lays out fn's locals starting at base: declared params
// first (from args, or their default, or null), then zero-initialized
// slots for the rest of fn.LocalCount.
func (vm *VM) bindParams(fn *bytecode.CompiledFunction, args []value.Value, base int) {
	for i := 0; i < fn.LocalCount; i++ {
		switch {
		case i < len(fn.Params) && i < len(args):
			vm.stack.setAt(base+i, args[i])
		case i < len(fn.Params) && fn.Params[i].HasDefault:
			vm.stack.setAt(base+i, constToValue(fn.Params[i].Default))
		default:
			vm.stack.setAt(base+i, value.Null())
		}
	}
	if fn.Variadic && len(args) > len(fn.Params) {
		// Extra positional arguments collect into a trailing array
		// local rather than being discarded, per §4.7's variadic
		// carve-out; callers that declared LocalCount to include the
		// variadic slot put it at index len(Params).
		rest := vm.NewArray()
		arr := arrayOf(rest)
		for _, a := range args[len(fn.Params):] {
			arr.Push(a)
		}
		if len(fn.Params) < fn.LocalCount {
			vm.stack.setAt(base+len(fn.Params), rest)
		}
	}
}

func constToValue(c bytecode.Const) value.Value {
	switch c.Kind {
	case bytecode.ConstBool:
		return value.Bool(c.B)
	case bytecode.ConstInt:
		return value.Int(c.I)
	case bytecode.ConstFloat:
		return value.Float(c.F)
	case bytecode.ConstString:
		return value.String(c.S, nil)
	default:
		return value.Null()
	}
}

// run drives the computed-dispatch loop until OP_RET pops the
// outermost frame Call pushed (DispatchReturnValue) or an error
// unwinds past it.
func (vm *VM) run() (value.Value, error) {
	for {
		frame := vm.currentFrame()
		instr := bytecode.Decode(frame.Fn.Code, vm.pc)
		handler := dispatchTable[instr.Op]
		if handler == nil {
			return value.Null(), diag.NewFatal(diag.VerificationFailure, "no handler for opcode %s", instr.Op)
		}

		result, err := handler(vm, instr, vm.pc)
		if err != nil {
			if !vm.unwind(err) {
				return value.Null(), err
			}
			continue
		}

		switch result {
		case DispatchContinue:
			vm.pc += instrBytes
		case DispatchJump, DispatchFrameChanged:
			// pc (and possibly the frame stack) already updated by
			// the handler.
		case DispatchReturnValue:
			return vm.stack.pop(), nil
		}
	}
}

// unwind walks frames looking for an exception-table entry covering
// vm.pc, per §4.7's "raised exception walks the current frame's
// exception table for a matching try/catch range; if none found,
// unwinds to the caller, releasing Values on the operand stack to
// satisfy refcount invariants." Returns false when no handler exists
// anywhere on the stack (the caller treats the original error as
// final) or the error is a diag.Fatal, which always unwinds every
// frame per §7.
func (vm *VM) unwind(err error) bool {
	if _, fatal := err.(*diag.Fatal); fatal {
		vm.releaseTo(0)
		vm.frames = vm.frames[:0]
		return false
	}
	thrown, ok := err.(*diag.Thrown)
	if !ok {
		return false
	}
	for vm.frames.len() > 0 {
		frame := vm.currentFrame()
		instrIdx := vm.pc / instrBytes
		if entry, found := frame.Fn.HandlerFor(instrIdx, -1); found {
			vm.releaseTo(frame.LocalsBase)
			vm.pc = entry.HandlerPC * instrBytes
			_ = vm.stack.push(value.String(thrown.Message, nil))
			return true
		}
		popped := vm.frames.pop()
		vm.releaseTo(popped.LocalsBase)
		if vm.frames.len() == 0 {
			return false
		}
		vm.pc = popped.ReturnPC
	}
	return false
}

// releaseTo releases every aggregate Value on the operand stack above
// base and truncates it back to base, the refcount bookkeeping an
// unwind must perform per §4.7.
func (vm *VM) releaseTo(base int) {
	for vm.stack.len() > base {
		v := vm.stack.pop()
		_ = v.Release(vm.mm)
	}
}

// drainPendingConv returns how many PASS_BY_*/COW_CHECK opcodes have
// queued a parameter-passing convention since the last call, clearing
// the queue for the next one. CALL/CALL_METHOD use the count as the
// argument count the compiler never emits as an explicit operand.
func (vm *VM) drainPendingConv() int {
	n := len(vm.pendingConv)
	vm.pendingConv = vm.pendingConv[:0]
	return n
}

// specializeThreshold reads the observation count a call site needs
// before the specializer is allowed to rewrite it (§4.7).
func (vm *VM) specializeThreshold() int {
	return int(vm.cfg.GetInt("feedback.specialize_after"))
}

// invokeWithArgs pushes a new CallFrame for fn with args already bound
// (receivers prepended by the caller for CALL_METHOD), recording
// returnPC as the byte offset execution resumes at in the caller once
// fn's OP_RET fires.
func (vm *VM) invokeWithArgs(fn *bytecode.CompiledFunction, args []value.Value, returnPC int) (DispatchResult, error) {
	if err := vm.checkCancel(); err != nil {
		return 0, err
	}
	base := vm.stack.len()
	vm.bindParams(fn, args, base)
	vm.frames.push(CallFrame{Fn: fn, ReturnPC: returnPC, CallerBase: base, LocalsBase: base})
	vm.pc = 0
	return DispatchFrameChanged, nil
}

// stackTrace reconstructs the §7 stack trace a Thrown carries, walking
// frames innermost-first.
func (vm *VM) stackTrace() []diag.Frame {
	trace := make([]diag.Frame, 0, vm.frames.len())
	for i := vm.frames.len() - 1; i >= 0; i-- {
		f := vm.frames[i]
		pc := vm.pc
		if i != vm.frames.len()-1 {
			pc = vm.frames[i+1].ReturnPC
		}
		trace = append(trace, diag.Frame{FunctionName: f.Fn.Name, Line: f.Fn.LineForPC(pc / instrBytes)})
	}
	return trace
}
