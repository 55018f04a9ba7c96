package vm

import "github.com/mxphp/corevm/bytecode"

// CallFrame is the §4.2 call-frame record: a return address into the
// caller's code, the operand-stack length at the time of the call
// (CallerBase), the base offset into the shared operand stack where
// this frame's locals begin, the function being executed, and an
// exception-table cursor field.
//
// Grounded on the teacher's frame (vm_stack.go), which packs pc/
// cursor/line/column/captured state into one struct per backtracking
// or call frame; this is the same shape specialized to a call-stack
// VM instead of a backtracking PEG matcher.
type CallFrame struct {
	Fn         *bytecode.CompiledFunction
	ReturnPC   int
	CallerBase int
	LocalsBase int
	// excCursor is not read or written by the unwind walk, which
	// searches Fn.ExceptionTbl from the start on every throw.
	excCursor int
}

// frameStack is a LIFO of CallFrame, mirroring the teacher's stack
// type (vm_stack.go: push/pop/top over a slice).
type frameStack []CallFrame

func (s *frameStack) push(f CallFrame) { *s = append(*s, f) }

func (s *frameStack) pop() CallFrame {
	f := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return f
}

func (s *frameStack) top() *CallFrame { return &(*s)[len(*s)-1] }

func (s *frameStack) len() int { return len(*s) }
