package vm

import "github.com/davecgh/go-spew/spew"

// FrameSnapshot is one call frame as captured for a debug dump,
// innermost last, the reverse of the innermost-first order
// stackTrace() walks in.
type FrameSnapshot struct {
	Function string
	PC       int
	Locals   []string
}

// Snapshot renders the VM's current call-frame chain for debugging,
// the same "dump the live state, don't hand-format it" approach the
// teacher's tooling takes for its own parse-tree/value dumps.
func (vm *VM) Snapshot() string {
	frames := make([]FrameSnapshot, 0, vm.frames.len())
	for i := 0; i < vm.frames.len(); i++ {
		f := vm.frames[i]
		pc := vm.pc
		if i != vm.frames.len()-1 {
			pc = vm.frames[i+1].ReturnPC
		}
		locals := make([]string, 0, f.Fn.LocalCount)
		for j := 0; j < f.Fn.LocalCount; j++ {
			idx := f.LocalsBase + j
			if idx >= vm.stack.len() {
				break
			}
			locals = append(locals, vm.stack.at(idx).ToStringValue())
		}
		frames = append(frames, FrameSnapshot{Function: f.Fn.Name, PC: pc / instrBytes, Locals: locals})
	}
	return spew.Sdump(frames)
}
