package bytecode

// ExceptionEntry maps a try/catch range (in instruction offsets, not
// byte offsets) to a handler offset, consulted on unwind per §4.7.
type ExceptionEntry struct {
	TryStart  int
	TryEnd    int
	HandlerPC int
	// CatchClass is the interned-string constant pool index of the
	// class name this handler catches, or -1 to catch everything.
	CatchClass int
}

// LineEntry maps an instruction offset to a source line, used to
// reconstruct stack traces (§7 "every thrown value carries ... a
// stack trace reconstructed from CallFrames").
type LineEntry struct {
	PC   int
	Line int
}

// Param describes one declared parameter: its default value (if any)
// and the calling convention the compiler selected for it (§4.9).
type Param struct {
	Name       string
	HasDefault bool
	Default    Const
	Convention string // "by_value" | "by_const_ref" | "by_cow" | "by_move" | "runtime_check"
}

// CompiledFunction is produced once by the compiler; its bytecode
// buffer and constant pool are immutable thereafter and outlive every
// VM execution that references it (§4.2).
type CompiledFunction struct {
	Name         string
	Code         []byte
	Consts       *Pool
	LocalCount   int
	MaxStack     int
	Params       []Param
	ExceptionTbl []ExceptionEntry
	LineMap      []LineEntry
	// Variadic is true when arguments past len(Params) are collected
	// into a trailing aggregate instead of discarded (§4.7).
	Variadic bool
}

// NewCompiledFunction builds an empty function shell that a compiler
// pass fills in incrementally via a Builder.
func NewCompiledFunction(name string) *CompiledFunction {
	return &CompiledFunction{Name: name, Consts: NewPool()}
}

// LineForPC returns the source line recorded for pc, or 0 if the line
// map has no entry at or before pc.
func (f *CompiledFunction) LineForPC(pc int) int {
	line := 0
	for _, e := range f.LineMap {
		if e.PC > pc {
			break
		}
		line = e.Line
	}
	return line
}

// HandlerFor returns the first exception-table entry covering
// instruction offset pc whose catch class matches classIdx (-1
// matches any), or false if none applies.
func (f *CompiledFunction) HandlerFor(pc int, classIdx int) (ExceptionEntry, bool) {
	for _, e := range f.ExceptionTbl {
		if pc < e.TryStart || pc >= e.TryEnd {
			continue
		}
		if e.CatchClass == -1 || e.CatchClass == classIdx {
			return e, true
		}
	}
	return ExceptionEntry{}, false
}

// Instructions decodes the whole code buffer into a slice, mainly for
// the disassembler and tests; the VM itself decodes lazily at pc.
func (f *CompiledFunction) Instructions() []Instruction {
	out := make([]Instruction, 0, len(f.Code)/instrSizeBytes)
	for pc := 0; pc+instrSizeBytes <= len(f.Code); pc += instrSizeBytes {
		out = append(out, Decode(f.Code, pc))
	}
	return out
}

// Builder accumulates instructions and label fixups for one function
// body, mirroring the teacher's single forward pass with a label
// table for resolving forward jumps (§4.6).
type Builder struct {
	fn     *CompiledFunction
	labels map[int]int // label id -> instruction index, once defined
	fixups map[int][]fixup

	nextLabel int
}

type fixup struct {
	instrIndex int
	operand    int // 1 or 2
}

func NewBuilder(name string) *Builder {
	return &Builder{
		fn:     NewCompiledFunction(name),
		labels: make(map[int]int),
		fixups: make(map[int][]fixup),
	}
}

// InternConst adds c to the function's constant pool, deduplicating
// against any identical entry already present.
func (b *Builder) InternConst(c Const) int { return b.fn.Consts.Intern(c) }

// NextIndex returns the instruction index the next Emit call will
// occupy, for callers (such as the compiler's exception-table builder)
// that need a position without emitting anything yet.
func (b *Builder) NextIndex() int { return len(b.fn.Code) / instrSizeBytes }

// Emit appends one instruction and returns its instruction index.
func (b *Builder) Emit(i Instruction) int {
	idx := len(b.fn.Code) / instrSizeBytes
	b.fn.Code = i.Encode(b.fn.Code)
	return idx
}

// NewLabel allocates a fresh label id not yet bound to a position.
func (b *Builder) NewLabel() int {
	b.nextLabel++
	return b.nextLabel
}

// BindLabel records that label resolves to the instruction about to
// be emitted next.
func (b *Builder) BindLabel(label int) {
	b.labels[label] = len(b.fn.Code) / instrSizeBytes
}

// EmitJump emits a control-flow instruction whose Operand1 is a
// forward or backward reference to label, resolved by Finish.
func (b *Builder) EmitJump(op Opcode, label int) int {
	idx := b.Emit(Instruction{Op: op})
	if target, ok := b.labels[label]; ok {
		b.patch(idx, 1, int16(target))
		return idx
	}
	b.fixups[label] = append(b.fixups[label], fixup{instrIndex: idx, operand: 1})
	return idx
}

func (b *Builder) patch(instrIndex, operand int, value int16) {
	off := instrIndex * instrSizeBytes
	instr := Decode(b.fn.Code, off)
	if operand == 1 {
		instr.Operand1 = value
	} else {
		instr.Operand2 = value
	}
	encoded := instr.Encode(nil)
	copy(b.fn.Code[off:off+instrSizeBytes], encoded)
}

// Finish resolves all pending label fixups against their bound
// positions and returns the completed function. It panics if any
// label was referenced but never bound, a compiler-internal
// invariant violation rather than a recoverable condition.
func (b *Builder) Finish() *CompiledFunction {
	for label, refs := range b.fixups {
		target, ok := b.labels[label]
		if !ok {
			panic("bytecode: unresolved label")
		}
		for _, f := range refs {
			b.patch(f.instrIndex, f.operand, int16(target))
		}
	}
	return b.fn
}
