package bytecode

import "encoding/binary"

// instrSizeBytes is the fixed width of every instruction: 1 byte
// opcode + 2x 2-byte operands, per §4.5's "fixed 40-bit instruction".
const instrSizeBytes = 5

// Instruction is a single decoded 40-bit instruction: opcode plus two
// 16-bit operands. Operand1/Operand2 are interpreted per opcode as
// indices into the constant pool, the local-slot table, or as jump
// targets. A jump target is the absolute instruction index of the
// destination, not an offset relative to the jump.
type Instruction struct {
	Op       Opcode
	Operand1 int16
	Operand2 int16
}

// Encode appends the 5-byte encoding of i to buf and returns the
// extended buffer, following the teacher's little-endian
// decodeU16/writeU16 convention generalized to signed 16-bit operands.
func (i Instruction) Encode(buf []byte) []byte {
	var tmp [instrSizeBytes]byte
	tmp[0] = byte(i.Op)
	binary.LittleEndian.PutUint16(tmp[1:3], uint16(i.Operand1))
	binary.LittleEndian.PutUint16(tmp[3:5], uint16(i.Operand2))
	return append(buf, tmp[:]...)
}

// Decode reads one instruction starting at offset pc in code.
func Decode(code []byte, pc int) Instruction {
	return Instruction{
		Op:       Opcode(code[pc]),
		Operand1: int16(binary.LittleEndian.Uint16(code[pc+1 : pc+3])),
		Operand2: int16(binary.LittleEndian.Uint16(code[pc+3 : pc+5])),
	}
}

// SizeInBytes is constant across every instruction because the
// encoding is fixed-width, unlike the teacher's variable-width ASM
// whose IChar/IRange pick between 16/32-bit forms.
func (i Instruction) SizeInBytes() int { return instrSizeBytes }

func (i Instruction) Name() string { return i.Op.String() }

// PatchOpcode rewrites the opcode byte of the instruction at pc
// without touching its operands or the buffer's length, the narrow
// in-place mutation the specializer and deoptimizer use to quicken or
// revert a call site (§4.7).
func PatchOpcode(f *CompiledFunction, pc int, op Opcode) {
	f.Code[pc] = byte(op)
}

