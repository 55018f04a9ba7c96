package feedback

import (
	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/value"
)

// arithFamily describes one ANY arithmetic opcode's INT/FLOAT
// specializations, the table both Specialize and Deoptimize consult.
type arithFamily struct {
	genericOp bytecode.Opcode
	intOp     bytecode.Opcode
	floatOp   bytecode.Opcode
}

var arithFamilies = []arithFamily{
	{bytecode.OpAddAny, bytecode.OpAddInt, bytecode.OpAddFloat},
	{bytecode.OpSubAny, bytecode.OpSubInt, bytecode.OpSubFloat},
	{bytecode.OpMulAny, bytecode.OpMulInt, bytecode.OpMulFloat},
	{bytecode.OpDivAny, bytecode.OpDivInt, bytecode.OpDivFloat},
}

// GenericOf returns the ANY-typed opcode a specialized (or already
// generic) arithmetic opcode belongs to, letting the vm package fold
// a possibly-specialized site back to its generic handler after a
// failed guard without duplicating the family table.
func GenericOf(op bytecode.Opcode) (bytecode.Opcode, bool) {
	f, ok := familyOf(op)
	if !ok {
		return op, false
	}
	return f.genericOp, true
}

// IsGenericArith reports whether op is one of the ANY-typed arithmetic
// opcodes feedback.Observe should be fed from.
func IsGenericArith(op bytecode.Opcode) bool {
	f, ok := familyOf(op)
	return ok && op == f.genericOp
}

func familyOf(op bytecode.Opcode) (arithFamily, bool) {
	for _, f := range arithFamilies {
		switch op {
		case f.genericOp, f.intOp, f.floatOp:
			return f, true
		}
	}
	return arithFamily{}, false
}

// Specialize rewrites the ANY arithmetic instruction at pc in fn to
// its INT or FLOAT sibling once its feedback record is ready, per
// §4.7's "background thread (or interpreter, simplified) scans hot
// call sites ... and rewrites the bytecode". Returns false if pc does
// not hold an arithmetic-ANY opcode, the record is not yet ready, or
// the observed tag has no specialized sibling (e.g. strings, which
// keep using the ANY path and OpConcat).
func Specialize(fn *bytecode.CompiledFunction, pc int, rec *Record, threshold int) bool {
	if !rec.ReadyToSpecialize(threshold) {
		return false
	}
	instr := bytecode.Decode(fn.Code, pc)
	family, ok := familyOf(instr.Op)
	if !ok || instr.Op != family.genericOp {
		return false
	}
	var specialized bytecode.Opcode
	switch rec.tag {
	case value.TagInt:
		specialized = family.intOp
	case value.TagFloat:
		specialized = family.floatOp
	default:
		return false
	}
	bytecode.PatchOpcode(fn, pc, specialized)
	rec.MarkSpecialized(rec.tag)
	return true
}

// Deoptimize reverts the instruction at pc to its generic ANY form and
// clears the site's feedback, the contract a GUARD failure triggers
// per §4.7: "the VM reverts the site to the generic opcode, falls back
// to the dynamic-dispatch path for that call, and clears feedback so
// the site can re-learn."
func Deoptimize(fn *bytecode.CompiledFunction, pc int, rec *Record) {
	instr := bytecode.Decode(fn.Code, pc)
	if family, ok := familyOf(instr.Op); ok {
		bytecode.PatchOpcode(fn, pc, family.genericOp)
	}
	rec.Clear()
}

// CheckGuard is the runtime-side half of a specialized site: the VM's
// arithmetic handler calls this before trusting a specialized opcode's
// assumption. On mismatch it deoptimizes in place and reports that the
// caller must fall back to the generic ANY handler for this execution.
func CheckGuard(fn *bytecode.CompiledFunction, pc int, rec *Record, observed value.Tag) (stillSpecialized bool) {
	if !rec.Specialized() {
		return false
	}
	if rec.GuardTag() == observed {
		return true
	}
	Deoptimize(fn, pc, rec)
	return false
}
