// Package bytecode implements the opcode set, fixed-width instruction
// encoding, constant pool, and CompiledFunction format of §4.5.
package bytecode

// Opcode is the 8-bit operation code of a 40-bit instruction
// (opcode:8, operand1:16, operand2:16).
type Opcode uint8

const (
	OpNop Opcode = iota

	// Stack
	OpPushConst
	OpPushLocal
	OpPushGlobal
	OpStoreLocal
	OpStoreGlobal
	OpPop
	OpDup
	OpSwap

	// Arithmetic
	OpAddInt
	OpAddFloat
	OpAddAny
	OpSubInt
	OpSubFloat
	OpSubAny
	OpMulInt
	OpMulFloat
	OpMulAny
	OpDivInt
	OpDivFloat
	OpDivAny
	OpModInt
	OpConcat

	// Comparison
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpIdentical
	OpNotIdent

	// Control
	OpJmp
	OpJz
	OpJnz
	OpCall
	OpRet
	OpCallMethod
	OpCallBuiltin
	OpThrow

	// Objects
	OpNewObj
	OpGetProp
	OpSetProp
	OpGetPropIC
	OpSetPropIC
	OpInstanceOf
	OpClone

	// Arrays
	OpNewArray
	OpGetElem
	OpSetElem
	OpArrayPush
	OpArrayLen

	// Param passing
	OpPassByValue
	OpPassByRef
	OpPassByCOW
	OpPassByMove
	OpCOWCheck
	OpCOWCopy

	// Escape analysis / scalar replacement
	OpNewStruct

	// Safepoints
	OpCheckGC

	opcodeCount
)

// OpcodeCount is the number of defined opcodes, exported so the vm
// package can size its computed-dispatch table without duplicating
// the opcode list.
const OpcodeCount = int(opcodeCount)

var opNames = [opcodeCount]string{
	OpNop:          "nop",
	OpPushConst:    "push_const",
	OpPushLocal:    "push_local",
	OpPushGlobal:   "push_global",
	OpStoreLocal:   "store_local",
	OpStoreGlobal:  "store_global",
	OpPop:          "pop",
	OpDup:          "dup",
	OpSwap:         "swap",
	OpAddInt:       "add_int",
	OpAddFloat:     "add_float",
	OpAddAny:       "add_any",
	OpSubInt:       "sub_int",
	OpSubFloat:     "sub_float",
	OpSubAny:       "sub_any",
	OpMulInt:       "mul_int",
	OpMulFloat:     "mul_float",
	OpMulAny:       "mul_any",
	OpDivInt:       "div_int",
	OpDivFloat:     "div_float",
	OpDivAny:       "div_any",
	OpModInt:       "mod_int",
	OpConcat:       "concat",
	OpEq:           "eq",
	OpNeq:          "neq",
	OpLt:           "lt",
	OpLe:           "le",
	OpGt:           "gt",
	OpGe:           "ge",
	OpIdentical:    "identical",
	OpNotIdent:     "not_ident",
	OpJmp:          "jmp",
	OpJz:           "jz",
	OpJnz:          "jnz",
	OpCall:         "call",
	OpRet:          "ret",
	OpCallMethod:   "call_method",
	OpCallBuiltin:  "call_builtin",
	OpThrow:        "throw",
	OpNewObj:       "new_obj",
	OpGetProp:      "get_prop",
	OpSetProp:      "set_prop",
	OpGetPropIC:    "get_prop_ic",
	OpSetPropIC:    "set_prop_ic",
	OpInstanceOf:   "instanceof",
	OpClone:        "clone",
	OpNewArray:     "new_array",
	OpGetElem:      "get_elem",
	OpSetElem:      "set_elem",
	OpArrayPush:    "array_push",
	OpArrayLen:     "array_len",
	OpPassByValue:  "pass_by_value",
	OpPassByRef:    "pass_by_ref",
	OpPassByCOW:    "pass_by_cow",
	OpPassByMove:   "pass_by_move",
	OpCOWCheck:     "cow_check",
	OpCOWCopy:      "cow_copy",
	OpNewStruct:    "new_struct",
	OpCheckGC:      "check_gc",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "unknown"
}
