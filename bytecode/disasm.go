package bytecode

import (
	"fmt"
	"strings"

	"github.com/mxphp/corevm/ascii"
)

// AsmToken classifies a span of disassembly text for theming, mirroring
// the teacher's AsmFormatToken / asmPrinterTheme split between plain and
// highlighted rendering.
type AsmToken int

const (
	AsmNone AsmToken = iota
	AsmComment
	AsmOperator
	AsmOperand
	AsmLiteral
)

var disasmTheme = map[AsmToken]string{
	AsmNone:     ascii.Reset,
	AsmComment:  ascii.DefaultTheme.Comment,
	AsmOperator: ascii.DefaultTheme.Operator,
	AsmOperand:  ascii.DefaultTheme.Operand,
	AsmLiteral:  ascii.DefaultTheme.Literal,
}

type formatFunc func(string, AsmToken) string

// PrettyString renders f's bytecode as plain, uncolored text.
func (f *CompiledFunction) PrettyString() string {
	return f.prettyString(func(s string, _ AsmToken) string { return s })
}

// HighlightPrettyString renders f's bytecode with ANSI theming, for
// interactive disassembly in a terminal.
func (f *CompiledFunction) HighlightPrettyString() string {
	return f.prettyString(func(s string, tok AsmToken) string {
		return disasmTheme[tok] + s + disasmTheme[AsmNone]
	})
}

func (f *CompiledFunction) prettyString(format formatFunc) string {
	var sb strings.Builder
	sb.WriteString(format(fmt.Sprintf("function %s(", f.Name), AsmNone))
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(format(p.Name, AsmOperand))
	}
	sb.WriteString(format(")\n", AsmNone))

	pc := 0
	for pc+instrSizeBytes <= len(f.Code) {
		instr := Decode(f.Code, pc)
		sb.WriteString(format(fmt.Sprintf("%06d  ", pc), AsmComment))
		sb.WriteString(format(instr.Op.String(), AsmOperator))
		if operandArity(instr.Op) >= 1 {
			sb.WriteString(" ")
			sb.WriteString(format(operandString(f, instr.Op, 1, instr.Operand1), AsmOperand))
		}
		if operandArity(instr.Op) >= 2 {
			sb.WriteString(", ")
			sb.WriteString(format(operandString(f, instr.Op, 2, instr.Operand2), AsmOperand))
		}
		sb.WriteString("\n")
		pc += instrSizeBytes
	}
	return sb.String()
}

// operandArity says how many of an instruction's two operand slots are
// semantically meaningful, purely for disassembly readability.
func operandArity(op Opcode) int {
	switch op {
	case OpNop, OpPop, OpDup, OpSwap, OpRet,
		OpAddInt, OpAddFloat, OpAddAny, OpSubInt, OpSubFloat, OpSubAny,
		OpMulInt, OpMulFloat, OpMulAny, OpDivInt, OpDivFloat, OpDivAny,
		OpModInt, OpConcat, OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe,
		OpIdentical, OpNotIdent, OpArrayPush, OpArrayLen, OpClone,
		OpPassByValue, OpPassByRef, OpPassByCOW, OpPassByMove,
		OpCOWCheck, OpCOWCopy, OpCheckGC:
		return 0
	case OpCall, OpCallMethod, OpCallBuiltin, OpGetPropIC, OpSetPropIC:
		return 2
	default:
		return 1
	}
}

func operandString(f *CompiledFunction, op Opcode, slot int, v int16) string {
	if op == OpPushConst && slot == 1 {
		if int(v) < f.Consts.Len() {
			return constString(f.Consts.Get(int(v)))
		}
	}
	return fmt.Sprintf("%d", v)
}

func constString(c Const) string {
	switch c.Kind {
	case ConstNull:
		return "null"
	case ConstBool:
		return fmt.Sprintf("%t", c.B)
	case ConstInt:
		return fmt.Sprintf("%d", c.I)
	case ConstFloat:
		return fmt.Sprintf("%g", c.F)
	case ConstString:
		return fmt.Sprintf("%q", c.S)
	default:
		return "?"
	}
}
