package compiler

import (
	"fmt"

	"github.com/mxphp/corevm/ast"
	"github.com/mxphp/corevm/bytecode"
)

var binOpTable = map[string]bytecode.Opcode{
	"+":   bytecode.OpAddAny,
	"-":   bytecode.OpSubAny,
	"*":   bytecode.OpMulAny,
	"/":   bytecode.OpDivAny,
	"%":   bytecode.OpModInt,
	".":   bytecode.OpConcat,
	"==":  bytecode.OpEq,
	"!=":  bytecode.OpNeq,
	"<":   bytecode.OpLt,
	"<=":  bytecode.OpLe,
	">":   bytecode.OpGt,
	">=":  bytecode.OpGe,
	"===": bytecode.OpIdentical,
	"!==": bytecode.OpNotIdent,
}

// emitExpr lowers an expression node, leaving exactly one value on the
// operand stack.
func (c *compiler) emitExpr(n ast.Node) error {
	switch n.NodeKind() {
	case ast.KindLiteral:
		k := bytecode.NullConst()
		if lv, ok := n.(literalValuer); ok {
			k = lv.LiteralValue()
		}
		c.emit(bytecode.OpPushConst, c.constIndex(k), 0)
		c.push()
		return nil

	case ast.KindVarRef:
		slot := c.slotFor(n.InternID())
		c.emit(bytecode.OpPushLocal, slot, 0)
		c.push()
		return nil

	case ast.KindVarAssign:
		// Assignment used as an expression (`$x = $y = 1`): duplicate
		// the value before the store so the assignment itself yields
		// the assigned value.
		kids := n.Children()
		if len(kids) != 1 {
			return fmt.Errorf("compiler: var_assign expects 1 child")
		}
		if err := c.emitExpr(kids[0]); err != nil {
			return err
		}
		slot := c.slotFor(n.InternID())
		c.emit(bytecode.OpDup, 0, 0)
		c.push()
		c.emit(bytecode.OpStoreLocal, slot, 0)
		c.pop()
		return nil

	case ast.KindBinOp:
		return c.emitBinOp(n)

	case ast.KindUnaryOp:
		kids := n.Children()
		if len(kids) != 1 {
			return fmt.Errorf("compiler: unary_op expects 1 child")
		}
		if err := c.emitExpr(kids[0]); err != nil {
			return err
		}
		// Unary minus lowers to `0 - x`; logical not has no direct
		// opcode in §4.5's table, so it compiles to an EQ against
		// false, both keeping the opcode set small and letting the
		// ANY comparison handler do the coercion.
		op := "-"
		if on, ok := n.(operatorNode); ok {
			op = on.Operator()
		}
		switch op {
		case "-":
			c.emit(bytecode.OpPushConst, c.constIndex(bytecode.IntConst(0)), 0)
			c.push()
			c.emit(bytecode.OpSwap, 0, 0)
			c.emit(bytecode.OpSubAny, c.callSiteID(n), 0)
			c.pop()
		case "!":
			c.emit(bytecode.OpPushConst, c.constIndex(bytecode.BoolConst(false)), 0)
			c.push()
			c.emit(bytecode.OpEq, c.callSiteID(n), 0)
			c.pop()
		}
		return nil

	case ast.KindCall:
		return c.emitCall(n, bytecode.OpCall)

	case ast.KindMethodCall:
		return c.emitCall(n, bytecode.OpCallMethod)

	case ast.KindNewObject:
		return c.emitAlloc(n, bytecode.OpNewObj, bytecode.OpNewStruct)

	case ast.KindArrayLit:
		kids := n.Children()
		if err := c.emitAlloc(n, bytecode.OpNewArray, bytecode.OpNewStruct); err != nil {
			return err
		}
		for _, el := range kids {
			c.emit(bytecode.OpDup, 0, 0)
			c.push()
			if err := c.emitExpr(el); err != nil {
				return err
			}
			c.emit(bytecode.OpArrayPush, 0, 0)
			c.pop()
			c.pop()
		}
		return nil

	case ast.KindPropGet:
		kids := n.Children()
		if len(kids) != 1 {
			return fmt.Errorf("compiler: prop_get expects receiver")
		}
		if kids[0].NodeKind() == ast.KindVarRef {
			if allocID, ok := c.scalars.allocFor(kids[0].InternID()); ok {
				c.emit(bytecode.OpPushLocal, c.scalarSlot(allocID, n.InternID()), 0)
				c.push()
				return nil
			}
		}
		if err := c.emitExpr(kids[0]); err != nil {
			return err
		}
		c.emit(bytecode.OpGetPropIC, n.InternID(), c.callSiteID(n))
		return nil

	case ast.KindPropSet:
		kids := n.Children()
		if len(kids) != 2 {
			return fmt.Errorf("compiler: prop_set expects receiver+value")
		}
		if kids[0].NodeKind() == ast.KindVarRef {
			if allocID, ok := c.scalars.allocFor(kids[0].InternID()); ok {
				if err := c.emitExpr(kids[1]); err != nil {
					return err
				}
				c.emit(bytecode.OpDup, 0, 0)
				c.push()
				c.emit(bytecode.OpStoreLocal, c.scalarSlot(allocID, n.InternID()), 0)
				c.pop()
				return nil
			}
		}
		if err := c.emitExpr(kids[0]); err != nil {
			return err
		}
		if err := c.emitExpr(kids[1]); err != nil {
			return err
		}
		c.emit(bytecode.OpSetPropIC, n.InternID(), c.callSiteID(n))
		c.pop()
		return nil

	case ast.KindArrayGet:
		kids := n.Children()
		if len(kids) != 2 {
			return fmt.Errorf("compiler: array_get expects array+index")
		}
		if err := c.emitExpr(kids[0]); err != nil {
			return err
		}
		if err := c.emitExpr(kids[1]); err != nil {
			return err
		}
		c.emit(bytecode.OpGetElem, 0, 0)
		c.pop()
		return nil

	case ast.KindArraySet:
		kids := n.Children()
		if len(kids) != 3 {
			return fmt.Errorf("compiler: array_set expects array+index+value")
		}
		if err := c.emitExpr(kids[0]); err != nil {
			return err
		}
		if err := c.emitExpr(kids[1]); err != nil {
			return err
		}
		if err := c.emitExpr(kids[2]); err != nil {
			return err
		}
		c.emit(bytecode.OpSetElem, 0, 0)
		c.pop()
		c.pop()
		return nil

	default:
		return fmt.Errorf("compiler: %v is not a valid expression node", n.NodeKind())
	}
}

func (c *compiler) emitBinOp(n ast.Node) error {
	kids := n.Children()
	if len(kids) != 2 {
		return fmt.Errorf("compiler: bin_op expects 2 children")
	}
	if err := c.emitExpr(kids[0]); err != nil {
		return err
	}
	if err := c.emitExpr(kids[1]); err != nil {
		return err
	}
	op := "+"
	if on, ok := n.(operatorNode); ok {
		op = on.Operator()
	}
	code, ok := binOpTable[op]
	if !ok {
		return fmt.Errorf("compiler: unknown operator %q", op)
	}
	c.emit(code, c.callSiteID(n), 0)
	c.pop()
	return nil
}

// emitCall lowers a call or method-call node. Convention opcodes
// (PASS_BY_*) are emitted per argument ahead of the call itself, per
// §4.6's "corresponding PASS_* opcode emitted at call sites".
func (c *compiler) emitCall(n ast.Node, op bytecode.Opcode) error {
	kids := n.Children()
	if len(kids) == 0 {
		return fmt.Errorf("compiler: call expects a callee child")
	}
	args := kids[1:]
	known := false
	if cn, ok := n.(calleeNode); ok {
		known = cn.CalleeKnown()
	}
	for _, a := range args {
		if err := c.emitExpr(a); err != nil {
			return err
		}
		conv := decideConvention(paramShape{sizeBytes: -1, mutable: !known})
		c.emitPassOpcode(conv)
	}
	c.emit(op, n.InternID(), c.callSiteID(n))
	for range args {
		c.pop()
	}
	c.push()
	return nil
}

func (c *compiler) emitPassOpcode(conv interface{ String() string }) {
	switch conv.String() {
	case "by_value":
		c.emit(bytecode.OpPassByValue, 0, 0)
	case "by_const_ref":
		c.emit(bytecode.OpPassByRef, 0, 0)
	case "by_cow":
		c.emit(bytecode.OpPassByCOW, 0, 0)
	case "by_move":
		c.emit(bytecode.OpPassByMove, 0, 0)
	default:
		c.emit(bytecode.OpCOWCheck, 0, 0)
	}
}

// emitAlloc emits the allocation instruction for a NewObject/ArrayLit
// site, honoring the compiler's escape-analysis decision: with
// ScalarReplace on, every NoEscape site gets NEW_STRUCT instead of a
// heap NEW_OBJ/NEW_ARRAY. No allocation size and no per-frame budget is
// checked; Config.StackAllocBudget is not read here.
func (c *compiler) emitAlloc(n ast.Node, heapOp, stackOp bytecode.Opcode) error {
	state := c.analysis.StateOf(n.NodeID())
	op := heapOp
	if c.cfg.ScalarReplace && state == NoEscape {
		op = stackOp
	}
	c.emit(op, n.InternID(), 0)
	c.push()
	return nil
}
