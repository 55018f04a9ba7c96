// Package compiler lowers the ast package's front-end-agnostic node
// stream into bytecode.CompiledFunction, embedding the three
// optimization decisions §4.6 calls for: escape-analysis-driven
// allocation, parameter-passing convention selection, and stable
// call-site tagging for the VM's type-feedback specializer.
//
// Grounded on the teacher's grammar_compiler.go: a single forward pass
// over the AST via Accept/visitor dispatch, accumulating instructions
// into a cursor-tracked buffer and resolving forward references
// through a label table (here, bytecode.Builder's label mechanism
// instead of the teacher's hand-rolled openAddrs map, since
// bytecode.Builder already generalizes that bookkeeping for the wider
// opcode set this spec needs).
package compiler

import (
	"fmt"
	"sort"

	"github.com/mxphp/corevm/ast"
	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/cow"
)

// Config mirrors the teacher's CompilerConfig, trading its PEG-only
// Optimize knob for one that also controls whether escape analysis is
// allowed to emit NEW_STRUCT/scalar-replacement decisions.
type Config struct {
	Optimize         int
	ScalarReplace    bool
	StackAllocBudget int // bytes; §4.8 default is 4096 per function frame
}

func DefaultConfig() Config {
	return Config{Optimize: 1, ScalarReplace: true, StackAllocBudget: 4096}
}

// literalValuer is implemented by a front-end's concrete KindLiteral
// node to supply the constant value; nodes that don't implement it
// compile to a PUSH_CONST of null.
type literalValuer interface {
	LiteralValue() bytecode.Const
}

// operatorNode is implemented by a front-end's KindBinOp/KindUnaryOp
// node to name the operator ("+", "-", "==", ...).
type operatorNode interface {
	Operator() string
}

// calleeNode optionally marks a call site as resolving to a statically
// known in-module function; emitCall consults it when choosing argument
// mutability for the passing convention. Escape analysis does not use
// it: it treats a call whose InternID is 0 as an unknown callee.
type calleeNode interface {
	CalleeKnown() bool
}

type localSlot struct{ slot int }

type compiler struct {
	cfg      Config
	b        *bytecode.Builder
	analysis *Analysis
	scalars  *scalarPlan
	locals   map[int]localSlot // InternID -> slot
	stack    int               // current simulated operand-stack depth
	maxStack int
	excTbl   []bytecode.ExceptionEntry
}

// Compile lowers fn (a KindFuncDecl node) into a CompiledFunction.
// Children of fn of kind KindParam declare parameters in order;
// exactly one KindBlock child is the body.
func Compile(fn ast.Node, cfg Config) (*bytecode.CompiledFunction, error) {
	if fn.NodeKind() != ast.KindFuncDecl {
		return nil, fmt.Errorf("compiler: Compile expects a KindFuncDecl root, got %v", fn.NodeKind())
	}

	name := fmt.Sprintf("fn%d", fn.NodeID())
	c := &compiler{
		cfg:      cfg,
		b:        bytecode.NewBuilder(name),
		analysis: NewAnalysis(fn),
		locals:   make(map[int]localSlot),
	}
	if cfg.ScalarReplace {
		c.scalars = buildScalarPlan(fn, c.analysis)
	} else {
		c.scalars = &scalarPlan{replacedVar: map[int]int{}, fields: map[int]map[int]bool{}}
	}

	var body ast.Node
	var params []ast.Node
	for _, child := range fn.Children() {
		switch child.NodeKind() {
		case ast.KindParam:
			params = append(params, child)
		case ast.KindBlock:
			body = child
		}
	}

	fnParams := make([]bytecode.Param, 0, len(params))
	for i, p := range params {
		c.locals[p.InternID()] = localSlot{slot: i}
		fnParams = append(fnParams, bytecode.Param{
			Name:       fmt.Sprintf("arg%d", p.InternID()),
			Convention: c.paramConvention().String(),
		})
	}

	if body != nil {
		if err := c.emitStmt(body); err != nil {
			return nil, err
		}
	}
	c.emit(bytecode.OpPushConst, c.constIndex(bytecode.NullConst()), 0)
	c.emit(bytecode.OpRet, 0, 0)

	out := c.b.Finish()
	out.Params = fnParams
	out.LocalCount = len(c.locals)
	out.MaxStack = c.maxStack
	out.ExceptionTbl = c.excTbl
	return out, nil
}

// paramConvention decides a parameter's calling convention. Without a
// type-inference pass feeding it concrete size/mutability facts it
// defaults to the dynamic-size case of §4.9's table, which is exactly
// the "size unknown statically" condition the spec says must compile
// to a runtime COW_CHECK.
func (c *compiler) paramConvention() cow.Convention {
	return decideConvention(paramShape{sizeBytes: -1, mutable: true})
}

func (c *compiler) constIndex(k bytecode.Const) int { return c.b.InternConst(k) }

func (c *compiler) emit(op bytecode.Opcode, o1, o2 int) {
	c.b.Emit(bytecode.Instruction{Op: op, Operand1: int16(o1), Operand2: int16(o2)})
}

func (c *compiler) push() {
	c.stack++
	if c.stack > c.maxStack {
		c.maxStack = c.stack
	}
}

func (c *compiler) pop() { c.stack-- }

// callSiteID returns a stable id for the given AST node, reusing its
// front-end-assigned NodeID directly: a front-end never reuses ids,
// so they already satisfy §4.6's "stable call-site id" requirement
// without the compiler needing a second numbering scheme.
func (c *compiler) callSiteID(n ast.Node) int { return n.NodeID() }

func (c *compiler) slotFor(internID int) int {
	if s, ok := c.locals[internID]; ok {
		return s.slot
	}
	slot := len(c.locals)
	c.locals[internID] = localSlot{slot: slot}
	return slot
}

// scalarSlot returns the frame-local slot standing in for a
// scalar-replaced allocation's given field, allocating it from the
// same slot space as every other local via a synthetic negative key
// so no real InternID can collide with it.
func (c *compiler) scalarSlot(allocID, propIntern int) int {
	return c.slotFor(-(allocID*1000003 + propIntern + 1))
}

// emitStmt lowers a statement node (anything that doesn't necessarily
// leave a value on the stack) and any of its statement children.
func (c *compiler) emitStmt(n ast.Node) error {
	switch n.NodeKind() {
	case ast.KindBlock:
		for _, s := range n.Children() {
			if err := c.emitStmt(s); err != nil {
				return err
			}
		}
		return nil

	case ast.KindVarAssign:
		kids := n.Children()
		if len(kids) != 1 {
			return fmt.Errorf("compiler: var_assign expects 1 child, got %d", len(kids))
		}
		if kids[0].NodeKind() == ast.KindNewObject {
			if allocID, ok := c.scalars.allocFor(n.InternID()); ok && allocID == kids[0].NodeID() {
				return c.emitScalarizedAlloc(allocID)
			}
		}
		if err := c.emitExpr(kids[0]); err != nil {
			return err
		}
		slot := c.slotFor(n.InternID())
		c.emit(bytecode.OpStoreLocal, slot, 0)
		c.pop()
		return nil

	case ast.KindIf:
		return c.emitIf(n)

	case ast.KindWhile:
		return c.emitWhile(n)

	case ast.KindFor:
		return c.emitFor(n)

	case ast.KindReturn:
		kids := n.Children()
		if len(kids) == 1 {
			if err := c.emitExpr(kids[0]); err != nil {
				return err
			}
			c.pop()
		} else {
			c.emit(bytecode.OpPushConst, c.constIndex(bytecode.NullConst()), 0)
		}
		c.emit(bytecode.OpRet, 0, 0)
		return nil

	case ast.KindThrow:
		kids := n.Children()
		if len(kids) != 1 {
			return fmt.Errorf("compiler: throw expects 1 child")
		}
		if err := c.emitExpr(kids[0]); err != nil {
			return err
		}
		c.pop()
		c.emit(bytecode.OpThrow, 0, 0)
		return nil

	case ast.KindTryCatch:
		return c.emitTryCatch(n)

	case ast.KindPropSet, ast.KindArraySet:
		if err := c.emitExpr(n); err != nil {
			return err
		}
		c.emit(bytecode.OpPop, 0, 0)
		c.pop()
		return nil

	default:
		// Expression used as a statement: evaluate and discard.
		if err := c.emitExpr(n); err != nil {
			return err
		}
		c.emit(bytecode.OpPop, 0, 0)
		c.pop()
		return nil
	}
}

func (c *compiler) emitIf(n ast.Node) error {
	kids := n.Children()
	if len(kids) < 2 {
		return fmt.Errorf("compiler: if expects cond+then[+else]")
	}
	if err := c.emitExpr(kids[0]); err != nil {
		return err
	}
	c.pop()
	elseLabel := c.b.NewLabel()
	c.b.EmitJump(bytecode.OpJz, elseLabel)
	if err := c.emitStmt(kids[1]); err != nil {
		return err
	}
	if len(kids) == 3 {
		endLabel := c.b.NewLabel()
		c.b.EmitJump(bytecode.OpJmp, endLabel)
		c.b.BindLabel(elseLabel)
		if err := c.emitStmt(kids[2]); err != nil {
			return err
		}
		c.b.BindLabel(endLabel)
	} else {
		c.b.BindLabel(elseLabel)
	}
	return nil
}

func (c *compiler) emitWhile(n ast.Node) error {
	kids := n.Children()
	if len(kids) != 2 {
		return fmt.Errorf("compiler: while expects cond+body")
	}
	top := c.b.NewLabel()
	end := c.b.NewLabel()
	c.b.BindLabel(top)
	c.emit(bytecode.OpCheckGC, 0, 0) // back-edge safepoint, per §4.7
	if err := c.emitExpr(kids[0]); err != nil {
		return err
	}
	c.pop()
	c.b.EmitJump(bytecode.OpJz, end)
	if err := c.emitStmt(kids[1]); err != nil {
		return err
	}
	c.b.EmitJump(bytecode.OpJmp, top)
	c.b.BindLabel(end)
	return nil
}

func (c *compiler) emitFor(n ast.Node) error {
	kids := n.Children()
	if len(kids) != 4 {
		return fmt.Errorf("compiler: for expects init+cond+post+body")
	}
	if err := c.emitStmt(kids[0]); err != nil {
		return err
	}
	top := c.b.NewLabel()
	end := c.b.NewLabel()
	c.b.BindLabel(top)
	c.emit(bytecode.OpCheckGC, 0, 0)
	if err := c.emitExpr(kids[1]); err != nil {
		return err
	}
	c.pop()
	c.b.EmitJump(bytecode.OpJz, end)
	if err := c.emitStmt(kids[3]); err != nil {
		return err
	}
	if err := c.emitStmt(kids[2]); err != nil {
		return err
	}
	c.b.EmitJump(bytecode.OpJmp, top)
	c.b.BindLabel(end)
	return nil
}

// emitTryCatch lowers a KindTryCatch node into a guarded region plus a
// handler, recording the range in the function's exception table
// rather than in-line jump instructions, matching §4.7's "raised
// exception walks the current frame's exception table" unwind model.
func (c *compiler) emitTryCatch(n ast.Node) error {
	kids := n.Children()
	if len(kids) != 2 {
		return fmt.Errorf("compiler: try_catch expects try+catch blocks")
	}
	tryStart := c.instrIndex()
	if err := c.emitStmt(kids[0]); err != nil {
		return err
	}
	tryEnd := c.instrIndex()

	end := c.b.NewLabel()
	c.b.EmitJump(bytecode.OpJmp, end)

	handlerPC := c.instrIndex()
	if err := c.emitStmt(kids[1]); err != nil {
		return err
	}
	c.b.BindLabel(end)

	c.excTbl = append(c.excTbl, bytecode.ExceptionEntry{
		TryStart:   tryStart,
		TryEnd:     tryEnd,
		HandlerPC:  handlerPC,
		CatchClass: -1,
	})
	return nil
}

func (c *compiler) instrIndex() int { return c.b.NextIndex() }

// emitScalarizedAlloc replaces a NoEscape object allocation with direct
// initialization of its per-field locals, eliminating NEW_OBJ/
// NEW_STRUCT entirely per §4.8's scalar-replacement case. Each field
// starts null, matching an object's unset-property default.
func (c *compiler) emitScalarizedAlloc(allocID int) error {
	props := c.scalars.fieldsOf(allocID)
	ids := make([]int, 0, len(props))
	for propIntern := range props {
		ids = append(ids, propIntern)
	}
	sort.Ints(ids)
	for _, propIntern := range ids {
		c.emit(bytecode.OpPushConst, c.constIndex(bytecode.NullConst()), 0)
		c.push()
		c.emit(bytecode.OpStoreLocal, c.scalarSlot(allocID, propIntern), 0)
		c.pop()
	}
	return nil
}
