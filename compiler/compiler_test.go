package compiler_test

import (
	"testing"

	"github.com/mxphp/corevm/ast"
	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// litNode is a test front-end's KindLiteral node, supplying a constant
// value the compiler package's literalValuer interface picks up.
type litNode struct {
	ast.GenericNode
	val bytecode.Const
}

func lit(id int, v bytecode.Const) *litNode {
	n := &litNode{val: v}
	n.GenericNode = *ast.NewNode(id, ast.KindLiteral, ast.SourceLocation{})
	return n
}

func (l *litNode) LiteralValue() bytecode.Const { return l.val }
func (l *litNode) Accept(v ast.Visitor) error   { return v.VisitLiteral(l) }

// opNode is a test front-end's KindBinOp/KindUnaryOp node.
type opNode struct {
	ast.GenericNode
	op string
}

func bin(id int, op string, lhs, rhs ast.Node) *opNode {
	n := &opNode{op: op}
	n.GenericNode = *ast.NewNode(id, ast.KindBinOp, ast.SourceLocation{}, lhs, rhs)
	return n
}

func (o *opNode) Operator() string          { return o.op }
func (o *opNode) Accept(v ast.Visitor) error { return v.VisitBinOp(o) }

func funcDecl(id int, params []ast.Node, body ast.Node) ast.Node {
	children := append(append([]ast.Node{}, params...), body)
	return ast.NewNode(id, ast.KindFuncDecl, ast.SourceLocation{}, children...)
}

func param(id, internID int) ast.Node {
	return ast.NewNode(id, ast.KindParam, ast.SourceLocation{}).WithIntern(internID)
}

func block(id int, stmts ...ast.Node) ast.Node {
	return ast.NewNode(id, ast.KindBlock, ast.SourceLocation{}, stmts...)
}

func ret(id int, val ast.Node) ast.Node {
	return ast.NewNode(id, ast.KindReturn, ast.SourceLocation{}, val)
}

func varRef(id, internID int) ast.Node {
	return ast.NewNode(id, ast.KindVarRef, ast.SourceLocation{}).WithIntern(internID)
}

func varAssign(id, internID int, val ast.Node) ast.Node {
	return ast.NewNode(id, ast.KindVarAssign, ast.SourceLocation{}, val).WithIntern(internID)
}

func newObj(id int) ast.Node {
	return ast.NewNode(id, ast.KindNewObject, ast.SourceLocation{})
}

func propGet(id int, receiver ast.Node, propIntern int) ast.Node {
	return ast.NewNode(id, ast.KindPropGet, ast.SourceLocation{}, receiver).WithIntern(propIntern)
}

func propSet(id int, receiver, val ast.Node, propIntern int) ast.Node {
	return ast.NewNode(id, ast.KindPropSet, ast.SourceLocation{}, receiver, val).WithIntern(propIntern)
}

func TestCompileSumReturnsConstant(t *testing.T) {
	// function f(): return 1 + 2
	body := block(1, ret(2, bin(3, "+", lit(4, bytecode.IntConst(1)), lit(5, bytecode.IntConst(2)))))
	fn := funcDecl(0, nil, body)

	out, err := compiler.Compile(fn, compiler.DefaultConfig())
	require.NoError(t, err)

	instrs := out.Instructions()
	require.NotEmpty(t, instrs)

	var sawAdd, sawRet bool
	for _, i := range instrs {
		if i.Op == bytecode.OpAddAny {
			sawAdd = true
		}
		if i.Op == bytecode.OpRet {
			sawRet = true
		}
	}
	assert.True(t, sawAdd)
	assert.True(t, sawRet)
}

func TestCompileRejectsNonFuncDeclRoot(t *testing.T) {
	_, err := compiler.Compile(block(0), compiler.DefaultConfig())
	assert.Error(t, err)
}

func TestCompileParamsGetConventions(t *testing.T) {
	body := block(1, ret(2, varRef(3, 10)))
	fn := funcDecl(0, []ast.Node{param(4, 10)}, body)

	out, err := compiler.Compile(fn, compiler.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, out.Params, 1)
	assert.NotEmpty(t, out.Params[0].Convention)
}

func TestCompileVarAssignThenReturn(t *testing.T) {
	body := block(1,
		varAssign(2, 10, lit(3, bytecode.IntConst(5))),
		ret(4, varRef(5, 10)),
	)
	fn := funcDecl(0, nil, body)

	out, err := compiler.Compile(fn, compiler.DefaultConfig())
	require.NoError(t, err)

	var sawStore, sawLoad bool
	for _, i := range out.Instructions() {
		if i.Op == bytecode.OpStoreLocal {
			sawStore = true
		}
		if i.Op == bytecode.OpPushLocal {
			sawLoad = true
		}
	}
	assert.True(t, sawStore)
	assert.True(t, sawLoad)
	assert.Equal(t, 1, out.LocalCount)
}

// TestScalarReplaceEliminatesObjectAllocation exercises §4.8's second
// escape-analysis output directly: a NoEscape object whose fields are
// only ever reached through static PropGet/PropSet on the variable it
// was assigned to compiles with no NEW_OBJ/NEW_STRUCT at all, its
// fields demoted to independent locals instead.
func TestScalarReplaceEliminatesObjectAllocation(t *testing.T) {
	// function f():
	//   p = new Obj()
	//   p.a = 1
	//   p.b = 2
	//   return p.a + p.b
	const pVar, aProp, bProp = 100, 200, 201
	body := block(1,
		varAssign(2, pVar, newObj(3)),
		propSet(4, varRef(5, pVar), lit(6, bytecode.IntConst(1)), aProp),
		propSet(7, varRef(8, pVar), lit(9, bytecode.IntConst(2)), bProp),
		ret(10, bin(11, "+", propGet(12, varRef(13, pVar), aProp), propGet(14, varRef(15, pVar), bProp))),
	)
	fn := funcDecl(0, nil, body)

	out, err := compiler.Compile(fn, compiler.DefaultConfig())
	require.NoError(t, err)

	var sawAdd, sawRet, sawAlloc bool
	storeSlots := map[int16]bool{}
	loadSlots := map[int16]bool{}
	for _, i := range out.Instructions() {
		switch i.Op {
		case bytecode.OpAddAny:
			sawAdd = true
		case bytecode.OpRet:
			sawRet = true
		case bytecode.OpNewObj, bytecode.OpNewStruct:
			sawAlloc = true
		case bytecode.OpStoreLocal:
			storeSlots[i.Operand1] = true
		case bytecode.OpPushLocal:
			loadSlots[i.Operand1] = true
		}
	}
	assert.True(t, sawAdd)
	assert.True(t, sawRet)
	assert.False(t, sawAlloc, "scalar-replaced allocation must not emit NEW_OBJ/NEW_STRUCT")
	assert.Equal(t, 2, out.LocalCount, "p's two fields each get an independent local, p itself needs none")
	assert.Len(t, storeSlots, 2)
	assert.Len(t, loadSlots, 2)
}

// TestScalarReplaceSkippedWhenObjectEscapes confirms a variable that
// is itself read somewhere other than as a PropGet/PropSet receiver -
// here, returned directly - never qualifies for scalar replacement,
// so the allocation still materializes (as a stack-resident
// NEW_STRUCT, since the site is still NoEscape by itself).
func TestScalarReplaceSkippedWhenObjectEscapes(t *testing.T) {
	// function f():
	//   p = new Obj()
	//   p.a = 1
	//   return p
	const pVar, aProp = 100, 200
	body := block(1,
		varAssign(2, pVar, newObj(3)),
		propSet(4, varRef(5, pVar), lit(6, bytecode.IntConst(1)), aProp),
		ret(7, varRef(8, pVar)),
	)
	fn := funcDecl(0, nil, body)

	out, err := compiler.Compile(fn, compiler.DefaultConfig())
	require.NoError(t, err)

	var sawAlloc bool
	for _, i := range out.Instructions() {
		if i.Op == bytecode.OpNewObj || i.Op == bytecode.OpNewStruct {
			sawAlloc = true
		}
	}
	assert.True(t, sawAlloc, "an object returned to the caller cannot be scalar-replaced")
}
