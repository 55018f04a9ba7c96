package main

// A small fluent AST builder for the demo programs this command runs.
// It plays the role of a front-end here: every node it builds already
// satisfies ast.Node, the same boundary a PHP-syntax parser would hand
// the compiler package through (see compiler_test.go for the same
// pattern used in the compiler package's own tests).

import (
	"github.com/mxphp/corevm/ast"
	"github.com/mxphp/corevm/bytecode"
)

// idGen hands out strictly increasing NodeIDs for one program build so
// every call site and allocation site gets its own type-feedback slot.
type idGen struct{ next int }

func (g *idGen) id() int {
	n := g.next
	g.next++
	return n
}

func loc(line int) ast.SourceLocation {
	return ast.SourceLocation{File: "corevm-demo", Line: line}
}

// litNode supplies the compiler's literalValuer interface for KindLiteral nodes.
type litNode struct {
	ast.GenericNode
	val bytecode.Const
}

func (g *idGen) lit(line int, v bytecode.Const) ast.Node {
	n := &litNode{val: v}
	n.GenericNode = *ast.NewNode(g.id(), ast.KindLiteral, loc(line))
	return n
}

func (l *litNode) LiteralValue() bytecode.Const { return l.val }

// opNode supplies the compiler's operatorNode interface for KindBinOp/KindUnaryOp.
type opNode struct {
	ast.GenericNode
	op string
}

func (g *idGen) bin(line int, op string, lhs, rhs ast.Node) ast.Node {
	n := &opNode{op: op}
	n.GenericNode = *ast.NewNode(g.id(), ast.KindBinOp, loc(line), lhs, rhs)
	return n
}

func (o *opNode) Operator() string { return o.op }

func (g *idGen) varRef(line, internID int) ast.Node {
	return ast.NewNode(g.id(), ast.KindVarRef, loc(line)).WithIntern(internID)
}

func (g *idGen) varAssign(line, internID int, val ast.Node) ast.Node {
	return ast.NewNode(g.id(), ast.KindVarAssign, loc(line), val).WithIntern(internID)
}

func (g *idGen) param(line, internID int) ast.Node {
	return ast.NewNode(g.id(), ast.KindParam, loc(line)).WithIntern(internID)
}

func (g *idGen) block(line int, stmts ...ast.Node) ast.Node {
	return ast.NewNode(g.id(), ast.KindBlock, loc(line), stmts...)
}

func (g *idGen) forStmt(line int, init, cond, post, body ast.Node) ast.Node {
	return ast.NewNode(g.id(), ast.KindFor, loc(line), init, cond, post, body)
}

func (g *idGen) ret(line int, val ast.Node) ast.Node {
	if val == nil {
		return ast.NewNode(g.id(), ast.KindReturn, loc(line))
	}
	return ast.NewNode(g.id(), ast.KindReturn, loc(line), val)
}

func (g *idGen) funcDecl(line int, params []ast.Node, body ast.Node) ast.Node {
	children := append(append([]ast.Node{}, params...), body)
	return ast.NewNode(g.id(), ast.KindFuncDecl, loc(line), children...)
}

// newObject's InternID must equal the id the caller registered the
// class under in vm.Classes(), the same convention CALL relies on for
// vm.Functions().
func (g *idGen) newObject(line, classID int) ast.Node {
	return ast.NewNode(g.id(), ast.KindNewObject, loc(line)).WithIntern(classID)
}

// propSet/propGet's InternID is the property name's id in vm.Names().
func (g *idGen) propSet(line, nameID int, recv, val ast.Node) ast.Node {
	return ast.NewNode(g.id(), ast.KindPropSet, loc(line), recv, val).WithIntern(nameID)
}

func (g *idGen) propGet(line, nameID int, recv ast.Node) ast.Node {
	return ast.NewNode(g.id(), ast.KindPropGet, loc(line), recv).WithIntern(nameID)
}

// call's InternID is the callee's id in vm.Functions(); callee is
// never itself evaluated, so a placeholder literal stands in for the
// required-but-unused first child.
func (g *idGen) call(line, fnID int, args ...ast.Node) ast.Node {
	kids := append([]ast.Node{g.lit(line, bytecode.NullConst())}, args...)
	return ast.NewNode(g.id(), ast.KindCall, loc(line), kids...).WithIntern(fnID)
}
