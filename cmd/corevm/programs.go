package main

// Demo programs exercised by this command, each grounded in a
// different slice of the runtime: arithmetic and control flow
// (counter), inline-cached property access (point), and user-function
// calls with the compiler's pendingConv-derived argument count
// (calldouble). Each is hand-assembled via nodes.go the way a
// front-end would hand the compiler its own parsed AST.

import (
	"fmt"

	"github.com/mxphp/corevm/ast"
	"github.com/mxphp/corevm/bytecode"
	"github.com/mxphp/corevm/compiler"
	"github.com/mxphp/corevm/vm"
)

// program bundles a compiled entry point with whatever registration
// the embedder must perform on a fresh VM before calling it.
type program struct {
	name string
	fn   *bytecode.CompiledFunction
	wire func(m *vm.VM)
}

const (
	internN     = 1
	internI     = 2
	internSum   = 3
	internScale = 4
	internPoint = 5
	internX     = 6
	internY     = 7
	internArg   = 8
)

// buildCounter compiles `function counter(n) { sum = 0; for (i = 0; i
// < n; i = i + 1) sum = sum + i; return sum; }`, summing 0..n-1.
func buildCounter() (*program, error) {
	var g idGen
	n := g.param(1, internN)
	sumInit := g.varAssign(2, internSum, g.lit(2, bytecode.IntConst(0)))
	forInit := g.varAssign(3, internI, g.lit(3, bytecode.IntConst(0)))
	forCond := g.bin(3, "<", g.varRef(3, internI), g.varRef(3, internN))
	forPost := g.varAssign(3, internI, g.bin(3, "+", g.varRef(3, internI), g.lit(3, bytecode.IntConst(1))))
	forBody := g.block(4, g.varAssign(4, internSum, g.bin(4, "+", g.varRef(4, internSum), g.varRef(4, internI))))
	loop := g.forStmt(3, forInit, forCond, forPost, forBody)
	body := g.block(1, sumInit, loop, g.ret(5, g.varRef(5, internSum)))
	decl := g.funcDecl(1, []ast.Node{n}, body)

	fn, err := compiler.Compile(decl, compiler.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("compile counter: %w", err)
	}
	return &program{name: "counter", fn: fn}, nil
}

// buildPoint compiles `function point(scale) { p = new Point(); p.x =
// scale * 2; p.y = scale * 3; return p.x + p.y; }`, exercising
// NEW_OBJ, SET_PROP_IC and GET_PROP_IC through a shared shape.
func buildPoint() (*program, error) {
	var g idGen
	scale := g.param(1, internScale)
	newPoint := g.newObject(2, 0) // Point registered at class id 0
	assignP := g.varAssign(2, internPoint, newPoint)
	setX := g.propSet(3, internX, g.varRef(3, internPoint), g.bin(3, "*", g.varRef(3, internScale), g.lit(3, bytecode.IntConst(2))))
	setY := g.propSet(4, internY, g.varRef(4, internPoint), g.bin(4, "*", g.varRef(4, internScale), g.lit(4, bytecode.IntConst(3))))
	sum := g.bin(5, "+",
		g.propGet(5, internX, g.varRef(5, internPoint)),
		g.propGet(5, internY, g.varRef(5, internPoint)))
	body := g.block(1, assignP, setX, setY, g.ret(5, sum))
	decl := g.funcDecl(1, []ast.Node{scale}, body)

	// Scalar replacement would demote p's fields to plain locals and
	// elide the allocation and the IC opcodes this demo is built around.
	cfg := compiler.DefaultConfig()
	cfg.ScalarReplace = false
	fn, err := compiler.Compile(decl, cfg)
	if err != nil {
		return nil, fmt.Errorf("compile point: %w", err)
	}
	return &program{
		name: "point",
		fn:   fn,
		wire: func(m *vm.VM) {
			m.Names().Register(internX, "x")
			m.Names().Register(internY, "y")
			m.Classes().Register(&vm.Class{Name: "Point", RootShape: 0})
		},
	}, nil
}

// buildCallDouble compiles `function square(arg) { return arg * arg; }`
// and `function calldouble(arg) { return square(arg) + square(arg + 1); }`,
// exercising CALL, FunctionRegistry-by-InternID resolution, and the
// compiler's PASS_BY_* convention opcodes feeding pendingConv's argc.
func buildCallDouble() (*program, error) {
	var gs idGen
	sarg := gs.param(1, internArg)
	sbody := gs.block(1, gs.ret(1, gs.bin(1, "*", gs.varRef(1, internArg), gs.varRef(1, internArg))))
	squareDecl := gs.funcDecl(1, []ast.Node{sarg}, sbody)
	squareFn, err := compiler.Compile(squareDecl, compiler.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("compile square: %w", err)
	}

	var gd idGen
	carg := gd.param(1, internArg)
	callA := gd.call(2, 0, gd.varRef(2, internArg))
	callB := gd.call(2, 0, gd.bin(2, "+", gd.varRef(2, internArg), gd.lit(2, bytecode.IntConst(1))))
	cbody := gd.block(1, gd.ret(2, gd.bin(2, "+", callA, callB)))
	calldoubleDecl := gd.funcDecl(1, []ast.Node{carg}, cbody)
	calldoubleFn, err := compiler.Compile(calldoubleDecl, compiler.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("compile calldouble: %w", err)
	}

	return &program{
		name: "calldouble",
		fn:   calldoubleFn,
		wire: func(m *vm.VM) {
			m.Functions().Register(squareFn)
		},
	}, nil
}

// programs lists every demo by name, built lazily so -asm-only can
// print one without wiring or running the others.
var programs = map[string]func() (*program, error){
	"counter":    buildCounter,
	"point":      buildPoint,
	"calldouble": buildCallDouble,
}
