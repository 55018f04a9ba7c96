package compiler

import "github.com/mxphp/corevm/ast"

// scalarPlan records the second of §4.8's two escape-analysis outputs:
// scalar replacement. Where emitAlloc's NEW_STRUCT path still leaves a
// single stack-resident value behind, a scalarPlan entry eliminates
// the allocation outright and demotes each of its fields to its own
// local slot, so a NoEscape object used only as a fixed set of named
// fields compiles to plain PushLocal/StoreLocal pairs with no
// NEW_OBJ/NEW_STRUCT at all.
//
// A variable qualifies when it is assigned exactly once, as a
// statement, directly from a KindNewObject whose allocation site
// resolved NoEscape, and every other appearance of that variable in
// the function body is the receiver of a PropGet/PropSet - no
// aliasing, no passing the object itself to a call, array, return, or
// another variable.
type scalarPlan struct {
	replacedVar map[int]int          // var InternID -> allocation NodeID
	fields      map[int]map[int]bool // allocation NodeID -> set of property InternIDs touched
}

func (p *scalarPlan) allocFor(varIntern int) (int, bool) {
	id, ok := p.replacedVar[varIntern]
	return id, ok
}

func (p *scalarPlan) fieldsOf(allocID int) map[int]bool {
	return p.fields[allocID]
}

// buildScalarPlan walks fn's body once, mirroring emitStmt/emitExpr's
// own statement/expression split so that a KindVarAssign's eligibility
// depends on whether it appears in statement position (the only place
// emitStmt's KindVarAssign case fires) rather than as a nested
// expression value, since a nested assignment needs the allocation's
// value to actually materialize on the stack.
func buildScalarPlan(fn ast.Node, a *Analysis) *scalarPlan {
	candidates := make(map[int]int)      // var InternID -> allocation NodeID
	assignCount := make(map[int]int)     // var InternID -> # of KindVarAssign targeting it
	fields := make(map[int]map[int]bool) // var InternID -> set of property InternIDs touched
	aliased := make(map[int]bool)

	record := func(varIntern, propIntern int) {
		m, ok := fields[varIntern]
		if !ok {
			m = make(map[int]bool)
			fields[varIntern] = m
		}
		m[propIntern] = true
	}

	var walkExpr func(n ast.Node)
	var walkStmt func(n ast.Node)

	walkExpr = func(n ast.Node) {
		switch n.NodeKind() {
		case ast.KindVarRef:
			aliased[n.InternID()] = true
			return

		case ast.KindVarAssign:
			// Assignment used as an expression value: the allocation
			// must materialize, so disqualify outright.
			assignCount[n.InternID()]++
			aliased[n.InternID()] = true
			for _, c := range n.Children() {
				walkExpr(c)
			}
			return

		case ast.KindPropGet:
			kids := n.Children()
			if len(kids) == 1 && kids[0].NodeKind() == ast.KindVarRef {
				record(kids[0].InternID(), n.InternID())
				return
			}
			for _, c := range kids {
				walkExpr(c)
			}
			return

		case ast.KindPropSet:
			kids := n.Children()
			if len(kids) == 2 && kids[0].NodeKind() == ast.KindVarRef {
				record(kids[0].InternID(), n.InternID())
				walkExpr(kids[1])
				return
			}
			for _, c := range kids {
				walkExpr(c)
			}
			return
		}
		for _, c := range n.Children() {
			walkExpr(c)
		}
	}

	walkStmt = func(n ast.Node) {
		switch n.NodeKind() {
		case ast.KindBlock:
			for _, c := range n.Children() {
				walkStmt(c)
			}

		case ast.KindVarAssign:
			kids := n.Children()
			assignCount[n.InternID()]++
			if len(kids) == 1 {
				if kids[0].NodeKind() == ast.KindNewObject {
					candidates[n.InternID()] = kids[0].NodeID()
				}
				walkExpr(kids[0])
			}

		case ast.KindIf:
			kids := n.Children()
			if len(kids) >= 1 {
				walkExpr(kids[0])
			}
			if len(kids) >= 2 {
				walkStmt(kids[1])
			}
			if len(kids) == 3 {
				walkStmt(kids[2])
			}

		case ast.KindWhile:
			kids := n.Children()
			if len(kids) == 2 {
				walkExpr(kids[0])
				walkStmt(kids[1])
			}

		case ast.KindFor:
			kids := n.Children()
			if len(kids) == 4 {
				walkStmt(kids[0])
				walkExpr(kids[1])
				walkStmt(kids[2])
				walkStmt(kids[3])
			}

		case ast.KindReturn, ast.KindThrow:
			for _, c := range n.Children() {
				walkExpr(c)
			}

		case ast.KindTryCatch:
			kids := n.Children()
			if len(kids) == 2 {
				walkStmt(kids[0])
				walkStmt(kids[1])
			}

		case ast.KindPropSet, ast.KindArraySet:
			walkExpr(n)

		default:
			walkExpr(n)
		}
	}

	var body ast.Node
	for _, c := range fn.Children() {
		if c.NodeKind() == ast.KindBlock {
			body = c
		}
	}
	if body != nil {
		walkStmt(body)
	}

	plan := &scalarPlan{
		replacedVar: make(map[int]int),
		fields:      make(map[int]map[int]bool),
	}
	for varIntern, allocID := range candidates {
		if assignCount[varIntern] != 1 || aliased[varIntern] {
			continue
		}
		if a.StateOf(allocID) != NoEscape {
			continue
		}
		plan.replacedVar[varIntern] = allocID
		plan.fields[allocID] = fields[varIntern]
	}
	return plan
}
