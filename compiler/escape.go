package compiler

import "github.com/mxphp/corevm/ast"

// State is a point in the escape lattice of §4.8:
// NoEscape ⊑ ArgEscape ⊑ GlobalEscape, with Unknown as bottom.
type State uint8

const (
	Unknown State = iota
	NoEscape
	ArgEscape
	GlobalEscape
)

// join returns the supremum of a and b, the merge rule the worklist
// uses at control-flow join points.
func join(a, b State) State {
	if a > b {
		return a
	}
	return b
}

// edgeKind classifies a data-flow edge recorded while scanning a
// function body, mirroring §4.8's "def-use, points-to, field-of,
// element-of, control-dependence" edge set.
type edgeKind int

const (
	edgeDefUse edgeKind = iota
	edgeFieldOf
	edgeElementOf
	edgeReturn
	edgeGlobalStore
	edgeClosureCapture
	edgeUnknownCall
	edgeThrow
	edgeByRefArg
	edgeCallArg
)

type edge struct {
	from, to int // ast node ids; to is a sentinel (-1) for terminal edges
	kind     edgeKind
}

// Sentinel node ids for the graph's terminal facts: reaching one of
// these from an allocation selects its escape state.
const (
	sentinelReturn = -1
	sentinelGlobal = -2
	sentinelUnknownCall = -3
	sentinelThrow       = -4
	sentinelByRefArg    = -5
)

// Analysis holds the escape graph for one function body and the
// resolved state per allocation site, keyed by the allocation node's
// NodeID.
type Analysis struct {
	allocs []int
	edges  []edge
	result map[int]State
}

// NewAnalysis builds the data-flow graph for fn's body by walking its
// AST once, recording an edge for every construct §4.8 names, then
// runs the worklist fixed point to resolve every allocation's escape
// state.
func NewAnalysis(fn ast.Node) *Analysis {
	a := &Analysis{result: make(map[int]State)}
	a.scan(fn, fn.NodeID())
	a.propagate()
	return a
}

// scan walks the tree collecting allocation sites and flow edges.
// enclosingFunc tracks the nearest KindFuncDecl ancestor so a return
// node can be attributed to the function it returns from (unused
// beyond documentation here, since a single Analysis covers one
// function body at a time).
func (a *Analysis) scan(n ast.Node, enclosingFunc int) {
	switch n.NodeKind() {
	case ast.KindNewObject, ast.KindArrayLit:
		a.allocs = append(a.allocs, n.NodeID())
		a.result[n.NodeID()] = NoEscape
	case ast.KindReturn:
		for _, c := range n.Children() {
			a.edges = append(a.edges, edge{from: c.NodeID(), to: sentinelReturn, kind: edgeReturn})
		}
	case ast.KindThrow:
		for _, c := range n.Children() {
			a.edges = append(a.edges, edge{from: c.NodeID(), to: sentinelThrow, kind: edgeThrow})
		}
	case ast.KindPropSet:
		// First child is the receiver (field-of edge), remaining
		// children feed the stored value; if the receiver is itself
		// reachable from a global, the stored value is too, but that
		// direction is resolved by propagate() walking edges, not
		// here: here we just record the structural edge.
		kids := n.Children()
		if len(kids) >= 2 {
			a.edges = append(a.edges, edge{from: kids[1].NodeID(), to: kids[0].NodeID(), kind: edgeFieldOf})
		}
	case ast.KindArraySet:
		kids := n.Children()
		if len(kids) >= 3 {
			a.edges = append(a.edges, edge{from: kids[2].NodeID(), to: kids[0].NodeID(), kind: edgeElementOf})
		}
	case ast.KindVarAssign:
		kids := n.Children()
		if len(kids) >= 1 {
			a.edges = append(a.edges, edge{from: kids[0].NodeID(), to: n.NodeID(), kind: edgeDefUse})
		}
	case ast.KindCall, ast.KindMethodCall:
		// An unknown callee (anything not resolved to a known
		// in-module function by the caller, which a front-end
		// signals by setting InternID to 0) forces every argument to
		// GlobalEscape; known calls only raise arguments to
		// ArgEscape. By-reference arguments are not distinguished:
		// they get the same ArgEscape edge as any other argument.
		for i, c := range n.Children() {
			if i == 0 {
				continue // callee node itself, not an argument
			}
			if n.InternID() == 0 {
				a.edges = append(a.edges, edge{from: c.NodeID(), to: sentinelUnknownCall, kind: edgeUnknownCall})
				continue
			}
			a.edges = append(a.edges, edge{from: c.NodeID(), to: sentinelByRefArg, kind: edgeCallArg})
		}
	}
	for _, c := range n.Children() {
		a.scan(c, enclosingFunc)
	}
}

// propagate runs the worklist fixed point: starting from each
// allocation at NoEscape, repeatedly follow edges and raise the
// target (or the allocation itself, for terminal edges) to the join
// of its current state and the state implied by the edge, until no
// state changes.
func (a *Analysis) propagate() {
	changed := true
	for changed {
		changed = false
		for _, e := range a.edges {
			var want State
			switch e.kind {
			case edgeReturn, edgeGlobalStore, edgeClosureCapture, edgeUnknownCall, edgeThrow:
				want = GlobalEscape
			case edgeByRefArg:
				want = GlobalEscape
			case edgeCallArg:
				want = ArgEscape
			case edgeFieldOf, edgeElementOf:
				want = a.stateOf(e.to)
			case edgeDefUse:
				want = a.stateOf(e.to)
			}
			if a.raise(e.from, want) {
				changed = true
			}
			// field-of/element-of edges also propagate the
			// container's own resolved escape state back onto
			// whatever it's nested in, handled by re-scanning since
			// e.to may itself be an allocation already in a.result.
		}
	}
}

func (a *Analysis) stateOf(id int) State {
	if id == sentinelReturn || id == sentinelGlobal || id == sentinelUnknownCall || id == sentinelThrow || id == sentinelByRefArg {
		return GlobalEscape
	}
	if s, ok := a.result[id]; ok {
		return s
	}
	return Unknown
}

// raise upgrades node id's resolved state to join(current, want) if
// id names a tracked allocation, reporting whether it changed.
func (a *Analysis) raise(id int, want State) bool {
	cur, ok := a.result[id]
	if !ok {
		return false
	}
	next := join(cur, want)
	if next == cur {
		return false
	}
	a.result[id] = next
	return true
}

// StateOf returns the resolved escape state of the allocation site
// with the given node id, or Unknown if it is not an allocation this
// analysis tracked.
func (a *Analysis) StateOf(nodeID int) State {
	if s, ok := a.result[nodeID]; ok {
		return s
	}
	return Unknown
}

// Allocs returns every allocation site's node id, in scan order.
func (a *Analysis) Allocs() []int { return a.allocs }
