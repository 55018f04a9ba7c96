package ast_test

import (
	"testing"

	"github.com/mxphp/corevm/ast"
	"github.com/stretchr/testify/assert"
)

type recordingVisitor struct{ seen []ast.Kind }

func (r *recordingVisitor) VisitLiteral(n ast.Node) error    { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitVarRef(n ast.Node) error     { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitVarAssign(n ast.Node) error  { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitBinOp(n ast.Node) error      { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitUnaryOp(n ast.Node) error    { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitCall(n ast.Node) error       { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitMethodCall(n ast.Node) error { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitNewObject(n ast.Node) error  { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitPropGet(n ast.Node) error    { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitPropSet(n ast.Node) error    { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitArrayLit(n ast.Node) error   { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitArrayGet(n ast.Node) error   { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitArraySet(n ast.Node) error   { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitIf(n ast.Node) error         { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitWhile(n ast.Node) error      { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitFor(n ast.Node) error        { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitReturn(n ast.Node) error     { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitThrow(n ast.Node) error      { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitTryCatch(n ast.Node) error   { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitFuncDecl(n ast.Node) error   { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitParam(n ast.Node) error      { r.seen = append(r.seen, n.NodeKind()); return nil }
func (r *recordingVisitor) VisitBlock(n ast.Node) error      { r.seen = append(r.seen, n.NodeKind()); return nil }

func TestAcceptDispatchesByKind(t *testing.T) {
	n := ast.NewNode(1, ast.KindBinOp, ast.SourceLocation{Line: 3})
	v := &recordingVisitor{}
	require := assert.New(t)
	require.NoError(n.Accept(v))
	require.Equal([]ast.Kind{ast.KindBinOp}, v.seen)
}

func TestWalkVisitsChildrenDepthFirst(t *testing.T) {
	leaf1 := ast.NewNode(2, ast.KindLiteral, ast.SourceLocation{})
	leaf2 := ast.NewNode(3, ast.KindLiteral, ast.SourceLocation{})
	root := ast.NewNode(1, ast.KindBinOp, ast.SourceLocation{}, leaf1, leaf2)

	var ids []int
	ast.Walk(root, func(n ast.Node) bool {
		ids = append(ids, n.NodeID())
		return true
	})

	assert.Equal(t, []int{1, 2, 3}, ids)
}

func TestWalkSkipsChildrenWhenCallbackReturnsFalse(t *testing.T) {
	leaf := ast.NewNode(2, ast.KindLiteral, ast.SourceLocation{})
	root := ast.NewNode(1, ast.KindBlock, ast.SourceLocation{}, leaf)

	var ids []int
	ast.Walk(root, func(n ast.Node) bool {
		ids = append(ids, n.NodeID())
		return false
	})

	assert.Equal(t, []int{1}, ids)
}

func TestWithInternSetsInternID(t *testing.T) {
	n := ast.NewNode(1, ast.KindVarRef, ast.SourceLocation{}).WithIntern(42)
	assert.Equal(t, 42, n.InternID())
}
