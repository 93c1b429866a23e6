package physis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildScalarKernel returns a one-dimensional kernel `func k(x int, g
// GridF) { v float = PSGridGet(g, x+1); PSGridEmit(g, v); }` over a
// primitive-float grid type, registered and marked as a kernel of
// rank 1 on sess.
func buildScalarKernel(t *testing.T, sess *Session) (*FuncDecl, *GridType) {
	t.Helper()
	rg := SourceRange{}

	gt := NewPrimitiveGridType("GridF", 1, TypeFloat)
	sess.RegisterGridType(gt)

	get := NewCallExpr(NewIdent("PSGridGet", rg), []AstNode{
		NewIdent("g", rg),
		NewBinaryExpr(OpAdd, NewIdent("x", rg), NewIntLit(1, rg), rg),
	}, rg)
	vDecl := NewVarDecl("v", "float", get, rg)
	emit := NewExprStmt(NewCallExpr(NewIdent("PSGridEmit", rg), []AstNode{
		NewIdent("g", rg), NewIdent("v", rg),
	}, rg), rg)

	body := NewBlock([]AstNode{vDecl, emit}, rg)
	fn := NewFuncDecl("k", []*Param{
		NewParam("x", "int", rg),
		NewParam("g", "GridF", rg),
	}, body, rg)

	MarkKernel(sess, fn, 1)
	return fn, gt
}

func TestIsKernelMarkKernel(t *testing.T) {
	sess := NewSession(nil, nil)
	fn := NewFuncDecl("f", nil, NewBlock(nil, SourceRange{}), SourceRange{})

	_, ok := IsKernel(sess, fn)
	require.False(t, ok)

	MarkKernel(sess, fn, 2)
	rank, ok := IsKernel(sess, fn)
	require.True(t, ok)
	require.Equal(t, 2, rank)
}

func TestAnalyzeKernelCallFormOffset(t *testing.T) {
	sess := NewSession(nil, nil)
	fn, _ := buildScalarKernel(t, sess)

	analysis, terr := AnalyzeKernel(sess, fn)
	require.Nil(t, terr)
	require.Equal(t, 1, analysis.Rank)

	rng, ok := analysis.RangeByParam[0]
	require.True(t, ok)
	require.Equal(t, 1, rng.Halo.Fw[0], "get at x+1 should derive a forward halo of 1")
	require.Equal(t, 0, rng.Halo.Bw[0], "emit at the center point contributes no backward halo")
	require.False(t, rng.HasIrregular())
}

func TestAnalyzeKernelIsCached(t *testing.T) {
	sess := NewSession(nil, nil)
	fn, _ := buildScalarKernel(t, sess)

	first, terr := AnalyzeKernel(sess, fn)
	require.Nil(t, terr)
	second, terr := AnalyzeKernel(sess, fn)
	require.Nil(t, terr)

	require.Same(t, first, second, "AnalyzeKernel must return the identical cached object, not merely an equal one")
}

func TestAnalyzeKernelInvalidation(t *testing.T) {
	sess := NewSession(nil, nil)
	fn, _ := buildScalarKernel(t, sess)

	first, terr := AnalyzeKernel(sess, fn)
	require.Nil(t, terr)

	sess.InvalidateKernel(fn)

	second, terr := AnalyzeKernel(sess, fn)
	require.Nil(t, terr)
	require.NotSame(t, first, second, "invalidation must force recomputation")
}

func TestAnalyzeKernelRejectsIrregularArity(t *testing.T) {
	sess := NewSession(nil, nil)
	rg := SourceRange{}

	gt := NewPrimitiveGridType("GridF", 2, TypeFloat)
	sess.RegisterGridType(gt)

	get := NewCallExpr(NewIdent("PSGridGet", rg), []AstNode{
		NewIdent("g", rg),
		NewIdent("x", rg),
	}, rg) // rank 2 grid, only one index supplied
	body := NewBlock([]AstNode{NewExprStmt(get, rg)}, rg)
	fn := NewFuncDecl("k", []*Param{
		NewParam("x", "int", rg),
		NewParam("g", "GridF", rg),
	}, body, rg)
	MarkKernel(sess, fn, 1)

	_, terr := AnalyzeKernel(sess, fn)
	require.NotNil(t, terr)
	require.Equal(t, ErrNonAffineOffset, terr.Kind)
}
