package physis

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

// TestKernelVariantFuncsOnlyAppliesToMPICUDA verifies the MPI+CUDA-only
// special case in translate.go's kernelVariantFuncs: every other
// Builder implementation, including one that records no expectations
// at all, must yield a nil variant list without the type switch ever
// reaching into the builder.
func TestKernelVariantFuncsOnlyAppliesToMPICUDA(t *testing.T) {
	sess := NewSession(nil, nil)
	rg := SourceRange{}
	kernel := NewFuncDecl("k", []*Param{NewParam("x", "int", rg)}, NewBlock(nil, rg), rg)
	sm := NewStencilMap(sess, kernel, NewCallExpr(NewIdent("PSStencilMap", rg), nil, rg), NewIdent("d", rg), nil)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mock := NewMockBuilder(ctrl)

	out := kernelVariantFuncs(sess, mock, sm)
	require.Nil(t, out, "a non-*MPICUDABuilder builder must never produce kernel variants")
}

// TestKernelVariantFuncsRealMPICUDABuilder exercises the positive path
// against the concrete MPI+CUDA builder (MockBuilder cannot stand in
// here since MPICUDABuilder's sub-builders are concrete struct
// fields, not Builder-typed): it marks and analyzes the kernel, calls
// BuildRunKernelFunc directly, then confirms kernelVariantFuncs
// surfaces whatever BuildRunKernelFunc stashed.
func TestKernelVariantFuncsRealMPICUDABuilder(t *testing.T) {
	sess := NewSession(nil, nil)
	rg := SourceRange{}

	gt := NewPrimitiveGridType("GridF", 1, TypeFloat)
	sess.RegisterGridType(gt)

	get := NewCallExpr(NewIdent("PSGridGet", rg), []AstNode{
		NewIdent("g", rg),
		NewBinaryExpr(OpAdd, NewIdent("x", rg), NewIntLit(1, rg), rg),
	}, rg)
	kernelBody := NewBlock([]AstNode{NewVarDecl("v", "float", get, rg)}, rg)
	kernel := NewFuncDecl("k", []*Param{
		NewParam("x", "int", rg),
		NewParam("g", "GridF", rg),
	}, kernelBody, rg)

	builder := NewMPICUDABuilder(sess)

	gridIdent := NewIdent("g", rg)
	sm := NewStencilMap(sess, kernel, NewCallExpr(NewIdent("PSStencilMap", rg), nil, rg), NewIdent("d", rg), []AstNode{gridIdent})
	MarkKernel(sess, kernel, 1)
	analysis, terr := AnalyzeKernel(sess, kernel)
	require.Nil(t, terr)
	sm.RangeByParam = analysis.RangeByParam

	_ = builder.BuildRunKernelFunc(sm)

	out := kernelVariantFuncs(sess, builder, sm)
	require.NotEmpty(t, out, "the MPI+CUDA builder must have stashed at least an interior/boundary variant")
}
