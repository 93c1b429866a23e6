package physis

import (
	"fmt"
	"math"
)

// HaloBuffer describes one dimension's halo ring for a distributed
// grid. Spec §4.5: "Halo buffers are allocated for dimensions
// 0..rank-2; the slowest dimension needs no separate buffer because
// its halo lies contiguously at the ends of the element array."
type HaloBuffer struct {
	Dim    int
	Fw, Bw int
}

// HaloBuffersForGrid returns the halo buffers a distributed grid of
// the given rank needs, sized from halo.
func HaloBuffersForGrid(rank int, halo HaloExtent) []HaloBuffer {
	bufs := make([]HaloBuffer, 0, rank-1)
	for d := 0; d < rank-1; d++ {
		bufs = append(bufs, HaloBuffer{Dim: d, Fw: halo.Fw[d], Bw: halo.Bw[d]})
	}
	return bufs
}

// MPIBuilder implements Builder for the distributed-memory backend
// (spec §4.5): each process owns a local slab of every grid plus a
// halo ring, and offsets must be translated from the kernel's global
// iteration index into an offset within the local, halo-padded
// buffer.
type MPIBuilder struct {
	sess *Session

	// haloByGrid records each grid's halo extent, keyed by its
	// argument identifier name, so BuildGridOffset can translate a
	// global index into the local halo-padded buffer's coordinate
	// system without threading the extent through every call.
	// Populated by translate.go once C3's stencil range for the grid
	// is known.
	haloByGrid map[string]HaloExtent
}

func NewMPIBuilder(sess *Session) *MPIBuilder {
	return &MPIBuilder{sess: sess, haloByGrid: make(map[string]HaloExtent)}
}

// RegisterGridHalo installs the halo extent for the grid bound to
// gridName, to be consulted by BuildGridOffset.
func (b *MPIBuilder) RegisterGridHalo(gridName string, halo HaloExtent) {
	b.haloByGrid[gridName] = halo
}

func (b *MPIBuilder) haloFor(grid AstNode, rank int) HaloExtent {
	if id, ok := grid.(*Ident); ok {
		if h, ok := b.haloByGrid[id.Name]; ok {
			return h
		}
	}
	return NewHaloExtent(rank)
}

func (b *MPIBuilder) BuildGridBaseAddr(grid AstNode, gt *GridType) AstNode {
	return NewCallExpr(NewIdent("__PSGridGetLocalBaseAddr", idx0Range()), []AstNode{grid}, idx0Range())
}

// BuildGridOffset translates the global iteration index into an
// offset within the local, halo-padded buffer: each dimension's index
// is first shifted by the backward halo width (the buffer stores
// `bw[d]` halo cells before the local slab begins), then the usual
// x-fastest tower is built against the local (halo-inclusive) size,
// not the grid's global logical size (spec §4.5, "local/global index
// translation").
func (b *MPIBuilder) BuildGridOffset(grid AstNode, gt *GridType, indexExprs []AstNode, indexList *StencilIndexList, isKernel, isPeriodic bool) (AstNode, *TranslationError) {
	if len(indexExprs) != gt.Rank {
		return nil, newTranslationError(b.sess, ErrNonAffineOffset, idx0Range(), "BuildGridOffset index count does not match grid rank")
	}
	halo := b.haloFor(grid, gt.Rank)
	rg := idx0Range()

	shifted := make([]AstNode, len(indexExprs))
	for d, idx := range indexExprs {
		shifted[d] = NewBinaryExpr(OpAdd, idx, NewIntLit(halo.Bw[d], rg), rg)
	}

	dimFn := func(d int) AstNode { return localDimCall(grid, d, halo) }
	return buildLinearOffsetWithDimFn(shifted, isPeriodic, dimFn), nil
}

// localDimCall returns the local, halo-padded size of dimension d:
// PSGridDim(g,d) plus that dimension's forward and backward halo
// width.
func localDimCall(grid AstNode, d int, halo HaloExtent) AstNode {
	rg := idx0Range()
	global := gridDimCall(grid, d)
	padded := halo.Fw[d] + halo.Bw[d]
	if padded == 0 {
		return global
	}
	return NewBinaryExpr(OpAdd, global, NewIntLit(padded, rg), rg)
}

func (b *MPIBuilder) BuildGridGet(grid AstNode, gt *GridType, offset AstNode, member string) AstNode {
	addr := b.BuildGridBaseAddr(grid, gt)
	var elem AstNode = NewIndexExpr(addr, offset, idx0Range())
	if member == "" {
		return elem
	}
	return NewSelectorExpr(elem, member, idx0Range())
}

func (b *MPIBuilder) BuildGridEmit(grid AstNode, gt *GridType, offset AstNode, member string, value AstNode) AstNode {
	addr := b.BuildGridBaseAddr(grid, gt)
	var target AstNode = NewIndexExpr(addr, offset, idx0Range())
	if member != "" {
		target = NewSelectorExpr(target, member, idx0Range())
	}
	return NewAssignStmt(target, value, idx0Range())
}

func (b *MPIBuilder) BuildKernelCall(kernel *FuncDecl, args []AstNode) AstNode {
	return NewCallExpr(NewIdent(kernel.Name, idx0Range()), args, idx0Range())
}

func (b *MPIBuilder) BuildKernelCallArgList(sm *StencilMap, idxVars []AstNode) []AstNode {
	return buildKernelCallArgList(sm, idxVars)
}

func (b *MPIBuilder) BuildDomainInclusionCheck(dom *Domain, idxVars []AstNode) AstNode {
	return buildDomainInclusionCheck(dom, idxVars)
}

func (b *MPIBuilder) BuildRunKernelFunc(sm *StencilMap) *FuncDecl {
	rg := idx0Range()
	param := NewParam("s", sm.RecordTypeName+"*", rg)
	body := b.BuildRunKernelFuncBody(sm)
	return NewFuncDecl(runKernelFuncName(sm), []*Param{param}, body, rg)
}

// BuildRunKernelFuncBody emits the same outer-to-inner loop nest as
// the reference backend (the local slab is iterated identically to a
// single-process domain; only the element addressing differs, which
// lives in BuildGridOffset).
func (b *MPIBuilder) BuildRunKernelFuncBody(sm *StencilMap) *Block {
	return (&ReferenceBuilder{sess: b.sess}).BuildRunKernelFuncBody(sm)
}

func (b *MPIBuilder) BuildOnDeviceGridType(gt *GridType) *GridType { return gt }

func (b *MPIBuilder) BuildGridNewFuncForUserType(gt *GridType) *FuncDecl {
	return (&ReferenceBuilder{sess: b.sess}).BuildGridNewFuncForUserType(gt)
}

func (b *MPIBuilder) BuildGridCopyinFuncForUserType(gt *GridType) *FuncDecl {
	return (&ReferenceBuilder{sess: b.sess}).copyFunc(gt, "Copyin")
}

func (b *MPIBuilder) BuildGridCopyoutFuncForUserType(gt *GridType) *FuncDecl {
	return (&ReferenceBuilder{sess: b.sess}).copyFunc(gt, "Copyout")
}

// BuildRunFuncBody synthesizes the per-run driver of spec §4.5:
// pre-loop halo exchange for every grid argument of every map, then
// per iteration: run kernel, swap written grids, and reissue halo
// exchange for any grid a successor map reads.
func (b *MPIBuilder) BuildRunFuncBody(run *Run) *Block {
	rg := idx0Range()
	dg := newHaloReissueGraph(run)

	var preloop []AstNode
	for _, sm := range run.StencilMaps {
		for _, g := range sm.GridArgs {
			preloop = append(preloop, exchangeCall(g, rg))
		}
	}

	var body []AstNode
	for i, sm := range run.StencilMaps {
		body = append(body, NewExprStmt(NewCallExpr(NewIdent(runKernelFuncName(sm), rg), []AstNode{NewIdent("s_"+sm.Kernel.Name, rg)}, rg), rg))
		for _, g := range sm.GridArgs {
			body = append(body, NewExprStmt(NewCallExpr(NewIdent("GridSwap", rg), []AstNode{g}, rg), rg))
			if dg.ReissueRequired(i, g) {
				body = append(body, exchangeCall(g, rg))
			}
		}
	}

	stmts := append(preloop, NewForStmt("__ps_i", NewIntLit(0, rg), run.CountExpr, NewBlock(body, rg), rg))
	return NewBlock(stmts, rg)
}

func exchangeCall(grid AstNode, rg SourceRange) AstNode {
	return NewExprStmt(NewCallExpr(NewIdent("LoadRemoteGridRegion", rg), []AstNode{grid}, rg), rg)
}

// ReductionOp enumerates the operators PSReduceGrid<T> supports (spec
// §6).
type ReductionOp int

const (
	ReduceSum ReductionOp = iota
	ReduceMax
	ReduceMin
	ReduceProd
)

func (op ReductionOp) String() string {
	return map[ReductionOp]string{ReduceSum: "sum", ReduceMax: "max", ReduceMin: "min", ReduceProd: "prod"}[op]
}

// ReductionIdentity returns the type-correct identity element for op
// over a primitive type, per spec §4.5 ("the type-correct identity
// (0 for sum, ±∞ for min/max)"). Integer families use the widest
// representable sentinel in place of true infinity.
func ReductionIdentity(op ReductionOp, t PrimitiveType) (float64, *TranslationError) {
	isFloat := t == TypeFloat || t == TypeDouble
	switch op {
	case ReduceSum:
		return 0, nil
	case ReduceProd:
		return 1, nil
	case ReduceMax:
		if isFloat {
			return math.Inf(-1), nil
		}
		return -math.MaxInt64, nil
	case ReduceMin:
		if isFloat {
			return math.Inf(1), nil
		}
		return math.MaxInt64, nil
	default:
		return 0, &TranslationError{Kind: ErrUnsupportedReduction, Detail: "unknown reduction operator"}
	}
}

// BuildReduceGridFunc synthesizes `PSReduceGrid<T>(out, g, count)`
// for one operator op fixed at build time: walk only the local
// interior (offset by the halo backward width, per
// spec §4.5), folding with op using ReductionIdentity, returning the
// partial value and local element count for the runtime's final
// all-reduce.
func (b *MPIBuilder) BuildReduceGridFunc(gt *GridType, op ReductionOp) (*FuncDecl, *TranslationError) {
	if gt.Kind != PointPrimitive {
		return nil, newTranslationError(b.sess, ErrUnsupportedReduction, idx0Range(), "reduction over a record point type is unimplemented")
	}
	rg := idx0Range()
	gParam := NewParam("g", gt.Name, rg)
	outParam := NewParam("out", gt.Primitive.String()+"*", rg)
	countParam := NewParam("count", "long*", rg)

	identity, terr := ReductionIdentity(op, gt.Primitive)
	if terr != nil {
		return nil, terr
	}

	accumDecl := NewVarDecl("__ps_accum", gt.Primitive.String(), floatLitOrInt(identity, gt.Primitive), rg)
	countDecl := NewVarDecl("__ps_count", "long", NewIntLit(0, rg), rg)

	body := NewBlock([]AstNode{
		accumDecl,
		countDecl,
		NewExprStmt(NewCallExpr(NewIdent("__PSReduceLocalInterior", rg),
			[]AstNode{NewIdent("g", rg), NewIdent(op.String(), rg), NewIdent("&__ps_accum", rg), NewIdent("&__ps_count", rg)}, rg), rg),
		NewAssignStmt(NewUnaryExpr(OpDeref, NewIdent("out", rg), rg), NewIdent("__ps_accum", rg), rg),
		NewAssignStmt(NewUnaryExpr(OpDeref, NewIdent("count", rg), rg), NewIdent("__ps_count", rg), rg),
	}, rg)

	return NewFuncDecl(fmt.Sprintf("PSReduceGrid%s", gt.Primitive.String()), []*Param{outParam, gParam, countParam}, body, rg), nil
}

func floatLitOrInt(v float64, t PrimitiveType) AstNode {
	rg := idx0Range()
	if t == TypeFloat || t == TypeDouble {
		return NewFloatLit(v, rg)
	}
	return NewIntLit(int(v), rg)
}
