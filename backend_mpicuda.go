package physis

import "fmt"

// MPICUDABuilder implements Builder for the compound distributed +
// device backend (spec §4.6), the deepest part of the system: every
// StencilMap gets three kernel variants — an interior kernel that
// never touches the halo-aware address helper, one per-boundary
// kernel per (dimension, side), and the untransformed kernel kept as
// a fallback — plus a run orchestration that overlaps the boundary
// halo exchange with the interior kernel's execution on a second CUDA
// stream.
//
// It holds a CUDA sub-builder and an MPI sub-builder and explicitly
// forwards most operations to them (spec §9's "compound backends hold
// a sub-builder and explicitly forward"): device addressing and
// launch mechanics come from CUDABuilder, halo-padded local offset
// translation comes from MPIBuilder. Only the operations that actually
// differ for the interior/boundary split — BuildRunKernelFunc,
// BuildRunKernelFuncBody, BuildRunFuncBody — are overridden here.
type MPICUDABuilder struct {
	cuda *CUDABuilder
	mpi  *MPIBuilder
	sess *Session
}

func NewMPICUDABuilder(sess *Session) *MPICUDABuilder {
	return &MPICUDABuilder{cuda: NewCUDABuilder(sess), mpi: NewMPIBuilder(sess), sess: sess}
}

// RegisterGridHalo forwards to the MPI sub-builder: both the local
// offset translation and the interior/boundary split need the same
// halo extent.
func (b *MPICUDABuilder) RegisterGridHalo(gridName string, halo HaloExtent) {
	b.mpi.RegisterGridHalo(gridName, halo)
}

func (b *MPICUDABuilder) BuildGridBaseAddr(grid AstNode, gt *GridType) AstNode {
	return b.cuda.BuildGridBaseAddr(grid, gt)
}

// BuildGridOffset combines the MPI sub-builder's halo-padded local
// addressing with the CUDA sub-builder's device base pointer: the
// arithmetic is MPIBuilder's (local slab, not global), the pointer
// BuildGridGet/BuildGridEmit wrap it around is CUDABuilder's. The
// returned offset expression also carries indexList forward as a
// session attribute, so a later kernel-cloning pass can recover which
// access produced a given get_addr_<T><r>D call (spec §4.6).
func (b *MPICUDABuilder) BuildGridOffset(grid AstNode, gt *GridType, indexExprs []AstNode, indexList *StencilIndexList, isKernel, isPeriodic bool) (AstNode, *TranslationError) {
	offset, terr := b.mpi.BuildGridOffset(grid, gt, indexExprs, indexList, isKernel, isPeriodic)
	if terr != nil {
		return nil, terr
	}
	if indexList != nil {
		b.sess.SetAttr(offset, *indexList)
	}
	return offset, nil
}

// BuildGridGet emits a call to the halo-aware element-address helper
// rather than building the index expression inline — spec §4.6 names
// this helper explicitly (get_addr_<T><r>D) because the interior and
// per-boundary kernel clones need a stable callee identifier to
// redirect. The indexList attribute carried on offset (set by
// BuildGridOffset above) is copied onto the new call so the cloning
// pass in this file can recover it.
func (b *MPICUDABuilder) BuildGridGet(grid AstNode, gt *GridType, offset AstNode, member string) AstNode {
	call := b.addrHelperCall(grid, gt, offset)
	var elem AstNode = NewUnaryExpr(OpDeref, call, idx0Range())
	if member == "" {
		return elem
	}
	return NewSelectorExpr(elem, member, idx0Range())
}

func (b *MPICUDABuilder) BuildGridEmit(grid AstNode, gt *GridType, offset AstNode, member string, value AstNode) AstNode {
	call := b.addrHelperCall(grid, gt, offset)
	var target AstNode = NewUnaryExpr(OpDeref, call, idx0Range())
	if member != "" {
		target = NewSelectorExpr(target, member, idx0Range())
	}
	return NewAssignStmt(target, value, idx0Range())
}

func (b *MPICUDABuilder) addrHelperCall(grid AstNode, gt *GridType, offset AstNode) AstNode {
	rg := idx0Range()
	name := haloAddrHelperName(pointTypeSuffix(gt), gt.Rank)
	call := NewCallExpr(NewIdent(name, rg), []AstNode{grid, offset}, rg)
	if attr, ok := b.sess.Attr(offset); ok {
		b.sess.SetAttr(call, attr)
	}
	return call
}

func (b *MPICUDABuilder) BuildKernelCall(kernel *FuncDecl, args []AstNode) AstNode {
	return b.cuda.BuildKernelCall(kernel, args)
}

func (b *MPICUDABuilder) BuildKernelCallArgList(sm *StencilMap, idxVars []AstNode) []AstNode {
	return b.cuda.BuildKernelCallArgList(sm, idxVars)
}

func (b *MPICUDABuilder) BuildDomainInclusionCheck(dom *Domain, idxVars []AstNode) AstNode {
	return b.cuda.BuildDomainInclusionCheck(dom, idxVars)
}

func (b *MPICUDABuilder) BuildOnDeviceGridType(gt *GridType) *GridType {
	return b.cuda.BuildOnDeviceGridType(gt)
}

func (b *MPICUDABuilder) BuildGridNewFuncForUserType(gt *GridType) *FuncDecl {
	return b.cuda.BuildGridNewFuncForUserType(gt)
}

func (b *MPICUDABuilder) BuildGridCopyinFuncForUserType(gt *GridType) *FuncDecl {
	return b.cuda.BuildGridCopyinFuncForUserType(gt)
}

func (b *MPICUDABuilder) BuildGridCopyoutFuncForUserType(gt *GridType) *FuncDecl {
	return b.cuda.BuildGridCopyoutFuncForUserType(gt)
}

// BuildRunKernelFunc keeps the untransformed kernel itself unchanged
// (it is the fallback variant of spec §4.6's three) and additionally
// builds the interior and per-boundary clones, stashing them as a
// session attribute on sm.Kernel so BuildRunFuncBody's
// orchestration can find them without recomputing the split.
func (b *MPICUDABuilder) BuildRunKernelFunc(sm *StencilMap) *FuncDecl {
	fn := b.cuda.BuildRunKernelFunc(sm)
	variants := b.buildKernelVariants(sm)
	b.sess.SetAttr(sm.Kernel, variants)
	return fn
}

func (b *MPICUDABuilder) BuildRunKernelFuncBody(sm *StencilMap) *Block {
	return b.cuda.BuildRunKernelFuncBody(sm)
}

// kernelVariants is the session attribute BuildRunKernelFunc records:
// the interior clone, one boundary clone per (dimension, side) when
// multi-stream boundary mode is on, and the single-boundary-kernel
// fallback clone when it is off.
type kernelVariants struct {
	Interior      *FuncDecl
	Boundary      map[boundarySide]*FuncDecl
	SingleBoundary *FuncDecl
}

type boundarySide struct {
	Dim  int // zero-based
	Side string // "fw" or "bw"
}

// helperNamesCalledBy collects the set of user-defined function names
// sm.Kernel's body calls, excluding the halo-aware address helper
// itself (it gets its own, separate redirection rule) — spec §4.6:
// "intra-kernel function calls to any defined helper f are rewritten
// to f_inner / f_boundary_<d>_<side>".
func helperNamesCalledBy(fn *FuncDecl, haloHelper string) map[string]bool {
	names := make(map[string]bool)
	Inspect(fn.Body, func(n AstNode) bool {
		ce, ok := n.(*CallExpr)
		if !ok {
			return true
		}
		id, ok := ce.Callee.(*Ident)
		if !ok || id.Name == haloHelper || id.Name == fn.Name {
			return true
		}
		names[id.Name] = true
		return true
	})
	return names
}

// buildKernelVariants builds the interior kernel, every per-boundary
// kernel, and (when mpi_cuda.multistream_boundary is disabled) the
// single fallback boundary kernel, per spec §4.6.
func (b *MPICUDABuilder) buildKernelVariants(sm *StencilMap) kernelVariants {
	gt := b.singleKernelPointType(sm)
	haloHelper := haloAddrHelperName(pointTypeSuffix(gt), gt.Rank)
	noHalo := noHaloAddrHelperName(pointTypeSuffix(gt), gt.Rank)
	helpers := helperNamesCalledBy(sm.Kernel, haloHelper)

	v := kernelVariants{Boundary: make(map[boundarySide]*FuncDecl)}
	v.Interior = b.cloneInteriorKernel(sm, haloHelper, noHalo, helpers)

	if b.sess.Config().GetBool("mpi_cuda.multistream_boundary") {
		for d := 0; d < gt.Rank; d++ {
			for _, side := range []string{"fw", "bw"} {
				bs := boundarySide{Dim: d, Side: side}
				v.Boundary[bs] = b.cloneBoundaryKernel(sm, haloHelper, noHalo, helpers, d, side)
			}
		}
	} else {
		v.SingleBoundary = b.cloneSingleBoundaryKernel(sm)
	}
	return v
}

// singleKernelPointType returns the point type of sm's first grid
// parameter — the helper-name redirection is per point-type/rank, and
// every grid argument of a given parameter position shares that
// parameter's type (C3 resolved and validated this already).
func (b *MPICUDABuilder) singleKernelPointType(sm *StencilMap) *GridType {
	rank, ok := IsKernel(b.sess, sm.Kernel)
	if !ok || rank >= len(sm.Kernel.Params) {
		internalInvariant("MPI+CUDA kernel variant requested for a kernel with no grid parameter", sm.Kernel)
	}
	gt, ok := b.sess.GridType(sm.Kernel.Params[rank].TypeName)
	if !ok {
		internalInvariant("could not resolve grid type for MPI+CUDA kernel variant", sm.Kernel)
	}
	return gt
}

// cloneInteriorKernel builds the clone spec §4.6 names first: calls to
// the halo-aware address helper are redirected to the no-halo
// variant, and intra-kernel helper calls are redirected to their
// _inner suffix.
func (b *MPICUDABuilder) cloneInteriorKernel(sm *StencilMap, haloHelper, noHalo string, helpers map[string]bool) *FuncDecl {
	clone := CloneAst(b.sess, sm.Kernel).(*FuncDecl)
	clone.Name = clone.Name + "_interior"
	RewriteCallNames(clone.Body, func(callee string, ce *CallExpr) (string, bool) {
		if callee == haloHelper {
			return noHalo, true
		}
		if helpers[callee] {
			return innerHelperName(callee), true
		}
		return "", false
	})
	return clone
}

// cloneBoundaryKernel builds the per-(dim,side) clone: a call whose
// recorded access is regular and centered in every dimension other
// than dim (StencilIndexList.CenteredExceptIn) is still guaranteed not
// to touch the halo in that boundary slab's other directions, so it
// may use the no-halo helper there too; every other call keeps the
// halo-aware helper. Intra-kernel helper calls are redirected to their
// boundary-specific suffix, per spec §4.6.
func (b *MPICUDABuilder) cloneBoundaryKernel(sm *StencilMap, haloHelper, noHalo string, helpers map[string]bool, dim int, side string) *FuncDecl {
	clone := CloneAst(b.sess, sm.Kernel).(*FuncDecl)
	clone.Name = boundaryHelperName(clone.Name, dim, side)

	RewriteCallNames(clone.Body, func(callee string, ce *CallExpr) (string, bool) {
		if callee == haloHelper {
			if canUseNoHaloInBoundary(b.sess, ce, dim, side) {
				return noHalo, true
			}
			return "", false
		}
		if helpers[callee] {
			return boundaryHelperName(callee, dim, side), true
		}
		return "", false
	})
	return clone
}

// canUseNoHaloInBoundary reports whether the access recorded on ce (a
// halo-aware address helper call) can be redirected to the no-halo
// variant for the (dim,side) boundary slab: the access must be
// regular and centered in every dimension other than dim, and its
// offset in dim must not be on the same side as the boundary being
// generated — a "bw" clone still needs the halo helper for a
// backward (negative) offset in dim, and an "fw" clone still needs it
// for a forward (positive) one, since those genuinely read into the
// halo this slab owns (spec §4.6).
func canUseNoHaloInBoundary(sess *Session, ce *CallExpr, dim int, side string) bool {
	attr, ok := sess.Attr(ce)
	if !ok {
		return false
	}
	indexList, ok := attr.(StencilIndexList)
	if !ok {
		return false
	}
	if !indexList.CenteredExceptIn(len(indexList.Indexes), dim+1) {
		return false
	}
	offset := indexList.OffsetIn(dim + 1)
	sameSide := (side == "bw" && offset < 0) || (side == "fw" && offset > 0)
	return !sameSide
}

// cloneSingleBoundaryKernel builds the mpi_cuda.multistream_boundary =
// false fallback (spec §4.6: "a single boundary run kernel handles all
// six halo slabs"). The clone keeps the halo-aware address helper
// throughout — every slab genuinely needs it — and relies entirely on
// its launch configuration covering only the InclusionInner(width)
// region rather than an in-body guard: the per-slab iteration bounds
// are a launch-time concern (BuildKernelCallArgList), not a
// kernel-body one, mirroring how the interior/per-boundary split
// already pushes index selection to the caller.
func (b *MPICUDABuilder) cloneSingleBoundaryKernel(sm *StencilMap) *FuncDecl {
	clone := CloneAst(b.sess, sm.Kernel).(*FuncDecl)
	clone.Name = clone.Name + "_boundary_single"
	return clone
}

// BuildRunFuncBody synthesizes spec §4.6's overlap orchestration: for
// each map, start the halo exchange, launch the interior kernel on the
// interior stream immediately (it reads no halo data), launch each
// boundary kernel on its own stream once the corresponding halo region
// has arrived, synchronize both kinds of stream, swap, and reissue the
// exchange for any grid a successor map reads (spec §4.5's rule, via
// the same dependency graph the plain MPI backend uses).
func (b *MPICUDABuilder) BuildRunFuncBody(run *Run) *Block {
	rg := idx0Range()
	dg := newHaloReissueGraph(run)

	var preloop []AstNode
	for _, sm := range run.StencilMaps {
		for _, g := range sm.GridArgs {
			preloop = append(preloop, exchangeBeginCall(g, rg))
		}
	}

	var body []AstNode
	for i, sm := range run.StencilMaps {
		variants, ok := b.sess.Attr(sm.Kernel)
		var kv kernelVariants
		if v, isKV := variants.(kernelVariants); ok && isKV {
			kv = v
		}

		body = append(body, NewExprStmt(NewCallExpr(
			NewIdent(kv.interiorLaunchName(sm), rg), []AstNode{NewIdent("stream_interior", rg)}, rg), rg))

		if kv.SingleBoundary != nil {
			body = append(body, NewExprStmt(NewCallExpr(
				NewIdent(kv.SingleBoundary.Name+"_global", rg), []AstNode{NewIdent("stream_boundary", rg)}, rg), rg))
		} else {
			for _, bs := range sortedBoundarySides(kv.Boundary) {
				fn := kv.Boundary[bs]
				streamName := fmt.Sprintf("stream_boundary_%d_%s", bs.Dim+1, bs.Side)
				body = append(body, NewExprStmt(NewCallExpr(
					NewIdent(fn.Name+"_global", rg), []AstNode{NewIdent(streamName, rg)}, rg), rg))
			}
		}

		body = append(body, NewExprStmt(NewCallExpr(NewIdent("cudaDeviceSynchronize", rg), nil, rg), rg))

		for _, g := range sm.GridArgs {
			body = append(body, NewExprStmt(NewCallExpr(NewIdent("GridSwap", rg), []AstNode{g}, rg), rg))
			if dg.ReissueRequired(i, g) {
				body = append(body, exchangeBeginCall(g, rg))
			}
		}
	}

	stmts := append(preloop, NewForStmt("__ps_i", NewIntLit(0, rg), run.CountExpr, NewBlock(body, rg), rg))
	return NewBlock(stmts, rg)
}

func (kv kernelVariants) interiorLaunchName(sm *StencilMap) string {
	if kv.Interior != nil {
		return kv.Interior.Name + "_global"
	}
	return runKernelFuncName(sm) + "_global"
}

func exchangeBeginCall(grid AstNode, rg SourceRange) AstNode {
	return NewExprStmt(NewCallExpr(NewIdent("LoadRemoteGridRegionAsync", rg), []AstNode{grid}, rg), rg)
}
