package physis

// Builder is the single polymorphic interface every concrete backend
// realizes (spec §4.2). It is the *only* mutation surface kernels and
// maps are rewritten through — C5 through C8 never touch an AST node
// directly, only through one of these operations. A compound backend
// (C8) holds a sub-builder and forwards most operations to it while
// overriding a handful (spec §9, "deeply inherited translator
// classes" redesigned as "a backend enum plus an interface ... compound
// backends hold a sub-builder and explicitly forward").
type Builder interface {
	// BuildGridBaseAddr returns the expression for the base address of
	// grid's element buffer.
	BuildGridBaseAddr(grid AstNode, gt *GridType) AstNode

	// BuildGridOffset implements the contract in spec §4.2: an integer
	// expression that is the linear element offset into grid's buffer,
	// canonical x-fastest layout, wrapping every index modulo its
	// dimension size first when isPeriodic. indexList may be nil for
	// conservative emission (e.g. a boundary-kernel fallback path that
	// has no statically known access shape).
	BuildGridOffset(grid AstNode, gt *GridType, indexExprs []AstNode, indexList *StencilIndexList, isKernel, isPeriodic bool) (AstNode, *TranslationError)

	// BuildGridGet returns the expression reading grid at offset,
	// selecting member if grid's point type is a record ("" for a
	// primitive point).
	BuildGridGet(grid AstNode, gt *GridType, offset AstNode, member string) AstNode

	// BuildGridEmit returns the statement writing value into grid at
	// offset, selecting member if applicable.
	BuildGridEmit(grid AstNode, gt *GridType, offset AstNode, member string, value AstNode) AstNode

	// BuildKernelCall returns the call expression invoking kernel with
	// args already in final backend order.
	BuildKernelCall(kernel *FuncDecl, args []AstNode) AstNode

	// BuildKernelCallArgList returns the full argument list for a
	// kernel launch of sm, given the current iteration-index
	// expressions idxVars (already ordered per rank).
	BuildKernelCallArgList(sm *StencilMap, idxVars []AstNode) []AstNode

	// BuildDomainInclusionCheck returns the boolean expression that is
	// true iff idxVars lies within dom's local slab.
	BuildDomainInclusionCheck(dom *Domain, idxVars []AstNode) AstNode

	// BuildRunKernelFunc synthesizes the Run_<map> declaration for sm
	// (its signature and attributes; the body comes from
	// BuildRunKernelFuncBody).
	BuildRunKernelFunc(sm *StencilMap) *FuncDecl

	// BuildRunKernelFuncBody synthesizes the body of sm's run-kernel
	// function.
	BuildRunKernelFuncBody(sm *StencilMap) *Block

	// BuildOnDeviceGridType returns the backend's on-device grid type
	// descriptor derived from gt (identity for backends with no
	// separate device representation).
	BuildOnDeviceGridType(gt *GridType) *GridType

	// BuildGridNewFuncForUserType synthesizes the allocation function
	// for a user-declared record grid type.
	BuildGridNewFuncForUserType(gt *GridType) *FuncDecl

	// BuildGridCopyinFuncForUserType / BuildGridCopyoutFuncForUserType
	// synthesize the host<->device (or host<->file, for the reference
	// backend) transfer functions for a user-declared record grid
	// type.
	BuildGridCopyinFuncForUserType(gt *GridType) *FuncDecl
	BuildGridCopyoutFuncForUserType(gt *GridType) *FuncDecl

	// BuildRunFuncBody synthesizes the body of the top-level run
	// driver for a `run(...)` site: the loop over run.CountExpr
	// invoking each of run.StencilMaps' run-kernel functions in order.
	BuildRunFuncBody(run *Run) *Block
}

// buildLinearOffset is the shared implementation of spec §4.2's
// BuildGridOffset contract over the grid's global logical size: the
// reference and CUDA backends' BuildGridOffset delegate here and only
// differ in the grid-base-address expression wrapped around the
// result (a host pointer for reference, a device pointer for CUDA).
// The MPI backend calls buildLinearOffsetWithDimFn directly with
// halo-shifted indices and halo-padded local sizes.
//
// off = i_1 + i_2·dim_0 + i_3·dim_0·dim_1, with each i_d first
// wrapped as ((i_d + dim_d) mod dim_d) when isPeriodic.
func buildLinearOffset(grid AstNode, gt *GridType, indexExprs []AstNode, isPeriodic bool) AstNode {
	return buildLinearOffsetWithDimFn(indexExprs, isPeriodic, func(d int) AstNode { return gridDimCall(grid, d) })
}

// buildLinearOffsetWithDimFn is buildLinearOffset generalized over
// the per-dimension size expression: the reference and CUDA backends
// supply the grid's global logical size (PSGridDim), while the MPI
// backend (backend_mpi.go) supplies the local, halo-padded slab size
// instead — the arithmetic shape is identical, only the operand the
// tower multiplies by differs.
func buildLinearOffsetWithDimFn(indexExprs []AstNode, isPeriodic bool, dimFn func(d int) AstNode) AstNode {
	wrapped := make([]AstNode, len(indexExprs))
	for d, idx := range indexExprs {
		if isPeriodic {
			wrapped[d] = wrapPeriodicIndex(idx, dimFn(d))
		} else {
			wrapped[d] = idx
		}
	}

	var offset AstNode = wrapped[0]
	for d := 1; d < len(wrapped); d++ {
		tower := wrapped[d]
		for k := 0; k < d; k++ {
			tower = NewBinaryExpr(OpMul, tower, dimFn(k), idx0Range())
		}
		offset = NewBinaryExpr(OpAdd, offset, tower, idx0Range())
	}
	return offset
}

// wrapPeriodicIndex returns ((idx + dim) mod dim), the positive
// remainder rule spec §4.2 requires for periodic accesses.
func wrapPeriodicIndex(idx, dim AstNode) AstNode {
	sum := NewBinaryExpr(OpAdd, idx, dim, idx0Range())
	return NewBinaryExpr(OpMod, sum, dim, idx0Range())
}

// gridDimCall returns the PSGridDim(grid, d) call used as a
// multiplicative tower factor.
func gridDimCall(grid AstNode, d int) AstNode {
	rg := idx0Range()
	callee := NewIdent("PSGridDim", rg)
	return NewCallExpr(callee, []AstNode{grid, NewIntLit(d, rg)}, rg)
}

// idx0Range is the zero-width source range synthesized AST fragments
// carry — they have no position in the original source.
func idx0Range() SourceRange { return SourceRange{} }

// buildKernelCallArgList is the shared argument-ordering logic spec
// §2 and §4.3/§4.4 assume: iteration indices first (in rank order),
// followed by one argument per grid in StencilMap.GridArgs order.
// Backends whose grid arguments need per-backend wrapping (CUDA's
// device descriptor, MPI's id-tagged record) still start from this
// ordering.
func buildKernelCallArgList(sm *StencilMap, idxVars []AstNode) []AstNode {
	args := make([]AstNode, 0, len(idxVars)+len(sm.GridArgs))
	args = append(args, idxVars...)
	args = append(args, sm.GridArgs...)
	return args
}

// buildDomainInclusionCheck is the shared single-process inclusion
// guard: idxVars[d] in [dom.LocalMin[d], dom.LocalMax[d]) for every
// d. CUDA's kernel-launch guard (spec §4.4) and the MPI/MPI+CUDA
// backends' plain (non-overlap) guards all reduce to this.
func buildDomainInclusionCheck(dom *Domain, idxVars []AstNode) AstNode {
	rg := idx0Range()
	var cond AstNode
	for d, idx := range idxVars {
		ge := NewBinaryExpr(OpGe, idx, NewIntLit(dom.LocalMin[d], rg), rg)
		lt := NewBinaryExpr(OpLt, idx, NewIntLit(dom.LocalMax[d], rg), rg)
		inDim := NewBinaryExpr(OpAnd, ge, lt, rg)
		if cond == nil {
			cond = inDim
		} else {
			cond = NewBinaryExpr(OpAnd, cond, inDim, rg)
		}
	}
	return cond
}
