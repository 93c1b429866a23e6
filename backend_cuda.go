package physis

import "fmt"

// CudaBlockConfig is the fixed thread-block shape spec §4.4 assigns
// per map (default 64×4×1, configurable via cuda.block_x/y/z).
type CudaBlockConfig struct {
	X, Y, Z int
}

func cudaBlockConfigFromConfig(cfg *Config) CudaBlockConfig {
	return CudaBlockConfig{
		X: cfg.GetInt("cuda.block_x"),
		Y: cfg.GetInt("cuda.block_y"),
		Z: cfg.GetInt("cuda.block_z"),
	}
}

// CUDABuilder implements Builder for the CUDA backend (spec §4.4):
// kernels become device-callable, grid parameters are rewritten to
// on-device descriptors, and a global launch function is synthesized
// per StencilMap.
type CUDABuilder struct {
	sess *Session

	// hintedKernels tracks, per enclosing function scope, which kernel
	// symbols have already had a cudaFuncSetCacheConfig hint emitted —
	// spec §4.4: "cache the set of already-hinted kernels per function
	// scope to avoid duplicate hints".
	hintedKernels map[string]map[string]bool
}

func NewCUDABuilder(sess *Session) *CUDABuilder {
	return &CUDABuilder{sess: sess, hintedKernels: make(map[string]map[string]bool)}
}

func (b *CUDABuilder) BuildGridBaseAddr(grid AstNode, gt *GridType) AstNode {
	return NewCallExpr(NewIdent("__PSGridGetDevBaseAddr", idx0Range()), []AstNode{grid}, idx0Range())
}

func (b *CUDABuilder) BuildGridOffset(grid AstNode, gt *GridType, indexExprs []AstNode, indexList *StencilIndexList, isKernel, isPeriodic bool) (AstNode, *TranslationError) {
	if len(indexExprs) != gt.Rank {
		return nil, newTranslationError(b.sess, ErrNonAffineOffset, idx0Range(), "BuildGridOffset index count does not match grid rank")
	}
	return buildLinearOffset(grid, gt, indexExprs, isPeriodic), nil
}

func (b *CUDABuilder) BuildGridGet(grid AstNode, gt *GridType, offset AstNode, member string) AstNode {
	addr := b.BuildGridBaseAddr(grid, gt)
	var elem AstNode = NewIndexExpr(addr, offset, idx0Range())
	if member == "" {
		return elem
	}
	return NewSelectorExpr(elem, member, idx0Range())
}

func (b *CUDABuilder) BuildGridEmit(grid AstNode, gt *GridType, offset AstNode, member string, value AstNode) AstNode {
	addr := b.BuildGridBaseAddr(grid, gt)
	var target AstNode = NewIndexExpr(addr, offset, idx0Range())
	if member != "" {
		target = NewSelectorExpr(target, member, idx0Range())
	}
	return NewAssignStmt(target, value, idx0Range())
}

func (b *CUDABuilder) BuildKernelCall(kernel *FuncDecl, args []AstNode) AstNode {
	return NewCallExpr(NewIdent(kernel.Name, idx0Range()), args, idx0Range())
}

func (b *CUDABuilder) BuildKernelCallArgList(sm *StencilMap, idxVars []AstNode) []AstNode {
	return buildKernelCallArgList(sm, idxVars)
}

func (b *CUDABuilder) BuildDomainInclusionCheck(dom *Domain, idxVars []AstNode) AstNode {
	return buildDomainInclusionCheck(dom, idxVars)
}

// BuildRunKernelFunc synthesizes the global (kernel-launchable)
// function per StencilMap, signature `(Domain dom, g_1, id_1, …, g_k,
// id_k)` (spec §4.4).
func (b *CUDABuilder) BuildRunKernelFunc(sm *StencilMap) *FuncDecl {
	rg := idx0Range()
	params := []*Param{NewParam("dom", "Domain", rg)}
	for i, g := range sm.GridArgs {
		name := gridArgParamName(g, i)
		params = append(params, NewParam(name, "__PSGridDev", rg))
		params = append(params, NewParam(name+"_id", "int", rg))
	}
	body := b.BuildRunKernelFuncBody(sm)
	fn := NewFuncDecl(runKernelFuncName(sm)+"_global", params, body, rg)
	b.markDeviceCallable(fn)
	return fn
}

func gridArgParamName(g AstNode, i int) string {
	if id, ok := g.(*Ident); ok {
		return id.Name
	}
	return fmt.Sprintf("g%d", i)
}

// markDeviceCallable records the __global__ marker as a session
// attribute on fn, consulted by the translate.go emission path; the
// AST itself has no notion of storage-class keywords.
func (b *CUDABuilder) markDeviceCallable(fn *FuncDecl) {
	b.sess.SetAttr(fn, cudaGlobalMarker{})
}

type cudaGlobalMarker struct{}

// IsCudaGlobal reports whether fn was marked device-launchable by the
// CUDA backend.
func IsCudaGlobal(sess *Session, fn *FuncDecl) bool {
	a, ok := sess.Attr(fn)
	if !ok {
		return false
	}
	_, ok = a.(cudaGlobalMarker)
	return ok
}

// BuildRunKernelFuncBody emits: thread-index computation for x and y,
// a domain-inclusion guard that returns on miss, and a sequential z
// loop whose body is the kernel call (spec §4.4).
func (b *CUDABuilder) BuildRunKernelFuncBody(sm *StencilMap) *Block {
	rg := idx0Range()
	idxNames := iterationIndexNames(sm.Kernel)

	var stmts []AstNode
	threadIdx := func(axis string) AstNode {
		blockIdx := NewSelectorExpr(NewIdent("blockIdx", rg), axis, rg)
		blockDim := NewSelectorExpr(NewIdent("blockDim", rg), axis, rg)
		threadId := NewSelectorExpr(NewIdent("threadIdx", rg), axis, rg)
		mul := NewBinaryExpr(OpMul, blockIdx, blockDim, rg)
		return NewBinaryExpr(OpAdd, mul, threadId, rg)
	}

	if len(idxNames) >= 1 {
		stmts = append(stmts, NewVarDecl(idxNames[0], "int", threadIdx("x"), rg))
	}
	if len(idxNames) >= 2 {
		stmts = append(stmts, NewVarDecl(idxNames[1], "int", threadIdx("y"), rg))
	}

	idxVars := make([]AstNode, 0, len(idxNames))
	for _, n := range idxNames[:minInt(2, len(idxNames))] {
		idxVars = append(idxVars, NewIdent(n, rg))
	}
	guardCond := b.xyInclusionGuard(idxNames, rg)
	guard := NewIfStmt(NewUnaryExpr(OpNot, guardCond, rg), NewBlock([]AstNode{NewReturnStmt(nil, rg)}, rg), NewBlock(nil, rg), rg)
	stmts = append(stmts, guard)

	if len(idxNames) == 3 {
		zVar := idxNames[2]
		low := NewSelectorExpr(NewIdent("dom", rg), "local_min_2", rg)
		high := NewSelectorExpr(NewIdent("dom", rg), "local_max_2", rg)

		callArgs := b.BuildKernelCallArgList(sm, append(idxVars, NewIdent(zVar, rg)))
		call := NewExprStmt(b.BuildKernelCall(sm.Kernel, callArgs), rg)
		loop := NewForStmt(zVar, low, high, NewBlock([]AstNode{call}, rg), rg)
		stmts = append(stmts, loop)
	} else {
		callArgs := b.BuildKernelCallArgList(sm, idxVars)
		stmts = append(stmts, NewExprStmt(b.BuildKernelCall(sm.Kernel, callArgs), rg))
	}

	return NewBlock(stmts, rg)
}

func (b *CUDABuilder) xyInclusionGuard(idxNames []string, rg SourceRange) AstNode {
	var cond AstNode
	for d, n := range idxNames {
		if d >= 2 {
			break
		}
		lowSel := fmt.Sprintf("local_min_%d", d)
		highSel := fmt.Sprintf("local_max_%d", d)
		ge := NewBinaryExpr(OpGe, NewIdent(n, rg), NewSelectorExpr(NewIdent("dom", rg), lowSel, rg), rg)
		lt := NewBinaryExpr(OpLt, NewIdent(n, rg), NewSelectorExpr(NewIdent("dom", rg), highSel, rg), rg)
		inDim := NewBinaryExpr(OpAnd, ge, lt, rg)
		if cond == nil {
			cond = inDim
		} else {
			cond = NewBinaryExpr(OpAnd, cond, inDim, rg)
		}
	}
	return cond
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (b *CUDABuilder) BuildOnDeviceGridType(gt *GridType) *GridType {
	dev := &GridType{Name: gt.Name, Rank: gt.Rank, Kind: gt.Kind, Primitive: gt.Primitive, Members: gt.Members}
	dev.SetAux("device_type_name", fmt.Sprintf("__PSGrid%dD%sDev", gt.Rank, pointTypeSuffix(gt)))
	return dev
}

func pointTypeSuffix(gt *GridType) string {
	if gt.Kind == PointPrimitive {
		return gt.Primitive.String()
	}
	return gt.Name
}

func (b *CUDABuilder) BuildGridNewFuncForUserType(gt *GridType) *FuncDecl {
	ref := (&ReferenceBuilder{sess: b.sess}).BuildGridNewFuncForUserType(gt)
	return ref
}

func (b *CUDABuilder) BuildGridCopyinFuncForUserType(gt *GridType) *FuncDecl {
	return (&ReferenceBuilder{sess: b.sess}).copyFunc(gt, "Copyin")
}

func (b *CUDABuilder) BuildGridCopyoutFuncForUserType(gt *GridType) *FuncDecl {
	return (&ReferenceBuilder{sess: b.sess}).copyFunc(gt, "Copyout")
}

// BuildRunFuncBody synthesizes the per-run driver: loop count times,
// launch each map's global run-kernel with the grid/block
// configuration, device-synchronize, then swap.
func (b *CUDABuilder) BuildRunFuncBody(run *Run) *Block {
	rg := idx0Range()
	cfg := cudaBlockConfigFromConfig(b.sess.Config())
	var stmts []AstNode
	for _, sm := range run.StencilMaps {
		stmts = append(stmts, b.cacheConfigHintOnce(run, sm, rg)...)

		launchArgs := []AstNode{NewIdent("dom_"+sm.Kernel.Name, rg)}
		for i, g := range sm.GridArgs {
			launchArgs = append(launchArgs, g, NewIntLit(sm.ID+i, rg))
		}
		launch := NewExprStmt(NewCallExpr(NewIdent(launchKernelName(sm, cfg), rg), launchArgs, rg), rg)
		stmts = append(stmts, launch)
		stmts = append(stmts, NewExprStmt(NewCallExpr(NewIdent("cudaDeviceSynchronize", rg), nil, rg), rg))
		for _, g := range sm.GridArgs {
			stmts = append(stmts, NewExprStmt(NewCallExpr(NewIdent("GridSwap", rg), []AstNode{g}, rg), rg))
		}
	}
	body := NewBlock(stmts, rg)
	loop := NewForStmt("__ps_i", NewIntLit(0, rg), run.CountExpr, body, rg)
	return NewBlock([]AstNode{loop}, rg)
}

func launchKernelName(sm *StencilMap, cfg CudaBlockConfig) string {
	return fmt.Sprintf("%s_global<<<grid,dim3(%d,%d,%d)>>>", runKernelFuncName(sm), cfg.X, cfg.Y, cfg.Z)
}

// cacheConfigHintOnce prepends cudaFuncSetCacheConfig the first time
// sm's kernel symbol is launched within the run function being built
// for run; each run function keeps its own set of hinted kernels
// (spec §4.4).
func (b *CUDABuilder) cacheConfigHintOnce(run *Run, sm *StencilMap, rg SourceRange) []AstNode {
	scope := fmt.Sprintf("run@%p", run)
	kernelSym := runKernelFuncName(sm) + "_global"
	if b.hintedKernels[scope] == nil {
		b.hintedKernels[scope] = make(map[string]bool)
	}
	if b.hintedKernels[scope][kernelSym] {
		return nil
	}
	b.hintedKernels[scope][kernelSym] = true
	hint := NewExprStmt(NewCallExpr(NewIdent("cudaFuncSetCacheConfig", rg),
		[]AstNode{NewIdent(kernelSym, rg), NewIdent("cudaFuncCachePreferL1", rg)}, rg), rg)
	return []AstNode{hint}
}
