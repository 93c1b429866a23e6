package physis

import "fmt"

// ReferenceBuilder implements Builder for the sequential reference
// backend (spec §4.3): a flat, triple-nested loop over the domain in
// outer-to-inner dimension order (z, then y, then x), no concurrency.
type ReferenceBuilder struct {
	sess *Session
}

func NewReferenceBuilder(sess *Session) *ReferenceBuilder {
	return &ReferenceBuilder{sess: sess}
}

func (b *ReferenceBuilder) BuildGridBaseAddr(grid AstNode, gt *GridType) AstNode {
	return NewCallExpr(NewIdent("__PSGridGetBaseAddr", idx0Range()), []AstNode{grid}, idx0Range())
}

func (b *ReferenceBuilder) BuildGridOffset(grid AstNode, gt *GridType, indexExprs []AstNode, indexList *StencilIndexList, isKernel, isPeriodic bool) (AstNode, *TranslationError) {
	if len(indexExprs) != gt.Rank {
		return nil, newTranslationError(b.sess, ErrNonAffineOffset, idx0Range(), "BuildGridOffset index count does not match grid rank")
	}
	return buildLinearOffset(grid, gt, indexExprs, isPeriodic), nil
}

func (b *ReferenceBuilder) BuildGridGet(grid AstNode, gt *GridType, offset AstNode, member string) AstNode {
	addr := b.BuildGridBaseAddr(grid, gt)
	elem := AstNode(NewIndexExpr(addr, offset, idx0Range()))
	if member == "" {
		return elem
	}
	return NewSelectorExpr(elem, member, idx0Range())
}

func (b *ReferenceBuilder) BuildGridEmit(grid AstNode, gt *GridType, offset AstNode, member string, value AstNode) AstNode {
	addr := b.BuildGridBaseAddr(grid, gt)
	var target AstNode = NewIndexExpr(addr, offset, idx0Range())
	if member != "" {
		target = NewSelectorExpr(target, member, idx0Range())
	}
	return NewAssignStmt(target, value, idx0Range())
}

func (b *ReferenceBuilder) BuildKernelCall(kernel *FuncDecl, args []AstNode) AstNode {
	return NewCallExpr(NewIdent(kernel.Name, idx0Range()), args, idx0Range())
}

func (b *ReferenceBuilder) BuildKernelCallArgList(sm *StencilMap, idxVars []AstNode) []AstNode {
	return buildKernelCallArgList(sm, idxVars)
}

func (b *ReferenceBuilder) BuildDomainInclusionCheck(dom *Domain, idxVars []AstNode) AstNode {
	return buildDomainInclusionCheck(dom, idxVars)
}

func (b *ReferenceBuilder) BuildRunKernelFunc(sm *StencilMap) *FuncDecl {
	rg := idx0Range()
	param := NewParam("s", sm.RecordTypeName+"*", rg)
	body := b.BuildRunKernelFuncBody(sm)
	return NewFuncDecl(runKernelFuncName(sm), []*Param{param}, body, rg)
}

func runKernelFuncName(sm *StencilMap) string {
	return fmt.Sprintf("Run_%s", sm.Kernel.Name)
}

// BuildRunKernelFuncBody emits the flat triple-nested loop spec §4.3
// describes: outer z, middle y, inner x, invoking the kernel at each
// point with (x, y, z, g_1...g_k).
func (b *ReferenceBuilder) BuildRunKernelFuncBody(sm *StencilMap) *Block {
	rg := idx0Range()
	idxNames := iterationIndexNames(sm.Kernel)
	domField := NewSelectorExpr(NewIdent("s", rg), "dom", rg)

	idxVars := make([]AstNode, len(idxNames))
	for i, name := range idxNames {
		idxVars[i] = NewIdent(name, rg)
	}
	args := b.BuildKernelCallArgList(sm, idxVars)
	call := NewExprStmt(b.BuildKernelCall(sm.Kernel, args), rg)
	innerBody := NewBlock([]AstNode{call}, rg)

	var loop *Block
	// Build from innermost (x, dim 0) outward to outermost (z, last dim):
	// each iteration wraps the dimension before it, so the last
	// dimension wrapped (z) ends up as the outermost loop and dim 0 (x)
	// stays innermost, i.e. x-fastest.
	var nested AstNode = innerBody
	for d := 0; d < len(idxNames); d++ {
		low := NewSelectorExpr(domField, fmt.Sprintf("local_min_%d", d), rg)
		high := NewSelectorExpr(domField, fmt.Sprintf("local_max_%d", d), rg)
		var bodyBlock *Block
		if b2, ok := nested.(*Block); ok {
			bodyBlock = b2
		} else {
			bodyBlock = NewBlock([]AstNode{nested}, rg)
		}
		nested = NewForStmt(idxNames[d], low, high, bodyBlock, rg)
	}
	loop = NewBlock([]AstNode{nested}, rg)
	return loop
}

// iterationIndexNames returns the canonical index variable names
// (x, y, z, ...) for a kernel's leading rank iteration parameters,
// using the kernel's own parameter names where available.
func iterationIndexNames(kernel *FuncDecl) []string {
	names := []string{"x", "y", "z"}
	rank := 0
	for _, p := range kernel.Params {
		if isIndexTypeName(p.TypeName) {
			rank++
			continue
		}
		break
	}
	if rank == 0 || rank > 3 {
		rank = len(kernel.Params)
		if rank > 3 {
			rank = 3
		}
	}
	out := make([]string, rank)
	for i := 0; i < rank; i++ {
		if i < len(kernel.Params) {
			out[i] = kernel.Params[i].Name
		} else {
			out[i] = names[i]
		}
	}
	return out
}

func isIndexTypeName(t string) bool {
	return t == "int" || t == "long" || t == "index"
}

func (b *ReferenceBuilder) BuildOnDeviceGridType(gt *GridType) *GridType {
	return gt // no separate device representation on the reference backend
}

func (b *ReferenceBuilder) BuildGridNewFuncForUserType(gt *GridType) *FuncDecl {
	rg := idx0Range()
	params := make([]*Param, gt.Rank)
	for d := 0; d < gt.Rank; d++ {
		params[d] = NewParam(fmt.Sprintf("d%d", d), "int", rg)
	}
	body := NewBlock([]AstNode{
		NewReturnStmt(NewCallExpr(NewIdent("__PSGridNew", rg), gridNewArgs(gt, params), rg), rg),
	}, rg)
	return NewFuncDecl("PSGrid"+gridTypeSuffix(gt)+"New", params, body, rg)
}

func gridNewArgs(gt *GridType, params []*Param) []AstNode {
	args := make([]AstNode, len(params)+1)
	args[0] = NewIdent(gt.Name, idx0Range())
	for i, p := range params {
		args[i+1] = NewIdent(p.Name, idx0Range())
	}
	return args
}

func gridTypeSuffix(gt *GridType) string {
	return fmt.Sprintf("%dD%s", gt.Rank, gt.Name)
}

func (b *ReferenceBuilder) BuildGridCopyinFuncForUserType(gt *GridType) *FuncDecl {
	return b.copyFunc(gt, "Copyin")
}

func (b *ReferenceBuilder) BuildGridCopyoutFuncForUserType(gt *GridType) *FuncDecl {
	return b.copyFunc(gt, "Copyout")
}

func (b *ReferenceBuilder) copyFunc(gt *GridType, direction string) *FuncDecl {
	rg := idx0Range()
	gridParam := NewParam("g", gt.Name, rg)
	bufParam := NewParam("buf", "void*", rg)
	call := NewCallExpr(NewIdent("__PSGrid"+direction, rg), []AstNode{NewIdent("g", rg), NewIdent("buf", rg)}, rg)
	body := NewBlock([]AstNode{NewExprStmt(call, rg)}, rg)
	return NewFuncDecl("PSGrid"+direction+gridTypeSuffix(gt), []*Param{gridParam, bufParam}, body, rg)
}

// BuildRunFuncBody synthesizes the per-run driver spec §4.3
// describes: loop count times, invoking every stencil map's
// run-kernel function in sequence, swapping every grid each map
// writes after that map's invocation.
func (b *ReferenceBuilder) BuildRunFuncBody(run *Run) *Block {
	rg := idx0Range()
	var stmts []AstNode
	for _, sm := range run.StencilMaps {
		call := NewExprStmt(NewCallExpr(NewIdent(runKernelFuncName(sm), rg), []AstNode{NewIdent("s_"+sm.Kernel.Name, rg)}, rg), rg)
		stmts = append(stmts, call)
		for _, g := range sm.GridArgs {
			swap := NewExprStmt(NewCallExpr(NewIdent("GridSwap", rg), []AstNode{g}, rg), rg)
			stmts = append(stmts, swap)
		}
	}
	body := NewBlock(stmts, rg)
	loopVar := "__ps_i"
	loop := NewForStmt(loopVar, NewIntLit(0, rg), run.CountExpr, body, rg)
	return NewBlock([]AstNode{loop}, rg)
}
