package physis

// Translate is the top-level driver (spec §2's "Data flow: user AST →
// C3 decorates AST → C4 is the sole mutation surface used by C5–C8 →
// chosen backend rewrites the AST"). It performs, in order:
//  1. kernel recognition (MarkKernel for every qualifying FuncDecl);
//  2. grid-allocation tracking (VarDecl sites whose static type is a
//     registered GridType);
//  3. `map`/`run` call-site recognition, building StencilMap and Run
//     descriptors and folding each kernel's AnalyzeKernel result into
//     both the StencilMap and the underlying Grid's accumulating
//     range;
//  4. the unconditional-get optimizer pass (C9), when enabled;
//  5. backend construction and, per map of every run, emission of the
//     backend's run-kernel function (BuildRunKernelFunc) plus any
//     MPI+CUDA kernel variants. BuildRunFuncBody is not called here,
//     so the output holds no per-run driver function.
//
// Translate halts at the first fatal TranslationError and discards
// partial output, per spec §7; warnings (currently only
// ErrUnconditionalGetTernary) are collected and returned alongside a
// successful result rather than aborting it.
type TranslateResult struct {
	Program  *Program
	Warnings []*TranslationError

	// Grids is the accumulated per-grid stencil-range table, keyed by
	// the surface-language variable name the allocation declared it
	// under — exposed for -dump-ranges-style diagnostics
	// (diagnostics.go's FormatStencilRanges); never consulted by any
	// later translation stage itself.
	Grids map[string]*Grid
}

func Translate(sess *Session, prog *Program, backend Backend) (*TranslateResult, *TranslationError) {
	funcsByName := make(map[string]*FuncDecl, len(prog.Funcs))
	for _, fn := range prog.Funcs {
		funcsByName[fn.Name] = fn
	}

	recognizeKernels(sess, prog)

	grids := make(map[string]*Grid)
	stencilMapBySite := make(map[*CallExpr]*StencilMap)
	var runs []*Run
	var warnings []*TranslationError

	for _, fn := range prog.Funcs {
		if _, ok := IsKernel(sess, fn); ok {
			continue // kernels don't themselves contain map/run/allocation sites
		}
		collectGridAllocations(sess, fn, grids)
	}

	for _, fn := range prog.Funcs {
		if _, ok := IsKernel(sess, fn); ok {
			continue
		}
		if terr := processMapSites(sess, fn, funcsByName, grids, stencilMapBySite); terr != nil {
			return nil, terr
		}
	}

	for _, fn := range prog.Funcs {
		if _, ok := IsKernel(sess, fn); ok {
			continue
		}
		runsInFn, terr := processRunSites(sess, fn, stencilMapBySite)
		if terr != nil {
			return nil, terr
		}
		runs = append(runs, runsInFn...)
	}

	if sess.Config().GetBool("optimizer.unconditional_get") {
		for _, fn := range prog.Funcs {
			if _, ok := IsKernel(sess, fn); ok {
				w := OptimizeUnconditionalGet(sess, fn)
				warnings = append(warnings, w...)
				sess.InvalidateKernel(fn)
			}
		}
	}

	builder := NewBuilder(sess, backend)
	registerGridHalos(builder, grids)

	var out []*FuncDecl
	out = append(out, prog.Funcs...)
	for _, run := range runs {
		for _, sm := range run.StencilMaps {
			out = append(out, builder.BuildRunKernelFunc(sm))
			out = append(out, kernelVariantFuncs(sess, builder, sm)...)
		}
	}

	return &TranslateResult{Program: NewProgram(out, prog.Range()), Warnings: warnings, Grids: grids}, nil
}

// recognizeKernels auto-recognizes kernel functions by signature,
// spec §4.1's documented precondition ("a Kernel attribute attached
// earlier by a first-pass recognizer"): a function whose leading
// parameters are index-typed and whose remaining parameters are all
// registered grid types is a kernel of rank equal to the leading
// index-typed parameter count.
func recognizeKernels(sess *Session, prog *Program) {
	for _, fn := range prog.Funcs {
		if _, ok := IsKernel(sess, fn); ok {
			continue
		}
		rank := 0
		for _, p := range fn.Params {
			if isIndexTypeName(p.TypeName) {
				rank++
				continue
			}
			break
		}
		if rank == 0 || rank >= len(fn.Params) {
			continue
		}
		allGrids := true
		for _, p := range fn.Params[rank:] {
			if _, ok := sess.GridType(p.TypeName); !ok {
				allGrids = false
				break
			}
		}
		if allGrids {
			MarkKernel(sess, fn, rank)
		}
	}
}

// collectGridAllocations scans fn's body for `GridType name =
// PSGrid...New(size_0, …, size_{r-1}[, attr])` declarations, recording
// a Grid descriptor per declared variable. The VarDecl's own TypeName
// already carries the grid type (the front end resolved it when
// parsing the declaration), so no parsing of the allocation callee's
// name is required.
func collectGridAllocations(sess *Session, fn *FuncDecl, grids map[string]*Grid) {
	Inspect(fn.Body, func(n AstNode) bool {
		vd, ok := n.(*VarDecl)
		if !ok || vd.Init == nil {
			return true
		}
		gt, ok := sess.GridType(vd.TypeName)
		if !ok {
			return true
		}
		ce, ok := vd.Init.(*CallExpr)
		if !ok {
			return true
		}
		sizeExprs := ce.Args
		var attrExpr AstNode
		if len(sizeExprs) > gt.Rank {
			attrExpr = sizeExprs[gt.Rank]
			sizeExprs = sizeExprs[:gt.Rank]
		}
		g := NewGrid(gt, sizeExprs, attrExpr)
		sess.RegisterGrid(vd, g)
		grids[vd.Name] = g
		return true
	})
}

// processMapSites finds every `PSStencilMap(kernel, domain, g_1, …,
// g_k)` call in fn's body, resolves the kernel (fatal
// ErrIndirectKernelCall if the first argument isn't a direct reference
// to a recognized kernel), runs AnalyzeKernel, and folds the result
// into the new StencilMap and every referenced Grid's accumulating
// range.
func processMapSites(sess *Session, fn *FuncDecl, funcsByName map[string]*FuncDecl, grids map[string]*Grid, stencilMapBySite map[*CallExpr]*StencilMap) *TranslationError {
	var firstErr *TranslationError
	Inspect(fn.Body, func(n AstNode) bool {
		if firstErr != nil {
			return false
		}
		ce, ok := n.(*CallExpr)
		if !ok {
			return true
		}
		callee, ok := ce.Callee.(*Ident)
		if !ok || callee.Name != "PSStencilMap" {
			return true
		}
		sm, terr := processOneMapSite(sess, ce, funcsByName, grids)
		if terr != nil {
			firstErr = terr
			return false
		}
		stencilMapBySite[ce] = sm
		return true
	})
	return firstErr
}

func processOneMapSite(sess *Session, ce *CallExpr, funcsByName map[string]*FuncDecl, grids map[string]*Grid) (*StencilMap, *TranslationError) {
	if len(ce.Args) < 2 {
		return nil, newTranslationError(sess, ErrIndirectKernelCall, ce.Range(), "PSStencilMap requires at least (kernel, domain)")
	}
	kernelID, ok := ce.Args[0].(*Ident)
	if !ok {
		return nil, newTranslationError(sess, ErrIndirectKernelCall, ce.Range(), "kernel argument is not a direct function reference")
	}
	kernelFn, ok := funcsByName[kernelID.Name]
	if !ok {
		return nil, newTranslationError(sess, ErrIndirectKernelCall, ce.Range(), "kernel argument does not name a declared function")
	}
	if _, ok := IsKernel(sess, kernelFn); !ok {
		return nil, newTranslationError(sess, ErrIndirectKernelCall, ce.Range(), "kernel argument does not name a recognized kernel")
	}

	domainExpr := ce.Args[1]
	gridArgs := ce.Args[2:]

	sm := NewStencilMap(sess, kernelFn, ce, domainExpr, gridArgs)
	sess.RegisterStencilMap(ce, sm)

	analysis, terr := AnalyzeKernel(sess, kernelFn)
	if terr != nil {
		return nil, terr
	}
	sm.RangeByParam = analysis.RangeByParam

	irregularMax := sess.Config().GetInt("halo.irregular_max_offset")
	for i, garg := range gridArgs {
		id, ok := garg.(*Ident)
		if !ok {
			continue
		}
		g, ok := grids[id.Name]
		if !ok {
			continue
		}
		if rng, ok := analysis.RangeByParam[i]; ok {
			mergeStencilRange(g.Range, rng, irregularMax)
		}
		if members, ok := analysis.MembersByParam[i]; ok && g.Members != nil {
			for _, key := range members.Keys() {
				mergeStencilRange(g.Members.Get(key), members.Get(key), irregularMax)
			}
		}
	}
	return sm, nil
}

// mergeStencilRange folds every access src has absorbed into dst,
// used when a grid is passed to more than one map call (dst
// accumulates across its whole lifetime per spec §3's Grid
// descriptor; src is the per-application range AnalyzeKernel
// produced).
func mergeStencilRange(dst, src *StencilRange, irregularMaxOffset int) {
	for _, l := range src.IndexLists() {
		periodic := false
		for d := 0; d < src.Rank; d++ {
			if src.Periodic[d] {
				periodic = true
				break
			}
		}
		dst.Absorb(l, periodic, irregularMaxOffset)
	}
}

// processRunSites finds every `PSStencilRun(count, map_call_1, …,
// map_call_m)` call, resolving each map_call argument against the
// StencilMap built for that exact call-expression node.
func processRunSites(sess *Session, fn *FuncDecl, stencilMapBySite map[*CallExpr]*StencilMap) ([]*Run, *TranslationError) {
	var runs []*Run
	var firstErr *TranslationError
	Inspect(fn.Body, func(n AstNode) bool {
		if firstErr != nil {
			return false
		}
		ce, ok := n.(*CallExpr)
		if !ok {
			return true
		}
		callee, ok := ce.Callee.(*Ident)
		if !ok || callee.Name != "PSStencilRun" {
			return true
		}
		if len(ce.Args) < 2 {
			firstErr = newTranslationError(sess, ErrIndirectKernelCall, ce.Range(), "PSStencilRun requires at least (count, map_call)")
			return false
		}
		run := NewRun(ce, ce.Args[0])
		for _, arg := range ce.Args[1:] {
			mapCE, ok := arg.(*CallExpr)
			if !ok {
				firstErr = newTranslationError(sess, ErrIndirectKernelCall, ce.Range(), "run argument is not a direct map call")
				return false
			}
			sm, ok := stencilMapBySite[mapCE]
			if !ok {
				firstErr = newTranslationError(sess, ErrIndirectKernelCall, ce.Range(), "run argument does not reference a recognized map call")
				return false
			}
			run.AppendMapCall(sm)
		}
		sess.RegisterRun(ce, run)
		runs = append(runs, run)
		return true
	})
	return runs, firstErr
}

// kernelVariantFuncs surfaces the MPI+CUDA backend's interior and
// boundary kernel clones (stashed by BuildRunKernelFunc as a session
// attribute on sm.Kernel, see backend_mpicuda.go) as top-level
// declarations of the output program — BuildRunFuncBody's launches
// reference them by name, so they must appear in the emitted Program
// alongside the run-kernel function itself. A no-op for every other
// backend, none of which builds kernel variants.
func kernelVariantFuncs(sess *Session, builder Builder, sm *StencilMap) []*FuncDecl {
	if _, ok := builder.(*MPICUDABuilder); !ok {
		return nil
	}
	attr, ok := sess.Attr(sm.Kernel)
	if !ok {
		return nil
	}
	kv, ok := attr.(kernelVariants)
	if !ok {
		return nil
	}
	var out []*FuncDecl
	if kv.Interior != nil {
		out = append(out, kv.Interior)
	}
	if kv.SingleBoundary != nil {
		out = append(out, kv.SingleBoundary)
	}
	for _, bs := range sortedBoundarySides(kv.Boundary) {
		out = append(out, kv.Boundary[bs])
	}
	return out
}

// sortedBoundarySides returns m's keys in a deterministic order so
// repeated translations of the same program emit identical output.
func sortedBoundarySides(m map[boundarySide]*FuncDecl) []boundarySide {
	out := make([]boundarySide, 0, len(m))
	for bs := range m {
		out = append(out, bs)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && boundarySideLess(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func boundarySideLess(a, b boundarySide) bool {
	if a.Dim != b.Dim {
		return a.Dim < b.Dim
	}
	return a.Side < b.Side
}

// registerGridHalos installs each grid's finalized halo extent into
// the distributed backends' offset-translation tables —
// MPIBuilder.BuildGridOffset and MPICUDABuilder.BuildGridOffset both
// need it, and neither can derive it on its own since it depends on
// every map application across the grid's lifetime (spec §4.5).
// Single-process backends have no such table and are left untouched.
func registerGridHalos(builder Builder, grids map[string]*Grid) {
	switch b := builder.(type) {
	case *MPIBuilder:
		for name, g := range grids {
			b.RegisterGridHalo(name, g.Range.Halo)
		}
	case *MPICUDABuilder:
		for name, g := range grids {
			b.RegisterGridHalo(name, g.Range.Halo)
		}
	}
}
