package physis

import "strconv"

// GridGetAttribute is attached to the AST node of a grid read — the
// *CallExpr of a call-form get, the *SelectorExpr selecting a member
// off one, or the *IndexExpr of an already-lowered pointer-arithmetic
// read (spec §4.1, C1).
type GridGetAttribute struct {
	GridType *GridType
	GridParam *Param

	InKernel   bool
	IsPeriodic bool

	Indexes StencilIndexList

	Member       string // "" for a primitive-point access
	ArrayIndices []int  // static array indices if Member itself is an array
}

// GridEmitAttribute is the write-side counterpart of
// GridGetAttribute, attached to the emit call or lowered assignment
// target.
type GridEmitAttribute struct {
	GridType *GridType
	GridParam *Param

	InKernel bool

	Indexes StencilIndexList

	Member       string
	ArrayIndices []int

	Value AstNode
}

// kernelMarker is the "Kernel attribute attached earlier by a
// first-pass recognizer" spec §4.1 assumes as AnalyzeKernel's
// precondition. MarkKernel is that recognizer's entry point — the
// surface-language front end is out of core scope, but must call
// this (or translate.go's signature-based auto-recognition, see
// recognizeKernels) before AnalyzeKernel runs.
type kernelMarker struct{ Rank int }

// MarkKernel records fn as a kernel of the given rank (the number of
// leading integer iteration-index parameters).
func MarkKernel(sess *Session, fn *FuncDecl, rank int) {
	sess.SetAttr(fn, kernelMarker{Rank: rank})
}

// IsKernel reports whether fn was previously marked, returning its
// rank.
func IsKernel(sess *Session, fn *FuncDecl) (int, bool) {
	a, ok := sess.Attr(fn)
	if !ok {
		return 0, false
	}
	km, ok := a.(kernelMarker)
	return km.Rank, ok
}

// KernelAnalysis is AnalyzeKernel's result: per grid-parameter
// stencil ranges and, for record-point grids, per-member range maps
// (spec §4.1, "what it produces, per grid parameter").
type KernelAnalysis struct {
	Rank       int
	GridParams []*Param // in declaration order, rank trimmed off

	RangeByParam   map[int]*StencilRange
	MembersByParam map[int]*MemberStencilRangeMap
}

// analyzeKernelQuery is the single Query AnalyzeKernel is wired
// through, caching each distinct *FuncDecl's analysis for the
// lifetime of the session (spec §8, "attribute stability" — repeated
// analysis of an unchanged kernel returns the identical result
// object, not merely an equal one).
var analyzeKernelQuery = &Query[*FuncDecl, *KernelAnalysis]{
	Name: "AnalyzeKernel",
	Compute: func(db *Database, fn *FuncDecl) (*KernelAnalysis, error) {
		return runAnalyzeKernel(db.Session(), fn)
	},
}

// AnalyzeKernel recovers, for kernel fn, the per-grid-parameter
// stencil ranges and member stencil ranges (spec §4.1). Results are
// cached on sess; call sess.InvalidateKernel(fn) after rewriting fn's
// body in place.
func AnalyzeKernel(sess *Session, fn *FuncDecl) (*KernelAnalysis, *TranslationError) {
	res, err := Get(sess.db, analyzeKernelQuery, fn)
	if err == nil {
		return res, nil
	}
	te, ok := err.(*TranslationError)
	if !ok {
		panic(err)
	}
	return nil, te
}

type kernelAnalyzer struct {
	sess *Session
	fn   *FuncDecl
	rank int

	gridParams []*Param
	gridTypes  []*GridType
	iterVars   map[string]int // param name -> dim (1-based)
	paramIndex map[string]int // grid param name -> 0-based grid-param index

	rangeByParam   map[int]*StencilRange
	membersByParam map[int]*MemberStencilRangeMap
}

func runAnalyzeKernel(sess *Session, fn *FuncDecl) (*KernelAnalysis, error) {
	rank, ok := IsKernel(sess, fn)
	if !ok {
		internalInvariant("AnalyzeKernel called on a function without a Kernel attribute", fn)
	}
	if len(fn.Params) < rank {
		internalInvariant("kernel has fewer parameters than its declared rank", fn)
	}

	a := &kernelAnalyzer{
		sess:           sess,
		fn:             fn,
		rank:           rank,
		iterVars:       make(map[string]int, rank),
		paramIndex:     make(map[string]int),
		rangeByParam:   make(map[int]*StencilRange),
		membersByParam: make(map[int]*MemberStencilRangeMap),
	}
	for i := 0; i < rank; i++ {
		a.iterVars[fn.Params[i].Name] = i + 1
	}
	for i, p := range fn.Params[rank:] {
		gt, ok := sess.GridType(p.TypeName)
		if !ok {
			return nil, newTranslationError(sess, ErrNonGridCall, p.Range(),
				"parameter "+p.Name+" does not name a registered grid type")
		}
		a.gridParams = append(a.gridParams, p)
		a.gridTypes = append(a.gridTypes, gt)
		a.paramIndex[p.Name] = i
		a.rangeByParam[i] = NewStencilRange(gt.Rank)
		if gt.Kind == PointRecord {
			a.membersByParam[i] = NewMemberStencilRangeMap(gt.Rank)
		}
	}

	if err := a.analyzeStmt(fn.Body); err != nil {
		return nil, err
	}

	return &KernelAnalysis{
		Rank:           rank,
		GridParams:     a.gridParams,
		RangeByParam:   a.rangeByParam,
		MembersByParam: a.membersByParam,
	}, nil
}

func (a *kernelAnalyzer) irregularMaxOffset() int {
	return a.sess.Config().GetInt("halo.irregular_max_offset")
}

func (a *kernelAnalyzer) analyzeStmt(stmt AstNode) *TranslationError {
	switch s := stmt.(type) {
	case *Block:
		for _, st := range s.Stmts {
			if err := a.analyzeStmt(st); err != nil {
				return err
			}
		}
	case *IfStmt:
		if err := a.analyzeExpr(s.Cond, false); err != nil {
			return err
		}
		if err := a.analyzeStmt(s.Then); err != nil {
			return err
		}
		if s.Else != nil {
			if err := a.analyzeStmt(s.Else); err != nil {
				return err
			}
		}
	case *VarDecl:
		if s.Init != nil {
			return a.analyzeExpr(s.Init, false)
		}
	case *AssignStmt:
		switch s.Target.(type) {
		case *IndexExpr, *SelectorExpr:
			if err := a.analyzeExpr(s.Target, true); err != nil {
				return err
			}
		}
		return a.analyzeExpr(s.Value, false)
	case *ExprStmt:
		return a.analyzeExpr(s.Expr, false)
	case *ReturnStmt:
		if s.Value != nil {
			return a.analyzeExpr(s.Value, false)
		}
	default:
		internalInvariant("unrecognized kernel statement shape", stmt)
	}
	return nil
}

// analyzeExpr walks expr looking for grid accesses. write marks that
// expr itself is an assignment target (only meaningful for the
// lowered *IndexExpr / *SelectorExpr forms — call-form get/emit are
// always recognized by callee name regardless of position).
func (a *kernelAnalyzer) analyzeExpr(expr AstNode, write bool) *TranslationError {
	switch n := expr.(type) {
	case *SelectorExpr:
		if ce, ok := n.Base.(*CallExpr); ok && isGetCallee(ce.CalleeName()) {
			return a.handleGet(ce, n, n.Member, nil)
		}
		return a.analyzeExpr(n.Base, false)

	case *CallExpr:
		switch n.CalleeName() {
		case "PSGridGet", "PSGridGetPeriodic":
			return a.handleGet(n, nil, "", nil)
		case "PSGridEmit":
			return a.handleEmit(n, "", nil)
		case "PSGridEmitUtype":
			return a.handleEmitUtype(n)
		default:
			for _, arg := range n.Args {
				if err := a.analyzeExpr(arg, false); err != nil {
					return err
				}
			}
		}

	case *IndexExpr:
		if write {
			return a.handleLoweredEmit(n)
		}
		return a.handleLoweredGet(n)

	case *BinaryExpr:
		if err := a.analyzeExpr(n.Left, false); err != nil {
			return err
		}
		return a.analyzeExpr(n.Right, false)

	case *UnaryExpr:
		return a.analyzeExpr(n.Expr, false)

	case *CondExpr:
		if err := a.analyzeExpr(n.Cond, false); err != nil {
			return err
		}
		if err := a.analyzeExpr(n.Then, false); err != nil {
			return err
		}
		return a.analyzeExpr(n.Else, false)

	case *Ident, *IntLit, *FloatLit:
		// leaves

	default:
		internalInvariant("unrecognized kernel expression shape", expr)
	}
	return nil
}

func isGetCallee(name string) bool {
	return name == "PSGridGet" || name == "PSGridGetPeriodic"
}

// resolveGridIdent maps an *Ident naming a grid parameter to its
// (0-based param index, *Param, *GridType).
func (a *kernelAnalyzer) resolveGridIdent(id *Ident) (int, *Param, *GridType, bool) {
	idx, ok := a.paramIndex[id.Name]
	if !ok {
		return 0, nil, nil, false
	}
	return idx, a.gridParams[idx], a.gridTypes[idx], true
}

func (a *kernelAnalyzer) handleGet(ce *CallExpr, attachTo AstNode, member string, arrayIndices []int) *TranslationError {
	if len(ce.Args) < 1 {
		return newTranslationError(a.sess, ErrNonGridCall, ce.Range(), "get called with no arguments")
	}
	gridIdent, ok := ce.Args[0].(*Ident)
	if !ok {
		return newTranslationError(a.sess, ErrNonGridCall, ce.Range(), "first argument is not a grid reference")
	}
	paramIdx, gp, gt, ok := a.resolveGridIdent(gridIdent)
	if !ok {
		return newTranslationError(a.sess, ErrNonGridCall, ce.Range(), "first argument does not name a grid parameter")
	}

	indexArgs := ce.Args[1:]
	if len(indexArgs) != gt.Rank {
		return newTranslationError(a.sess, ErrNonAffineOffset, ce.Range(), "get index arity does not match grid rank")
	}
	list := a.decomposeCallFormIndices(indexArgs, gt.Rank)
	periodic := ce.CalleeName() == "PSGridGetPeriodic"

	if attachTo == nil {
		attachTo = ce
	}
	a.sess.SetAttr(attachTo, &GridGetAttribute{
		GridType: gt, GridParam: gp, InKernel: true, IsPeriodic: periodic,
		Indexes: list, Member: member, ArrayIndices: arrayIndices,
	})

	if member == "" {
		a.rangeByParam[paramIdx].Absorb(list, periodic, a.irregularMaxOffset())
	} else {
		mm, ok := a.membersByParam[paramIdx]
		if !ok {
			return newTranslationError(a.sess, ErrUnsupportedMemberType, ce.Range(), "member access on a non-record grid")
		}
		if _, ok := gt.Member(member); !ok {
			return newTranslationError(a.sess, ErrUnsupportedMemberType, ce.Range(), "unknown member "+member)
		}
		mm.Get(MemberKey{Member: member, Indices: joinIndices(arrayIndices)}).Absorb(list, periodic, a.irregularMaxOffset())
	}
	return nil
}

func (a *kernelAnalyzer) handleEmit(ce *CallExpr, member string, arrayIndices []int) *TranslationError {
	if len(ce.Args) != 2 {
		return newTranslationError(a.sess, ErrNonGridCall, ce.Range(), "emit requires exactly (grid, value)")
	}
	gridIdent, ok := ce.Args[0].(*Ident)
	if !ok {
		return newTranslationError(a.sess, ErrNonGridCall, ce.Range(), "first argument is not a grid reference")
	}
	paramIdx, gp, gt, ok := a.resolveGridIdent(gridIdent)
	if !ok {
		return newTranslationError(a.sess, ErrNonGridCall, ce.Range(), "first argument does not name a grid parameter")
	}
	value := ce.Args[1]
	if err := checkEmitType(a.sess, gt, value, ce); err != nil {
		return err
	}
	if err := a.analyzeExpr(value, false); err != nil {
		return err
	}

	list := StencilIndexList{Indexes: selfIndexes(gt.Rank)}
	a.sess.SetAttr(ce, &GridEmitAttribute{
		GridType: gt, GridParam: gp, InKernel: true, Indexes: list,
		Member: member, ArrayIndices: arrayIndices, Value: value,
	})
	a.rangeByParam[paramIdx].Absorb(list, false, a.irregularMaxOffset())
	return nil
}

// handleEmitUtype handles PSGridEmitUtype(g.m, v): the grid+member
// pair is expressed directly as a SelectorExpr first argument rather
// than wrapping a get call (spec §6).
func (a *kernelAnalyzer) handleEmitUtype(ce *CallExpr) *TranslationError {
	if len(ce.Args) != 2 {
		return newTranslationError(a.sess, ErrNonGridCall, ce.Range(), "PSGridEmitUtype requires exactly (grid.member, value)")
	}
	sel, ok := ce.Args[0].(*SelectorExpr)
	if !ok {
		return newTranslationError(a.sess, ErrNonGridCall, ce.Range(), "PSGridEmitUtype's first argument must be grid.member")
	}
	gridIdent, ok := sel.Base.(*Ident)
	if !ok {
		return newTranslationError(a.sess, ErrNonGridCall, ce.Range(), "PSGridEmitUtype's base is not a grid reference")
	}
	paramIdx, gp, gt, ok := a.resolveGridIdent(gridIdent)
	if !ok {
		return newTranslationError(a.sess, ErrNonGridCall, ce.Range(), "PSGridEmitUtype's base does not name a grid parameter")
	}
	if gt.Kind != PointRecord {
		return newTranslationError(a.sess, ErrUnsupportedMemberType, ce.Range(), "member emit on a non-record grid")
	}
	m, ok := gt.Member(sel.Member)
	if !ok {
		return newTranslationError(a.sess, ErrUnsupportedMemberType, ce.Range(), "unknown member "+sel.Member)
	}
	value := ce.Args[1]
	if err := checkEmitMemberType(a.sess, m, value, ce); err != nil {
		return err
	}
	if err := a.analyzeExpr(value, false); err != nil {
		return err
	}

	list := StencilIndexList{Indexes: selfIndexes(gt.Rank)}
	a.sess.SetAttr(ce, &GridEmitAttribute{
		GridType: gt, GridParam: gp, InKernel: true, Indexes: list,
		Member: sel.Member, Value: value,
	})
	mm := a.membersByParam[paramIdx]
	mm.Get(MemberKey{Member: sel.Member}).Absorb(list, false, a.irregularMaxOffset())
	return nil
}

func (a *kernelAnalyzer) handleLoweredGet(ie *IndexExpr) *TranslationError {
	gridIdent, member, ok := loweredBase(ie.Base)
	if !ok {
		return newTranslationError(a.sess, ErrNonGridCall, ie.Range(), "lowered index base is not a grid reference")
	}
	paramIdx, gp, gt, ok := a.resolveGridIdent(gridIdent)
	if !ok {
		return newTranslationError(a.sess, ErrNonGridCall, ie.Range(), "lowered index base does not name a grid parameter")
	}
	list := a.decomposeLoweredOffset(gridIdent.Name, ie.Offset, gt.Rank)
	a.sess.SetAttr(ie, &GridGetAttribute{
		GridType: gt, GridParam: gp, InKernel: true, Indexes: list, Member: member,
	})
	if member == "" {
		a.rangeByParam[paramIdx].Absorb(list, false, a.irregularMaxOffset())
	} else if mm, ok := a.membersByParam[paramIdx]; ok {
		mm.Get(MemberKey{Member: member}).Absorb(list, false, a.irregularMaxOffset())
	}
	return nil
}

func (a *kernelAnalyzer) handleLoweredEmit(ie *IndexExpr) *TranslationError {
	gridIdent, member, ok := loweredBase(ie.Base)
	if !ok {
		return newTranslationError(a.sess, ErrNonGridCall, ie.Range(), "lowered index base is not a grid reference")
	}
	paramIdx, gp, gt, ok := a.resolveGridIdent(gridIdent)
	if !ok {
		return newTranslationError(a.sess, ErrNonGridCall, ie.Range(), "lowered index base does not name a grid parameter")
	}
	list := a.decomposeLoweredOffset(gridIdent.Name, ie.Offset, gt.Rank)
	a.sess.SetAttr(ie, &GridEmitAttribute{
		GridType: gt, GridParam: gp, InKernel: true, Indexes: list, Member: member,
	})
	if member == "" {
		a.rangeByParam[paramIdx].Absorb(list, false, a.irregularMaxOffset())
	} else if mm, ok := a.membersByParam[paramIdx]; ok {
		mm.Get(MemberKey{Member: member}).Absorb(list, false, a.irregularMaxOffset())
	}
	return nil
}

// loweredBase recognizes a lowered index's base as either a bare
// grid Ident or a grid.member SelectorExpr.
func loweredBase(base AstNode) (*Ident, string, bool) {
	switch b := base.(type) {
	case *Ident:
		return b, "", true
	case *SelectorExpr:
		if id, ok := b.Base.(*Ident); ok {
			return id, b.Member, true
		}
	}
	return nil, "", false
}

func selfIndexes(rank int) []StencilIndex {
	out := make([]StencilIndex, rank)
	for d := 0; d < rank; d++ {
		out[d] = StencilIndex{Dim: d + 1, Offset: 0}
	}
	return out
}

// decomposeCallFormIndices decomposes one call-form get's index
// arguments, one expression per dimension, each expected to reduce to
// (iteration_variable, constant_offset) (spec §4.1). Any dimension
// that fails to decompose marks the whole list irregular.
func (a *kernelAnalyzer) decomposeCallFormIndices(args []AstNode, rank int) StencilIndexList {
	indexes := make([]StencilIndex, 0, rank)
	for d, arg := range args {
		dim, offset, ok := decomposeAffine(a.iterVars, arg)
		if !ok || dim != d+1 {
			return NewIrregularIndexList(rank)
		}
		indexes = append(indexes, StencilIndex{Dim: dim, Offset: offset})
	}
	return StencilIndexList{Indexes: indexes}
}

// decomposeAffine reduces expr to a single (iteration_variable,
// constant_offset) pair, or reports failure for anything else (spec
// §4.1: "non-linear or non-affine offsets ... marked irregular").
func decomposeAffine(iterVars map[string]int, expr AstNode) (dim, offset int, ok bool) {
	switch n := expr.(type) {
	case *Ident:
		d, exists := iterVars[n.Name]
		if !exists {
			return 0, 0, false
		}
		return d, 0, true
	case *IntLit:
		return 0, n.Value, true
	case *BinaryExpr:
		ld, lo, lok := decomposeAffine(iterVars, n.Left)
		if !lok {
			return 0, 0, false
		}
		rd, ro, rok := decomposeAffine(iterVars, n.Right)
		if !rok {
			return 0, 0, false
		}
		switch n.Op {
		case OpAdd:
			if ld != 0 && rd != 0 && ld != rd {
				return 0, 0, false
			}
			dim := ld
			if dim == 0 {
				dim = rd
			}
			return dim, lo + ro, true
		case OpSub:
			if rd != 0 {
				return 0, 0, false
			}
			return ld, lo - ro, true
		default:
			return 0, 0, false
		}
	case *UnaryExpr:
		if n.Op != OpNeg {
			return 0, 0, false
		}
		d, o, ok := decomposeAffine(iterVars, n.Expr)
		if !ok || d != 0 {
			return 0, 0, false
		}
		return 0, -o, true
	default:
		return 0, 0, false
	}
}

// decomposeLoweredOffset reverse-engineers the already-lowered
// pointer-arithmetic offset `i_1 + i_2·dim(g,0) + i_3·dim(g,0)·dim(g,1)`
// back into a per-dimension StencilIndexList by recognizing the
// multiplicative PSGridDim tower (spec §4.1).
func (a *kernelAnalyzer) decomposeLoweredOffset(gridArgName string, offsetExpr AstNode, rank int) StencilIndexList {
	terms := flattenSum(offsetExpr)
	byDim := make(map[int]StencilIndex)

	for _, t := range terms {
		factors := flattenProduct(t.node)
		var nonDim []AstNode
		towerDepth := 0
		for _, f := range factors {
			if isGridDimCall(f, gridArgName) {
				towerDepth++
			} else {
				nonDim = append(nonDim, f)
			}
		}
		if len(nonDim) != 1 {
			return NewIrregularIndexList(rank)
		}
		dimVar, offset, ok := decomposeAffine(a.iterVars, nonDim[0])
		if !ok || dimVar == 0 {
			return NewIrregularIndexList(rank)
		}
		targetDim := towerDepth + 1
		if _, exists := byDim[targetDim]; exists {
			return NewIrregularIndexList(rank)
		}
		byDim[targetDim] = StencilIndex{Dim: targetDim, Offset: t.sign * offset}
	}

	if len(byDim) != rank {
		return NewIrregularIndexList(rank)
	}
	out := make([]StencilIndex, rank)
	for d := 1; d <= rank; d++ {
		idx, ok := byDim[d]
		if !ok {
			return NewIrregularIndexList(rank)
		}
		out[d-1] = idx
	}
	return StencilIndexList{Indexes: out}
}

type signedTerm struct {
	node AstNode
	sign int
}

func flattenSum(expr AstNode) []signedTerm {
	var terms []signedTerm
	var walk func(n AstNode, sign int)
	walk = func(n AstNode, sign int) {
		switch b := n.(type) {
		case *BinaryExpr:
			if b.Op == OpAdd {
				walk(b.Left, sign)
				walk(b.Right, sign)
				return
			}
			if b.Op == OpSub {
				walk(b.Left, sign)
				walk(b.Right, -sign)
				return
			}
		case *UnaryExpr:
			if b.Op == OpNeg {
				walk(b.Expr, -sign)
				return
			}
		}
		terms = append(terms, signedTerm{node: n, sign: sign})
	}
	walk(expr, 1)
	return terms
}

func flattenProduct(expr AstNode) []AstNode {
	var factors []AstNode
	var walk func(n AstNode)
	walk = func(n AstNode) {
		if b, ok := n.(*BinaryExpr); ok && b.Op == OpMul {
			walk(b.Left)
			walk(b.Right)
			return
		}
		factors = append(factors, n)
	}
	walk(expr)
	return factors
}

func isGridDimCall(n AstNode, gridArgName string) bool {
	ce, ok := n.(*CallExpr)
	if !ok || ce.CalleeName() != "PSGridDim" || len(ce.Args) != 2 {
		return false
	}
	id, ok := ce.Args[0].(*Ident)
	return ok && id.Name == gridArgName
}

func joinIndices(indices []int) string {
	if len(indices) == 0 {
		return ""
	}
	out := make([]byte, 0, len(indices)*2)
	for i, v := range indices {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, strconv.Itoa(v)...)
	}
	return string(out)
}

// checkEmitType reports ErrMixedEmitTypes when a literal value's type
// family plainly mismatches the grid's primitive point type (spec
// §7's "mixed types at an emit"). Anything not staticly typeable as a
// literal is assumed compatible — the core does not carry a full type
// checker, only this spot check.
func checkEmitType(sess *Session, gt *GridType, value AstNode, ce *CallExpr) *TranslationError {
	if gt.Kind != PointPrimitive {
		return nil
	}
	if mismatch := literalFamilyMismatch(gt.Primitive, value); mismatch {
		return newTranslationError(sess, ErrMixedEmitTypes, ce.Range(), "emitted literal family does not match grid point type "+gt.Primitive.String())
	}
	return nil
}

func checkEmitMemberType(sess *Session, m RecordMember, value AstNode, ce *CallExpr) *TranslationError {
	if literalFamilyMismatch(m.Type, value) {
		return newTranslationError(sess, ErrMixedEmitTypes, ce.Range(), "emitted literal family does not match member type "+m.Type.String())
	}
	return nil
}

func literalFamilyMismatch(want PrimitiveType, value AstNode) bool {
	isFloatFamily := want == TypeFloat || want == TypeDouble
	switch value.(type) {
	case *FloatLit:
		return !isFloatFamily
	case *IntLit:
		return isFloatFamily
	default:
		return false
	}
}
