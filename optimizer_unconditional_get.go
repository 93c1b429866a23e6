package physis

// OptimizeUnconditionalGet implements spec §4.7: a post-C3,
// pre-emission pass that turns a grid-get guarded by an if into a
// straight-line load. For the single assignment `target = PSGridGet(g,
// …)` found directly in an if's Then branch, Else branch, or both, it:
//  1. lifts the condition into a temporary preceding the if;
//  2. replaces the get in each branch with an assignment of a fresh
//     per-dimension index temporary (the branch's own offsets if it
//     had a get, the center/self offsets otherwise);
//  3. inserts a single unconditional get after the if, reading the
//     grid at those temporaries.
//
// Conditional-expression (ternary) get sites are detected but left
// untransformed; one ErrUnconditionalGetTernary warning is returned
// per site found. The returned errors are warnings, not fatal — the
// caller (translate.go) is expected to log and continue.
func OptimizeUnconditionalGet(sess *Session, fn *FuncDecl) []*TranslationError {
	rank, ok := IsKernel(sess, fn)
	if !ok {
		internalInvariant("OptimizeUnconditionalGet called on a function without a Kernel attribute", fn)
	}
	iterVars := make([]string, rank)
	for i := 0; i < rank; i++ {
		iterVars[i] = fn.Params[i].Name
	}

	warnings := detectTernaryGets(sess, fn.Body)
	rewriteBlockConditionalGets(sess, fn.Body, iterVars)
	return warnings
}

// detectTernaryGets walks body read-only, reporting one warning per
// CondExpr whose Then or Else branch is itself a grid-get call (spec
// §4.7: "conditional-expression sites are detected but not
// transformed").
func detectTernaryGets(sess *Session, body *Block) []*TranslationError {
	var warnings []*TranslationError
	Inspect(body, func(n AstNode) bool {
		ce, ok := n.(*CondExpr)
		if !ok {
			return true
		}
		if isGridGetSite(sess, ce.Then) || isGridGetSite(sess, ce.Else) {
			warnings = append(warnings, newTranslationError(sess, ErrUnconditionalGetTernary, ce.Range(),
				"conditional-expression grid-get site left untransformed"))
		}
		return true
	})
	return warnings
}

func isGridGetSite(sess *Session, n AstNode) bool {
	ce, ok := n.(*CallExpr)
	if !ok {
		return false
	}
	_, ok = sess.Attr(ce)
	return ok
}

// rewriteBlockConditionalGets recurses through block, rewriting every
// *IfStmt in place whose Then and/or Else branch directly contains a
// single-get assignment, and splicing in the resulting unconditional
// read immediately after it.
func rewriteBlockConditionalGets(sess *Session, block *Block, iterVars []string) {
	if block == nil {
		return
	}
	var out []AstNode
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *IfStmt:
			before, after := tryLiftConditionalGet(sess, s, iterVars)
			if before != nil {
				out = append(out, before)
			}
			out = append(out, stmt)
			if after != nil {
				out = append(out, after)
			}
			rewriteBlockConditionalGets(sess, s.Then, iterVars)
			rewriteBlockConditionalGets(sess, s.Else, iterVars)
		case *ForStmt:
			out = append(out, stmt)
			rewriteBlockConditionalGets(sess, s.Body, iterVars)
		default:
			out = append(out, stmt)
		}
	}
	block.Stmts = out
}

// tryLiftConditionalGet performs the transform described on
// OptimizeUnconditionalGet, mutating ifs in place, when at least one
// of its branches carries a single qualifying get-assignment. Returns
// the condition-lifting assignment to splice in immediately before
// ifs (nil if neither branch qualified) and the unconditional-read
// statement to splice in immediately after it.
func tryLiftConditionalGet(sess *Session, ifs *IfStmt, iterVars []string) (before, after AstNode) {
	thenIdx, thenAssign, thenGet, thenOK := findGetAssign(sess, ifs.Then)
	elseIdx, elseAssign, elseGet, elseOK := findGetAssign(sess, ifs.Else)
	if !thenOK && !elseOK {
		return nil, nil
	}

	rg := idx0Range()
	rank := len(iterVars)

	condTemp := FreshTempName(sess, "cond")
	origCond := ifs.Cond
	before = NewVarDecl(condTemp, "int", origCond, rg)
	ifs.Cond = NewIdent(condTemp, rg)

	var target AstNode
	var grid AstNode
	if thenOK {
		target = thenAssign.Target
		grid = thenGet.Args[0]
	} else {
		target = elseAssign.Target
		grid = elseGet.Args[0]
	}

	idxTemps := make([]string, rank)
	for d := 0; d < rank; d++ {
		idxTemps[d] = FreshTempName(sess, "idx")
	}

	thenAssigns := indexTempAssignments(idxTemps, thenGet, iterVars, rg)
	elseAssigns := indexTempAssignments(idxTemps, elseGet, iterVars, rg)

	if thenOK {
		ifs.Then.Stmts = replaceStmt(ifs.Then.Stmts, thenIdx, thenAssigns)
	} else {
		ifs.Then.Stmts = append(append([]AstNode(nil), ifs.Then.Stmts...), thenAssigns...)
	}
	if elseOK {
		ifs.Else.Stmts = replaceStmt(ifs.Else.Stmts, elseIdx, elseAssigns)
	} else if ifs.Else != nil {
		ifs.Else.Stmts = append(append([]AstNode(nil), ifs.Else.Stmts...), elseAssigns...)
	}

	idxArgs := make([]AstNode, rank)
	for d := range idxTemps {
		idxArgs[d] = NewIdent(idxTemps[d], rg)
	}
	var call AstNode = NewCallExpr(NewIdent("PSGridGet", rg), append([]AstNode{grid}, idxArgs...), rg)
	sess.SetAttr(call, StencilIndexList{Indexes: centerIndexes(rank)})

	after = NewAssignStmt(target, call, rg)
	return before, after
}

func findGetAssign(sess *Session, block *Block) (int, *AssignStmt, *CallExpr, bool) {
	if block == nil {
		return -1, nil, nil, false
	}
	for i, stmt := range block.Stmts {
		assign, ok := stmt.(*AssignStmt)
		if !ok {
			continue
		}
		ce, ok := assign.Value.(*CallExpr)
		if !ok {
			continue
		}
		if _, ok := gridGetAttrOf(sess, ce); ok {
			return i, assign, ce, true
		}
	}
	return -1, nil, nil, false
}

func gridGetAttrOf(sess *Session, ce *CallExpr) (*GridGetAttribute, bool) {
	if ce == nil {
		return nil, false
	}
	a, ok := sess.Attr(ce)
	if !ok {
		return nil, false
	}
	attr, ok := a.(*GridGetAttribute)
	return attr, ok
}

// indexTempAssignments returns one AssignStmt per dimension, assigning
// idxTemps[d] the branch get's offset expression for that dimension
// when get is non-nil, or the center (self, zero-offset) expression —
// the iteration variable itself — otherwise (spec §4.7: "using the
// paired get's offset when present, otherwise the center offset").
func indexTempAssignments(idxTemps []string, get *CallExpr, iterVars []string, rg SourceRange) []AstNode {
	out := make([]AstNode, len(idxTemps))
	for d := range idxTemps {
		var value AstNode
		if get != nil && len(get.Args) == len(idxTemps)+1 {
			value = get.Args[d+1]
		} else {
			value = NewIdent(iterVars[d], rg)
		}
		out[d] = NewAssignStmt(NewIdent(idxTemps[d], rg), value, rg)
	}
	return out
}

func centerIndexes(rank int) []StencilIndex {
	out := make([]StencilIndex, rank)
	for d := 0; d < rank; d++ {
		out[d] = StencilIndex{Dim: d + 1, Offset: 0}
	}
	return out
}

// replaceStmt substitutes the statement at idx with replacement,
// preserving every other statement's position.
func replaceStmt(stmts []AstNode, idx int, replacement []AstNode) []AstNode {
	out := make([]AstNode, 0, len(stmts)-1+len(replacement))
	out = append(out, stmts[:idx]...)
	out = append(out, replacement...)
	out = append(out, stmts[idx+1:]...)
	return out
}
