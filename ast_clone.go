package physis

// CloneAst deep-copies node and its entire subtree, and carries over
// any session attribute attached to a node of that subtree onto its
// copy. This is
// C8's cloning primitive: the interior and per-boundary kernel
// variants (spec §4.6) start from an independent copy of the user's
// kernel body so that rewriting one clone's helper-call names never
// touches another clone or the original.
func CloneAst(sess *Session, node AstNode) AstNode {
	if node == nil {
		return nil
	}
	clone := cloneOne(node)
	// Both trees have the same shape, so Inspect visits them in the
	// same order and the i-th original node pairs with the i-th copy.
	var originals, copies []AstNode
	Inspect(node, func(n AstNode) bool { originals = append(originals, n); return true })
	Inspect(clone, func(n AstNode) bool { copies = append(copies, n); return true })
	for i, n := range originals {
		if attr, ok := sess.Attr(n); ok {
			sess.SetAttr(copies[i], attr)
		}
	}
	return clone
}

func cloneOne(node AstNode) AstNode {
	switch n := node.(type) {
	case *Program:
		funcs := make([]*FuncDecl, len(n.Funcs))
		for i, f := range n.Funcs {
			funcs[i] = cloneOneGeneric(f).(*FuncDecl)
		}
		return NewProgram(funcs, n.rg)
	case *FuncDecl:
		params := make([]*Param, len(n.Params))
		for i, p := range n.Params {
			params[i] = cloneOneGeneric(p).(*Param)
		}
		return NewFuncDecl(n.Name, params, cloneOneGeneric(n.Body).(*Block), n.rg)
	case *Param:
		return NewParam(n.Name, n.TypeName, n.rg)
	case *Block:
		stmts := make([]AstNode, len(n.Stmts))
		for i, s := range n.Stmts {
			stmts[i] = cloneOneGeneric(s)
		}
		return NewBlock(stmts, n.rg)
	case *ForStmt:
		return NewForStmt(n.Var, cloneOneGeneric(n.Low), cloneOneGeneric(n.High), cloneOneGeneric(n.Body).(*Block), n.rg)
	case *IfStmt:
		var els *Block
		if n.Else != nil {
			els = cloneOneGeneric(n.Else).(*Block)
		}
		return NewIfStmt(cloneOneGeneric(n.Cond), cloneOneGeneric(n.Then).(*Block), els, n.rg)
	case *VarDecl:
		return NewVarDecl(n.Name, n.TypeName, cloneOneGeneric(n.Init), n.rg)
	case *AssignStmt:
		return NewAssignStmt(cloneOneGeneric(n.Target), cloneOneGeneric(n.Value), n.rg)
	case *ExprStmt:
		return NewExprStmt(cloneOneGeneric(n.Expr), n.rg)
	case *ReturnStmt:
		return NewReturnStmt(cloneOneGeneric(n.Value), n.rg)
	case *Ident:
		return NewIdent(n.Name, n.rg)
	case *IntLit:
		return NewIntLit(n.Value, n.rg)
	case *FloatLit:
		return NewFloatLit(n.Value, n.rg)
	case *BinaryExpr:
		return NewBinaryExpr(n.Op, cloneOneGeneric(n.Left), cloneOneGeneric(n.Right), n.rg)
	case *UnaryExpr:
		return NewUnaryExpr(n.Op, cloneOneGeneric(n.Expr), n.rg)
	case *CallExpr:
		args := make([]AstNode, len(n.Args))
		for i, a := range n.Args {
			args[i] = cloneOneGeneric(a)
		}
		return NewCallExpr(cloneOneGeneric(n.Callee), args, n.rg)
	case *IndexExpr:
		return NewIndexExpr(cloneOneGeneric(n.Base), cloneOneGeneric(n.Offset), n.rg)
	case *SelectorExpr:
		return NewSelectorExpr(cloneOneGeneric(n.Base), n.Member, n.rg)
	case *CondExpr:
		return NewCondExpr(cloneOneGeneric(n.Cond), cloneOneGeneric(n.Then), cloneOneGeneric(n.Else), n.rg)
	default:
		internalInvariant("CloneAst is outdated, missing node type", node)
		return nil
	}
}

// cloneOneGeneric is cloneOne lifted to handle a possibly-nil
// AstNode (several optional fields — ReturnStmt.Value, VarDecl.Init —
// hold nil when absent).
func cloneOneGeneric(node AstNode) AstNode {
	if node == nil {
		return nil
	}
	return cloneOne(node)
}

// RewriteCallNames walks a freshly cloned tree in place, replacing
// the callee name of every *CallExpr for which rename returns ok.
// Safe to call only on a tree CloneAst produced (or otherwise owned
// outright) — it mutates Ident nodes directly.
func RewriteCallNames(node AstNode, rename func(callee string, ce *CallExpr) (string, bool)) {
	Inspect(node, func(n AstNode) bool {
		ce, ok := n.(*CallExpr)
		if !ok {
			return true
		}
		id, ok := ce.Callee.(*Ident)
		if !ok {
			return true
		}
		if newName, ok := rename(id.Name, ce); ok {
			id.Name = newName
		}
		return true
	})
}
