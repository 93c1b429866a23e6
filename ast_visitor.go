package physis

import "fmt"

// AstVisitor is the exhaustive visitor over AstNode. Backends (C5–C8)
// implement it directly when they need to rewrite every node kind;
// passes that only care about a few node shapes use Inspect instead.
type AstVisitor interface {
	VisitProgram(*Program) error
	VisitFuncDecl(*FuncDecl) error
	VisitParam(*Param) error
	VisitBlock(*Block) error
	VisitIfStmt(*IfStmt) error
	VisitForStmt(*ForStmt) error
	VisitVarDecl(*VarDecl) error
	VisitAssignStmt(*AssignStmt) error
	VisitExprStmt(*ExprStmt) error
	VisitReturnStmt(*ReturnStmt) error
	VisitIdent(*Ident) error
	VisitIntLit(*IntLit) error
	VisitFloatLit(*FloatLit) error
	VisitBinaryExpr(*BinaryExpr) error
	VisitUnaryExpr(*UnaryExpr) error
	VisitCallExpr(*CallExpr) error
	VisitIndexExpr(*IndexExpr) error
	VisitSelectorExpr(*SelectorExpr) error
	VisitCondExpr(*CondExpr) error
}

// WalkBlock visits every statement of a block in order, short
// circuiting on the first error.
func WalkBlock(v AstVisitor, n *Block) error {
	for _, stmt := range n.Stmts {
		if err := stmt.Accept(v); err != nil {
			return err
		}
	}
	return nil
}

// Inspect traverses an AST in depth-first order, calling f for every
// node. If f returns false, Inspect skips that node's children. This
// mirrors Go's own ast.Inspect and lets a pass look for a handful of
// node kinds without implementing the full AstVisitor contract — used
// by C9's ternary-detection sweep, translate.go's call-site scans and
// ast_clone.go's clone and rename walks.
func Inspect(node AstNode, f func(AstNode) bool) {
	inspect(node, f)
}

func inspect(node AstNode, f func(AstNode) bool) {
	if node == nil {
		return
	}
	if !f(node) {
		return
	}

	switch n := node.(type) {
	case *Program:
		for _, fn := range n.Funcs {
			inspect(fn, f)
		}
	case *FuncDecl:
		for _, p := range n.Params {
			inspect(p, f)
		}
		inspect(n.Body, f)
	case *Param:
		// leaf
	case *Block:
		for _, s := range n.Stmts {
			inspect(s, f)
		}
	case *IfStmt:
		inspect(n.Cond, f)
		inspect(n.Then, f)
		inspect(n.Else, f)
	case *ForStmt:
		inspect(n.Low, f)
		inspect(n.High, f)
		inspect(n.Body, f)
	case *VarDecl:
		inspect(n.Init, f)
	case *AssignStmt:
		inspect(n.Target, f)
		inspect(n.Value, f)
	case *ExprStmt:
		inspect(n.Expr, f)
	case *ReturnStmt:
		inspect(n.Value, f)
	case *Ident, *IntLit, *FloatLit:
		// leaves
	case *BinaryExpr:
		inspect(n.Left, f)
		inspect(n.Right, f)
	case *UnaryExpr:
		inspect(n.Expr, f)
	case *CallExpr:
		inspect(n.Callee, f)
		for _, a := range n.Args {
			inspect(a, f)
		}
	case *IndexExpr:
		inspect(n.Base, f)
		inspect(n.Offset, f)
	case *SelectorExpr:
		inspect(n.Base, f)
	case *CondExpr:
		inspect(n.Cond, f)
		inspect(n.Then, f)
		inspect(n.Else, f)
	default:
		panic(fmt.Sprintf("Inspect is outdated, missing node %T", n))
	}
}
