package physis

import (
	"fmt"
	"strings"
)

// AstNode is the closed interface implemented by every node of the
// program AST handed to Translate. Physis does not parse surface
// syntax itself (spec §1's "surface-language parser ... consumed as a
// black-box AST"); this is that black box's node set, sized to host
// exactly the constructs the core needs to recognize: function
// declarations, the handful of statement/expression shapes a kernel
// body can contain, and calls to the PS* intrinsics.
type AstNode interface {
	// Range returns the node's location in the original source.
	Range() SourceRange

	// String returns a compact textual representation, used for
	// diagnostics and for FormatProgram.
	String() string

	// Accept dispatches to the matching Visit method of v.
	Accept(v AstVisitor) error
}

// Program is the root node: an ordered list of top-level function
// declarations.
type Program struct {
	rg    SourceRange
	Funcs []*FuncDecl
}

func NewProgram(funcs []*FuncDecl, rg SourceRange) *Program {
	return &Program{rg: rg, Funcs: funcs}
}

func (n *Program) Range() SourceRange { return n.rg }
func (n *Program) Accept(v AstVisitor) error { return v.VisitProgram(n) }
func (n *Program) String() string {
	parts := make([]string, len(n.Funcs))
	for i, f := range n.Funcs {
		parts[i] = f.String()
	}
	return strings.Join(parts, "\n\n")
}

// FuncDecl is a top-level function: either a kernel (recognized by
// AnalyzeKernel's signature test, spec §4.1) or an ordinary host
// function containing new/map/run calls.
type FuncDecl struct {
	rg     SourceRange
	Name   string
	Params []*Param
	Body   *Block
}

func NewFuncDecl(name string, params []*Param, body *Block, rg SourceRange) *FuncDecl {
	return &FuncDecl{rg: rg, Name: name, Params: params, Body: body}
}

func (n *FuncDecl) Range() SourceRange { return n.rg }
func (n *FuncDecl) Accept(v AstVisitor) error { return v.VisitFuncDecl(n) }
func (n *FuncDecl) String() string {
	names := make([]string, len(n.Params))
	for i, p := range n.Params {
		names[i] = p.String()
	}
	return fmt.Sprintf("func %s(%s) %s", n.Name, strings.Join(names, ", "), n.Body.String())
}

// Param is one function parameter. TypeName is either an iteration
// index type ("int"), a grid type name, or a primitive/record point
// type name.
type Param struct {
	rg       SourceRange
	Name     string
	TypeName string
}

func NewParam(name, typeName string, rg SourceRange) *Param {
	return &Param{rg: rg, Name: name, TypeName: typeName}
}

func (n *Param) Range() SourceRange { return n.rg }
func (n *Param) Accept(v AstVisitor) error { return v.VisitParam(n) }
func (n *Param) String() string            { return fmt.Sprintf("%s %s", n.TypeName, n.Name) }

// Block is a brace-delimited statement list.
type Block struct {
	rg    SourceRange
	Stmts []AstNode
}

func NewBlock(stmts []AstNode, rg SourceRange) *Block {
	return &Block{rg: rg, Stmts: stmts}
}

func (n *Block) Range() SourceRange { return n.rg }
func (n *Block) Accept(v AstVisitor) error { return v.VisitBlock(n) }
func (n *Block) String() string {
	parts := make([]string, len(n.Stmts))
	for i, s := range n.Stmts {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

// IfStmt is a conditional with two branches, both always present
// (an absent else is represented as an empty Block). This is the
// construct C9 lifts gets out of.
type IfStmt struct {
	rg      SourceRange
	Cond    AstNode
	Then    *Block
	Else    *Block
}

func NewIfStmt(cond AstNode, then, els *Block, rg SourceRange) *IfStmt {
	return &IfStmt{rg: rg, Cond: cond, Then: then, Else: els}
}

func (n *IfStmt) Range() SourceRange { return n.rg }
func (n *IfStmt) Accept(v AstVisitor) error { return v.VisitIfStmt(n) }
func (n *IfStmt) String() string {
	return fmt.Sprintf("if (%s) %s else %s", n.Cond, n.Then, n.Else)
}

// ForStmt is a counted loop `for Var = Low; Var < High; ++Var Body`,
// synthesized by backends to drive a domain dimension (spec §4.3's
// "outer-to-inner dimension order" loop nest) or an iteration count
// (spec §4.3's per-run driver). Never produced by the surface
// language itself — only backends build these.
type ForStmt struct {
	rg   SourceRange
	Var  string
	Low  AstNode
	High AstNode
	Body *Block
}

func NewForStmt(varName string, low, high AstNode, body *Block, rg SourceRange) *ForStmt {
	return &ForStmt{rg: rg, Var: varName, Low: low, High: high, Body: body}
}

func (n *ForStmt) Range() SourceRange { return n.rg }
func (n *ForStmt) Accept(v AstVisitor) error { return v.VisitForStmt(n) }
func (n *ForStmt) String() string {
	return fmt.Sprintf("for (%s = %s; %s < %s; ++%s) %s", n.Var, n.Low, n.Var, n.High, n.Var, n.Body)
}

// VarDecl declares a local variable, optionally with an initializer.
type VarDecl struct {
	rg       SourceRange
	Name     string
	TypeName string
	Init     AstNode // nil if uninitialized
}

func NewVarDecl(name, typeName string, init AstNode, rg SourceRange) *VarDecl {
	return &VarDecl{rg: rg, Name: name, TypeName: typeName, Init: init}
}

func (n *VarDecl) Range() SourceRange { return n.rg }
func (n *VarDecl) Accept(v AstVisitor) error { return v.VisitVarDecl(n) }
func (n *VarDecl) String() string {
	if n.Init == nil {
		return fmt.Sprintf("%s %s;", n.TypeName, n.Name)
	}
	return fmt.Sprintf("%s %s = %s;", n.TypeName, n.Name, n.Init)
}

// AssignStmt assigns Value to Target, where Target is an Ident,
// SelectorExpr, or IndexExpr (the three lvalue shapes a kernel body
// needs: a local, a record member, or — post-lowering — a raw grid
// element).
type AssignStmt struct {
	rg     SourceRange
	Target AstNode
	Value  AstNode
}

func NewAssignStmt(target, value AstNode, rg SourceRange) *AssignStmt {
	return &AssignStmt{rg: rg, Target: target, Value: value}
}

func (n *AssignStmt) Range() SourceRange { return n.rg }
func (n *AssignStmt) Accept(v AstVisitor) error { return v.VisitAssignStmt(n) }
func (n *AssignStmt) String() string {
	return fmt.Sprintf("%s = %s;", n.Target, n.Value)
}

// ExprStmt is an expression evaluated for its side effects (almost
// always a PSGridEmit/PSStencilRun/etc. call).
type ExprStmt struct {
	rg   SourceRange
	Expr AstNode
}

func NewExprStmt(expr AstNode, rg SourceRange) *ExprStmt {
	return &ExprStmt{rg: rg, Expr: expr}
}

func (n *ExprStmt) Range() SourceRange { return n.rg }
func (n *ExprStmt) Accept(v AstVisitor) error { return v.VisitExprStmt(n) }
func (n *ExprStmt) String() string            { return n.Expr.String() + ";" }

// ReturnStmt returns Value (nil for a bare return), exclusively used
// inside kernel bodies that hand back a point value instead of
// emitting it directly.
type ReturnStmt struct {
	rg    SourceRange
	Value AstNode
}

func NewReturnStmt(value AstNode, rg SourceRange) *ReturnStmt {
	return &ReturnStmt{rg: rg, Value: value}
}

func (n *ReturnStmt) Range() SourceRange { return n.rg }
func (n *ReturnStmt) Accept(v AstVisitor) error { return v.VisitReturnStmt(n) }
func (n *ReturnStmt) String() string {
	if n.Value == nil {
		return "return;"
	}
	return fmt.Sprintf("return %s;", n.Value)
}

// Ident is a bare identifier reference: a local variable, an
// iteration index, or a function/grid name depending on context.
type Ident struct {
	rg    SourceRange
	Name  string
}

func NewIdent(name string, rg SourceRange) *Ident {
	return &Ident{rg: rg, Name: name}
}

func (n *Ident) Range() SourceRange { return n.rg }
func (n *Ident) Accept(v AstVisitor) error { return v.VisitIdent(n) }
func (n *Ident) String() string            { return n.Name }

// IntLit is an integer literal.
type IntLit struct {
	rg    SourceRange
	Value int
}

func NewIntLit(value int, rg SourceRange) *IntLit {
	return &IntLit{rg: rg, Value: value}
}

func (n *IntLit) Range() SourceRange { return n.rg }
func (n *IntLit) Accept(v AstVisitor) error { return v.VisitIntLit(n) }
func (n *IntLit) String() string            { return fmt.Sprintf("%d", n.Value) }

// FloatLit is a floating-point literal.
type FloatLit struct {
	rg    SourceRange
	Value float64
}

func NewFloatLit(value float64, rg SourceRange) *FloatLit {
	return &FloatLit{rg: rg, Value: value}
}

func (n *FloatLit) Range() SourceRange { return n.rg }
func (n *FloatLit) Accept(v AstVisitor) error { return v.VisitFloatLit(n) }
func (n *FloatLit) String() string            { return fmt.Sprintf("%g", n.Value) }

// BinaryOp enumerates the binary operators a kernel body can use.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
)

var binaryOpSymbols = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpEq: "==", OpNe: "!=", OpAnd: "&&", OpOr: "||",
}

func (op BinaryOp) String() string { return binaryOpSymbols[op] }

// BinaryExpr is a binary operator expression: arithmetic offsets
// (i+1, i-1), index-tower multiplications in already-lowered pointer
// arithmetic, and boolean conditions.
type BinaryExpr struct {
	rg    SourceRange
	Op    BinaryOp
	Left  AstNode
	Right AstNode
}

func NewBinaryExpr(op BinaryOp, left, right AstNode, rg SourceRange) *BinaryExpr {
	return &BinaryExpr{rg: rg, Op: op, Left: left, Right: right}
}

func (n *BinaryExpr) Range() SourceRange { return n.rg }
func (n *BinaryExpr) Accept(v AstVisitor) error { return v.VisitBinaryExpr(n) }
func (n *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Left, n.Op, n.Right)
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
	OpDeref
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpDeref:
		return "*"
	default:
		return "-"
	}
}

// UnaryExpr is a unary operator expression.
type UnaryExpr struct {
	rg    SourceRange
	Op    UnaryOp
	Expr  AstNode
}

func NewUnaryExpr(op UnaryOp, expr AstNode, rg SourceRange) *UnaryExpr {
	return &UnaryExpr{rg: rg, Op: op, Expr: expr}
}

func (n *UnaryExpr) Range() SourceRange { return n.rg }
func (n *UnaryExpr) Accept(v AstVisitor) error { return v.VisitUnaryExpr(n) }
func (n *UnaryExpr) String() string            { return fmt.Sprintf("%s%s", n.Op, n.Expr) }

// CallExpr is a call to a named function: either one of the PS*
// intrinsics (spec §6) or a user kernel/helper. Indirect calls
// (Callee not an *Ident) are rejected by analysis with
// ErrIndirectKernelCall (spec §7).
type CallExpr struct {
	rg     SourceRange
	Callee AstNode
	Args   []AstNode
}

func NewCallExpr(callee AstNode, args []AstNode, rg SourceRange) *CallExpr {
	return &CallExpr{rg: rg, Callee: callee, Args: args}
}

func (n *CallExpr) Range() SourceRange { return n.rg }
func (n *CallExpr) Accept(v AstVisitor) error { return v.VisitCallExpr(n) }
func (n *CallExpr) CalleeName() string {
	if id, ok := n.Callee.(*Ident); ok {
		return id.Name
	}
	return ""
}
func (n *CallExpr) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", n.Callee, strings.Join(parts, ", "))
}

// IndexExpr is the already-lowered pointer-arithmetic access form
// `Base[Offset]` that analysis.go reverse-engineers back into a
// StencilIndexList (spec §4.1).
type IndexExpr struct {
	rg     SourceRange
	Base   AstNode
	Offset AstNode
}

func NewIndexExpr(base, offset AstNode, rg SourceRange) *IndexExpr {
	return &IndexExpr{rg: rg, Base: base, Offset: offset}
}

func (n *IndexExpr) Range() SourceRange { return n.rg }
func (n *IndexExpr) Accept(v AstVisitor) error { return v.VisitIndexExpr(n) }
func (n *IndexExpr) String() string            { return fmt.Sprintf("%s[%s]", n.Base, n.Offset) }

// SelectorExpr is a record-member access `Base.Member` (grid.m or a
// local struct field).
type SelectorExpr struct {
	rg     SourceRange
	Base   AstNode
	Member string
}

func NewSelectorExpr(base AstNode, member string, rg SourceRange) *SelectorExpr {
	return &SelectorExpr{rg: rg, Base: base, Member: member}
}

func (n *SelectorExpr) Range() SourceRange { return n.rg }
func (n *SelectorExpr) Accept(v AstVisitor) error { return v.VisitSelectorExpr(n) }
func (n *SelectorExpr) String() string            { return fmt.Sprintf("%s.%s", n.Base, n.Member) }

// CondExpr is a ternary `Cond ? Then : Else`. C9 detects but does not
// transform these (spec §4.7).
type CondExpr struct {
	rg   SourceRange
	Cond AstNode
	Then AstNode
	Else AstNode
}

func NewCondExpr(cond, then, els AstNode, rg SourceRange) *CondExpr {
	return &CondExpr{rg: rg, Cond: cond, Then: then, Else: els}
}

func (n *CondExpr) Range() SourceRange { return n.rg }
func (n *CondExpr) Accept(v AstVisitor) error { return v.VisitCondExpr(n) }
func (n *CondExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", n.Cond, n.Then, n.Else)
}
