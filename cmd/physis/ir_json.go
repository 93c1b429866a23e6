package main

import (
	"encoding/json"
	"fmt"

	physis "github.com/physis-lang/physis"
)

// irProgram is the on-disk shape a -input file must have: the grid
// type table plus the ordered function list, standing in for the
// surface-language front end Physis's core leaves out of scope. There
// is no pack precedent for a bespoke program-serialization format, so
// this decoder is plain encoding/json end to end (see DESIGN.md).
type irProgram struct {
	GridTypes []irGridType `json:"grid_types"`
	Funcs     []irFunc     `json:"funcs"`
}

type irGridType struct {
	Name      string     `json:"name"`
	Rank      int        `json:"rank"`
	Kind      string     `json:"kind"` // "primitive" | "record"
	Primitive string     `json:"primitive,omitempty"`
	Members   []irMember `json:"members,omitempty"`
}

type irMember struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	ArrayShape []int  `json:"array_shape,omitempty"`
}

type irFunc struct {
	Name   string          `json:"name"`
	Params []irParam       `json:"params"`
	Body   json.RawMessage `json:"body"`
}

type irParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// irNode is the union of every field any node kind needs; decodeNode
// switches on Node and reads out only the fields that kind defines.
type irNode struct {
	Node string `json:"node"`

	Start int `json:"start"`
	End   int `json:"end"`

	Stmts []json.RawMessage `json:"stmts"`

	Cond json.RawMessage `json:"cond"`
	Then json.RawMessage `json:"then"`
	Else json.RawMessage `json:"else"`

	Var  string          `json:"var"`
	Low  json.RawMessage `json:"low"`
	High json.RawMessage `json:"high"`
	Body json.RawMessage `json:"body"`

	Name string `json:"name"`
	Type string `json:"type"`
	Init json.RawMessage `json:"init"`

	Target json.RawMessage `json:"target"`
	Value  json.RawMessage `json:"value"`
	Expr   json.RawMessage `json:"expr"`

	IntValue   *int     `json:"int_value"`
	FloatValue *float64 `json:"float_value"`

	Op    string          `json:"op"`
	Left  json.RawMessage `json:"left"`
	Right json.RawMessage `json:"right"`

	Callee json.RawMessage   `json:"callee"`
	Args   []json.RawMessage `json:"args"`

	Base   json.RawMessage `json:"base"`
	Offset json.RawMessage `json:"offset"`
	Member string          `json:"member"`
}

func (n irNode) rangeOf() physis.SourceRange {
	return physis.NewSourceRange(n.Start, n.End)
}

// decodeProgram parses a whole -input file into a *physis.Program and
// the grid types it declares. Grid types must be registered against a
// *physis.Session before Translate runs (recognizeKernels and
// collectGridAllocations both resolve parameter/declaration type names
// through Session.GridType).
func decodeProgram(data []byte) (*physis.Program, []*physis.GridType, error) {
	var ip irProgram
	if err := json.Unmarshal(data, &ip); err != nil {
		return nil, nil, fmt.Errorf("decoding program: %w", err)
	}

	gridTypes := make([]*physis.GridType, 0, len(ip.GridTypes))
	for _, gt := range ip.GridTypes {
		decoded, err := decodeGridType(gt)
		if err != nil {
			return nil, nil, err
		}
		gridTypes = append(gridTypes, decoded)
	}

	funcs := make([]*physis.FuncDecl, 0, len(ip.Funcs))
	for _, f := range ip.Funcs {
		fn, err := decodeFunc(f)
		if err != nil {
			return nil, nil, err
		}
		funcs = append(funcs, fn)
	}

	return physis.NewProgram(funcs, physis.SourceRange{}), gridTypes, nil
}

func decodeGridType(gt irGridType) (*physis.GridType, error) {
	switch gt.Kind {
	case "record":
		members := make([]physis.RecordMember, 0, len(gt.Members))
		for _, m := range gt.Members {
			prim, err := decodePrimitiveType(m.Type)
			if err != nil {
				return nil, fmt.Errorf("grid type %q member %q: %w", gt.Name, m.Name, err)
			}
			members = append(members, physis.RecordMember{
				Name:       m.Name,
				Type:       prim,
				ArrayShape: append([]int(nil), m.ArrayShape...),
			})
		}
		return physis.NewRecordGridType(gt.Name, gt.Rank, members), nil
	case "primitive", "":
		prim, err := decodePrimitiveType(gt.Primitive)
		if err != nil {
			return nil, fmt.Errorf("grid type %q: %w", gt.Name, err)
		}
		return physis.NewPrimitiveGridType(gt.Name, gt.Rank, prim), nil
	default:
		return nil, fmt.Errorf("grid type %q: unknown kind %q", gt.Name, gt.Kind)
	}
}

func decodePrimitiveType(name string) (physis.PrimitiveType, error) {
	switch name {
	case "float":
		return physis.TypeFloat, nil
	case "double":
		return physis.TypeDouble, nil
	case "int":
		return physis.TypeInt, nil
	case "long":
		return physis.TypeLong, nil
	default:
		return 0, fmt.Errorf("unknown primitive type %q", name)
	}
}

func decodeFunc(f irFunc) (*physis.FuncDecl, error) {
	params := make([]*physis.Param, 0, len(f.Params))
	for _, p := range f.Params {
		params = append(params, physis.NewParam(p.Name, p.Type, physis.SourceRange{}))
	}
	body, err := decodeBlock(f.Body)
	if err != nil {
		return nil, fmt.Errorf("func %q: %w", f.Name, err)
	}
	return physis.NewFuncDecl(f.Name, params, body, physis.SourceRange{}), nil
}

func decodeBlock(raw json.RawMessage) (*physis.Block, error) {
	if raw == nil {
		return physis.NewBlock(nil, physis.SourceRange{}), nil
	}
	var n irNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decoding block: %w", err)
	}
	if n.Node != "" && n.Node != "Block" {
		return nil, fmt.Errorf("expected a Block node, got %q", n.Node)
	}
	stmts := make([]physis.AstNode, 0, len(n.Stmts))
	for _, s := range n.Stmts {
		stmt, err := decodeNode(s)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return physis.NewBlock(stmts, n.rangeOf()), nil
}

// decodeNode decodes one statement or expression node, dispatching on
// its "node" discriminator. Unknown kinds and malformed shapes are
// reported with the originating node text for -input debuggability.
func decodeNode(raw json.RawMessage) (physis.AstNode, error) {
	var n irNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decoding node: %w", err)
	}
	rg := n.rangeOf()

	switch n.Node {
	case "Block":
		return decodeBlock(raw)

	case "If":
		cond, err := decodeNode(n.Cond)
		if err != nil {
			return nil, fmt.Errorf("if: cond: %w", err)
		}
		then, err := decodeBlock(n.Then)
		if err != nil {
			return nil, fmt.Errorf("if: then: %w", err)
		}
		els, err := decodeBlock(n.Else)
		if err != nil {
			return nil, fmt.Errorf("if: else: %w", err)
		}
		return physis.NewIfStmt(cond, then, els, rg), nil

	case "For":
		low, err := decodeNode(n.Low)
		if err != nil {
			return nil, fmt.Errorf("for: low: %w", err)
		}
		high, err := decodeNode(n.High)
		if err != nil {
			return nil, fmt.Errorf("for: high: %w", err)
		}
		body, err := decodeBlock(n.Body)
		if err != nil {
			return nil, fmt.Errorf("for: body: %w", err)
		}
		return physis.NewForStmt(n.Var, low, high, body, rg), nil

	case "VarDecl":
		var init physis.AstNode
		if n.Init != nil {
			var err error
			init, err = decodeNode(n.Init)
			if err != nil {
				return nil, fmt.Errorf("var %q: init: %w", n.Name, err)
			}
		}
		return physis.NewVarDecl(n.Name, n.Type, init, rg), nil

	case "Assign":
		target, err := decodeNode(n.Target)
		if err != nil {
			return nil, fmt.Errorf("assign: target: %w", err)
		}
		value, err := decodeNode(n.Value)
		if err != nil {
			return nil, fmt.Errorf("assign: value: %w", err)
		}
		return physis.NewAssignStmt(target, value, rg), nil

	case "ExprStmt":
		expr, err := decodeNode(n.Expr)
		if err != nil {
			return nil, fmt.Errorf("expr stmt: %w", err)
		}
		return physis.NewExprStmt(expr, rg), nil

	case "Return":
		var value physis.AstNode
		if n.Value != nil {
			var err error
			value, err = decodeNode(n.Value)
			if err != nil {
				return nil, fmt.Errorf("return: %w", err)
			}
		}
		return physis.NewReturnStmt(value, rg), nil

	case "Ident":
		return physis.NewIdent(n.Name, rg), nil

	case "IntLit":
		if n.IntValue == nil {
			return nil, fmt.Errorf("int literal missing int_value")
		}
		return physis.NewIntLit(*n.IntValue, rg), nil

	case "FloatLit":
		if n.FloatValue == nil {
			return nil, fmt.Errorf("float literal missing float_value")
		}
		return physis.NewFloatLit(*n.FloatValue, rg), nil

	case "Binary":
		op, err := decodeBinaryOp(n.Op)
		if err != nil {
			return nil, err
		}
		left, err := decodeNode(n.Left)
		if err != nil {
			return nil, fmt.Errorf("binary %q: left: %w", n.Op, err)
		}
		right, err := decodeNode(n.Right)
		if err != nil {
			return nil, fmt.Errorf("binary %q: right: %w", n.Op, err)
		}
		return physis.NewBinaryExpr(op, left, right, rg), nil

	case "Unary":
		op, err := decodeUnaryOp(n.Op)
		if err != nil {
			return nil, err
		}
		expr, err := decodeNode(n.Expr)
		if err != nil {
			return nil, fmt.Errorf("unary %q: %w", n.Op, err)
		}
		return physis.NewUnaryExpr(op, expr, rg), nil

	case "Call":
		callee, err := decodeNode(n.Callee)
		if err != nil {
			return nil, fmt.Errorf("call: callee: %w", err)
		}
		args := make([]physis.AstNode, 0, len(n.Args))
		for i, a := range n.Args {
			arg, err := decodeNode(a)
			if err != nil {
				return nil, fmt.Errorf("call: arg %d: %w", i, err)
			}
			args = append(args, arg)
		}
		return physis.NewCallExpr(callee, args, rg), nil

	case "Index":
		base, err := decodeNode(n.Base)
		if err != nil {
			return nil, fmt.Errorf("index: base: %w", err)
		}
		offset, err := decodeNode(n.Offset)
		if err != nil {
			return nil, fmt.Errorf("index: offset: %w", err)
		}
		return physis.NewIndexExpr(base, offset, rg), nil

	case "Selector":
		base, err := decodeNode(n.Base)
		if err != nil {
			return nil, fmt.Errorf("selector: base: %w", err)
		}
		return physis.NewSelectorExpr(base, n.Member, rg), nil

	case "Cond":
		cond, err := decodeNode(n.Cond)
		if err != nil {
			return nil, fmt.Errorf("cond: cond: %w", err)
		}
		then, err := decodeNode(n.Then)
		if err != nil {
			return nil, fmt.Errorf("cond: then: %w", err)
		}
		els, err := decodeNode(n.Else)
		if err != nil {
			return nil, fmt.Errorf("cond: else: %w", err)
		}
		return physis.NewCondExpr(cond, then, els, rg), nil

	default:
		return nil, fmt.Errorf("unknown node kind %q", n.Node)
	}
}

func decodeBinaryOp(op string) (physis.BinaryOp, error) {
	switch op {
	case "+":
		return physis.OpAdd, nil
	case "-":
		return physis.OpSub, nil
	case "*":
		return physis.OpMul, nil
	case "/":
		return physis.OpDiv, nil
	case "%":
		return physis.OpMod, nil
	case "<":
		return physis.OpLt, nil
	case "<=":
		return physis.OpLe, nil
	case ">":
		return physis.OpGt, nil
	case ">=":
		return physis.OpGe, nil
	case "==":
		return physis.OpEq, nil
	case "!=":
		return physis.OpNe, nil
	case "&&":
		return physis.OpAnd, nil
	case "||":
		return physis.OpOr, nil
	default:
		return 0, fmt.Errorf("unknown binary operator %q", op)
	}
}

func decodeUnaryOp(op string) (physis.UnaryOp, error) {
	switch op {
	case "-":
		return physis.OpNeg, nil
	case "!":
		return physis.OpNot, nil
	case "*":
		return physis.OpDeref, nil
	default:
		return 0, fmt.Errorf("unknown unary operator %q", op)
	}
}
