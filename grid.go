package physis

import (
	"fmt"
	"strings"
)

// PointKind distinguishes a grid's element layout: a single
// primitive, or a user-declared record with named members (spec §3,
// GridType).
type PointKind int

const (
	PointPrimitive PointKind = iota
	PointRecord
)

// PrimitiveType enumerates the scalar point types spec §3 allows:
// "float/double/int/long".
type PrimitiveType int

const (
	TypeFloat PrimitiveType = iota
	TypeDouble
	TypeInt
	TypeLong
)

func (t PrimitiveType) String() string {
	return map[PrimitiveType]string{
		TypeFloat: "float", TypeDouble: "double", TypeInt: "int", TypeLong: "long",
	}[t]
}

// RecordMember is one member of a record point type: a name, its own
// primitive type, and an array shape (nil/empty for a scalar
// member).
type RecordMember struct {
	Name       string
	Type       PrimitiveType
	ArrayShape []int
}

func (m RecordMember) IsArray() bool { return len(m.ArrayShape) > 0 }

// AuxDecl is one backend-assigned auxiliary declaration attached to a
// GridType — a device type name or a per-operation helper function
// name, populated by whichever backend is active during lowering
// (spec §3, "backend-assigned auxiliary declarations").
type AuxDecl struct {
	Key   string
	Value string
}

// GridType is the immutable descriptor of one user-declared grid
// type (spec §3). Grid types are deduplicated by Name within a
// Session (Session.RegisterGridType).
type GridType struct {
	Name string
	Rank int

	Kind      PointKind
	Primitive PrimitiveType   // valid iff Kind == PointPrimitive
	Members   []RecordMember  // valid iff Kind == PointRecord, declaration order

	// ElementTypeHandle is a symbolic (non-owning) reference to
	// wherever the element type was declared in the host AST — opaque
	// to the core, threaded through only for diagnostics.
	ElementTypeHandle string

	aux []AuxDecl
}

// NewPrimitiveGridType constructs a GridType over a single scalar
// point type.
func NewPrimitiveGridType(name string, rank int, prim PrimitiveType) *GridType {
	return &GridType{Name: name, Rank: rank, Kind: PointPrimitive, Primitive: prim}
}

// NewRecordGridType constructs a GridType over a record point type.
// members must be supplied in declaration order: spec §3 requires
// deterministic emission ordered by declaration.
func NewRecordGridType(name string, rank int, members []RecordMember) *GridType {
	return &GridType{Name: name, Rank: rank, Kind: PointRecord, Members: append([]RecordMember(nil), members...)}
}

// Member looks up a record member by name.
func (gt *GridType) Member(name string) (RecordMember, bool) {
	for _, m := range gt.Members {
		if m.Name == name {
			return m, true
		}
	}
	return RecordMember{}, false
}

// Aux returns the value of a backend-assigned auxiliary declaration,
// or "" if none was set.
func (gt *GridType) Aux(key string) string {
	for _, a := range gt.aux {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// SetAux installs or overwrites a backend-assigned auxiliary
// declaration, e.g. the CUDA backend's on-device type name (spec
// §4.4, "__PSGrid<rank>D<T>Dev").
func (gt *GridType) SetAux(key, value string) {
	for i, a := range gt.aux {
		if a.Key == key {
			gt.aux[i].Value = value
			return
		}
	}
	gt.aux = append(gt.aux, AuxDecl{Key: key, Value: value})
}

func (gt *GridType) String() string {
	if gt.Kind == PointPrimitive {
		return fmt.Sprintf("grid<%dD,%s> %s", gt.Rank, gt.Primitive, gt.Name)
	}
	names := make([]string, len(gt.Members))
	for i, m := range gt.Members {
		names[i] = m.Name
	}
	return fmt.Sprintf("grid<%dD,{%s}> %s", gt.Rank, strings.Join(names, ","), gt.Name)
}

// Grid is the instance descriptor attached to an allocation site
// (spec §3, "Grid (instance descriptor)").
type Grid struct {
	Type *GridType

	// SizeExprs is the size expression list supplied at allocation,
	// one per dimension.
	SizeExprs []AstNode

	HasStaticSize bool
	StaticSize    []int // valid iff HasStaticSize

	// AttrExpr is the optional opaque user integer attribute passed at
	// allocation (e.g. a memory-layout hint); nil if absent.
	AttrExpr AstNode

	// Range accumulates every StencilIndexList seen across every
	// kernel this grid is passed to, plus per-member ranges for
	// record-point grids.
	Range *StencilRange

	// Members, for a record-point grid, isolates the per-member
	// contribution (spec §3, MemberStencilRangeMap). Empty for
	// primitive grids.
	Members *MemberStencilRangeMap
}

// NewGrid creates a Grid descriptor over gt, recording the allocation
// site's size expressions. The accumulating StencilRange starts
// empty and is populated incrementally by Translate, which merges in
// each map's AnalyzeKernel result.
func NewGrid(gt *GridType, sizeExprs []AstNode, attrExpr AstNode) *Grid {
	g := &Grid{
		Type:     gt,
		SizeExprs: sizeExprs,
		AttrExpr: attrExpr,
		Range:    NewStencilRange(gt.Rank),
	}
	if gt.Kind == PointRecord {
		g.Members = NewMemberStencilRangeMap(gt.Rank)
	}
	if sizes, ok := constantSizes(sizeExprs); ok {
		g.HasStaticSize = true
		g.StaticSize = sizes
	}
	return g
}

func constantSizes(exprs []AstNode) ([]int, bool) {
	out := make([]int, len(exprs))
	for i, e := range exprs {
		lit, ok := e.(*IntLit)
		if !ok {
			return nil, false
		}
		out[i] = lit.Value
	}
	return out, true
}
