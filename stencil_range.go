package physis

import (
	"fmt"
	"sort"
	"strings"
)

// StencilIndex is one neighbor-offset coordinate: a pair (dim,
// offset), where dim is the iteration-variable identity (its
// positional index among the kernel's iteration-index parameters,
// 1-based per spec §3) and offset the integer constant added to it.
type StencilIndex struct {
	Dim    int
	Offset int
}

func (si StencilIndex) String() string { return fmt.Sprintf("d%d%+d", si.Dim, si.Offset) }

// StencilIndexList is an ordered tuple of StencilIndexes, one per
// dimension of a single grid access (spec §3).
type StencilIndexList struct {
	Indexes []StencilIndex

	// Irregular marks an access whose offsets could not be resolved to
	// the (iteration_variable, constant_offset) form for every
	// dimension — spec §4.1's "non-linear or non-affine offsets".
	Irregular bool
}

// NewStencilIndexList builds a regular index list from indexes in
// dimension order.
func NewStencilIndexList(indexes []StencilIndex) StencilIndexList {
	return StencilIndexList{Indexes: indexes}
}

// NewIrregularIndexList builds the worst-case marker for an
// irregular access on a grid of the given rank.
func NewIrregularIndexList(rank int) StencilIndexList {
	return StencilIndexList{Irregular: true, Indexes: make([]StencilIndex, rank)}
}

// IsRegular reports whether the list's dims are a permutation of
// 1..rank, each iteration variable used exactly once (spec §3).
func (l StencilIndexList) IsRegular(rank int) bool {
	if l.Irregular || len(l.Indexes) != rank {
		return false
	}
	seen := make([]bool, rank+1)
	for _, idx := range l.Indexes {
		if idx.Dim < 1 || idx.Dim > rank || seen[idx.Dim] {
			return false
		}
		seen[idx.Dim] = true
	}
	return true
}

// IsSelf reports whether the access is the center point: regular and
// every offset zero (spec §3).
func (l StencilIndexList) IsSelf(rank int) bool {
	if !l.IsRegular(rank) {
		return false
	}
	for _, idx := range l.Indexes {
		if idx.Offset != 0 {
			return false
		}
	}
	return true
}

// CanonicalKey returns the deduplication/matching key of a regular
// index list: the offsets in dimension order, spec §3's "canonical
// key used for deduplication and for matching boundary vs interior".
// Only meaningful when IsRegular(rank) holds.
func (l StencilIndexList) CanonicalKey(rank int) string {
	sorted := append([]StencilIndex(nil), l.Indexes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Dim < sorted[j].Dim })
	parts := make([]string, len(sorted))
	for i, idx := range sorted {
		parts[i] = fmt.Sprintf("%d", idx.Offset)
	}
	return strings.Join(parts, ",")
}

// OffsetIn returns the constant offset in dimension dim (1-based), or
// 0 if dim is not present (e.g. within an irregular list).
func (l StencilIndexList) OffsetIn(dim int) int {
	for _, idx := range l.Indexes {
		if idx.Dim == dim {
			return idx.Offset
		}
	}
	return 0
}

// CenteredExceptIn reports whether every dimension other than dim has
// a zero offset — the predicate spec §4.6 uses to decide whether a
// per-boundary kernel's helper call can be redirected to the no-halo
// variant ("regular, centered in every dimension other than d").
func (l StencilIndexList) CenteredExceptIn(rank, dim int) bool {
	if !l.IsRegular(rank) {
		return false
	}
	for _, idx := range l.Indexes {
		if idx.Dim != dim && idx.Offset != 0 {
			return false
		}
	}
	return true
}

func (l StencilIndexList) String() string {
	if l.Irregular {
		return "irregular"
	}
	parts := make([]string, len(l.Indexes))
	for i, idx := range l.Indexes {
		parts[i] = idx.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// HaloExtent is the pair of per-dimension forward/backward widths
// derived from a StencilRange (spec §3, §4.1).
type HaloExtent struct {
	Fw []int
	Bw []int
}

// NewHaloExtent returns a zero extent of the given rank.
func NewHaloExtent(rank int) HaloExtent {
	return HaloExtent{Fw: make([]int, rank), Bw: make([]int, rank)}
}

// Dominates reports whether h's widths are >= other's in every
// dimension and every direction — used by the halo-monotonicity
// property test (spec §8).
func (h HaloExtent) Dominates(other HaloExtent) bool {
	for d := range h.Fw {
		if h.Fw[d] < other.Fw[d] || h.Bw[d] < other.Bw[d] {
			return false
		}
	}
	return true
}

func (h HaloExtent) String() string {
	return fmt.Sprintf("fw=%v bw=%v", h.Fw, h.Bw)
}

// StencilRange is the per-grid aggregate of spec §3: every distinct
// StencilIndexList seen in any kernel applied to the grid, plus the
// precomputed halo extent.
type StencilRange struct {
	Rank int

	// seen deduplicates regular accesses by canonical key; the stored
	// slice preserves first-seen order for deterministic iteration
	// (FormatStencilRanges, and the "attribute stability" property of
	// spec §8 — modulo canonical key order).
	seen    map[string]StencilIndexList
	order   []string
	irregularSeen bool

	Halo      HaloExtent
	Periodic  []bool // per dimension
}

// NewStencilRange returns an empty range for a grid of the given
// rank.
func NewStencilRange(rank int) *StencilRange {
	return &StencilRange{
		Rank:     rank,
		seen:     make(map[string]StencilIndexList),
		Halo:     NewHaloExtent(rank),
		Periodic: make([]bool, rank),
	}
}

// Absorb folds one access into the range: records the index list
// (deduplicated for regular accesses), widens the halo, and updates
// periodicity, per spec §4.1's halo-derivation and periodicity rules.
// irregularMaxOffset is the configured fallback width (spec §4.1,
// "a configuration constant") used when the access is irregular.
func (r *StencilRange) Absorb(l StencilIndexList, periodic bool, irregularMaxOffset int) {
	if l.IsRegular(r.Rank) {
		key := l.CanonicalKey(r.Rank)
		if _, ok := r.seen[key]; !ok {
			r.seen[key] = l
			r.order = append(r.order, key)
		}
		for _, idx := range l.Indexes {
			d := idx.Dim - 1
			if idx.Offset > 0 && idx.Offset > r.Halo.Fw[d] {
				r.Halo.Fw[d] = idx.Offset
			}
			if idx.Offset < 0 && -idx.Offset > r.Halo.Bw[d] {
				r.Halo.Bw[d] = -idx.Offset
			}
			if periodic {
				r.Periodic[d] = true
			}
		}
		return
	}

	// Irregular: widen every dimension to the declared maximum offset
	// (spec §4.1).
	r.irregularSeen = true
	key := fmt.Sprintf("irregular#%d", len(r.order))
	r.seen[key] = l
	r.order = append(r.order, key)
	for d := 0; d < r.Rank; d++ {
		if irregularMaxOffset > r.Halo.Fw[d] {
			r.Halo.Fw[d] = irregularMaxOffset
		}
		if irregularMaxOffset > r.Halo.Bw[d] {
			r.Halo.Bw[d] = irregularMaxOffset
		}
	}
}

// HasIrregular reports whether any irregular access was absorbed —
// reported by diagnostics.go's FormatStencilRanges; no backend
// consults it.
func (r *StencilRange) HasIrregular() bool { return r.irregularSeen }

// IndexLists returns every absorbed access in first-seen order.
func (r *StencilRange) IndexLists() []StencilIndexList {
	out := make([]StencilIndexList, len(r.order))
	for i, k := range r.order {
		out[i] = r.seen[k]
	}
	return out
}

// Len returns the number of distinct accesses absorbed.
func (r *StencilRange) Len() int { return len(r.order) }

func (r *StencilRange) String() string {
	return fmt.Sprintf("StencilRange{%s, accesses=%d}", r.Halo, len(r.order))
}

// MemberKey identifies one entry of a MemberStencilRangeMap: a record
// member name plus the static array indices addressed, if the member
// itself is an array (spec §3).
type MemberKey struct {
	Member  string
	Indices string // comma-joined static array indices, "" for a scalar member
}

// MemberStencilRangeMap maps (member_name, array_indices) to
// StencilRange. Keys are kept in the order they are first accessed
// (deterministic for a given kernel body); they are not reordered by
// member declaration order.
type MemberStencilRangeMap struct {
	rank    int
	order   []MemberKey
	ranges  map[MemberKey]*StencilRange
}

// NewMemberStencilRangeMap returns an empty map for a record grid of
// the given rank.
func NewMemberStencilRangeMap(rank int) *MemberStencilRangeMap {
	return &MemberStencilRangeMap{rank: rank, ranges: make(map[MemberKey]*StencilRange)}
}

// Get returns the StencilRange for key, creating an empty one (and
// appending key to the first-access order) on first access.
func (m *MemberStencilRangeMap) Get(key MemberKey) *StencilRange {
	if r, ok := m.ranges[key]; ok {
		return r
	}
	r := NewStencilRange(m.rank)
	m.ranges[key] = r
	m.order = append(m.order, key)
	return r
}

// Keys returns every member key in first-seen order.
func (m *MemberStencilRangeMap) Keys() []MemberKey {
	return append([]MemberKey(nil), m.order...)
}

// Len reports how many distinct (member, indices) entries exist.
func (m *MemberStencilRangeMap) Len() int { return len(m.order) }

// StencilMap is one `map(kernel, domain, g_1, …, g_k)` site (spec
// §3). Immutable once created (Session.RegisterStencilMap enforces
// single registration).
type StencilMap struct {
	ID int

	Kernel *FuncDecl
	Site   *CallExpr

	DomainExpr AstNode
	GridArgs   []AstNode

	// RangeByParam is keyed by the kernel's grid *parameter* (its
	// index among the kernel's grid parameters), not by the grid
	// argument passed at this call site — spec §3: "stencil-range map
	// keyed by grid parameter (not grid argument)". Multiple call
	// sites of the same kernel over different grid arguments still
	// share parameter-indexed semantics.
	RangeByParam map[int]*StencilRange

	// RecordTypeName is the synthesized `__PSStencil_<kernel>` type
	// name (spec §3).
	RecordTypeName string
}

// NewStencilMap creates a StencilMap descriptor, minting a fresh id
// from sess.
func NewStencilMap(sess *Session, kernel *FuncDecl, site *CallExpr, domainExpr AstNode, gridArgs []AstNode) *StencilMap {
	return &StencilMap{
		ID:             FreshStencilMapID(sess),
		Kernel:         kernel,
		Site:           site,
		DomainExpr:     domainExpr,
		GridArgs:       gridArgs,
		RangeByParam:   make(map[int]*StencilRange),
		RecordTypeName: "__PSStencil_" + kernel.Name,
	}
}

func (sm *StencilMap) String() string {
	return fmt.Sprintf("%s#%d(%s)", sm.RecordTypeName, sm.ID, sm.Kernel.Name)
}

// Run is one `run(count, map_call_1, …, map_call_m)` site (spec §3).
// Monotonic: AppendMapCall is the only mutation.
type Run struct {
	Site        *CallExpr
	CountExpr   AstNode
	StencilMaps []*StencilMap
}

// NewRun creates a Run descriptor with no map calls yet attached.
func NewRun(site *CallExpr, countExpr AstNode) *Run {
	return &Run{Site: site, CountExpr: countExpr}
}

// AppendMapCall appends sm to the ordered sequence of stencil maps
// this run drives.
func (r *Run) AppendMapCall(sm *StencilMap) {
	r.StencilMaps = append(r.StencilMaps, sm)
}
