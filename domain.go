package physis

import "fmt"

// Domain is an axis-aligned integer rectangle of equal rank to the
// grid it iterates (spec §3): Min[d] inclusive, Max[d] exclusive. The
// distributed backends (C7, C8) additionally carry the per-process
// slab LocalMin/LocalMax.
type Domain struct {
	Rank int
	Min  []int
	Max  []int

	// LocalMin/LocalMax are the slab this process owns, set by C7/C8;
	// for the reference and CUDA backends they equal Min/Max (single
	// process owns the whole domain).
	LocalMin []int
	LocalMax []int
}

// NewDomain constructs a Domain spanning [min,max) with the local
// slab defaulted to the whole domain (single-process backends never
// override it).
func NewDomain(min, max []int) *Domain {
	if len(min) != len(max) {
		internalInvariant("domain min/max rank mismatch", nil)
	}
	return &Domain{
		Rank:     len(min),
		Min:      append([]int(nil), min...),
		Max:      append([]int(nil), max...),
		LocalMin: append([]int(nil), min...),
		LocalMax: append([]int(nil), max...),
	}
}

// SetLocalSlab overrides the per-process slab owned locally — called
// by C7/C8 once the distributed decomposition is known.
func (d *Domain) SetLocalSlab(min, max []int) {
	if len(min) != d.Rank || len(max) != d.Rank {
		internalInvariant("local slab rank mismatch", nil)
	}
	d.LocalMin = append([]int(nil), min...)
	d.LocalMax = append([]int(nil), max...)
}

// Size returns Max[d]-Min[d] for every dimension.
func (d *Domain) Size() []int {
	out := make([]int, d.Rank)
	for i := range out {
		out[i] = d.Max[i] - d.Min[i]
	}
	return out
}

// LocalSize returns LocalMax[d]-LocalMin[d] for every dimension.
func (d *Domain) LocalSize() []int {
	out := make([]int, d.Rank)
	for i := range out {
		out[i] = d.LocalMax[i] - d.LocalMin[i]
	}
	return out
}

// Contains reports whether the point idx (one coordinate per
// dimension) lies within the global domain.
func (d *Domain) Contains(idx []int) bool {
	for i := range idx {
		if idx[i] < d.Min[i] || idx[i] >= d.Max[i] {
			return false
		}
	}
	return true
}

// ContainsLocal reports whether idx lies within the local slab.
func (d *Domain) ContainsLocal(idx []int) bool {
	for i := range idx {
		if idx[i] < d.LocalMin[i] || idx[i] >= d.LocalMax[i] {
			return false
		}
	}
	return true
}

// InclusionInner reports whether idx lies within width cells of any
// boundary of the local slab — spec §4.6's domain-inclusion-inner
// check: "true iff ∃d. (idx_d < local_min[d]+width) ∨
// (idx_d ≥ local_max[d]-width)". No generated kernel evaluates it:
// the MPI+CUDA interior and single-boundary kernel clones carry no
// in-body guard built from this predicate.
func (d *Domain) InclusionInner(idx []int, width int) bool {
	for i := range idx {
		if idx[i] < d.LocalMin[i]+width || idx[i] >= d.LocalMax[i]-width {
			return true
		}
	}
	return false
}

func (d *Domain) String() string {
	return fmt.Sprintf("domain%dD min=%v max=%v local_min=%v local_max=%v", d.Rank, d.Min, d.Max, d.LocalMin, d.LocalMax)
}
