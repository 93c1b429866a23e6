package physis

import "fmt"

// Name-generation scopes used with Session.NextID. Kept as named
// constants rather than inline strings so every call site agrees on
// the counter a given kind of fresh name draws from.
const (
	scopeStencilMapID = "stencil_map_id"
	scopeTempVar       = "tmp"
	scopeDiagCorrelate = "diag"
)

// FreshTempName returns a new temporary variable name unique within
// sess, prefixed for readability in emitted diagnostics and output
// (e.g. "__ps_tmp3"). Used by the unconditional-get pass (spec §4.7)
// for its lifted condition and index temporaries.
func FreshTempName(sess *Session, hint string) string {
	n := sess.NextID(scopeTempVar)
	if hint == "" {
		hint = "tmp"
	}
	return fmt.Sprintf("__ps_%s%d", hint, n)
}

// FreshStencilMapID returns the next stencil-map id, minted once per
// `map(...)` call site and embedded in the synthesized
// `__PSStencil_<kernel>` record type's integer id fields (spec §3).
func FreshStencilMapID(sess *Session) int {
	return sess.NextID(scopeStencilMapID)
}

// innerHelperName returns the name an interior-kernel clone uses for
// a helper function call, per spec §4.6's "intra-kernel function
// calls ... rewritten to f_inner".
func innerHelperName(f string) string {
	return f + "_inner"
}

// boundaryHelperName returns the name a per-boundary-kernel clone
// uses for a helper function call, per spec §4.6's "suffixed
// _boundary_<d+1>_<fw|bw>". dim is zero-based; side is "fw" or "bw".
func boundaryHelperName(f string, dim int, side string) string {
	return fmt.Sprintf("%s_boundary_%d_%s", f, dim+1, side)
}

// noHaloAddrHelperName returns the no-halo element-address helper
// name for a point type T of rank r, per spec §4.6:
// "get_addr_no_halo_<T><r>D".
func noHaloAddrHelperName(pointType string, rank int) string {
	return fmt.Sprintf("get_addr_no_halo_%s%dD", pointType, rank)
}

// haloAddrHelperName returns the halo-aware element-address helper
// name for a point type T of rank r: "get_addr_<T><r>D".
func haloAddrHelperName(pointType string, rank int) string {
	return fmt.Sprintf("get_addr_%s%dD", pointType, rank)
}
