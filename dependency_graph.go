package physis

import (
	"fmt"

	"github.com/katalvlaran/lvlath/graph"
)

// haloReissueGraph formalizes spec §4.5's informally-stated rule —
// "if any successor map reads this grid, reissue halo exchange" — as
// reachability in a directed graph over a Run's map sequence. Node
// ids are "map<index>"; an edge connects each map to its immediate
// successor in iteration order, plus a wraparound edge from the last
// map back to the first (a run repeats its map sequence every
// iteration, so a map near the end of one iteration can still be a
// "successor," in the halo sense, of a map near the start of the
// same iteration).
type haloReissueGraph struct {
	g    *graph.Graph
	maps []*StencilMap
}

func newHaloReissueGraph(run *Run) *haloReissueGraph {
	g := graph.NewGraph(true, false)
	n := len(run.StencilMaps)
	for i := range run.StencilMaps {
		g.AddVertex(&graph.Vertex{ID: mapNodeID(i), Metadata: map[string]interface{}{}})
	}
	for i := 0; i < n; i++ {
		next := (i + 1) % n
		g.AddEdge(mapNodeID(i), mapNodeID(next), 1)
	}
	return &haloReissueGraph{g: g, maps: run.StencilMaps}
}

func mapNodeID(i int) string { return fmt.Sprintf("map%d", i) }

// ReissueRequired reports whether, after running the map at index
// writerIdx which writes grid, any strict successor map (any other
// map reachable via one or more edges; writerIdx itself is never
// counted, even though the wraparound edge makes it reachable) reads
// grid — spec §4.5's halo-reissue condition.
func (h *haloReissueGraph) ReissueRequired(writerIdx int, grid AstNode) bool {
	startID := mapNodeID(writerIdx)
	res, err := h.g.DFS(startID, nil)
	if err != nil {
		internalInvariant("halo reissue graph DFS failed on a well-formed Run", nil)
	}
	for _, v := range res.Order {
		if v.ID == startID {
			continue // only strict successors count
		}
		idx := mapIndexFromNodeID(v.ID)
		if stencilMapReadsGrid(h.maps[idx], grid) {
			return true
		}
	}
	return false
}

func mapIndexFromNodeID(id string) int {
	var i int
	fmt.Sscanf(id, "map%d", &i)
	return i
}

// stencilMapReadsGrid reports whether sm's grid-argument list
// contains grid. A map "reads" every grid it's passed (kernels may
// only access grids passed to their enclosing map), so argument
// membership is a sound over-approximation of read access.
func stencilMapReadsGrid(sm *StencilMap, grid AstNode) bool {
	target, ok := grid.(*Ident)
	if !ok {
		return false
	}
	for _, arg := range sm.GridArgs {
		if id, ok := arg.(*Ident); ok && id.Name == target.Name {
			return true
		}
	}
	return false
}
