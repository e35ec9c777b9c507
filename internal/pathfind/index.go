package pathfind

import (
	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/domain"
)

// Index is the bipartite mapping between ways and the nodes they pass
// through, forming the in-memory search graph. An Index is owned by exactly
// one search invocation and is never shared or mutated concurrently.
//
// Invariant: node n is recorded under way w iff way w is recorded under node
// n. Every mutation goes through add, which updates both sides together.
type Index struct {
	wayNodes map[osm.WayID]map[osm.NodeID]struct{}
	nodeWays map[osm.NodeID]map[osm.WayID]struct{}
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		wayNodes: make(map[osm.WayID]map[osm.NodeID]struct{}),
		nodeWays: make(map[osm.NodeID]map[osm.WayID]struct{}),
	}
}

// BuildIndex constructs an index from precomputed way segments. Each segment
// contributes both endpoints to its way and registers the way against both
// endpoints.
func BuildIndex(segments []domain.WaySegment) *Index {
	ix := NewIndex()
	for _, seg := range segments {
		ix.add(seg.WayID, seg.NodeFrom)
		ix.add(seg.WayID, seg.NodeTo)
	}
	return ix
}

// Seed inserts a way with its full node sequence directly. Used for the two
// platform-edge ways, which may not be formal relation members, and for ways
// discovered by frontier expansion. Re-seeding a known way/node pair is a
// no-op.
func (ix *Index) Seed(wayID osm.WayID, nodes []osm.NodeID) {
	for _, n := range nodes {
		ix.add(wayID, n)
	}
}

func (ix *Index) add(w osm.WayID, n osm.NodeID) {
	nodes := ix.wayNodes[w]
	if nodes == nil {
		nodes = make(map[osm.NodeID]struct{})
		ix.wayNodes[w] = nodes
	}
	nodes[n] = struct{}{}

	ways := ix.nodeWays[n]
	if ways == nil {
		ways = make(map[osm.WayID]struct{})
		ix.nodeWays[n] = ways
	}
	ways[w] = struct{}{}
}

// HasWay reports whether the way is present in the index.
func (ix *Index) HasWay(w osm.WayID) bool {
	_, ok := ix.wayNodes[w]
	return ok
}

// NodesOf returns the node set of a way.
func (ix *Index) NodesOf(w osm.WayID) map[osm.NodeID]struct{} {
	return ix.wayNodes[w]
}

// WaysOf returns the ways registered against a node.
func (ix *Index) WaysOf(n osm.NodeID) map[osm.WayID]struct{} {
	return ix.nodeWays[n]
}

// Nodes returns all indexed node IDs.
func (ix *Index) Nodes() []osm.NodeID {
	nodes := make([]osm.NodeID, 0, len(ix.nodeWays))
	for n := range ix.nodeWays {
		nodes = append(nodes, n)
	}
	return nodes
}

// WayIDs returns all indexed way IDs.
func (ix *Index) WayIDs() []osm.WayID {
	ways := make([]osm.WayID, 0, len(ix.wayNodes))
	for w := range ix.wayNodes {
		ways = append(ways, w)
	}
	return ways
}

// Size reports the number of indexed ways and nodes.
func (ix *Index) Size() (ways, nodes int) {
	return len(ix.wayNodes), len(ix.nodeWays)
}
