package domain

import "github.com/paulmach/osm"

// WaySegment is one directed consecutive-node pair along a way, as exposed by
// the station_way_segments view. Segments are the source of truth for the
// initial search graph; traversal treats them as bidirectional.
type WaySegment struct {
	NodeFrom osm.NodeID
	NodeTo   osm.NodeID
	WayID    osm.WayID
}

// StateKind discriminates the two sides of the bipartite search space.
type StateKind uint8

const (
	StateWay StateKind = iota
	StateNode
)

// String implements fmt.Stringer for log output.
func (k StateKind) String() string {
	if k == StateWay {
		return "way"
	}
	return "node"
}

// SearchState is a vertex in the bipartite way/node state space. Equality is
// by (Kind, ID), making it usable as a map key for visited sets.
type SearchState struct {
	Kind StateKind
	ID   int64
}

// WayState wraps a way ID as a search state.
func WayState(id osm.WayID) SearchState {
	return SearchState{Kind: StateWay, ID: int64(id)}
}

// NodeState wraps a node ID as a search state.
func NodeState(id osm.NodeID) SearchState {
	return SearchState{Kind: StateNode, ID: int64(id)}
}

// Way returns the state's ID as a way ID. Only meaningful when Kind is StateWay.
func (s SearchState) Way() osm.WayID { return osm.WayID(s.ID) }

// Node returns the state's ID as a node ID. Only meaningful when Kind is StateNode.
func (s SearchState) Node() osm.NodeID { return osm.NodeID(s.ID) }

// Path is an ordered sequence of search states from a Way start state to a
// Way goal state, strictly alternating between way and node states.
type Path []SearchState

// Alternates reports whether no two consecutive states share a kind.
func (p Path) Alternates() bool {
	for i := 1; i < len(p); i++ {
		if p[i].Kind == p[i-1].Kind {
			return false
		}
	}
	return true
}

// WayIDs returns the way IDs along the path in order, deduplicated.
func (p Path) WayIDs() []osm.WayID {
	seen := make(map[osm.WayID]struct{}, len(p))
	var ids []osm.WayID
	for _, s := range p {
		if s.Kind != StateWay {
			continue
		}
		if _, ok := seen[s.Way()]; ok {
			continue
		}
		seen[s.Way()] = struct{}{}
		ids = append(ids, s.Way())
	}
	return ids
}

// NodeIDs returns the junction node IDs along the path in order.
func (p Path) NodeIDs() []osm.NodeID {
	var ids []osm.NodeID
	for _, s := range p {
		if s.Kind == StateNode {
			ids = append(ids, s.Node())
		}
	}
	return ids
}

// SearchStats captures how much work a search performed. It is returned as
// result metadata so callers can observe traversal cost without log scraping.
type SearchStats struct {
	StatesVisited int `json:"statesVisited"`
	Rounds        int `json:"rounds"`
	StoreQueries  int `json:"storeQueries"`
}

// Route kinds reported to API clients.
const (
	RouteWayPath          = "way_path"
	RouteOppositePlatform = "opposite_platform"
)

// Route is the result of a successful platform-edge search.
type Route struct {
	Type       string
	Edge1      PlatformEdge
	Edge2      PlatformEdge
	RelationID osm.RelationID

	// Populated for way_path routes.
	Path      Path
	WayIDs    []osm.WayID
	PathNodes []osm.NodeID

	// Populated for opposite_platform routes.
	ConnectingWayID osm.WayID

	// Geometry annotations; nil when node coordinates are unavailable.
	CrossingLengthMeters *float64
	PlatformWidthMeters  *float64

	Stats SearchStats
}
