package domain

import "github.com/paulmach/osm"

// PlatformEdge is the start or end anchor of a search: a way tagged as the
// boundary between a platform and the track, referenced by a human-facing
// number. Resolved once per request and immutable afterward.
type PlatformEdge struct {
	RelationID osm.RelationID `json:"relationId"`
	WayID      osm.WayID      `json:"wayId"`
	Nodes      []osm.NodeID   `json:"nodes"`
	Tags       osm.Tags       `json:"tags,omitempty"`
	EdgeRef    string         `json:"edgeRef"`
}

// NodeSet returns the edge's nodes as a set for overlap checks.
func (e PlatformEdge) NodeSet() map[osm.NodeID]struct{} {
	set := make(map[osm.NodeID]struct{}, len(e.Nodes))
	for _, n := range e.Nodes {
		set[n] = struct{}{}
	}
	return set
}

// WalkableWay is one row returned by the batch frontier query: a pedestrian
// way touching the frontier, with its full ordered node sequence.
type WalkableWay struct {
	WayID osm.WayID
	Nodes []osm.NodeID
}
