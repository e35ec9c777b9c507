package store

import (
	"context"
	"errors"

	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/domain"
	"github.com/transfr/transfr/internal/geo"
)

// ErrNotFound reports an absent station, platform edge, or path. It is an
// expected negative result and is returned unwrapped so callers can test it
// with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrUnavailable reports that the store is closed or cannot be reached.
var ErrUnavailable = errors.New("store unavailable")

// Store is the contract the pathfinding core requires from the geospatial
// store. Every method is a single blocking round-trip; none retries. Batch
// methods take the whole frontier at once rather than issuing one query per
// node.
type Store interface {
	// SegmentsForRelation loads the precomputed directed adjacency for one
	// station relation. An empty result is valid: the station is simply not
	// modeled, and the caller short-circuits with no path.
	SegmentsForRelation(ctx context.Context, relationID osm.RelationID) ([]domain.WaySegment, error)

	// WalkableWaysByNodes returns pedestrian-traversable ways that touch any
	// of the given nodes and are not in the exclusion set. Privately
	// access-restricted ways are never returned.
	WalkableWaysByNodes(ctx context.Context, nodes []osm.NodeID, excludeWays []osm.WayID) ([]domain.WalkableWay, error)

	// NodeCoordinates loads lat/lon for the given nodes. When the coordinate
	// table does not exist the result is (nil, nil): metrics are unavailable,
	// which is not an error.
	NodeCoordinates(ctx context.Context, nodes []osm.NodeID) (geo.Coords, error)

	// PlatformEdge looks up one platform edge by station name and edge ref in
	// the precomputed per-station index. Returns ErrNotFound when absent.
	PlatformEdge(ctx context.Context, station, edgeRef string) (domain.PlatformEdge, error)

	// PlatformEdges lists every indexed platform edge of a station.
	PlatformEdges(ctx context.Context, station string) ([]domain.PlatformEdge, error)

	// EdgeCandidatesByRef finds all ways tagged as a platform edge carrying
	// the given ref, regardless of station association. RelationID is zero on
	// the returned edges.
	EdgeCandidatesByRef(ctx context.Context, edgeRef string) ([]domain.PlatformEdge, error)

	// StationRelationIDs returns the relation IDs grouping a station's
	// platform ways.
	StationRelationIDs(ctx context.Context, station string) ([]osm.RelationID, error)

	// RelationMemberNodes returns the union of node IDs belonging to the
	// given relations, including attached pedestrian infrastructure.
	RelationMemberNodes(ctx context.Context, relationIDs []osm.RelationID) (map[osm.NodeID]struct{}, error)

	// RelationNodes returns the node IDs of one relation's formal member ways
	// only, used to score relation association.
	RelationNodes(ctx context.Context, relationID osm.RelationID) (map[osm.NodeID]struct{}, error)

	// ConnectingWay finds a relation-member way containing nodes from both
	// sets, the signature of two edges on opposite sides of one platform.
	ConnectingWay(ctx context.Context, relationID osm.RelationID, nodesA, nodesB []osm.NodeID) (domain.WalkableWay, bool, error)

	// Ping verifies connectivity for health probes.
	Ping(ctx context.Context) error

	// Close releases all pooled handles. Subsequent calls fail.
	Close() error
}
