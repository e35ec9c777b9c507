package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/domain"
)

// Diagnostics answers why a way is, or is not, visible to pathfinding. These
// queries go beyond the Store contract and exist for the diagnose CLI only.
type Diagnostics interface {
	WayInfo(ctx context.Context, wayID osm.WayID) (WayInfo, error)
	WayRelationMemberships(ctx context.Context, wayID osm.WayID) ([]WayMembership, error)
	WayPedestrianMemberships(ctx context.Context, wayID osm.WayID) ([]WayMembership, error)
	SegmentsForWay(ctx context.Context, wayID osm.WayID) ([]WaySegmentRow, error)
}

// WayInfo is the raw way row as imported.
type WayInfo struct {
	WayID osm.WayID
	Nodes []osm.NodeID
	Tags  osm.Tags
}

// HasNode reports whether the way passes through the given node.
func (w WayInfo) HasNode(node osm.NodeID) bool {
	for _, n := range w.Nodes {
		if n == node {
			return true
		}
	}
	return false
}

// WayMembership links a way to one station relation that carries it.
type WayMembership struct {
	RelationID osm.RelationID
	Station    string
	NodeCount  int
}

// WaySegmentRow is one precomputed segment row together with its relation.
type WaySegmentRow struct {
	RelationID osm.RelationID
	Station    string
	Segment    domain.WaySegment
}

const wayInfoSQL = `
SELECT id, nodes, tags
FROM planet_osm_ways
WHERE id = $1
`

// WayInfo implements Diagnostics.
func (p *Postgres) WayInfo(ctx context.Context, wayID osm.WayID) (WayInfo, error) {
	var (
		id      int64
		nodes   pq.Int64Array
		rawTags []byte
	)
	err := p.db.QueryRowxContext(ctx, wayInfoSQL, int64(wayID)).Scan(&id, &nodes, &rawTags)
	if errors.Is(err, sql.ErrNoRows) {
		return WayInfo{}, fmt.Errorf("way %d: %w", wayID, ErrNotFound)
	}
	if err != nil {
		return WayInfo{}, fmt.Errorf("load way %d: %w", wayID, err)
	}

	tags, err := decodeTags(rawTags)
	if err != nil {
		return WayInfo{}, fmt.Errorf("way %d: %w", wayID, err)
	}
	return WayInfo{WayID: osm.WayID(id), Nodes: toNodeIDs(nodes), Tags: tags}, nil
}

const wayRelationMembershipsSQL = `
SELECT relation_id, station_name, COALESCE(array_length(nodes, 1), 0)
FROM station_ways_with_nodes
WHERE way_id = $1
`

// WayRelationMemberships implements Diagnostics: the relations carrying this
// way as a formal member.
func (p *Postgres) WayRelationMemberships(ctx context.Context, wayID osm.WayID) ([]WayMembership, error) {
	return p.queryMemberships(ctx, wayRelationMembershipsSQL, wayID)
}

const wayPedestrianMembershipsSQL = `
SELECT relation_id, station_name, COALESCE(array_length(nodes, 1), 0)
FROM station_ways_with_nodes_plus_pedestrian
WHERE way_id = $1
`

// WayPedestrianMemberships implements Diagnostics: membership in the widened
// view that also includes connected pedestrian infrastructure. Only ways in
// this view ever produce segments.
func (p *Postgres) WayPedestrianMemberships(ctx context.Context, wayID osm.WayID) ([]WayMembership, error) {
	return p.queryMemberships(ctx, wayPedestrianMembershipsSQL, wayID)
}

func (p *Postgres) queryMemberships(ctx context.Context, query string, wayID osm.WayID) ([]WayMembership, error) {
	rows, err := p.db.QueryxContext(ctx, query, int64(wayID))
	if err != nil {
		return nil, fmt.Errorf("query memberships for way %d: %w", wayID, err)
	}
	defer rows.Close()

	var memberships []WayMembership
	for rows.Next() {
		var (
			relationID int64
			station    string
			nodeCount  int
		)
		if err := rows.Scan(&relationID, &station, &nodeCount); err != nil {
			return nil, fmt.Errorf("scan membership row: %w", err)
		}
		memberships = append(memberships, WayMembership{
			RelationID: osm.RelationID(relationID),
			Station:    station,
			NodeCount:  nodeCount,
		})
	}
	return memberships, rows.Err()
}

const segmentsForWaySQL = `
SELECT relation_id, station_name, node_from, node_to
FROM station_way_segments
WHERE way_id = $1
LIMIT 20
`

// SegmentsForWay implements Diagnostics: the precomputed segment rows this
// way contributes, across all relations.
func (p *Postgres) SegmentsForWay(ctx context.Context, wayID osm.WayID) ([]WaySegmentRow, error) {
	rows, err := p.db.QueryxContext(ctx, segmentsForWaySQL, int64(wayID))
	if err != nil {
		return nil, fmt.Errorf("query segments for way %d: %w", wayID, err)
	}
	defer rows.Close()

	var result []WaySegmentRow
	for rows.Next() {
		var (
			relationID int64
			station    string
			from, to   int64
		)
		if err := rows.Scan(&relationID, &station, &from, &to); err != nil {
			return nil, fmt.Errorf("scan segment row: %w", err)
		}
		result = append(result, WaySegmentRow{
			RelationID: osm.RelationID(relationID),
			Station:    station,
			Segment: domain.WaySegment{
				NodeFrom: osm.NodeID(from),
				NodeTo:   osm.NodeID(to),
				WayID:    wayID,
			},
		})
	}
	return result, rows.Err()
}
