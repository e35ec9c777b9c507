package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/domain"
	"github.com/transfr/transfr/internal/geo"
)

// Options configures the Postgres store.
type Options struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// Pool bounds. The database/sql pool is the connection pool of this
	// service: opening is the one-time initialization, per-query acquisition
	// is the lease, and row closure returns the handle on every exit path.
	MinConns        int
	MaxConns        int
	ConnMaxLifetime time.Duration
}

// Postgres implements Store against the osm2pgsql-derived schema.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres opens the shared connection pool and verifies connectivity.
func NewPostgres(ctx context.Context, opts Options) (*Postgres, error) {
	sslMode := opts.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		opts.Host, opts.Port, opts.Database, opts.User, opts.Password, sslMode,
	)

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s/%s: %w: %v", opts.Host, opts.Database, ErrUnavailable, err)
	}

	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		db.SetMaxIdleConns(opts.MinConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return &Postgres{db: db}, nil
}

const segmentsForRelationSQL = `
SELECT node_from, node_to, way_id
FROM station_way_segments
WHERE relation_id = $1
`

// SegmentsForRelation implements Store.
func (p *Postgres) SegmentsForRelation(ctx context.Context, relationID osm.RelationID) ([]domain.WaySegment, error) {
	rows, err := p.db.QueryxContext(ctx, segmentsForRelationSQL, int64(relationID))
	if err != nil {
		return nil, fmt.Errorf("load segments for relation %d: %w", relationID, err)
	}
	defer rows.Close()

	var segments []domain.WaySegment
	for rows.Next() {
		var from, to, way int64
		if err := rows.Scan(&from, &to, &way); err != nil {
			return nil, fmt.Errorf("scan segment row: %w", err)
		}
		segments = append(segments, domain.WaySegment{
			NodeFrom: osm.NodeID(from),
			NodeTo:   osm.NodeID(to),
			WayID:    osm.WayID(way),
		})
	}
	return segments, rows.Err()
}

// Ways are walkable when tagged as pedestrian infrastructure or a platform
// surface and not restricted to private access. Matches the predicate used
// to build the pedestrian materialized view.
const walkableWaysSQL = `
SELECT id, nodes
FROM planet_osm_ways
WHERE nodes && $1::bigint[]
  AND NOT (id = ANY($2::bigint[]))
  AND (
    tags->>'highway' IN (
      'footway', 'steps', 'corridor', 'pedestrian', 'path', 'cycleway',
      'crossing', 'elevator', 'escalator', 'platform', 'service'
    )
    OR tags->>'railway' = 'platform'
    OR tags->>'conveying' IS NOT NULL
  )
  AND COALESCE(tags->>'access', '') <> 'private'
`

// WalkableWaysByNodes implements Store. The whole frontier is sent as one
// array bind so a round costs a single round-trip however large the frontier.
func (p *Postgres) WalkableWaysByNodes(ctx context.Context, nodes []osm.NodeID, excludeWays []osm.WayID) ([]domain.WalkableWay, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	rows, err := p.db.QueryxContext(ctx, walkableWaysSQL, nodeArray(nodes), wayArray(excludeWays))
	if err != nil {
		return nil, fmt.Errorf("query walkable ways: %w", err)
	}
	defer rows.Close()

	var ways []domain.WalkableWay
	for rows.Next() {
		var id int64
		var wayNodes pq.Int64Array
		if err := rows.Scan(&id, &wayNodes); err != nil {
			return nil, fmt.Errorf("scan walkable way row: %w", err)
		}
		ways = append(ways, domain.WalkableWay{
			WayID: osm.WayID(id),
			Nodes: toNodeIDs(wayNodes),
		})
	}
	return ways, rows.Err()
}

const nodeCoordinatesSQL = `
SELECT id, lat, lon
FROM planet_osm_nodes
WHERE id = ANY($1::bigint[])
`

// NodeCoordinates implements Store. A missing planet_osm_nodes table is a
// legitimate deployment (slim osm2pgsql import) and yields nil coordinates.
func (p *Postgres) NodeCoordinates(ctx context.Context, nodes []osm.NodeID) (geo.Coords, error) {
	if len(nodes) == 0 {
		return geo.Coords{}, nil
	}

	rows, err := p.db.QueryxContext(ctx, nodeCoordinatesSQL, nodeArray(nodes))
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load node coordinates: %w", err)
	}
	defer rows.Close()

	coords := make(geo.Coords, len(nodes))
	for rows.Next() {
		var id int64
		var lat, lon float64
		if err := rows.Scan(&id, &lat, &lon); err != nil {
			return nil, fmt.Errorf("scan coordinate row: %w", err)
		}
		coords[osm.NodeID(id)] = orb.Point{lon, lat}
	}
	return coords, rows.Err()
}

const platformEdgeSQL = `
SELECT relation_id, way_id, nodes, tags, edge_ref
FROM platform_edges_indexed
WHERE station_name = $1 AND edge_ref = $2
LIMIT 1
`

// PlatformEdge implements Store.
func (p *Postgres) PlatformEdge(ctx context.Context, station, edgeRef string) (domain.PlatformEdge, error) {
	row := p.db.QueryRowxContext(ctx, platformEdgeSQL, station, edgeRef)
	edge, err := scanPlatformEdge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PlatformEdge{}, fmt.Errorf("platform edge %q at %q: %w", edgeRef, station, ErrNotFound)
	}
	if err != nil {
		return domain.PlatformEdge{}, fmt.Errorf("load platform edge %q at %q: %w", edgeRef, station, err)
	}
	return edge, nil
}

const platformEdgesSQL = `
SELECT relation_id, way_id, nodes, tags, edge_ref
FROM platform_edges_indexed
WHERE station_name = $1
ORDER BY edge_ref
`

// PlatformEdges implements Store.
func (p *Postgres) PlatformEdges(ctx context.Context, station string) ([]domain.PlatformEdge, error) {
	rows, err := p.db.QueryxContext(ctx, platformEdgesSQL, station)
	if err != nil {
		return nil, fmt.Errorf("list platform edges at %q: %w", station, err)
	}
	defer rows.Close()

	var edges []domain.PlatformEdge
	for rows.Next() {
		edge, err := scanPlatformEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan platform edge row: %w", err)
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

const edgeCandidatesSQL = `
SELECT id, nodes, tags
FROM planet_osm_ways
WHERE tags->>'railway' = 'platform_edge' AND tags->>'ref' = $1
`

// EdgeCandidatesByRef implements Store.
func (p *Postgres) EdgeCandidatesByRef(ctx context.Context, edgeRef string) ([]domain.PlatformEdge, error) {
	rows, err := p.db.QueryxContext(ctx, edgeCandidatesSQL, edgeRef)
	if err != nil {
		return nil, fmt.Errorf("find edge candidates for ref %q: %w", edgeRef, err)
	}
	defer rows.Close()

	var candidates []domain.PlatformEdge
	for rows.Next() {
		var id int64
		var nodes pq.Int64Array
		var rawTags []byte
		if err := rows.Scan(&id, &nodes, &rawTags); err != nil {
			return nil, fmt.Errorf("scan edge candidate row: %w", err)
		}
		tags, err := decodeTags(rawTags)
		if err != nil {
			return nil, fmt.Errorf("decode tags of way %d: %w", id, err)
		}
		candidates = append(candidates, domain.PlatformEdge{
			WayID:   osm.WayID(id),
			Nodes:   toNodeIDs(nodes),
			Tags:    tags,
			EdgeRef: edgeRef,
		})
	}
	return candidates, rows.Err()
}

const stationRelationIDsSQL = `
SELECT DISTINCT relation_id
FROM station_platform_ways
WHERE station_name = $1
`

// StationRelationIDs implements Store.
func (p *Postgres) StationRelationIDs(ctx context.Context, station string) ([]osm.RelationID, error) {
	rows, err := p.db.QueryxContext(ctx, stationRelationIDsSQL, station)
	if err != nil {
		return nil, fmt.Errorf("load relation ids for %q: %w", station, err)
	}
	defer rows.Close()

	var ids []osm.RelationID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan relation id: %w", err)
		}
		ids = append(ids, osm.RelationID(id))
	}
	return ids, rows.Err()
}

const relationMemberNodesSQL = `
SELECT DISTINCT unnest(nodes) AS node_id
FROM station_ways_with_nodes_plus_pedestrian
WHERE relation_id = ANY($1::bigint[])
`

// RelationMemberNodes implements Store.
func (p *Postgres) RelationMemberNodes(ctx context.Context, relationIDs []osm.RelationID) (map[osm.NodeID]struct{}, error) {
	if len(relationIDs) == 0 {
		return map[osm.NodeID]struct{}{}, nil
	}
	return p.queryNodeSet(ctx, relationMemberNodesSQL, relationArray(relationIDs))
}

const relationNodesSQL = `
SELECT DISTINCT unnest(nodes) AS node_id
FROM station_ways_with_nodes
WHERE relation_id = $1
`

// RelationNodes implements Store.
func (p *Postgres) RelationNodes(ctx context.Context, relationID osm.RelationID) (map[osm.NodeID]struct{}, error) {
	return p.queryNodeSet(ctx, relationNodesSQL, int64(relationID))
}

func (p *Postgres) queryNodeSet(ctx context.Context, query string, arg any) (map[osm.NodeID]struct{}, error) {
	rows, err := p.db.QueryxContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("load relation node set: %w", err)
	}
	defer rows.Close()

	set := make(map[osm.NodeID]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan node id: %w", err)
		}
		set[osm.NodeID(id)] = struct{}{}
	}
	return set, rows.Err()
}

const connectingWaySQL = `
SELECT way_id, nodes
FROM station_ways_with_nodes
WHERE relation_id = $1
  AND nodes && $2::bigint[]
  AND nodes && $3::bigint[]
LIMIT 1
`

// ConnectingWay implements Store.
func (p *Postgres) ConnectingWay(ctx context.Context, relationID osm.RelationID, nodesA, nodesB []osm.NodeID) (domain.WalkableWay, bool, error) {
	var id int64
	var nodes pq.Int64Array
	err := p.db.QueryRowxContext(ctx, connectingWaySQL, int64(relationID), nodeArray(nodesA), nodeArray(nodesB)).
		Scan(&id, &nodes)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WalkableWay{}, false, nil
	}
	if err != nil {
		return domain.WalkableWay{}, false, fmt.Errorf("find connecting way in relation %d: %w", relationID, err)
	}
	return domain.WalkableWay{WayID: osm.WayID(id), Nodes: toNodeIDs(nodes)}, true, nil
}

// Ping implements Store.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close implements Store.
func (p *Postgres) Close() error {
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlatformEdge(row rowScanner) (domain.PlatformEdge, error) {
	var relation, way int64
	var nodes pq.Int64Array
	var rawTags []byte
	var edgeRef string
	if err := row.Scan(&relation, &way, &nodes, &rawTags, &edgeRef); err != nil {
		return domain.PlatformEdge{}, err
	}
	tags, err := decodeTags(rawTags)
	if err != nil {
		return domain.PlatformEdge{}, err
	}
	return domain.PlatformEdge{
		RelationID: osm.RelationID(relation),
		WayID:      osm.WayID(way),
		Nodes:      toNodeIDs(nodes),
		Tags:       tags,
		EdgeRef:    edgeRef,
	}, nil
}

func decodeTags(raw []byte) (osm.Tags, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	tags := make(osm.Tags, 0, len(m))
	for k, v := range m {
		tags = append(tags, osm.Tag{Key: k, Value: v})
	}
	return tags, nil
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P01"
}

func nodeArray(ids []osm.NodeID) pq.Int64Array {
	arr := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}
	return arr
}

func wayArray(ids []osm.WayID) pq.Int64Array {
	arr := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}
	return arr
}

func relationArray(ids []osm.RelationID) pq.Int64Array {
	arr := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}
	return arr
}

func toNodeIDs(arr pq.Int64Array) []osm.NodeID {
	ids := make([]osm.NodeID, len(arr))
	for i, v := range arr {
		ids[i] = osm.NodeID(v)
	}
	return ids
}
