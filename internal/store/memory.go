package store

import (
	"context"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/domain"
	"github.com/transfr/transfr/internal/geo"
)

// walkableHighways are the highway tag values considered pedestrian-traversable.
var walkableHighways = map[string]bool{
	"footway":    true,
	"steps":      true,
	"corridor":   true,
	"pedestrian": true,
	"path":       true,
	"cycleway":   true,
	"crossing":   true,
	"elevator":   true,
	"escalator":  true,
	"platform":   true,
	"service":    true,
}

// Walkable reports whether a way's tags mark it as pedestrian infrastructure.
// Mirrors the SQL predicate in walkableWaysSQL.
func Walkable(tags osm.Tags) bool {
	if tags.Find("access") == "private" {
		return false
	}
	if walkableHighways[tags.Find("highway")] {
		return true
	}
	if tags.Find("railway") == "platform" {
		return true
	}
	return tags.Find("conveying") != ""
}

// memoryWay is one raw infrastructure way held by the in-memory store.
type memoryWay struct {
	id    osm.WayID
	nodes []osm.NodeID
	tags  osm.Tags
}

// Memory is an in-memory Store used to test search logic without a database.
// Mutators are not safe to call concurrently with queries; tests populate the
// store up front.
type Memory struct {
	mu sync.Mutex

	segments      map[osm.RelationID][]domain.WaySegment
	ways          map[osm.WayID]memoryWay
	coords        geo.Coords
	noCoordsTable bool
	edges         map[string][]domain.PlatformEdge
	relations     map[string][]osm.RelationID
	memberNodes   map[osm.RelationID]map[osm.NodeID]struct{}
	relationWays  map[osm.RelationID][]domain.WalkableWay

	err    error
	closed bool

	walkableQueries int
	totalQueries    int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		segments:     make(map[osm.RelationID][]domain.WaySegment),
		ways:         make(map[osm.WayID]memoryWay),
		coords:       geo.Coords{},
		edges:        make(map[string][]domain.PlatformEdge),
		relations:    make(map[string][]osm.RelationID),
		memberNodes:  make(map[osm.RelationID]map[osm.NodeID]struct{}),
		relationWays: make(map[osm.RelationID][]domain.WalkableWay),
	}
}

// WithError makes every subsequent call fail with err.
func (m *Memory) WithError(err error) *Memory {
	m.err = err
	return m
}

// AddSegments registers precomputed adjacency rows for a relation.
func (m *Memory) AddSegments(relationID osm.RelationID, segments ...domain.WaySegment) *Memory {
	m.segments[relationID] = append(m.segments[relationID], segments...)
	return m
}

// AddWay registers a raw infrastructure way with its tag set.
func (m *Memory) AddWay(id osm.WayID, nodes []osm.NodeID, tags osm.Tags) *Memory {
	m.ways[id] = memoryWay{id: id, nodes: nodes, tags: tags}
	return m
}

// AddCoord registers a node coordinate as (lat, lon).
func (m *Memory) AddCoord(id osm.NodeID, lat, lon float64) *Memory {
	m.coords[id] = orb.Point{lon, lat}
	return m
}

// WithoutCoordinates simulates a deployment without the coordinate table.
func (m *Memory) WithoutCoordinates() *Memory {
	m.noCoordsTable = true
	return m
}

// AddPlatformEdge registers an indexed platform edge for a station.
func (m *Memory) AddPlatformEdge(station string, edge domain.PlatformEdge) *Memory {
	m.edges[station] = append(m.edges[station], edge)
	return m
}

// AddStationRelation associates a station name with a relation ID.
func (m *Memory) AddStationRelation(station string, relationID osm.RelationID) *Memory {
	m.relations[station] = append(m.relations[station], relationID)
	return m
}

// AddMemberNodes extends a relation's pedestrian-inclusive node set.
func (m *Memory) AddMemberNodes(relationID osm.RelationID, nodes ...osm.NodeID) *Memory {
	set := m.memberNodes[relationID]
	if set == nil {
		set = make(map[osm.NodeID]struct{})
		m.memberNodes[relationID] = set
	}
	for _, n := range nodes {
		set[n] = struct{}{}
	}
	return m
}

// AddRelationWay registers a formal relation-member way with its nodes.
func (m *Memory) AddRelationWay(relationID osm.RelationID, way domain.WalkableWay) *Memory {
	m.relationWays[relationID] = append(m.relationWays[relationID], way)
	return m
}

// WalkableQueries reports how many frontier batch queries were issued.
func (m *Memory) WalkableQueries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.walkableQueries
}

// TotalQueries reports the total number of store calls issued.
func (m *Memory) TotalQueries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalQueries
}

func (m *Memory) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalQueries++
	if m.closed {
		return ErrUnavailable
	}
	return m.err
}

// SegmentsForRelation implements Store.
func (m *Memory) SegmentsForRelation(_ context.Context, relationID osm.RelationID) ([]domain.WaySegment, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	return append([]domain.WaySegment(nil), m.segments[relationID]...), nil
}

// WalkableWaysByNodes implements Store.
func (m *Memory) WalkableWaysByNodes(_ context.Context, nodes []osm.NodeID, excludeWays []osm.WayID) ([]domain.WalkableWay, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.walkableQueries++
	m.mu.Unlock()

	if len(nodes) == 0 {
		return nil, nil
	}

	frontier := make(map[osm.NodeID]struct{}, len(nodes))
	for _, n := range nodes {
		frontier[n] = struct{}{}
	}
	excluded := make(map[osm.WayID]struct{}, len(excludeWays))
	for _, w := range excludeWays {
		excluded[w] = struct{}{}
	}

	var result []domain.WalkableWay
	for _, way := range m.ways {
		if _, skip := excluded[way.id]; skip {
			continue
		}
		if !Walkable(way.tags) {
			continue
		}
		if !touchesAny(way.nodes, frontier) {
			continue
		}
		result = append(result, domain.WalkableWay{
			WayID: way.id,
			Nodes: append([]osm.NodeID(nil), way.nodes...),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].WayID < result[j].WayID })
	return result, nil
}

// NodeCoordinates implements Store.
func (m *Memory) NodeCoordinates(_ context.Context, nodes []osm.NodeID) (geo.Coords, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	if m.noCoordsTable {
		return nil, nil
	}
	coords := make(geo.Coords, len(nodes))
	for _, n := range nodes {
		if p, ok := m.coords[n]; ok {
			coords[n] = p
		}
	}
	return coords, nil
}

// PlatformEdge implements Store.
func (m *Memory) PlatformEdge(_ context.Context, station, edgeRef string) (domain.PlatformEdge, error) {
	if err := m.begin(); err != nil {
		return domain.PlatformEdge{}, err
	}
	for _, edge := range m.edges[station] {
		if edge.EdgeRef == edgeRef {
			return edge, nil
		}
	}
	return domain.PlatformEdge{}, ErrNotFound
}

// PlatformEdges implements Store.
func (m *Memory) PlatformEdges(_ context.Context, station string) ([]domain.PlatformEdge, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	return append([]domain.PlatformEdge(nil), m.edges[station]...), nil
}

// EdgeCandidatesByRef implements Store.
func (m *Memory) EdgeCandidatesByRef(_ context.Context, edgeRef string) ([]domain.PlatformEdge, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	var candidates []domain.PlatformEdge
	for _, way := range m.ways {
		if way.tags.Find("railway") != "platform_edge" || way.tags.Find("ref") != edgeRef {
			continue
		}
		candidates = append(candidates, domain.PlatformEdge{
			WayID:   way.id,
			Nodes:   append([]osm.NodeID(nil), way.nodes...),
			Tags:    way.tags,
			EdgeRef: edgeRef,
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].WayID < candidates[j].WayID })
	return candidates, nil
}

// StationRelationIDs implements Store.
func (m *Memory) StationRelationIDs(_ context.Context, station string) ([]osm.RelationID, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	return append([]osm.RelationID(nil), m.relations[station]...), nil
}

// RelationMemberNodes implements Store.
func (m *Memory) RelationMemberNodes(_ context.Context, relationIDs []osm.RelationID) (map[osm.NodeID]struct{}, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	union := make(map[osm.NodeID]struct{})
	for _, id := range relationIDs {
		for n := range m.memberNodes[id] {
			union[n] = struct{}{}
		}
	}
	return union, nil
}

// RelationNodes implements Store.
func (m *Memory) RelationNodes(_ context.Context, relationID osm.RelationID) (map[osm.NodeID]struct{}, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	set := make(map[osm.NodeID]struct{})
	for _, way := range m.relationWays[relationID] {
		for _, n := range way.Nodes {
			set[n] = struct{}{}
		}
	}
	return set, nil
}

// ConnectingWay implements Store.
func (m *Memory) ConnectingWay(_ context.Context, relationID osm.RelationID, nodesA, nodesB []osm.NodeID) (domain.WalkableWay, bool, error) {
	if err := m.begin(); err != nil {
		return domain.WalkableWay{}, false, err
	}
	setA := toSet(nodesA)
	setB := toSet(nodesB)
	for _, way := range m.relationWays[relationID] {
		if touchesAny(way.Nodes, setA) && touchesAny(way.Nodes, setB) {
			return way, true, nil
		}
	}
	return domain.WalkableWay{}, false, nil
}

// Ping implements Store.
func (m *Memory) Ping(context.Context) error {
	return m.begin()
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func touchesAny(nodes []osm.NodeID, set map[osm.NodeID]struct{}) bool {
	for _, n := range nodes {
		if _, ok := set[n]; ok {
			return true
		}
	}
	return false
}

func toSet(nodes []osm.NodeID) map[osm.NodeID]struct{} {
	set := make(map[osm.NodeID]struct{}, len(nodes))
	for _, n := range nodes {
		set[n] = struct{}{}
	}
	return set
}
