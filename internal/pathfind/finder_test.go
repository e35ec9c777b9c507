package pathfind

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/domain"
	"github.com/transfr/transfr/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func edge(relation osm.RelationID, way osm.WayID, ref string, nodes ...osm.NodeID) domain.PlatformEdge {
	return domain.PlatformEdge{
		RelationID: relation,
		WayID:      way,
		Nodes:      nodes,
		EdgeRef:    ref,
	}
}

func TestFindPathDirect(t *testing.T) {
	mem := store.NewMemory().AddSegments(5,
		domain.WaySegment{NodeFrom: 1, NodeTo: 2, WayID: 10},
		domain.WaySegment{NodeFrom: 2, NodeTo: 3, WayID: 20},
	)
	f := NewFinder(mem, testLogger(), Options{})

	route, err := f.FindPath(context.Background(), edge(5, 10, "1", 1, 2), edge(5, 20, "2", 2, 3))
	if err != nil {
		t.Fatalf("expected a route, got %v", err)
	}

	want := domain.Path{domain.WayState(10), domain.NodeState(2), domain.WayState(20)}
	if len(route.Path) != len(want) {
		t.Fatalf("path length = %d, want %d (%v)", len(route.Path), len(want), route.Path)
	}
	for i := range want {
		if route.Path[i] != want[i] {
			t.Errorf("path[%d] = %v, want %v", i, route.Path[i], want[i])
		}
	}
	if !route.Path.Alternates() {
		t.Error("path must alternate way and node states")
	}
	if route.Stats.Rounds != 1 {
		t.Errorf("rounds = %d, want 1", route.Stats.Rounds)
	}
}

func TestFindPathIdentity(t *testing.T) {
	mem := store.NewMemory().AddSegments(5,
		domain.WaySegment{NodeFrom: 1, NodeTo: 2, WayID: 10},
	)
	f := NewFinder(mem, testLogger(), Options{})

	route, err := f.FindPath(context.Background(), edge(5, 10, "1", 1, 2), edge(5, 10, "1", 1, 2))
	if err != nil {
		t.Fatalf("expected a route, got %v", err)
	}
	if len(route.Path) != 1 || route.Path[0] != domain.WayState(10) {
		t.Fatalf("expected single-element path [Way(10)], got %v", route.Path)
	}
}

func TestFindPathShortestHops(t *testing.T) {
	// Two routes from way 10 to way 90: via way 20 (5 states) or through
	// ways 30 and 40 (7 states). BFS must return the shorter one.
	mem := store.NewMemory().AddSegments(5,
		domain.WaySegment{NodeFrom: 1, NodeTo: 2, WayID: 10},
		domain.WaySegment{NodeFrom: 2, NodeTo: 9, WayID: 20},
		domain.WaySegment{NodeFrom: 9, NodeTo: 50, WayID: 90},
		domain.WaySegment{NodeFrom: 2, NodeTo: 3, WayID: 30},
		domain.WaySegment{NodeFrom: 3, NodeTo: 4, WayID: 40},
		domain.WaySegment{NodeFrom: 4, NodeTo: 50, WayID: 90},
	)
	f := NewFinder(mem, testLogger(), Options{})

	route, err := f.FindPath(context.Background(), edge(5, 10, "1", 1, 2), edge(5, 90, "2", 9, 50))
	if err != nil {
		t.Fatalf("expected a route, got %v", err)
	}
	if len(route.Path) != 5 {
		t.Fatalf("path has %d states, want 5: %v", len(route.Path), route.Path)
	}
	if !route.Path.Alternates() {
		t.Error("path must alternate way and node states")
	}
	if got := route.WayIDs; len(got) != 3 || got[1] != 20 {
		t.Errorf("expected middle way 20, got %v", got)
	}
}

func TestFindPathCrossRelation(t *testing.T) {
	mem := store.NewMemory()
	f := NewFinder(mem, testLogger(), Options{})

	_, err := f.FindPath(context.Background(), edge(5, 10, "1", 1), edge(6, 20, "2", 2))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if mem.TotalQueries() != 0 {
		t.Errorf("cross-relation request must be rejected before any store call, got %d calls", mem.TotalQueries())
	}
}

func TestFindPathNoSegments(t *testing.T) {
	mem := store.NewMemory()
	f := NewFinder(mem, testLogger(), Options{})

	_, err := f.FindPath(context.Background(), edge(5, 10, "1", 1), edge(5, 20, "2", 2))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unmodeled station, got %v", err)
	}
}

func TestFindPathDisjointStopsAfterOneRound(t *testing.T) {
	mem := store.NewMemory().AddSegments(5,
		domain.WaySegment{NodeFrom: 1, NodeTo: 2, WayID: 10},
		domain.WaySegment{NodeFrom: 3, NodeTo: 4, WayID: 20},
	)
	f := NewFinder(mem, testLogger(), Options{})

	_, err := f.FindPath(context.Background(), edge(5, 10, "1", 1, 2), edge(5, 20, "2", 3, 4))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := mem.WalkableQueries(); got != 1 {
		t.Errorf("expected exactly one expansion query, got %d", got)
	}
}

func TestFindPathExpandsFrontier(t *testing.T) {
	mem := store.NewMemory().
		AddSegments(5, domain.WaySegment{NodeFrom: 1, NodeTo: 2, WayID: 10}).
		// A footway outside the relation connects the two platforms.
		AddWay(30, []osm.NodeID{2, 4}, osm.Tags{{Key: "highway", Value: "footway"}})
	f := NewFinder(mem, testLogger(), Options{})

	route, err := f.FindPath(context.Background(), edge(5, 10, "1", 1, 2), edge(5, 20, "2", 4, 5))
	if err != nil {
		t.Fatalf("expected a route after expansion, got %v", err)
	}
	if route.Stats.Rounds != 2 {
		t.Errorf("rounds = %d, want 2", route.Stats.Rounds)
	}
	if !route.Path.Alternates() {
		t.Error("path must alternate way and node states")
	}
	wantWays := []osm.WayID{10, 30, 20}
	if len(route.WayIDs) != len(wantWays) {
		t.Fatalf("way ids = %v, want %v", route.WayIDs, wantWays)
	}
	for i, w := range wantWays {
		if route.WayIDs[i] != w {
			t.Errorf("way ids = %v, want %v", route.WayIDs, wantWays)
			break
		}
	}
}

func TestFindPathSkipsRestrictedWays(t *testing.T) {
	mem := store.NewMemory().
		AddSegments(5, domain.WaySegment{NodeFrom: 1, NodeTo: 2, WayID: 10}).
		AddWay(30, []osm.NodeID{2, 4}, osm.Tags{
			{Key: "highway", Value: "footway"},
			{Key: "access", Value: "private"},
		})
	f := NewFinder(mem, testLogger(), Options{})

	_, err := f.FindPath(context.Background(), edge(5, 10, "1", 1, 2), edge(5, 20, "2", 4, 5))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound through a private way, got %v", err)
	}
}

// unboundedStore simulates a store that reports fresh ways on every frontier
// query, so only the round limit can end the search.
type unboundedStore struct {
	*store.Memory
	calls  int
	nextID int64
}

func (s *unboundedStore) WalkableWaysByNodes(_ context.Context, nodes []osm.NodeID, _ []osm.WayID) ([]domain.WalkableWay, error) {
	s.calls++
	s.nextID++
	return []domain.WalkableWay{{
		WayID: osm.WayID(1000 + s.nextID),
		Nodes: []osm.NodeID{nodes[0], osm.NodeID(5000 + s.nextID)},
	}}, nil
}

func TestFindPathTerminatesWithinMaxRounds(t *testing.T) {
	mem := store.NewMemory().AddSegments(5,
		domain.WaySegment{NodeFrom: 1, NodeTo: 2, WayID: 10},
	)
	st := &unboundedStore{Memory: mem}
	f := NewFinder(st, testLogger(), Options{MaxRounds: 3})

	_, err := f.FindPath(context.Background(), edge(5, 10, "1", 1, 2), edge(5, 20, "2", 99))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if st.calls != 3 {
		t.Errorf("expansion queries = %d, want 3 (one per round)", st.calls)
	}
}

func TestFindPathPropagatesStoreErrors(t *testing.T) {
	boom := fmt.Errorf("connection reset")
	mem := store.NewMemory().WithError(boom)
	f := NewFinder(mem, testLogger(), Options{})

	_, err := f.FindPath(context.Background(), edge(5, 10, "1", 1), edge(5, 20, "2", 2))
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}

func TestFindPathAnnotatesOppositePlatform(t *testing.T) {
	mem := store.NewMemory().
		AddSegments(5,
			domain.WaySegment{NodeFrom: 2, NodeTo: 3, WayID: 30},
		).
		// One platform way touches both edges: an opposite-platform crossing.
		AddRelationWay(5, domain.WalkableWay{WayID: 30, Nodes: []osm.NodeID{2, 3}}).
		AddCoord(1, 48.5850, 7.7348).
		AddCoord(2, 48.58501, 7.7348).
		AddCoord(3, 48.58508, 7.7348).
		AddCoord(4, 48.58509, 7.7348)
	f := NewFinder(mem, testLogger(), Options{})

	route, err := f.FindPath(context.Background(),
		edge(5, 10, "1", 1, 2), edge(5, 20, "2", 3, 4))
	if err != nil {
		t.Fatalf("expected a route, got %v", err)
	}
	if route.Type != domain.RouteOppositePlatform {
		t.Fatalf("route type = %q, want %q", route.Type, domain.RouteOppositePlatform)
	}
	if route.ConnectingWayID != 30 {
		t.Errorf("connecting way = %d, want 30", route.ConnectingWayID)
	}
	if route.CrossingLengthMeters == nil || *route.CrossingLengthMeters <= 0 {
		t.Error("expected a positive crossing length")
	}
	if route.PlatformWidthMeters == nil || *route.PlatformWidthMeters <= 0 {
		t.Error("expected a positive platform width")
	}
}

func TestFindPathMetricsDegradeWithoutCoordinates(t *testing.T) {
	mem := store.NewMemory().
		AddSegments(5,
			domain.WaySegment{NodeFrom: 2, NodeTo: 3, WayID: 30},
		).
		AddRelationWay(5, domain.WalkableWay{WayID: 30, Nodes: []osm.NodeID{2, 3}}).
		WithoutCoordinates()
	f := NewFinder(mem, testLogger(), Options{})

	route, err := f.FindPath(context.Background(),
		edge(5, 10, "1", 1, 2), edge(5, 20, "2", 3, 4))
	if err != nil {
		t.Fatalf("expected a route even without coordinates, got %v", err)
	}
	if route.CrossingLengthMeters != nil || route.PlatformWidthMeters != nil {
		t.Error("metrics must be absent, not partial, when coordinates are unavailable")
	}
}
