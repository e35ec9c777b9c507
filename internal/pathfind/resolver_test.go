package pathfind

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/domain"
	"github.com/transfr/transfr/internal/store"
)

func edgeWayTags(ref string) osm.Tags {
	return osm.Tags{
		{Key: "railway", Value: "platform_edge"},
		{Key: "ref", Value: ref},
	}
}

func footway() osm.Tags {
	return osm.Tags{{Key: "highway", Value: "footway"}}
}

func TestResolveEdgeIndexed(t *testing.T) {
	want := edge(5, 10, "3", 1, 2)
	mem := store.NewMemory().AddPlatformEdge("strasbourg", want)
	f := NewFinder(mem, testLogger(), Options{})

	got, err := f.ResolveEdge(context.Background(), "strasbourg", "3")
	if err != nil {
		t.Fatalf("ResolveEdge: %v", err)
	}
	if got.WayID != want.WayID || got.RelationID != want.RelationID {
		t.Errorf("got edge %+v, want %+v", got, want)
	}
	if mem.TotalQueries() != 1 {
		t.Errorf("indexed lookup must not hit the fallback, got %d queries", mem.TotalQueries())
	}
}

func TestResolveEdgeFallbackDirectOverlap(t *testing.T) {
	mem := store.NewMemory().
		AddWay(100, []osm.NodeID{1, 2}, edgeWayTags("3")).
		AddStationRelation("strasbourg", 5).
		AddMemberNodes(5, 2, 30, 31)
	f := NewFinder(mem, testLogger(), Options{})

	got, err := f.ResolveEdge(context.Background(), "strasbourg", "3")
	if err != nil {
		t.Fatalf("ResolveEdge: %v", err)
	}
	if got.WayID != 100 {
		t.Errorf("way = %d, want 100", got.WayID)
	}
	if got.RelationID != 5 {
		t.Errorf("relation = %d, want 5", got.RelationID)
	}
}

func TestResolveEdgeFallbackHopExpansion(t *testing.T) {
	// The edge way shares no node with the relation; it reaches member
	// node 12 only through three intermediate footways.
	mem := store.NewMemory().
		AddWay(100, []osm.NodeID{1, 2}, edgeWayTags("3")).
		AddWay(201, []osm.NodeID{2, 10}, footway()).
		AddWay(202, []osm.NodeID{10, 11}, footway()).
		AddWay(203, []osm.NodeID{11, 12}, footway()).
		AddStationRelation("strasbourg", 5).
		AddMemberNodes(5, 12)
	f := NewFinder(mem, testLogger(), Options{})

	got, err := f.ResolveEdge(context.Background(), "strasbourg", "3")
	if err != nil {
		t.Fatalf("ResolveEdge: %v", err)
	}
	if got.WayID != 100 || got.RelationID != 5 {
		t.Errorf("got way %d relation %d, want way 100 relation 5", got.WayID, got.RelationID)
	}
}

func TestResolveEdgeFallbackHopLimit(t *testing.T) {
	mem := store.NewMemory().
		AddWay(100, []osm.NodeID{1, 2}, edgeWayTags("3")).
		AddWay(201, []osm.NodeID{2, 10}, footway()).
		AddWay(202, []osm.NodeID{10, 11}, footway()).
		AddWay(203, []osm.NodeID{11, 12}, footway()).
		AddStationRelation("strasbourg", 5).
		AddMemberNodes(5, 12)
	f := NewFinder(mem, testLogger(), Options{MaxFallbackHops: 2})

	_, err := f.ResolveEdge(context.Background(), "strasbourg", "3")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound beyond the hop limit, got %v", err)
	}
}

func TestResolveEdgeNoCandidates(t *testing.T) {
	mem := store.NewMemory().
		AddStationRelation("strasbourg", 5).
		AddMemberNodes(5, 1)
	f := NewFinder(mem, testLogger(), Options{})

	_, err := f.ResolveEdge(context.Background(), "strasbourg", "99")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveEdgeUnknownStation(t *testing.T) {
	mem := store.NewMemory().
		AddWay(100, []osm.NodeID{1, 2}, edgeWayTags("3"))
	f := NewFinder(mem, testLogger(), Options{})

	_, err := f.ResolveEdge(context.Background(), "nowhere", "3")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveEdgeDisconnectedCandidate(t *testing.T) {
	mem := store.NewMemory().
		AddWay(100, []osm.NodeID{1, 2}, edgeWayTags("3")).
		AddStationRelation("strasbourg", 5).
		AddMemberNodes(5, 50, 51)
	f := NewFinder(mem, testLogger(), Options{})

	_, err := f.ResolveEdge(context.Background(), "strasbourg", "3")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a disconnected edge, got %v", err)
	}
}

func TestResolveEdgePicksBestRelation(t *testing.T) {
	mem := store.NewMemory().
		AddWay(100, []osm.NodeID{1, 2, 3}, edgeWayTags("3")).
		AddStationRelation("strasbourg", 5).
		AddStationRelation("strasbourg", 6).
		AddMemberNodes(5, 1).
		AddMemberNodes(6, 1).
		AddRelationWay(5, domain.WalkableWay{WayID: 300, Nodes: []osm.NodeID{1}}).
		AddRelationWay(6, domain.WalkableWay{WayID: 301, Nodes: []osm.NodeID{1, 2}})
	f := NewFinder(mem, testLogger(), Options{})

	got, err := f.ResolveEdge(context.Background(), "strasbourg", "3")
	if err != nil {
		t.Fatalf("ResolveEdge: %v", err)
	}
	if got.RelationID != 6 {
		t.Errorf("relation = %d, want 6 (larger node overlap)", got.RelationID)
	}
}

func TestResolveEdgeRelationTieKeepsFirst(t *testing.T) {
	mem := store.NewMemory().
		AddWay(100, []osm.NodeID{1, 2}, edgeWayTags("3")).
		AddStationRelation("strasbourg", 5).
		AddStationRelation("strasbourg", 6).
		AddMemberNodes(5, 1).
		AddMemberNodes(6, 1).
		AddRelationWay(5, domain.WalkableWay{WayID: 300, Nodes: []osm.NodeID{1, 2}}).
		AddRelationWay(6, domain.WalkableWay{WayID: 301, Nodes: []osm.NodeID{1, 2}})
	f := NewFinder(mem, testLogger(), Options{})

	got, err := f.ResolveEdge(context.Background(), "strasbourg", "3")
	if err != nil {
		t.Fatalf("ResolveEdge: %v", err)
	}
	if got.RelationID != 5 {
		t.Errorf("relation = %d, want 5 (first seen on a tie)", got.RelationID)
	}
}
