package generator

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/stations"
)

func testConfig() Config {
	return Config{
		NumStations:        5,
		MinEdgesPerStation: 2,
		MaxEdgesPerStation: 4,
		NodesPerEdge:       5,
		SharedCityChance:   0.3,
		CrossingChance:     0.5,
		Seed:               7,
	}
}

func TestGenerateDeterministic(t *testing.T) {
	ctx := context.Background()
	first, err := New(testConfig()).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := New(testConfig()).Generate(ctx)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(first.Stations) != len(second.Stations) {
		t.Fatalf("station counts differ: %d vs %d", len(first.Stations), len(second.Stations))
	}
	for i := range first.Stations {
		if first.Stations[i] != second.Stations[i] {
			t.Errorf("station %d differs: %+v vs %+v", i, first.Stations[i], second.Stations[i])
		}
	}
	if first.Networks[0].RelationID != second.Networks[0].RelationID {
		t.Errorf("relation ids differ: %d vs %d",
			first.Networks[0].RelationID, second.Networks[0].RelationID)
	}
}

func TestGenerateNetworkShape(t *testing.T) {
	cfg := testConfig()
	dataset, err := New(cfg).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(dataset.Networks) != cfg.NumStations {
		t.Fatalf("got %d networks, want %d", len(dataset.Networks), cfg.NumStations)
	}

	for _, network := range dataset.Networks {
		if len(network.Edges) < cfg.MinEdgesPerStation || len(network.Edges) > cfg.MaxEdgesPerStation {
			t.Errorf("%s: %d edges outside [%d, %d]",
				network.Station.Name, len(network.Edges), cfg.MinEdgesPerStation, cfg.MaxEdgesPerStation)
		}
		for _, edge := range network.Edges {
			if len(edge.Nodes) != cfg.NodesPerEdge {
				t.Errorf("%s edge %s: %d nodes, want %d",
					network.Station.Name, edge.EdgeRef, len(edge.Nodes), cfg.NodesPerEdge)
			}
		}

		wantSegments := 0
		for _, way := range network.Ways {
			wantSegments += len(way.Nodes) - 1
		}
		if len(network.Segments) != wantSegments {
			t.Errorf("%s: %d segments, want %d", network.Station.Name, len(network.Segments), wantSegments)
		}
	}
}

// Every edge must be reachable from every other within its station, else
// a generated database would yield unroutable platform pairs.
func TestGenerateNetworkConnected(t *testing.T) {
	dataset, err := New(testConfig()).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, network := range dataset.Networks {
		reachable := map[osm.NodeID]bool{}
		queue := append([]osm.NodeID(nil), network.Edges[0].Nodes...)
		for _, n := range queue {
			reachable[n] = true
		}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			for _, way := range network.Ways {
				touches := false
				for _, n := range way.Nodes {
					if n == node {
						touches = true
						break
					}
				}
				if !touches {
					continue
				}
				for _, n := range way.Nodes {
					if !reachable[n] {
						reachable[n] = true
						queue = append(queue, n)
					}
				}
			}
		}

		for _, edge := range network.Edges {
			for _, n := range edge.Nodes {
				if !reachable[n] {
					t.Fatalf("%s: edge %s node %d unreachable from edge 1",
						network.Station.Name, edge.EdgeRef, n)
				}
			}
		}
	}
}

func TestWriteStationsCSVRoundTrip(t *testing.T) {
	dataset, err := New(testConfig()).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteStationsCSV(&buf, dataset); err != nil {
		t.Fatalf("WriteStationsCSV: %v", err)
	}

	directory, err := stations.New(&buf)
	if err != nil {
		t.Fatalf("stations.New: %v", err)
	}
	if directory.Len() != len(dataset.Stations) {
		t.Fatalf("directory loaded %d stations, want %d", directory.Len(), len(dataset.Stations))
	}
	if _, err := directory.Resolve(dataset.Stations[0].Name); err != nil {
		t.Errorf("Resolve(%q): %v", dataset.Stations[0].Name, err)
	}
}

func TestWriteSeedSQL(t *testing.T) {
	dataset, err := New(testConfig()).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteSeedSQL(&buf, dataset); err != nil {
		t.Fatalf("WriteSeedSQL: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "CREATE TABLE IF NOT EXISTS platform_edges_indexed") {
		t.Error("missing platform_edges_indexed schema")
	}
	wantEdges := 0
	for _, network := range dataset.Networks {
		wantEdges += len(network.Edges)
	}
	if got := strings.Count(out, "INSERT INTO platform_edges_indexed"); got != wantEdges {
		t.Errorf("got %d edge inserts, want %d", got, wantEdges)
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(testConfig()).Generate(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
