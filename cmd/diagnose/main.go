// Command diagnose explains why a way is, or is not, visible to platform
// pathfinding: whether the raw way exists, which station relations carry it,
// whether the pedestrian-inclusive view picked it up, and whether it produced
// any precomputed segments.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/config"
	"github.com/transfr/transfr/internal/logging"
	"github.com/transfr/transfr/internal/store"
)

func main() {
	var (
		wayID  = flag.Int64("way", 0, "OSM way ID to diagnose (required)")
		nodeID = flag.Int64("node", 0, "Optional node ID to check for within the way and its segments")
	)
	flag.Parse()

	if *wayID == 0 {
		fmt.Fprintln(os.Stderr, "usage: diagnose -way <id> [-node <id>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "diagnose")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.NewPostgres(ctx, store.Options{
		Host:     cfg.Store.Host,
		Port:     cfg.Store.Port,
		Database: cfg.Store.Database,
		User:     cfg.Store.User,
		Password: cfg.Store.Password,
		SSLMode:  cfg.Store.SSLMode,
		MaxConns: 2,
	})
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()

	if err := run(ctx, st, osm.WayID(*wayID), osm.NodeID(*nodeID)); err != nil {
		logger.Error("diagnosis failed", "error", err, "way", *wayID)
		os.Exit(1)
	}
}

func run(ctx context.Context, diag store.Diagnostics, wayID osm.WayID, nodeID osm.NodeID) error {
	fmt.Printf("=== 1. Raw way %d ===\n", wayID)
	info, err := diag.WayInfo(ctx, wayID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Printf("way %d does not exist in planet_osm_ways\n", wayID)
		return nil
	case err != nil:
		return err
	}
	fmt.Printf("nodes: %d", len(info.Nodes))
	if nodeID != 0 {
		fmt.Printf(", contains node %d: %v", nodeID, info.HasNode(nodeID))
	}
	fmt.Println()
	printTags(info)

	fmt.Printf("\n=== 2. Formal relation membership ===\n")
	formal, err := diag.WayRelationMemberships(ctx, wayID)
	if err != nil {
		return err
	}
	printMemberships(formal, "way is not a member of any station relation")

	fmt.Printf("\n=== 3. Pedestrian-inclusive view ===\n")
	pedestrian, err := diag.WayPedestrianMemberships(ctx, wayID)
	if err != nil {
		return err
	}
	printMemberships(pedestrian, "way is not in the pedestrian-inclusive view; it will never produce segments")

	fmt.Printf("\n=== 4. Precomputed segments ===\n")
	segments, err := diag.SegmentsForWay(ctx, wayID)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		fmt.Println("no segment rows; the search index will never contain this way")
	} else {
		nodeSeen := false
		for _, row := range segments {
			if row.Segment.NodeFrom == nodeID || row.Segment.NodeTo == nodeID {
				nodeSeen = true
			}
			fmt.Printf("relation %d (%s): %d -> %d\n",
				row.RelationID, row.Station, row.Segment.NodeFrom, row.Segment.NodeTo)
		}
		if nodeID != 0 {
			fmt.Printf("node %d appears in segments: %v\n", nodeID, nodeSeen)
		}
	}

	fmt.Printf("\n=== 5. Verdict ===\n")
	switch {
	case len(pedestrian) == 0 && store.Walkable(info.Tags):
		fmt.Println("way is walkable but shares no node with any station way;")
		fmt.Println("it is only reachable through runtime frontier expansion")
	case len(pedestrian) == 0:
		fmt.Println("way is neither a relation member nor tagged as walkable infrastructure;")
		fmt.Println("make it a relation member, or tag it walkable and connect it to a station way,")
		fmt.Println("then refresh the materialized view")
	case len(segments) == 0:
		fmt.Println("way is in the view but produced no segments; the view needs a refresh")
	default:
		fmt.Println("way is fully indexed; searches only see it within its own relation")
	}
	return nil
}

func printTags(info store.WayInfo) {
	if len(info.Tags) == 0 {
		fmt.Println("tags: none")
		return
	}
	fmt.Print("tags:")
	for _, tag := range info.Tags {
		fmt.Printf(" %s=%s", tag.Key, tag.Value)
	}
	fmt.Println()
}

func printMemberships(memberships []store.WayMembership, emptyMsg string) {
	if len(memberships) == 0 {
		fmt.Println(emptyMsg)
		return
	}
	for _, m := range memberships {
		fmt.Printf("relation %d (%s), %d nodes\n", m.RelationID, m.Station, m.NodeCount)
	}
}
