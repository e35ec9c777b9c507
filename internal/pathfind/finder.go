package pathfind

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/domain"
	"github.com/transfr/transfr/internal/geo"
	"github.com/transfr/transfr/internal/store"
)

// Defaults for the bounded-work knobs. Neither constant is load-bearing;
// both are exposed as configuration.
const (
	DefaultMaxRounds       = 10
	DefaultMaxFallbackHops = 10
)

// Options bounds the work a single search may perform.
type Options struct {
	// MaxRounds caps expansion-loop iterations per search.
	MaxRounds int
	// MaxFallbackHops caps frontier hops when associating an unindexed
	// platform edge with a station relation.
	MaxFallbackHops int
}

func (o Options) withDefaults() Options {
	if o.MaxRounds <= 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	if o.MaxFallbackHops <= 0 {
		o.MaxFallbackHops = DefaultMaxFallbackHops
	}
	return o
}

// Finder resolves platform edges and searches walkable routes between them.
// A Finder is safe for concurrent use; each search builds and discards its
// own index and leases store handles independently.
type Finder struct {
	store  store.Store
	logger *slog.Logger
	opts   Options
}

// NewFinder constructs a Finder on top of the given store.
func NewFinder(st store.Store, logger *slog.Logger, opts Options) *Finder {
	return &Finder{
		store:  st,
		logger: logger,
		opts:   opts.withDefaults(),
	}
}

// FindPath searches a walkable route between two platform edges of the same
// station: bipartite BFS over the station's way segments, expanding the
// index from the store in bounded batch rounds whenever the search stalls.
// Absence of a route is reported as store.ErrNotFound.
func (f *Finder) FindPath(ctx context.Context, edge1, edge2 domain.PlatformEdge) (*domain.Route, error) {
	if edge1.RelationID != edge2.RelationID {
		return nil, fmt.Errorf("edges %q and %q belong to different relations (%d, %d): %w",
			edge1.EdgeRef, edge2.EdgeRef, edge1.RelationID, edge2.RelationID, store.ErrNotFound)
	}
	relationID := edge1.RelationID

	stats := domain.SearchStats{}

	segments, err := f.store.SegmentsForRelation(ctx, relationID)
	stats.StoreQueries++
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		// Station relation with no modeled infrastructure. Valid data, no path.
		return nil, fmt.Errorf("relation %d has no way segments: %w", relationID, store.ErrNotFound)
	}

	ix := BuildIndex(segments)
	ix.Seed(edge1.WayID, edge1.Nodes)
	ix.Seed(edge2.WayID, edge2.Nodes)

	expanded := make(map[osm.NodeID]struct{})

	for round := 1; round <= f.opts.MaxRounds; round++ {
		stats.Rounds = round

		path, visited := shortestPath(ix, edge1.WayID, edge2.WayID)
		stats.StatesVisited += visited
		if path != nil {
			route := &domain.Route{
				Type:       domain.RouteWayPath,
				Edge1:      edge1,
				Edge2:      edge2,
				RelationID: relationID,
				Path:       path,
				WayIDs:     path.WayIDs(),
				PathNodes:  path.NodeIDs(),
			}
			f.annotate(ctx, route, &stats)
			route.Stats = stats
			f.logger.Debug("path found",
				"relation", relationID,
				"hops", len(path),
				"rounds", stats.Rounds,
				"statesVisited", stats.StatesVisited,
				"storeQueries", stats.StoreQueries,
			)
			return route, nil
		}

		frontier := unexpandedFrontier(ix, expanded)
		if len(frontier) == 0 {
			break
		}
		for _, n := range frontier {
			expanded[n] = struct{}{}
		}

		discovered, err := f.store.WalkableWaysByNodes(ctx, frontier, ix.WayIDs())
		stats.StoreQueries++
		if err != nil {
			return nil, err
		}
		if len(discovered) == 0 {
			break
		}

		for _, way := range discovered {
			ix.Seed(way.WayID, way.Nodes)
		}
		f.logger.Debug("frontier expanded",
			"relation", relationID,
			"round", round,
			"frontierNodes", len(frontier),
			"newWays", len(discovered),
		)
	}

	f.logger.Debug("no path",
		"relation", relationID,
		"rounds", stats.Rounds,
		"statesVisited", stats.StatesVisited,
		"storeQueries", stats.StoreQueries,
	)
	return nil, fmt.Errorf("no walkable path between edges %q and %q: %w",
		edge1.EdgeRef, edge2.EdgeRef, store.ErrNotFound)
}

// PlatformEdges lists a station's indexed platform edges.
func (f *Finder) PlatformEdges(ctx context.Context, station string) ([]domain.PlatformEdge, error) {
	return f.store.PlatformEdges(ctx, station)
}

// annotate enriches a found route with geometry. When the two edges sit on
// opposite sides of one platform (a single relation way touches both), the
// route is marked as an opposite-platform crossing and carries crossing
// length and platform width. Annotation never affects whether a path is
// found: store or data problems here degrade the metrics, not the route.
func (f *Finder) annotate(ctx context.Context, route *domain.Route, stats *domain.SearchStats) {
	connecting, ok, err := f.store.ConnectingWay(ctx, route.RelationID, route.Edge1.Nodes, route.Edge2.Nodes)
	stats.StoreQueries++
	if err != nil {
		f.logger.Debug("connecting-way check failed", "relation", route.RelationID, "error", err)
		return
	}
	if !ok {
		return
	}

	route.Type = domain.RouteOppositePlatform
	route.ConnectingWayID = connecting.WayID

	all := make([]osm.NodeID, 0, len(route.Edge1.Nodes)+len(route.Edge2.Nodes)+len(connecting.Nodes))
	all = append(all, route.Edge1.Nodes...)
	all = append(all, route.Edge2.Nodes...)
	all = append(all, connecting.Nodes...)

	coords, err := f.store.NodeCoordinates(ctx, all)
	stats.StoreQueries++
	if err != nil {
		f.logger.Debug("coordinate lookup failed", "relation", route.RelationID, "error", err)
		return
	}
	if crossing, ok := geo.WayLengthMeters(connecting.Nodes, coords); ok {
		route.CrossingLengthMeters = &crossing
	}
	if width, ok := geo.MinDistanceBetweenNodeSets(route.Edge1.Nodes, route.Edge2.Nodes, coords); ok {
		route.PlatformWidthMeters = &width
	}
}

// unexpandedFrontier is every indexed node not yet used as an expansion
// frontier in a prior round. Tracking this explicitly avoids asking the store
// about the same nodes twice.
func unexpandedFrontier(ix *Index, expanded map[osm.NodeID]struct{}) []osm.NodeID {
	var frontier []osm.NodeID
	for _, n := range ix.Nodes() {
		if _, done := expanded[n]; !done {
			frontier = append(frontier, n)
		}
	}
	return frontier
}
