package pathfind

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/domain"
	"github.com/transfr/transfr/internal/store"
)

// ResolveEdge looks up a platform edge by station name and human-facing ref.
//
// Fast path: the precomputed per-station edge index. Fallback for edges that
// are not formal relation members: find every platform-edge way carrying the
// ref, then associate one with the station by direct node overlap or, failing
// that, by expanding through walkable ways a bounded number of hops until the
// expansion touches a relation-member node.
func (f *Finder) ResolveEdge(ctx context.Context, station, edgeRef string) (domain.PlatformEdge, error) {
	edge, err := f.store.PlatformEdge(ctx, station, edgeRef)
	if err == nil {
		return edge, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.PlatformEdge{}, err
	}

	f.logger.Debug("edge not indexed, trying fallback association", "station", station, "edgeRef", edgeRef)
	return f.resolveEdgeFallback(ctx, station, edgeRef)
}

func (f *Finder) resolveEdgeFallback(ctx context.Context, station, edgeRef string) (domain.PlatformEdge, error) {
	candidates, err := f.store.EdgeCandidatesByRef(ctx, edgeRef)
	if err != nil {
		return domain.PlatformEdge{}, err
	}
	if len(candidates) == 0 {
		return domain.PlatformEdge{}, fmt.Errorf("no platform edge tagged ref %q: %w", edgeRef, store.ErrNotFound)
	}

	relationIDs, err := f.store.StationRelationIDs(ctx, station)
	if err != nil {
		return domain.PlatformEdge{}, err
	}
	if len(relationIDs) == 0 {
		return domain.PlatformEdge{}, fmt.Errorf("station %q has no relations: %w", station, store.ErrNotFound)
	}

	stationNodes, err := f.store.RelationMemberNodes(ctx, relationIDs)
	if err != nil {
		return domain.PlatformEdge{}, err
	}

	for _, candidate := range candidates {
		reachable, connects, err := f.edgeConnects(ctx, candidate, stationNodes)
		if err != nil {
			return domain.PlatformEdge{}, err
		}
		if !connects {
			continue
		}

		relationID, err := f.pickRelation(ctx, relationIDs, reachable)
		if err != nil {
			return domain.PlatformEdge{}, err
		}
		candidate.RelationID = relationID
		return candidate, nil
	}

	return domain.PlatformEdge{}, fmt.Errorf("platform edge %q does not connect to %q: %w",
		edgeRef, station, store.ErrNotFound)
}

// edgeConnects reports whether a candidate edge reaches any station-member
// node, directly or through bounded walkable-way expansion. The returned set
// holds every node seen along the way; it is used to score relation
// association.
func (f *Finder) edgeConnects(ctx context.Context, candidate domain.PlatformEdge, stationNodes map[osm.NodeID]struct{}) (map[osm.NodeID]struct{}, bool, error) {
	seenNodes := candidate.NodeSet()
	if overlaps(seenNodes, stationNodes) {
		return seenNodes, true, nil
	}

	frontier := make([]osm.NodeID, 0, len(candidate.Nodes))
	frontier = append(frontier, candidate.Nodes...)
	seenWays := []osm.WayID{candidate.WayID}

	for hop := 0; hop < f.opts.MaxFallbackHops; hop++ {
		discovered, err := f.store.WalkableWaysByNodes(ctx, frontier, seenWays)
		if err != nil {
			return nil, false, err
		}
		if len(discovered) == 0 {
			return seenNodes, false, nil
		}

		var next []osm.NodeID
		for _, way := range discovered {
			seenWays = append(seenWays, way.WayID)
			for _, n := range way.Nodes {
				if _, seen := seenNodes[n]; seen {
					continue
				}
				seenNodes[n] = struct{}{}
				next = append(next, n)
			}
		}

		for _, n := range next {
			if _, ok := stationNodes[n]; ok {
				return seenNodes, true, nil
			}
		}
		if len(next) == 0 {
			return seenNodes, false, nil
		}
		frontier = next
	}

	return seenNodes, false, nil
}

// pickRelation chooses the relation whose formal member ways share the most
// nodes with the edge's reachable set. Ties keep the first-seen relation.
func (f *Finder) pickRelation(ctx context.Context, relationIDs []osm.RelationID, reachable map[osm.NodeID]struct{}) (osm.RelationID, error) {
	if len(relationIDs) == 1 {
		return relationIDs[0], nil
	}

	best := relationIDs[0]
	bestCount := 0
	for _, id := range relationIDs {
		relationNodes, err := f.store.RelationNodes(ctx, id)
		if err != nil {
			return 0, err
		}
		count := 0
		for n := range reachable {
			if _, ok := relationNodes[n]; ok {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = id, count
		}
	}
	return best, nil
}

func overlaps(a, b map[osm.NodeID]struct{}) bool {
	for n := range a {
		if _, ok := b[n]; ok {
			return true
		}
	}
	return false
}
