package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"
)

// Coords maps node IDs to WGS84 points. A nil map means the coordinate table
// is unavailable; every metric below degrades to not-ok in that case.
type Coords map[osm.NodeID]orb.Point

// Distance returns the great-circle distance in meters between two points.
func Distance(a, b orb.Point) float64 {
	return orbgeo.DistanceHaversine(a, b)
}

// WayLengthMeters sums segment lengths between consecutive nodes of a way.
// It fails closed: a way with fewer than two nodes, or any node without a
// coordinate, yields ok=false rather than a partial sum.
func WayLengthMeters(nodes []osm.NodeID, coords Coords) (float64, bool) {
	if len(coords) == 0 || len(nodes) < 2 {
		return 0, false
	}
	total := 0.0
	for i := 0; i < len(nodes)-1; i++ {
		a, okA := coords[nodes[i]]
		b, okB := coords[nodes[i+1]]
		if !okA || !okB {
			return 0, false
		}
		total += orbgeo.DistanceHaversine(a, b)
	}
	return total, true
}

// MinDistanceBetweenNodeSets returns the smallest distance in meters between
// any node of set A and any node of set B. Used as a platform-width estimate
// when the two sets are the opposite edges of one platform. Fails closed on
// missing coordinates, like WayLengthMeters.
func MinDistanceBetweenNodeSets(a, b []osm.NodeID, coords Coords) (float64, bool) {
	if len(coords) == 0 || len(a) == 0 || len(b) == 0 {
		return 0, false
	}
	best := math.Inf(1)
	for _, na := range a {
		pa, ok := coords[na]
		if !ok {
			return 0, false
		}
		for _, nb := range b {
			pb, ok := coords[nb]
			if !ok {
				return 0, false
			}
			if d := orbgeo.DistanceHaversine(pa, pb); d < best {
				best = d
			}
		}
	}
	return best, true
}
