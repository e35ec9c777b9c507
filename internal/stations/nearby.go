package stations

import (
	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"

	"github.com/transfr/transfr/internal/domain"
	"github.com/transfr/transfr/internal/geo"
)

// NearbyStation pairs a station with its distance from the query point.
type NearbyStation struct {
	domain.Station
	DistanceMeters float64 `json:"distanceMeters"`
}

// Nearby returns up to limit stations closest to the given coordinate,
// nearest first.
func (d *Directory) Nearby(lat, lon float64, limit int) []NearbyStation {
	if limit <= 0 {
		return nil
	}

	origin := orb.Point{lon, lat}
	target := [2]float64{lon, lat}

	results := make([]NearbyStation, 0, limit)
	d.tree.Nearby(
		rtree.BoxDist[float64, int](target, target, nil),
		func(_, _ [2]float64, idx int, _ float64) bool {
			s := d.stations[idx]
			results = append(results, NearbyStation{
				Station:        s,
				DistanceMeters: geo.Distance(orb.Point{s.Longitude, s.Latitude}, origin),
			})
			return len(results) < limit
		},
	)
	return results
}
