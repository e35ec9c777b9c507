package generator

// Config drives the synthetic network generator.
type Config struct {
	NumStations        int
	MinEdgesPerStation int
	MaxEdgesPerStation int
	NodesPerEdge       int
	SharedCityChance   float64
	CrossingChance     float64
	Seed               int64
}

// DefaultConfig returns baseline settings that produce a small but fully
// searchable network.
func DefaultConfig() Config {
	return Config{
		NumStations:        25,
		MinEdgesPerStation: 2,
		MaxEdgesPerStation: 8,
		NodesPerEdge:       6,
		SharedCityChance:   0.3,
		CrossingChance:     0.5,
		Seed:               42,
	}
}
