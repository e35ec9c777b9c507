package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/domain"
	"github.com/transfr/transfr/internal/stations"
)

// NodeRow is one synthetic map node with its coordinates.
type NodeRow struct {
	ID  osm.NodeID `json:"id"`
	Lat float64    `json:"lat"`
	Lon float64    `json:"lon"`
}

// WayRow is one synthetic way as it would appear after import.
type WayRow struct {
	ID    osm.WayID         `json:"id"`
	Nodes []osm.NodeID      `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

// Network is the platform layout generated for one station: parallel
// platform edges joined by crossing footways, plus the segment rows the
// import pipeline would derive from them.
type Network struct {
	Station    domain.Station        `json:"station"`
	RelationID osm.RelationID        `json:"relationId"`
	Nodes      []NodeRow             `json:"nodes"`
	Ways       []WayRow              `json:"ways"`
	Edges      []domain.PlatformEdge `json:"edges"`
	Segments   []domain.WaySegment   `json:"segments"`
}

// Dataset contains the generated stations and their platform networks.
type Dataset struct {
	Stations []domain.Station `json:"stations"`
	Networks []Network        `json:"networks"`
}

// Geometry spacing in degrees. Roughly 11m between platforms and 33m
// between nodes along an edge, believable for a mid-size station.
const (
	platformGap = 0.0001
	nodeGap     = 0.0003
)

// Generator produces synthetic station networks aligned with the import
// schema, so a development database can be seeded without an OSM extract.
type Generator struct {
	cfg          Config
	rand         *rand.Rand
	fragments    nameFragments
	cityPool     []string
	seenNames    map[string]int
	nextNode     int64
	nextWay      int64
	nextRelation int64
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumStations <= 0 {
		cfg.NumStations = def.NumStations
	}
	if cfg.MinEdgesPerStation <= 0 {
		cfg.MinEdgesPerStation = def.MinEdgesPerStation
	}
	if cfg.MaxEdgesPerStation < cfg.MinEdgesPerStation {
		cfg.MaxEdgesPerStation = cfg.MinEdgesPerStation
	}
	if cfg.NodesPerEdge < 2 {
		cfg.NodesPerEdge = def.NodesPerEdge
	}
	if cfg.SharedCityChance <= 0 {
		cfg.SharedCityChance = def.SharedCityChance
	}
	if cfg.CrossingChance <= 0 {
		cfg.CrossingChance = def.CrossingChance
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:          cfg,
		rand:         rand.New(rand.NewSource(cfg.Seed)),
		fragments:    defaultNameFragments(),
		seenNames:    map[string]int{},
		nextNode:     5_000_000_001,
		nextWay:      900_000_001,
		nextRelation: 15_000_001,
	}
}

// Generate synthesises stations and their platform networks. It respects
// context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	dataset := Dataset{
		Stations: make([]domain.Station, 0, g.cfg.NumStations),
		Networks: make([]Network, 0, g.cfg.NumStations),
	}

	for i := 0; i < g.cfg.NumStations; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		station := g.randomStation(i + 1)
		dataset.Stations = append(dataset.Stations, station)
		dataset.Networks = append(dataset.Networks, g.buildNetwork(station))
	}

	return dataset, nil
}

func (g *Generator) randomStation(id int) domain.Station {
	city := g.maybeSharedCity()
	suffix := g.fragments.suffixes[g.rand.Intn(len(g.fragments.suffixes))]
	name := city + " " + suffix
	if n := g.seenNames[name]; n > 0 {
		g.seenNames[name] = n + 1
		name = fmt.Sprintf("%s %d", name, n+1)
	} else {
		g.seenNames[name] = 1
	}

	lat := 44 + g.rand.Float64()*8
	lon := g.rand.Float64() * 12

	return domain.Station{
		ID:            strconv.Itoa(id),
		Name:          name,
		Slug:          strings.ReplaceAll(stations.Normalize(name), " ", "-"),
		Latitude:      lat,
		Longitude:     lon,
		Country:       g.fragments.countries[g.rand.Intn(len(g.fragments.countries))],
		DBID:          fmt.Sprintf("%06d", g.rand.Intn(1_000_000)),
		UIC:           fmt.Sprintf("87%05d", g.rand.Intn(100_000)),
		IsMainStation: suffix == "Hauptbahnhof" || suffix == "Central",
	}
}

// buildNetwork lays platform edges out as parallel lines and joins every
// consecutive pair with at least one crossing footway, so every edge in the
// station is reachable from every other.
func (g *Generator) buildNetwork(station domain.Station) Network {
	numEdges := g.cfg.MinEdgesPerStation
	if spread := g.cfg.MaxEdgesPerStation - g.cfg.MinEdgesPerStation; spread > 0 {
		numEdges += g.rand.Intn(spread + 1)
	}

	network := Network{
		Station:    station,
		RelationID: osm.RelationID(g.nextRelation),
	}
	g.nextRelation++

	edgeNodes := make([][]osm.NodeID, numEdges)
	for p := 0; p < numEdges; p++ {
		ref := strconv.Itoa(p + 1)
		nodes := make([]osm.NodeID, g.cfg.NodesPerEdge)
		for j := range nodes {
			nodes[j] = osm.NodeID(g.nextNode)
			g.nextNode++
			network.Nodes = append(network.Nodes, NodeRow{
				ID:  nodes[j],
				Lat: station.Latitude + float64(p)*platformGap,
				Lon: station.Longitude + float64(j)*nodeGap,
			})
		}
		edgeNodes[p] = nodes

		way := WayRow{
			ID:    osm.WayID(g.nextWay),
			Nodes: nodes,
			Tags:  map[string]string{"railway": "platform_edge", "ref": ref},
		}
		g.nextWay++
		network.Ways = append(network.Ways, way)
		network.Edges = append(network.Edges, domain.PlatformEdge{
			RelationID: network.RelationID,
			WayID:      way.ID,
			Nodes:      nodes,
			Tags: osm.Tags{
				{Key: "railway", Value: "platform_edge"},
				{Key: "ref", Value: ref},
			},
			EdgeRef: ref,
		})
	}

	for p := 0; p+1 < numEdges; p++ {
		g.addCrossing(&network, edgeNodes[p], edgeNodes[p+1], g.rand.Intn(g.cfg.NodesPerEdge))
		if g.rand.Float64() < g.cfg.CrossingChance {
			g.addCrossing(&network, edgeNodes[p], edgeNodes[p+1], g.rand.Intn(g.cfg.NodesPerEdge))
		}
	}

	for _, way := range network.Ways {
		for j := 0; j+1 < len(way.Nodes); j++ {
			network.Segments = append(network.Segments, domain.WaySegment{
				NodeFrom: way.Nodes[j],
				NodeTo:   way.Nodes[j+1],
				WayID:    way.ID,
			})
		}
	}

	return network
}

func (g *Generator) addCrossing(network *Network, from, to []osm.NodeID, column int) {
	way := WayRow{
		ID:    osm.WayID(g.nextWay),
		Nodes: []osm.NodeID{from[column], to[column]},
		Tags:  map[string]string{"highway": "footway"},
	}
	g.nextWay++
	network.Ways = append(network.Ways, way)
}

func (g *Generator) maybeSharedCity() string {
	if len(g.cityPool) > 0 && g.rand.Float64() < g.cfg.SharedCityChance {
		return g.cityPool[g.rand.Intn(len(g.cityPool))]
	}
	city := g.fragments.cities[g.rand.Intn(len(g.fragments.cities))]
	g.cityPool = append(g.cityPool, city)
	return city
}

type nameFragments struct {
	cities    []string
	suffixes  []string
	countries []string
}

func defaultNameFragments() nameFragments {
	return nameFragments{
		cities: []string{
			"Aubers", "Belfort", "Chambly", "Dornach", "Esslingen", "Fourmies",
			"Grandvaux", "Herblay", "Ivrea", "Jussey", "Kirchheim", "Lindau",
			"Montreux", "Nassau", "Oberwil", "Pontoise", "Quimper", "Rheinfelden",
			"Solothurn", "Tergnier", "Uster", "Vimoutiers", "Wettingen",
		},
		suffixes: []string{
			"Hauptbahnhof", "Central", "Nord", "Sud", "Est", "Ouest",
			"Ville", "Gare", "Stadt", "Port",
		},
		countries: []string{"FR", "DE", "CH", "IT", "AT", "BE", "LU"},
	}
}
