// Command datagen produces a synthetic station dataset: a stations.csv for
// the directory and a seed.sql that stands in for an OSM import, so the
// service can run against a local database without a real extract.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/transfr/transfr/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		numStations    = flag.Int("stations", cfg.NumStations, "number of stations to generate")
		minEdges       = flag.Int("min-edges", cfg.MinEdgesPerStation, "minimum platform edges per station")
		maxEdges       = flag.Int("max-edges", cfg.MaxEdgesPerStation, "maximum platform edges per station")
		nodesPerEdge   = flag.Int("nodes-per-edge", cfg.NodesPerEdge, "nodes along each platform edge")
		crossingChance = flag.Float64("crossing-chance", cfg.CrossingChance, "probability of an extra crossing between adjacent platforms")
		sharedChance   = flag.Float64("shared-city-chance", cfg.SharedCityChance, "probability of reusing an existing city name")
		seed           = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir      = flag.String("output-dir", "data", "directory to write stations.csv and seed.sql")
		writeStdout    = flag.Bool("stdout", false, "write the dataset as JSON to stdout instead of files")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumStations:        *numStations,
		MinEdgesPerStation: *minEdges,
		MaxEdgesPerStation: *maxEdges,
		NodesPerEdge:       *nodesPerEdge,
		CrossingChance:     clampProbability(*crossingChance),
		SharedCityChance:   clampProbability(*sharedChance),
		Seed:               *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d stations into %s\n", len(dataset.Stations), *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
