package pathfind

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/transfr/transfr/internal/domain"
	"github.com/transfr/transfr/internal/store"
)

// MatrixEntry is the outcome for one ordered pair of platform edges.
type MatrixEntry struct {
	FromRef string        `json:"fromRef"`
	ToRef   string        `json:"toRef"`
	Route   *domain.Route `json:"route,omitempty"` // nil when no path exists
}

// PathMatrix computes walkable routes between every pair of a station's
// indexed platform edges. Searches are independent of each other, so they
// fan out across workers; each one leases its own store handle and owns its
// own index.
func (f *Finder) PathMatrix(ctx context.Context, station string, workers int) ([]MatrixEntry, error) {
	if workers <= 0 {
		workers = 4
	}

	edges, err := f.store.PlatformEdges(ctx, station)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, fmt.Errorf("no indexed platform edges at %q: %w", station, store.ErrNotFound)
	}

	type pair struct{ a, b int }
	var pairs []pair
	for i := range edges {
		for j := i + 1; j < len(edges); j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	entries := make([]MatrixEntry, len(pairs))
	indexCh := make(chan int)
	errCh := make(chan error, len(pairs))
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			p := pairs[idx]
			entry := MatrixEntry{FromRef: edges[p.a].EdgeRef, ToRef: edges[p.b].EdgeRef}

			route, err := f.FindPath(ctx, edges[p.a], edges[p.b])
			switch {
			case err == nil:
				entry.Route = route
			case errors.Is(err, store.ErrNotFound):
				// Unreachable pair, reported as an entry without a route.
			default:
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
			entries[idx] = entry
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := range pairs {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
