package pathfind

import (
	"github.com/paulmach/osm"

	"github.com/transfr/transfr/internal/domain"
)

// shortestPath runs breadth-first search over the alternating way/node state
// space of the index. All transitions cost one hop, so plain BFS yields a
// minimum-hop path without any priority queue or heuristic. The search halts
// the moment the goal state is first discovered; with uniform costs that
// discovery is already along a shortest path.
//
// Returns the path and the number of states visited, or a nil path when the
// goal is unreachable in the current index.
func shortestPath(ix *Index, start, goal osm.WayID) (domain.Path, int) {
	startState := domain.WayState(start)
	if start == goal {
		return domain.Path{startState}, 1
	}

	goalState := domain.WayState(goal)
	// cameFrom doubles as the visited set; storing one predecessor per state
	// keeps memory at O(1) per visited state instead of a full path per
	// queue entry.
	cameFrom := map[domain.SearchState]domain.SearchState{startState: {}}
	queue := []domain.SearchState{startState}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.Kind == domain.StateWay {
			for n := range ix.NodesOf(cur.Way()) {
				next := domain.NodeState(n)
				if _, seen := cameFrom[next]; seen {
					continue
				}
				cameFrom[next] = cur
				queue = append(queue, next)
			}
			continue
		}

		for w := range ix.WaysOf(cur.Node()) {
			next := domain.WayState(w)
			if _, seen := cameFrom[next]; seen {
				continue
			}
			cameFrom[next] = cur
			if next == goalState {
				return reconstruct(cameFrom, startState, goalState), len(cameFrom)
			}
			queue = append(queue, next)
		}
	}

	return nil, len(cameFrom)
}

func reconstruct(cameFrom map[domain.SearchState]domain.SearchState, start, goal domain.SearchState) domain.Path {
	var reversed domain.Path
	for cur := goal; ; cur = cameFrom[cur] {
		reversed = append(reversed, cur)
		if cur == start {
			break
		}
	}

	path := make(domain.Path, len(reversed))
	for i, s := range reversed {
		path[len(reversed)-1-i] = s
	}
	return path
}
