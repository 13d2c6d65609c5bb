package routing

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/graph"
	"github.com/tcdata/railnet/internal/models"
)

// ErrNotSimple is returned when an assembled route visits a station twice
// or steps off the graph
var ErrNotSimple = errors.New("route is not a simple path")

// NoPathError reports two consecutive waypoints that could not be joined.
// Partial holds the route assembled up to From.
type NoPathError struct {
	From    string
	To      string
	Partial []string
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("no path from %s to %s", e.From, e.To)
}

// UnknownStationError reports a waypoint that is not a graph node
type UnknownStationError struct {
	Code string
}

func (e *UnknownStationError) Error() string {
	return fmt.Sprintf("unknown station %q", e.Code)
}

// Router finds routes through a route graph
type Router struct {
	logger *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{logger: logger}
}

// Suggest returns the concatenation of the cheapest legs between
// consecutive waypoints. A leg never enters a station used by an earlier
// leg, and entering a waypoint that belongs to another leg costs
// WaypointWeight. Fewer than two waypoints yield an empty route.
func (r *Router) Suggest(ctx context.Context, g *graph.RouteGraph, waypoints []string, cfg Config) ([]string, error) {
	if len(waypoints) < 2 {
		return nil, nil
	}
	for _, w := range waypoints {
		if !g.HasNode(w) {
			return nil, &UnknownStationError{Code: w}
		}
	}

	scheduled := make(map[string]bool, len(waypoints))
	for _, w := range waypoints {
		scheduled[w] = true
	}

	route := []string{waypoints[0]}
	visited := map[string]bool{waypoints[0]: true}
	for i := 0; i+1 < len(waypoints); i++ {
		from, to := waypoints[i], waypoints[i+1]

		weight := func(e *graph.Edge, next string) (float64, bool) {
			if visited[next] {
				return 0, false
			}
			if next != from && next != to && scheduled[next] {
				return WaypointWeight, true
			}
			return cfg.EdgeCost(e), true
		}

		leg, err := shortestPath(ctx, g, from, to, weight)
		if err != nil {
			return nil, err
		}
		if leg == nil {
			r.logger.Debug("no path between waypoints",
				zap.String("from", from),
				zap.String("to", to),
				zap.Int("partial", len(route)),
			)
			return nil, &NoPathError{From: from, To: to, Partial: append([]string(nil), route...)}
		}
		for _, n := range leg[1:] {
			visited[n] = true
		}
		route = append(route, leg[1:]...)
	}

	if !g.IsSimplePath(route) {
		return nil, fmt.Errorf("%w: %s", ErrNotSimple, strings.Join(route, " "))
	}
	return route, nil
}

// PathSuggestion runs Suggest and compresses the result unless the
// configuration asks for the full route
func (r *Router) PathSuggestion(ctx context.Context, g *graph.RouteGraph, waypoints []string, cfg Config, hidden map[string]bool) ([]string, error) {
	route, err := r.Suggest(ctx, g, waypoints, cfg)
	if err != nil || cfg.FullPath {
		return route, err
	}
	return Compress(g, waypoints, route, hidden, cfg.Policy), nil
}

// RouteWeight sums the edge costs along path. A missing edge makes the
// weight infinite.
func RouteWeight(g *graph.RouteGraph, path []string, cfg Config) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		e, ok := g.Edge(path[i-1], path[i])
		if !ok {
			return math.Inf(1)
		}
		total += cfg.EdgeCost(e)
	}
	return total
}

// HiddenStations returns the stations whose group is hidden
func HiddenStations(groups map[string]models.StationGroup, hiddenGroups map[models.StationGroup]bool) map[string]bool {
	out := make(map[string]bool)
	for code, group := range groups {
		if hiddenGroups[group] {
			out[code] = true
		}
	}
	return out
}

type weightFunc func(e *graph.Edge, next string) (float64, bool)

// shortestPath runs Dijkstra from source to target. It returns nil when
// target is unreachable.
func shortestPath(ctx context.Context, g *graph.RouteGraph, source, target string, weight weightFunc) ([]string, error) {
	dist := map[string]float64{source: 0}
	prev := make(map[string]string)
	done := make(map[string]bool)

	openSet := &PriorityQueue{}
	heap.Init(openSet)
	heap.Push(openSet, &searchState{node: source})

	for openSet.Len() > 0 {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("route search cancelled: %w", ctx.Err())
		default:
		}

		current := heap.Pop(openSet).(*searchState)
		if done[current.node] {
			continue
		}
		done[current.node] = true

		if current.node == target {
			path := []string{target}
			for n := target; n != source; {
				n = prev[n]
				path = append(path, n)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path, nil
		}

		for _, next := range g.Neighbours(current.node) {
			if done[next] {
				continue
			}
			e, _ := g.Edge(current.node, next)
			w, ok := weight(e, next)
			if !ok {
				continue
			}
			tentative := current.cost + w
			if existing, seen := dist[next]; seen && tentative >= existing {
				continue
			}
			dist[next] = tentative
			prev[next] = current.node
			heap.Push(openSet, &searchState{node: next, cost: tentative})
		}
	}
	return nil, nil
}

// searchState is a queue entry of the search
type searchState struct {
	node  string
	cost  float64
	index int // for heap
}

// PriorityQueue implements heap.Interface for the open set
type PriorityQueue []*searchState

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	return pq[i].cost < pq[j].cost
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	n := len(*pq)
	state := x.(*searchState)
	state.index = n
	*pq = append(*pq, state)
}

func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	state := old[n-1]
	old[n-1] = nil
	state.index = -1
	*pq = old[0 : n-1]
	return state
}
