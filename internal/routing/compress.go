package routing

import "github.com/tcdata/railnet/internal/graph"

// Compress drops the stations of path that carry no routing information.
// The first and last stations and every waypoint are always kept. Hidden
// stations are dropped unless they are waypoints. Other stations are kept
// when they are junctions or line ends, i.e. their degree is not two; with
// PolicyKeepJunctionNeighbours a degree two station next to such a station
// is kept as well.
//
// The decision for a station depends only on the graph and the waypoints,
// so compressing a compressed path changes nothing.
func Compress(g *graph.RouteGraph, waypoints, path []string, hidden map[string]bool, policy CompressionPolicy) []string {
	if len(path) == 0 {
		return nil
	}

	isWaypoint := make(map[string]bool, len(waypoints))
	for _, w := range waypoints {
		isWaypoint[w] = true
	}

	out := make([]string, 0, len(path))
	last := len(path) - 1
	for i, node := range path {
		switch {
		case i == 0 || i == last || isWaypoint[node]:
			out = append(out, node)
		case hidden[node]:
		case interesting(g, node, policy):
			out = append(out, node)
		}
	}
	return out
}

func interesting(g *graph.RouteGraph, node string, policy CompressionPolicy) bool {
	if g.Degree(node) != 2 {
		return true
	}
	if policy != PolicyKeepJunctionNeighbours {
		return false
	}
	for _, n := range g.Neighbours(node) {
		if g.Degree(n) != 2 {
			return true
		}
	}
	return false
}
