package graph

import (
	"sort"

	"github.com/tcdata/railnet/internal/models"
)

// Edge is an undirected rail segment between two stations
type Edge struct {
	From        string
	To          string
	Name        string
	Length      float64
	MaxSpeed    int
	Electrified bool
	Category    models.TrackCategory
	Equipments  []string
}

// Other returns the endpoint of e that is not node
func (e *Edge) Other(node string) string {
	if e.From == node {
		return e.To
	}
	return e.From
}

// RouteGraph holds the station network in memory. It is built once per
// query and only read afterwards.
type RouteGraph struct {
	nodes []string
	adj   map[string]map[string]*Edge
	edges int
}

// New creates a graph containing the given nodes and no edges
func New(nodes ...string) *RouteGraph {
	g := &RouteGraph{adj: make(map[string]map[string]*Edge, len(nodes))}
	for _, n := range nodes {
		g.AddNode(n)
	}
	return g
}

// AddNode adds a node if it does not exist yet
func (g *RouteGraph) AddNode(node string) {
	if _, ok := g.adj[node]; ok {
		return
	}
	g.adj[node] = make(map[string]*Edge)
	g.nodes = append(g.nodes, node)
}

// HasNode reports whether node is part of the graph
func (g *RouteGraph) HasNode(node string) bool {
	_, ok := g.adj[node]
	return ok
}

// AddEdge connects e.From and e.To. Both endpoints must be nodes. An
// existing edge between the same pair is replaced.
func (g *RouteGraph) AddEdge(e Edge) bool {
	from, ok := g.adj[e.From]
	if !ok {
		return false
	}
	to, ok := g.adj[e.To]
	if !ok || e.From == e.To {
		return false
	}
	if _, exists := from[e.To]; !exists {
		g.edges++
	}
	edge := e
	from[e.To] = &edge
	to[e.From] = &edge
	return true
}

// Edge returns the edge between a and b
func (g *RouteGraph) Edge(a, b string) (*Edge, bool) {
	e, ok := g.adj[a][b]
	return e, ok
}

// Neighbours returns the adjacent nodes in sorted order
func (g *RouteGraph) Neighbours(node string) []string {
	out := make([]string, 0, len(g.adj[node]))
	for n := range g.adj[node] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Degree returns the number of incident edges
func (g *RouteGraph) Degree(node string) int {
	return len(g.adj[node])
}

// Nodes returns the nodes in insertion order
func (g *RouteGraph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// NodeCount returns the number of nodes
func (g *RouteGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges
func (g *RouteGraph) EdgeCount() int {
	return g.edges
}

// Edges returns every edge once, ordered by node insertion order
func (g *RouteGraph) Edges() []*Edge {
	out := make([]*Edge, 0, g.edges)
	seen := make(map[*Edge]bool, g.edges)
	for _, n := range g.nodes {
		for _, other := range g.Neighbours(n) {
			e := g.adj[n][other]
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// IsSimplePath reports whether path is non-empty, visits no node twice and
// only steps along edges
func (g *RouteGraph) IsSimplePath(path []string) bool {
	if len(path) == 0 {
		return false
	}
	seen := make(map[string]bool, len(path))
	for i, n := range path {
		if !g.HasNode(n) || seen[n] {
			return false
		}
		seen[n] = true
		if i > 0 {
			if _, ok := g.Edge(path[i-1], n); !ok {
				return false
			}
		}
	}
	return true
}

// Components returns the connected components, each in discovery order
func (g *RouteGraph) Components() [][]string {
	visited := make(map[string]bool, len(g.nodes))
	var components [][]string
	for _, start := range g.nodes {
		if visited[start] {
			continue
		}
		visited[start] = true
		component := []string{start}
		for i := 0; i < len(component); i++ {
			for _, n := range g.Neighbours(component[i]) {
				if !visited[n] {
					visited[n] = true
					component = append(component, n)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

// Connected reports whether every node can reach every other node
func (g *RouteGraph) Connected() bool {
	return len(g.Components()) <= 1
}

// Isolated returns the nodes without any edge
func (g *RouteGraph) Isolated() []string {
	var out []string
	for _, n := range g.nodes {
		if len(g.adj[n]) == 0 {
			out = append(out, n)
		}
	}
	return out
}
