// Package graph holds a directed, weighted account graph and the centrality
// measures computed over it.
package graph

import "sort"

type edge struct {
	node   int
	weight float64
}

// Graph is a directed graph of addresses. Node and edge insertion order is
// preserved and drives iteration order in every algorithm.
type Graph struct {
	index map[string]int
	names []string
	out   [][]edge
	in    [][]edge
	edges int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

func (g *Graph) node(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	i := len(g.names)
	g.index[name] = i
	g.names = append(g.names, name)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return i
}

// AddNode adds name if it is not already present.
func (g *Graph) AddNode(name string) {
	g.node(name)
}

// AddEdge adds from -> to. Adding an existing edge replaces its weight.
func (g *Graph) AddEdge(from, to string, weight float64) {
	u := g.node(from)
	v := g.node(to)

	for i := range g.out[u] {
		if g.out[u][i].node == v {
			g.out[u][i].weight = weight
			for j := range g.in[v] {
				if g.in[v][j].node == u {
					g.in[v][j].weight = weight
				}
			}
			return
		}
	}

	g.out[u] = append(g.out[u], edge{node: v, weight: weight})
	g.in[v] = append(g.in[v], edge{node: u, weight: weight})
	g.edges++
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.names)
}

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Nodes returns node names in insertion order.
func (g *Graph) Nodes() []string {
	list := make([]string, len(g.names))
	copy(list, g.names)
	return list
}

// Has reports whether name is a node of the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Weight returns the weight of from -> to and whether the edge exists.
func (g *Graph) Weight(from, to string) (float64, bool) {
	u, ok := g.index[from]
	if !ok {
		return 0, false
	}
	v, ok := g.index[to]
	if !ok {
		return 0, false
	}
	for _, e := range g.out[u] {
		if e.node == v {
			return e.weight, true
		}
	}
	return 0, false
}

// Neighbors returns the sorted union of successors and predecessors of name.
func (g *Graph) Neighbors(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	set := g.neighborSet(i)
	list := make([]string, 0, len(set))
	for n := range set {
		list = append(list, g.names[n])
	}
	sort.Strings(list)
	return list
}

func (g *Graph) neighborSet(i int) map[int]struct{} {
	set := make(map[int]struct{}, len(g.out[i])+len(g.in[i]))
	for _, e := range g.out[i] {
		set[e.node] = struct{}{}
	}
	for _, e := range g.in[i] {
		set[e.node] = struct{}{}
	}
	return set
}

func (g *Graph) byName(values []float64) map[string]float64 {
	m := make(map[string]float64, len(values))
	for i, v := range values {
		m[g.names[i]] = v
	}
	return m
}
