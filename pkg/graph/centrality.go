package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	DefaultDamping   = 0.85
	DefaultMaxIter   = 100
	DefaultTolerance = 1e-6
)

// ErrNotConverged is returned when power iteration exceeds its budget.
var ErrNotConverged = errors.New("pagerank did not converge")

// DegreeCentrality returns (in + out) / (n - 1) for every node. A graph with
// a single node scores it 1.
func (g *Graph) DegreeCentrality() map[string]float64 {
	n := g.Len()
	values := make([]float64, n)
	if n <= 1 {
		for i := range values {
			values[i] = 1
		}
		return g.byName(values)
	}

	s := 1 / float64(n-1)
	for i := range values {
		values[i] = float64(len(g.out[i])+len(g.in[i])) * s
	}
	return g.byName(values)
}

// BetweennessCentrality is Brandes' algorithm over weighted shortest paths,
// where edge weight is the path length. Results are normalized by
// 1 / ((n-1)(n-2)) when n > 2.
func (g *Graph) BetweennessCentrality() map[string]float64 {
	n := g.Len()
	bc := make([]float64, n)

	for s := 0; s < n; s++ {
		stack, preds, sigma := g.shortestPaths(s)

		delta := make([]float64, n)
		for len(stack) > 0 {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			coeff := (1 + delta[w]) / sigma[w]
			for _, v := range preds[w] {
				delta[v] += sigma[v] * coeff
			}
			if w != s {
				bc[w] += delta[w]
			}
		}
	}

	if n > 2 {
		scale := 1 / float64((n-1)*(n-2))
		for i := range bc {
			bc[i] *= scale
		}
	}
	return g.byName(bc)
}

// shortestPaths runs Dijkstra from s and returns the nodes in settle order,
// the shortest-path predecessors and path counts of each node.
func (g *Graph) shortestPaths(s int) ([]int, [][]int, []float64) {
	n := g.Len()
	stack := make([]int, 0, n)
	preds := make([][]int, n)
	sigma := make([]float64, n)
	done := make([]bool, n)
	seen := make([]float64, n)
	visited := make([]bool, n)

	sigma[s] = 1
	seen[s] = 0
	visited[s] = true

	q := &queue{}
	q.push(0, s, s)
	for q.Len() > 0 {
		it := q.pop()
		v := it.node
		if done[v] {
			continue
		}
		sigma[v] += sigma[it.pred]
		stack = append(stack, v)
		done[v] = true

		for _, e := range g.out[v] {
			w := e.node
			d := it.dist + e.weight
			switch {
			case !done[w] && (!visited[w] || d < seen[w]):
				seen[w] = d
				visited[w] = true
				q.push(d, v, w)
				sigma[w] = 0
				preds[w] = []int{v}
			case d == seen[w]:
				sigma[w] += sigma[v]
				preds[w] = append(preds[w], v)
			}
		}
	}

	return stack, preds, sigma
}

// distances returns the shortest weighted distance from s to every node it
// reaches, following out edges or, when reverse is set, in edges.
func (g *Graph) distances(s int, reverse bool) map[int]float64 {
	adj := g.out
	if reverse {
		adj = g.in
	}

	dist := make(map[int]float64)
	seen := map[int]float64{s: 0}

	q := &queue{}
	q.push(0, s, s)
	for q.Len() > 0 {
		it := q.pop()
		v := it.node
		if _, ok := dist[v]; ok {
			continue
		}
		dist[v] = it.dist
		for _, e := range adj[v] {
			d := it.dist + e.weight
			if _, ok := dist[e.node]; ok {
				continue
			}
			if prev, ok := seen[e.node]; !ok || d < prev {
				seen[e.node] = d
				q.push(d, v, e.node)
			}
		}
	}
	return dist
}

// ClosenessCentrality uses incoming distances with the Wasserman and Faust
// correction for graphs that are not strongly connected.
func (g *Graph) ClosenessCentrality() map[string]float64 {
	n := g.Len()
	values := make([]float64, n)

	for i := 0; i < n; i++ {
		sp := g.distances(i, true)
		total := 0.0
		for _, d := range sp {
			total += d
		}
		if total > 0 && n > 1 {
			reached := float64(len(sp) - 1)
			values[i] = reached / total * (reached / float64(n-1))
		}
	}
	return g.byName(values)
}

// PageRankOptions tunes the power iteration.
type PageRankOptions struct {
	Damping   float64
	MaxIter   int
	Tolerance float64
}

// PageRank is weighted PageRank with default options.
func (g *Graph) PageRank() (map[string]float64, error) {
	return g.PageRankWith(PageRankOptions{
		Damping:   DefaultDamping,
		MaxIter:   DefaultMaxIter,
		Tolerance: DefaultTolerance,
	})
}

// PageRankWith runs power iteration over the out-weight stochastic matrix.
// The mass of nodes without outgoing weight is spread uniformly. It stops
// once the L1 change drops below n * tolerance.
func (g *Graph) PageRankWith(opts PageRankOptions) (map[string]float64, error) {
	n := g.Len()
	if n == 0 {
		return map[string]float64{}, nil
	}

	outWeight := make([]float64, n)
	for i := range g.out {
		for _, e := range g.out[i] {
			outWeight[i] += e.weight
		}
	}

	nf := float64(n)
	x := make([]float64, n)
	for i := range x {
		x[i] = 1 / nf
	}

	for iter := 0; iter < opts.MaxIter; iter++ {
		last := x
		x = make([]float64, n)

		dangling := 0.0
		for i := range last {
			if outWeight[i] == 0 {
				dangling += last[i]
				continue
			}
			for _, e := range g.out[i] {
				x[e.node] += last[i] * e.weight / outWeight[i]
			}
		}

		diff := 0.0
		for i := range x {
			x[i] = opts.Damping*(x[i]+dangling/nf) + (1-opts.Damping)/nf
			diff += math.Abs(x[i] - last[i])
		}

		if diff < nf*opts.Tolerance {
			return g.byName(x), nil
		}
	}

	return nil, fmt.Errorf("%w after %d iterations", ErrNotConverged, opts.MaxIter)
}

// undirected returns the projection of g as a weight lookup per node pair.
// When both directions exist, the edge visited last wins.
func (g *Graph) undirected() []map[int]float64 {
	adj := make([]map[int]float64, g.Len())
	for i := range adj {
		adj[i] = make(map[int]float64)
	}
	for u := range g.out {
		for _, e := range g.out[u] {
			adj[u][e.node] = e.weight
			adj[e.node][u] = e.weight
		}
	}
	return adj
}

// ClusteringCoefficient is the weighted clustering of the undirected
// projection: the geometric mean of the normalized triangle edge weights.
func (g *Graph) ClusteringCoefficient() map[string]float64 {
	n := g.Len()
	adj := g.undirected()

	maxWeight := 0.0
	for u := range adj {
		for _, w := range adj[u] {
			maxWeight = math.Max(maxWeight, w)
		}
	}
	if maxWeight <= 0 {
		maxWeight = 1
	}
	wt := func(u, v int) float64 {
		return adj[u][v] / maxWeight
	}

	values := make([]float64, n)
	for i := 0; i < n; i++ {
		nbrs := make([]int, 0, len(adj[i]))
		for j := range adj[i] {
			if j != i {
				nbrs = append(nbrs, j)
			}
		}
		sort.Ints(nbrs)

		triangles := 0.0
		seen := make(map[int]bool, len(nbrs))
		for _, j := range nbrs {
			seen[j] = true
			wij := wt(i, j)
			for _, k := range nbrs {
				if seen[k] {
					continue
				}
				if _, ok := adj[j][k]; !ok {
					continue
				}
				triangles += math.Cbrt(wij * wt(j, k) * wt(k, i))
			}
		}

		d := float64(len(nbrs))
		if triangles > 0 {
			values[i] = 2 * triangles / (d * (d - 1))
		}
	}
	return g.byName(values)
}

// CommonNeighborsAvg returns, per node, the mean number of neighbors it shares
// with each of its neighbors. Direction is ignored.
func (g *Graph) CommonNeighborsAvg() map[string]float64 {
	n := g.Len()
	sets := make([]map[int]struct{}, n)
	for i := range sets {
		sets[i] = g.neighborSet(i)
	}

	values := make([]float64, n)
	for i := 0; i < n; i++ {
		if len(sets[i]) == 0 {
			continue
		}
		total := 0
		for u := range sets[i] {
			for w := range sets[u] {
				if _, ok := sets[i][w]; ok {
					total++
				}
			}
		}
		values[i] = float64(total) / float64(len(sets[i]))
	}
	return g.byName(values)
}
