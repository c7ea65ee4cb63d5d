// Package centrality recomputes the per-account network metrics snapshot from
// the full relationship graph.
package centrality

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mchmarny/relscore/pkg/data"
	"github.com/mchmarny/relscore/pkg/graph"
)

// Store is the part of the relationship store the engine reads and writes.
type Store interface {
	ListEdges(ctx context.Context) ([]*data.Edge, error)
	ReplaceNetworkMetrics(ctx context.Context, list []*data.NetworkMetrics, updatedAt time.Time) error
}

// Engine runs full recomputes of the metrics snapshot.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine returns an Engine bound to store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Run rebuilds the graph, computes every metric and swaps the snapshot. On
// any failure the previous snapshot stays in place.
func (e *Engine) Run(ctx context.Context) ([]*data.NetworkMetrics, error) {
	start := e.now()

	edges, err := e.store.ListEdges(ctx)
	if err != nil {
		return nil, err
	}

	list, err := Compute(edges)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.store.ReplaceNetworkMetrics(ctx, list, e.now()); err != nil {
		return nil, err
	}

	slog.Info("network metrics updated",
		"accounts", len(list),
		"edges", len(edges),
		"duration", time.Since(start))

	return list, nil
}

// Build returns the directed graph of edges weighted by volume.
func Build(edges []*data.Edge) *graph.Graph {
	g := graph.New()
	for _, e := range edges {
		g.AddEdge(e.From, e.To, e.Volume)
	}
	return g
}

// Compute returns the metrics of every account in edges, in graph order.
func Compute(edges []*data.Edge) ([]*data.NetworkMetrics, error) {
	g := Build(edges)

	pr, err := g.PageRank()
	if err != nil {
		return nil, fmt.Errorf("failed to compute pagerank over %d accounts: %w", g.Len(), err)
	}

	degree := g.DegreeCentrality()
	betweenness := g.BetweennessCentrality()
	closeness := g.ClosenessCentrality()
	clustering := g.ClusteringCoefficient()
	common := g.CommonNeighborsAvg()

	list := make([]*data.NetworkMetrics, 0, g.Len())
	for _, n := range g.Nodes() {
		list = append(list, &data.NetworkMetrics{
			Address:               n,
			DegreeCentrality:      degree[n],
			BetweennessCentrality: betweenness[n],
			ClosenessCentrality:   closeness[n],
			ClusteringCoefficient: clustering[n],
			PageRank:              pr[n],
			CommonNeighborsAvg:    common[n],
		})
	}
	return list, nil
}
