package score

import (
	"context"
	"fmt"
	"sort"

	"github.com/mchmarny/relscore/pkg/data"
)

// PopulationSource lists the values of a population along with its total
// size, nulls included.
type PopulationSource interface {
	PopulationValues(ctx context.Context, p data.Population) ([]float64, int, error)
}

type population struct {
	sorted []float64
	total  int
}

// SnapshotRanker ranks against populations loaded once into sorted slices, so
// a batch run pays a binary search per lookup instead of a table scan.
type SnapshotRanker struct {
	pops map[data.Population]*population
}

// NewSnapshotRanker loads every population from src.
func NewSnapshotRanker(ctx context.Context, src PopulationSource) (*SnapshotRanker, error) {
	r := &SnapshotRanker{pops: make(map[data.Population]*population)}
	for _, p := range []data.Population{
		data.PopulationVolume,
		data.PopulationAvgTransferSize,
		data.PopulationTransferCount,
	} {
		values, total, err := src.PopulationValues(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s snapshot: %w", p, err)
		}
		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)
		r.pops[p] = &population{sorted: sorted, total: total}
	}
	return r, nil
}

// PercentileRank returns the share of the snapshot strictly below value.
func (r *SnapshotRanker) PercentileRank(_ context.Context, p data.Population, value float64) (float64, error) {
	pop, ok := r.pops[p]
	if !ok {
		return 0, fmt.Errorf("population not in snapshot: %s", p)
	}
	below := sort.SearchFloat64s(pop.sorted, value)
	return float64(below) / float64(max(pop.total, 1)), nil
}
