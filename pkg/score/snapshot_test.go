package score

import (
	"context"
	"testing"

	"github.com/mchmarny/relscore/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRanker_MatchesStore(t *testing.T) {
	s := setupTestDB(t)
	seedTestData(t, s)
	ctx := context.Background()

	r, err := NewSnapshotRanker(ctx, s)
	require.NoError(t, err)

	for _, p := range []data.Population{data.PopulationVolume, data.PopulationAvgTransferSize, data.PopulationTransferCount} {
		for _, v := range []float64{0, 1, 10, 50, 51, 150, 300, 1e6} {
			want, err := s.PercentileRank(ctx, p, v)
			require.NoError(t, err)
			got, err := r.PercentileRank(ctx, p, v)
			require.NoError(t, err)
			assert.InDelta(t, want, got, delta, "%s %v", p, v)
		}
	}
}

type staticPopulation map[data.Population][]float64

func (s staticPopulation) PopulationValues(_ context.Context, p data.Population) ([]float64, int, error) {
	v := s[p]
	return v, len(v) + 1, nil
}

func TestSnapshotRanker_NullsInDenominator(t *testing.T) {
	r, err := NewSnapshotRanker(context.Background(), staticPopulation{
		data.PopulationAvgTransferSize: {30, 10, 20},
	})
	require.NoError(t, err)

	got, err := r.PercentileRank(context.Background(), data.PopulationAvgTransferSize, 25)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, delta)

	got, err = r.PercentileRank(context.Background(), data.PopulationVolume, 25)
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = r.PercentileRank(context.Background(), data.Population("balance"), 1)
	assert.Error(t, err)
}
