package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentileRank(t *testing.T) {
	s := setupTestDB(t)
	seedTestData(t, s)
	ctx := context.Background()

	// volumes: 300, 50, 50, 10
	tests := []struct {
		pop   Population
		value float64
		want  float64
	}{
		{PopulationVolume, 300, 0.75},
		{PopulationVolume, 50, 0.25},
		{PopulationVolume, 10, 0},
		{PopulationVolume, 1e9, 1},
		{PopulationAvgTransferSize, 150, 0.75},
		{PopulationTransferCount, 2, 0.75},
		{PopulationTransferCount, 1, 0},
	}
	for _, tt := range tests {
		got, err := s.PercentileRank(ctx, tt.pop, tt.value)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 0.0001, "%s %v", tt.pop, tt.value)
	}
}

func TestPercentileRank_EmptyStore(t *testing.T) {
	s := setupTestDB(t)
	got, err := s.PercentileRank(context.Background(), PopulationVolume, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestPercentileRank_UnknownPopulation(t *testing.T) {
	s := setupTestDB(t)
	_, err := s.PercentileRank(context.Background(), Population("balance"), 1)
	assert.Error(t, err)
}

func TestPopulationValues(t *testing.T) {
	s := setupTestDB(t)
	seedTestData(t, s)

	list, total, err := s.PopulationValues(context.Background(), PopulationVolume)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.ElementsMatch(t, []float64{300, 50, 50, 10}, list)
}
