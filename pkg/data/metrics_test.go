package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceNetworkMetrics(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceNetworkMetrics(ctx, []*NetworkMetrics{
		{Address: "A", DegreeCentrality: 1, PageRank: 0.5},
		{Address: "B", DegreeCentrality: 0.5, PageRank: 0.5},
	}, ts(t, "2024-06-01T00:00:00Z")))

	require.NoError(t, s.ReplaceNetworkMetrics(ctx, []*NetworkMetrics{
		{Address: "C", DegreeCentrality: 0.25, BetweennessCentrality: 0.1, PageRank: 1},
	}, ts(t, "2024-06-02T00:00:00Z")))

	list, err := s.ListNetworkMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "C", list[0].Address)
	assert.InDelta(t, 0.1, list[0].BetweennessCentrality, 1e-9)
	assert.Equal(t, ts(t, "2024-06-02T00:00:00Z"), list[0].UpdatedAt)

	_, err = s.GetNetworkMetrics(ctx, "A")
	assert.ErrorIs(t, err, ErrNotFound)

	m, err := s.GetNetworkMetrics(ctx, "C")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.PageRank, 1e-9)
}

func TestReplaceNetworkMetrics_RollsBack(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceNetworkMetrics(ctx, []*NetworkMetrics{
		{Address: "A", DegreeCentrality: 1},
	}, ts(t, "2024-06-01T00:00:00Z")))

	// duplicate key fails the insert after the delete has run
	err := s.ReplaceNetworkMetrics(ctx, []*NetworkMetrics{
		{Address: "B"},
		{Address: "B"},
	}, ts(t, "2024-06-02T00:00:00Z"))
	require.Error(t, err)

	list, err := s.ListNetworkMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Address)
}
