package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRelationship(t *testing.T) {
	s := setupTestDB(t)
	seedTestData(t, s)

	r, err := s.GetRelationship(context.Background(), "A", "C")
	require.NoError(t, err)
	assert.Equal(t, "50", r.TotalVolume.String())
	assert.Equal(t, int64(1), r.TransferCount)
	assert.Equal(t, "1000", r.SenderBalance.String())
	require.NotNil(t, r.ReceiverCreatedAt)
	assert.Equal(t, ts(t, "2024-01-01T00:00:00Z"), *r.ReceiverCreatedAt)
}

func TestGetRelationship_MissingAccounts(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	_, err := s.SaveLedger(ctx, &Ledger{Transfers: []*Transfer{
		{From: "X", To: "Y", Value: amount(5), Timestamp: ts(t, "2024-06-01")},
	}})
	require.NoError(t, err)

	r, err := s.GetRelationship(ctx, "X", "Y")
	require.NoError(t, err)
	assert.True(t, r.SenderBalance.IsZero())
	assert.Nil(t, r.ReceiverCreatedAt)
}

func TestGetRelationship_NotFound(t *testing.T) {
	s := setupTestDB(t)
	seedTestData(t, s)
	_, err := s.GetRelationship(context.Background(), "C", "A")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountCommonConnections(t *testing.T) {
	s := setupTestDB(t)
	seedTestData(t, s)
	ctx := context.Background()

	n, err := s.CountCommonConnections(ctx, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// B->A with A->C->B counts C through the reverse direction.
	n, err = s.CountCommonConnections(ctx, "B", "A")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// B->A and C->B make B common to A->C.
	n, err = s.CountCommonConnections(ctx, "A", "C")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.CountCommonConnections(ctx, "X", "Y")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestListRelationshipPairs(t *testing.T) {
	s := setupTestDB(t)
	seedTestData(t, s)

	pairs, err := s.ListRelationshipPairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Pair{{"A", "B"}, {"A", "C"}, {"B", "A"}, {"C", "B"}}, pairs)
}

func TestListEdges(t *testing.T) {
	s := setupTestDB(t)
	seedTestData(t, s)

	edges, err := s.ListEdges(context.Background())
	require.NoError(t, err)
	require.Len(t, edges, 4)
	assert.Equal(t, "A", edges[0].From)
	assert.Equal(t, "B", edges[0].To)
	assert.InDelta(t, 300.0, edges[0].Volume, 0.0001)
	assert.Equal(t, int64(2), edges[0].Transfers)
}

func TestTopRelationships(t *testing.T) {
	s := setupTestDB(t)
	seedTestData(t, s)
	ctx := context.Background()

	require.NoError(t, s.SaveRelationshipScores(ctx, []*RelationshipScores{
		{From: "A", To: "C", Total: 50},
		{From: "C", To: "B", Total: 60},
	}, ts(t, "2024-06-05T00:00:00Z")))

	list, err := s.TopRelationships(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "C", list[0].From)
	assert.Equal(t, "A", list[1].From)
	assert.Equal(t, "C", list[1].To)
	assert.Equal(t, "A", list[2].From)
	assert.Equal(t, "B", list[2].To)
	assert.Equal(t, "alice", list[2].FromIdentity)
	assert.Equal(t, "2024-06-05T00:00:00Z", list[0].ScoredAt)

	_, err = s.TopRelationships(ctx, 0)
	assert.Error(t, err)
}

func TestFindSuspiciousRelationships(t *testing.T) {
	s := setupTestDB(t)
	seedTestData(t, s)
	ctx := context.Background()

	require.NoError(t, s.SaveRelationshipScores(ctx, []*RelationshipScores{
		{From: "A", To: "B", Volume: 80, Risk: 40},
		{From: "A", To: "C", Volume: 90, Risk: 60},
		{From: "C", To: "B", Volume: 70, Risk: 90},
		{From: "B", To: "A", Volume: 20, Risk: 90},
	}, ts(t, "2024-06-05T00:00:00Z")))

	list, err := s.FindSuspiciousRelationships(ctx, 70, 30)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "C", list[0].To)
	assert.Equal(t, "B", list[1].To)
}

func TestSaveRelationshipScores_Empty(t *testing.T) {
	s := setupTestDB(t)
	assert.NoError(t, s.SaveRelationshipScores(context.Background(), nil, ts(t, "2024-06-05")))
}
