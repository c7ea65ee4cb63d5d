package score

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mchmarny/relscore/pkg/data"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *data.Store {
	t.Helper()
	s, err := data.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedTestData loads A->B (2), A->C, C->B and B->A.
func seedTestData(t *testing.T, s *data.Store) {
	t.Helper()
	amt := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
	_, err := s.SaveLedger(context.Background(), &data.Ledger{
		Accounts: []*data.Account{
			{Address: "A", Balance: amt(1000), CreatedAt: at(t, "2024-01-01T00:00:00Z")},
			{Address: "B", Balance: amt(0), CreatedAt: at(t, "2024-05-28T00:00:00Z")},
			{Address: "C", Balance: amt(500), CreatedAt: at(t, "2024-01-01T00:00:00Z")},
		},
		Transfers: []*data.Transfer{
			{From: "A", To: "B", Value: amt(100), Timestamp: at(t, "2024-06-01T10:00:00Z")},
			{From: "A", To: "B", Value: amt(200), Timestamp: at(t, "2024-06-02T10:00:00Z")},
			{From: "A", To: "C", Value: amt(50), Timestamp: at(t, "2024-06-01T10:00:00Z")},
			{From: "C", To: "B", Value: amt(50), Timestamp: at(t, "2024-06-01T10:03:00Z")},
			{From: "B", To: "A", Value: amt(10), Timestamp: at(t, "2024-06-03T00:00:00Z")},
		},
	})
	require.NoError(t, err)
}
