package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := OpenSQLite(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ts(t *testing.T, v string) time.Time {
	t.Helper()
	tm, err := ParseTimestamp(v)
	require.NoError(t, err)
	return tm
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// testLedger builds A->B (2 transfers), A->C, C->B and B->A so that C is a
// relay between A and B.
func testLedger(t *testing.T) *Ledger {
	t.Helper()
	return &Ledger{
		Accounts: []*Account{
			{Address: "A", Balance: amount(1000), IdentityDisplay: "alice", CreatedAt: ts(t, "2024-01-01T00:00:00Z")},
			{Address: "B", Balance: amount(0), IdentityDisplay: "bob", CreatedAt: ts(t, "2024-05-28T00:00:00Z")},
			{Address: "C", Balance: amount(500), CreatedAt: ts(t, "2024-01-01T00:00:00Z")},
		},
		Transfers: []*Transfer{
			{From: "A", To: "B", Value: amount(100), Timestamp: ts(t, "2024-06-01T10:00:00Z")},
			{From: "A", To: "B", Value: amount(200), Timestamp: ts(t, "2024-06-02T10:00:00Z")},
			{From: "A", To: "C", Value: amount(50), Timestamp: ts(t, "2024-06-01T10:00:00Z")},
			{From: "C", To: "B", Value: amount(50), Timestamp: ts(t, "2024-06-01T10:03:00Z")},
			{From: "B", To: "A", Value: amount(10), Timestamp: ts(t, "2024-06-03T00:00:00Z")},
		},
	}
}

func seedTestData(t *testing.T, s *Store) {
	t.Helper()
	_, err := s.SaveLedger(context.Background(), testLedger(t))
	require.NoError(t, err)
}

func TestOpenSQLite_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := OpenSQLite(context.Background(), dbPath)
	require.NoError(t, err)
	defer s.Close()
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
	assert.Equal(t, DialectSQLite, s.Dialect())
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	assert.Error(t, err)
}

func TestOpen_RunsMigrations(t *testing.T) {
	s := setupTestDB(t)
	var version int
	err := s.DB().QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	require.NoError(t, err)
	assert.Greater(t, version, 0)
}

func TestOpen_Idempotent(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s1, err := OpenSQLite(context.Background(), dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(context.Background(), dbPath)
	require.NoError(t, err)
	defer s2.Close()

	var count int
	require.NoError(t, s2.DB().QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestNilStore(t *testing.T) {
	var s *Store
	ctx := context.Background()

	_, err := s.GetRelationship(ctx, "A", "B")
	assert.ErrorIs(t, err, ErrDBNotInitialized)
	_, err = s.PercentileRank(ctx, PopulationVolume, 1)
	assert.ErrorIs(t, err, ErrDBNotInitialized)
	_, err = s.ListEdges(ctx)
	assert.ErrorIs(t, err, ErrDBNotInitialized)
	assert.NoError(t, s.Close())
}

func TestView(t *testing.T) {
	s := setupTestDB(t)
	seedTestData(t, s)
	ctx := context.Background()

	err := s.View(ctx, func(v *Store) error {
		before, err := v.GetRelationship(ctx, "A", "B")
		require.NoError(t, err)

		_, err = s.SaveLedger(ctx, &Ledger{Transfers: []*Transfer{
			{From: "A", To: "B", Value: amount(700), Timestamp: ts(t, "2024-06-05T10:00:00Z")},
		}})
		require.NoError(t, err)

		after, err := v.GetRelationship(ctx, "A", "B")
		require.NoError(t, err)
		assert.Equal(t, before.TotalVolume.String(), after.TotalVolume.String())
		assert.Equal(t, before.TransferCount, after.TransferCount)

		list, err := v.ListPairTransfers(ctx, "A", "B")
		require.NoError(t, err)
		assert.Len(t, list, 2)

		return v.View(ctx, func(inner *Store) error {
			assert.Same(t, v, inner)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Zero(t, s.DB().Stats().InUse, "read transaction released")

	r, err := s.GetRelationship(ctx, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, "1000", r.TotalVolume.String())
}

func TestView_Error(t *testing.T) {
	s := setupTestDB(t)
	boom := errors.New("boom")

	err := s.View(context.Background(), func(v *Store) error {
		assert.NoError(t, v.Close(), "closing a view leaves the pool open")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, s.DB().Stats().InUse)
	assert.NoError(t, s.DB().Ping())

	var nilStore *Store
	assert.ErrorIs(t, nilStore.View(context.Background(), func(*Store) error { return nil }), ErrDBNotInitialized)
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in   string
		want Dialect
		err  bool
	}{
		{"", DialectSQLite, false},
		{"sqlite", DialectSQLite, false},
		{"SQLite3", DialectSQLite, false},
		{"postgres", DialectPostgres, false},
		{"pg", DialectPostgres, false},
		{"mysql", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDialect(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	assert.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))

	lite := &Store{dialect: DialectSQLite}
	assert.Equal(t, "SELECT ?, ?", lite.rebind("SELECT ?, ?"))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/x.db?"+sqlitePragmas, sqliteDSN("/tmp/x.db"))
	assert.Equal(t, "file:/tmp/x.db?mode=rwc&"+sqlitePragmas, sqliteDSN("file:/tmp/x.db?mode=rwc"))
}
