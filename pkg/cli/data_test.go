package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mchmarny/relscore/pkg/centrality"
	"github.com/mchmarny/relscore/pkg/config"
	"github.com/mchmarny/relscore/pkg/data"
	"github.com/mchmarny/relscore/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*httptest.Server, *data.Store) {
	t.Helper()
	ctx := context.Background()

	s, err := data.OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var l data.Ledger
	require.NoError(t, json.Unmarshal([]byte(testLedgerJSON), &l))
	_, err = s.SaveLedger(ctx, &l)
	require.NoError(t, err)

	srv := httptest.NewServer(makeRouter(s, config.Default().Query))
	t.Cleanup(srv.Close)
	return srv, s
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestScoreAPI(t *testing.T) {
	srv, _ := setupTestServer(t)

	var rep score.Report
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/data/score?from=A&to=B", &rep))
	assert.Equal(t, data.Pair{From: "A", To: "B"}, rep.Relationship)
	assert.Equal(t, score.Interpret(rep.Scores.Total), rep.Interpretation)

	var e map[string]string
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/data/score?from=A", &e))
	assert.NotEmpty(t, e["error"])
}

func TestTopAPI(t *testing.T) {
	srv, s := setupTestServer(t)
	_, err := score.ScoreAll(context.Background(), s, score.BatchOptions{Persist: config.PersistWriteBack})
	require.NoError(t, err)

	var list []*data.ScoredRelationship
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/data/top?limit=3", &list))
	assert.Len(t, list, 3)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/data/top", &list))
	assert.Len(t, list, 4)

	for _, q := range []string{"limit=abc", "limit=0", "limit=5000"} {
		t.Run(q, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/data/top?"+q, nil))
		})
	}
}

func TestSuspiciousAPI(t *testing.T) {
	srv, _ := setupTestServer(t)

	var list []*data.ScoredRelationship
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/data/suspicious?volume=10&risk=5", &list))
	assert.Empty(t, list, "nothing scored yet")

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/data/suspicious?volume=x", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/data/suspicious?risk=101", nil))
}

func TestMetricsAPI(t *testing.T) {
	srv, s := setupTestServer(t)

	var e map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/data/metrics?address=A", &e))

	_, err := centrality.NewEngine(s).Run(context.Background())
	require.NoError(t, err)

	var m data.NetworkMetrics
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/data/metrics?address=A", &m))
	assert.Equal(t, "A", m.Address)

	var list []*data.NetworkMetrics
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/data/metrics", &list))
	assert.Len(t, list, 3)
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := setupTestServer(t)

	var e map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/data/nope", &e))
	assert.Equal(t, "not found", e["error"])
}

func TestQueryParamInt(t *testing.T) {
	tests := []struct {
		query string
		want  int
		err   bool
	}{
		{"", 7, false},
		{"n=5", 5, false},
		{"n=1000", 1000, false},
		{"n=0", 0, true},
		{"n=-1", 0, true},
		{"n=x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			v, err := queryParamInt(r, "n", 7)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}
