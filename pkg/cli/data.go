package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mchmarny/relscore/pkg/data"
	"github.com/mchmarny/relscore/pkg/score"
)

const maxQueryLimit = 1000

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryParamInt returns def when key is absent and an error when it is not an
// integer in [1, maxQueryLimit].
func queryParamInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}

	if i < 1 || i > maxQueryLimit {
		return 0, fmt.Errorf("%s out of range [1, %d]: %d", key, maxQueryLimit, i)
	}

	return i, nil
}

// queryParamScore returns def when key is absent and an error when it is not
// a number in [0, 100].
func queryParamScore(r *http.Request, key string, def float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}

	if f < 0 || f > 100 {
		return 0, fmt.Errorf("%s out of range [0, 100]: %v", key, f)
	}

	return f, nil
}

func scoreAPIHandler(s *score.Scorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		if from == "" || to == "" {
			writeError(w, http.StatusBadRequest, "from and to parameters required")
			return
		}

		rep, err := s.Report(r.Context(), from, to)
		if err != nil {
			slog.Error("failed to score relationship", "from", from, "to", to, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to score relationship")
			return
		}

		writeJSON(w, http.StatusOK, rep)
	}
}

func topAPIHandler(store *data.Store, defLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryParamInt(r, "limit", defLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		list, err := store.TopRelationships(r.Context(), limit)
		if err != nil {
			slog.Error("failed to query top relationships", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to query top relationships")
			return
		}

		writeJSON(w, http.StatusOK, list)
	}
}

func suspiciousAPIHandler(store *data.Store, defVolume, defRisk float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		minVolume, err := queryParamScore(r, "volume", defVolume)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		minRisk, err := queryParamScore(r, "risk", defRisk)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		list, err := store.FindSuspiciousRelationships(r.Context(), minVolume, minRisk)
		if err != nil {
			slog.Error("failed to query suspicious relationships", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to query suspicious relationships")
			return
		}

		writeJSON(w, http.StatusOK, list)
	}
}

func metricsAPIHandler(store *data.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := r.URL.Query().Get("address")
		if address == "" {
			list, err := store.ListNetworkMetrics(r.Context())
			if err != nil {
				slog.Error("failed to list network metrics", "error", err)
				writeError(w, http.StatusInternalServerError, "failed to list network metrics")
				return
			}
			writeJSON(w, http.StatusOK, list)
			return
		}

		m, err := store.GetNetworkMetrics(r.Context(), address)
		if err != nil {
			if errors.Is(err, data.ErrNotFound) {
				writeError(w, http.StatusNotFound, "no metrics for address")
				return
			}
			slog.Error("failed to get network metrics", "address", address, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get network metrics")
			return
		}

		writeJSON(w, http.StatusOK, m)
	}
}
