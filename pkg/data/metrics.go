package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	selectNetworkMetricsSQL = `SELECT address, degree_centrality, betweenness_centrality,
			closeness_centrality, clustering_coefficient, pagerank, common_neighbors_avg, updated_at
		FROM account_network_metrics
	`

	selectAccountNetworkMetricsSQL = selectNetworkMetricsSQL + `WHERE address = ?`

	selectAllNetworkMetricsSQL = selectNetworkMetricsSQL + `ORDER BY address`

	deleteNetworkMetricsSQL = `DELETE FROM account_network_metrics`

	insertNetworkMetricsSQL = `INSERT INTO account_network_metrics
			(address, degree_centrality, betweenness_centrality, closeness_centrality,
			 clustering_coefficient, pagerank, common_neighbors_avg, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
)

// NetworkMetrics is the per-account centrality snapshot.
type NetworkMetrics struct {
	Address               string    `json:"address" yaml:"address"`
	DegreeCentrality      float64   `json:"degree_centrality" yaml:"degreeCentrality"`
	BetweennessCentrality float64   `json:"betweenness_centrality" yaml:"betweennessCentrality"`
	ClosenessCentrality   float64   `json:"closeness_centrality" yaml:"closenessCentrality"`
	ClusteringCoefficient float64   `json:"clustering_coefficient" yaml:"clusteringCoefficient"`
	PageRank              float64   `json:"pagerank" yaml:"pagerank"`
	CommonNeighborsAvg    float64   `json:"common_neighbors_avg" yaml:"commonNeighborsAvg"`
	UpdatedAt             time.Time `json:"updated_at" yaml:"updatedAt"`
}

// GetNetworkMetrics returns the snapshot row for address or ErrNotFound.
func (s *Store) GetNetworkMetrics(ctx context.Context, address string) (*NetworkMetrics, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	m, err := scanNetworkMetrics(s.reader().QueryRowContext(ctx, s.rebind(selectAccountNetworkMetricsSQL), address))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select network metrics for %s: %w", address, err)
	}
	return m, nil
}

// ListNetworkMetrics returns the whole snapshot ordered by address.
func (s *Store) ListNetworkMetrics(ctx context.Context) ([]*NetworkMetrics, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.reader().QueryContext(ctx, selectAllNetworkMetricsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query network metrics: %w", err)
	}
	defer rows.Close()

	list := make([]*NetworkMetrics, 0)
	for rows.Next() {
		m, err := scanNetworkMetrics(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan network metrics: %w", err)
		}
		list = append(list, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate network metrics: %w", err)
	}
	return list, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNetworkMetrics(r rowScanner) (*NetworkMetrics, error) {
	var (
		m       NetworkMetrics
		updated string
	)
	if err := r.Scan(&m.Address, &m.DegreeCentrality, &m.BetweennessCentrality, &m.ClosenessCentrality,
		&m.ClusteringCoefficient, &m.PageRank, &m.CommonNeighborsAvg, &updated); err != nil {
		return nil, err
	}
	t, err := ParseTimestamp(updated)
	if err != nil {
		return nil, fmt.Errorf("network metrics %s updated_at: %w", m.Address, err)
	}
	m.UpdatedAt = t
	return &m, nil
}

// ReplaceNetworkMetrics swaps the whole snapshot in one transaction. Readers
// observe either the previous snapshot or the new one, never a mix.
func (s *Store) ReplaceNetworkMetrics(ctx context.Context, list []*NetworkMetrics, updatedAt time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting metrics tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, deleteNetworkMetricsSQL); err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("error clearing network metrics: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(insertNetworkMetricsSQL))
	if err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("error preparing metrics insert: %w", err)
	}
	defer stmt.Close()

	ts := FormatTimestamp(updatedAt)
	for _, m := range list {
		if _, err := stmt.ExecContext(ctx, m.Address, m.DegreeCentrality, m.BetweennessCentrality,
			m.ClosenessCentrality, m.ClusteringCoefficient, m.PageRank, m.CommonNeighborsAvg, ts); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("error inserting metrics for %s: %w", m.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing metrics tx: %w", err)
	}
	return nil
}
