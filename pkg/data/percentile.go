package data

import (
	"context"
	"database/sql"
	"fmt"
)

// Population names a reference set of relationship values used for ranking.
type Population string

const (
	PopulationVolume          Population = "total_volume"
	PopulationAvgTransferSize Population = "avg_transfer_size"
	PopulationTransferCount   Population = "transfer_count"

	// Placeholder cast keeps postgres from inferring an integer parameter.
	selectPercentileSQL = `SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN %s < CAST(? AS DOUBLE PRECISION) THEN 1 ELSE 0 END), 0) AS rank
		FROM account_relationships
	`

	selectPopulationSQL = `SELECT %s FROM account_relationships`
)

var populationExpressions = map[Population]string{
	PopulationVolume:          "CAST(total_volume AS DOUBLE PRECISION)",
	PopulationAvgTransferSize: "CAST(total_volume AS DOUBLE PRECISION) / NULLIF(transfer_count, 0)",
	PopulationTransferCount:   "CAST(transfer_count AS DOUBLE PRECISION)",
}

func populationExpression(p Population) (string, error) {
	expr, ok := populationExpressions[p]
	if !ok {
		return "", fmt.Errorf("unknown population: %s", p)
	}
	return expr, nil
}

// PercentileRank returns the fraction of the population strictly below value.
// The whole table is scanned on every call.
func (s *Store) PercentileRank(ctx context.Context, p Population, value float64) (float64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	expr, err := populationExpression(p)
	if err != nil {
		return 0, err
	}

	var total, rank int64
	q := s.rebind(fmt.Sprintf(selectPercentileSQL, expr))
	if err := s.reader().QueryRowContext(ctx, q, value).Scan(&total, &rank); err != nil {
		return 0, fmt.Errorf("failed to rank %s: %w", p, err)
	}

	return float64(rank) / float64(max(total, 1)), nil
}

// PopulationValues returns the non-null values of the population and the
// total row count, which includes rows whose value is null.
func (s *Store) PopulationValues(ctx context.Context, p Population) ([]float64, int, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}

	expr, err := populationExpression(p)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.reader().QueryContext(ctx, fmt.Sprintf(selectPopulationSQL, expr))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query %s population: %w", p, err)
	}
	defer rows.Close()

	total := 0
	list := make([]float64, 0)
	for rows.Next() {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return nil, 0, fmt.Errorf("failed to scan %s value: %w", p, err)
		}
		total++
		if v.Valid {
			list = append(list, v.Float64)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate %s population: %w", p, err)
	}
	return list, total, nil
}
