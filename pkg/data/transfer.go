package data

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	selectPairTransfersSQL = `SELECT from_address, to_address, value, timestamp
		FROM transfers
		WHERE from_address = ? AND to_address = ?
		ORDER BY timestamp, id
	`

	// Two-hop transfers from -> X -> to whose timestamps are less than the
	// window apart, in either order.
	countRapidRelaysSQL = `SELECT COUNT(*)
		FROM transfers t1
		JOIN transfers t2 ON t1.to_address = t2.from_address
		WHERE t1.from_address = ?
		  AND t2.to_address = ?
		  AND %s < ?
	`

	// RapidRelayWindow is the exclusive upper bound on the gap between the two
	// hops of a rapid relay.
	RapidRelayWindow = 5 * time.Minute
)

// Timestamps are stored as second precision RFC 3339 text, so both
// expressions compare whole seconds.
var relayGapExpressions = map[Dialect]string{
	DialectSQLite:   "ABS(CAST(strftime('%s', t2.timestamp) AS INTEGER) - CAST(strftime('%s', t1.timestamp) AS INTEGER))",
	DialectPostgres: "ABS(EXTRACT(EPOCH FROM (t2.timestamp::timestamptz - t1.timestamp::timestamptz)))",
}

// Transfer is a single ledger movement of value between two accounts.
type Transfer struct {
	From      string          `json:"from_address" yaml:"fromAddress"`
	To        string          `json:"to_address" yaml:"toAddress"`
	Value     decimal.Decimal `json:"value" yaml:"value"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
}

// ListPairTransfers returns all transfers from -> to ordered by time.
func (s *Store) ListPairTransfers(ctx context.Context, from, to string) ([]*Transfer, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.reader().QueryContext(ctx, s.rebind(selectPairTransfersSQL), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers %s -> %s: %w", from, to, err)
	}
	defer rows.Close()

	list := make([]*Transfer, 0)
	for rows.Next() {
		var (
			t     Transfer
			value string
			ts    string
		)
		if err := rows.Scan(&t.From, &t.To, &value, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan transfer row: %w", err)
		}
		if t.Value, err = ParseAmount(value); err != nil {
			return nil, fmt.Errorf("transfer %s -> %s: %w", from, to, err)
		}
		if t.Timestamp, err = ParseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("transfer %s -> %s: %w", from, to, err)
		}
		list = append(list, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}

	return list, nil
}

// CountRapidRelays returns the number of two-hop transfer pairs from -> X -> to
// completed within RapidRelayWindow of each other.
func (s *Store) CountRapidRelays(ctx context.Context, from, to string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	expr, ok := relayGapExpressions[s.dialect]
	if !ok {
		return 0, fmt.Errorf("unsupported store dialect: %s", s.dialect)
	}

	var count int64
	q := s.rebind(fmt.Sprintf(countRapidRelaysSQL, expr))
	window := int64(RapidRelayWindow / time.Second)
	if err := s.reader().QueryRowContext(ctx, q, from, to, window).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count relays %s -> %s: %w", from, to, err)
	}

	return count, nil
}
