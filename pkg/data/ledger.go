package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	insertTransferSQL = `INSERT INTO transfers (from_address, to_address, value, timestamp)
		VALUES (?, ?, ?, ?)
	`

	selectPairValuesSQL = `SELECT value, timestamp
		FROM transfers
		WHERE from_address = ? AND to_address = ?
	`

	upsertRelationshipSQL = `INSERT INTO account_relationships
			(from_address, to_address, total_volume, transfer_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (from_address, to_address) DO UPDATE SET
			total_volume = excluded.total_volume,
			transfer_count = excluded.transfer_count,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`
)

// Ledger is a batch of accounts and transfers to load into the store.
type Ledger struct {
	Accounts  []*Account  `json:"accounts" yaml:"accounts"`
	Transfers []*Transfer `json:"transfers" yaml:"transfers"`
}

// LedgerResult summarizes a SaveLedger call.
type LedgerResult struct {
	Accounts      int `json:"accounts" yaml:"accounts"`
	Transfers     int `json:"transfers" yaml:"transfers"`
	Relationships int `json:"relationships" yaml:"relationships"`
}

// SaveLedger upserts accounts, appends transfers and recomputes the
// relationship aggregate of every pair touched by the batch. Existing scores
// are kept until the next scoring run.
func (s *Store) SaveLedger(ctx context.Context, l *Ledger) (*LedgerResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if l == nil {
		return nil, errors.New("ledger not specified")
	}

	for i, t := range l.Transfers {
		if t == nil || t.From == "" || t.To == "" {
			return nil, fmt.Errorf("transfer %d: from and to addresses required", i)
		}
		if t.Timestamp.IsZero() {
			return nil, fmt.Errorf("transfer %d: %w: missing timestamp", i, ErrInvalidTimestamp)
		}
		if t.Value.IsNegative() {
			return nil, fmt.Errorf("transfer %d: %w: negative value", i, ErrInvalidAmount)
		}
		if !t.Value.IsInteger() {
			return nil, fmt.Errorf("transfer %d: %w: fractional value %s", i, ErrInvalidAmount, t.Value)
		}
	}
	for _, a := range l.Accounts {
		if a != nil && !a.Balance.IsInteger() {
			return nil, fmt.Errorf("account %s: %w: fractional balance %s", a.Address, ErrInvalidAmount, a.Balance)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting ledger tx: %w", err)
	}

	if err := saveAccounts(ctx, tx, s, l.Accounts); err != nil {
		rollbackTransaction(tx)
		return nil, err
	}

	pairs, err := saveTransfers(ctx, tx, s, l.Transfers)
	if err != nil {
		rollbackTransaction(tx)
		return nil, err
	}

	now := time.Now()
	for _, p := range pairs {
		if err := aggregateRelationship(ctx, tx, s, p, now); err != nil {
			rollbackTransaction(tx)
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing ledger tx: %w", err)
	}

	return &LedgerResult{
		Accounts:      len(l.Accounts),
		Transfers:     len(l.Transfers),
		Relationships: len(pairs),
	}, nil
}

// saveTransfers inserts the transfers and returns the distinct pairs in
// first-seen order.
func saveTransfers(ctx context.Context, tx *sql.Tx, s *Store, list []*Transfer) ([]Pair, error) {
	stmt, err := tx.PrepareContext(ctx, s.rebind(insertTransferSQL))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare transfer insert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[Pair]bool)
	pairs := make([]Pair, 0)
	for _, t := range list {
		if _, err := stmt.ExecContext(ctx, t.From, t.To, t.Value.String(), FormatTimestamp(t.Timestamp)); err != nil {
			return nil, fmt.Errorf("failed to insert transfer %s -> %s: %w", t.From, t.To, err)
		}
		p := Pair{From: t.From, To: t.To}
		if !seen[p] {
			seen[p] = true
			pairs = append(pairs, p)
		}
	}

	return pairs, nil
}

func aggregateRelationship(ctx context.Context, tx *sql.Tx, s *Store, p Pair, now time.Time) error {
	rows, err := tx.QueryContext(ctx, s.rebind(selectPairValuesSQL), p.From, p.To)
	if err != nil {
		return fmt.Errorf("failed to query transfers %s -> %s: %w", p.From, p.To, err)
	}
	defer rows.Close()

	var (
		total   = decimal.Zero
		count   int64
		created time.Time
	)
	for rows.Next() {
		var value, ts string
		if err := rows.Scan(&value, &ts); err != nil {
			return fmt.Errorf("failed to scan transfer row: %w", err)
		}
		v, err := ParseAmount(value)
		if err != nil {
			return fmt.Errorf("transfer %s -> %s: %w", p.From, p.To, err)
		}
		t, err := ParseTimestamp(ts)
		if err != nil {
			return fmt.Errorf("transfer %s -> %s: %w", p.From, p.To, err)
		}
		total = total.Add(v)
		count++
		if created.IsZero() || t.Before(created) {
			created = t
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate transfers: %w", err)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, s.rebind(upsertRelationshipSQL), p.From, p.To, total.String(), count,
		FormatTimestamp(created), FormatTimestamp(now)); err != nil {
		return fmt.Errorf("failed to upsert relationship %s -> %s: %w", p.From, p.To, err)
	}
	return nil
}
