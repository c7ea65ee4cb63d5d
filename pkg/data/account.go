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
	selectAccountSQL = `SELECT address, balance, identity_display, created_at
		FROM accounts
		WHERE address = ?
	`

	upsertAccountSQL = `INSERT INTO accounts (address, balance, identity_display, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET
			balance = excluded.balance,
			identity_display = COALESCE(excluded.identity_display, accounts.identity_display)
	`
)

// Account is a ledger participant. Balance is in the smallest unit.
type Account struct {
	Address         string          `json:"address" yaml:"address"`
	Balance         decimal.Decimal `json:"balance" yaml:"balance"`
	IdentityDisplay string          `json:"identity_display,omitempty" yaml:"identityDisplay,omitempty"`
	CreatedAt       time.Time       `json:"created_at" yaml:"createdAt"`
}

// GetAccount returns the account for address or ErrNotFound.
func (s *Store) GetAccount(ctx context.Context, address string) (*Account, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var (
		a        Account
		balance  sql.NullString
		identity sql.NullString
		created  string
	)

	err := s.reader().QueryRowContext(ctx, s.rebind(selectAccountSQL), address).
		Scan(&a.Address, &balance, &identity, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select account %s: %w", address, err)
	}

	if a.Balance, err = ParseAmount(balance.String); err != nil {
		return nil, fmt.Errorf("account %s balance: %w", address, err)
	}
	if a.CreatedAt, err = ParseTimestamp(created); err != nil {
		return nil, fmt.Errorf("account %s created_at: %w", address, err)
	}
	a.IdentityDisplay = identity.String

	return &a, nil
}

func saveAccounts(ctx context.Context, tx *sql.Tx, s *Store, list []*Account) error {
	stmt, err := tx.PrepareContext(ctx, s.rebind(upsertAccountSQL))
	if err != nil {
		return fmt.Errorf("failed to prepare account upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range list {
		if a == nil || a.Address == "" {
			continue
		}
		created := a.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		var identity *string
		if a.IdentityDisplay != "" {
			identity = &a.IdentityDisplay
		}
		if _, err := stmt.ExecContext(ctx, a.Address, a.Balance.String(), identity, FormatTimestamp(created)); err != nil {
			return fmt.Errorf("failed to upsert account %s: %w", a.Address, err)
		}
	}

	return nil
}
