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
	selectRelationshipSQL = `SELECT
			ar.from_address,
			ar.to_address,
			ar.total_volume,
			ar.transfer_count,
			ar.created_at,
			a1.balance AS sender_balance,
			a2.created_at AS receiver_created_at
		FROM account_relationships ar
		LEFT JOIN accounts a1 ON ar.from_address = a1.address
		LEFT JOIN accounts a2 ON ar.to_address = a2.address
		WHERE ar.from_address = ? AND ar.to_address = ?
	`

	// Distinct intermediaries X with A->X->B or B->X->A.
	selectCommonConnectionsSQL = `SELECT COUNT(DISTINCT c.via) FROM (
			SELECT r1.to_address AS via
			FROM account_relationships r1
			JOIN account_relationships r2 ON r1.to_address = r2.from_address
			WHERE r1.from_address = ? AND r2.to_address = ?
			UNION
			SELECT r1.from_address AS via
			FROM account_relationships r1
			JOIN account_relationships r2 ON r1.from_address = r2.to_address
			WHERE r1.to_address = ? AND r2.from_address = ?
		) c
	`

	selectRelationshipPairsSQL = `SELECT from_address, to_address
		FROM account_relationships
		ORDER BY from_address, to_address
	`

	selectEdgesSQL = `SELECT from_address, to_address, total_volume, transfer_count
		FROM account_relationships
		ORDER BY from_address, to_address
	`

	scoredRelationshipColumns = `ar.from_address,
			ar.to_address,
			a1.identity_display AS from_identity,
			a2.identity_display AS to_identity,
			ar.total_volume,
			ar.transfer_count,
			ar.created_at,
			ar.volume_score,
			ar.frequency_score,
			ar.temporal_score,
			ar.network_score,
			ar.risk_score,
			ar.total_score,
			ar.scored_at`

	selectTopRelationshipsSQL = `SELECT ` + scoredRelationshipColumns + `
		FROM account_relationships ar
		LEFT JOIN accounts a1 ON ar.from_address = a1.address
		LEFT JOIN accounts a2 ON ar.to_address = a2.address
		ORDER BY ar.total_score DESC, ar.from_address, ar.to_address
		LIMIT ?
	`

	selectSuspiciousRelationshipsSQL = `SELECT ` + scoredRelationshipColumns + `
		FROM account_relationships ar
		LEFT JOIN accounts a1 ON ar.from_address = a1.address
		LEFT JOIN accounts a2 ON ar.to_address = a2.address
		WHERE ar.volume_score > ? AND ar.risk_score > ?
		ORDER BY ar.risk_score DESC, ar.from_address, ar.to_address
	`

	updateRelationshipScoresSQL = `UPDATE account_relationships
		SET volume_score = ?, frequency_score = ?, temporal_score = ?,
		    network_score = ?, risk_score = ?, total_score = ?, scored_at = ?
		WHERE from_address = ? AND to_address = ?
	`
)

// Relationship is the aggregate of all transfers from one account to another,
// joined with the account attributes the scorers need.
type Relationship struct {
	From              string
	To                string
	TotalVolume       decimal.Decimal
	TransferCount     int64
	CreatedAt         *time.Time
	SenderBalance     decimal.Decimal
	ReceiverCreatedAt *time.Time
}

// Pair identifies an ordered account pair.
type Pair struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Edge is a relationship projected for graph construction.
type Edge struct {
	From      string
	To        string
	Volume    float64
	Transfers int64
}

// ScoredRelationship is a relationship row with its persisted scores.
type ScoredRelationship struct {
	From           string  `json:"from_address" yaml:"fromAddress"`
	To             string  `json:"to_address" yaml:"toAddress"`
	FromIdentity   string  `json:"from_identity,omitempty" yaml:"fromIdentity,omitempty"`
	ToIdentity     string  `json:"to_identity,omitempty" yaml:"toIdentity,omitempty"`
	TotalVolume    string  `json:"total_volume" yaml:"totalVolume"`
	TransferCount  int64   `json:"transfer_count" yaml:"transferCount"`
	CreatedAt      string  `json:"created_at,omitempty" yaml:"createdAt,omitempty"`
	VolumeScore    float64 `json:"volume_score" yaml:"volumeScore"`
	FrequencyScore float64 `json:"frequency_score" yaml:"frequencyScore"`
	TemporalScore  float64 `json:"temporal_score" yaml:"temporalScore"`
	NetworkScore   float64 `json:"network_score" yaml:"networkScore"`
	RiskScore      float64 `json:"risk_score" yaml:"riskScore"`
	TotalScore     float64 `json:"total_score" yaml:"totalScore"`
	ScoredAt       string  `json:"scored_at,omitempty" yaml:"scoredAt,omitempty"`
}

// RelationshipScores is the write-back record of one computed score.
type RelationshipScores struct {
	From      string
	To        string
	Volume    float64
	Frequency float64
	Temporal  float64
	Network   float64
	Risk      float64
	Total     float64
}

// GetRelationship returns the relationship from -> to or ErrNotFound.
func (s *Store) GetRelationship(ctx context.Context, from, to string) (*Relationship, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var (
		r                        Relationship
		volume, balance          sql.NullString
		created, receiverCreated sql.NullString
		count                    sql.NullInt64
	)

	err := s.reader().QueryRowContext(ctx, s.rebind(selectRelationshipSQL), from, to).
		Scan(&r.From, &r.To, &volume, &count, &created, &balance, &receiverCreated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select relationship %s -> %s: %w", from, to, err)
	}

	r.TransferCount = count.Int64
	if r.TotalVolume, err = ParseAmount(volume.String); err != nil {
		return nil, fmt.Errorf("relationship %s -> %s total_volume: %w", from, to, err)
	}
	if r.SenderBalance, err = ParseAmount(balance.String); err != nil {
		return nil, fmt.Errorf("account %s balance: %w", from, err)
	}
	if r.CreatedAt, err = optionalTimestamp(created); err != nil {
		return nil, fmt.Errorf("relationship %s -> %s created_at: %w", from, to, err)
	}
	if r.ReceiverCreatedAt, err = optionalTimestamp(receiverCreated); err != nil {
		return nil, fmt.Errorf("account %s created_at: %w", to, err)
	}

	return &r, nil
}

func optionalTimestamp(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CountCommonConnections counts the distinct one-hop intermediaries shared by
// from's outgoing side and to's incoming side (and the reverse direction).
func (s *Store) CountCommonConnections(ctx context.Context, from, to string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	var count int64
	if err := s.reader().QueryRowContext(ctx, s.rebind(selectCommonConnectionsSQL), from, to, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count common connections %s -> %s: %w", from, to, err)
	}
	return count, nil
}

// ListRelationshipPairs returns every relationship key in a stable order.
func (s *Store) ListRelationshipPairs(ctx context.Context) ([]Pair, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.reader().QueryContext(ctx, selectRelationshipPairsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationship pairs: %w", err)
	}
	defer rows.Close()

	list := make([]Pair, 0)
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.From, &p.To); err != nil {
			return nil, fmt.Errorf("failed to scan relationship pair: %w", err)
		}
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate relationship pairs: %w", err)
	}
	return list, nil
}

// ListEdges returns all relationships as weighted edges ordered by key.
func (s *Store) ListEdges(ctx context.Context) ([]*Edge, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.reader().QueryContext(ctx, selectEdgesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationship edges: %w", err)
	}
	defer rows.Close()

	list := make([]*Edge, 0)
	for rows.Next() {
		var (
			e      Edge
			volume sql.NullString
			count  sql.NullInt64
		)
		if err := rows.Scan(&e.From, &e.To, &volume, &count); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		v, err := ParseAmount(volume.String)
		if err != nil {
			return nil, fmt.Errorf("relationship %s -> %s total_volume: %w", e.From, e.To, err)
		}
		e.Volume = v.InexactFloat64()
		e.Transfers = count.Int64
		list = append(list, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edges: %w", err)
	}
	return list, nil
}

// TopRelationships returns up to limit relationships by persisted total score.
func (s *Store) TopRelationships(ctx context.Context, limit int) ([]*ScoredRelationship, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit < 1 {
		return nil, fmt.Errorf("invalid limit: %d", limit)
	}

	rows, err := s.reader().QueryContext(ctx, s.rebind(selectTopRelationshipsSQL), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top relationships: %w", err)
	}
	return scanScoredRelationships(rows)
}

// FindSuspiciousRelationships returns relationships whose persisted volume and
// risk scores both exceed the given minimums, riskiest first.
func (s *Store) FindSuspiciousRelationships(ctx context.Context, minVolumeScore, minRiskScore float64) ([]*ScoredRelationship, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.reader().QueryContext(ctx, s.rebind(selectSuspiciousRelationshipsSQL), minVolumeScore, minRiskScore)
	if err != nil {
		return nil, fmt.Errorf("failed to query suspicious relationships: %w", err)
	}
	return scanScoredRelationships(rows)
}

func scanScoredRelationships(rows *sql.Rows) ([]*ScoredRelationship, error) {
	defer rows.Close()

	list := make([]*ScoredRelationship, 0)
	for rows.Next() {
		var (
			r                       ScoredRelationship
			fromID, toID            sql.NullString
			volume, created, scored sql.NullString
		)
		if err := rows.Scan(&r.From, &r.To, &fromID, &toID, &volume, &r.TransferCount, &created,
			&r.VolumeScore, &r.FrequencyScore, &r.TemporalScore, &r.NetworkScore, &r.RiskScore,
			&r.TotalScore, &scored); err != nil {
			return nil, fmt.Errorf("failed to scan scored relationship: %w", err)
		}
		r.FromIdentity = fromID.String
		r.ToIdentity = toID.String
		r.TotalVolume = volume.String
		r.CreatedAt = created.String
		r.ScoredAt = scored.String
		list = append(list, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scored relationships: %w", err)
	}
	return list, nil
}

// SaveRelationshipScores writes computed scores back in a single transaction.
func (s *Store) SaveRelationshipScores(ctx context.Context, list []*RelationshipScores, scoredAt time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting score tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(updateRelationshipScoresSQL))
	if err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("error preparing score update: %w", err)
	}
	defer stmt.Close()

	ts := FormatTimestamp(scoredAt)
	for _, r := range list {
		if _, err := stmt.ExecContext(ctx, r.Volume, r.Frequency, r.Temporal, r.Network, r.Risk, r.Total, ts, r.From, r.To); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("error updating scores for %s -> %s: %w", r.From, r.To, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing score tx: %w", err)
	}
	return nil
}
