// Package score computes relationship strength scores for ordered account
// pairs from the transfer ledger and the network metrics snapshot.
package score

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mchmarny/relscore/pkg/data"
)

// Ranker returns the fraction of a population strictly below value.
type Ranker interface {
	PercentileRank(ctx context.Context, p data.Population, value float64) (float64, error)
}

// Source is the read side of the store used by the scorers.
type Source interface {
	Ranker
	GetRelationship(ctx context.Context, from, to string) (*data.Relationship, error)
	ListPairTransfers(ctx context.Context, from, to string) ([]*data.Transfer, error)
	CountRapidRelays(ctx context.Context, from, to string) (int64, error)
	CountCommonConnections(ctx context.Context, from, to string) (int64, error)
	GetNetworkMetrics(ctx context.Context, address string) (*data.NetworkMetrics, error)
}

// viewer is implemented by sources that can pin a set of reads to one
// read-only transaction.
type viewer interface {
	View(ctx context.Context, fn func(v *data.Store) error) error
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock sets the evaluation time source used by the temporal scorer.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRanker replaces the source's percentile ranking, e.g. with a snapshot.
func WithRanker(r Ranker) Option {
	return func(s *Scorer) {
		if r != nil {
			s.ranker = r
			s.ownRanker = true
		}
	}
}

// WithWeights overrides the composite weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// Scorer computes component and composite scores. It holds no mutable state
// and is safe for concurrent use.
type Scorer struct {
	src       Source
	ranker    Ranker
	ownRanker bool
	now       func() time.Time
	weights   Weights
}

// NewScorer returns a Scorer reading from src.
func NewScorer(src Source, opts ...Option) *Scorer {
	s := &Scorer{
		src:     src,
		ranker:  src,
		now:     time.Now,
		weights: DefaultWeights,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// pair is everything the scorers read about one relationship.
type pair struct {
	from, to  string
	rel       *data.Relationship
	transfers []*data.Transfer
}

func (s *Scorer) load(ctx context.Context, from, to string, withTransfers bool) (*pair, error) {
	p := &pair{from: from, to: to}

	rel, err := s.src.GetRelationship(ctx, from, to)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return p, nil
		}
		return nil, err
	}
	p.rel = rel

	if withTransfers {
		if p.transfers, err = s.src.ListPairTransfers(ctx, from, to); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Volume scores the size of the relationship against all others.
func (s *Scorer) Volume(ctx context.Context, from, to string) (float64, *VolumeDetails, error) {
	p, err := s.load(ctx, from, to, false)
	if err != nil {
		return 0, nil, err
	}
	return s.volume(ctx, p)
}

// Frequency scores how often and how regularly transfers happen.
func (s *Scorer) Frequency(ctx context.Context, from, to string) (float64, *FrequencyDetails, error) {
	p, err := s.load(ctx, from, to, true)
	if err != nil {
		return 0, nil, err
	}
	return s.frequency(ctx, p)
}

// Temporal scores recency, duration and recent activity.
func (s *Scorer) Temporal(ctx context.Context, from, to string) (float64, *TemporalDetails, error) {
	p, err := s.load(ctx, from, to, true)
	if err != nil {
		return 0, nil, err
	}
	score, d := s.temporal(p, s.now())
	return score, d, nil
}

// Network scores shared counterparties and the centrality of both accounts.
func (s *Scorer) Network(ctx context.Context, from, to string) (float64, *NetworkDetails, error) {
	p, err := s.load(ctx, from, to, false)
	if err != nil {
		return 0, nil, err
	}
	return s.network(ctx, p)
}

// Risk scores relay, round value, odd hour and new account indicators.
// Higher is riskier.
func (s *Scorer) Risk(ctx context.Context, from, to string) (float64, *RiskDetails, error) {
	p, err := s.load(ctx, from, to, true)
	if err != nil {
		return 0, nil, err
	}
	return s.risk(ctx, p)
}

// Score computes every component and the composite total for from -> to.
// A pair without a relationship scores zero across the board. When the source
// supports views all reads share one read-only transaction.
func (s *Scorer) Score(ctx context.Context, from, to string) (*RelationshipScore, error) {
	v, ok := s.src.(viewer)
	if !ok {
		return s.score(ctx, from, to)
	}

	var r *RelationshipScore
	err := v.View(ctx, func(tx *data.Store) error {
		var err error
		r, err = s.within(tx).score(ctx, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// within returns a copy of the scorer reading from src. A ranker set with
// WithRanker is kept.
func (s *Scorer) within(src Source) *Scorer {
	c := *s
	c.src = src
	if !c.ownRanker {
		c.ranker = src
	}
	return &c
}

func (s *Scorer) score(ctx context.Context, from, to string) (*RelationshipScore, error) {
	p, err := s.load(ctx, from, to, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s -> %s: %w", from, to, err)
	}

	r := &RelationshipScore{From: from, To: to}

	if r.Volume, r.Details.Volume, err = s.volume(ctx, p); err != nil {
		return nil, fmt.Errorf("volume %s -> %s: %w", from, to, err)
	}
	if r.Frequency, r.Details.Frequency, err = s.frequency(ctx, p); err != nil {
		return nil, fmt.Errorf("frequency %s -> %s: %w", from, to, err)
	}
	r.Temporal, r.Details.Temporal = s.temporal(p, s.now())
	if r.Network, r.Details.Network, err = s.network(ctx, p); err != nil {
		return nil, fmt.Errorf("network %s -> %s: %w", from, to, err)
	}
	if r.Risk, r.Details.Risk, err = s.risk(ctx, p); err != nil {
		return nil, fmt.Errorf("risk %s -> %s: %w", from, to, err)
	}

	r.Details.Weights = s.weights
	r.Details.BaseScore = s.weights.Base(r.Volume, r.Frequency, r.Temporal, r.Network)
	r.Details.RiskMultiplier = RiskMultiplier(r.Risk)
	r.Total = round2(r.Details.BaseScore * r.Details.RiskMultiplier)

	return r, nil
}

// floorDays is the whole number of days in d, rounded toward negative infinity.
func floorDays(d time.Duration) int64 {
	return int64(math.Floor(d.Hours() / 24))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ratio(n, d int64) float64 {
	return float64(n) / float64(max(d, 1))
}
