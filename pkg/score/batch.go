package score

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/mchmarny/relscore/pkg/config"
	"github.com/mchmarny/relscore/pkg/data"
	"golang.org/x/sync/errgroup"
)

// BatchStore is the store surface needed to score every relationship.
type BatchStore interface {
	Source
	PopulationSource
	ListRelationshipPairs(ctx context.Context) ([]data.Pair, error)
	SaveRelationshipScores(ctx context.Context, list []*data.RelationshipScores, scoredAt time.Time) error
}

// BatchOptions controls a ScoreAll run.
type BatchOptions struct {
	Workers  int
	Persist  config.PersistStrategy
	Snapshot bool
}

// BatchResult is the outcome of a ScoreAll run, scores in pair order.
type BatchResult struct {
	Scores    []*RelationshipScore `json:"scores" yaml:"scores"`
	Persisted bool                 `json:"persisted" yaml:"persisted"`
	Duration  time.Duration        `json:"duration" yaml:"duration"`
}

// ScoreAll scores every stored relationship in parallel. With write-back the
// scores are saved in one transaction once all pairs succeed; any failure
// leaves the stored scores untouched.
func ScoreAll(ctx context.Context, store BatchStore, opts BatchOptions, scorerOpts ...Option) (*BatchResult, error) {
	start := time.Now()

	pairs, err := store.ListRelationshipPairs(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Snapshot {
		ranker, err := NewSnapshotRanker(ctx, store)
		if err != nil {
			return nil, err
		}
		scorerOpts = append(scorerOpts, WithRanker(ranker))
	}
	scorer := NewScorer(store, scorerOpts...)

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	results := make([]*RelationshipScore, len(pairs))
	for i, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := scorer.Score(gctx, p.From, p.To)
			if err != nil {
				return err
			}
			results[i] = r
			slog.Debug("pair scored", "from", p.From, "to", p.To, "total", r.Total)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring run failed: %w", err)
	}

	res := &BatchResult{Scores: results}
	if opts.Persist == config.PersistWriteBack {
		if err := store.SaveRelationshipScores(ctx, records(results), time.Now()); err != nil {
			return nil, err
		}
		res.Persisted = true
	}

	res.Duration = time.Since(start)
	slog.Info("scoring run complete",
		"pairs", len(results),
		"workers", workers,
		"snapshot", opts.Snapshot,
		"persisted", res.Persisted,
		"duration", res.Duration)

	return res, nil
}

func records(list []*RelationshipScore) []*data.RelationshipScores {
	out := make([]*data.RelationshipScores, 0, len(list))
	for _, r := range list {
		out = append(out, &data.RelationshipScores{
			From:      r.From,
			To:        r.To,
			Volume:    r.Volume,
			Frequency: r.Frequency,
			Temporal:  r.Temporal,
			Network:   r.Network,
			Risk:      r.Risk,
			Total:     r.Total,
		})
	}
	return out
}
