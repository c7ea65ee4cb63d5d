package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/relscore/pkg/config"
	"github.com/mchmarny/relscore/pkg/score"
	urfave "github.com/urfave/cli/v3"
)

const (
	fromFlagName     = "from"
	toFlagName       = "to"
	workersFlagName  = "workers"
	persistFlagName  = "persist"
	snapshotFlagName = "snapshot"
)

func pairFlags() []urfave.Flag {
	return []urfave.Flag{
		&urfave.StringFlag{
			Name:     fromFlagName,
			Usage:    "Sender account address",
			Required: true,
		},
		&urfave.StringFlag{
			Name:     toFlagName,
			Usage:    "Receiver account address",
			Required: true,
		},
	}
}

func newScoreCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Relationship scoring operations",
		Commands: []*urfave.Command{
			{
				Name:   "pair",
				Usage:  "Score a single directed relationship",
				Action: cmdScorePair,
				Flags:  pairFlags(),
			},
			{
				Name:   "export",
				Usage:  "Score a relationship and write the report to a JSON file",
				Action: cmdScoreExport,
				Flags: append(pairFlags(), &urfave.StringFlag{
					Name:     fileFlagName,
					Aliases:  []string{"f"},
					Usage:    "Path of the JSON report to write",
					Required: true,
				}),
			},
			{
				Name:   "all",
				Usage:  "Score every relationship in the store",
				Action: cmdScoreAll,
				Flags: []urfave.Flag{
					&urfave.IntFlag{
						Name:  workersFlagName,
						Usage: "Number of concurrent scorers (optional, defaults to config)",
					},
					&urfave.StringFlag{
						Name:  persistFlagName,
						Usage: "Score persistence [none, write-back] (optional, defaults to config)",
					},
					&urfave.BoolFlag{
						Name:  snapshotFlagName,
						Usage: "Rank against a population snapshot taken at the start of the run",
					},
				},
			},
		},
	}
}

func cmdScorePair(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	rep, err := score.NewScorer(cfg.Store).Report(ctx, cmd.String(fromFlagName), cmd.String(toFlagName))
	if err != nil {
		return fmt.Errorf("failed to score relationship: %w", err)
	}

	return output(cmd, rep)
}

func cmdScoreExport(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)
	path := cmd.String(fileFlagName)

	rep, err := score.NewScorer(cfg.Store).Export(ctx, cmd.String(fromFlagName), cmd.String(toFlagName), path)
	if err != nil {
		return fmt.Errorf("failed to export relationship score: %w", err)
	}
	slog.Info("report exported", "path", path, "total", rep.Scores.Total)

	return output(cmd, rep.Scores)
}

func cmdScoreAll(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	opts := score.BatchOptions{
		Workers:  cfg.Config.Scoring.Workers,
		Persist:  cfg.Config.Scoring.Persist,
		Snapshot: cfg.Config.Scoring.Snapshot || cmd.Bool(snapshotFlagName),
	}
	if w := cmd.Int(workersFlagName); w > 0 {
		opts.Workers = w
	}
	if v := cmd.String(persistFlagName); v != "" {
		p, err := config.ParsePersistStrategy(v)
		if err != nil {
			return err
		}
		opts.Persist = p
	}

	res, err := score.ScoreAll(ctx, cfg.Store, opts)
	if err != nil {
		return fmt.Errorf("failed to score relationships: %w", err)
	}

	return output(cmd, res)
}
