package cli

import (
	"context"
	"fmt"

	urfave "github.com/urfave/cli/v3"
)

const (
	limitFlagName  = "limit"
	volumeFlagName = "volume"
	riskFlagName   = "risk"
)

func newQueryCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   "Query persisted relationship scores",
		Commands: []*urfave.Command{
			{
				Name:   "top",
				Usage:  "List the strongest relationships by total score",
				Action: cmdQueryTop,
				Flags: []urfave.Flag{
					&urfave.IntFlag{
						Name:  limitFlagName,
						Usage: "Number of relationships to return (optional, defaults to config)",
					},
				},
			},
			{
				Name:   "suspicious",
				Usage:  "List high volume relationships with elevated risk",
				Action: cmdQuerySuspicious,
				Flags: []urfave.Flag{
					&urfave.Float64Flag{
						Name:  volumeFlagName,
						Usage: "Minimum volume score (optional, defaults to config)",
						Value: -1,
					},
					&urfave.Float64Flag{
						Name:  riskFlagName,
						Usage: "Minimum risk score (optional, defaults to config)",
						Value: -1,
					},
				},
			},
		},
	}
}

func cmdQueryTop(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	limit := cfg.Config.Query.TopLimit
	if v := cmd.Int(limitFlagName); v > 0 {
		limit = v
	}

	list, err := cfg.Store.TopRelationships(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to query top relationships: %w", err)
	}

	return output(cmd, list)
}

func cmdQuerySuspicious(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	minVolume := cfg.Config.Query.SuspiciousMinVolume
	if v := cmd.Float64(volumeFlagName); v >= 0 {
		minVolume = v
	}
	minRisk := cfg.Config.Query.SuspiciousMinRisk
	if v := cmd.Float64(riskFlagName); v >= 0 {
		minRisk = v
	}

	list, err := cfg.Store.FindSuspiciousRelationships(ctx, minVolume, minRisk)
	if err != nil {
		return fmt.Errorf("failed to query suspicious relationships: %w", err)
	}

	return output(cmd, list)
}
