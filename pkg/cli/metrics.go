package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/mchmarny/relscore/pkg/centrality"
	"github.com/mchmarny/relscore/pkg/data"
	urfave "github.com/urfave/cli/v3"
)

const addressFlagName = "address"

func newMetricsCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "metrics",
		Aliases: []string{"m"},
		Usage:   "Network metrics snapshot operations",
		Commands: []*urfave.Command{
			{
				Name:   "update",
				Usage:  "Recompute centrality metrics for every account from the relationship graph",
				Action: cmdMetricsUpdate,
			},
			{
				Name:   "get",
				Usage:  "Show network metrics for one account, or all accounts when no address is given",
				Action: cmdMetricsGet,
				Flags: []urfave.Flag{
					&urfave.StringFlag{
						Name:  addressFlagName,
						Usage: "Account address",
					},
				},
			},
		},
	}
}

func cmdMetricsUpdate(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	list, err := centrality.NewEngine(cfg.Store).Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to update network metrics: %w", err)
	}

	return output(cmd, list)
}

func cmdMetricsGet(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	address := cmd.String(addressFlagName)
	if address == "" {
		list, err := cfg.Store.ListNetworkMetrics(ctx)
		if err != nil {
			return fmt.Errorf("failed to list network metrics: %w", err)
		}
		return output(cmd, list)
	}

	m, err := cfg.Store.GetNetworkMetrics(ctx, address)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fmt.Errorf("no network metrics for %s, run metrics update first", address)
		}
		return fmt.Errorf("failed to get network metrics: %w", err)
	}

	return output(cmd, m)
}
