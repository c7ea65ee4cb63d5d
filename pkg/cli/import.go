package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mchmarny/relscore/pkg/data"
	"github.com/mchmarny/relscore/pkg/net"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const fileFlagName = "file"

func newImportCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Import accounts and transfers from a ledger file and refresh relationship aggregates",
		UsageText: `relscore import --file ledger.json
   relscore import --file ledger.yaml
   relscore import --file https://example.com/ledger.json`,
		Action: cmdImport,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:     fileFlagName,
				Aliases:  []string{"f"},
				Usage:    "Path or http(s) URL of the ledger file (json or yaml)",
				Required: true,
			},
		},
	}
}

func cmdImport(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)
	path := cmd.String(fileFlagName)

	l, err := readLedger(ctx, path)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := cfg.Store.SaveLedger(ctx, l)
	if err != nil {
		return fmt.Errorf("failed to import ledger %s: %w", path, err)
	}
	slog.Debug("ledger imported", "path", path,
		"relationships", res.Relationships, "duration", time.Since(start).String())

	return output(cmd, res)
}

// readLedger decodes a local or remote ledger file, picking the codec from
// its extension.
func readLedger(ctx context.Context, path string) (*data.Ledger, error) {
	var (
		b   []byte
		ext string
		err error
	)
	if net.IsURL(path) {
		u, perr := url.Parse(path)
		if perr != nil {
			return nil, fmt.Errorf("invalid ledger url %s: %w", path, perr)
		}
		ext = filepath.Ext(u.Path)
		b, err = net.Fetch(ctx, path)
	} else {
		ext = filepath.Ext(path)
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file %s: %w", path, err)
	}

	var l data.Ledger
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &l)
	default:
		err = json.Unmarshal(b, &l)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger file %s: %w", path, err)
	}
	return &l, nil
}
