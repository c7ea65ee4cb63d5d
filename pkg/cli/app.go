package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/relscore/pkg/config"
	"github.com/mchmarny/relscore/pkg/data"
	"github.com/mchmarny/relscore/pkg/logging"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "relscore"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"

	dbEnvVar = "RELSCORE_DB"
	pgEnvVar = "RELSCORE_PG_DSN"

	debugFlagName  = "debug"
	dbFlagName     = "db"
	pgFlagName     = "pg"
	configFlagName = "config"
	formatFlagName = "format"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	// env sources are read during flag parsing, before any command hook
	if wd, err := os.Getwd(); err == nil {
		config.LoadEnv(wd, config.HomeDir(appName))
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Dir    string
	Format string
	Debug  bool
	Config *config.Config
	Store  *data.Store
}

func getConfig(cmd *urfave.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Relationship strength scoring over an account transfer ledger",
		Flags: []urfave.Flag{
			&urfave.BoolFlag{
				Name:  debugFlagName,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&urfave.StringFlag{
				Name:    dbFlagName,
				Usage:   "Path to the Sqlite database file (optional, defaults to $HOME/.relscore/data.db)",
				Sources: urfave.EnvVars(dbEnvVar),
			},
			&urfave.StringFlag{
				Name:    pgFlagName,
				Usage:   "PostgreSQL connection string, overrides the Sqlite store when set",
				Sources: urfave.EnvVars(pgEnvVar),
			},
			&urfave.StringFlag{
				Name:  configFlagName,
				Usage: "Directory holding config.yaml (optional, defaults to $HOME/.relscore)",
			},
			&urfave.StringFlag{
				Name:  formatFlagName,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
		},
		Commands: []*urfave.Command{
			newImportCmd(),
			newScoreCmd(),
			newQueryCmd(),
			newMetricsCmd(),
			newServerCmd(),
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			debug := cmd.Bool(debugFlagName)
			if debug {
				logging.SetDefaultCLILogger("debug")
			}

			format := formatJSON
			switch f := cmd.String(formatFlagName); f {
			case formatYAML, "yml":
				format = formatYAML
			case formatJSON, "":
			default:
				return ctx, fmt.Errorf("unsupported output format: %s", f)
			}

			dir := cmd.String(configFlagName)
			if dir == "" {
				d, created, err := config.GetOrCreateHomeDir(appName)
				if err != nil {
					return ctx, fmt.Errorf("resolving home dir: %w", err)
				}
				slog.Debug("home dir", "path", d, "created", created)
				dir = d
			}

			cfg, err := config.ReadOrCreate(dir)
			if err != nil {
				return ctx, fmt.Errorf("reading config: %w", err)
			}

			store, err := openStore(ctx, cmd, dir, cfg)
			if err != nil {
				return ctx, err
			}

			cmd.Root().Metadata[appConfigKey] = &appConfig{
				Dir:    dir,
				Format: format,
				Debug:  debug,
				Config: cfg,
				Store:  store,
			}
			return ctx, nil
		},
		After: func(_ context.Context, cmd *urfave.Command) error {
			if cfg, ok := cmd.Root().Metadata[appConfigKey].(*appConfig); ok && cfg.Store != nil {
				return cfg.Store.Close()
			}
			return nil
		},
	}
}

// openStore resolves the store from flags first, then the config file.
func openStore(ctx context.Context, cmd *urfave.Command, dir string, cfg *config.Config) (*data.Store, error) {
	if dsn := cmd.String(pgFlagName); dsn != "" {
		return openDialect(ctx, data.DialectPostgres, dsn)
	}

	if p := cmd.String(dbFlagName); p != "" {
		return openDialect(ctx, data.DialectSQLite, p)
	}

	dialect, err := data.ParseDialect(cfg.Store.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.Store.DSN
	if dialect == data.DialectSQLite && dsn == "" {
		dsn = filepath.Join(dir, data.DataFileName)
	}
	if dsn == "" {
		return nil, errors.New("store dsn required for postgres driver")
	}
	return openDialect(ctx, dialect, dsn)
}

func openDialect(ctx context.Context, d data.Dialect, dsn string) (*data.Store, error) {
	slog.Debug("opening store", "dialect", d)
	s, err := data.Open(ctx, d, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", d, err)
	}
	return s, nil
}

func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		return yaml.NewEncoder(w).Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

// output writes v to the root command writer in the selected format.
func output(cmd *urfave.Command, v any) error {
	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	return encode(w, getConfig(cmd).Format, v)
}
