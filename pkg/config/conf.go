package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	envFileName    = ".env"
	dirMode        = 0700
	fileMode       = 0600

	DefaultTopLimit            = 100
	DefaultSuspiciousMinVolume = 70.0
	DefaultSuspiciousMinRisk   = 30.0
	DefaultServerAddress       = "127.0.0.1:8080"
)

// PersistStrategy decides what a scoring run does with computed scores.
type PersistStrategy string

const (
	// PersistNone leaves the stored scores untouched.
	PersistNone PersistStrategy = "none"
	// PersistWriteBack saves every computed score in one transaction once
	// all pairs have been scored.
	PersistWriteBack PersistStrategy = "write-back"
)

// ParsePersistStrategy converts s into a PersistStrategy.
func ParsePersistStrategy(s string) (PersistStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return PersistNone, nil
	case "write-back", "writeback":
		return PersistWriteBack, nil
	default:
		return "", fmt.Errorf("unsupported persist strategy: %s", s)
	}
}

// Store selects the relationship store.
type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn,omitempty"`
}

// Scoring tunes batch scoring runs.
type Scoring struct {
	Workers  int             `yaml:"workers"`
	Persist  PersistStrategy `yaml:"persist"`
	Snapshot bool            `yaml:"snapshot"`
}

// Query holds the query surface defaults.
type Query struct {
	TopLimit            int     `yaml:"topLimit"`
	SuspiciousMinVolume float64 `yaml:"suspiciousMinVolume"`
	SuspiciousMinRisk   float64 `yaml:"suspiciousMinRisk"`
}

// Server configures the local JSON API.
type Server struct {
	Address string `yaml:"address"`
}

// Config represents app config object.
type Config struct {
	Store   Store   `yaml:"store"`
	Scoring Scoring `yaml:"scoring"`
	Query   Query   `yaml:"query"`
	Server  Server  `yaml:"server"`
}

// Default returns the config written on first run.
func Default() *Config {
	return &Config{
		Store: Store{Driver: "sqlite"},
		Scoring: Scoring{
			Workers: runtime.NumCPU(),
			Persist: PersistWriteBack,
		},
		Query: Query{
			TopLimit:            DefaultTopLimit,
			SuspiciousMinVolume: DefaultSuspiciousMinVolume,
			SuspiciousMinRisk:   DefaultSuspiciousMinRisk,
		},
		Server: Server{Address: DefaultServerAddress},
	}
}

// Validate checks values and fills zero values with defaults.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config required")
	}

	d := Default()
	if c.Store.Driver == "" {
		c.Store.Driver = d.Store.Driver
	}
	if c.Scoring.Workers < 1 {
		c.Scoring.Workers = d.Scoring.Workers
	}
	p, err := ParsePersistStrategy(string(c.Scoring.Persist))
	if err != nil {
		return err
	}
	c.Scoring.Persist = p

	if c.Query.TopLimit < 1 {
		c.Query.TopLimit = d.Query.TopLimit
	}
	if c.Query.SuspiciousMinVolume < 0 || c.Query.SuspiciousMinVolume > 100 {
		return fmt.Errorf("suspicious min volume out of range: %v", c.Query.SuspiciousMinVolume)
	}
	if c.Query.SuspiciousMinRisk < 0 || c.Query.SuspiciousMinRisk > 100 {
		return fmt.Errorf("suspicious min risk out of range: %v", c.Query.SuspiciousMinRisk)
	}
	if c.Server.Address == "" {
		c.Server.Address = d.Server.Address
	}
	return nil
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", configFileName, err)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, fmt.Errorf("failed to create dir %s: %w", dirPath, err)
		}
	}

	path := filepath.Join(dirPath, configFileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &c, nil
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}

// LoadEnv loads .env then .env.local from each dir into the process
// environment. Variables already set are kept. Missing files are skipped.
func LoadEnv(dirs ...string) []string {
	loaded := make([]string, 0)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, name := range []string{envFileName, envFileName + ".local"} {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := godotenv.Load(p); err != nil {
				slog.Warn("failed to load env file", "path", p, "error", err)
				continue
			}
			loaded = append(loaded, p)
		}
	}
	return loaded
}

// HomeDir returns the app dir under the user home without creating it.
func HomeDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}
	return filepath.Join(home, name)
}
