package data

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DataFileName string = "data.db"

	sqliteDriver   = "sqlite"
	postgresDriver = "postgres"

	sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	pingInitialInterval = 500 * time.Millisecond
	pingMaxInterval     = 5 * time.Second
	pingMaxElapsedTime  = 30 * time.Second

	createSchemaVersionSQL = `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`
	selectSchemaVersionSQL = `SELECT COALESCE(MAX(version), 0) FROM schema_version`
	insertSchemaVersionSQL = `INSERT INTO schema_version (version) VALUES (?)`
)

// Dialect identifies the SQL flavor of the underlying store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var (
	//go:embed sql/*
	f embed.FS

	ErrDBNotInitialized = errors.New("database not initialized")
	ErrNotFound         = errors.New("not found")
)

// ParseDialect converts a driver name into a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported store dialect: %s", s)
	}
}

// Store is the handle to the relationship store. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	tx      *sql.Tx
	dialect Dialect
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the store and applies any pending schema migrations.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("store dsn not specified")
	}

	driver := sqliteDriver
	if dialect == DialectPostgres {
		driver = postgresDriver
	} else if !strings.Contains(dsn, "_pragma=") {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	if err := ping(ctx, db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// ping waits for a postgres server that may still be starting. A local
// SQLite file either opens or it does not, so it gets a single attempt.
func ping(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if dialect != DialectPostgres {
		return db.PingContext(ctx)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = pingInitialInterval
	b.MaxInterval = pingMaxInterval
	b.MaxElapsedTime = pingMaxElapsedTime

	notify := func(err error, next time.Duration) {
		slog.Warn("database not ready, retrying", "error", err, "next_retry_in", next.String())
	}

	return backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(b, ctx), notify)
}

// OpenSQLite opens (and creates when missing) the SQLite store at path.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("dbFilePath not specified")
	}
	return Open(ctx, DialectSQLite, path)
}

func sqliteDSN(p string) string {
	sep := "?"
	if strings.Contains(p, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(p, "file:") {
		p = "file:" + p
	}
	return p + sep + sqlitePragmas
}

// Close releases the underlying connection pool. Closing a view is a no-op.
func (s *Store) Close() error {
	if s == nil || s.db == nil || s.tx != nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying connection pool.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Dialect returns the SQL flavor of the store.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return ErrDBNotInitialized
	}
	return nil
}

// reader returns the view transaction when there is one, the pool otherwise.
func (s *Store) reader() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// View runs fn against a copy of the store whose reads all go through one
// read-only repeatable-read transaction, so they see a single snapshot. Writes made
// through the view do not join that transaction. Nested views reuse the
// outer transaction.
func (s *Store) View(ctx context.Context, fn func(v *Store) error) error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}

	if err := fn(&Store{db: s.db, tx: tx, dialect: s.dialect}); err != nil {
		rollbackTransaction(tx)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit read transaction: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders into the positional form postgres expects.
func (s *Store) rebind(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 16)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type migration struct {
	version int
	name    string
}

func (s *Store) migrations() ([]migration, error) {
	dir := path.Join("sql", string(s.dialect))
	entries, err := fs.ReadDir(f, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations for %s: %w", s.dialect, err)
	}

	list := make([]migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		prefix, _, _ := strings.Cut(e.Name(), "_")
		v, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("invalid migration file name %s: %w", e.Name(), err)
		}
		list = append(list, migration{version: v, name: path.Join(dir, e.Name())})
	}

	sort.Slice(list, func(i, j int) bool { return list[i].version < list[j].version })
	return list, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSchemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema version table: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, selectSchemaVersionSQL).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	list, err := s.migrations()
	if err != nil {
		return err
	}

	for _, m := range list {
		if m.version <= current {
			continue
		}

		b, err := f.ReadFile(m.name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", m.name, err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration tx: %w", err)
		}

		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}

		if _, err := tx.ExecContext(ctx, s.rebind(insertSchemaVersionSQL), m.version); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.name, err)
		}
		slog.Debug("schema migrated", "dialect", s.dialect, "version", m.version)
	}

	return nil
}

func rollbackTransaction(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Error("error rolling back transaction", "error", err)
	}
}
