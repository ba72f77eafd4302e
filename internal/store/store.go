package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported values for Config.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the database backend.
type Config struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string `yaml:"driver"`
	// DSN is a file path or SQLite URI for sqlite, a connection URL for postgres.
	DSN string `yaml:"dsn"`
}

// Store holds the database handle and the ent SQL driver the repositories
// build their queries with.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
}

// Open connects to the configured database, applies SQLite pragmas when
// relevant, and runs auto-migration.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var (
		db   *sql.DB
		name string
		err  error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite:
		name = dialectSQLite
		db, err = openSQLite(cfg.DSN)
	case DriverPostgres, "postgresql", "pgx":
		name = dialectPostgres
		db, err = sql.Open("pgx", cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	drv := entsql.OpenDB(name, db)
	if err := migrate(ctx, drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &Store{db: db, drv: drv}, nil
}

const (
	dialectSQLite   = dialect.SQLite
	dialectPostgres = dialect.Postgres
)

func openSQLite(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite DSN is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return db, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name of the connection.
func (s *Store) Dialect() string {
	return s.drv.Dialect()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// Users returns a UserRepo backed by this store.
func (s *Store) Users() UserRepo {
	return &userRepo{drv: s.drv}
}

// Recipients returns a RecipientRepo backed by this store.
func (s *Store) Recipients() RecipientRepo {
	return &recipientRepo{drv: s.drv}
}

// Worksheets returns the WorksheetRepo backed by this store.
func (s *Store) Worksheets() WorksheetRepo {
	return &worksheetRepo{drv: s.drv}
}

// Configs returns a ConfigRepo backed by this store.
func (s *Store) Configs() ConfigRepo {
	return &configRepo{drv: s.drv}
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{drv: s.drv, seq: newSequenceCounter(s.Configs())}
}

// applyPragmas configures SQLite for a small service with one writer.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the SQLite database file path in priority order:
// 1. HOJAS_DB environment variable
// 2. $XDG_DATA_HOME/hojas/hojas.db
// 3. ~/.local/share/hojas/hojas.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("HOJAS_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "hojas", "hojas.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
// SQLite URIs and in-memory databases are left alone.
func EnsureDir(path string) error {
	if strings.HasPrefix(path, "file:") || strings.Contains(path, ":memory:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
