package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Store is the local audit database. It never holds session state; a
// session cannot be resumed from it.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)

	if err := migrate(context.Background(), db); err != nil {
		drv.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		drv.Close()
		return nil, err
	}

	return &Store{db: db, drv: drv, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{db: s.db, seq: s.seq}
}

// ReportRepo returns a ReportRepo backed by this store.
func (s *Store) ReportRepo() ReportRepo {
	return &reportRepo{db: s.db}
}

// builder returns a statement builder for the SQLite dialect.
func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

const (
	tableAPICalls       = "api_calls"
	tableSessionEvents  = "session_events"
	tableReports        = "reports"
	tableGlobalSequence = "global_sequence"
)

func col(name, typ, attr string) *entsql.ColumnBuilder {
	return entsql.Column(name).Type(typ).Attr(attr)
}

// schema lists the statements that create missing tables and indexes.
func schema() []entsql.Querier {
	b := builder()
	return []entsql.Querier{
		b.CreateTable(tableAPICalls).IfNotExists().Columns(
			col("id", "integer", "PRIMARY KEY AUTOINCREMENT"),
			col("sequence", "integer", "NOT NULL"),
			col("timestamp", "text", "NOT NULL"),
			col("operation", "text", "NOT NULL"),
			col("method", "text", "NOT NULL"),
			col("path", "text", "NOT NULL"),
			col("status_code", "integer", "NOT NULL DEFAULT 0"),
			col("latency_ms", "integer", "NOT NULL DEFAULT 0"),
			col("attempt", "integer", "NOT NULL DEFAULT 1"),
			col("error_message", "text", "NOT NULL DEFAULT ''"),
		),
		b.CreateTable(tableSessionEvents).IfNotExists().Columns(
			col("id", "integer", "PRIMARY KEY AUTOINCREMENT"),
			col("sequence", "integer", "NOT NULL"),
			col("timestamp", "text", "NOT NULL"),
			col("session_id", "text", "NOT NULL"),
			col("exam_id", "integer", "NOT NULL"),
			col("generation", "integer", "NOT NULL"),
			col("kind", "text", "NOT NULL"),
			col("trigger_name", "text", "NOT NULL DEFAULT ''"),
			col("detail", "text", "NOT NULL DEFAULT ''"),
		),
		b.CreateIndex("idx_session_events_session").IfNotExists().
			Table(tableSessionEvents).Columns("session_id", "sequence"),
		b.CreateTable(tableReports).IfNotExists().Columns(
			col("result_id", "integer", "PRIMARY KEY"),
			col("exam_id", "integer", "NOT NULL"),
			col("detailed", "integer", "NOT NULL"),
			col("payload", "text", "NOT NULL"),
			col("fetched_at", "text", "NOT NULL"),
		),
		b.CreateTable(tableGlobalSequence).IfNotExists().Columns(
			col("id", "integer", "PRIMARY KEY CHECK (id = 1)"),
			col("next_val", "integer", "NOT NULL DEFAULT 1"),
		),
	}
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema() {
		query, args := stmt.Query()
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%s: %w", query, err)
		}
	}
	return nil
}

// applyPragmas configures SQLite for optimal single-user performance.
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

// DefaultDBPath resolves the database file path in priority order:
// 1. EXAMTAKER_DB environment variable
// 2. $XDG_DATA_HOME/examtaker/examtaker.db
// 3. ~/.local/share/examtaker/examtaker.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("EXAMTAKER_DB"); p != "" {
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

	p := filepath.Join(dataHome, "examtaker", "examtaker.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
