package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the run history database connection.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// DefaultDBPath returns ~/.warnfactory/warnfactory.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".warnfactory")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "warnfactory.db"), nil
}

// Open opens or creates the database. A postgres:// or postgresql:// DSN
// connects to PostgreSQL; anything else is treated as a SQLite path.
func Open(dsn string) (*DB, error) {
	d := dialectFor(dsn)
	conn, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if d.driver == sqliteDialect.driver {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, pragma := range d.setup {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return &DB{conn: conn, dialect: d}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying *sql.DB for advanced queries.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Driver returns the database/sql driver name in use.
func (d *DB) Driver() string {
	return d.dialect.driver
}

// Rebind rewrites ? placeholders in query for the active dialect.
func (d *DB) Rebind(query string) string {
	return d.dialect.rebind(query)
}

type dialect struct {
	driver      string
	setup       []string
	schema      string
	placeholder func(n int) string
}

var sqliteDialect = dialect{
	driver:      "sqlite3",
	setup:       []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"},
	schema:      sqliteSchemaV1,
	placeholder: func(int) string { return "?" },
}

var postgresDialect = dialect{
	driver:      "pgx",
	schema:      postgresSchemaV1,
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

func dialectFor(dsn string) dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgresDialect
	}
	return sqliteDialect
}

// rebind rewrites ? placeholders for the active dialect.
func (d dialect) rebind(query string) string {
	if d.driver == sqliteDialect.driver {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const sqliteSchemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS check_runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    check_name  TEXT NOT NULL,
    parser      TEXT NOT NULL,
    passed      BOOLEAN NOT NULL,
    canceled    BOOLEAN NOT NULL DEFAULT FALSE,
    auto_fixed  BOOLEAN NOT NULL DEFAULT FALSE,
    exit_code   INTEGER,
    duration_ms INTEGER,
    summary     TEXT,
    issue_count INTEGER NOT NULL DEFAULT 0,
    timestamp   TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_check_name ON check_runs(check_name, id DESC);

CREATE TABLE IF NOT EXISTS issues (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id       INTEGER NOT NULL REFERENCES check_runs(id) ON DELETE CASCADE,
    seq          INTEGER NOT NULL,
    file         TEXT NOT NULL,
    line_start   INTEGER NOT NULL,
    line_end     INTEGER NOT NULL,
    column_start INTEGER NOT NULL,
    column_end   INTEGER NOT NULL,
    category     TEXT NOT NULL,
    type         TEXT NOT NULL,
    severity     TEXT NOT NULL,
    message      TEXT NOT NULL,
    description  TEXT NOT NULL,
    package      TEXT NOT NULL,
    module       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_issues_run ON issues(run_id, seq);
`

const postgresSchemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS check_runs (
    id          BIGSERIAL PRIMARY KEY,
    check_name  TEXT NOT NULL,
    parser      TEXT NOT NULL,
    passed      BOOLEAN NOT NULL,
    canceled    BOOLEAN NOT NULL DEFAULT FALSE,
    auto_fixed  BOOLEAN NOT NULL DEFAULT FALSE,
    exit_code   INTEGER,
    duration_ms INTEGER,
    summary     TEXT,
    issue_count INTEGER NOT NULL DEFAULT 0,
    timestamp   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_check_name ON check_runs(check_name, id DESC);

CREATE TABLE IF NOT EXISTS issues (
    id           BIGSERIAL PRIMARY KEY,
    run_id       BIGINT NOT NULL REFERENCES check_runs(id) ON DELETE CASCADE,
    seq          INTEGER NOT NULL,
    file         TEXT NOT NULL,
    line_start   INTEGER NOT NULL,
    line_end     INTEGER NOT NULL,
    column_start INTEGER NOT NULL,
    column_end   INTEGER NOT NULL,
    category     TEXT NOT NULL,
    type         TEXT NOT NULL,
    severity     TEXT NOT NULL,
    message      TEXT NOT NULL,
    description  TEXT NOT NULL,
    package      TEXT NOT NULL,
    module       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_issues_run ON issues(run_id, seq);
`

// schemaV2 records which parser produced each issue.
const schemaV2 = `ALTER TABLE issues ADD COLUMN origin TEXT NOT NULL DEFAULT ''`

// Migrate applies every schema version the database has not recorded yet.
func (d *DB) Migrate() error {
	for i, stmt := range []string{d.dialect.schema, schemaV2} {
		if err := d.migrateTo(i+1, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) migrateTo(version int, stmt string) error {
	var count int
	err := d.conn.QueryRow(d.dialect.rebind("SELECT COUNT(*) FROM schema_version WHERE version = ?"), version).Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("apply schema v%d: %w", version, err)
	}
	if _, err := tx.Exec(d.dialect.rebind("INSERT INTO schema_version (version) VALUES (?)"), version); err != nil {
		return fmt.Errorf("record schema version %d: %w", version, err)
	}
	return tx.Commit()
}

// Reset drops all tables and re-applies the schema.
func (d *DB) Reset() error {
	tables := []string{"issues", "check_runs", "schema_version"}
	for _, t := range tables {
		if _, err := d.conn.Exec("DROP TABLE IF EXISTS " + t); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	return d.Migrate()
}
