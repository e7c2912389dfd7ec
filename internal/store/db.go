// pattern: Imperative Shell

// Package store provides the SQLite persistence layer: project records,
// workspace links, and clone task state. It owns connection lifecycle and
// schema migrations; repository state itself is never cached here.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"repodeck/internal/logging"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the SQLite connection and exposes the typed stores.
type DB struct {
	conn   *sql.DB
	logger *logging.ScopedLogger
}

// Open opens (creating parent directories as needed) the database at path,
// switches it to WAL mode, and applies pending migrations.
func Open(path string, logger *logging.ScopedLogger) (*DB, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// WAL lets status reads proceed while a mutation persists its record.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	logger.Info("database ready", "path", path)
	return &DB{conn: conn, logger: logger}, nil
}

// Conn exposes the raw connection for tests.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}
