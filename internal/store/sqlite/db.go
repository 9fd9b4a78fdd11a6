// Package sqlite implements every domain store interface against a single
// local SQLite file, the bridge's only persistence dependency.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a pooled SQLite connection opened in WAL mode.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates the database file's parent directory if needed and opens a
// connection pool against it with WAL journaling and foreign keys enabled.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data directory: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	// A single-writer embedded database does not benefit from a large pool;
	// this just lets concurrent readers proceed without blocking on Go's
	// connection-pool mutex. An in-memory database is private to the
	// connection that created it, so it must stay pinned to exactly one.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(8)
		conn.SetMaxIdleConns(4)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying *sql.DB for use by store implementations.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Migrate applies every not-yet-applied migration in order, tracked in the
// _migrations table.
func (db *DB) Migrate(ctx context.Context) error {
	return migrate(ctx, db.conn)
}
