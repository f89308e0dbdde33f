// Package workbook stores spreadsheet exports in a local SQLite file so the
// sampler can run without Google credentials.
package workbook

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is a local workbook: imported sheets stored cell by cell.
type DB struct {
	conn *sql.DB
	path string
}

// workbookPragmas are applied once on the single pooled connection. They are
// connection-scoped, so the pool must never grow past one.
var workbookPragmas = []struct {
	stmt string
	what string
}{
	{"PRAGMA journal_mode=WAL", "setting journal mode"},
	{"PRAGMA foreign_keys=ON", "enabling foreign keys"},
	{"PRAGMA busy_timeout=5000", "setting busy timeout"},
}

// Open opens the workbook file at dbPath, creating it and its directory on
// first use, and brings the sheets/cells schema up to date. An import and a
// concurrent sample run share the file; readers see the last committed import.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating workbook directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", dbPath, err)
	}
	conn.SetMaxOpenConns(1)

	for _, p := range workbookPragmas {
		if _, err := conn.Exec(p.stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", p.what, err)
		}
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating workbook schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the workbook.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the workbook file path.
func (db *DB) Path() string {
	return db.path
}
