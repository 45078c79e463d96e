// Package index mirrors the notebook into SQLite for full-text search, with
// FTS5 when built with the sqlite_fts5 tag and a LIKE fallback otherwise.
// The note files stay the source of truth; the mirror can be dropped and
// rebuilt at any time.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// schema is applied in order on every Open; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS notes (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT '',
		checksum   TEXT NOT NULL DEFAULT '',
		tags       TEXT NOT NULL DEFAULT '[]',
		body       TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS notes_updated_at ON notes (updated_at)`,
}

// DB is the search mirror.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the mirror at path.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate() error {
	if err := db.conn.Ping(); err != nil {
		return fmt.Errorf("index: ping: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("index: apply schema: %w", err)
		}
	}
	if err := initFTS(db.conn); err != nil {
		return fmt.Errorf("index: apply fts schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
