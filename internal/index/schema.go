// Package index keeps a SQLite mirror of a collection's sections for tag
// queries and full-text search. FTS5 is used when built with the
// sqlite_fts5 tag.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS files (
	path       TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sections (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	file      TEXT NOT NULL,
	ord       INTEGER NOT NULL,
	depth     INTEGER NOT NULL,
	head      TEXT NOT NULL,
	trail     TEXT NOT NULL DEFAULT '[]',
	tags      TEXT NOT NULL DEFAULT '[]',
	own_tags  TEXT NOT NULL DEFAULT '[]',
	uris      TEXT NOT NULL DEFAULT '[]',
	important INTEGER NOT NULL DEFAULT 0,
	body      TEXT NOT NULL DEFAULT '',
	UNIQUE(file, ord)
);

CREATE TABLE IF NOT EXISTS section_tags (
	section_id INTEGER NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
	tag        TEXT NOT NULL,
	own        INTEGER NOT NULL DEFAULT 0,
	UNIQUE(section_id, tag)
);

CREATE INDEX IF NOT EXISTS idx_sections_file ON sections(file);
CREATE INDEX IF NOT EXISTS idx_section_tags_tag ON section_tags(tag);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
