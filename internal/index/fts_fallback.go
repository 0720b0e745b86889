//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/ont/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the sections table.
	return nil
}

func ftsClear(_ *sql.Tx) error { return nil }

func ftsInsert(_ *sql.Tx, _ int64, _ models.Section) error { return nil }

// Search performs a LIKE-based search over heads, bodies and tags
// (fallback when FTS5 is not compiled in). The snippet is the head.
func (db *DB) Search(query string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT `+sectionColumns+`, s.head
		FROM sections s
		WHERE s.head LIKE ? OR s.body LIKE ? OR s.tags LIKE ?
		ORDER BY s.file, s.ord
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		if r.Section, err = scanSection(rows, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
