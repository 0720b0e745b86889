package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/ont/internal/apperr"
	"github.com/starford/ont/internal/models"
)

const sectionColumns = `s.id, s.file, s.ord, s.depth, s.head, s.trail, s.tags, s.own_tags, s.uris, s.important, s.body`

const defaultLimit = 50

type scanner interface {
	Scan(dest ...any) error
}

// scanSection reads sectionColumns, followed by extra, from sc.
func scanSection(sc scanner, extra ...any) (models.Section, error) {
	var s models.Section
	var trail, tags, own, uris string
	dest := append([]any{&s.ID, &s.File, &s.Ord, &s.Depth, &s.Head, &trail, &tags, &own, &uris, &s.Important, &s.Body}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return s, err
	}
	for _, f := range []struct {
		raw string
		dst *[]string
	}{{trail, &s.Trail}, {tags, &s.Tags}, {own, &s.OwnTags}, {uris, &s.URIs}} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return s, fmt.Errorf("index: decode section %d: %w", s.ID, err)
		}
	}
	return s, nil
}

func collectSections(rows *sql.Rows) ([]models.Section, error) {
	defer rows.Close()
	var out []models.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func jsonList(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// Rebuild replaces the whole index with files and sections in one
// transaction.
func (db *DB) Rebuild(files []models.FileMeta, sections []models.Section) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, q := range []string{`DELETE FROM section_tags`, `DELETE FROM sections`, `DELETE FROM files`} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("index: clear: %w", err)
		}
	}
	if err := ftsClear(tx); err != nil {
		return err
	}

	fileStmt, err := tx.Prepare(`INSERT INTO files (path, checksum, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare file insert: %w", err)
	}
	defer fileStmt.Close()
	for _, f := range files {
		updated := f.UpdatedAt
		if updated.IsZero() {
			updated = time.Now()
		}
		if _, err := fileStmt.Exec(f.Path, f.Checksum, updated.UTC()); err != nil {
			return fmt.Errorf("index: insert file: %w", err)
		}
	}

	secStmt, err := tx.Prepare(`
		INSERT INTO sections (file, ord, depth, head, trail, tags, own_tags, uris, important, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare section insert: %w", err)
	}
	defer secStmt.Close()
	tagStmt, err := tx.Prepare(`INSERT OR IGNORE INTO section_tags (section_id, tag, own) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare tag insert: %w", err)
	}
	defer tagStmt.Close()

	for _, s := range sections {
		res, err := secStmt.Exec(s.File, s.Ord, s.Depth, s.Head,
			jsonList(s.Trail), jsonList(s.Tags), jsonList(s.OwnTags), jsonList(s.URIs), s.Important, s.Body)
		if err != nil {
			return fmt.Errorf("index: insert section %s#%d: %w", s.File, s.Ord, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("index: section id: %w", err)
		}
		own := make(map[string]bool, len(s.OwnTags))
		for _, t := range s.OwnTags {
			own[t] = true
		}
		for _, t := range s.Tags {
			if _, err := tagStmt.Exec(id, t, own[t]); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
		if err := ftsInsert(tx, id, s); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a file, or an empty string
// if the file is not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM files WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums maps every indexed file path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Files lists the indexed files by path.
func (db *DB) Files() ([]models.FileMeta, error) {
	rows, err := db.conn.Query(`SELECT path, checksum, updated_at FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: files: %w", err)
	}
	defer rows.Close()
	var out []models.FileMeta
	for rows.Next() {
		var m models.FileMeta
		if err := rows.Scan(&m.Path, &m.Checksum, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Section returns one section by id.
func (db *DB) Section(id int64) (*models.Section, error) {
	row := db.conn.QueryRow(`SELECT `+sectionColumns+` FROM sections s WHERE s.id = ?`, id)
	s, err := scanSection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: section %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: section %d: %w", id, err)
	}
	return &s, nil
}

// Sections returns the sections of file in document order.
func (db *DB) Sections(file string) ([]models.Section, error) {
	rows, err := db.conn.Query(`SELECT `+sectionColumns+` FROM sections s WHERE s.file = ? ORDER BY s.ord`, file)
	if err != nil {
		return nil, fmt.Errorf("index: sections: %w", err)
	}
	return collectSections(rows)
}

// Tagged returns the sections that carry tags of their own and whose
// effective tags include all of tags, in collection order. With no tags it
// returns every section that has tags of its own.
func (db *DB) Tagged(tags []string, limit int) ([]models.Section, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	q := `SELECT ` + sectionColumns + ` FROM sections s WHERE s.own_tags != '[]'`
	var args []any
	if len(tags) > 0 {
		distinct := make(map[string]struct{}, len(tags))
		for _, t := range tags {
			distinct[t] = struct{}{}
			args = append(args, t)
		}
		q += ` AND s.id IN (
			SELECT section_id FROM section_tags
			WHERE tag IN (?` + strings.Repeat(", ?", len(tags)-1) + `)
			GROUP BY section_id
			HAVING COUNT(DISTINCT tag) = ?
		)`
		args = append(args, len(distinct))
	}
	q += ` ORDER BY s.file, s.ord LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: tagged: %w", err)
	}
	return collectSections(rows)
}

// TagCounts returns how many sections carry each tag of their own, most
// used first.
func (db *DB) TagCounts() ([]models.TagCount, error) {
	rows, err := db.conn.Query(`
		SELECT tag, COUNT(*) AS n
		FROM section_tags
		WHERE own = 1
		GROUP BY tag
		ORDER BY n DESC, tag
	`)
	if err != nil {
		return nil, fmt.Errorf("index: tag counts: %w", err)
	}
	defer rows.Close()
	var out []models.TagCount
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}
