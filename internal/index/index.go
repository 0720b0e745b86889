package index

import "github.com/starford/ont/internal/models"

// SectionIndex is the read side of the index plus the full rebuild used by
// Sync. Consumers depend on it rather than on *DB.
type SectionIndex interface {
	Rebuild(files []models.FileMeta, sections []models.Section) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Files() ([]models.FileMeta, error)
	Section(id int64) (*models.Section, error)
	Sections(file string) ([]models.Section, error)
	Tagged(tags []string, limit int) ([]models.Section, error)
	TagCounts() ([]models.TagCount, error)
	Search(query string, limit int) ([]models.SearchResult, error)
	Close() error
}

var _ SectionIndex = (*DB)(nil)
