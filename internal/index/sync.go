package index

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/ont/internal/collection"
	"github.com/starford/ont/internal/models"
	"github.com/starford/ont/internal/storage"
)

// ChangeKind is one of "created", "updated" and "deleted".
type ChangeKind string

const (
	Created ChangeKind = "created"
	Updated ChangeKind = "updated"
	Deleted ChangeKind = "deleted"
)

// Change is one file whose indexed state moved.
type Change struct {
	Kind ChangeKind `json:"kind"`
	Path string     `json:"path"`
}

// Sync compares the collection files with the index and, when any file
// was added, changed or removed, reads the collection and rebuilds the
// index from it. It returns the file changes, sorted by path. Inherited
// tags cross file boundaries, so any change rebuilds every row.
//
// A collection that fails to read leaves the index untouched.
func Sync(db SectionIndex, store storage.Provider, logger *slog.Logger, opts ...collection.Option) ([]Change, error) {
	metas, err := store.List("", "")
	if err != nil {
		return nil, fmt.Errorf("index: sync: %w", err)
	}
	indexed, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	changes := diff(indexed, metas)
	if len(changes) == 0 {
		logger.Debug("sync: index up to date", slog.Int("files", len(metas)))
		return nil, nil
	}

	c, err := collection.Read(store, opts...)
	if err != nil {
		return nil, fmt.Errorf("index: sync: %w", err)
	}
	sections, err := Extract(c.Tree, c.Ext)
	if err != nil {
		return nil, fmt.Errorf("index: sync: %w", err)
	}
	if err := db.Rebuild(metas, sections); err != nil {
		return nil, err
	}

	logger.Info("sync: indexed",
		slog.Int("files", len(metas)),
		slog.Int("sections", len(sections)),
		slog.Int("changes", len(changes)))
	return changes, nil
}

func diff(indexed map[string]string, metas []models.FileMeta) []Change {
	var changes []Change
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		cs, ok := indexed[m.Path]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: Created, Path: m.Path})
		case cs != m.Checksum:
			changes = append(changes, Change{Kind: Updated, Path: m.Path})
		}
	}
	for p := range indexed {
		if _, ok := disk[p]; !ok {
			changes = append(changes, Change{Kind: Deleted, Path: p})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}
