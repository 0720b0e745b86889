// Package docservice coordinates the collection on disk, the section index
// and weaving for the API and MCP front ends.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/starford/ont/internal/apperr"
	"github.com/starford/ont/internal/checksum"
	"github.com/starford/ont/internal/collection"
	"github.com/starford/ont/internal/index"
	"github.com/starford/ont/internal/models"
	"github.com/starford/ont/internal/outline"
	"github.com/starford/ont/internal/storage"
	"github.com/starford/ont/internal/weave"
)

// OutlineView is the whole collection rendered as one document.
type OutlineView struct {
	Text  string `json:"text"`
	Style string `json:"style"`
	Files int    `json:"files"`
}

// FileDetail is one collection file with its indexed sections.
type FileDetail struct {
	Path     string           `json:"path"`
	Content  string           `json:"content"`
	Checksum string           `json:"checksum"`
	Sections []models.Section `json:"sections"`
}

// Service coordinates storage, index and weave operations. Writes to the
// collection are serialised.
type Service struct {
	store  storage.Provider
	db     index.SectionIndex
	logger *slog.Logger
	copts  []collection.Option
	wopts  weave.Options
	notify func([]index.Change)
	woven  func(*weave.Report)

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithCollectionOptions sets the options used to read and write the
// collection.
func WithCollectionOptions(opts ...collection.Option) Option {
	return func(s *Service) { s.copts = opts }
}

// WithWeaveOptions sets the base options of Weave. Force and Style are
// chosen per run.
func WithWeaveOptions(o weave.Options) Option {
	return func(s *Service) { s.wopts = o }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithNotifier registers fn to receive the index changes caused by the
// service's own writes.
func WithNotifier(fn func([]index.Change)) Option {
	return func(s *Service) { s.notify = fn }
}

// WithWeaveNotifier registers fn to receive the report of every
// successful Weave.
func WithWeaveNotifier(fn func(*weave.Report)) Option {
	return func(s *Service) { s.woven = fn }
}

// NewService creates a new document service.
func NewService(store storage.Provider, db index.SectionIndex, opts ...Option) *Service {
	s := &Service{store: store, db: db, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	if s.wopts.Logger == nil {
		s.wopts.Logger = s.logger
	}
	return s
}

// Outline reads the collection and renders it in its own style.
func (s *Service) Outline(_ context.Context) (*OutlineView, error) {
	c, err := collection.Read(s.store, s.copts...)
	if err != nil {
		return nil, err
	}
	return &OutlineView{
		Text:  outline.Format(c.Tree, c.Style),
		Style: c.Style.String(),
		Files: len(c.Files),
	}, nil
}

// TaggedOutline returns the branches of the collection that lead to
// sections tagged with all of tags, rendered in the collection's style.
func (s *Service) TaggedOutline(_ context.Context, tags []string) (string, error) {
	c, err := collection.Read(s.store, s.copts...)
	if err != nil {
		return "", err
	}
	out, err := outline.Tagged(c.Tree, tags, false)
	if err != nil {
		return "", err
	}
	return outline.Format(out, c.Style), nil
}

// GetFile reads one collection file.
func (s *Service) GetFile(_ context.Context, p string) (*FileDetail, error) {
	if err := validatePath(p); err != nil {
		return nil, err
	}
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("docservice: %s: %w", p, apperr.ErrNotFound)
		}
		return nil, err
	}
	return s.detail(p, data)
}

// PutFile creates or replaces a file. A non-empty ifMatch must equal the
// checksum of the current content. When the new content leaves the
// collection unreadable the previous state is restored and the read error
// returned. created reports whether the file is new.
func (s *Service) PutFile(_ context.Context, p string, content []byte, ifMatch string) (detail *FileDetail, created bool, err error) {
	if err := validatePath(p); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Read(p)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}
	if ifMatch != "" {
		if !exists {
			return nil, false, fmt.Errorf("docservice: %s: %w", p, apperr.ErrNotFound)
		}
		if ifMatch != checksum.Sum(existing) {
			return nil, false, fmt.Errorf("docservice: %s: checksum mismatch: %w", p, apperr.ErrConflict)
		}
	}

	if err := s.store.Write(p, content); err != nil {
		return nil, false, err
	}
	if _, err := s.sync(); err != nil {
		var restoreErr error
		if exists {
			restoreErr = s.store.Write(p, existing)
		} else {
			restoreErr = s.store.TidyDelete(p)
		}
		if restoreErr != nil {
			s.logger.Error("docservice: restore failed", slog.String("path", p), slog.String("error", restoreErr.Error()))
		}
		return nil, false, err
	}

	detail, err = s.detail(p, content)
	return detail, !exists, err
}

// DeleteFile removes a file, pruning directories it leaves empty. A
// non-empty ifMatch must equal the checksum of the current content.
func (s *Service) DeleteFile(_ context.Context, p, ifMatch string) error {
	if err := validatePath(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("docservice: %s: %w", p, apperr.ErrNotFound)
		}
		return err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return fmt.Errorf("docservice: %s: checksum mismatch: %w", p, apperr.ErrConflict)
	}
	if err := s.store.TidyDelete(p); err != nil {
		return err
	}
	_, err = s.sync()
	return err
}

// ListFiles returns the indexed files.
func (s *Service) ListFiles(_ context.Context) ([]models.FileMeta, error) {
	return nonNil(s.db.Files())
}

// Sections returns the indexed sections of one file.
func (s *Service) Sections(_ context.Context, file string) ([]models.Section, error) {
	return nonNil(s.db.Sections(file))
}

// Section returns one indexed section.
func (s *Service) Section(_ context.Context, id int64) (*models.Section, error) {
	return s.db.Section(id)
}

// Tagged returns the indexed sections tagged with all of tags.
func (s *Service) Tagged(_ context.Context, tags []string, limit int) ([]models.Section, error) {
	return nonNil(s.db.Tagged(tags, limit))
}

// Tags returns the tag histogram.
func (s *Service) Tags(_ context.Context) ([]models.TagCount, error) {
	return nonNil(s.db.TagCounts())
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.SearchResult, error) {
	return nonNil(s.db.Search(query, limit))
}

// Weave runs the collection's scripts and saves the result. Nothing is
// written when a script fails.
func (s *Service) Weave(ctx context.Context, force bool) (*weave.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := collection.Read(s.store, s.copts...)
	if err != nil {
		return nil, err
	}
	opts := s.wopts
	opts.Force = force
	opts.Style = c.Style
	report, err := weave.Run(ctx, c.Tree, opts)
	if err != nil {
		return nil, err
	}
	if report.Executed() > 0 {
		written, err := collection.SaveTo(c, s.store, s.copts...)
		if err != nil {
			return nil, err
		}
		s.logger.Info("docservice: woven",
			slog.Int("scripts", len(report.Scripts)),
			slog.Int("executed", report.Executed()),
			slog.Int("files", len(written)))
		if _, err := s.sync(); err != nil {
			return nil, err
		}
	}
	if s.woven != nil {
		s.woven(report)
	}
	return report, nil
}

// Sync brings the index up to date with the collection.
func (s *Service) Sync(_ context.Context) ([]index.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync()
}

func (s *Service) sync() ([]index.Change, error) {
	changes, err := index.Sync(s.db, s.store, s.logger, s.copts...)
	if err != nil {
		return nil, err
	}
	if len(changes) > 0 && s.notify != nil {
		s.notify(changes)
	}
	return changes, nil
}

func (s *Service) detail(p string, data []byte) (*FileDetail, error) {
	sections, err := nonNil(s.db.Sections(path.Clean(p)))
	if err != nil {
		return nil, err
	}
	return &FileDetail{
		Path:     path.Clean(p),
		Content:  string(data),
		Checksum: checksum.Sum(data),
		Sections: sections,
	}, nil
}

// validatePath accepts slash paths whose every element is a valid
// collection name and whose last element has an extension. Only the last
// element may be an attribute file.
func validatePath(p string) error {
	bad := func(reason string) error {
		return fmt.Errorf("docservice: bad file path %q: %s: %w", p, reason, apperr.ErrStructural)
	}
	if p == "" || strings.HasPrefix(p, "/") {
		return bad("must be relative")
	}
	parts := strings.Split(path.Clean(p), "/")
	for i, part := range parts {
		last := i == len(parts)-1
		switch {
		case part == "..":
			return bad("escapes the collection")
		case !collection.ValidName(part):
			return bad("invalid name")
		case !last && strings.HasPrefix(part, ":"):
			return bad("attribute directory")
		case last:
			if ext := path.Ext(part); ext == "" || ext == part || strings.TrimPrefix(part, ":") == ext {
				return bad("file must have an extension")
			}
		}
	}
	return nil
}

func nonNil[T any](s []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if s == nil {
		return []T{}, nil
	}
	return s, nil
}
