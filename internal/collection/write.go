package collection

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/ont/internal/apperr"
	"github.com/starford/ont/internal/outline"
	"github.com/starford/ont/internal/storage"
)

// Build serialises tree into file contents keyed by slash-separated path.
// Nothing is written; any bad attribute name, bad headline or two entries
// claiming the same file fail the whole build.
func Build(tree *outline.Outline, style outline.Style, opts ...Option) (map[string][]byte, error) {
	l, err := plan(tree, style, newOptions(opts))
	if err != nil {
		return nil, err
	}
	return l.files, nil
}

// layout is the serialised form of a tree: file contents plus every
// directory, so that empty ones can be created too.
type layout struct {
	files map[string][]byte
	dirs  FileSet
}

func plan(tree *outline.Outline, style outline.Style, o options) (*layout, error) {
	l := &layout{files: map[string][]byte{}, dirs: FileSet{}}
	if err := l.build(".", tree, style, o.ext); err != nil {
		return nil, err
	}
	for _, d := range l.dirs.Sorted() {
		if _, clash := l.files[d]; clash {
			return nil, fmt.Errorf("collection: %s is both a file and a directory: %w", d, apperr.ErrStructural)
		}
	}
	return l, nil
}

func (l *layout) build(dir string, o *outline.Outline, style outline.Style, ext string) error {
	for name, value := range o.Attrs.All() {
		if strings.HasPrefix(name, ":") || !ValidName(name) {
			return fmt.Errorf("collection: bad attribute name %q in %s: %w", name, dir, apperr.ErrStructural)
		}
		content := value
		if strings.Contains(value, "\n") {
			content = outline.FormatValue(value, style)
		}
		if err := l.put(path.Join(dir, ":"+name+ext), content); err != nil {
			return err
		}
	}

	for i := range o.Children {
		s := &o.Children[i]
		e, ok, err := EntryFor(s.Head, ext)
		if err != nil {
			return err
		}
		if !ok {
			// Blank lines between entries have nowhere to go, but content
			// under a blank headline would be lost.
			if !s.Body.IsEmpty() {
				return fmt.Errorf("collection: blank headline with a body in %s: %w", dir, apperr.ErrStructural)
			}
			continue
		}
		if e.Dir {
			sub := path.Join(dir, e.Name)
			l.dirs.Add(sub)
			if err := l.build(sub, &s.Body, style, ext); err != nil {
				return err
			}
			continue
		}
		content := outline.Format(&s.Body, style)
		if e.HasInline {
			if !s.Body.IsEmpty() {
				return fmt.Errorf("collection: headline %q in %s has both inline content and a body: %w", s.Head, dir, apperr.ErrStructural)
			}
			content = e.Inline
		}
		if err := l.put(path.Join(dir, e.Name), content); err != nil {
			return err
		}
	}
	return nil
}

func (l *layout) put(p, content string) error {
	if _, dup := l.files[p]; dup {
		return fmt.Errorf("collection: two entries map to %s: %w", p, apperr.ErrStructural)
	}
	l.files[p] = []byte(content)
	return nil
}

// WriteTree writes tree below root, creating it if needed, and returns the
// set of files that make up the tree. Files already holding the right
// content are left alone. Directory sections without files become empty
// directories.
func WriteTree(root string, style outline.Style, tree *outline.Outline, opts ...Option) (FileSet, error) {
	p, err := open(root)
	if err != nil {
		return nil, err
	}
	return Write(p, style, tree, opts...)
}

// Write is WriteTree for an arbitrary provider.
func Write(p storage.Provider, style outline.Style, tree *outline.Outline, opts ...Option) (FileSet, error) {
	written, _, err := write(p, style, tree, newOptions(opts))
	return written, err
}

func write(p storage.Provider, style outline.Style, tree *outline.Outline, o options) (FileSet, *layout, error) {
	l, err := plan(tree, style, o)
	if err != nil {
		return nil, nil, err
	}
	written := FileSet{}
	for _, rel := range setOf(l.files).Sorted() {
		content := l.files[rel]
		if existing, err := p.Read(rel); err == nil && bytes.Equal(existing, content) {
			written.Add(rel)
			continue
		}
		if err := p.Write(rel, content); err != nil {
			return written, l, err
		}
		written.Add(rel)
	}
	if err := mkdirs(p, l.dirs); err != nil {
		return written, l, err
	}
	return written, l, nil
}

func mkdirs(p storage.Provider, dirs FileSet) error {
	for _, d := range dirs.Sorted() {
		if err := p.Mkdir(d); err != nil {
			return err
		}
	}
	return nil
}

func setOf(files map[string][]byte) FileSet {
	s := make(FileSet, len(files))
	for p := range files {
		s.Add(p)
	}
	return s
}

// Save writes c to root. When root is the directory c was read from, files
// that were read but are no longer part of the tree are removed with a
// tidy delete, as are directories that were read, are no longer in the
// tree and are left empty.
func Save(c *Collection, root string, opts ...Option) (FileSet, error) {
	p, err := open(root)
	if err != nil {
		return nil, err
	}
	return SaveTo(c, p, opts...)
}

// SaveTo is Save for an arbitrary provider.
func SaveTo(c *Collection, p storage.Provider, opts ...Option) (FileSet, error) {
	o := newOptions(opts)
	written, l, err := write(p, c.Style, c.Tree, o)
	if err != nil {
		return written, err
	}
	if !sameRoot(c.Root, p.Root()) {
		return written, nil
	}
	for _, rel := range c.Files.Sorted() {
		if written.Has(rel) {
			continue
		}
		o.logger.Info("collection: removing orphan", slog.String("path", rel))
		if err := p.TidyDelete(rel); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return written, err
		}
	}
	// Deepest first, so that nested orphans are gone before their parents
	// are checked.
	dirs := c.Dirs.Sorted()
	slices.Reverse(dirs)
	for _, d := range dirs {
		if l.dirs.Has(d) {
			continue
		}
		infos, err := p.ReadDir(d)
		if err != nil || len(infos) > 0 {
			continue
		}
		o.logger.Info("collection: removing orphan directory", slog.String("path", d))
		if err := p.TidyDelete(d); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return written, err
		}
	}
	// Tidy deletes may have pruned directories the tree still holds.
	if err := mkdirs(p, l.dirs); err != nil {
		return written, err
	}
	c.Files = written
	c.Dirs = l.dirs
	return written, nil
}

func sameRoot(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

func open(root string) (*storage.FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("collection: resolve %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("collection: mkdir %s: %w", root, err)
	}
	return storage.NewFS(abs)
}
