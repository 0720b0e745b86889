package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/starford/ont/internal/apperr"
	"github.com/starford/ont/internal/checksum"
	"github.com/starford/ont/internal/models"
)

// TempPrefix starts the name of every in-flight atomic write.
const TempPrefix = ".ont-tmp-"

// FS implements Provider on top of a billy filesystem.
type FS struct {
	root string
	fs   billy.Filesystem
}

// NewFS creates a provider bound to the given directory on disk.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, fs: osfs.New(abs, osfs.WithBoundOS())}, nil
}

var memCount atomic.Int64

// NewMemFS creates an empty in-memory provider. Each one gets a distinct
// root name.
func NewMemFS() *FS {
	return &FS{root: fmt.Sprintf("mem:%d", memCount.Add(1)), fs: memfs.New()}
}

// Root returns the absolute directory the provider is bound to, or the
// name of an in-memory provider.
func (f *FS) Root() string { return f.root }

// safePath cleans a relative slash path and rejects anything that would
// leave the root.
func safePath(rel string) (string, error) {
	if rel == "" || rel == "." {
		return ".", nil
	}
	rel = filepath.ToSlash(rel)
	if path.IsAbs(rel) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s: %w", rel, apperr.ErrForbidden)
	}
	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("storage: path escapes root: %s: %w", rel, apperr.ErrForbidden)
	}
	return cleaned, nil
}

// ReadDir lists dir sorted by name. Entries describe the directory entry
// itself, so symlinks are reported as symlinks.
func (f *FS) ReadDir(dir string) ([]fs.FileInfo, error) {
	rel, err := safePath(dir)
	if err != nil {
		return nil, err
	}
	infos, err := f.fs.ReadDir(rel)
	if err != nil {
		return nil, fmt.Errorf("storage: read dir %s: %w", dir, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

// Read returns the raw bytes of a file.
func (f *FS) Read(p string) ([]byte, error) {
	rel, err := safePath(p)
	if err != nil {
		return nil, err
	}
	data, err := util.ReadFile(f.fs, rel)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// Write atomically writes content: temp file in the target directory,
// then rename over the destination.
func (f *FS) Write(p string, content []byte) error {
	rel, err := safePath(p)
	if err != nil {
		return err
	}
	if rel == "." {
		return fmt.Errorf("storage: cannot write to root: %w", apperr.ErrForbidden)
	}
	dir := path.Dir(rel)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := util.TempFile(f.fs, dir, TempPrefix)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := path.Join(dir, filepath.Base(tmp.Name()))

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = f.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := f.fs.Rename(tmpName, rel); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Chmod changes the mode of a file when the backend supports it.
func (f *FS) Chmod(p string, mode fs.FileMode) error {
	rel, err := safePath(p)
	if err != nil {
		return err
	}
	ch, ok := f.fs.(billy.Chmod)
	if !ok {
		return errors.New("storage: backend does not support chmod")
	}
	if err := ch.Chmod(rel, mode); err != nil {
		return fmt.Errorf("storage: chmod %s: %w", p, err)
	}
	return nil
}

// Mkdir creates a directory below the root along with its parents.
func (f *FS) Mkdir(p string) error {
	rel, err := safePath(p)
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}
	if err := f.fs.MkdirAll(rel, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", p, err)
	}
	return nil
}

// Delete removes a file.
func (f *FS) Delete(p string) error {
	rel, err := safePath(p)
	if err != nil {
		return err
	}
	if err := f.fs.Remove(rel); err != nil {
		return fmt.Errorf("storage: delete %s: %w", p, err)
	}
	return nil
}

// TidyDelete removes a file and prunes the directories it leaves empty.
// The root itself is never removed.
func (f *FS) TidyDelete(p string) error {
	if err := f.Delete(p); err != nil {
		return err
	}
	rel, _ := safePath(p)
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		entries, err := f.fs.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("storage: read dir %s: %w", dir, err)
		}
		if len(entries) > 0 {
			break
		}
		if err := f.fs.Remove(dir); err != nil {
			return fmt.Errorf("storage: prune %s: %w", dir, err)
		}
	}
	return nil
}

// List walks dir and returns metadata for every regular file whose name
// ends in ext. Hidden entries are skipped.
func (f *FS) List(dir, ext string) ([]models.FileMeta, error) {
	base, err := safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.FileMeta
	var walk func(dir string) error
	walk = func(dir string) error {
		infos, err := f.fs.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, info := range infos {
			if strings.HasPrefix(info.Name(), ".") {
				continue
			}
			p := path.Join(dir, info.Name())
			if info.IsDir() {
				if err := walk(p); err != nil {
					return err
				}
				continue
			}
			if !info.Mode().IsRegular() || !strings.HasSuffix(info.Name(), ext) {
				continue
			}
			data, err := util.ReadFile(f.fs, p)
			if err != nil {
				return err
			}
			out = append(out, models.FileMeta{
				Path:      p,
				Checksum:  checksum.Sum(data),
				UpdatedAt: info.ModTime(),
			})
		}
		return nil
	}
	if err := walk(base); err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
