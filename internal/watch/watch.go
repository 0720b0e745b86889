// Package watch reports settled file-system changes under a directory.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the tree must stay quiet before a batch of
// changes is reported.
const DefaultDebounce = 200 * time.Millisecond

// Func receives the absolute paths touched since the previous call, sorted.
type Func func(paths []string)

// Run watches root until ctx is cancelled and calls fn with every batch of
// changes once they settle for debounce. A directory root is watched
// recursively, directories created later included; a file root is watched
// through its parent so that editors replacing the file are noticed.
// Entries whose name starts with "." are ignored.
func Run(ctx context.Context, root string, logger *slog.Logger, debounce time.Duration, fn Func) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	single := ""
	if info.IsDir() {
		err = addDirsRecursive(w, root)
	} else {
		single = root
		err = w.Add(filepath.Dir(root))
	}
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	logger.Info("watch: started", slog.String("root", root))

	var timer *time.Timer
	var fire <-chan time.Time
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-fire:
			fire = nil
			paths := slices.Sorted(maps.Keys(pending))
			clear(pending)
			logger.Debug("watch: changes settled", slog.Int("paths", len(paths)))
			fn(paths)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(ev.Name)
			if single != "" && name != single {
				continue
			}
			if hidden(root, name) || ev.Op == fsnotify.Chmod {
				continue
			}
			if single == "" && ev.Op.Has(fsnotify.Create) {
				if fi, statErr := os.Stat(name); statErr == nil && fi.IsDir() {
					if addErr := addDirsRecursive(w, name); addErr != nil {
						logger.Warn("watch: add new dir failed",
							slog.String("path", name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watch: watching new dir", slog.String("path", name))
					}
				}
			}
			pending[name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// hidden reports whether any element of name below root starts with ".".
func hidden(root, name string) bool {
	rel, err := filepath.Rel(root, name)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its visible subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
