package index

import (
	"context"
	"log/slog"

	"github.com/starford/ont/internal/collection"
	"github.com/starford/ont/internal/storage"
	"github.com/starford/ont/internal/watch"
)

// ChangeCallback is called after a watcher-driven sync moved the index.
type ChangeCallback func(changes []Change)

// Watch keeps the index in step with the collection at root until ctx is
// cancelled, syncing once file activity settles. A sync that fails, for
// example on a file that does not parse, is logged and the previous index
// is kept until the next change.
func Watch(ctx context.Context, db SectionIndex, store storage.Provider, root string, logger *slog.Logger, cb ChangeCallback, opts ...collection.Option) error {
	return watch.Run(ctx, root, logger, watch.DefaultDebounce, func(paths []string) {
		changes, err := Sync(db, store, logger, opts...)
		if err != nil {
			logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
			return
		}
		for _, c := range changes {
			logger.Debug("watcher: indexed", slog.String("path", c.Path), slog.String("op", string(c.Kind)))
		}
		if len(changes) > 0 && cb != nil {
			cb(changes)
		}
	})
}
