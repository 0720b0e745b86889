// Package testutil provides shared test helpers for setting up collections,
// section indexes and services.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ont/internal/docservice"
	"github.com/starford/ont/internal/index"
	"github.com/starford/ont/internal/storage"
)

// TestDB creates a temporary SQLite index that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "ont-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestCollection creates a temporary collection directory holding files
// and returns it with a storage provider bound to it.
func TestCollection(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	return dir, store
}

// QuietLogger only reports errors.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestService builds a docservice over a fresh collection and index.
func TestService(t *testing.T, opts ...docservice.Option) (*docservice.Service, *storage.FS) {
	t.Helper()
	_, store := TestCollection(t, nil)
	opts = append([]docservice.Option{docservice.WithLogger(QuietLogger())}, opts...)
	return docservice.NewService(store, TestDB(t), opts...), store
}
