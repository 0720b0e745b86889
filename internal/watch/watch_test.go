package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) record(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, paths)
}

func (r *recorder) seen(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.batches {
		if slices.Contains(b, path) {
			return true
		}
	}
	return false
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func start(t *testing.T, root string) *recorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := Run(ctx, root, logger, 50*time.Millisecond, rec.record); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	return rec
}

func abs(t *testing.T, p string) string {
	t.Helper()
	a, err := filepath.Abs(p)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestRun_ReportsNewFile(t *testing.T) {
	dir := abs(t, t.TempDir())
	rec := start(t, dir)

	file := filepath.Join(dir, "a.idm")
	if err := os.WriteFile(file, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool { return rec.seen(file) }, "new file was not reported")
}

func TestRun_WatchesNewDirectories(t *testing.T) {
	dir := abs(t, t.TempDir())
	rec := start(t, dir)

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool { return rec.seen(sub) }, "new dir was not reported")

	file := filepath.Join(sub, "b.idm")
	if err := os.WriteFile(file, []byte("y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool { return rec.seen(file) }, "file in new dir was not reported")
}

func TestRun_IgnoresDotfiles(t *testing.T) {
	dir := abs(t, t.TempDir())
	rec := start(t, dir)

	if err := os.WriteFile(filepath.Join(dir, ".ont-tmp-1"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Fatalf("dotfile produced %d batches", n)
	}
}

func TestRun_SingleFile(t *testing.T) {
	dir := abs(t, t.TempDir())
	file := filepath.Join(dir, "doc.idm")
	other := filepath.Join(dir, "other.idm")
	if err := os.WriteFile(file, []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := start(t, file)

	if err := os.WriteFile(other, []byte("b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("a\nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool { return rec.seen(file) }, "watched file was not reported")
	if rec.seen(other) {
		t.Error("sibling file should not be reported")
	}
}

func TestRun_MissingRoot(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	err := Run(context.Background(), filepath.Join(t.TempDir(), "missing"), logger, 0, func([]string) {})
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}
