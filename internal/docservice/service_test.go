package docservice

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ont/internal/apperr"
	"github.com/starford/ont/internal/checksum"
	"github.com/starford/ont/internal/index"
	"github.com/starford/ont/internal/storage"
)

type env struct {
	svc     *Service
	store   *storage.FS
	changes []index.Change
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "ont.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	e := &env{store: storage.NewMemFS()}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	e.svc = NewService(e.store, db,
		WithLogger(logger),
		WithNotifier(func(c []index.Change) { e.changes = append(e.changes, c...) }))
	return e
}

func TestPutGetDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	d, created, err := e.svc.PutFile(ctx, "notes/a.idm", []byte("hello\n  world\n"), "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, checksum.Sum([]byte("hello\n  world\n")), d.Checksum)
	require.Len(t, d.Sections, 3)
	assert.Equal(t, "a", d.Sections[0].Head)
	assert.Equal(t, []index.Change{{Kind: index.Created, Path: "notes/a.idm"}}, e.changes)

	got, err := e.svc.GetFile(ctx, "notes/a.idm")
	require.NoError(t, err)
	assert.Equal(t, "hello\n  world\n", got.Content)

	_, _, err = e.svc.PutFile(ctx, "notes/a.idm", []byte("x\n"), "stale")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	d, created, err = e.svc.PutFile(ctx, "notes/a.idm", []byte("bye"), got.Checksum)
	require.NoError(t, err)
	assert.False(t, created)
	require.Len(t, d.Sections, 1)
	assert.Equal(t, "a bye", d.Sections[0].Head)

	files, err := e.svc.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)

	require.NoError(t, e.svc.DeleteFile(ctx, "notes/a.idm", ""))
	_, err = e.svc.GetFile(ctx, "notes/a.idm")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, e.svc.DeleteFile(ctx, "notes/a.idm", ""), apperr.ErrNotFound)
	assert.Equal(t, index.Deleted, e.changes[len(e.changes)-1].Kind)

	files, err = e.svc.ListFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestPutFile_IfMatchOnMissingFile(t *testing.T) {
	e := newEnv(t)
	_, _, err := e.svc.PutFile(context.Background(), "a.idm", []byte("x"), "abc")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPutFile_RejectsBadPaths(t *testing.T) {
	e := newEnv(t)
	for _, p := range []string{"", "/abs.idm", "../up.idm", "noext", "a/:attr/b.idm", "bad name.idm", ".hidden.idm", ":.idm"} {
		_, _, err := e.svc.PutFile(context.Background(), p, []byte("x"), "")
		assert.ErrorIs(t, err, apperr.ErrStructural, p)
	}
}

func TestPutFile_RestoresUnreadableCollection(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, _, err := e.svc.PutFile(ctx, "a.idm", []byte("x\n  y\n"), "")
	require.NoError(t, err)

	_, _, err = e.svc.PutFile(ctx, "a.idm", []byte("x\n  y\n   z\n"), "")
	assert.ErrorIs(t, err, apperr.ErrStructural)
	data, err := e.store.Read("a.idm")
	require.NoError(t, err)
	assert.Equal(t, "x\n  y\n", string(data))

	_, _, err = e.svc.PutFile(ctx, "b.idm", []byte("p\n\tq\n"), "")
	assert.ErrorIs(t, err, apperr.ErrStructural)
	_, err = e.store.Read("b.idm")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOutlineAndTags(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, _, err := e.svc.PutFile(ctx, "Projects.idm", []byte(doc(`
		ont
		  :tags go
		  weave
		    :tags scripts
		other
	`)), "")
	require.NoError(t, err)

	view, err := e.svc.Outline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Files)
	assert.Equal(t, "Projects\n  ont\n    :tags go\n    weave\n      :tags scripts\n  other\n", view.Text)

	tagged, err := e.svc.Tagged(ctx, []string{"go"}, 0)
	require.NoError(t, err)
	require.Len(t, tagged, 2)
	assert.Equal(t, "ont", tagged[0].Head)
	assert.Equal(t, "weave", tagged[1].Head)

	text, err := e.svc.TaggedOutline(ctx, []string{"scripts"})
	require.NoError(t, err)
	assert.Equal(t, "Projects\n  ont\n    weave\n      :tags scripts\n", text)

	tags, err := e.svc.Tags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	results, err := e.svc.Search(ctx, "weave", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Projects.idm", results[0].File)
}

func TestWeave(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, _, err := e.svc.PutFile(ctx, "run.idm", []byte(doc(`
		>hello.sh
		  #!/bin/sh
		  echo hi
		==
	`)), "")
	require.NoError(t, err)

	report, err := e.svc.Weave(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Executed())

	d, err := e.svc.GetFile(ctx, "run.idm")
	require.NoError(t, err)
	assert.Contains(t, d.Content, "  :input ")
	assert.Contains(t, d.Content, "==\n  hi\n")

	report, err = e.svc.Weave(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Executed())

	report, err = e.svc.Weave(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Executed())
}

func TestWeave_FailureWritesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	content := doc(`
		>fail.sh
		  #!/bin/sh
		  exit 1
		==
		  old
	`)
	_, _, err := e.svc.PutFile(ctx, "run.idm", []byte(content), "")
	require.NoError(t, err)

	_, err = e.svc.Weave(ctx, false)
	assert.ErrorIs(t, err, apperr.ErrExecution)
	data, err := e.store.Read("run.idm")
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func doc(s string) string {
	return strings.TrimPrefix(dedent.Dedent(s), "\n")
}
