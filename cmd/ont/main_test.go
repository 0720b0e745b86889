package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp(strings.NewReader(stdin), &out, &errOut)
	err := app.Run(context.Background(), append([]string{"ont"}, args...))
	require.NoError(t, err, errOut.String())
	return out.String()
}

func TestCat_StdinKeepsStyle(t *testing.T) {
	assert.Equal(t, "a\n\tb\n", run(t, "a\n\tb\n", "cat"))
}

func TestCat_CollectionToStdout(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.idm"), []byte("x\n  y\n"), 0o644))
	assert.Equal(t, "a\n  x\n    y\n", run(t, "", "cat", root))
}

func TestWeave_InPlace(t *testing.T) {
	file := filepath.Join(t.TempDir(), "doc.idm")
	require.NoError(t, os.WriteFile(file, []byte(">hi.sh\n  #!/bin/sh\n  echo hi\n==\n"), 0o644))

	assert.Empty(t, run(t, "", "weave", "-i", file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "==\n  hi\n"), string(data))
	assert.Contains(t, string(data), "  :input ")
}

func TestWeave_WatchNeedsPath(t *testing.T) {
	var out, errOut bytes.Buffer
	app := newApp(strings.NewReader("a\n"), &out, &errOut)
	err := app.Run(context.Background(), []string{"ont", "weave", "--watch"})
	assert.Error(t, err)
}

func TestTagged(t *testing.T) {
	in := "Shop\n  :tags errand\n  milk\nOther\n  thing\n"
	assert.Equal(t, "Shop\n  :tags errand\n  milk\n", run(t, in, "tagged", "errand"))
}

func TestTagged_RequiresTag(t *testing.T) {
	var out, errOut bytes.Buffer
	app := newApp(strings.NewReader(""), &out, &errOut)
	assert.Error(t, app.Run(context.Background(), []string{"ont", "tagged"}))
}

func TestTree(t *testing.T) {
	out := run(t, "a\n  b\nc\n", "tree")
	assert.Contains(t, out, "└── b")
	assert.Contains(t, out, "└── c")
}

func TestIndexAndSearch(t *testing.T) {
	dir := t.TempDir()
	coll := filepath.Join(dir, "notes")
	require.NoError(t, os.MkdirAll(coll, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(coll, "fruit.idm"), []byte("apple\nbanana\n"), 0o644))

	cfg := filepath.Join(dir, "ont.yaml")
	yaml := "collection:\n  path: " + coll + "\nsqlite:\n  path: " + filepath.Join(dir, "ont.db") + "\n"
	require.NoError(t, os.WriteFile(cfg, []byte(yaml), 0o644))

	assert.Equal(t, "created fruit.idm\n", run(t, "", "--config", cfg, "index"))
	assert.Empty(t, run(t, "", "--config", cfg, "index"))

	assert.Contains(t, run(t, "", "--config", cfg, "search", "banana"), "banana")
}
