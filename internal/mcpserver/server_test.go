package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ont/internal/storage"
	"github.com/starford/ont/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	svc, store := testutil.TestService(t)
	return New(svc, "test"), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "read_outline":
		result, err = srv.readOutline(ctx, req)
	case "search_sections":
		result, err = srv.searchSections(ctx, req)
	case "tagged":
		result, err = srv.tagged(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "list_files":
		result, err = srv.listFiles(ctx, req)
	case "read_file":
		result, err = srv.readFile(ctx, req)
	case "write_file":
		result, err = srv.writeFile(ctx, req)
	case "weave":
		result, err = srv.weave(ctx, req)
	case "get_format_contract":
		result, err = srv.getFormatContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestWriteAndReadFile(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "write_file", map[string]any{
		"path":    "todo.idm",
		"content": "milk\nbread\n",
	})
	if r.IsError {
		t.Fatalf("write failed: %s", resultText(r))
	}
	if text := resultText(r); !strings.HasPrefix(text, "created: todo.idm") {
		t.Errorf("write result = %q", text)
	}

	r = callTool(t, srv, "read_file", map[string]any{"path": "todo.idm"})
	text := resultText(r)
	if !strings.HasSuffix(text, "\n\nmilk\nbread\n") {
		t.Errorf("read result = %q", text)
	}

	r = callTool(t, srv, "write_file", map[string]any{
		"path":     "todo.idm",
		"content":  "eggs\n",
		"if_match": "stale",
	})
	if !r.IsError {
		t.Error("expected conflict for stale if_match")
	}
}

func TestReadFileMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_file", map[string]any{"path": "nope.idm"})
	if !r.IsError {
		t.Error("expected error for missing file")
	}
}

func TestWriteFileRejectsBadIndent(t *testing.T) {
	srv, store := testServer(t)
	r := callTool(t, srv, "write_file", map[string]any{
		"path":    "bad.idm",
		"content": "a\n  b\n   c\n",
	})
	if !r.IsError {
		t.Fatal("expected error for inconsistent indentation")
	}
	if _, err := store.Read("bad.idm"); err == nil {
		t.Error("rejected file was left on disk")
	}
}

func TestListFiles(t *testing.T) {
	srv, _ := testServer(t)
	for path, content := range map[string]string{"a.idm": "x", "notes/b.idm": "y"} {
		r := callTool(t, srv, "write_file", map[string]any{"path": path, "content": content})
		if r.IsError {
			t.Fatalf("write %s: %s", path, resultText(r))
		}
	}

	r := callTool(t, srv, "list_files", map[string]any{})
	if text := resultText(r); text != "a.idm\nnotes/b.idm" {
		t.Errorf("list = %q", text)
	}

	r = callTool(t, srv, "list_files", map[string]any{"folder": "notes"})
	if text := resultText(r); text != "notes/b.idm" {
		t.Errorf("list notes = %q", text)
	}
}

func TestOutlineAndTags(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "write_file", map[string]any{
		"path":    "home.idm",
		"content": "Groceries\n  :tags shop\n  milk\nChores\n  sweep\n",
	})
	if r.IsError {
		t.Fatalf("write: %s", resultText(r))
	}

	r = callTool(t, srv, "read_outline", map[string]any{})
	if text := resultText(r); !strings.Contains(text, "Chores") {
		t.Errorf("outline = %q", text)
	}

	r = callTool(t, srv, "read_outline", map[string]any{"tags": "shop"})
	text := resultText(r)
	if !strings.Contains(text, "Groceries") || strings.Contains(text, "Chores") {
		t.Errorf("tagged outline = %q", text)
	}

	r = callTool(t, srv, "list_tags", map[string]any{})
	if text := resultText(r); text != "shop 1\n" {
		t.Errorf("tags = %q", text)
	}

	r = callTool(t, srv, "tagged", map[string]any{"tags": "shop", "limit": float64(10)})
	var sections []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &sections); err != nil {
		t.Fatalf("tagged result: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("tagged = %d sections, want 1", len(sections))
	}
}

func TestSearchSections(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "write_file", map[string]any{
		"path":    "a.idm",
		"content": "alpha\nbeta\n",
	})

	r := callTool(t, srv, "search_sections", map[string]any{"query": "beta"})
	if r.IsError {
		t.Fatalf("search: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "beta") {
		t.Errorf("search = %q", resultText(r))
	}

	r = callTool(t, srv, "search_sections", map[string]any{})
	if !r.IsError {
		t.Error("expected error without query")
	}
}

func TestWeave(t *testing.T) {
	srv, store := testServer(t)
	callTool(t, srv, "write_file", map[string]any{
		"path":    "run.idm",
		"content": ">hi.sh\n  #!/bin/sh\n  echo hi\n==\n",
	})

	r := callTool(t, srv, "weave", map[string]any{"force": true})
	if r.IsError {
		t.Fatalf("weave: %s", resultText(r))
	}
	data, err := store.Read("run.idm")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "==\n  hi\n") {
		t.Errorf("woven file = %q", data)
	}
}

func TestFormatContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_format_contract", map[string]any{})
	if resultText(r) != OutlineFormatContract {
		t.Error("contract mismatch")
	}
}
