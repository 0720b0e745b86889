// Package models defines the domain types shared by the index, the API and
// the MCP server.
package models

import "time"

// FileMeta is the lightweight description of one collection file.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Section is one indexed headline together with everything inherited
// from the sections enclosing it.
type Section struct {
	ID        int64    `json:"id"`
	File      string   `json:"file"`
	Ord       int      `json:"ord"`
	Depth     int      `json:"depth"`
	Head      string   `json:"head"`
	Trail     []string `json:"trail,omitempty"` // heads of the enclosing sections
	Tags      []string `json:"tags,omitempty"`  // effective tags, inherited ones included
	OwnTags   []string `json:"own_tags,omitempty"`
	URIs      []string `json:"uris,omitempty"`
	Important bool     `json:"important,omitempty"`
	Body      string   `json:"body,omitempty"`
}

// SearchResult is a section hit with a highlighted snippet.
type SearchResult struct {
	Section
	Snippet string `json:"snippet,omitempty"`
}

// ScriptRun describes one weave script as seen during a run.
type ScriptRun struct {
	Path     string `json:"path"`
	Hash     string `json:"hash"`
	Changed  bool   `json:"changed"`
	Runnable bool   `json:"runnable"`
	Executed bool   `json:"executed"`
}

// TagCount is the number of sections carrying a tag of their own.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
