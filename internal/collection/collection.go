// Package collection projects outlines onto directory trees and back.
//
// Directories become sections whose head carries a trailing "/", files
// become sections (or, when their name starts with ":", attributes) whose
// body is the file content. Reading assembles the tree into one outline
// document and parses it; writing serialises the whole tree into a file
// map before anything touches the disk.
package collection

import (
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/starford/ont/internal/apperr"
	"github.com/starford/ont/internal/outline"
)

// DefaultExtension marks outline files. It is implicit in headlines.
const DefaultExtension = ".idm"

// DirMarker ends the head of a section that maps to a directory.
const DirMarker = "/"

var validName = regexp.MustCompile(`^:?[A-Za-z0-9_-][.A-Za-z0-9_-]*$`)

// ValidName reports whether name is acceptable as a file or directory name
// in a collection.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// Entry describes the file or directory a headline maps to. Inline is the
// headline text after the first space, kept exactly.
type Entry struct {
	Name      string
	Dir       bool
	Inline    string // single-line file content carried on the headline
	HasInline bool
}

// EntryFor maps a child headline to its directory entry, adding ext to file
// names without a period. ok is false for blank headlines, which map to
// nothing; invalid names are reported as errors.
func EntryFor(head, ext string) (e Entry, ok bool, err error) {
	if strings.TrimSpace(head) == "" {
		return Entry{}, false, nil
	}
	name, isDir := strings.CutSuffix(head, DirMarker)
	e.Dir = isDir
	if !isDir {
		name, e.Inline, e.HasInline = strings.Cut(name, " ")
	}
	if strings.HasPrefix(name, ":") || !ValidName(name) {
		return Entry{}, false, fmt.Errorf("collection: bad headline %q: %w", head, apperr.ErrStructural)
	}
	if !isDir && !strings.Contains(name, ".") {
		name += ext
	}
	e.Name = name
	return e, true, nil
}

// ExtensionPolicy decides how file names map to headlines.
type ExtensionPolicy int

const (
	// StripConventional removes the conventional extension when the rest
	// of the name has no period, so that writing restores it. Every other
	// name is kept whole.
	StripConventional ExtensionPolicy = iota
	// StripAll removes everything from the first period on. Names with
	// other extensions come back with the conventional one on write.
	StripAll
)

func (p ExtensionPolicy) String() string {
	if p == StripAll {
		return "all"
	}
	return "conventional"
}

// ParseExtensionPolicy parses "conventional" or "all".
func ParseExtensionPolicy(s string) (ExtensionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "conventional":
		return StripConventional, nil
	case "all":
		return StripAll, nil
	default:
		return 0, fmt.Errorf("collection: unknown extension policy %q", s)
	}
}

// FileSet is a set of slash-separated paths relative to a collection root.
type FileSet map[string]struct{}

func (s FileSet) Add(p string) { s[p] = struct{}{} }

func (s FileSet) Has(p string) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the paths in lexical order.
func (s FileSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// Collection is an outline loaded from a directory.
type Collection struct {
	Tree  *outline.Outline
	Style outline.Style
	// Root is the absolute directory the collection was read from. It is
	// empty for collections that did not come from a directory.
	Root string
	// Ext is the conventional extension the collection was read with.
	Ext string
	// Files holds every leaf file read. It is only used to find orphans
	// when the collection is saved back to Root.
	Files FileSet
	// Dirs holds every directory read, for the same purpose.
	Dirs FileSet
}

// Option configures reading and writing.
type Option func(*options)

type options struct {
	ext    string
	policy ExtensionPolicy
	logger *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{ext: DefaultExtension, policy: StripConventional, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithExtension sets the conventional extension, leading period included.
func WithExtension(ext string) Option {
	return func(o *options) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if ext != "" {
			o.ext = ext
		}
	}
}

// WithExtensionPolicy sets how file names map to headlines.
func WithExtensionPolicy(p ExtensionPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithLogger sets the logger for skipped entries and deletions.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
