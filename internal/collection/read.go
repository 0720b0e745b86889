package collection

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/starford/ont/internal/apperr"
	"github.com/starford/ont/internal/outline"
	"github.com/starford/ont/internal/storage"
)

// level is the per-depth indentation of the assembled document.
const level = "  "

// ReadTree loads the directory at root as a collection.
func ReadTree(root string, opts ...Option) (*Collection, error) {
	p, err := storage.NewFS(root)
	if err != nil {
		return nil, err
	}
	return Read(p, opts...)
}

// Read loads the whole tree of p as a collection. Any invalid name,
// extensionless file, non-regular file, indentation conflict or parse
// failure aborts the read.
func Read(p storage.Provider, opts ...Option) (*Collection, error) {
	r := &reader{p: p, opts: newOptions(opts), files: FileSet{}, dirs: FileSet{}}
	if err := r.dir(".", 0); err != nil {
		return nil, err
	}

	text := strings.Join(r.lines, "\n")
	if len(r.lines) > 0 {
		text += "\n"
	}
	tree, _, err := outline.Parse(text)
	if err != nil {
		var pe *outline.ParseError
		if errors.As(err, &pe) && pe.Line > 0 && pe.Line <= len(r.origins) {
			return nil, fmt.Errorf("collection: parse %s: %w", r.origins[pe.Line-1], err)
		}
		return nil, fmt.Errorf("collection: parse: %w", err)
	}

	style := outline.DefaultStyle()
	if r.style.set {
		style = r.style.style
	}
	return &Collection{Tree: tree, Style: style, Root: p.Root(), Ext: r.opts.ext, Files: r.files, Dirs: r.dirs}, nil
}

type entry struct {
	head string
	rel  string
	dir  bool
}

type reader struct {
	p       storage.Provider
	opts    options
	style   styleAcc
	files   FileSet
	dirs    FileSet
	lines   []string
	origins []string // file or directory each assembled line came from
}

func (r *reader) emit(origin, line string) {
	r.lines = append(r.lines, line)
	r.origins = append(r.origins, origin)
}

func (r *reader) dir(dir string, depth int) error {
	infos, err := r.p.ReadDir(dir)
	if err != nil {
		return err
	}

	var entries []entry
	for _, info := range infos {
		name := info.Name()
		rel := path.Join(dir, name)
		if strings.HasPrefix(name, ".") {
			r.opts.logger.Debug("collection: skipping dotfile", slog.String("path", rel))
			continue
		}
		if !ValidName(name) {
			return fmt.Errorf("collection: invalid filename %q: %w", rel, apperr.ErrStructural)
		}
		switch mode := info.Mode(); {
		case mode.IsDir():
			entries = append(entries, entry{head: name + DirMarker, rel: rel, dir: true})
		case mode.IsRegular():
			head, err := r.head(name)
			if err != nil {
				return fmt.Errorf("collection: %s: %w", rel, err)
			}
			entries = append(entries, entry{head: head, rel: rel})
		default:
			return fmt.Errorf("collection: unsupported file type %v at %q: %w", mode.Type(), rel, apperr.ErrStructural)
		}
	}

	// Attributes first, then everything else by headline.
	sort.SliceStable(entries, func(i, j int) bool {
		ci, cj := strings.HasPrefix(entries[i].head, ":"), strings.HasPrefix(entries[j].head, ":")
		if ci != cj {
			return ci
		}
		return entries[i].head < entries[j].head
	})

	prefix := strings.Repeat(level, depth)
	for _, e := range entries {
		if e.dir {
			r.dirs.Add(e.rel)
			r.emit(e.rel, prefix+e.head)
			if err := r.dir(e.rel, depth+1); err != nil {
				return err
			}
			continue
		}
		data, err := r.p.Read(e.rel)
		if err != nil {
			return err
		}
		r.files.Add(e.rel)
		if err := r.file(e.rel, prefix+e.head, string(data), prefix+level); err != nil {
			return err
		}
	}
	return nil
}

// head maps a file name to its headline according to the extension policy.
func (r *reader) head(name string) (string, error) {
	ext := path.Ext(name)
	if ext == "" || ext == name {
		return "", fmt.Errorf("file must have an extension: %w", apperr.ErrStructural)
	}
	switch r.opts.policy {
	case StripAll:
		if i := strings.Index(strings.TrimPrefix(name, ":"), "."); i >= 0 {
			if strings.HasPrefix(name, ":") {
				i++
			}
			return name[:i], nil
		}
	default:
		if base, ok := strings.CutSuffix(name, r.opts.ext); ok && !strings.Contains(base, ".") {
			return base, nil
		}
	}
	return name, nil
}

// file appends the headline for one file and its content. A file without
// a newline is placed on the headline itself, exactly as it is, unless it
// is only whitespace; anything else goes below it,
// one level deeper, with the file's own indentation mapped onto two-space
// levels.
func (r *reader) file(rel, head, text, inner string) error {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.Contains(text, "\n") {
		if strings.TrimSpace(text) != "" {
			head += " " + text
		}
		r.emit(rel, head)
		return nil
	}

	r.emit(rel, head)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	last := len(lines) - 1
	for last >= 0 && strings.TrimSpace(lines[last]) == "" {
		last--
	}
	for i, line := range lines {
		rest := strings.TrimLeft(line, " \t")
		ws := line[:len(line)-len(rest)]
		if rest == "" {
			// Blank lines keep explicit indentation when they have it. Bare
			// blank lines inside the file take their depth from what follows;
			// trailing ones are pinned to the file's own block.
			n, ok := r.style.blank(ws)
			switch {
			case ok && ws != "":
				r.emit(rel, inner+strings.Repeat(level, n))
			case i > last:
				r.emit(rel, inner)
			default:
				r.emit(rel, "")
			}
			continue
		}
		n, err := r.style.observe(ws)
		if err != nil {
			return fmt.Errorf("collection: %s line %d: %w", rel, i+1, err)
		}
		r.emit(rel, inner+strings.Repeat(level, n)+rest)
	}
	return nil
}

// styleAcc is the indentation style shared by every file of a read. The
// first indented line fixes it.
type styleAcc struct {
	style outline.Style
	set   bool
}

// observe returns the nesting level of ws, fixing the style if this is the
// first indentation seen.
func (a *styleAcc) observe(ws string) (int, error) {
	if ws == "" {
		return 0, nil
	}
	if !a.set {
		switch {
		case strings.Trim(ws, "\t") == "":
			a.style = outline.Tabs
		case strings.Trim(ws, " ") == "":
			a.style = outline.Spaces(len(ws))
		default:
			return 0, fmt.Errorf("indentation mixes tabs and spaces: %w", apperr.ErrStructural)
		}
		a.set = true
	}
	unit := a.style.Unit()
	n := len(ws) / len(unit)
	if strings.Repeat(unit, n) != ws {
		return 0, fmt.Errorf("inconsistent indentation %q, collection uses %s: %w", ws, a.style, apperr.ErrStructural)
	}
	return n, nil
}

// blank maps the whitespace of a blank line to a level without fixing or
// enforcing the style.
func (a *styleAcc) blank(ws string) (int, bool) {
	if ws == "" {
		return 0, true
	}
	if !a.set {
		return 0, false
	}
	unit := a.style.Unit()
	n := len(ws) / len(unit)
	return n, strings.Repeat(unit, n) == ws
}
