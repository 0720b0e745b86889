// Package pipe abstracts where a command reads its outline from and where
// it writes the result: standard streams, a single outline file or a
// collection directory.
package pipe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/ont/internal/collection"
	"github.com/starford/ont/internal/outline"
	"github.com/starford/ont/internal/storage"
)

// Stdio names standard input or standard output.
const Stdio = "-"

var (
	ErrInPlaceStdin  = errors.New("pipe: cannot rewrite standard input in place")
	ErrInPlaceOutput = errors.New("pipe: in-place rewrite cannot take an output")
)

// Args selects the input and output of a pipe.
type Args struct {
	// Input is "-", a file or a collection directory.
	Input string
	// Output is "-", a file or a directory. Empty means standard output,
	// or the input itself when InPlace is set.
	Output  string
	InPlace bool
}

type kind int

const (
	fromStdin kind = iota
	fromFile
	fromCollection
)

// Pipe is an opened input together with its destination.
type Pipe struct {
	kind       kind
	path       string
	content    string
	collection *collection.Collection

	dest   string
	stdout io.Writer
	opts   []collection.Option
}

// Open reads the input named by args. Collections are read with opts.
func Open(args Args, stdin io.Reader, stdout io.Writer, opts ...collection.Option) (*Pipe, error) {
	if args.Input == "" {
		args.Input = Stdio
	}
	if args.InPlace && args.Input == Stdio {
		return nil, ErrInPlaceStdin
	}
	if args.InPlace && args.Output != "" {
		return nil, ErrInPlaceOutput
	}

	p := &Pipe{stdout: stdout, opts: opts}
	switch {
	case args.Input == Stdio:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("pipe: read stdin: %w", err)
		}
		p.kind, p.content = fromStdin, string(data)
	default:
		info, err := os.Stat(args.Input)
		if err != nil {
			return nil, fmt.Errorf("pipe: %w", err)
		}
		p.path = args.Input
		switch {
		case info.IsDir():
			c, err := collection.ReadTree(args.Input, opts...)
			if err != nil {
				return nil, err
			}
			p.kind, p.collection = fromCollection, c
		case info.Mode().IsRegular():
			data, err := os.ReadFile(args.Input)
			if err != nil {
				return nil, fmt.Errorf("pipe: %w", err)
			}
			p.kind, p.content = fromFile, string(data)
		default:
			return nil, fmt.Errorf("pipe: input is not a file or a directory: %s", args.Input)
		}
	}

	switch {
	case args.InPlace:
		p.dest = args.Input
	case args.Output == "":
		p.dest = Stdio
	default:
		p.dest = args.Output
	}
	return p, nil
}

// Text returns the input as outline text in its own style.
func (p *Pipe) Text() string {
	if p.kind == fromCollection {
		return outline.Format(p.collection.Tree, p.collection.Style)
	}
	return p.content
}

// Outline returns a fresh copy of the parsed input.
func (p *Pipe) Outline() (*outline.Outline, error) {
	if p.kind == fromCollection {
		return p.collection.Tree.Clone(), nil
	}
	o, _, err := outline.Parse(p.content)
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	return o, nil
}

// Style is the indentation style of the input. Text inputs without any
// indentation get the default style.
func (p *Pipe) Style() outline.Style {
	if p.kind == fromCollection {
		return p.collection.Style
	}
	if style, ok, err := outline.InferStyle(p.content); err == nil && ok {
		return style
	}
	return outline.DefaultStyle()
}

// InPlace reports whether the destination is the input itself.
func (p *Pipe) InPlace() bool {
	return p.kind != fromStdin && p.dest == p.path
}

// Dest returns the destination path, "-" for standard output.
func (p *Pipe) Dest() string { return p.dest }

// Write sends o to the destination in the input's style. A directory
// destination, or one ending in a path separator, receives a collection;
// rewriting a collection in place also removes the files that dropped out
// of the tree. Destinations that already hold the same content are not
// rewritten.
func (p *Pipe) Write(o *outline.Outline) error {
	style := p.Style()
	if p.dest == Stdio {
		_, err := io.WriteString(p.stdout, outline.Format(o, style))
		return err
	}

	if p.isDirDest() {
		if p.kind == fromCollection && p.InPlace() {
			c := *p.collection
			c.Tree = o
			if _, err := collection.Save(&c, p.dest, p.opts...); err != nil {
				return err
			}
			p.collection.Files = c.Files
			return nil
		}
		_, err := collection.WriteTree(p.dest, style, o, p.opts...)
		return err
	}
	return writeFile(p.dest, outline.Format(o, style))
}

func (p *Pipe) isDirDest() bool {
	if strings.HasSuffix(p.dest, "/") || strings.HasSuffix(p.dest, string(filepath.Separator)) {
		return true
	}
	info, err := os.Stat(p.dest)
	return err == nil && info.IsDir()
}

// writeFile atomically replaces path with text unless it already holds it.
func writeFile(path, text string) error {
	if existing, err := os.ReadFile(path); err == nil && string(existing) == text {
		return nil
	}
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	fs, err := storage.NewFS(dir)
	if err != nil {
		return fmt.Errorf("pipe: %w", err)
	}
	return fs.Write(name, []byte(text))
}
