// Package weave runs the scripts embedded in an outline and splices their
// output back into it.
//
// A script is a section whose head is ">" followed by a relative path and
// whose body is the script text. The section that immediately follows it,
// if its head is "==", receives the parsed standard output. Each script
// records the hash of its path and text in its "input" attribute so that
// unchanged scripts are not run again.
package weave

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/starford/ont/internal/models"
	"github.com/starford/ont/internal/outline"
	"github.com/starford/ont/internal/storage"
)

// DefaultShell runs materialised scripts.
const DefaultShell = "sh"

// Options configures a weave run.
type Options struct {
	// Force runs every runnable script whether or not it changed.
	Force bool
	// Style is used to print script text. Defaults to two spaces.
	Style outline.Style
	// Shell is invoked as `<shell> -c <path>`. Defaults to sh.
	Shell string
	// Timeout bounds each script. Zero means no limit beyond ctx.
	Timeout time.Duration
	// TempDir is the parent of the private script directory. Empty means
	// the system default.
	TempDir string
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Style == (outline.Style{}) {
		o.Style = outline.DefaultStyle()
	}
	if o.Shell == "" {
		o.Shell = DefaultShell
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Report lists every script found by a run, in document order.
type Report struct {
	Scripts []models.ScriptRun `json:"scripts"`
}

// Executed returns the number of scripts that were run.
func (r *Report) Executed() int {
	n := 0
	for _, s := range r.Scripts {
		if s.Executed {
			n++
		}
	}
	return n
}

// Run weaves tree in place. All scripts are written into a fresh temporary
// directory first, then the runnable ones that changed (or all runnable
// ones when forced) are executed one after another in document order. A
// failing script aborts the run and leaves tree untouched.
func Run(ctx context.Context, tree *outline.Outline, opts Options) (*Report, error) {
	opts = opts.withDefaults()

	// The wrapper makes the top level of tree one more body to scan for
	// script and output pairs.
	work := outline.New(outline.NewSection("", *tree.Clone()))

	scripts, err := discover(work, opts.Style)
	if err != nil {
		return nil, err
	}
	report := &Report{Scripts: make([]models.ScriptRun, len(scripts))}
	for i, s := range scripts {
		report.Scripts[i] = models.ScriptRun{Path: s.path, Hash: s.hash, Changed: s.changed, Runnable: s.runnable}
	}
	if len(scripts) == 0 {
		return report, nil
	}

	dir, err := os.MkdirTemp(opts.TempDir, "ont-weave-")
	if err != nil {
		return nil, fmt.Errorf("weave: create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	opts.Logger.Info("weave: materialising scripts", slog.Int("count", len(scripts)), slog.String("dir", dir))
	if err := materialise(dir, scripts); err != nil {
		return nil, err
	}

	replaced := make(map[*outline.Section]bool)
	detached := make([]bool, len(scripts))
	for i, s := range scripts {
		if s.replacedBy(replaced) {
			opts.Logger.Debug("weave: script replaced by earlier output", slog.String("path", s.path))
			detached[i] = true
			continue
		}
		if !s.runnable || !(s.changed || opts.Force) {
			continue
		}
		opts.Logger.Info("weave: running script", slog.String("path", s.path), slog.String("hash", s.hash))
		stdout, err := execute(ctx, dir, filepath.Join(dir, filepath.FromSlash(s.file())), opts)
		if err != nil {
			return nil, fmt.Errorf("weave: %s: %w", s.path, err)
		}
		if out := s.output(); out != nil {
			body, _, err := outline.Parse(string(stdout))
			if err != nil {
				return nil, fmt.Errorf("weave: %s: output: %w", s.path, err)
			}
			out.Body = *body
			replaced[out] = true
		}
		if err := outline.Set(&s.section().Body, InputAttr, []string{s.hash}, outline.Words); err != nil {
			return nil, fmt.Errorf("weave: %s: %w", s.path, err)
		}
		report.Scripts[i].Executed = true
	}

	kept := report.Scripts[:0]
	for i, run := range report.Scripts {
		if !detached[i] {
			kept = append(kept, run)
		}
	}
	report.Scripts = kept

	*tree = work.Children[0].Body
	return report, nil
}

// scope is the discovery context of a section.
type scope struct {
	inScript bool
	outputs  []*outline.Section
}

func (c scope) Clone() scope {
	c.outputs = slices.Clip(c.outputs)
	return c
}

// discover collects the scripts of o in document order. Script bodies are
// never searched for further scripts. Each script remembers the output
// sections it was found in.
func discover(o *outline.Outline, style outline.Style) ([]*script, error) {
	var scripts []*script
	err := outline.Walk(o, scope{}, func(ctx *scope, s *outline.Section) error {
		if ctx.inScript {
			return outline.SkipChildren
		}
		if _, ok := ScriptPath(s.Head); ok {
			ctx.inScript = true
			return nil
		}
		if s.Head == OutputMarker {
			ctx.outputs = append(ctx.outputs, s)
		}
		for i := range s.Body.Children {
			sc, ok, err := newScript(&s.Body, i, style)
			if err != nil {
				return fmt.Errorf("weave: %s: %w", s.Body.Children[i].Head, err)
			}
			if ok {
				sc.outputs = ctx.outputs
				scripts = append(scripts, sc)
			}
		}
		return nil
	})
	return scripts, err
}

// materialise writes every script into dir. Runnable ones are made
// executable.
func materialise(dir string, scripts []*script) error {
	fs, err := storage.NewFS(dir)
	if err != nil {
		return fmt.Errorf("weave: %w", err)
	}
	for _, s := range scripts {
		if err := fs.Write(s.file(), []byte(s.text)); err != nil {
			return fmt.Errorf("weave: %w", err)
		}
		if s.runnable {
			if err := fs.Chmod(s.file(), 0o700); err != nil {
				return fmt.Errorf("weave: %w", err)
			}
		}
	}
	return nil
}
