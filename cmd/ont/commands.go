package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/starford/ont/internal"
	"github.com/starford/ont/internal/index"
	"github.com/starford/ont/internal/outline"
	"github.com/starford/ont/internal/pipe"
	"github.com/starford/ont/internal/storage"
	"github.com/starford/ont/internal/watch"
	"github.com/starford/ont/internal/weave"
)

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func pipeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to a file, or to a collection when the path is a directory or ends in /",
		},
		&cli.BoolFlag{
			Name:    "in-place",
			Aliases: []string{"i"},
			Usage:   "Rewrite the input file or collection",
		},
	}
}

// env is what every outline command starts from.
type env struct {
	cfg    *internal.Config
	logger *slog.Logger
}

func (s streams) env(cmd *cli.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: cliLogger(cmd, s.err)}, nil
}

func (s streams) open(cmd *cli.Command, e *env, input string) (*pipe.Pipe, error) {
	args := pipe.Args{Input: input, Output: cmd.String("output"), InPlace: cmd.Bool("in-place")}
	return pipe.Open(args, s.in, s.out, e.cfg.Collection.Options(e.logger)...)
}

func (s streams) catCommand() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "Print or convert an outline file or collection",
		ArgsUsage: "[INPUT]",
		Flags:     pipeFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := s.env(cmd)
			if err != nil {
				return err
			}
			p, err := s.open(cmd, e, cmd.Args().First())
			if err != nil {
				return err
			}
			o, err := p.Outline()
			if err != nil {
				return err
			}
			return p.Write(o)
		},
	}
}

func (s streams) weaveCommand() *cli.Command {
	flags := append(pipeFlags(),
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "Run every runnable script, changed or not",
		},
		&cli.BoolFlag{
			Name:    "watch",
			Aliases: []string{"w"},
			Usage:   "Keep running and weave again whenever the input changes",
		},
		&cli.StringFlag{
			Name:  "shell",
			Usage: "Shell used to run scripts (overrides weave.shell)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Limit for each script (overrides weave.timeout)",
		},
	)

	return &cli.Command{
		Name:      "weave",
		Usage:     "Run changed scripts and splice their output into the outline",
		ArgsUsage: "[INPUT]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := s.env(cmd)
			if err != nil {
				return err
			}
			input := cmd.Args().First()

			opts := e.cfg.Weave.Options(e.logger)
			if cmd.IsSet("shell") {
				opts.Shell = cmd.String("shell")
			}
			if cmd.IsSet("timeout") {
				opts.Timeout = cmd.Duration("timeout")
			}

			run := func(force bool) error {
				p, err := s.open(cmd, e, input)
				if err != nil {
					return err
				}
				o, err := p.Outline()
				if err != nil {
					return err
				}
				opts.Force = force
				opts.Style = p.Style()
				report, err := weave.Run(ctx, o, opts)
				if err != nil {
					return err
				}
				e.logger.Info("weave: done",
					slog.Int("scripts", len(report.Scripts)),
					slog.Int("executed", report.Executed()))
				return p.Write(o)
			}

			if err := run(cmd.Bool("force")); err != nil {
				return err
			}
			if !cmd.Bool("watch") {
				return nil
			}

			if input == "" || input == pipe.Stdio {
				return fmt.Errorf("weave: --watch needs a file or collection input")
			}
			root, err := filepath.Abs(input)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch.Run(ctx, root, e.logger, watch.DefaultDebounce, func([]string) {
				if err := run(false); err != nil {
					e.logger.Error("weave: failed", slog.String("error", err.Error()))
				}
			})
		},
	}
}

func (s streams) treeCommand() *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Draw the structure of an outline",
		ArgsUsage: "[INPUT]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "attrs",
				Aliases: []string{"a"},
				Usage:   "Include attribute lines",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := s.env(cmd)
			if err != nil {
				return err
			}
			input := cmd.Args().First()
			p, err := pipe.Open(pipe.Args{Input: input}, s.in, s.out, e.cfg.Collection.Options(e.logger)...)
			if err != nil {
				return err
			}
			o, err := p.Outline()
			if err != nil {
				return err
			}
			label := input
			if label == "" {
				label = pipe.Stdio
			}
			return renderTree(s.out, label, o, cmd.Bool("attrs"))
		},
	}
}

func (s streams) taggedCommand() *cli.Command {
	return &cli.Command{
		Name:      "tagged",
		Usage:     "Show the sections tagged with every given tag",
		ArgsUsage: "TAG...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "from",
				Aliases: []string{"f"},
				Usage:   "Outline file or collection to search",
				Value:   pipe.Stdio,
			},
			&cli.BoolFlag{
				Name:  "flat",
				Usage: "List the matching sections instead of the pruned tree",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			tags := cmd.Args().Slice()
			if len(tags) == 0 {
				return fmt.Errorf("tagged: at least one tag is required")
			}
			e, err := s.env(cmd)
			if err != nil {
				return err
			}
			p, err := pipe.Open(pipe.Args{Input: cmd.String("from")}, s.in, s.out, e.cfg.Collection.Options(e.logger)...)
			if err != nil {
				return err
			}
			o, err := p.Outline()
			if err != nil {
				return err
			}
			matches, err := outline.Tagged(o, tags, cmd.Bool("flat"))
			if err != nil {
				return err
			}
			return p.Write(matches)
		},
	}
}

// openIndex syncs the configured collection into the configured index.
func openIndex(e *env) (*index.DB, []index.Change, error) {
	store, err := storage.NewFS(e.cfg.Collection.Path)
	if err != nil {
		return nil, nil, err
	}
	db, err := index.Open(e.cfg.SQLite.Path)
	if err != nil {
		return nil, nil, err
	}
	changes, err := index.Sync(db, store, e.logger, e.cfg.Collection.Options(e.logger)...)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, changes, nil
}

func (s streams) indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Bring the section index up to date with the collection",
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := s.env(cmd)
			if err != nil {
				return err
			}
			db, changes, err := openIndex(e)
			if err != nil {
				return err
			}
			defer db.Close()
			for _, c := range changes {
				fmt.Fprintf(s.out, "%s %s\n", c.Kind, c.Path)
			}
			return nil
		},
	}
}

func (s streams) searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search through the indexed sections",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of results",
				Value:   20,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			query := cmd.Args().First()
			if query == "" {
				return fmt.Errorf("search: query is required")
			}
			e, err := s.env(cmd)
			if err != nil {
				return err
			}
			db, _, err := openIndex(e)
			if err != nil {
				return err
			}
			defer db.Close()

			results, err := db.Search(query, cmd.Int("limit"))
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(s.out, "%s:%d %s\n", r.File, r.Ord, r.Head)
				if r.Snippet != "" && r.Snippet != r.Head {
					fmt.Fprintf(s.out, "  %s\n", r.Snippet)
				}
			}
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the collection over HTTP with live change events",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the collection as MCP tools on stdin/stdout",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
		},
	}
}
