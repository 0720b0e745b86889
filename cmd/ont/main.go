package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ont/internal"
	pkgconfig "github.com/starford/ont/pkg/config"
)

var version = "dev"

// loadConfig reads the --config file, falling back to defaults when it
// does not exist.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// cliLogger writes human readable logs to stderr, keeping stdout free for
// outline output.
func cliLogger(cmd *cli.Command, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	s := streams{in: stdin, out: stdout, err: stderr}
	return &cli.Command{
		Name:      "ont",
		Usage:     "Indented outlines as files, directories and live documents",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "ont.yaml",
				Value:       "ont.yaml",
				Sources:     cli.EnvVars("ONT_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug output to stderr",
			},
		},
		Commands: []*cli.Command{
			s.catCommand(),
			s.weaveCommand(),
			s.treeCommand(),
			s.taggedCommand(),
			s.indexCommand(),
			s.searchCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}
}

func main() {
	if err := newApp(os.Stdin, os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
