package weave

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/starford/ont/internal/apperr"
)

// waitDelay bounds how long a cancelled script may keep its output pipes
// open.
const waitDelay = 2 * time.Second

// execute runs the script at file through the shell with dir as working
// directory and returns its standard output. Standard error is logged.
func execute(ctx context.Context, dir, file string, opts Options) ([]byte, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, opts.Shell, "-c", file)
	cmd.Dir = dir
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		opts.Logger.Warn("weave: script stderr", slog.String("path", file), slog.String("stderr", msg))
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("script interrupted: %w: %w", apperr.ErrExecution, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return nil, fmt.Errorf("script exited with code %d: %w", exitErr.ExitCode(), apperr.ErrExecution)
	case err != nil:
		return nil, fmt.Errorf("start script: %w: %w", apperr.ErrExecution, err)
	}
	return stdout.Bytes(), nil
}
