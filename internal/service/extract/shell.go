package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// unzipScript overwrites without prompting and captures both streams in one log.
const unzipScript = `unzip -o "$1" > "$2" 2>&1`

// ShellExtractor runs the unzip utility through an in-process POSIX shell.
type ShellExtractor struct {
	dir  string
	prog *syntax.File
}

// NewShellExtractor parses the unzip script once for reuse across components.
func NewShellExtractor(dir string) (*ShellExtractor, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(unzipScript), "unzip")
	if err != nil {
		return nil, fmt.Errorf("parse unzip script: %w", err)
	}

	return &ShellExtractor{
		dir:  dir,
		prog: prog,
	}, nil
}

// Extract runs `unzip -o archive > logFile 2>&1` and checks its exit status.
// A missing unzip binary shows up as exit status 127.
func (e *ShellExtractor) Extract(ctx context.Context, archive, logFile string) error {
	dir, err := resolveDir(e.dir)
	if err != nil {
		return err
	}

	// "--" ends the shell's own option parsing only; unzip itself still parses
	// "$1", so component names starting with "-" are rejected on validation.
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, io.Discard, io.Discard),
		interp.Params("--", archive, logFile),
	)
	if err != nil {
		return fmt.Errorf("create shell: %w", err)
	}

	err = runner.Run(ctx, e.prog)
	if err == nil {
		return nil
	}

	if status, ok := interp.IsExitStatus(err); ok {
		return &ExitError{
			Archive: archive,
			Code:    int(status),
			LogFile: logFile,
		}
	}

	return fmt.Errorf("%w: %s: %w", ErrDecompressionFailed, archive, err)
}
