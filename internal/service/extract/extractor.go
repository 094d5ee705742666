package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/stager/internal/config"
)

var (
	// ErrDecompressionFailed is returned when an archive could not be extracted.
	ErrDecompressionFailed = errors.New("decompression failed")
	// ErrUnsafePath is returned for archive entries that would land outside the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")

	errUnknownExtractor = errors.New("unknown extractor")
)

// Extractor decompresses an archive into its working directory,
// sending all diagnostic output to logFile.
type Extractor interface {
	Extract(ctx context.Context, archive, logFile string) error
}

// ExitError reports a non-zero exit status of the unzip utility.
type ExitError struct {
	// Archive is the archive that was being extracted.
	Archive string
	// Code is the exit status.
	Code int
	// LogFile holds the utility's output.
	LogFile string
}

// Error describes the failure and points at the log.
func (e *ExitError) Error() string {
	return fmt.Sprintf("unzip %s exited with status %d, check %s", e.Archive, e.Code, e.LogFile)
}

// Unwrap lets callers match ErrDecompressionFailed with errors.Is.
func (e *ExitError) Unwrap() error { return ErrDecompressionFailed }

// New returns the extractor selected by kind, working in dir.
// An empty dir means the current working directory.
//
//nolint:ireturn // Callers only need the Extractor behaviour.
func New(kind config.Extractor, dir string) (Extractor, error) {
	switch kind {
	case config.ExtractorUnzip, "":
		return NewShellExtractor(dir)
	case config.ExtractorNative:
		return NewNativeExtractor(dir), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownExtractor, kind)
	}
}

// resolveDir turns an empty dir into the current working directory.
func resolveDir(dir string) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	return wd, nil
}

// resolvePath interprets p relative to dir.
func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	return filepath.Join(dir, p)
}
