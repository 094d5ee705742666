package extract

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/oshokin/stager/internal/config"
)

// NativeExtractor inflates zip archives without an external utility.
// Its log mimics the unzip listing so both backends leave the same trail.
type NativeExtractor struct {
	dir string
}

// NewNativeExtractor returns an extractor writing into dir.
func NewNativeExtractor(dir string) *NativeExtractor {
	return &NativeExtractor{dir: dir}
}

// Extract unpacks archive into the working directory.
func (e *NativeExtractor) Extract(ctx context.Context, archive, logFile string) (err error) {
	dir, err := resolveDir(e.dir)
	if err != nil {
		return err
	}

	logHandle, err := os.OpenFile(resolvePath(dir, logFile), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	log := bufio.NewWriter(logHandle)

	defer func() {
		if err != nil {
			_, _ = fmt.Fprintf(log, "error: %v\n", err)
		}

		flushErr := log.Flush()
		closeErr := logHandle.Close()

		if err == nil && flushErr != nil {
			err = fmt.Errorf("write log file: %w", flushErr)
		}

		if err == nil && closeErr != nil {
			err = fmt.Errorf("close log file: %w", closeErr)
		}
	}()

	if err = e.unpack(ctx, dir, archive, log); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecompressionFailed, archive, err)
	}

	return nil
}

func (e *NativeExtractor) unpack(ctx context.Context, dir, archive string, log io.Writer) error {
	reader, err := zip.OpenReader(resolvePath(dir, archive))
	if err != nil {
		return err
	}

	defer func() {
		_ = reader.Close()
	}()

	_, _ = fmt.Fprintf(log, "Archive:  %s\n", archive)

	var target string

	for _, file := range reader.File {
		if err = ctx.Err(); err != nil {
			return err
		}

		target, err = entryTarget(dir, file.Name)
		if err != nil {
			return err
		}

		mode := file.Mode()

		switch {
		case mode.IsDir():
			_, _ = fmt.Fprintf(log, "   creating: %s\n", file.Name)

			if err = os.MkdirAll(target, config.DefaultDirPermissions); err != nil {
				return err
			}
		case mode&os.ModeSymlink != 0:
			_, _ = fmt.Fprintf(log, "   skipping: %s (symbolic link)\n", file.Name)
		default:
			_, _ = fmt.Fprintf(log, "  inflating: %s\n", file.Name)

			if err = writeEntry(file, target); err != nil {
				return err
			}
		}
	}

	return nil
}

// entryTarget maps an entry name to a path inside dir.
func entryTarget(dir, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	target := filepath.Join(dir, filepath.FromSlash(name))

	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	return target, nil
}

func writeEntry(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), config.DefaultDirPermissions); err != nil {
		return err
	}

	perm := file.Mode().Perm()
	if perm == 0 {
		perm = config.DefaultFilePermissions
	}

	src, err := file.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = src.Close()
	}()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}

	return dst.Close()
}
