package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/u-root/u-root/pkg/cp"

	"github.com/oshokin/stager/internal/logger"
)

// ErrSourceNotFound is returned when the header tree to publish does not exist.
var ErrSourceNotFound = errors.New("header source not found")

// Options tunes a publish run.
type Options struct {
	// VerifyChecksums re-hashes every copied file against its source.
	VerifyChecksums bool
}

// Summary describes what a publish run wrote.
type Summary struct {
	// Files is the number of regular files copied.
	Files int
	// Dirs is the number of directories created or reused, including the root.
	Dirs int
	// Verified is the number of files whose checksum was compared.
	Verified int
}

// copiedFile pairs a source file with its published copy.
type copiedFile struct {
	src, dst string
}

// Publish recursively copies src into dst, creating missing directories and
// overwriting files that already exist.
func Publish(ctx context.Context, src, dst string, opts *Options) (*Summary, error) {
	if opts == nil {
		opts = new(Options)
	}

	src, dst = filepath.Clean(src), filepath.Clean(dst)

	info, err := os.Stat(src)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
	}

	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", src, err)
	}

	var (
		summary = new(Summary)
		pending = make(map[string]bool)
		copied  []copiedFile
	)

	copier := cp.Options{
		PreCallback: func(from, _ string, fi os.FileInfo) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			pending[from] = fi.Mode().IsRegular()

			return nil
		},
		PostCallback: func(from, to string) {
			regular, ok := pending[from]
			if !ok {
				return
			}

			delete(pending, from)

			if !regular {
				summary.Dirs++
				return
			}

			summary.Files++

			copied = append(copied, copiedFile{src: from, dst: to})
		},
	}

	logger.DebugKV(ctx, "Copying header tree", "from", src, "to", dst)

	if err = copier.CopyTree(src, dst); err != nil {
		return nil, fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}

	if !opts.VerifyChecksums {
		return summary, nil
	}

	for _, file := range copied {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		if err = VerifyCopy(file.src, file.dst); err != nil {
			return nil, err
		}

		summary.Verified++
	}

	logger.DebugKV(ctx, "Published headers verified", "files", summary.Verified)

	return summary, nil
}
