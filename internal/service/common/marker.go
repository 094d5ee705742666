//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/stager/internal/config"
	"github.com/oshokin/stager/internal/logger"
)

const (
	// MarkerFilename marks that a stager run is in progress in the working directory.
	MarkerFilename = ".stager-marker"

	// markerLifetime is how long a marker without a readable PID is trusted.
	markerLifetime = 30 * time.Second
)

// ErrStagerRunning is returned when another live process holds the run marker.
var ErrStagerRunning = errors.New("another stager run is in progress")

// ReleaseFunc removes a marker created by AcquireMarker.
type ReleaseFunc func()

// AcquireMarker claims the run marker at path for the current process.
func AcquireMarker(ctx context.Context, path string) (ReleaseFunc, error) {
	if path == "" {
		path = MarkerFilename
	}

	path = filepath.Clean(path)

	if IsStagerRunningNow(ctx, path) {
		return nil, ErrStagerRunning
	}

	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid), config.DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("write run marker: %w", err)
	}

	logger.DebugKV(ctx, "Run marker acquired", "path", path, "pid", pid)

	release := func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to remove run marker", "path", path, "error", err)
		}
	}

	return release, nil
}

// IsStagerRunningNow reports whether the marker at path belongs to another live process.
func IsStagerRunningNow(ctx context.Context, path string) bool {
	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug(ctx, "Run marker not found, continuing")
		return false
	}

	if err != nil {
		logger.Warnf(ctx, "Unable to read run marker: %v", err)
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		return isFresh(path)
	}

	if pid == os.Getpid() {
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		logger.WarnKV(ctx, "Unable to inspect run marker owner", "pid", pid, "error", err)
		return true
	}

	if process == nil {
		logger.InfoKV(ctx, "The run marker is stale, replacing it", "pid", pid)
		return false
	}

	logger.WarnKV(ctx, "Another stager run holds the marker",
		"pid", pid, "executable", process.Executable())

	return true
}

func isFresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return time.Since(info.ModTime()) <= markerLifetime
}
