package stager

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/stager/internal/config"
	"github.com/oshokin/stager/internal/domain/staging"
	"github.com/oshokin/stager/internal/service/extract"
)

var dlib = staging.Component{Name: "dlib", Version: "18.6"}

// failingExtractor simulates unzip exiting with a non-zero status.
type failingExtractor struct {
	calls int
}

func (f *failingExtractor) Extract(_ context.Context, archive, logFile string) error {
	f.calls++

	return &extract.ExitError{Archive: archive, Code: 9, LogFile: logFile}
}

// inWorkDir switches the test into a fresh working directory.
func inWorkDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	chdir(t, dir)

	return dir
}

// writeArchive creates name in the working directory with the given entries.
func writeArchive(t *testing.T, name string, entries map[string]string) {
	t.Helper()

	f, err := os.Create(name)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	for entry, body := range entries {
		w, err := zw.Create(entry)
		require.NoError(t, err)

		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func newNativeStager(t *testing.T, mutate func(*config.Config)) *Stager {
	t.Helper()

	cfg := config.Default("include")
	cfg.Extractor = config.ExtractorNative

	if mutate != nil {
		mutate(cfg)
	}

	s, err := New(cfg, extract.NewNativeExtractor(""))
	require.NoError(t, err)

	return s
}

// TestStage_PublishesHeaders publishes dlib-18.6/dlib/foo.h as include/dlib/foo.h byte for byte.
func TestStage_PublishesHeaders(t *testing.T) {
	inWorkDir(t)

	writeArchive(t, "dlib-18.6.zip", map[string]string{
		"dlib-18.6/dlib/foo.h":          "#pragma once\nint foo();\n",
		"dlib-18.6/dlib/image/filter.h": "#pragma once\n",
		"dlib-18.6/examples/demo.cpp":   "int main() {}\n",
	})

	s := newNativeStager(t, func(cfg *config.Config) { cfg.VerifyChecksums = true })

	result, err := s.Stage(context.Background(), dlib)
	require.NoError(t, err)

	require.Equal(t, staging.OutcomeAbsent, result.ExtractDir)
	require.Equal(t, staging.OutcomeAbsent, result.PublishDir)
	require.Equal(t, staging.OutcomeExtracted, result.Extraction)
	require.Equal(t, 2, result.FilesCopied)
	require.Equal(t, config.DefaultLogFilename, result.LogFile)

	got, err := os.ReadFile(filepath.Join("include", "dlib", "foo.h"))
	require.NoError(t, err)
	require.Equal(t, "#pragma once\nint foo();\n", string(got))

	// Nested destination directories are created on the fly.
	require.FileExists(t, filepath.Join("include", "dlib", "image", "filter.h"))
	// Only the header subdirectory is published.
	require.NoFileExists(t, filepath.Join("include", "dlib", "demo.cpp"))
	require.NoDirExists(t, filepath.Join("include", "examples"))
}

// TestStage_RemovesStaleHeaders drops headers that are not in the new archive.
func TestStage_RemovesStaleHeaders(t *testing.T) {
	inWorkDir(t)

	require.NoError(t, os.MkdirAll(filepath.Join("include", "dlib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("include", "dlib", "old.h"), []byte("stale"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join("include", "eigen"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("include", "eigen", "Core"), []byte("keep"), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join("dlib-18.6", "leftover"), 0o755))

	writeArchive(t, "dlib-18.6.zip", map[string]string{"dlib-18.6/dlib/foo.h": "foo"})

	result, err := newNativeStager(t, nil).Stage(context.Background(), dlib)
	require.NoError(t, err)

	require.Equal(t, staging.OutcomeRemoved, result.ExtractDir)
	require.Equal(t, staging.OutcomeRemoved, result.PublishDir)
	require.NoFileExists(t, filepath.Join("include", "dlib", "old.h"))
	require.NoDirExists(t, filepath.Join("dlib-18.6", "leftover"))
	require.FileExists(t, filepath.Join("include", "dlib", "foo.h"))

	// Other components under the include root are left alone.
	require.FileExists(t, filepath.Join("include", "eigen", "Core"))
}

// TestStage_Idempotent yields the same published tree when run twice.
func TestStage_Idempotent(t *testing.T) {
	inWorkDir(t)

	writeArchive(t, "dlib-18.6.zip", map[string]string{
		"dlib-18.6/dlib/a.h":     "a",
		"dlib-18.6/dlib/sub/b.h": "b",
	})

	s := newNativeStager(t, nil)

	first, err := s.Stage(context.Background(), dlib)
	require.NoError(t, err)

	snapshot := readTree(t, filepath.Join("include", "dlib"))

	second, err := s.Stage(context.Background(), dlib)
	require.NoError(t, err)

	require.Equal(t, snapshot, readTree(t, filepath.Join("include", "dlib")))
	require.Equal(t, first.FilesCopied, second.FilesCopied)
	require.Equal(t, staging.OutcomeRemoved, second.ExtractDir)
	require.Equal(t, staging.OutcomeRemoved, second.PublishDir)
}

// TestStage_LogOverwritten replaces the log between runs with different archives.
func TestStage_LogOverwritten(t *testing.T) {
	inWorkDir(t)

	s := newNativeStager(t, nil)

	writeArchive(t, "dlib-18.6.zip", map[string]string{
		"dlib-18.6/dlib/a.h": "a",
		"dlib-18.6/dlib/b.h": "b",
		"dlib-18.6/dlib/c.h": "c",
	})

	_, err := s.Stage(context.Background(), dlib)
	require.NoError(t, err)

	firstLog, err := os.ReadFile(config.DefaultLogFilename)
	require.NoError(t, err)

	writeArchive(t, "dlib-18.6.zip", map[string]string{"dlib-18.6/dlib/only.h": "x"})

	_, err = s.Stage(context.Background(), dlib)
	require.NoError(t, err)

	secondLog, err := os.ReadFile(config.DefaultLogFilename)
	require.NoError(t, err)

	require.NotEqual(t, firstLog, secondLog)
	require.Less(t, len(secondLog), len(firstLog))
	require.NotContains(t, string(secondLog), "a.h")
	require.NoFileExists(t, filepath.Join("include", "dlib", "a.h"))
}

// TestStage_MissingArchiveFails aborts before deleting anything under the default policy.
func TestStage_MissingArchiveFails(t *testing.T) {
	inWorkDir(t)

	require.NoError(t, os.MkdirAll(filepath.Join("include", "dlib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("include", "dlib", "old.h"), []byte("keep"), 0o644))

	result, err := newNativeStager(t, nil).Stage(context.Background(), dlib)
	require.ErrorIs(t, err, ErrArchiveNotFound)
	require.Equal(t, staging.OutcomeSkipped, result.ExtractDir)
	require.Equal(t, staging.OutcomeSkipped, result.PublishDir)
	require.FileExists(t, filepath.Join("include", "dlib", "old.h"))
}

// TestStage_MissingArchiveSkip cleans up, skips extraction and reports the missing source.
func TestStage_MissingArchiveSkip(t *testing.T) {
	inWorkDir(t)

	require.NoError(t, os.MkdirAll(filepath.Join("include", "dlib"), 0o755))

	s := newNativeStager(t, func(cfg *config.Config) { cfg.OnMissingArchive = config.MissingArchiveSkip })

	result, err := s.Stage(context.Background(), dlib)
	require.ErrorIs(t, err, ErrSourceNotFound)
	require.Equal(t, staging.OutcomeAbsent, result.ExtractDir)
	require.Equal(t, staging.OutcomeRemoved, result.PublishDir)
	require.Equal(t, staging.OutcomeSkipped, result.Extraction)
	require.Zero(t, result.FilesCopied)
	require.NoFileExists(t, config.DefaultLogFilename)
}

// TestStage_DecompressionFailure surfaces the extractor exit status and does not copy.
func TestStage_DecompressionFailure(t *testing.T) {
	inWorkDir(t)

	writeArchive(t, "dlib-18.6.zip", map[string]string{"dlib-18.6/dlib/a.h": "a"})

	extractor := new(failingExtractor)

	s, err := New(config.Default("include"), extractor)
	require.NoError(t, err)

	result, err := s.Stage(context.Background(), dlib)
	require.ErrorIs(t, err, ErrDecompressionFailed)
	require.Equal(t, 1, extractor.calls)
	require.Equal(t, staging.OutcomeSkipped, result.Extraction)
	require.NoDirExists(t, filepath.Join("include", "dlib"))

	var exitErr *extract.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 9, exitErr.Code)
}

// TestStage_InvalidComponent rejects components that would escape the working directory.
func TestStage_InvalidComponent(t *testing.T) {
	t.Parallel()

	s := &Stager{includeRoot: "include", extractor: new(failingExtractor)}

	result, err := s.Stage(context.Background(), staging.Component{Name: "..", Version: "1"})
	require.ErrorIs(t, err, staging.ErrInvalidComponent)
	require.Nil(t, result)
}

// TestStage_HeaderDirCannotBeIncludeRoot keeps other components' headers when
// a component points its header directory at the include root itself.
func TestStage_HeaderDirCannotBeIncludeRoot(t *testing.T) {
	inWorkDir(t)

	require.NoError(t, os.MkdirAll(filepath.Join("include", "boost"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("include", "boost", "other.h"), []byte("keep"), 0o644))

	writeArchive(t, "dlib-18.6.zip", map[string]string{"dlib-18.6/dlib/foo.h": "foo"})

	rooted := staging.Component{Name: "dlib", Version: "18.6", HeaderDir: "."}

	cfg := config.Default("include")
	cfg.Components = []staging.Component{rooted}

	_, err := New(cfg, extract.NewNativeExtractor(""))
	require.ErrorIs(t, err, staging.ErrInvalidComponent)

	result, err := newNativeStager(t, nil).Stage(context.Background(), rooted)
	require.ErrorIs(t, err, staging.ErrInvalidComponent)
	require.Nil(t, result)

	require.FileExists(t, filepath.Join("include", "boost", "other.h"))
	require.NoDirExists(t, "dlib-18.6")
}

// TestNew_RequiresExtractor refuses to build a Stager without an extractor.
func TestNew_RequiresExtractor(t *testing.T) {
	t.Parallel()

	_, err := New(config.Default("include"), nil)
	require.ErrorIs(t, err, errExtractorNotSet)

	_, err = New(new(config.Config), new(failingExtractor))
	require.Error(t, err)
}

// TestClean removes both trees and leaves the archive in place.
func TestClean(t *testing.T) {
	inWorkDir(t)

	writeArchive(t, "dlib-18.6.zip", map[string]string{"dlib-18.6/dlib/a.h": "a"})

	s := newNativeStager(t, nil)

	_, err := s.Stage(context.Background(), dlib)
	require.NoError(t, err)

	result, err := s.Clean(context.Background(), dlib)
	require.NoError(t, err)
	require.Equal(t, staging.OutcomeRemoved, result.ExtractDir)
	require.Equal(t, staging.OutcomeRemoved, result.PublishDir)
	require.Equal(t, staging.OutcomeSkipped, result.Extraction)

	require.NoDirExists(t, "dlib-18.6")
	require.NoDirExists(t, filepath.Join("include", "dlib"))
	require.FileExists(t, "dlib-18.6.zip")

	result, err = s.Clean(context.Background(), dlib)
	require.NoError(t, err)
	require.Equal(t, staging.OutcomeAbsent, result.ExtractDir)
	require.Equal(t, staging.OutcomeAbsent, result.PublishDir)
}

// readTree maps relative file paths under root to their contents.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()

	tree := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		contents, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		tree[filepath.ToSlash(rel)] = string(contents)

		return nil
	})
	require.NoError(t, err)

	return tree
}
