package report

import (
	"bytes"
	"context"
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	goupdate "github.com/doitdistributed/go-update"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/stager/internal/config"
	"github.com/oshokin/stager/internal/domain/staging"

	// Ensure SHA512 available for the atomic replace checksum.
	_ "crypto/sha512"
)

// Repository defines persistence operations for run reports.
type Repository interface {
	Load(ctx context.Context) (*staging.Report, error)
	Save(ctx context.Context, report *staging.Report) error
}

// FileRepository persists the report to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the report.
	path string
	// mu serializes access to the report file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when no report has been written yet.
	ErrNotFound = errors.New("report not found")

	errReportIsNotSet = errors.New("report is not set")
)

// NewFileRepository creates a repository that reads/writes YAML at path.
func NewFileRepository(path string) *FileRepository {
	if path == "" {
		path = config.DefaultReportFilename
	}

	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the report location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the report from disk.
func (r *FileRepository) Load(_ context.Context) (*staging.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read report file: %w", err)
	}

	var report staging.Report
	if err = yaml.Unmarshal(contents, &report); err != nil {
		return nil, fmt.Errorf("decode report file: %w", err)
	}

	return &report, nil
}

// Save replaces the report on disk.
func (r *FileRepository) Save(_ context.Context, report *staging.Report) error {
	if report == nil {
		return errReportIsNotSet
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	hasher := crypto.SHA512.New()
	_, _ = hasher.Write(data)

	// go-update renames the current file aside, so it has to exist.
	if _, err = os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		if err = os.WriteFile(r.path, nil, config.DefaultFilePermissions); err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
	}

	options := goupdate.Options{
		TargetPath: r.path,
		TargetMode: config.DefaultFilePermissions,
		Checksum:   hasher.Sum(nil),
		Hash:       crypto.SHA512,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}

	oldFileName := filepath.Join(filepath.Dir(r.path), "."+filepath.Base(r.path)+".old")
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}
