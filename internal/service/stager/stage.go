package stager

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/stager/internal/config"
	"github.com/oshokin/stager/internal/domain/staging"
	"github.com/oshokin/stager/internal/logger"
	"github.com/oshokin/stager/internal/service/common"
	"github.com/oshokin/stager/internal/service/extract"
	"github.com/oshokin/stager/internal/service/publish"
)

var (
	// ErrArchiveNotFound is returned when the archive is absent and the policy is "fail".
	ErrArchiveNotFound = errors.New("archive not found")
	// ErrSourceNotFound is returned when there is no header tree to publish.
	ErrSourceNotFound = publish.ErrSourceNotFound
	// ErrDecompressionFailed is returned when the extractor fails.
	ErrDecompressionFailed = extract.ErrDecompressionFailed

	errExtractorNotSet = errors.New("extractor is not set")
)

// Stager runs the staging steps for components against one include root.
// Paths are relative to the process working directory.
type Stager struct {
	// includeRoot is the shared include directory.
	includeRoot string
	// logFile receives decompression output.
	logFile string
	// policy decides what a missing archive means.
	policy config.MissingArchivePolicy
	// verify enables checksum verification of published headers.
	verify bool
	// extractor decompresses archives.
	extractor extract.Extractor
}

// New builds a Stager from validated settings.
func New(cfg *config.Config, extractor extract.Extractor) (*Stager, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	if extractor == nil {
		return nil, errExtractorNotSet
	}

	return &Stager{
		includeRoot: cfg.IncludeRoot,
		logFile:     cfg.LogFile,
		policy:      cfg.OnMissingArchive,
		verify:      cfg.VerifyChecksums,
		extractor:   extractor,
	}, nil
}

// Stage cleans, decompresses and publishes one component, in that order.
// The returned Result is non-nil whenever the component is valid and reflects
// every step that ran, even when an error is returned.
func (s *Stager) Stage(ctx context.Context, c staging.Component) (*staging.Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "component", c.Name, "version", c.Version)

	result := staging.NewResult(c)
	defer result.Finish()

	archive := c.ArchiveName()
	hasArchive := common.FileExists(archive)

	if !hasArchive && s.policy == config.MissingArchiveFail {
		return result, fmt.Errorf("%w: %s", ErrArchiveNotFound, archive)
	}

	logger.Info(ctx, "Cleaning files")

	if err := s.clean(ctx, c, result); err != nil {
		return result, err
	}

	if hasArchive {
		logger.InfoKV(ctx, "Decompressing archive", "archive", archive, "log_file", s.logFile)

		if err := s.extractor.Extract(ctx, archive, s.logFile); err != nil {
			return result, fmt.Errorf("decompress %s: %w", archive, err)
		}

		result.Extraction = staging.OutcomeExtracted
		result.LogFile = s.logFile
	} else {
		logger.WarnKV(ctx, "Archive not found, decompression skipped", "archive", archive)
	}

	src, dst := c.HeaderSource(), c.PublishDir(s.includeRoot)

	logger.InfoKV(ctx, "Copying headers", "from", src, "to", dst)

	summary, err := publish.Publish(ctx, src, dst, &publish.Options{VerifyChecksums: s.verify})
	if err != nil {
		return result, fmt.Errorf("copy headers: %w", err)
	}

	result.FilesCopied = summary.Files

	logger.InfoKV(ctx, "Headers published", "files", summary.Files, "directories", summary.Dirs)

	return result, nil
}

// Clean removes the extraction directory and the published headers of c.
func (s *Stager) Clean(ctx context.Context, c staging.Component) (*staging.Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "component", c.Name, "version", c.Version)

	result := staging.NewResult(c)
	defer result.Finish()

	logger.Info(ctx, "Cleaning files")

	return result, s.clean(ctx, c, result)
}

// clean runs the two removal steps and records their outcomes.
func (s *Stager) clean(ctx context.Context, c staging.Component, result *staging.Result) error {
	removed, err := common.RemoveTree(c.ExtractDir())
	if err != nil {
		return fmt.Errorf("remove extraction directory: %w", err)
	}

	result.ExtractDir = outcome(removed)

	publishDir := c.PublishDir(s.includeRoot)

	removed, err = common.RemoveTree(publishDir)
	if err != nil {
		return fmt.Errorf("remove published headers: %w", err)
	}

	result.PublishDir = outcome(removed)

	logger.DebugKV(ctx, "Removed stale trees",
		"extract_dir", result.ExtractDir, "publish_dir", result.PublishDir)

	return nil
}

func outcome(removed bool) staging.Outcome {
	if removed {
		return staging.OutcomeRemoved
	}

	return staging.OutcomeAbsent
}
