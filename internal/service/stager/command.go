package stager

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/stager/internal/config"
	"github.com/oshokin/stager/internal/domain/staging"
	"github.com/oshokin/stager/internal/logger"
	repository "github.com/oshokin/stager/internal/repository/report"
	"github.com/oshokin/stager/internal/service/common"
	"github.com/oshokin/stager/internal/service/extract"
)

// Options contains inputs for the stager entry points.
type Options struct {
	// ConfigPath is the settings file (defaults to stager-settings.yaml).
	ConfigPath string
	// IncludeRoot overrides the include root from the settings file.
	// With no settings file present it is enough to stage the default component.
	IncludeRoot string
	// Components limits the run to the named components. Empty means all.
	Components []string
}

// InitOptions contains inputs for writing a settings file.
type InitOptions struct {
	// ConfigPath is where the settings are written.
	ConfigPath string
	// IncludeRoot is the shared include root to record.
	IncludeRoot string
	// Extractor is the decompression backend to record.
	Extractor string
	// Force overwrites an existing settings file.
	Force bool
}

var errSettingsExist = errors.New("settings file already exists")

// Run stages every selected component in configuration order and saves a report.
// It stops at the first component that fails.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "stager")

	cfg, components, err := prepare(opts)
	if err != nil {
		return err
	}

	release, err := common.AcquireMarker(ctx, common.MarkerFilename)
	if err != nil {
		return err
	}

	defer release()

	extractor, err := extract.New(cfg.Extractor, "")
	if err != nil {
		return err
	}

	s, err := New(cfg, extractor)
	if err != nil {
		return err
	}

	var (
		repo   = repository.NewFileRepository(cfg.ReportFile)
		report = &staging.Report{
			IncludeRoot: cfg.IncludeRoot,
			Results:     make([]*staging.Result, 0, len(components)),
		}
	)

	for _, component := range components {
		result, stageErr := s.Stage(ctx, component)
		if result != nil {
			report.Results = append(report.Results, result)
		}

		if stageErr != nil {
			saveReport(ctx, repo, report)
			logger.ErrorKV(ctx, "Staging failed", "component", component.String(), "error", stageErr)

			return fmt.Errorf("stage %s: %w", component, stageErr)
		}
	}

	saveReport(ctx, repo, report)

	logger.InfoKV(ctx, "Staging completed",
		"components", len(report.Results), "include_root", cfg.IncludeRoot, "report", repo.Path())

	return nil
}

// RunClean removes extracted sources and published headers of the selected components.
func RunClean(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "stager")

	cfg, components, err := prepare(opts)
	if err != nil {
		return err
	}

	release, err := common.AcquireMarker(ctx, common.MarkerFilename)
	if err != nil {
		return err
	}

	defer release()

	s := &Stager{includeRoot: cfg.IncludeRoot}

	for _, component := range components {
		if _, err = s.Clean(ctx, component); err != nil {
			return fmt.Errorf("clean %s: %w", component, err)
		}
	}

	logger.InfoKV(ctx, "Clean completed", "components", len(components))

	return nil
}

// Init writes a settings file for the default component.
func Init(ctx context.Context, opts *InitOptions) error {
	ctx = logger.WithName(ctx, "stager")

	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultConfigFilename
	}

	if !opts.Force && common.FileExists(path) {
		return fmt.Errorf("%w: %s", errSettingsExist, path)
	}

	cfg := config.Default(opts.IncludeRoot)
	cfg.Extractor = config.Extractor(opts.Extractor)

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	logger.InfoKV(ctx, "Settings written", "path", path, "include_root", cfg.IncludeRoot)

	return nil
}

// prepare loads settings, applies overrides and selects components.
func prepare(opts *Options) (*config.Config, []staging.Component, error) {
	if opts == nil {
		opts = new(Options)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	components, err := cfg.Select(opts.Components)
	if err != nil {
		return nil, nil, err
	}

	return cfg, components, nil
}

// loadConfig reads the settings file. A missing file is tolerated when the
// include root is given explicitly, which keeps the argument-free defaults usable.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Read(opts.ConfigPath)

	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && opts.IncludeRoot != "":
		cfg = config.Default(opts.IncludeRoot)
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("load settings (create them with `stager init`): %w", err)
	default:
		return nil, fmt.Errorf("load settings: %w", err)
	}

	// The flag wins over the file, including a file without include_root.
	if opts.IncludeRoot != "" {
		cfg.IncludeRoot = opts.IncludeRoot
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	return cfg, nil
}

// saveReport persists the report; a failure here never masks the staging outcome.
func saveReport(ctx context.Context, repo repository.Repository, report *staging.Report) {
	if err := repo.Save(ctx, report); err != nil {
		logger.WarnKV(ctx, "Unable to save staging report", "error", err)
	}
}
