package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/stager/internal/domain/staging"
)

// Extractor selects how archives are decompressed.
type Extractor string

const (
	// ExtractorUnzip runs the external unzip utility through a shell.
	ExtractorUnzip Extractor = "unzip"
	// ExtractorNative inflates the archive in-process.
	ExtractorNative Extractor = "native"
)

// MissingArchivePolicy selects what happens when the archive is absent.
type MissingArchivePolicy string

const (
	// MissingArchiveFail aborts before touching the filesystem.
	MissingArchiveFail MissingArchivePolicy = "fail"
	// MissingArchiveSkip cleans up, skips extraction and tries to publish anyway.
	MissingArchiveSkip MissingArchivePolicy = "skip"
)

// Config holds the staging settings shared by all stager commands.
type Config struct {
	// IncludeRoot is the shared include directory owned by the enclosing build.
	IncludeRoot string `yaml:"include_root"`
	// LogFile receives the decompression output. It is truncated on every run.
	LogFile string `yaml:"log_file"`
	// ReportFile receives the YAML report of the last run.
	ReportFile string `yaml:"report_file"`
	// Extractor picks the decompression backend.
	Extractor Extractor `yaml:"extractor"`
	// OnMissingArchive decides what to do when an archive is absent.
	OnMissingArchive MissingArchivePolicy `yaml:"on_missing_archive"`
	// VerifyChecksums re-hashes every published header against its source.
	VerifyChecksums bool `yaml:"verify_checksums"`
	// Components lists the archives to stage, in order.
	Components []staging.Component `yaml:"components"`
}

const (
	// DefaultConfigFilename is the default settings file name.
	DefaultConfigFilename = "stager-settings.yaml"

	// DefaultLogFilename is the default decompression log.
	DefaultLogFilename = "isam_unzip.log"

	// DefaultReportFilename is the default run report.
	DefaultReportFilename = "stager-report.yaml"

	// DefaultFilePermissions is used for settings, logs and reports.
	DefaultFilePermissions = 0o644

	// DefaultDirPermissions is used for directories the stager creates.
	DefaultDirPermissions = 0o755
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errIncludeRootRequired is returned when the include root is missing.
	errIncludeRootRequired = errors.New("include root must be provided")
	// errUnknownExtractor is returned for an unsupported extractor value.
	errUnknownExtractor = errors.New("unknown extractor")
	// errUnknownPolicy is returned for an unsupported missing archive policy.
	errUnknownPolicy = errors.New("unknown missing archive policy")
	// errDuplicateComponent is returned when two components publish to the same directory.
	errDuplicateComponent = errors.New("duplicate component header directory")
)

// DefaultComponent is the bundled dlib release.
func DefaultComponent() staging.Component {
	return staging.Component{Name: "dlib", Version: "18.6"}
}

// Default returns settings for staging dlib into includeRoot.
func Default(includeRoot string) *Config {
	return &Config{
		IncludeRoot:      includeRoot,
		LogFile:          DefaultLogFilename,
		ReportFile:       DefaultReportFilename,
		Extractor:        ExtractorUnzip,
		OnMissingArchive: MissingArchiveFail,
		Components:       []staging.Component{DefaultComponent()},
	}
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read decodes configuration from the provided path without validating it,
// so callers can apply overrides first.
func Read(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.IncludeRoot == "" {
		return errIncludeRootRequired
	}

	if cfg.LogFile == "" {
		cfg.LogFile = DefaultLogFilename
	}

	if cfg.ReportFile == "" {
		cfg.ReportFile = DefaultReportFilename
	}

	switch cfg.Extractor {
	case "":
		cfg.Extractor = ExtractorUnzip
	case ExtractorUnzip, ExtractorNative:
	default:
		return fmt.Errorf("%w: %q", errUnknownExtractor, cfg.Extractor)
	}

	switch cfg.OnMissingArchive {
	case "":
		cfg.OnMissingArchive = MissingArchiveFail
	case MissingArchiveFail, MissingArchiveSkip:
	default:
		return fmt.Errorf("%w: %q", errUnknownPolicy, cfg.OnMissingArchive)
	}

	if len(cfg.Components) == 0 {
		cfg.Components = []staging.Component{DefaultComponent()}
	}

	seen := make(map[string]struct{}, len(cfg.Components))

	for i := range cfg.Components {
		component := &cfg.Components[i]
		if err := component.Validate(); err != nil {
			return fmt.Errorf("component #%d: %w", i+1, err)
		}

		dir := component.HeaderDirName()
		if _, found := seen[dir]; found {
			return fmt.Errorf("%w: %s", errDuplicateComponent, dir)
		}

		seen[dir] = struct{}{}
	}

	return nil
}

// Select returns the components whose names are listed, in configuration order.
// An empty list selects every component.
func (c *Config) Select(names []string) ([]staging.Component, error) {
	if len(names) == 0 {
		return append([]staging.Component(nil), c.Components...), nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = false
	}

	selected := make([]staging.Component, 0, len(names))

	for _, component := range c.Components {
		if _, ok := wanted[component.Name]; ok {
			wanted[component.Name] = true

			selected = append(selected, component)
		}
	}

	for _, name := range names {
		if !wanted[name] {
			return nil, fmt.Errorf("%w: %s is not configured", staging.ErrInvalidComponent, name)
		}
	}

	return selected, nil
}
