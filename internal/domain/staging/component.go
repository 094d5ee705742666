package staging

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ArchiveExtension is appended to the component stem to form the archive name.
const ArchiveExtension = ".zip"

var (
	// ErrInvalidComponent is returned when a component cannot be turned into safe paths.
	ErrInvalidComponent = errors.New("invalid component")
)

// Component identifies a versioned third-party library bundled as an archive.
type Component struct {
	// Name is the library name, e.g. "dlib".
	Name string `yaml:"name"`
	// Version is the version stamp embedded in the archive name, e.g. "18.6".
	Version string `yaml:"version"`
	// HeaderDir is the subdirectory of the extraction root holding the headers.
	// Empty means Name.
	HeaderDir string `yaml:"header_dir,omitempty"`
}

// Validate checks that the component produces paths inside the working directory.
func (c *Component) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: component is not set", ErrInvalidComponent)
	}

	fields := []struct {
		name, value string
		optional    bool
	}{
		{name: "name", value: c.Name},
		{name: "version", value: c.Version},
		{name: "header_dir", value: c.HeaderDir, optional: true},
	}

	for _, f := range fields {
		if f.value == "" {
			if f.optional {
				continue
			}

			return fmt.Errorf("%w: %s must be provided", ErrInvalidComponent, f.name)
		}

		if strings.ContainsAny(f.value, `/\`) || strings.Contains(f.value, "..") || filepath.Clean(f.value) == "." {
			return fmt.Errorf("%w: %s %q contains path tokens", ErrInvalidComponent, f.name, f.value)
		}

		// Archive names are passed to unzip as arguments.
		if strings.HasPrefix(f.value, "-") {
			return fmt.Errorf("%w: %s %q starts with a dash", ErrInvalidComponent, f.name, f.value)
		}
	}

	return nil
}

// String returns "<name>-<version>".
func (c Component) String() string {
	return c.Name + "-" + c.Version
}

// ArchiveName is the archive file expected in the working directory.
func (c Component) ArchiveName() string {
	return c.String() + ArchiveExtension
}

// ExtractDir is the directory the archive expands into.
func (c Component) ExtractDir() string {
	return c.String()
}

// HeaderDirName returns HeaderDir, defaulting to Name.
func (c Component) HeaderDirName() string {
	if c.HeaderDir != "" {
		return c.HeaderDir
	}

	return c.Name
}

// HeaderSource is the extracted header tree that gets published.
func (c Component) HeaderSource() string {
	return filepath.Join(c.ExtractDir(), c.HeaderDirName())
}

// PublishDir is the destination of the header tree under the shared include root.
func (c Component) PublishDir(includeRoot string) string {
	return filepath.Join(includeRoot, c.HeaderDirName())
}
