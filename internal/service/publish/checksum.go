package publish

import (
	"bytes"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

// DefaultChecksumFunction hashes published files.
const DefaultChecksumFunction crypto.Hash = crypto.SHA512

var (
	// ErrChecksumMismatch indicates a published file differs from its source.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	errHashUnavailable = errors.New("hash function unavailable")
)

// ChecksumError names the file whose published copy differs from the source.
type ChecksumError struct {
	Path     string
	Expected string
	Got      string
}

// Error prints both checksums in base64.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s: expected %s, got %s", e.Path, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// GetFileChecksum returns checksum bytes for a file using DefaultChecksumFunction.
func GetFileChecksum(path string) ([]byte, error) {
	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	hasher := DefaultChecksumFunction.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("calculate checksum of %s: %w", path, err)
	}

	return hasher.Sum(nil), nil
}

// VerifyCopy compares the checksums of src and dst.
func VerifyCopy(src, dst string) error {
	expected, err := GetFileChecksum(src)
	if err != nil {
		return err
	}

	got, err := GetFileChecksum(dst)
	if err != nil {
		return err
	}

	if !bytes.Equal(expected, got) {
		return &ChecksumError{
			Path:     dst,
			Expected: base64.StdEncoding.EncodeToString(expected),
			Got:      base64.StdEncoding.EncodeToString(got),
		}
	}

	return nil
}
