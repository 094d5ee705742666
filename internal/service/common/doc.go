// Package common holds helpers shared by the staging services.
//
// It provides the run marker that keeps two stager runs from racing on the
// same working directory, and small filesystem helpers for tree removal.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
