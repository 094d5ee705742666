// Package publish copies an extracted header tree into the shared include root.
//
// The copy is recursive, creates missing directories and overwrites existing
// files. Optionally every copied file is re-hashed with SHA-512 and compared
// with its source.
package publish
