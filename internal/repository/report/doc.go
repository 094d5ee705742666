// Package report persists the outcome of the last stager run.
//
// FileRepository stores the report as YAML and swaps the file in atomically,
// so a build script reading it never sees a half-written report.
package report
