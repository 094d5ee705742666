// Package stager stages third-party headers into a shared include root.
//
// For every component it removes the previous extraction directory and the
// previously published headers, decompresses the versioned archive, and copies
// the header tree into the include root. Run drives the whole configured set
// and records a report; Stager.Stage handles a single component.
package stager
