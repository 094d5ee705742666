// Package staging contains the core types of the staging workflow.
//
// Component names a versioned third-party archive and derives every path the
// stager touches from it. Result records what each staging step actually did
// so callers can assert on real filesystem state.
package staging
