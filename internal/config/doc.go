// Package config defines the stager settings and provides helpers to load,
// validate and save them in YAML format.
//
// The only value the stager cannot default is the shared include root, which
// belongs to the enclosing build.
package config
