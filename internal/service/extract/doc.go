// Package extract decompresses component archives.
//
// ShellExtractor runs `unzip -o <archive> > <log> 2>&1` through mvdan.cc/sh
// and turns a non-zero exit status into an ExitError. NativeExtractor inflates
// the archive in-process for hosts without unzip.
package extract
