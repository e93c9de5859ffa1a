// Package version exposes build metadata for power-alert.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Short and Full render them for the version subcommand and the
// startup log line.
package version
