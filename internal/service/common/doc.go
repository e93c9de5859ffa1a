// Package common holds helpers shared by the monitor and the CLI.
//
// It detects the host and user recorded with alert events, guards against a
// second monitor claiming the same pin, and wraps the gRPC health client used
// by the status subcommand.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
