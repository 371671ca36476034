// Package command provides CLI command definitions for RollCall.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command, global flags, server resolution
//   - session.go: Session subcommand group
//   - attendance.go: Attendance listing and CSV export
//   - system.go: Health, version, and metrics commands
//   - config.go: Server config inspection and CLI profiles
//
// Commands follow a consistent pattern: parse flags, resolve the
// target server, call the HTTP API, and render the result through the
// output package.
package command
