// Package main provides the entry point for rollcall-cli.
//
// The CLI tool provides command-line access to a RollCall server for:
//
//   - Session management (start, end, list, get, token)
//   - Attendance inspection and CSV export
//   - System status (health, version, metrics)
//   - Configuration inspection and connection profiles
//
// Usage:
//
//	rollcall-cli [command] [flags]
//	rollcall-cli session start Lecture1 --ttl 45m
//	rollcall-cli session token Lecture1 --follow
//	rollcall-cli attendance export Lecture1 --file lecture1.csv
//
// The target server comes from --server, the ROLLCALL_SERVER
// environment variable, or a profile in ~/.rollcall/cli.yaml.
package main
