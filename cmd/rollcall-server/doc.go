// Package main provides the entry point for rollcall-server.
//
// The server hosts the RollCall attendance verification API:
//
//   - Session lifecycle (start, end, list, automatic expiry)
//   - Rotating attendance token projection and validation
//   - Attendance recording with duplicate detection and CSV export
//   - Prometheus metrics and health endpoints
//
// Usage:
//
//	rollcall-server [flags]
//	rollcall-server --config /path/to/config.yaml
//
// Configuration merges defaults, the optional YAML file, and ROLLCALL_*
// environment variables. The storage backend is selected at startup;
// memory, sqlite, badger, and wal engines share one repository surface.
package main
