// Package config provides local configuration for rollcall-cli.
//
// The CLI keeps its own small config file (~/.rollcall/cli.yaml),
// separate from the server's:
//
//   - spec.go: CLIConfig struct with saved server profiles
//   - loader.go: YAML load/save and validation
//
// Profiles let one CLI switch between servers (a lab machine, a
// staging host) without repeating --server on every call.
package config
