// Package tlsroots provides TLS certificate management for RollCall.
//
// This package handles TLS certificate loading and management:
//
//   - roots.go: System certificates + custom CA loading
//   - watcher.go: Certificate hot-reload via fsnotify
//
// Features:
//
//   - System certificate pool integration
//   - Custom CA certificate support
//   - Automatic certificate reload on file changes
//
// The server wires Watcher.GetCertificate into its tls.Config so
// renewed certificates are picked up without a restart.
package tlsroots
