// Package buildinfo provides build information for RollCall.
//
// This package exposes build-time information injected via ldflags:
//
//   - Version: Semantic version (e.g., "1.0.0")
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//
// When ldflags are absent (go install, test binaries) the commit and
// build time fall back to the VCS stamps the Go toolchain embeds, and
// the Go version always comes from the runtime.
//
// Usage:
//
//	go build -ldflags "-X buildinfo.Version=1.0.0 -X buildinfo.Commit=abc123"
package buildinfo
