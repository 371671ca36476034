package buildinfo

import (
	"runtime"
	"runtime/debug"
)

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information. Fields not injected via ldflags
// fall back to the VCS stamps embedded by the Go toolchain.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    commit(),
		BuildTime: buildTime(),
		GoVersion: runtime.Version(),
	}
}

// String returns a formatted version string.
func String() string {
	i := Get()
	return i.Version + " (" + i.Commit + ") built at " + i.BuildTime
}

func commit() string {
	if Commit != "unknown" {
		return Commit
	}
	if rev := vcsSetting("vcs.revision"); rev != "" {
		if len(rev) > 12 {
			return rev[:12]
		}
		return rev
	}
	return Commit
}

func buildTime() string {
	if BuildTime != "unknown" {
		return BuildTime
	}
	if t := vcsSetting("vcs.time"); t != "" {
		return t
	}
	return BuildTime
}

func vcsSetting(key string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}
