package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// shortCommitLength is the length of a revision read from build info.
const shortCommitLength = 7

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Platform returns the target the binary was built for, e.g. "linux/amd64".
// The loader fetches stages built for the same target.
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// Revision returns Commit, falling back to the VCS revision recorded by the
// Go toolchain when no value was injected.
func Revision() string {
	if Commit != "none" && Commit != "" {
		return Commit
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Commit
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			return setting.Value[:min(len(setting.Value), shortCommitLength)]
		}
	}

	return Commit
}

// Full returns a human-readable version string with commit, build time and platform.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s, platform: %s",
		Version, Revision(), BuildTime, Platform())
}
