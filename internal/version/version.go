// Package version reports the build identity of the attend binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set at build time via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns the version line shown by --version and the health endpoint.
func String() string {
	return fmt.Sprintf("attend %s (commit: %s, built: %s)", Version, shortCommit(), BuildTime)
}

// UserAgent is sent with every backend request so the attendance backend can
// tell client builds and platforms apart.
func UserAgent() string {
	return fmt.Sprintf("attend/%s (%s/%s; %s)", Version, runtime.GOOS, runtime.GOARCH, shortCommit())
}

// shortCommit falls back to the VCS revision embedded by the go tool when
// ldflags did not set Commit.
func shortCommit() string {
	commit := Commit
	if commit == "unknown" {
		commit = vcsRevision(debug.ReadBuildInfo)
	}
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

func vcsRevision(read func() (*debug.BuildInfo, bool)) string {
	info, ok := read()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return "unknown"
}
