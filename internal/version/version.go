// Package version holds build metadata injected via ldflags:
//
//	go build -ldflags "-X github.com/kailas-cloud/kbquery/internal/version.Version=v0.3.0 \
//	    -X github.com/kailas-cloud/kbquery/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime/debug"
)

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns build metadata, falling back to VCS data embedded by the Go
// toolchain when ldflags were not set.
func Info() (version, commit, date string) {
	version, commit, date = Version, Commit, Date
	if commit != "unknown" {
		return version, commit, date
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return version, commit, date
	}
	if version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) > 12 {
				commit = s.Value[:12]
			} else {
				commit = s.Value
			}
		case "vcs.time":
			date = s.Value
		}
	}
	return version, commit, date
}

// String formats the build metadata on one line.
func String() string {
	v, c, d := Info()
	return fmt.Sprintf("%s (commit %s, built %s)", v, c, d)
}
