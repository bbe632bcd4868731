// Package buildinfo carries the version stamped in at link time:
//
//	go build -ldflags "-X github.com/m3rciful/exchangebot/core/buildinfo.Version=v0.3.0 \
//	  -X github.com/m3rciful/exchangebot/core/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Stamped at link time. Commit falls back to the VCS revision Go embeds in
// module builds.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Revision returns Commit, or the embedded vcs.revision (short form, with a
// "-dirty" suffix for modified trees), or "local".
func Revision() string {
	if Commit != "" {
		return Commit
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "local"
	}
	var rev string
	var dirty bool
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return "local"
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if dirty {
		rev += "-dirty"
	}
	return rev
}

// String formats the build as "v0.3.0 (abc1234, 2026-10-19T08:00:00Z)".
func String() string {
	if Date == "" {
		return fmt.Sprintf("%s (%s)", Version, Revision())
	}
	return fmt.Sprintf("%s (%s, %s)", Version, Revision(), Date)
}
