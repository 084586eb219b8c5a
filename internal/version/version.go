// Package version provides build version information.
//
// The values are injected at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/information-sharing-networks/veogen/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import "runtime/debug"

// These variables are set via -ldflags at build time.
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

type Info struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Get returns the build information. When the commit was not injected it is taken from
// the VCS stamp the go command embeds, if present.
func Get() Info {
	info := Info{Version: Version, BuildDate: BuildDate, GitCommit: GitCommit}
	if info.GitCommit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if len(s.Value) > 7 {
					info.GitCommit = s.Value[:7]
				} else {
					info.GitCommit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "unknown" {
					info.BuildDate = s.Value
				}
			}
		}
	}
	return info
}
