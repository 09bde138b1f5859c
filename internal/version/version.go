// Package version carries build metadata set with -ldflags, e.g.
// -X git.home.luguber.info/inful/resourcesync/internal/version.Version=v1.2.0.
package version

import "fmt"

var Version = "unknown"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	return fmt.Sprintf("resourcesync %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
