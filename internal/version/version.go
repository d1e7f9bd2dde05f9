package version

import "fmt"

// Set at build time with
// -ldflags "-X github.com/netspec/statusync/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// UserAgent identifies statusync to the status page API
func UserAgent() string {
	return "statusync/" + Version
}

// String returns a one-line description of the build
func String() string {
	if Version == "dev" {
		return fmt.Sprintf("statusync dev (commit: %s)", Commit)
	}
	return fmt.Sprintf("statusync %s (commit: %s, built %s)", Version, Commit, BuildDate)
}
