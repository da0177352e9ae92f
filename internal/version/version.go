// Package version holds build metadata stamped via -ldflags and
// reported in the server startup log.
package version

//nolint:revive // Overwritten by the release build.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
