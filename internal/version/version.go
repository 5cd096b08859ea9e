// Package version holds the build metadata stamped into the binary.
package version

//nolint:revive // Set via -ldflags "-X ..." at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
