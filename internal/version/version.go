// Package version carries build metadata injected through -ldflags.
package version

var (
	// Version is the current application version.
	Version = "v0.1.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String formats the build metadata for --version output and startup logs.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
