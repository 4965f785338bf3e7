package version

import "fmt"

// Build metadata, overridden at link time via -ldflags.
var (
	Version = "dev"
	Commit  = ""
)

// String returns the human-readable version string.
func String() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
