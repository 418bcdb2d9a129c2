// Package version provides version information for the scan agent and core.
package version

// These variables are set via ldflags during build
//
//nolint:gochecknoglobals // These are intentionally global for ldflags injection
var (
	version = "dev"
	buildID = "dev"
)

// APIVersion is the inventory wire contract revision served by core.
const APIVersion = "1"

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// GetBuildID returns the current build ID
func GetBuildID() string {
	return buildID
}

// GetFullVersion returns version with build ID
func GetFullVersion() string {
	return version + " (build: " + buildID + ")"
}

// UserAgent is sent by the scan agent on every request.
func UserAgent() string {
	return "sgich-scan-agent/" + version
}
