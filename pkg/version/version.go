// Package version provides build version information for the results reader.
// Version values are set at build time via ldflags.
package version

import "os"

// Environment variable for overriding UserAgent
const EnvUserAgent = "RESULTS_READER_USER_AGENT"

// Build-time variables set via ldflags
// Example: go build -ldflags "-X github.com/openshift-pipelines/tekton-results-reader/pkg/version.Version=1.0.0"
var (
	// Version is the semantic version of the reader
	Version = "0.1.0"

	// Commit is the git commit SHA
	Commit = "none"

	// BuildDate is the date when the binary was built
	BuildDate = "unknown"
)

// UserAgent returns the User-Agent string sent to the results API and proxy.
// RESULTS_READER_USER_AGENT overrides the default "tekton-results-reader/{version}".
func UserAgent() string {
	if ua := os.Getenv(EnvUserAgent); ua != "" {
		return ua
	}
	return "tekton-results-reader/" + Version
}

// Info returns all version information as a struct
func Info() VersionInfo {
	return VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	}
}

// VersionInfo contains all build version information
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}
