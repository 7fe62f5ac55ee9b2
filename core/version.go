package core

import "fmt"

// Build metadata, injected with
//
//	go build -ldflags "-X outlook_backend/core.Version=$(git describe --tags --always)" .
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// GetVersionInfo returns a one-line version string for logs and /health.
func GetVersionInfo() string {
	if GitCommit == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (%s, built %s)", Version, GitCommit, BuildTime)
}
