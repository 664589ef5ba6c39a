package core

// Version is the application version, injected at build time:
//
//	go build -ldflags "-X flux_backend/core.Version=$(git describe --tags --always)" .
//
// Defaults to "dev" when not set.
var Version = "dev"

// GitCommit is the git commit hash, injected the same way. Defaults to
// "unknown".
var GitCommit = "unknown"

// VersionInfo returns a formatted version string for logs and the root
// endpoint.
func VersionInfo() string {
	if GitCommit == "unknown" {
		return Version
	}
	return Version + " (" + GitCommit + ")"
}
