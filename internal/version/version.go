// Package version provides build-time version information.
package version

import "fmt"

// Set at build time:
//
//	go build -ldflags "-X mi-bci/internal/version.Version=1.2.0 -X mi-bci/internal/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version line printed by -version.
func String(program string) string {
	return fmt.Sprintf("%s %s (built %s, commit %s)", program, Version, BuildTime, GitCommit)
}
