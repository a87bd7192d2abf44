// Package version carries build metadata injected at link time.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns the one-line form printed by the -version flag.
func String() string {
	return fmt.Sprintf("railsim %s (%s, built %s)", Version, GitSHA, BuildTime)
}
