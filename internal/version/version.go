// Package version provides application version information.
// The values can be set at build time using ldflags:
//
//	go build -ldflags "-X github.com/ramonehamilton/deckforge/internal/version.Version=v1.2.3 -X github.com/ramonehamilton/deckforge/internal/version.Commit=abc123"
package version

import "fmt"

// Version is the application version. It defaults to "dev".
var Version = "dev"

// Commit is the source revision the binary was built from.
var Commit = ""

// GetVersion returns the current application version.
func GetVersion() string {
	return Version
}

// String returns the version with the commit appended when known.
func String() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
