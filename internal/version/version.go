// Package version holds build metadata, overridden at link time with
// -ldflags "-X github.com/MrSnakeDoc/engage/internal/version.Version=...".
package version

import (
	"fmt"
	"runtime"
	"time"
)

var (
	Version   = "dev"                           // ex: v0.1.0
	Commit    = "none"                          // ex: abcd123
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2025-08-11T18:42:00Z
	GoVersion = runtime.Version()               // go version
)

// String renders the build metadata for the startup log line.
func String() string {
	return fmt.Sprintf("engage %s (commit=%s, built=%s, go=%s)", Version, Commit, BuildDate, GoVersion)
}
