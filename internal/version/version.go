package version

import "runtime"

// Set at build time with -ldflags "-X .../internal/version.Version=v1.2.3".
var (
	Version   = "dev"
	Commit    = "none"
	GoVersion = runtime.Version()
)

// String returns e.g. "v1.2.3 (abcd123)".
func String() string {
	return Version + " (" + Commit + ")"
}
