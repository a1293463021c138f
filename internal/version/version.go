// Package version exposes the build metadata stamped into the binary,
// served at /version and exported as the build_info metric.
package version

import "runtime"

// Stamped at build time via -ldflags -X; defaults cover plain `go build`.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the full build description, including the Go toolchain version.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get combines the stamped values with the runtime Go version.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
