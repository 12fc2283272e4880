// Package version provides information about the build version of the pipeline.
package version

// BuildInfo holds version information about the build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information. The version, commit, and date variables
// are set at build time using -ldflags.
func Info() BuildInfo {
	// -ldflags "-X 'commitpipe/internal/core/version.version=v0.1.0'
	// -X 'commitpipe/internal/core/version.commit=abcd' -X 'commitpipe/internal/core/version.date=2026-01-02'"
	return BuildInfo{
		Service: "commitpipe",
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// String renders the build as one line
func (b BuildInfo) String() string {
	return b.Service + " " + b.Version + " (" + b.Commit + ", " + b.Date + ")"
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
