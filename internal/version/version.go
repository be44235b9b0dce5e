// Package version holds build information for fortdeps.
package version

// Overridable at build time:
// go build -ldflags "-X fortdeps/internal/version.Version=1.2.0 -X fortdeps/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// ReaderRevision changes whenever the statement reader or classifier would
// produce different entries for the same input. Cached scan results recorded
// under another revision are ignored.
const ReaderRevision = 3

// Info returns the version with a short commit suffix when known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "fortdeps version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
