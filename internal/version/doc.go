// Package version exposes build metadata for the launcher binary.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags and
// fall back to development values for local builds. Short and Full render the
// values for the CLI and for the User-Agent sent to release feeds.
package version
