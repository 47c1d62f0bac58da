// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/hxsocket/internal/version.Version=0.3.0 \
//	                   -X github.com/rickgao/hxsocket/internal/version.Commit=$(git rev-parse --short HEAD)" ./cmd/...
package version

import "log/slog"

// Build-time variables (set via ldflags)
var (
	Version = "dev"
	Commit  = "unknown"
)

// String returns "version (commit)".
func String() string {
	return Version + " (" + Commit + ")"
}

// Attr groups the build information for structured logs.
func Attr() slog.Attr {
	return slog.Group("build",
		slog.String("version", Version),
		slog.String("commit", Commit),
	)
}
