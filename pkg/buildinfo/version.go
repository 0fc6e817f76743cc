// Package buildinfo holds version information stamped in at build time:
//
//	go build -ldflags "-X github.com/heyharoon/vpo/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/heyharoon/vpo/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/heyharoon/vpo/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/vpo
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the formatted build information.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the --version template for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (%s, built %s)\n", Version, Commit, Date)
}
