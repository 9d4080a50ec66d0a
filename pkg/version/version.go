// Package version carries build metadata.
package version

import "fmt"

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/newtron-network/portfinder/pkg/version.Version=v1.0.0 \
//	  -X github.com/newtron-network/portfinder/pkg/version.GitCommit=abc1234 \
//	  -X github.com/newtron-network/portfinder/pkg/version.BuildDate=2026-01-01T00:00:00Z" \
//	  ./cmd/portfinder
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a formatted version string for display.
func Info() string {
	return fmt.Sprintf("portfinder %s (%s) built %s", Version, GitCommit, BuildDate)
}
