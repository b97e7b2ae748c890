// Command goades validates the signatures, timestamps and evidence records
// described by diagnostic data and prints the simple and detailed reports.
//
// The configuration file given with --config is YAML (see config.Config).
// Any key can be overridden from the environment with the GOADES_ prefix,
// dots and dashes becoming underscores, and flags win over both:
//
//	GOADES_VALIDATION_LEVEL=LONG_TERM_DATA goades validate --format text diagnostic.json
//
// Without --policy the built-in policy applies; "goades policy show" prints
// it. With --archive every run is stored in a sqlite database and can be
// listed with "goades reports list". --strict exits with status 2 unless
// every signature is TOTAL_PASSED.
package main

import (
	"os"

	"github.com/georgepadayatti/goades/cli"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/goades
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.Version = version
	cli.BuildTime = buildTime

	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
