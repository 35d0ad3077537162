// Package main is the entry point for the etenda CLI.
package main

import (
	"os"

	"github.com/etenda/etenda/internal/cli"
	versionpkg "github.com/etenda/etenda/internal/version"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
//
//nolint:gochecknoglobals // link-time build metadata
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	cli.SetBuildInfo(versionpkg.Build{Version: version, Commit: commit, Date: date})
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
