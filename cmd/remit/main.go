// Package main is the entry point for the remit CLI.
package main

import (
	"os"

	"github.com/mrz1836/remit/internal/cli"
)

// Set by the linker at build time.
//
//nolint:gochecknoglobals // ldflags targets
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	cli.SetBuildInfo(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
