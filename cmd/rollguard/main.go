// Package main is the entry point for the rollguard CLI.
//
// rollguard performs guarded image upgrades of Kubernetes deployments:
// it snapshots the current manifest, rolls out the new image under a
// conservative surge strategy, verifies pod health after convergence and
// automatically reverts to the previous revision when the rollout fails
// or the application comes up unhealthy.
//
// Commands: upgrade, rollback, status, version.
//
// For detailed usage information, run:
//
//	rollguard --help
package main

import (
	"fmt"
	"os"

	"github.com/anvilops/rollguard/cmd/rollguard/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
