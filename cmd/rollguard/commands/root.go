// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the rollguard CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollguard",
		Short: "Guarded image upgrades for Kubernetes deployments",
	}

	cmd.AddCommand(Upgrade())
	cmd.AddCommand(Rollback())
	cmd.AddCommand(Status())
	cmd.AddCommand(Version())

	return cmd
}
