package commands

import (
	"github.com/spf13/cobra"

	"github.com/anvilops/rollguard/cmd/rollguard/handlers"
)

// Rollback returns the command for manually reverting a deployment to its
// previous revision.
//
// Optional flags:
//
//	--namespace, -n: Kubernetes namespace
//	--selector, -l: Label selector for candidate deployments
//	--deployment: Deployment name (skips interactive selection)
//	--yes, -y: Skip the confirmation prompt
func Rollback() *cobra.Command {
	var opts handlers.RollbackOptions

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert a deployment to its previous revision",
		Long: `Revert a deployment to the revision it ran before the last rollout.

This performs a single-step undo against the deployment's revision
history, equivalent to kubectl rollout undo.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Rollback(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Namespace, "namespace", "n", "", "Kubernetes namespace")
	cmd.Flags().StringVarP(&opts.Selector, "selector", "l", "", "Label selector for candidate deployments")
	cmd.Flags().StringVar(&opts.Deployment, "deployment", "", "Deployment name (skips interactive selection)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().StringVar(&opts.Kubeconfig, "kubeconfig", "", "Path to kubeconfig file")
	cmd.Flags().StringVar(&opts.Context, "context", "", "Kubeconfig context to use")

	return cmd
}
