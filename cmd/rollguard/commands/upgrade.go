package commands

import (
	"github.com/spf13/cobra"

	"github.com/anvilops/rollguard/cmd/rollguard/handlers"
)

// Upgrade returns the command for a guarded deployment image upgrade.
//
// The upgrade process:
// 1. Resolves the target deployment and container (prompting on ambiguity)
// 2. Gates major version downgrades behind an explicit confirmation
// 3. Applies a conservative rolling update strategy (maxUnavailable=0, maxSurge=1)
// 4. Snapshots the current manifest to local disk before any image change
// 5. Rolls out the new image and watches for convergence
// 6. Probes application health inside a running pod after the rollout
// 7. Reverts to the previous revision when the rollout fails or health
//    checks do not pass
//
// Required flags:
//
//	--image, -i: New container image reference
//
// Optional flags:
//
//	--namespace, -n: Kubernetes namespace
//	--selector, -l: Label selector for candidate deployments
//	--deployment: Deployment name (skips interactive selection)
//	--container: Container name (skips interactive selection)
//	--yes, -y: Approve all confirmations (non-interactive mode)
func Upgrade() *cobra.Command {
	var opts handlers.UpgradeOptions

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade a deployment image with automatic rollback",
		Long: `Upgrade the image of a Kubernetes deployment under a safety net.

The upgrade is guarded at every step: the current manifest is snapshotted
before any mutation, the rollout uses a zero-downtime surge strategy, and
the application is health-checked after convergence. A failed rollout or
an unhealthy application triggers an automatic revert to the previous
revision. If the revert itself fails, rollguard prints the manual recovery
command and exits non-zero.

Use --yes to approve all confirmations for scripted runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Upgrade(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Image, "image", "i", "", "New container image reference")
	cmd.Flags().StringVarP(&opts.Namespace, "namespace", "n", "", "Kubernetes namespace")
	cmd.Flags().StringVarP(&opts.Selector, "selector", "l", "", "Label selector for candidate deployments")
	cmd.Flags().StringVar(&opts.Deployment, "deployment", "", "Deployment name (skips interactive selection)")
	cmd.Flags().StringVar(&opts.Container, "container", "", "Container name (skips interactive selection)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Approve all confirmations (non-interactive)")
	cmd.Flags().StringVar(&opts.Kubeconfig, "kubeconfig", "", "Path to kubeconfig file")
	cmd.Flags().StringVar(&opts.Context, "context", "", "Kubeconfig context to use")

	// MarkFlagRequired cannot fail for flags defined on the same command
	_ = cmd.MarkFlagRequired("image")

	return cmd
}
