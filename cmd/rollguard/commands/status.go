package commands

import (
	"github.com/spf13/cobra"

	"github.com/anvilops/rollguard/cmd/rollguard/handlers"
)

// Status returns the command that shows the deployments rollguard would
// operate on, with their images, replica counts and rollout strategy.
//
// Optional flags:
//
//	--namespace, -n: Kubernetes namespace
//	--selector, -l: Label selector for candidate deployments
func Status() *cobra.Command {
	var opts handlers.StatusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show managed deployments and their images",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Namespace, "namespace", "n", "", "Kubernetes namespace")
	cmd.Flags().StringVarP(&opts.Selector, "selector", "l", "", "Label selector for candidate deployments")
	cmd.Flags().StringVar(&opts.Kubeconfig, "kubeconfig", "", "Path to kubeconfig file")
	cmd.Flags().StringVar(&opts.Context, "context", "", "Kubeconfig context to use")

	return cmd
}
