package handlers

import (
	"context"
	"fmt"

	"github.com/anvilops/rollguard/internal/config"
	"github.com/anvilops/rollguard/internal/k8s"
	"github.com/anvilops/rollguard/internal/upgrade"
)

// RollbackOptions contains options for the rollback command.
type RollbackOptions struct {
	Kubeconfig string
	Context    string

	Namespace  string
	Selector   string
	Deployment string

	// Yes skips the confirmation prompt.
	Yes bool
}

// Rollback handles the rollback command.
//
// It resolves the target deployment the same way the upgrade command does,
// asks for confirmation and reverts the deployment to its previous
// revision.
func Rollback(ctx context.Context, opts RollbackOptions) error {
	cfg := config.Load()
	if opts.Namespace != "" {
		cfg.Namespace = opts.Namespace
	}
	if opts.Selector != "" {
		cfg.Selector = opts.Selector
	}
	if opts.Kubeconfig != "" {
		cfg.Kubeconfig = opts.Kubeconfig
	}
	if opts.Context != "" {
		cfg.Context = opts.Context
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	gateway, err := k8s.NewClient(k8s.Options{
		Kubeconfig:     cfg.Kubeconfig,
		Context:        cfg.Context,
		RolloutTimeout: cfg.RolloutTimeout,
		PollInterval:   cfg.PollInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}

	return runRollback(ctx, gateway, cfg, opts)
}

// runRollback reverts the resolved deployment against an already
// constructed gateway.
func runRollback(ctx context.Context, gateway upgrade.Gateway, cfg *config.Config, opts RollbackOptions) error {
	var chooser upgrade.Chooser
	if opts.Deployment != "" {
		chooser = namedChooser(opts.Deployment)
	} else if !opts.Yes {
		chooser = selectChooser("Select the deployment to roll back")
	}

	observer := upgrade.NewConsoleObserver()
	resolver := upgrade.NewResolver(gateway)

	deployment, err := resolver.ResolveDeployment(ctx, cfg.Namespace, cfg.Selector, chooser)
	if err != nil {
		return fmt.Errorf("failed to resolve deployment: %w", err)
	}

	if !opts.Yes {
		approved, err := confirm(
			fmt.Sprintf("Revert %s/%s to its previous revision?", deployment.Namespace, deployment.Name),
			"This restores the pod template of the prior rollout.",
		)
		if err != nil {
			return err
		}
		if !approved {
			fmt.Println(dimStyle.Render("○ cancelled"))
			return nil
		}
	}

	coordinator := upgrade.NewRollbackCoordinator(gateway, observer)
	if err := coordinator.Revert(ctx, deployment); err != nil {
		fmt.Println(failStyle.Render("✗ rollback failed"))
		fmt.Printf("  recover manually with: %s\n", upgrade.ManualRecipe(deployment))
		return err
	}

	fmt.Println(okStyle.Render(fmt.Sprintf("✓ %s/%s reverted to previous revision", deployment.Namespace, deployment.Name)))
	return nil
}
