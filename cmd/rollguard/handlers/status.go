package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anvilops/rollguard/internal/config"
	"github.com/anvilops/rollguard/internal/k8s"
	"github.com/anvilops/rollguard/internal/upgrade"
)

// StatusOptions contains options for the status command.
type StatusOptions struct {
	Kubeconfig string
	Context    string

	Namespace string
	Selector  string
}

// Status handles the status command. It lists the deployments matching the
// configured selector with their images, replica counts and rollout
// strategy.
func Status(ctx context.Context, opts StatusOptions) error {
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
		Kubeconfig: cfg.Kubeconfig,
		Context:    cfg.Context,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}

	return runStatus(ctx, gateway, cfg)
}

func runStatus(ctx context.Context, gateway upgrade.Gateway, cfg *config.Config) error {
	deployments, err := gateway.ListDeployments(ctx, cfg.Namespace, cfg.Selector)
	if err != nil {
		return fmt.Errorf("failed to list deployments: %w", err)
	}

	fmt.Print(renderStatus(cfg.Namespace, cfg.Selector, deployments))
	return nil
}

// renderStatus produces the styled deployment listing.
func renderStatus(namespace, selector string, deployments []upgrade.Deployment) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("  rollguard status: %s", namespace)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  selector: %s", selector)))
	b.WriteString("\n\n")

	if len(deployments) == 0 {
		b.WriteString(dimStyle.Render("  no matching deployments"))
		b.WriteString("\n\n")
		return b.String()
	}

	for _, d := range deployments {
		b.WriteString(sectionStyle.Render(fmt.Sprintf("  %s", d.Name)))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  replicas=%d maxUnavailable=%d maxSurge=%d",
			d.Replicas, d.Strategy.MaxUnavailable, d.Strategy.MaxSurge)))
		b.WriteString("\n")
		for _, c := range d.Containers {
			b.WriteString(fmt.Sprintf("    %s: %s\n", c.Name, c.Image))
		}
	}

	b.WriteString("\n")
	return b.String()
}
