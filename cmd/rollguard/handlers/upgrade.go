// Package handlers implements the command execution logic for the rollguard
// CLI. Handlers load configuration, construct the cluster client and drive
// the upgrade workflow, rendering results for the terminal.
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anvilops/rollguard/internal/config"
	"github.com/anvilops/rollguard/internal/k8s"
	"github.com/anvilops/rollguard/internal/upgrade"
)

// UpgradeOptions contains options for the upgrade command.
type UpgradeOptions struct {
	Kubeconfig string
	Context    string

	Namespace  string
	Selector   string
	Deployment string
	Container  string
	Image      string

	// Yes approves all confirmations for scripted runs.
	Yes bool
}

// Upgrade handles the upgrade command.
//
// It loads configuration, connects to the cluster and runs the guarded
// upgrade workflow: resolve target, gate downgrades, configure strategy,
// snapshot, roll out, verify health, and revert on failure.
func Upgrade(ctx context.Context, opts UpgradeOptions) error {
	cfg := config.Load()
	applyUpgradeOverrides(cfg, opts)
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

	return runUpgrade(ctx, gateway, cfg, opts)
}

// runUpgrade drives the workflow against an already constructed gateway.
func runUpgrade(ctx context.Context, gateway upgrade.Gateway, cfg *config.Config, opts UpgradeOptions) error {
	workflow := upgrade.NewWorkflow(gateway, workflowOptions(cfg, opts.Image), buildDecisions(opts), nil)

	result, err := workflow.Run(ctx)
	fmt.Print(renderResult(result))

	if err != nil {
		return fmt.Errorf("upgrade failed: %w", err)
	}
	return nil
}

// applyUpgradeOverrides layers command-line flags over the loaded
// configuration. Flags win over environment variables and defaults.
func applyUpgradeOverrides(cfg *config.Config, opts UpgradeOptions) {
	if opts.Kubeconfig != "" {
		cfg.Kubeconfig = opts.Kubeconfig
	}
	if opts.Context != "" {
		cfg.Context = opts.Context
	}
	if opts.Namespace != "" {
		cfg.Namespace = opts.Namespace
	}
	if opts.Selector != "" {
		cfg.Selector = opts.Selector
	}
}

// workflowOptions maps runtime configuration onto the workflow's options.
func workflowOptions(cfg *config.Config, image string) upgrade.Options {
	return upgrade.Options{
		Namespace:    cfg.Namespace,
		Selector:     cfg.Selector,
		TargetImage:  image,
		SnapshotDir:  cfg.SnapshotDir,
		SnapshotKeep: cfg.SnapshotKeep,
		Health: upgrade.HealthOptions{
			Port:          cfg.ProbePort,
			PrimaryPath:   cfg.PrimaryPath,
			SecondaryPath: cfg.SecondaryPath,
			SettleDelay:   cfg.SettleDelay,
		},
	}
}

// renderResult produces the styled terminal summary for a workflow result.
func renderResult(result upgrade.Result) string {
	var b strings.Builder

	b.WriteString("\n")
	target := "upgrade"
	if result.Deployment.Name != "" {
		target = fmt.Sprintf("%s/%s", result.Deployment.Namespace, result.Deployment.Name)
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("  rollguard: %s", target)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("═", 30)))
	b.WriteString("\n\n")

	if result.Snapshot.Path != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  snapshot: %s", result.Snapshot.Path)))
		b.WriteString("\n")
	}

	switch result.State {
	case upgrade.StateDone:
		if result.Verdict.Healthy() {
			b.WriteString(okStyle.Render(fmt.Sprintf("  ✓ upgrade complete (%s)", result.Verdict)))
		} else {
			b.WriteString(warnStyle.Render(fmt.Sprintf("  ↩ rolled back to previous revision (%s)", result.Outcome)))
		}
	case upgrade.StateCancelled:
		b.WriteString(dimStyle.Render("  ○ cancelled, no changes applied to the rollout"))
	case upgrade.StateEscalated:
		b.WriteString(failStyle.Render("  ✗ automatic rollback failed, manual intervention required"))
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("  Recover with:"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("    %s", result.Recipe))
	default:
		b.WriteString(failStyle.Render(fmt.Sprintf("  ✗ upgrade aborted at %s", result.State)))
		if result.Recipe != "" {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(fmt.Sprintf("  manual rollback if needed: %s", result.Recipe)))
		}
	}

	b.WriteString("\n\n")
	return b.String()
}
