package handlers

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/anvilops/rollguard/internal/upgrade"
)

// namedChooser returns a chooser that selects the candidate matching name,
// for runs where the target is pinned by flag instead of chosen
// interactively.
func namedChooser(name string) upgrade.Chooser {
	return func(candidates []string) (int, error) {
		for i, candidate := range candidates {
			if candidate == name {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%q is not among the candidates %v", name, candidates)
	}
}

// selectChooser returns a chooser that presents the candidates in an
// interactive select prompt.
func selectChooser(title string) upgrade.Chooser {
	return func(candidates []string) (int, error) {
		options := make([]huh.Option[int], 0, len(candidates))
		for i, candidate := range candidates {
			options = append(options, huh.NewOption(candidate, i))
		}

		var selected int
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[int]().
					Title(title).
					Options(options...).
					Value(&selected),
			),
		).Run()
		if err != nil {
			return 0, err
		}
		return selected, nil
	}
}

// confirm shows a yes/no prompt with the given title and description.
func confirm(title, description string) (bool, error) {
	var approved bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Proceed").
				Negative("Abort").
				Value(&approved),
		),
	).Run()
	if err != nil {
		return false, err
	}
	return approved, nil
}

// buildDecisions wires flag values and interactivity into the decision
// points of the upgrade workflow. With --yes every confirmation is
// approved; ambiguous targets still fail in that mode unless pinned by
// flag, since guessing a deployment is worse than stopping.
func buildDecisions(opts UpgradeOptions) upgrade.Decisions {
	decisions := upgrade.Decisions{}

	if opts.Deployment != "" {
		decisions.ChooseDeployment = namedChooser(opts.Deployment)
	} else if !opts.Yes {
		decisions.ChooseDeployment = selectChooser("Select the deployment to upgrade")
	}

	if opts.Container != "" {
		decisions.ChooseContainer = namedChooser(opts.Container)
	} else if !opts.Yes {
		decisions.ChooseContainer = selectChooser("Select the container to upgrade")
	}

	if opts.Yes {
		decisions.ConfirmDowngrade = func(upgrade.Version, upgrade.Version) (bool, error) { return true, nil }
		decisions.ConfirmStrategy = func(upgrade.RolloutStrategy) (bool, error) { return true, nil }
		decisions.ConfirmUpdate = func(upgrade.Deployment, upgrade.Container, string) (bool, error) { return true, nil }
		return decisions
	}

	decisions.ConfirmDowngrade = func(current, target upgrade.Version) (bool, error) {
		return confirm(
			fmt.Sprintf("Downgrade from %s to %s?", current, target),
			"The target image is a major version behind the running one.",
		)
	}
	decisions.ConfirmStrategy = func(s upgrade.RolloutStrategy) (bool, error) {
		return confirm(
			fmt.Sprintf("Apply rollout strategy maxUnavailable=%d maxSurge=%d?", s.MaxUnavailable, s.MaxSurge),
			"Declining keeps the deployment's current strategy.",
		)
	}
	decisions.ConfirmUpdate = func(d upgrade.Deployment, c upgrade.Container, image string) (bool, error) {
		return confirm(
			fmt.Sprintf("Update %s/%s container %s to %s?", d.Namespace, d.Name, c.Name, image),
			"A manifest snapshot has been written; a failed rollout reverts automatically.",
		)
	}
	return decisions
}
