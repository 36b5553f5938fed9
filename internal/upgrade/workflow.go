package upgrade

import (
	"context"
	"fmt"
	"strings"
)

// State is a position in the upgrade state machine.
type State string

const (
	StateIdle               State = "Idle"
	StateTargetResolved     State = "TargetResolved"
	StateVersionChecked     State = "VersionChecked"
	StateStrategyConfigured State = "StrategyConfigured"
	StateSnapshotted        State = "Snapshotted"
	StateConfirmedToUpdate  State = "ConfirmedToUpdate"
	StateRolloutRunning     State = "RolloutRunning"
	StateRolloutSucceeded   State = "RolloutSucceeded"
	StateRolloutFailed      State = "RolloutFailed"
	StateHealthChecking     State = "HealthChecking"
	StateRollingBack        State = "RollingBack"

	// Terminal states.
	StateDone      State = "Done"
	StateEscalated State = "Escalated"
	StateCancelled State = "Cancelled"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateEscalated || s == StateCancelled
}

// Decisions are the externally supplied answers the workflow consults at its
// interaction points. The workflow itself never prompts; callers wire these
// to prompts, flags, or test fixtures.
type Decisions struct {
	// ChooseDeployment disambiguates when multiple deployments match.
	ChooseDeployment Chooser
	// ChooseContainer disambiguates when the deployment has multiple containers.
	ChooseContainer Chooser
	// ConfirmDowngrade gates a detected major-version downgrade. Nil declines.
	ConfirmDowngrade func(current, target Version) (bool, error)
	// ConfirmStrategy gates applying the safe-default rolling strategy.
	// Nil means yes, the default.
	ConfirmStrategy func(strategy RolloutStrategy) (bool, error)
	// ConfirmUpdate is the final gate before the image is mutated. Nil
	// declines: an explicit affirmative is required to mutate anything.
	ConfirmUpdate func(d Deployment, c Container, image string) (bool, error)
}

// Options configures a workflow run.
type Options struct {
	Namespace   string
	Selector    string
	TargetImage string

	SnapshotDir  string
	SnapshotKeep int

	Health HealthOptions
}

// Result is the outcome of a workflow run.
type Result struct {
	State      State
	Deployment Deployment
	Container  Container
	Outcome    RolloutOutcome
	Verdict    HealthVerdict
	Snapshot   Snapshot
	// Recipe is the manual rollback command, populated once a target has
	// been resolved.
	Recipe string
}

// Workflow drives one upgrade run through the state machine. A Workflow is
// single-use and single-threaded: stages run strictly sequentially and the
// deployment is assumed to have no other concurrent mutator.
type Workflow struct {
	opts      Options
	decisions Decisions
	observer  Observer

	resolver   *Resolver
	comparator func(string) Version
	strategist *StrategyConfigurator
	snapshots  *SnapshotWriter
	rollout    *RolloutController
	health     *HealthVerifier
	rollback   *RollbackCoordinator

	state State
}

// NewWorkflow assembles an upgrade workflow over the given gateway.
func NewWorkflow(gateway Gateway, opts Options, decisions Decisions, observer Observer) *Workflow {
	if observer == nil {
		observer = NewConsoleObserver()
	}

	return &Workflow{
		opts:       opts,
		decisions:  decisions,
		observer:   observer,
		resolver:   NewResolver(gateway),
		comparator: ParseVersion,
		strategist: NewStrategyConfigurator(gateway, observer),
		snapshots:  NewSnapshotWriter(gateway, observer, opts.SnapshotDir),
		rollout:    NewRolloutController(gateway, observer),
		health:     NewHealthVerifier(gateway, observer, opts.Health),
		rollback:   NewRollbackCoordinator(gateway, observer),
		state:      StateIdle,
	}
}

// State returns the workflow's current state.
func (w *Workflow) State() State {
	return w.state
}

// Run executes the upgrade end to end and returns the terminal result. An
// error return means the run aborted before reaching a terminal state (or
// escalated); Result.State records where it stopped. The manual rollback
// recipe is populated whenever a target was resolved, whatever the outcome.
func (w *Workflow) Run(ctx context.Context) (Result, error) {
	res := Result{State: w.state}

	// Reject a bad target image up front, before any cluster call. Waiting
	// for the rollout stage to catch it would leave a strategy patch and a
	// snapshot behind with nothing to roll back.
	if strings.TrimSpace(w.opts.TargetImage) == "" {
		return res, fmt.Errorf("%w: image reference is empty", ErrInvalidInput)
	}

	// Target resolution. Read-only; any failure aborts with nothing to
	// roll back.
	deployment, err := w.resolver.ResolveDeployment(ctx, w.opts.Namespace, w.opts.Selector, w.decisions.ChooseDeployment)
	if err != nil {
		return res, err
	}
	container, err := w.resolver.ResolveContainer(ctx, deployment, w.decisions.ChooseContainer)
	if err != nil {
		return res, err
	}
	w.state = StateTargetResolved
	res.State, res.Deployment, res.Container = w.state, deployment, container
	res.Recipe = ManualRecipe(deployment)
	w.observer.Printf("upgrade target: %s/%s container %s (%s)", deployment.Namespace, deployment.Name, container.Name, container.Image)

	// Advisory version check. Only a major-version regression gates, and
	// only when both versions are known.
	if cancelled, err := w.checkVersions(container.Image); err != nil {
		return res, err
	} else if cancelled {
		w.state = StateCancelled
		res.State = w.state
		return res, nil
	}
	w.state = StateVersionChecked
	res.State = w.state

	// Strategy configuration, confirmation defaulting to yes.
	if err := w.configureStrategy(ctx, deployment); err != nil {
		return res, err
	}
	w.state = StateStrategyConfigured
	res.State = w.state

	// Snapshot before the image mutation, always.
	snapshot, err := w.snapshots.Capture(ctx, deployment)
	if err != nil {
		return res, err
	}
	w.state = StateSnapshotted
	res.State, res.Snapshot = w.state, snapshot
	if w.opts.SnapshotKeep > 0 {
		if err := w.snapshots.Prune(deployment.Name, w.opts.SnapshotKeep); err != nil {
			w.observer.Printf("snapshot pruning: %v", err)
		}
	}

	// Final explicit gate. Declining leaves the cluster untouched.
	ok, err := w.confirmUpdate(deployment, container)
	if err != nil {
		return res, err
	}
	if !ok {
		w.observer.Event(Event{
			Type:    EventStageSkipped,
			Stage:   "update",
			Message: "update not confirmed, nothing was changed",
		})
		w.state = StateCancelled
		res.State = w.state
		return res, nil
	}
	w.state = StateConfirmedToUpdate
	res.State = w.state

	// Point of no return.
	w.state = StateRolloutRunning
	res.State = w.state
	outcome, err := w.rollout.Update(ctx, deployment, container, w.opts.TargetImage)
	if err != nil {
		return res, err
	}
	res.Outcome = outcome

	if outcome != RolloutSucceeded {
		// A non-converging rollout is treated identically to an unhealthy one.
		w.state = StateRolloutFailed
		res.State = w.state
		return w.rollBack(ctx, deployment, res)
	}
	w.state = StateRolloutSucceeded
	res.State = w.state

	// Tiered health verification.
	w.state = StateHealthChecking
	res.State = w.state
	verdict, err := w.health.Verify(ctx, deployment, w.opts.Selector)
	if err != nil {
		// Past the point of no return a failed verification attempt is
		// handled like an unhealthy verdict.
		w.observer.Printf("health verification error: %v", err)
		verdict = Unhealthy
	}
	res.Verdict = verdict
	w.observer.Printf("health verdict for %s/%s: %s", deployment.Namespace, deployment.Name, verdict)

	if !verdict.Healthy() {
		return w.rollBack(ctx, deployment, res)
	}

	w.state = StateDone
	res.State = w.state
	return res, nil
}

// checkVersions compares the current and target image versions and gates on
// an external confirmation when a major downgrade is detected. The check is
// skipped entirely when either version is unknown.
func (w *Workflow) checkVersions(currentImage string) (cancelled bool, err error) {
	current := w.comparator(currentImage)
	target := w.comparator(w.opts.TargetImage)

	if !IsMajorDowngrade(current, target) {
		return false, nil
	}

	w.observer.Event(Event{
		Type:    EventWarning,
		Stage:   "version",
		Message: fmt.Sprintf("target %s is a major downgrade from %s", target, current),
	})

	if w.decisions.ConfirmDowngrade == nil {
		return true, nil
	}
	ok, err := w.decisions.ConfirmDowngrade(current, target)
	if err != nil {
		return false, fmt.Errorf("downgrade confirmation: %w", err)
	}
	return !ok, nil
}

func (w *Workflow) configureStrategy(ctx context.Context, d Deployment) error {
	strategy := DefaultStrategy()

	if w.decisions.ConfirmStrategy != nil {
		ok, err := w.decisions.ConfirmStrategy(strategy)
		if err != nil {
			return fmt.Errorf("strategy confirmation: %w", err)
		}
		if !ok {
			w.observer.Event(Event{
				Type:    EventStageSkipped,
				Stage:   "strategy",
				Message: "keeping existing rollout strategy",
			})
			return nil
		}
	}

	return w.strategist.Apply(ctx, d, strategy)
}

func (w *Workflow) confirmUpdate(d Deployment, c Container) (bool, error) {
	if w.decisions.ConfirmUpdate == nil {
		return false, nil
	}
	ok, err := w.decisions.ConfirmUpdate(d, c, w.opts.TargetImage)
	if err != nil {
		return false, fmt.Errorf("update confirmation: %w", err)
	}
	return ok, nil
}

// rollBack runs the shared rollback sub-transition used by both the failed
// rollout and failed health paths.
func (w *Workflow) rollBack(ctx context.Context, d Deployment, res Result) (Result, error) {
	w.state = StateRollingBack
	res.State = w.state

	if err := w.rollback.Revert(ctx, d); err != nil {
		w.state = StateEscalated
		res.State = w.state
		return res, err
	}

	w.state = StateDone
	res.State = w.state
	return res, nil
}
