package upgrade

import (
	"context"
	"fmt"
)

// RollbackCoordinator reverts a deployment to its prior revision when the
// rollout or health verification fails.
type RollbackCoordinator struct {
	gateway  Gateway
	observer Observer
}

// NewRollbackCoordinator creates a rollback coordinator.
func NewRollbackCoordinator(gateway Gateway, observer Observer) *RollbackCoordinator {
	return &RollbackCoordinator{gateway: gateway, observer: observer}
}

// Revert issues a single undo against the deployment, reverting to the
// immediately prior revision tracked by the platform. The snapshot file is
// not replayed. A failed undo is not retried: automated remediation is
// exhausted at that point and the error escalates to the operator.
func (r *RollbackCoordinator) Revert(ctx context.Context, d Deployment) error {
	r.observer.Event(Event{
		Type:    EventRollbackIssued,
		Stage:   "rollback",
		Message: fmt.Sprintf("reverting %s/%s to previous revision", d.Namespace, d.Name),
	})

	if err := r.gateway.RolloutUndo(ctx, d); err != nil {
		return fmt.Errorf("%w: undo of %s/%s: %v", ErrMutationFailed, d.Namespace, d.Name, err)
	}

	r.observer.Event(Event{
		Type:    EventStageCompleted,
		Stage:   "rollback",
		Message: "rollback completed",
	})
	return nil
}

// ManualRecipe returns the command an operator can run to revert the
// deployment by hand. Emitted at the end of every run, regardless of outcome,
// so the remedy survives even when automation is exhausted.
func ManualRecipe(d Deployment) string {
	return fmt.Sprintf("kubectl rollout undo deployment/%s -n %s", d.Name, d.Namespace)
}
