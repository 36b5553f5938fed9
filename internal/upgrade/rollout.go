package upgrade

import (
	"context"
	"fmt"
	"strings"
)

// RolloutController applies the new image and observes the rollout until the
// platform reports a terminal state.
type RolloutController struct {
	gateway  Gateway
	observer Observer
}

// NewRolloutController creates a rollout controller.
func NewRolloutController(gateway Gateway, observer Observer) *RolloutController {
	return &RolloutController{gateway: gateway, observer: observer}
}

// Update sets the container's image and blocks until the rollout converges,
// fails, or times out. Issuing the image update is the single point of no
// return: after it, failure handling means rollback, not abort.
//
// A Failed or TimedOut outcome is returned without error; the rollback
// decision belongs to the caller, since a technically-converged rollout can
// still be behaviorally unhealthy.
func (c *RolloutController) Update(ctx context.Context, d Deployment, container Container, image string) (RolloutOutcome, error) {
	if strings.TrimSpace(image) == "" {
		return RolloutFailed, fmt.Errorf("%w: image reference is empty", ErrInvalidInput)
	}

	if err := c.gateway.SetImage(ctx, d, container.Name, image); err != nil {
		return RolloutFailed, fmt.Errorf("%w: setting image of %s/%s container %s: %v", ErrMutationFailed, d.Namespace, d.Name, container.Name, err)
	}

	c.observer.Event(Event{
		Type:    EventRolloutStarted,
		Stage:   "rollout",
		Message: fmt.Sprintf("container %s updated to %s", container.Name, image),
		Fields:  map[string]string{"deployment": d.Name, "namespace": d.Namespace},
	})

	outcome, err := c.gateway.WatchRolloutStatus(ctx, d)
	if err != nil {
		return RolloutFailed, fmt.Errorf("watching rollout of %s/%s: %w", d.Namespace, d.Name, err)
	}

	if outcome == RolloutSucceeded {
		c.observer.Event(Event{
			Type:    EventRolloutConverged,
			Stage:   "rollout",
			Message: "all replicas updated and available",
		})
	} else {
		c.observer.Event(Event{
			Type:    EventStageFailed,
			Stage:   "rollout",
			Message: fmt.Sprintf("rollout %s", outcome),
		})
	}

	return outcome, nil
}
