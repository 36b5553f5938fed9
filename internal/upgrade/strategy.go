package upgrade

import (
	"context"
	"fmt"
)

// Safe-default rolling strategy: never reduce serving capacity, roll one
// surge pod at a time.
const (
	DefaultMaxUnavailable = 0
	DefaultMaxSurge       = 1
)

// DefaultStrategy returns the safe-default rolling-update parameters proposed
// before every upgrade.
func DefaultStrategy() RolloutStrategy {
	return RolloutStrategy{
		MaxUnavailable: DefaultMaxUnavailable,
		MaxSurge:       DefaultMaxSurge,
	}
}

// StrategyConfigurator applies rolling-update parameters to a deployment.
type StrategyConfigurator struct {
	gateway  Gateway
	observer Observer
}

// NewStrategyConfigurator creates a strategy configurator.
func NewStrategyConfigurator(gateway Gateway, observer Observer) *StrategyConfigurator {
	return &StrategyConfigurator{gateway: gateway, observer: observer}
}

// Apply patches the deployment's rolling-update strategy in a single call.
// A rejected patch is surfaced, never retried: strategy misconfiguration must
// not proceed silently.
func (s *StrategyConfigurator) Apply(ctx context.Context, d Deployment, strategy RolloutStrategy) error {
	err := s.gateway.PatchStrategy(ctx, d, strategy.MaxUnavailable, strategy.MaxSurge)
	if err != nil {
		return fmt.Errorf("%w: patching strategy of %s/%s: %v", ErrMutationFailed, d.Namespace, d.Name, err)
	}

	s.observer.Event(Event{
		Type:    EventStageCompleted,
		Stage:   "strategy",
		Message: fmt.Sprintf("rolling update set to maxUnavailable=%d maxSurge=%d", strategy.MaxUnavailable, strategy.MaxSurge),
	})
	return nil
}
