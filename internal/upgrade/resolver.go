package upgrade

import (
	"context"
	"fmt"
)

// Chooser selects one entry from a candidate list by index. It is injected by
// the caller (interactive prompt, flag, or test fixture) and is only consulted
// when more than one candidate exists.
type Chooser func(candidates []string) (int, error)

// Resolver identifies the deployment and container to upgrade.
type Resolver struct {
	gateway Gateway
}

// NewResolver creates a resolver backed by the given gateway.
func NewResolver(gateway Gateway) *Resolver {
	return &Resolver{gateway: gateway}
}

// ResolveDeployment returns the single deployment matching namespace and
// selector. With zero matches it fails with ErrNotFound; with multiple
// matches the injected chooser disambiguates, and an absent or invalid
// choice fails with ErrAmbiguousTarget.
func (r *Resolver) ResolveDeployment(ctx context.Context, namespace, selector string, choose Chooser) (Deployment, error) {
	deployments, err := r.gateway.ListDeployments(ctx, namespace, selector)
	if err != nil {
		return Deployment{}, fmt.Errorf("%w: listing deployments in %s: %v", ErrConnectivity, namespace, err)
	}

	switch len(deployments) {
	case 0:
		return Deployment{}, fmt.Errorf("%w: namespace %s, selector %q", ErrNotFound, namespace, selector)
	case 1:
		return deployments[0], nil
	}

	names := make([]string, len(deployments))
	for i, d := range deployments {
		names[i] = d.Name
	}

	idx, err := pick(names, choose)
	if err != nil {
		return Deployment{}, fmt.Errorf("%w: %d deployments match selector %q: %v", ErrAmbiguousTarget, len(deployments), selector, err)
	}
	return deployments[idx], nil
}

// ResolveContainer returns the single container to upgrade on the chosen
// deployment, applying the same single/multiple/disambiguate rule.
func (r *Resolver) ResolveContainer(ctx context.Context, d Deployment, choose Chooser) (Container, error) {
	containers, err := r.gateway.GetContainers(ctx, d)
	if err != nil {
		return Container{}, fmt.Errorf("%w: reading containers of %s/%s: %v", ErrConnectivity, d.Namespace, d.Name, err)
	}

	switch len(containers) {
	case 0:
		return Container{}, fmt.Errorf("%w: deployment %s/%s has no containers", ErrNotFound, d.Namespace, d.Name)
	case 1:
		return containers[0], nil
	}

	names := make([]string, len(containers))
	for i, c := range containers {
		names[i] = c.Name
	}

	idx, err := pick(names, choose)
	if err != nil {
		return Container{}, fmt.Errorf("%w: %d containers in deployment %s: %v", ErrAmbiguousTarget, len(containers), d.Name, err)
	}
	return containers[idx], nil
}

// pick runs the chooser and validates the returned index.
func pick(candidates []string, choose Chooser) (int, error) {
	if choose == nil {
		return 0, fmt.Errorf("no selection supplied")
	}

	idx, err := choose(candidates)
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= len(candidates) {
		return 0, fmt.Errorf("selection %d out of range [0,%d)", idx, len(candidates))
	}
	return idx, nil
}
