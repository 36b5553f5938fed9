package upgrade

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDeployment_SingleMatchAutoSelects(t *testing.T) {
	t.Parallel()

	gw := &MockGateway{
		ListDeploymentsFunc: func(_ context.Context, namespace, selector string) ([]Deployment, error) {
			assert.Equal(t, "prod", namespace)
			assert.Equal(t, "app=controller", selector)
			return []Deployment{{Name: "controller", Namespace: "prod"}}, nil
		},
	}

	r := NewResolver(gw)
	d, err := r.ResolveDeployment(context.Background(), "prod", "app=controller", nil)

	require.NoError(t, err)
	assert.Equal(t, "controller", d.Name)
}

func TestResolveDeployment_NoMatch(t *testing.T) {
	t.Parallel()

	gw := &MockGateway{
		ListDeploymentsFunc: func(_ context.Context, _, _ string) ([]Deployment, error) {
			return nil, nil
		},
	}

	r := NewResolver(gw)
	_, err := r.ResolveDeployment(context.Background(), "prod", "app=controller", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveDeployment_ListErrorIsConnectivity(t *testing.T) {
	t.Parallel()

	gw := &MockGateway{
		ListDeploymentsFunc: func(_ context.Context, _, _ string) ([]Deployment, error) {
			return nil, errors.New("connection refused")
		},
	}

	r := NewResolver(gw)
	_, err := r.ResolveDeployment(context.Background(), "prod", "app=controller", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectivity)
}

func TestResolveDeployment_MultipleMatchesUseChooser(t *testing.T) {
	t.Parallel()

	gw := &MockGateway{
		ListDeploymentsFunc: func(_ context.Context, _, _ string) ([]Deployment, error) {
			return []Deployment{
				{Name: "controller-blue"},
				{Name: "controller-green"},
			}, nil
		},
	}

	var seen []string
	choose := func(candidates []string) (int, error) {
		seen = candidates
		return 1, nil
	}

	r := NewResolver(gw)
	d, err := r.ResolveDeployment(context.Background(), "prod", "app=controller", choose)

	require.NoError(t, err)
	assert.Equal(t, "controller-green", d.Name)
	assert.Equal(t, []string{"controller-blue", "controller-green"}, seen)
}

func TestResolveDeployment_MultipleMatchesWithoutChooser(t *testing.T) {
	t.Parallel()

	gw := &MockGateway{
		ListDeploymentsFunc: func(_ context.Context, _, _ string) ([]Deployment, error) {
			return []Deployment{{Name: "a"}, {Name: "b"}}, nil
		},
	}

	r := NewResolver(gw)
	_, err := r.ResolveDeployment(context.Background(), "prod", "app=controller", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousTarget)
}

func TestResolveDeployment_InvalidChoice(t *testing.T) {
	t.Parallel()

	gw := &MockGateway{
		ListDeploymentsFunc: func(_ context.Context, _, _ string) ([]Deployment, error) {
			return []Deployment{{Name: "a"}, {Name: "b"}}, nil
		},
	}

	r := NewResolver(gw)
	_, err := r.ResolveDeployment(context.Background(), "prod", "app=controller", func([]string) (int, error) {
		return 7, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousTarget)
}

func TestResolveContainer_SingleAutoSelects(t *testing.T) {
	t.Parallel()

	d := Deployment{
		Name:       "controller",
		Namespace:  "prod",
		Containers: []Container{{Name: "controller", Image: "registry/controller:v1.9.5"}},
	}

	r := NewResolver(&MockGateway{})
	c, err := r.ResolveContainer(context.Background(), d, nil)

	require.NoError(t, err)
	assert.Equal(t, "controller", c.Name)
}

func TestResolveContainer_MultipleUseChooser(t *testing.T) {
	t.Parallel()

	d := Deployment{
		Name:      "controller",
		Namespace: "prod",
		Containers: []Container{
			{Name: "controller", Image: "registry/controller:v1.9.5"},
			{Name: "sidecar", Image: "registry/sidecar:v0.3.0"},
		},
	}

	r := NewResolver(&MockGateway{})
	c, err := r.ResolveContainer(context.Background(), d, func(candidates []string) (int, error) {
		require.Equal(t, []string{"controller", "sidecar"}, candidates)
		return 0, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "controller", c.Name)
}

func TestResolveContainer_NoContainers(t *testing.T) {
	t.Parallel()

	gw := &MockGateway{
		GetContainersFunc: func(_ context.Context, _ Deployment) ([]Container, error) {
			return nil, nil
		},
	}

	r := NewResolver(gw)
	_, err := r.ResolveContainer(context.Background(), Deployment{Name: "controller"}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveContainer_ChooserError(t *testing.T) {
	t.Parallel()

	d := Deployment{
		Containers: []Container{{Name: "a"}, {Name: "b"}},
	}

	r := NewResolver(&MockGateway{})
	_, err := r.ResolveContainer(context.Background(), d, func([]string) (int, error) {
		return 0, errors.New("selection aborted")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousTarget)
}
