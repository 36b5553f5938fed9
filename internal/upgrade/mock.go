package upgrade

import (
	"context"
	"sync"
)

// MockGateway is a test double for Gateway. Each method delegates to the
// corresponding func field when set and falls back to a benign default
// otherwise. Calls records the sequence of gateway operations so ordering
// invariants (snapshot before image-set, exactly one undo) can be asserted.
type MockGateway struct {
	ListDeploymentsFunc    func(ctx context.Context, namespace, selector string) ([]Deployment, error)
	GetContainersFunc      func(ctx context.Context, d Deployment) ([]Container, error)
	PatchStrategyFunc      func(ctx context.Context, d Deployment, maxUnavailable, maxSurge int) error
	GetManifestFunc        func(ctx context.Context, d Deployment) ([]byte, error)
	SetImageFunc           func(ctx context.Context, d Deployment, container, image string) error
	WatchRolloutStatusFunc func(ctx context.Context, d Deployment) (RolloutOutcome, error)
	ListPodsFunc           func(ctx context.Context, namespace, selector string) ([]Pod, error)
	ExecInPodFunc          func(ctx context.Context, pod Pod, command []string) (int, string, error)
	GetPodReadinessFunc    func(ctx context.Context, pod Pod) (bool, error)
	RolloutUndoFunc        func(ctx context.Context, d Deployment) error

	mu    sync.Mutex
	calls []string
}

func (m *MockGateway) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op)
}

// Calls returns the recorded operation sequence.
func (m *MockGateway) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many times the named operation was invoked.
func (m *MockGateway) CallCount(op string) int {
	n := 0
	for _, c := range m.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

func (m *MockGateway) ListDeployments(ctx context.Context, namespace, selector string) ([]Deployment, error) {
	m.record("listDeployments")
	if m.ListDeploymentsFunc != nil {
		return m.ListDeploymentsFunc(ctx, namespace, selector)
	}
	return nil, nil
}

func (m *MockGateway) GetContainers(ctx context.Context, d Deployment) ([]Container, error) {
	m.record("getContainers")
	if m.GetContainersFunc != nil {
		return m.GetContainersFunc(ctx, d)
	}
	return d.Containers, nil
}

func (m *MockGateway) PatchStrategy(ctx context.Context, d Deployment, maxUnavailable, maxSurge int) error {
	m.record("patchStrategy")
	if m.PatchStrategyFunc != nil {
		return m.PatchStrategyFunc(ctx, d, maxUnavailable, maxSurge)
	}
	return nil
}

func (m *MockGateway) GetManifest(ctx context.Context, d Deployment) ([]byte, error) {
	m.record("getManifest")
	if m.GetManifestFunc != nil {
		return m.GetManifestFunc(ctx, d)
	}
	return []byte("apiVersion: apps/v1\nkind: Deployment\n"), nil
}

func (m *MockGateway) SetImage(ctx context.Context, d Deployment, container, image string) error {
	m.record("setImage")
	if m.SetImageFunc != nil {
		return m.SetImageFunc(ctx, d, container, image)
	}
	return nil
}

func (m *MockGateway) WatchRolloutStatus(ctx context.Context, d Deployment) (RolloutOutcome, error) {
	m.record("watchRolloutStatus")
	if m.WatchRolloutStatusFunc != nil {
		return m.WatchRolloutStatusFunc(ctx, d)
	}
	return RolloutSucceeded, nil
}

func (m *MockGateway) ListPods(ctx context.Context, namespace, selector string) ([]Pod, error) {
	m.record("listPods")
	if m.ListPodsFunc != nil {
		return m.ListPodsFunc(ctx, namespace, selector)
	}
	return nil, nil
}

func (m *MockGateway) ExecInPod(ctx context.Context, pod Pod, command []string) (int, string, error) {
	m.record("execInPod")
	if m.ExecInPodFunc != nil {
		return m.ExecInPodFunc(ctx, pod, command)
	}
	return 0, "", nil
}

func (m *MockGateway) GetPodReadiness(ctx context.Context, pod Pod) (bool, error) {
	m.record("getPodReadiness")
	if m.GetPodReadinessFunc != nil {
		return m.GetPodReadinessFunc(ctx, pod)
	}
	return false, nil
}

func (m *MockGateway) RolloutUndo(ctx context.Context, d Deployment) error {
	m.record("rolloutUndo")
	if m.RolloutUndoFunc != nil {
		return m.RolloutUndoFunc(ctx, d)
	}
	return nil
}
