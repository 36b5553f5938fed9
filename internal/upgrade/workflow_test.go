package upgrade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// happyGateway serves one deployment with one container at currentImage, a
// running pod, and health probes that succeed on the primary path.
func happyGateway(currentImage string) *MockGateway {
	return &MockGateway{
		ListDeploymentsFunc: func(_ context.Context, _, _ string) ([]Deployment, error) {
			return []Deployment{{
				Name:       "controller",
				Namespace:  "prod",
				Containers: []Container{{Name: "controller", Image: currentImage}},
				Replicas:   3,
			}}, nil
		},
		ListPodsFunc: func(_ context.Context, _, _ string) ([]Pod, error) {
			return []Pod{{Name: "controller-7d9f", Namespace: "prod", Phase: PodRunning}}, nil
		},
	}
}

func testOptions(t *testing.T, target string) Options {
	t.Helper()
	return Options{
		Namespace:   "prod",
		Selector:    "app=controller",
		TargetImage: target,
		SnapshotDir: t.TempDir(),
		Health:      HealthOptions{SettleDelay: time.Nanosecond},
	}
}

func affirmAll() Decisions {
	return Decisions{
		ConfirmDowngrade: func(_, _ Version) (bool, error) { return true, nil },
		ConfirmStrategy:  func(RolloutStrategy) (bool, error) { return true, nil },
		ConfirmUpdate:    func(Deployment, Container, string) (bool, error) { return true, nil },
	}
}

func TestRun_PatchUpgradeConvergesHealthy(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:v1.9.5")
	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), affirmAll(), NopObserver{})

	res, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, RolloutSucceeded, res.Outcome)
	assert.Equal(t, HealthyPrimary, res.Verdict)
	assert.Equal(t, 0, gw.CallCount("rolloutUndo"), "healthy run must not roll back")
	assert.NotEmpty(t, res.Snapshot.Path)
	assert.Equal(t, "kubectl rollout undo deployment/controller -n prod", res.Recipe)

	// Ordering invariant: the snapshot write always precedes the image set.
	calls := gw.Calls()
	snapIdx, setIdx := indexOf(calls, "getManifest"), indexOf(calls, "setImage")
	require.GreaterOrEqual(t, snapIdx, 0)
	require.GreaterOrEqual(t, setIdx, 0)
	assert.Less(t, snapIdx, setIdx)
}

func TestRun_DowngradeDeclinedCancelsBeforeMutation(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:v1.11.0")

	dec := affirmAll()
	downgradeAsked := false
	dec.ConfirmDowngrade = func(current, target Version) (bool, error) {
		downgradeAsked = true
		assert.Equal(t, "v1.11.0", current.String())
		assert.Equal(t, "v0.9.6", target.String())
		return false, nil
	}

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v0.9.6"), dec, NopObserver{})
	res, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, downgradeAsked)
	assert.Equal(t, StateCancelled, res.State)
	assert.Equal(t, 0, gw.CallCount("patchStrategy"))
	assert.Equal(t, 0, gw.CallCount("setImage"))
	assert.Equal(t, 0, gw.CallCount("rolloutUndo"))
}

func TestRun_MinorDowngradeDoesNotGate(t *testing.T) {
	t.Parallel()

	// v1.11.0 -> v1.9.6 is a minor regression only: no gate, run proceeds.
	gw := happyGateway("registry/controller:v1.11.0")

	dec := affirmAll()
	dec.ConfirmDowngrade = func(_, _ Version) (bool, error) {
		t.Fatal("downgrade gate must not fire for a minor regression")
		return false, nil
	}

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), dec, NopObserver{})
	res, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
}

func TestRun_UnknownVersionSkipsComparison(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:latest")

	dec := affirmAll()
	dec.ConfirmDowngrade = func(_, _ Version) (bool, error) {
		t.Fatal("downgrade gate must not fire when a version is unknown")
		return false, nil
	}

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), dec, NopObserver{})
	res, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
}

func TestRun_DecliningFinalConfirmationCancels(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:v1.9.5")

	dec := affirmAll()
	dec.ConfirmUpdate = func(Deployment, Container, string) (bool, error) { return false, nil }

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), dec, NopObserver{})
	res, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCancelled, res.State)
	assert.Equal(t, 0, gw.CallCount("setImage"), "declined confirmation must leave the image untouched")
}

func TestRun_MissingFinalConfirmationCancels(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:v1.9.5")

	dec := affirmAll()
	dec.ConfirmUpdate = nil

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), dec, NopObserver{})
	res, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCancelled, res.State)
	assert.Equal(t, 0, gw.CallCount("setImage"))
}

func TestRun_RolloutTimeoutTriggersSingleUndo(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:v1.9.5")
	gw.WatchRolloutStatusFunc = func(_ context.Context, _ Deployment) (RolloutOutcome, error) {
		return RolloutTimedOut, nil
	}

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), affirmAll(), NopObserver{})
	res, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State, "successful rollback terminates in Done")
	assert.Equal(t, RolloutTimedOut, res.Outcome)
	assert.Equal(t, 1, gw.CallCount("rolloutUndo"))
	assert.Equal(t, 1, gw.CallCount("setImage"), "no image-set retries")
}

func TestRun_UnhealthyRollsBackOnce(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:v1.9.5")
	gw.ExecInPodFunc = func(_ context.Context, _ Pod, _ []string) (int, string, error) {
		return 1, "", nil
	}
	gw.GetPodReadinessFunc = func(_ context.Context, _ Pod) (bool, error) {
		return false, nil
	}

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), affirmAll(), NopObserver{})
	res, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, Unhealthy, res.Verdict)
	assert.Equal(t, 1, gw.CallCount("rolloutUndo"))
}

func TestRun_FailedUndoEscalates(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:v1.9.5")
	gw.WatchRolloutStatusFunc = func(_ context.Context, _ Deployment) (RolloutOutcome, error) {
		return RolloutFailed, nil
	}
	gw.RolloutUndoFunc = func(_ context.Context, _ Deployment) error {
		return errors.New("no rollout history")
	}

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), affirmAll(), NopObserver{})
	res, err := w.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMutationFailed)
	assert.Equal(t, StateEscalated, res.State)
	assert.NotEmpty(t, res.Recipe, "manual recipe must survive escalation")
}

func TestRun_SnapshotFailureAbortsBeforeMutation(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:v1.9.5")
	gw.GetManifestFunc = func(_ context.Context, _ Deployment) ([]byte, error) {
		return nil, errors.New("apiserver unavailable")
	}

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), affirmAll(), NopObserver{})
	res, err := w.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSnapshotFailed)
	assert.Equal(t, StateStrategyConfigured, res.State)
	assert.Equal(t, 0, gw.CallCount("setImage"), "never upgrade without a snapshot")
}

func TestRun_StrategyPatchRejectionAborts(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:v1.9.5")
	gw.PatchStrategyFunc = func(_ context.Context, _ Deployment, _, _ int) error {
		return errors.New("denied")
	}

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), affirmAll(), NopObserver{})
	res, err := w.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMutationFailed)
	assert.Equal(t, StateVersionChecked, res.State)
	assert.Equal(t, 0, gw.CallCount("setImage"))
}

func TestRun_DecliningStrategyKeepsExistingAndProceeds(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:v1.9.5")

	dec := affirmAll()
	dec.ConfirmStrategy = func(RolloutStrategy) (bool, error) { return false, nil }

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), dec, NopObserver{})
	res, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 0, gw.CallCount("patchStrategy"))
	assert.Equal(t, 1, gw.CallCount("setImage"))
}

func TestRun_NoTargetFound(t *testing.T) {
	t.Parallel()

	gw := &MockGateway{
		ListDeploymentsFunc: func(_ context.Context, _, _ string) ([]Deployment, error) {
			return nil, nil
		},
	}

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), affirmAll(), NopObserver{})
	res, err := w.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, StateIdle, res.State)
}

func TestRun_EmptyImageAbortsBeforeAnyClusterCall(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:v1.9.5")
	w := NewWorkflow(gw, testOptions(t, "  "), affirmAll(), NopObserver{})

	res, err := w.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, StateIdle, res.State)

	// Nothing to roll back: no read, no strategy patch, no snapshot, no
	// image mutation may have happened.
	assert.Empty(t, gw.Calls())
}

func TestRun_HealthVerificationErrorRollsBack(t *testing.T) {
	t.Parallel()

	gw := happyGateway("registry/controller:v1.9.5")
	gw.ListPodsFunc = func(_ context.Context, _, _ string) ([]Pod, error) {
		return nil, errors.New("connection reset")
	}

	w := NewWorkflow(gw, testOptions(t, "registry/controller:v1.9.6"), affirmAll(), NopObserver{})
	res, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, Unhealthy, res.Verdict)
	assert.Equal(t, 1, gw.CallCount("rolloutUndo"))
}

func TestStateTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, StateDone.Terminal())
	assert.True(t, StateEscalated.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.False(t, StateRolloutRunning.Terminal())
	assert.False(t, StateIdle.Terminal())
}

func indexOf(calls []string, op string) int {
	for i, c := range calls {
		if c == op {
			return i
		}
	}
	return -1
}
