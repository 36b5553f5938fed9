package upgrade

import "context"

// Deployment identifies a replica-set workload and the parts of its spec the
// upgrade workflow cares about.
type Deployment struct {
	Name       string
	Namespace  string
	Containers []Container
	Strategy   RolloutStrategy
	Replicas   int32
}

// Container is a named image reference within a Deployment. Names are unique
// within their parent Deployment.
type Container struct {
	Name  string
	Image string
}

// RolloutStrategy holds the rolling-update parameters applied during an
// upgrade. Values are absolute pod counts, not percentages.
type RolloutStrategy struct {
	MaxUnavailable int
	MaxSurge       int
}

// Pod is the subset of pod state the health verifier needs.
type Pod struct {
	Name      string
	Namespace string
	Phase     string
	Ready     bool
}

// PodRunning is the pod phase accepted for probe execution.
const PodRunning = "Running"

// RolloutOutcome is the terminal state of a rollout attempt.
type RolloutOutcome int

const (
	// RolloutSucceeded means all replicas are updated and available.
	RolloutSucceeded RolloutOutcome = iota
	// RolloutFailed means the platform reported the rollout cannot progress.
	RolloutFailed
	// RolloutTimedOut means the rollout did not converge within the timeout.
	RolloutTimedOut
)

func (o RolloutOutcome) String() string {
	switch o {
	case RolloutSucceeded:
		return "succeeded"
	case RolloutFailed:
		return "failed"
	case RolloutTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// HealthVerdict is the result of the tiered post-rollout health check.
type HealthVerdict int

const (
	// Unhealthy means no health tier succeeded.
	Unhealthy HealthVerdict = iota
	// HealthyPrimary means the /healthz probe succeeded.
	HealthyPrimary
	// HealthySecondary means the legacy /health probe succeeded.
	HealthySecondary
	// HealthyReadiness means only the pod readiness status was true.
	HealthyReadiness
)

func (v HealthVerdict) String() string {
	switch v {
	case HealthyPrimary:
		return "healthy (primary probe)"
	case HealthySecondary:
		return "healthy (secondary probe)"
	case HealthyReadiness:
		return "healthy (readiness status)"
	default:
		return "unhealthy"
	}
}

// Healthy reports whether the verdict counts as a passing health check.
func (v HealthVerdict) Healthy() bool {
	return v != Unhealthy
}

// Gateway abstracts the orchestration platform's API. Every cluster operation
// the workflow performs goes through this interface; a concrete client lives
// in internal/k8s and tests substitute MockGateway.
type Gateway interface {
	// ListDeployments returns deployments in namespace matching the label
	// selector. Read-only.
	ListDeployments(ctx context.Context, namespace, selector string) ([]Deployment, error)

	// GetContainers returns the container list of a deployment. Read-only.
	GetContainers(ctx context.Context, d Deployment) ([]Container, error)

	// PatchStrategy applies rolling-update parameters in a single patch.
	PatchStrategy(ctx context.Context, d Deployment, maxUnavailable, maxSurge int) error

	// GetManifest returns the full serialized manifest of the deployment.
	GetManifest(ctx context.Context, d Deployment) ([]byte, error)

	// SetImage updates the named container's image. This is the point of no
	// return for an upgrade run.
	SetImage(ctx context.Context, d Deployment, container, image string) error

	// WatchRolloutStatus blocks until the rollout reaches a terminal state.
	// A non-converging rollout is reported as an outcome, not an error.
	WatchRolloutStatus(ctx context.Context, d Deployment) (RolloutOutcome, error)

	// ListPods returns pods in namespace matching the label selector.
	ListPods(ctx context.Context, namespace, selector string) ([]Pod, error)

	// ExecInPod runs a command inside the pod and returns its exit code and
	// combined output. A non-zero exit code is not an error.
	ExecInPod(ctx context.Context, pod Pod, command []string) (int, string, error)

	// GetPodReadiness returns the pod's readiness condition.
	GetPodReadiness(ctx context.Context, pod Pod) (bool, error)

	// RolloutUndo reverts the deployment to its immediately prior revision.
	RolloutUndo(ctx context.Context, d Deployment) error
}
