package upgrade

import (
	"context"
	"fmt"
	"time"
)

// Default probe configuration. The probes run inside the pod via exec so the
// check does not depend on service or ingress routing being reconfigured.
const (
	DefaultProbePort     = 8080
	DefaultPrimaryPath   = "/healthz"
	DefaultSecondaryPath = "/health"
	DefaultSettleDelay   = 5 * time.Second
)

// HealthVerifier performs the tiered post-rollout health determination
// against one representative running pod.
type HealthVerifier struct {
	gateway  Gateway
	observer Observer

	port          int
	primaryPath   string
	secondaryPath string
	settleDelay   time.Duration

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// HealthOptions configures the verifier. Zero values fall back to defaults.
type HealthOptions struct {
	Port          int
	PrimaryPath   string
	SecondaryPath string
	SettleDelay   time.Duration
}

// NewHealthVerifier creates a health verifier.
func NewHealthVerifier(gateway Gateway, observer Observer, opts HealthOptions) *HealthVerifier {
	if opts.Port == 0 {
		opts.Port = DefaultProbePort
	}
	if opts.PrimaryPath == "" {
		opts.PrimaryPath = DefaultPrimaryPath
	}
	if opts.SecondaryPath == "" {
		opts.SecondaryPath = DefaultSecondaryPath
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}

	return &HealthVerifier{
		gateway:       gateway,
		observer:      observer,
		port:          opts.Port,
		primaryPath:   opts.PrimaryPath,
		secondaryPath: opts.SecondaryPath,
		settleDelay:   opts.SettleDelay,
		sleep:         time.Sleep,
	}
}

// Verify selects one running pod of the workload and attempts, in strict
// priority order, the primary liveness probe, the legacy liveness probe, and
// finally the pod readiness status. The verdict of the first tier that
// succeeds is returned; each tier is attempted exactly once.
func (h *HealthVerifier) Verify(ctx context.Context, d Deployment, selector string) (HealthVerdict, error) {
	pods, err := h.gateway.ListPods(ctx, d.Namespace, selector)
	if err != nil {
		return Unhealthy, fmt.Errorf("%w: listing pods of %s/%s: %v", ErrConnectivity, d.Namespace, d.Name, err)
	}

	var target *Pod
	for i := range pods {
		if pods[i].Phase == PodRunning {
			target = &pods[i]
			break
		}
	}
	if target == nil {
		h.observer.Event(Event{
			Type:    EventStageFailed,
			Stage:   "health",
			Message: "no running pod available for health verification",
		})
		return Unhealthy, nil
	}

	// Let the new process finish starting before the first probe. This is a
	// fixed settle delay, not a poll loop.
	h.sleep(h.settleDelay)

	if h.probe(ctx, *target, h.primaryPath) {
		return HealthyPrimary, nil
	}
	if h.probe(ctx, *target, h.secondaryPath) {
		return HealthySecondary, nil
	}

	ready, err := h.gateway.GetPodReadiness(ctx, *target)
	if err == nil && ready {
		return HealthyReadiness, nil
	}

	h.observer.Event(Event{
		Type:    EventStageFailed,
		Stage:   "health",
		Message: fmt.Sprintf("all health tiers failed for pod %s", target.Name),
	})
	return Unhealthy, nil
}

// probe execs a local HTTP check inside the pod. Exit code zero is the only
// success signal; exec transport errors count as tier failure.
func (h *HealthVerifier) probe(ctx context.Context, pod Pod, path string) bool {
	url := fmt.Sprintf("http://127.0.0.1:%d%s", h.port, path)
	command := []string{"wget", "-q", "-O", "/dev/null", "-T", "3", url}

	exitCode, _, err := h.gateway.ExecInPod(ctx, pod, command)
	if err != nil {
		return false
	}
	return exitCode == 0
}
