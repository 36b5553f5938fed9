package k8s

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/client-go/util/exec"
	"sigs.k8s.io/yaml"

	"github.com/anvilops/rollguard/internal/upgrade"
)

// revisionAnnotation tracks a ReplicaSet's position in the deployment's
// rollout history.
const revisionAnnotation = "deployment.kubernetes.io/revision"

// Client implements upgrade.Gateway against a Kubernetes cluster.
type Client struct {
	clientset  kubernetes.Interface
	restConfig *rest.Config

	rolloutTimeout time.Duration
	pollInterval   time.Duration
}

// Options configures the cluster client.
type Options struct {
	// Kubeconfig is the path to a kubeconfig file; empty uses the default
	// loading rules (KUBECONFIG, ~/.kube/config).
	Kubeconfig string
	// Context selects a kubeconfig context; empty keeps the current one.
	Context string

	RolloutTimeout time.Duration
	PollInterval   time.Duration
}

// NewClient creates a cluster client from kubeconfig settings.
func NewClient(opts Options) (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if opts.Kubeconfig != "" {
		loadingRules.ExplicitPath = opts.Kubeconfig
	}

	overrides := &clientcmd.ConfigOverrides{}
	if opts.Context != "" {
		overrides.CurrentContext = opts.Context
	}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return &Client{
		clientset:      clientset,
		restConfig:     restConfig,
		rolloutTimeout: orDuration(opts.RolloutTimeout, 5*time.Minute),
		pollInterval:   orDuration(opts.PollInterval, 2*time.Second),
	}, nil
}

func orDuration(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// ListDeployments implements upgrade.Gateway.
func (c *Client) ListDeployments(ctx context.Context, namespace, selector string) ([]upgrade.Deployment, error) {
	list, err := c.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	deployments := make([]upgrade.Deployment, 0, len(list.Items))
	for i := range list.Items {
		deployments = append(deployments, convertDeployment(&list.Items[i]))
	}
	return deployments, nil
}

// GetContainers implements upgrade.Gateway.
func (c *Client) GetContainers(ctx context.Context, d upgrade.Deployment) ([]upgrade.Container, error) {
	deployment, err := c.clientset.AppsV1().Deployments(d.Namespace).Get(ctx, d.Name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %s/%s: %w", d.Namespace, d.Name, err)
	}
	return convertContainers(deployment.Spec.Template.Spec.Containers), nil
}

// PatchStrategy implements upgrade.Gateway with a single strategic merge
// patch on the strategy field.
func (c *Client) PatchStrategy(ctx context.Context, d upgrade.Deployment, maxUnavailable, maxSurge int) error {
	patch := appsv1.Deployment{
		Spec: appsv1.DeploymentSpec{
			Strategy: appsv1.DeploymentStrategy{
				Type: appsv1.RollingUpdateDeploymentStrategyType,
				RollingUpdate: &appsv1.RollingUpdateDeployment{
					MaxUnavailable: intstrPtr(maxUnavailable),
					MaxSurge:       intstrPtr(maxSurge),
				},
			},
		},
	}

	payload, err := yaml.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy patch: %w", err)
	}
	payload, err = yaml.YAMLToJSON(payload)
	if err != nil {
		return fmt.Errorf("failed to encode strategy patch: %w", err)
	}

	_, err = c.clientset.AppsV1().Deployments(d.Namespace).Patch(ctx, d.Name,
		types.StrategicMergePatchType, payload, metav1.PatchOptions{})
	if err != nil {
		return fmt.Errorf("failed to patch strategy of %s/%s: %w", d.Namespace, d.Name, err)
	}
	return nil
}

// GetManifest implements upgrade.Gateway. The manifest is serialized as YAML
// with server-side bookkeeping stripped, matching what an operator would
// apply back by hand.
func (c *Client) GetManifest(ctx context.Context, d upgrade.Deployment) ([]byte, error) {
	deployment, err := c.clientset.AppsV1().Deployments(d.Namespace).Get(ctx, d.Name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %s/%s: %w", d.Namespace, d.Name, err)
	}

	deployment.TypeMeta = metav1.TypeMeta{
		APIVersion: "apps/v1",
		Kind:       "Deployment",
	}
	deployment.ManagedFields = nil

	data, err := yaml.Marshal(deployment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deployment manifest: %w", err)
	}
	return data, nil
}

// SetImage implements upgrade.Gateway.
func (c *Client) SetImage(ctx context.Context, d upgrade.Deployment, container, image string) error {
	deployment, err := c.clientset.AppsV1().Deployments(d.Namespace).Get(ctx, d.Name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get deployment %s/%s: %w", d.Namespace, d.Name, err)
	}

	updated := false
	for i := range deployment.Spec.Template.Spec.Containers {
		if deployment.Spec.Template.Spec.Containers[i].Name == container {
			deployment.Spec.Template.Spec.Containers[i].Image = image
			updated = true
			break
		}
	}
	if !updated {
		return fmt.Errorf("container %s not found in deployment %s/%s", container, d.Namespace, d.Name)
	}

	if _, err := c.clientset.AppsV1().Deployments(d.Namespace).Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update deployment %s/%s: %w", d.Namespace, d.Name, err)
	}
	return nil
}

// WatchRolloutStatus implements upgrade.Gateway. It blocks until the
// deployment converges, the platform reports the rollout cannot progress, or
// the timeout elapses.
func (c *Client) WatchRolloutStatus(ctx context.Context, d upgrade.Deployment) (upgrade.RolloutOutcome, error) {
	errProgressDeadline := errors.New("progress deadline exceeded")

	err := wait.PollUntilContextTimeout(ctx, c.pollInterval, c.rolloutTimeout, true,
		func(ctx context.Context) (bool, error) {
			deployment, err := c.clientset.AppsV1().Deployments(d.Namespace).Get(ctx, d.Name, metav1.GetOptions{})
			if err != nil {
				// Transient read errors should not fail the watch.
				return false, nil
			}

			for _, cond := range deployment.Status.Conditions {
				if cond.Type == appsv1.DeploymentProgressing &&
					cond.Status == corev1.ConditionFalse &&
					cond.Reason == "ProgressDeadlineExceeded" {
					return false, errProgressDeadline
				}
			}

			return isDeploymentConverged(deployment), nil
		})

	switch {
	case err == nil:
		return upgrade.RolloutSucceeded, nil
	case errors.Is(err, errProgressDeadline):
		return upgrade.RolloutFailed, nil
	case wait.Interrupted(err):
		return upgrade.RolloutTimedOut, nil
	default:
		return upgrade.RolloutFailed, fmt.Errorf("failed watching rollout of %s/%s: %w", d.Namespace, d.Name, err)
	}
}

// ListPods implements upgrade.Gateway.
func (c *Client) ListPods(ctx context.Context, namespace, selector string) ([]upgrade.Pod, error) {
	list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	pods := make([]upgrade.Pod, 0, len(list.Items))
	for i := range list.Items {
		pod := &list.Items[i]
		pods = append(pods, upgrade.Pod{
			Name:      pod.Name,
			Namespace: pod.Namespace,
			Phase:     string(pod.Status.Phase),
			Ready:     isPodReady(pod),
		})
	}
	return pods, nil
}

// ExecInPod implements upgrade.Gateway via the pod exec subresource over
// SPDY. A non-zero exit code from the command is returned as a code, not an
// error; transport failures are errors.
func (c *Client) ExecInPod(ctx context.Context, pod upgrade.Pod, command []string) (int, string, error) {
	req := c.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(pod.Name).
		Namespace(pod.Namespace).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Command: command,
			Stdout:  true,
			Stderr:  true,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(c.restConfig, "POST", req.URL())
	if err != nil {
		return 0, "", fmt.Errorf("failed to create exec session: %w", err)
	}

	var output bytes.Buffer
	err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: &output,
		Stderr: &output,
	})
	if err != nil {
		var exitErr utilexec.CodeExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code, output.String(), nil
		}
		return 0, output.String(), fmt.Errorf("failed to exec in pod %s/%s: %w", pod.Namespace, pod.Name, err)
	}

	return 0, output.String(), nil
}

// GetPodReadiness implements upgrade.Gateway.
func (c *Client) GetPodReadiness(ctx context.Context, pod upgrade.Pod) (bool, error) {
	p, err := c.clientset.CoreV1().Pods(pod.Namespace).Get(ctx, pod.Name, metav1.GetOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to get pod %s/%s: %w", pod.Namespace, pod.Name, err)
	}
	return isPodReady(p), nil
}

// RolloutUndo implements upgrade.Gateway. It reverts the deployment to its
// immediately prior revision by copying that ReplicaSet's pod template back
// onto the deployment, which is what kubectl rollout undo does.
func (c *Client) RolloutUndo(ctx context.Context, d upgrade.Deployment) error {
	deployment, err := c.clientset.AppsV1().Deployments(d.Namespace).Get(ctx, d.Name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get deployment %s/%s: %w", d.Namespace, d.Name, err)
	}

	previous, err := c.previousRevision(ctx, deployment)
	if err != nil {
		return err
	}

	template := previous.Spec.Template.DeepCopy()
	delete(template.Labels, appsv1.DefaultDeploymentUniqueLabelKey)
	deployment.Spec.Template = *template

	if _, err := c.clientset.AppsV1().Deployments(d.Namespace).Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to revert deployment %s/%s: %w", d.Namespace, d.Name, err)
	}
	return nil
}

// previousRevision finds the ReplicaSet one revision behind the deployment's
// newest.
func (c *Client) previousRevision(ctx context.Context, deployment *appsv1.Deployment) (*appsv1.ReplicaSet, error) {
	rsList, err := c.clientset.AppsV1().ReplicaSets(deployment.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list replica sets: %w", err)
	}

	type revision struct {
		rs  *appsv1.ReplicaSet
		num int64
	}
	var revisions []revision

	for i := range rsList.Items {
		rs := &rsList.Items[i]
		if !metav1.IsControlledBy(rs, deployment) {
			continue
		}
		num, err := strconv.ParseInt(rs.Annotations[revisionAnnotation], 10, 64)
		if err != nil {
			continue
		}
		revisions = append(revisions, revision{rs: rs, num: num})
	}

	if len(revisions) < 2 {
		return nil, fmt.Errorf("no rollout history for deployment %s/%s", deployment.Namespace, deployment.Name)
	}

	sort.Slice(revisions, func(i, j int) bool {
		return revisions[i].num > revisions[j].num
	})
	return revisions[1].rs, nil
}

func convertDeployment(d *appsv1.Deployment) upgrade.Deployment {
	replicas := int32(0)
	if d.Spec.Replicas != nil {
		replicas = *d.Spec.Replicas
	}

	strategy := upgrade.RolloutStrategy{}
	if ru := d.Spec.Strategy.RollingUpdate; ru != nil {
		if ru.MaxUnavailable != nil {
			strategy.MaxUnavailable = ru.MaxUnavailable.IntValue()
		}
		if ru.MaxSurge != nil {
			strategy.MaxSurge = ru.MaxSurge.IntValue()
		}
	}

	return upgrade.Deployment{
		Name:       d.Name,
		Namespace:  d.Namespace,
		Containers: convertContainers(d.Spec.Template.Spec.Containers),
		Strategy:   strategy,
		Replicas:   replicas,
	}
}

func convertContainers(containers []corev1.Container) []upgrade.Container {
	result := make([]upgrade.Container, 0, len(containers))
	for _, c := range containers {
		result = append(result, upgrade.Container{Name: c.Name, Image: c.Image})
	}
	return result
}

// isDeploymentConverged checks that the deployment controller has observed
// the latest spec and that every replica is updated and available.
func isDeploymentConverged(d *appsv1.Deployment) bool {
	if d.Generation > d.Status.ObservedGeneration {
		return false
	}

	replicas := int32(0)
	if d.Spec.Replicas != nil {
		replicas = *d.Spec.Replicas
	}

	return d.Status.UpdatedReplicas == replicas &&
		d.Status.Replicas == replicas &&
		d.Status.AvailableReplicas == replicas
}

func isPodReady(p *corev1.Pod) bool {
	for _, cond := range p.Status.Conditions {
		if cond.Type == corev1.PodReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

func intstrPtr(v int) *intstr.IntOrString {
	val := intstr.FromInt32(int32(v))
	return &val
}
