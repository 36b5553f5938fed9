// Package k8s implements the upgrade.Gateway contract against a real
// Kubernetes cluster using client-go. Rollout mechanics (revision history,
// convergence detection) follow what kubectl does for deployments.
package k8s
