// Package upgrade implements the guarded image upgrade workflow for a single
// Deployment: target resolution, version safety checks, rollout strategy
// configuration, pre-upgrade snapshot, rollout monitoring, tiered health
// verification, and automatic rollback on failure.
//
// The workflow runs its stages strictly sequentially and talks to the cluster
// only through the Gateway interface, so the whole pipeline can be driven
// against a test double. Interactive decisions (candidate selection,
// confirmations) are injected as functions; the package never prompts.
package upgrade
