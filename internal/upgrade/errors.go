package upgrade

import "errors"

// Sentinel errors for the upgrade workflow. Stage implementations wrap these
// with fmt.Errorf("...: %w", ...) so callers can classify failures with
// errors.Is while keeping the platform's original message.
var (
	// ErrNotFound means no deployment matched the namespace and selector.
	ErrNotFound = errors.New("no matching deployment found")

	// ErrAmbiguousTarget means multiple candidates matched and the injected
	// selection did not resolve to exactly one.
	ErrAmbiguousTarget = errors.New("ambiguous upgrade target")

	// ErrInvalidInput means the requested target image is empty or malformed.
	ErrInvalidInput = errors.New("invalid target image")

	// ErrConnectivity means the cluster could not be reached for a read.
	ErrConnectivity = errors.New("cluster unreachable")

	// ErrMutationFailed means the platform rejected a patch, image update or
	// undo call. Never retried: a rejected write usually indicates a
	// persistent validation problem.
	ErrMutationFailed = errors.New("cluster rejected mutation")

	// ErrRolloutTimeout means the rollout did not converge within the
	// platform-side timeout.
	ErrRolloutTimeout = errors.New("rollout timed out")

	// ErrHealthCheckFailed means all health tiers failed after rollout.
	ErrHealthCheckFailed = errors.New("health verification failed")

	// ErrSnapshotFailed means the pre-upgrade manifest could not be written.
	// Fatal before any mutation: never upgrade blind.
	ErrSnapshotFailed = errors.New("snapshot write failed")
)
