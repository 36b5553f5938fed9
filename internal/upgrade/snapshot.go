package upgrade

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Snapshot is a captured pre-upgrade manifest. It exists for operator
// reference only; the automatic rollback path uses the platform's revision
// history, never this file.
type Snapshot struct {
	Path      string
	CreatedAt time.Time
}

// SnapshotWriter captures the full deployment manifest to a timestamped file
// before any mutation takes place.
type SnapshotWriter struct {
	gateway  Gateway
	observer Observer
	dir      string
	now      func() time.Time
}

// NewSnapshotWriter creates a snapshot writer storing artifacts under dir.
func NewSnapshotWriter(gateway Gateway, observer Observer, dir string) *SnapshotWriter {
	return &SnapshotWriter{
		gateway:  gateway,
		observer: observer,
		dir:      dir,
		now:      time.Now,
	}
}

// Capture fetches the deployment manifest and writes it to
// <deployment>-backup-<timestamp>.yaml. Any failure is fatal to the run:
// upgrading without a snapshot on disk is upgrading blind.
func (w *SnapshotWriter) Capture(ctx context.Context, d Deployment) (Snapshot, error) {
	manifest, err := w.gateway.GetManifest(ctx, d)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: fetching manifest of %s/%s: %v", ErrSnapshotFailed, d.Namespace, d.Name, err)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Snapshot{}, fmt.Errorf("%w: creating snapshot directory %s: %v", ErrSnapshotFailed, w.dir, err)
	}

	createdAt := w.now()
	name := fmt.Sprintf("%s-backup-%s.yaml", d.Name, createdAt.Format("20060102-150405"))
	path := filepath.Join(w.dir, name)

	if err := os.WriteFile(path, manifest, 0o600); err != nil {
		return Snapshot{}, fmt.Errorf("%w: writing %s: %v", ErrSnapshotFailed, path, err)
	}

	w.observer.Event(Event{
		Type:    EventStageCompleted,
		Stage:   "snapshot",
		Message: fmt.Sprintf("manifest saved to %s", path),
	})

	return Snapshot{Path: path, CreatedAt: createdAt}, nil
}

// Prune removes all but the newest keep backup artifacts for the named
// deployment. Pruning failures are reported but never fail an upgrade.
func (w *SnapshotWriter) Prune(deployment string, keep int) error {
	if keep < 1 {
		keep = 1
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading snapshot directory %s: %w", w.dir, err)
	}

	prefix := deployment + "-backup-"
	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			backups = append(backups, e.Name())
		}
	}

	// Timestamped names sort chronologically.
	sort.Strings(backups)
	if len(backups) <= keep {
		return nil
	}

	for _, name := range backups[:len(backups)-keep] {
		if err := os.Remove(filepath.Join(w.dir, name)); err != nil {
			return fmt.Errorf("removing old snapshot %s: %w", name, err)
		}
	}
	return nil
}
