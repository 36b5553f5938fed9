package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Defaults for the managed application family.
const (
	DefaultSelector       = "app.kubernetes.io/part-of=controller"
	DefaultNamespace      = "default"
	DefaultProbePort      = 8080
	DefaultSnapshotKeep   = 5
	DefaultSettleDelay    = 5 * time.Second
	DefaultRolloutTimeout = 5 * time.Minute
	DefaultPollInterval   = 2 * time.Second
)

// Config is the runtime configuration for an upgrade run.
type Config struct {
	// Kubeconfig is the path to the kubeconfig file; empty means the
	// client-go default chain.
	Kubeconfig string
	// Context overrides the kubeconfig's current context when non-empty.
	Context string

	Namespace string
	Selector  string

	ProbePort     int
	PrimaryPath   string
	SecondaryPath string
	SettleDelay   time.Duration

	RolloutTimeout time.Duration
	PollInterval   time.Duration

	SnapshotDir  string
	SnapshotKeep int
}

// Load builds a Config from defaults and environment variable overrides.
func Load() *Config {
	return &Config{
		Namespace:      envString("ROLLGUARD_NAMESPACE", DefaultNamespace),
		Selector:       envString("ROLLGUARD_SELECTOR", DefaultSelector),
		ProbePort:      envInt("ROLLGUARD_PROBE_PORT", DefaultProbePort),
		PrimaryPath:    envString("ROLLGUARD_PROBE_PATH", "/healthz"),
		SecondaryPath:  envString("ROLLGUARD_PROBE_PATH_LEGACY", "/health"),
		SettleDelay:    envDuration("ROLLGUARD_SETTLE_DELAY", DefaultSettleDelay),
		RolloutTimeout: envDuration("ROLLGUARD_TIMEOUT_ROLLOUT", DefaultRolloutTimeout),
		PollInterval:   envDuration("ROLLGUARD_POLL_INTERVAL", DefaultPollInterval),
		SnapshotDir:    envString("ROLLGUARD_SNAPSHOT_DIR", defaultSnapshotDir()),
		SnapshotKeep:   envInt("ROLLGUARD_SNAPSHOT_KEEP", DefaultSnapshotKeep),
	}
}

// Validate checks the configuration for values the cluster would reject.
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if c.Selector == "" {
		return fmt.Errorf("label selector must not be empty")
	}
	if c.ProbePort < 1 || c.ProbePort > 65535 {
		return fmt.Errorf("probe port %d out of range", c.ProbePort)
	}
	if c.RolloutTimeout <= 0 {
		return fmt.Errorf("rollout timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.SnapshotKeep < 1 {
		return fmt.Errorf("snapshot keep count must be at least 1")
	}
	return nil
}

func defaultSnapshotDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rollguard/backups"
	}
	return filepath.Join(home, ".rollguard", "backups")
}

// envString reads a string from an environment variable, falling back to the
// default when unset.
func envString(envVar, defaultVal string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultVal
}

// envDuration parses a duration from an environment variable. If the
// variable is not set or parsing fails, the default value is returned.
func envDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

// envInt parses an integer from an environment variable. If the variable is
// not set or parsing fails, the default value is returned.
func envInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
