// Package config holds the runtime configuration for rollguard: target
// selection defaults, probe settings, rollout timeouts and snapshot storage.
// Values come from built-in defaults overridden by environment variables and
// command-line flags.
package config
