// Package defaults provides centralized configuration constants for the
// hwtelemetry engine.
//
// # Categories
//
//   - Scheduler settings: worker pool size and bounded pool wait
//   - Source execution guards: force-serialization lock wait, retry count and delay
//   - Cycle cadence: collect and discovery intervals for the daemon
//   - Protocol timeouts: SNMP and systemd requests
//   - Server timeouts: health and metrics endpoint
//
// Host configuration values override these when set:
//
//	timeout := cfg.LockTimeout
//	if timeout <= 0 {
//	    timeout = defaults.ForceSerializationLockTimeout
//	}
package defaults
