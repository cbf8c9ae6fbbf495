// Package logging provides structured logging utilities for the hwtelemetry engine.
//
// # Overview
//
// This package wraps the standard library slog package with the engine's
// defaults: JSON to stderr, module and version on every line, and source
// location when running at debug level.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: source tables, mapping results and rows that matched no monitor
//   - INFO: cycle and connector progress (default)
//   - WARN/WARNING: lock and pool timeouts, skipped connectors
//   - ERROR: job failures and recovered panics
//
// # Usage
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("hwtd", version)
//	    slog.Info("cycle started", "cycle", id)
//	}
//
// Explicit level from a CLI flag:
//
//	logging.SetDefaultStructuredLoggerWithLevel("hwtd", version, "debug")
//
// # Engine conventions
//
// Engine log lines carry the attributes that locate the work being done:
//
//	slog.Warn("force serialization lock timeout",
//	    "host", hostname,
//	    "connector", connectorID,
//	    "source", src.Key,
//	)
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls verbosity when no explicit
// level is given:
//
//	LOG_LEVEL=debug hwtd collect --config host.yaml
package logging
