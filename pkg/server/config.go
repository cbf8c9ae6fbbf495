package server

import (
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/hwtelemetry/pkg/defaults"
)

// Config holds server configuration
type Config struct {
	// Server identity
	Name    string
	Version string

	Address string
	Port    int

	// Rate limiting of the API routes. Health and metrics are not limited.
	RateLimit      rate.Limit
	RateLimitBurst int

	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	// StaleAfter fails readiness when no cycle finished for this long.
	// Zero disables the check.
	StaleAfter time.Duration
}

// NewConfig returns defaults, overridden by HWT_SERVER_PORT and
// HWT_SHUTDOWN_TIMEOUT_SECONDS when set.
func NewConfig() *Config {
	cfg := &Config{
		Name:              "hwtd",
		Version:           "dev",
		Port:              defaults.ServerPort,
		RateLimit:         defaults.ServerRateLimit,
		RateLimitBurst:    defaults.ServerRateLimitBurst,
		ReadHeaderTimeout: defaults.ServerReadHeaderTimeout,
		WriteTimeout:      defaults.ServerWriteTimeout,
		IdleTimeout:       defaults.ServerIdleTimeout,
		ShutdownTimeout:   defaults.ServerShutdownTimeout,
	}

	if v := os.Getenv("HWT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Port = port
		}
	}

	// match the pod's termination grace period
	if v := os.Getenv("HWT_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			cfg.ShutdownTimeout = time.Duration(seconds) * time.Second
		}
	}

	return cfg
}
