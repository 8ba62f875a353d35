// Package config loads the session controller's runtime configuration from
// environment variables, following the same stdlib-only, typed-accessor
// convention the rest of this module uses rather than pulling in a config
// library.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/itsneelabh/evalsession/core"
)

// Config holds everything a session controller needs to spawn and supervise
// an evaluator worker, plus the optional discovery, telemetry, and UI
// transport knobs.
type Config struct {
	// Worker is the command used to spawn the evaluator worker process.
	Worker WorkerConfig

	// Queue controls the request queue and restart backoff behavior.
	Queue QueueConfig

	// Discovery controls whether this session registers itself so it can be
	// found by other processes.
	Discovery DiscoveryConfig

	// Telemetry controls OpenTelemetry tracing/metrics export.
	Telemetry TelemetryConfig

	// UI selects which streaming transport(s) cmd/evalsession exposes.
	UI UIConfig

	// Resilience wraps each exposed transport with circuit breaker
	// protection, shedding load onto 503s once the transport's error rate
	// crosses ErrorThreshold instead of letting failures cascade into the
	// worker pool.
	Resilience ResilienceConfig

	// DocsPath is an optional path to a YAML documentation table (§4.6)
	// loaded at startup via docs.LoadFile. Empty means inspect requests
	// never resolve documentation.
	DocsPath string

	// Port is the HTTP listen port for cmd/evalsession.
	Port int

	// DevMode relaxes CORS and increases log verbosity, matching the rest
	// of this module's DEV_MODE convention.
	DevMode bool
}

// WorkerConfig describes how to spawn the evaluator worker child process.
type WorkerConfig struct {
	Command string
	Args    []string
	// StartupTimeout bounds how long the controller waits for the worker
	// to report itself online before treating the spawn as failed.
	StartupTimeout time.Duration
}

// QueueConfig controls request queuing and worker restart behavior.
type QueueConfig struct {
	// Capacity is the maximum number of queued (not yet dispatched) tasks.
	// Zero means unbounded.
	Capacity int
	// RestartBackoff is the base delay before respawning a dead worker;
	// it is doubled on each consecutive failure up to RestartBackoffMax.
	RestartBackoff    time.Duration
	RestartBackoffMax time.Duration
}

// DiscoveryConfig controls registration with a discovery backend so a
// fleet of session controllers is visible to other tooling.
type DiscoveryConfig struct {
	Enabled  bool
	RedisURL string
	// Namespace isolates keys between environments sharing one Redis.
	Namespace string
}

// TelemetryConfig controls tracing/metrics export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// UIConfig selects the streaming transport(s) exposed by cmd/evalsession.
type UIConfig struct {
	// Transport is one of "sse", "websocket", or "both".
	Transport string
}

// ResilienceConfig controls the circuit breaker placed in front of each
// transport handler.
type ResilienceConfig struct {
	Enabled          bool
	ErrorThreshold   float64
	VolumeThreshold  int
	SleepWindow      time.Duration
	HalfOpenRequests int
}

// DefaultConfig returns the configuration used when no environment
// variables are set: a worker spawned as "evalworker" with no args, a
// small bounded queue, discovery and telemetry disabled, and SSE as the
// only UI transport.
func DefaultConfig() *Config {
	return &Config{
		Worker: WorkerConfig{
			Command:        "evalworker",
			Args:           nil,
			StartupTimeout: 10 * time.Second,
		},
		Queue: QueueConfig{
			Capacity:          256,
			RestartBackoff:    500 * time.Millisecond,
			RestartBackoffMax: 30 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Enabled:   false,
			Namespace: "evalsession",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "evalsession",
		},
		UI: UIConfig{
			Transport: "sse",
		},
		Resilience: ResilienceConfig{
			Enabled:          false,
			ErrorThreshold:   0.5,
			VolumeThreshold:  10,
			SleepWindow:      30 * time.Second,
			HalfOpenRequests: 5,
		},
		Port:    8080,
		DevMode: false,
	}
}

// LoadFromEnv applies environment variable overrides on top of the
// receiver's current values, leaving anything unset untouched. Call it on
// a DefaultConfig() result.
//
//	EVALSESSION_WORKER_COMMAND, EVALSESSION_WORKER_ARGS (comma-separated),
//	EVALSESSION_WORKER_STARTUP_TIMEOUT
//	EVALSESSION_QUEUE_CAPACITY, EVALSESSION_RESTART_BACKOFF,
//	EVALSESSION_RESTART_BACKOFF_MAX
//	EVALSESSION_DISCOVERY_ENABLED, EVALSESSION_DISCOVERY_NAMESPACE, REDIS_URL
//	EVALSESSION_TELEMETRY_ENABLED, EVALSESSION_TELEMETRY_SERVICE_NAME,
//	OTEL_EXPORTER_OTLP_ENDPOINT
//	EVALSESSION_UI_TRANSPORT
//	EVALSESSION_DOCS_PATH
//	EVALSESSION_RESILIENCE_ENABLED, EVALSESSION_RESILIENCE_ERROR_THRESHOLD,
//	EVALSESSION_RESILIENCE_SLEEP_WINDOW
//	PORT, DEV_MODE
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("EVALSESSION_WORKER_COMMAND"); v != "" {
		c.Worker.Command = v
	}
	if v := os.Getenv("EVALSESSION_WORKER_ARGS"); v != "" {
		c.Worker.Args = parseStringList(v)
	}
	if v := os.Getenv("EVALSESSION_WORKER_STARTUP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &core.FrameworkError{Op: "Config.LoadFromEnv", Kind: "config", Message: "invalid EVALSESSION_WORKER_STARTUP_TIMEOUT", Err: core.ErrInvalidConfiguration}
		}
		c.Worker.StartupTimeout = d
	}

	if v := os.Getenv("EVALSESSION_QUEUE_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &core.FrameworkError{Op: "Config.LoadFromEnv", Kind: "config", Message: "invalid EVALSESSION_QUEUE_CAPACITY", Err: core.ErrInvalidConfiguration}
		}
		c.Queue.Capacity = n
	}
	if v := os.Getenv("EVALSESSION_RESTART_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &core.FrameworkError{Op: "Config.LoadFromEnv", Kind: "config", Message: "invalid EVALSESSION_RESTART_BACKOFF", Err: core.ErrInvalidConfiguration}
		}
		c.Queue.RestartBackoff = d
	}
	if v := os.Getenv("EVALSESSION_RESTART_BACKOFF_MAX"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &core.FrameworkError{Op: "Config.LoadFromEnv", Kind: "config", Message: "invalid EVALSESSION_RESTART_BACKOFF_MAX", Err: core.ErrInvalidConfiguration}
		}
		c.Queue.RestartBackoffMax = d
	}

	if v := os.Getenv("EVALSESSION_DISCOVERY_ENABLED"); v != "" {
		c.Discovery.Enabled = parseBool(v)
	}
	if v := os.Getenv("EVALSESSION_DISCOVERY_NAMESPACE"); v != "" {
		c.Discovery.Namespace = v
	}
	if v := os.Getenv("EVALSESSION_REDIS_URL"); v != "" {
		c.Discovery.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Discovery.RedisURL = v
	}

	if v := os.Getenv("EVALSESSION_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("EVALSESSION_TELEMETRY_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}
	if v := os.Getenv("EVALSESSION_TELEMETRY_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
	} else if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}

	if v := os.Getenv("EVALSESSION_UI_TRANSPORT"); v != "" {
		c.UI.Transport = strings.ToLower(v)
	}
	if v := os.Getenv("EVALSESSION_DOCS_PATH"); v != "" {
		c.DocsPath = v
	}

	if v := os.Getenv("EVALSESSION_RESILIENCE_ENABLED"); v != "" {
		c.Resilience.Enabled = parseBool(v)
	}
	if v := os.Getenv("EVALSESSION_RESILIENCE_ERROR_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &core.FrameworkError{Op: "Config.LoadFromEnv", Kind: "config", Message: "invalid EVALSESSION_RESILIENCE_ERROR_THRESHOLD", Err: core.ErrInvalidConfiguration}
		}
		c.Resilience.ErrorThreshold = f
	}
	if v := os.Getenv("EVALSESSION_RESILIENCE_SLEEP_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &core.FrameworkError{Op: "Config.LoadFromEnv", Kind: "config", Message: "invalid EVALSESSION_RESILIENCE_SLEEP_WINDOW", Err: core.ErrInvalidConfiguration}
		}
		c.Resilience.SleepWindow = d
	}

	if v := os.Getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &core.FrameworkError{Op: "Config.LoadFromEnv", Kind: "config", Message: "invalid PORT", Err: core.ErrInvalidConfiguration}
		}
		c.Port = n
	}
	if v := os.Getenv("DEV_MODE"); v != "" {
		c.DevMode = parseBool(v)
	}

	return nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &core.FrameworkError{Op: "Config.Validate", Kind: "config", Message: "invalid port", Err: core.ErrInvalidConfiguration}
	}
	if c.Worker.Command == "" {
		return &core.FrameworkError{Op: "Config.Validate", Kind: "config", Message: "worker command is required", Err: core.ErrMissingConfiguration}
	}
	if c.Discovery.Enabled && c.Discovery.RedisURL == "" {
		return &core.FrameworkError{Op: "Config.Validate", Kind: "config", Message: "redis URL is required when discovery is enabled", Err: core.ErrMissingConfiguration}
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return &core.FrameworkError{Op: "Config.Validate", Kind: "config", Message: "OTLP endpoint is required when telemetry is enabled", Err: core.ErrMissingConfiguration}
	}
	switch c.UI.Transport {
	case "sse", "websocket", "both":
	default:
		return &core.FrameworkError{Op: "Config.Validate", Kind: "config", Message: "ui transport must be sse, websocket, or both", Err: core.ErrInvalidConfiguration}
	}
	if c.Resilience.Enabled && (c.Resilience.ErrorThreshold <= 0 || c.Resilience.ErrorThreshold > 1) {
		return &core.FrameworkError{Op: "Config.Validate", Kind: "config", Message: "resilience error threshold must be in (0, 1]", Err: core.ErrInvalidConfiguration}
	}
	return nil
}

// parseStringList splits a comma-separated string into a slice, trimming
// whitespace and dropping empty elements.
func parseStringList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseBool accepts "true", "1", "yes", "on" (case-insensitive) as true.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
