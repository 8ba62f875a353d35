package config

import (
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("DefaultConfig() should validate, got: %v", err)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("EVALSESSION_WORKER_COMMAND", "/usr/bin/evalworker")
	t.Setenv("EVALSESSION_WORKER_ARGS", "--foo, --bar")
	t.Setenv("EVALSESSION_QUEUE_CAPACITY", "64")
	t.Setenv("EVALSESSION_RESTART_BACKOFF", "1s")
	t.Setenv("EVALSESSION_DISCOVERY_ENABLED", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("EVALSESSION_TELEMETRY_ENABLED", "yes")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	t.Setenv("EVALSESSION_UI_TRANSPORT", "WEBSOCKET")
	t.Setenv("EVALSESSION_RESILIENCE_ENABLED", "true")
	t.Setenv("EVALSESSION_RESILIENCE_ERROR_THRESHOLD", "0.25")
	t.Setenv("EVALSESSION_RESILIENCE_SLEEP_WINDOW", "5s")
	t.Setenv("PORT", "9090")
	t.Setenv("DEV_MODE", "on")

	c := DefaultConfig()
	if err := c.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if c.Worker.Command != "/usr/bin/evalworker" {
		t.Errorf("Worker.Command = %q", c.Worker.Command)
	}
	if len(c.Worker.Args) != 2 || c.Worker.Args[0] != "--foo" || c.Worker.Args[1] != "--bar" {
		t.Errorf("Worker.Args = %v", c.Worker.Args)
	}
	if c.Queue.Capacity != 64 {
		t.Errorf("Queue.Capacity = %d", c.Queue.Capacity)
	}
	if c.Queue.RestartBackoff != time.Second {
		t.Errorf("Queue.RestartBackoff = %v", c.Queue.RestartBackoff)
	}
	if !c.Discovery.Enabled || c.Discovery.RedisURL != "redis://localhost:6379/2" {
		t.Errorf("Discovery = %+v", c.Discovery)
	}
	if !c.Telemetry.Enabled || c.Telemetry.OTLPEndpoint != "localhost:4317" {
		t.Errorf("Telemetry = %+v", c.Telemetry)
	}
	if c.UI.Transport != "websocket" {
		t.Errorf("UI.Transport = %q", c.UI.Transport)
	}
	if !c.Resilience.Enabled || c.Resilience.ErrorThreshold != 0.25 || c.Resilience.SleepWindow != 5*time.Second {
		t.Errorf("Resilience = %+v", c.Resilience)
	}
	if c.Port != 9090 {
		t.Errorf("Port = %d", c.Port)
	}
	if !c.DevMode {
		t.Error("DevMode should be true")
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate after overrides: %v", err)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	c := DefaultConfig()
	c.Port = 0
	if err := c.Validate(); err == nil {
		t.Error("expected error for invalid port")
	}
}

func TestValidateRejectsDiscoveryWithoutRedisURL(t *testing.T) {
	c := DefaultConfig()
	c.Discovery.Enabled = true
	if err := c.Validate(); err == nil {
		t.Error("expected error for discovery enabled without redis URL")
	}
}

func TestValidateRejectsUnknownTransport(t *testing.T) {
	c := DefaultConfig()
	c.UI.Transport = "carrier-pigeon"
	if err := c.Validate(); err == nil {
		t.Error("expected error for unknown UI transport")
	}
}

func TestValidateRejectsBadResilienceThreshold(t *testing.T) {
	c := DefaultConfig()
	c.Resilience.Enabled = true
	c.Resilience.ErrorThreshold = 1.5
	if err := c.Validate(); err == nil {
		t.Error("expected error for out-of-range resilience error threshold")
	}
}
