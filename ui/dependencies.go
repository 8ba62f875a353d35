// Package ui provides a framework for streaming a code-evaluation session
// to browsers.
//
// Purpose:
// - Provides centralized dependency management for UI components
// - Enables clean separation of concerns through dependency injection
// - Allows optional dependencies with graceful fallbacks to no-op implementations
//
// Architecture:
// The dependency injection pattern here allows UI components to:
// 1. Work with minimal dependencies (all are optional)
// 2. Integrate seamlessly with core framework services when available
// 3. Provide testability through interface-based dependencies
// 4. Support progressive enhancement based on available services
//
// Usage:
// Components should accept Dependencies or EvalAgentDependencies in constructors,
// call WithDefaults() to ensure safe fallbacks, and use functional options
// (WithLogger, WithTelemetry, etc.) for fine-grained configuration.
package ui

import (
	"github.com/itsneelabh/evalsession/core"
	"github.com/itsneelabh/evalsession/session"
)

// Dependencies provides external dependencies for UI components.
// This allows proper dependency injection without direct module imports.
type Dependencies struct {
	// Logger for logging events (optional, uses NoOpLogger if nil)
	Logger core.Logger

	// Telemetry for metrics and tracing (optional, uses NoOpTelemetry if nil)
	Telemetry core.Telemetry

	// CircuitBreaker for fault tolerance (optional, circuit breaking disabled if nil)
	CircuitBreaker core.CircuitBreaker

	// Memory for state storage (optional, uses in-memory store if nil)
	Memory core.Memory

	// Discovery registers the agent's transports under a service id so
	// other processes/tools can find it (optional, discovery disabled if nil)
	Discovery core.Registry
}

// EvalAgentDependencies provides dependencies specifically for EvalAgent.
// This is a subset of Dependencies focused on the evaluation agent.
type EvalAgentDependencies struct {
	// Logger for logging evaluation events
	Logger core.Logger

	// Telemetry for evaluation metrics and tracing
	Telemetry core.Telemetry

	// CircuitBreaker for protecting transports
	CircuitBreaker core.CircuitBreaker

	// Discovery registers the agent with a service registry
	Discovery core.Registry
}

// WithDefaults returns dependencies with default implementations for nil fields
func (d Dependencies) WithDefaults() Dependencies {
	result := d

	if result.Logger == nil {
		result.Logger = &core.NoOpLogger{}
	}

	if result.Telemetry == nil {
		result.Telemetry = &core.NoOpTelemetry{}
	}

	if result.Memory == nil {
		result.Memory = core.NewInMemoryStore()
	}

	// CircuitBreaker and Discovery remain nil if not provided.
	// This allows features to be disabled when dependencies are not available.

	return result
}

// Validate checks if required dependencies are present
func (d Dependencies) Validate() error {
	// Currently all dependencies are optional
	// Add validation logic here if some become required
	return nil
}

// EvalAgentOption is a functional option for configuring an EvalAgent
type EvalAgentOption func(*DefaultEvalAgent)

// WithLogger sets the logger for the eval agent
func WithLogger(logger core.Logger) EvalAgentOption {
	return func(agent *DefaultEvalAgent) {
		if logger != nil {
			agent.logger = logger
		}
	}
}

// WithTelemetry sets the telemetry provider for the eval agent
func WithTelemetry(telemetry core.Telemetry) EvalAgentOption {
	return func(agent *DefaultEvalAgent) {
		if telemetry != nil {
			agent.telemetry = telemetry
		}
	}
}

// WithCircuitBreaker sets the circuit breaker for the eval agent
func WithCircuitBreaker(cb core.CircuitBreaker) EvalAgentOption {
	return func(agent *DefaultEvalAgent) {
		agent.circuitBreaker = cb
	}
}

// WithDiscovery sets the service registry the eval agent registers itself with
func WithDiscovery(d core.Registry) EvalAgentOption {
	return func(agent *DefaultEvalAgent) {
		agent.discovery = d
	}
}

// WithDisplayMirror installs a session.DisplayMirror that every session's
// controller reports its display-table activity to, for out-of-process
// inspection. Optional; sessions work identically without one.
func WithDisplayMirror(mirror session.DisplayMirror) EvalAgentOption {
	return func(agent *DefaultEvalAgent) {
		agent.displayMirror = mirror
	}
}
