// Package ui provides a framework for streaming a code-evaluation session
// to browsers over pluggable transport protocols, with distributed
// session-handle management across instances.
package ui

import (
	"context"
	"net/http"
	"time"

	"github.com/itsneelabh/evalsession/ipc"
)

// Transport defines the contract for all UI communication protocols.
//
// Contract:
// - Initialize must be called before Start
// - Stop must cleanly shutdown all connections within the context deadline
// - HealthCheck must not modify state
// - CreateHandler must be safe to call concurrently
//
// Invariants:
// - A stopped transport can be restarted
// - Priority is immutable after initialization
// - Name must be unique within the registry
//
// Example: See MockTransport in testing package
//
// Testing: Must pass TransportComplianceTest suite
type Transport interface {
	// Lifecycle management
	Initialize(config TransportConfig) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// Core functionality
	CreateHandler(agent EvalAgent) http.Handler

	// Metadata
	Name() string
	Description() string
	Priority() int // Higher priority = preferred when multiple transports available
	Capabilities() []TransportCapability

	// Health monitoring
	HealthCheck(ctx context.Context) error

	// Availability check - can this transport be used in current environment?
	Available() bool

	// ClientExample returns example client code for this transport
	ClientExample() string
}

// TransportCapability describes what a transport can do
type TransportCapability string

const (
	// CapabilityStreaming indicates the transport supports streaming responses
	CapabilityStreaming TransportCapability = "streaming"

	// CapabilityBidirectional indicates the transport supports bidirectional communication
	CapabilityBidirectional TransportCapability = "bidirectional"

	// CapabilityReconnect indicates the transport supports automatic reconnection
	CapabilityReconnect TransportCapability = "reconnect"

	// CapabilityMultiplex indicates the transport supports multiple concurrent streams
	CapabilityMultiplex TransportCapability = "multiplex"
)

// TransportConfig configures a transport
type TransportConfig struct {
	// Common configuration
	MaxConnections int           `json:"max_connections"`
	Timeout        time.Duration `json:"timeout"`

	// Security
	CORS      CORSConfig      `json:"cors"`
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Transport-specific options
	Options map[string]interface{} `json:"options"`
}

// CORSConfig defines CORS settings
type CORSConfig struct {
	Enabled        bool     `json:"enabled"`
	AllowedOrigins []string `json:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers"`
	MaxAge         int      `json:"max_age"`
}

// RateLimitConfig defines rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `json:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute"`
	BurstSize         int  `json:"burst_size"`
}

// SessionManager tracks eval session handles with distributed system
// support. It does not own evaluation itself (that's session.Controller);
// it tracks which session IDs exist, when they expire, and how many
// requests they've made, so an HTTP-fronted demo server can multiplex many
// browser clients over a small number of controllers.
//
// Contract:
// - Sessions must be accessible across multiple instances
// - Expired sessions must be automatically cleaned up
// - Concurrent access to same session must be safe
//
// Invariants:
// - Session IDs are globally unique
// - RequestCount monotonically increases
//
// Testing: Must pass SessionComplianceTest suite
type SessionManager interface {
	// Session lifecycle
	Create(ctx context.Context, metadata map[string]interface{}) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, sessionID string) error

	// RecordRequest bumps a session's request count and touches UpdatedAt.
	RecordRequest(ctx context.Context, sessionID string) error

	// Rate limiting
	CheckRateLimit(ctx context.Context, sessionID string) (allowed bool, resetAt time.Time, err error)

	// Analytics
	GetActiveSessionCount(ctx context.Context) (int64, error)
	GetSessionsByMetadata(ctx context.Context, key, value string) ([]*Session, error)
}

// Session is a browser-facing session handle: it identifies which
// evaluator worker a client's requests get routed to, independent of
// the underlying session.Controller's own lifecycle.
type Session struct {
	ID           string                 `json:"id"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	ExpiresAt    time.Time              `json:"expires_at"`
	RequestCount int                    `json:"request_count"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// EvalAgent orchestrates transports and session handles in front of one
// or more session.Controllers.
//
// Contract:
// - Must support multiple concurrent transports
// - Must handle transport failures gracefully
// - Must maintain session consistency across transports
//
// Invariants:
// - Active transports are healthy
// - Sessions are transport-agnostic
type EvalAgent interface {
	// Transport management
	RegisterTransport(transport Transport) error
	ListTransports() []TransportInfo
	GetTransport(name string) (Transport, bool)

	// Session management
	GetSessionManager() SessionManager
	CreateSession(ctx context.Context) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	CheckRateLimit(ctx context.Context, sessionID string) (bool, error)

	// Evaluation, streamed as a channel of events mirroring the worker's
	// own message vocabulary (stdout/stderr/display/request/result/error).
	Execute(ctx context.Context, sessionID, code string) (<-chan EvalEvent, error)
	Complete(ctx context.Context, sessionID, code string, cursorPos int) (<-chan EvalEvent, error)
	Inspect(ctx context.Context, sessionID, code string, cursorPos int) (<-chan EvalEvent, error)

	// Reply answers a pending input request surfaced as an EventRequest event.
	Reply(ctx context.Context, sessionID string, contextID int64, requestID string, payload interface{}) error

	// Interrupt aborts whatever evaluation is currently running for
	// sessionID without killing the underlying worker.
	Interrupt(ctx context.Context, sessionID string) error

	// Configuration
	Configure(config EvalAgentConfig) error
}

// TransportInfo provides information about a registered transport
type TransportInfo struct {
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Endpoint     string                `json:"endpoint"`
	Priority     int                   `json:"priority"`
	Capabilities []TransportCapability `json:"capabilities"`
	Healthy      bool                  `json:"healthy"`
	Example      string                `json:"example,omitempty"`
}

// EvalEvent represents one message in an evaluation's event stream. It is
// the transport-facing projection of ipc.InboundMessage: each field is
// populated the same way the matching field on InboundMessage would be.
type EvalEvent struct {
	Type      EvalEventType       `json:"type"`
	Data      string              `json:"data,omitempty"`
	Mime      ipc.MimeBundle      `json:"mime,omitempty"`
	Display   *ipc.DisplayMessage `json:"display,omitempty"`
	Request   *ipc.RequestMessage `json:"request,omitempty"`
	ContextID int64               `json:"context_id,omitempty"`
	Error     *ipc.ErrorPayload   `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// EvalEventType defines types of evaluation stream events
type EvalEventType string

const (
	// EventStdout carries a line of worker stdout.
	EventStdout EvalEventType = "stdout"

	// EventStderr carries a line of worker stderr.
	EventStderr EvalEventType = "stderr"

	// EventDisplay carries a display-handle update.
	EventDisplay EvalEventType = "display"

	// EventRequest carries a worker-issued input/clear sub-request.
	EventRequest EvalEventType = "request"

	// EventResult carries the terminal mime bundle of a successful run,
	// or a completion/inspection payload.
	EventResult EvalEventType = "result"

	// EventError indicates the evaluation ended with an error
	EventError EvalEventType = "error"

	// EventDone indicates streaming is complete
	EventDone EvalEventType = "done"
)

// StreamHandler handles streaming responses.
//
// Contract:
// - Channel must be closed when streaming completes
// - Errors must be sent as EventError events
// - Context cancellation must stop streaming
//
// Testing: Must pass StreamComplianceTest suite
type StreamHandler interface {
	Execute(ctx context.Context, sessionID, code string) (<-chan EvalEvent, error)
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	RateLimit      int      `json:"rate_limit"`       // Requests per minute
	MaxMessageSize int      `json:"max_message_size"` // Bytes
	AllowedOrigins []string `json:"allowed_origins"`  // CORS origins
	RequireAuth    bool     `json:"require_auth"`     // JWT/OAuth required
}

// EvalAgentConfig configures an EvalAgent
type EvalAgentConfig struct {
	// Core settings
	Name        string `json:"name"`
	Description string `json:"description"`

	// Session configuration
	SessionConfig SessionConfig `json:"session_config"`

	// Security configuration
	SecurityConfig SecurityConfig `json:"security_config"`

	// Transport settings - map of transport name to config
	TransportConfigs map[string]TransportConfig `json:"transport_configs"`

	// Circuit breaker configuration
	CircuitBreakerEnabled bool                 `json:"circuit_breaker_enabled"`
	CircuitBreakerConfig  CircuitBreakerConfig `json:"circuit_breaker_config"`

	// Redis connection (reused from discovery)
	RedisURL string `json:"redis_url"`
}

// SessionConfig configures session management
type SessionConfig struct {
	TTL             time.Duration `json:"ttl"`               // Session expiration
	RateLimitWindow time.Duration `json:"rate_limit_window"` // Rate limit time window
	RateLimitMax    int           `json:"rate_limit_max"`    // Max requests per window
	CleanupInterval time.Duration `json:"cleanup_interval"`  // How often to clean expired sessions
}

// TransportRegistry manages transport registration and discovery.
//
// Contract:
// - Transports must be registered before use
// - Names must be unique
// - Registry is thread-safe
type TransportRegistry interface {
	Register(transport Transport) error
	Unregister(name string) error
	Get(name string) (Transport, bool)
	List() []Transport
	ListAvailable() []Transport
}

// TransportLifecycleEvent represents transport state changes
type TransportLifecycleEvent struct {
	Transport string                 `json:"transport"`
	Event     TransportEventType     `json:"event"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// TransportEventType defines transport lifecycle events
type TransportEventType string

const (
	EventTransportInitialized TransportEventType = "initialized"
	EventTransportStarted     TransportEventType = "started"
	EventTransportStopped     TransportEventType = "stopped"
	EventTransportHealthy     TransportEventType = "healthy"
	EventTransportUnhealthy   TransportEventType = "unhealthy"
)

// TransportEventHandler handles transport lifecycle events
type TransportEventHandler func(event TransportLifecycleEvent)

// EvalAgentFactory creates EvalAgent instances
type EvalAgentFactory interface {
	Create(config EvalAgentConfig) (EvalAgent, error)
}
