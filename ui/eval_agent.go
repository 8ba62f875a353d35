// Package ui provides a framework for streaming a code-evaluation session
// to browsers.
//
// Purpose:
// - DefaultEvalAgent is the concrete EvalAgent: it owns one session.Controller
//   per session id, fans each controller's worker messages out as EvalEvents,
//   and exposes the registered transports over HTTP.
//
// Architecture:
// Each session gets its own evaluator worker process (spec'd multi-session
// model: "multiple concurrent sessions under one supervisor process"). The
// agent is the thing that answers "which Controller does this session id
// belong to" and turns Controller callbacks into a channel of EvalEvents a
// transport can stream to a browser.
package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itsneelabh/evalsession/config"
	"github.com/itsneelabh/evalsession/core"
	"github.com/itsneelabh/evalsession/docs"
	"github.com/itsneelabh/evalsession/ipc"
	"github.com/itsneelabh/evalsession/session"
)

// DefaultEvalAgent is the default EvalAgent implementation.
type DefaultEvalAgent struct {
	name   string
	config EvalAgentConfig

	workerConfig config.WorkerConfig
	queueConfig  config.QueueConfig
	docTable     *docs.Table

	sessionManager SessionManager
	registry       TransportRegistry

	logger         core.Logger
	telemetry      core.Telemetry
	circuitBreaker core.CircuitBreaker
	discovery      core.Registry
	displayMirror  session.DisplayMirror

	mu          sync.RWMutex
	controllers map[string]*session.Controller
}

// NewDefaultEvalAgent creates a DefaultEvalAgent backed by sessionManager,
// spawning a fresh session.Controller (using workerConfig) for each new
// session id. Optional dependencies are configured via EvalAgentOptions.
func NewDefaultEvalAgent(name string, workerConfig config.WorkerConfig, queueConfig config.QueueConfig, docTable *docs.Table, sessionManager SessionManager, opts ...EvalAgentOption) *DefaultEvalAgent {
	agent := &DefaultEvalAgent{
		name:           name,
		workerConfig:   workerConfig,
		queueConfig:    queueConfig,
		docTable:       docTable,
		sessionManager: sessionManager,
		registry:       NewTransportRegistry(),
		logger:         &core.NoOpLogger{},
		telemetry:      &core.NoOpTelemetry{},
		controllers:    make(map[string]*session.Controller),
	}

	for _, opt := range opts {
		opt(agent)
	}

	if cal, ok := agent.logger.(core.ComponentAwareLogger); ok {
		agent.logger = cal.WithComponent("framework/ui")
	}
	agent.registry.SetLogger(agent.logger)

	return agent
}

// RegisterTransport implements EvalAgent.RegisterTransport
func (a *DefaultEvalAgent) RegisterTransport(transport Transport) error {
	return a.registry.Register(transport)
}

// ListTransports implements EvalAgent.ListTransports
func (a *DefaultEvalAgent) ListTransports() []TransportInfo {
	transports := a.registry.List()
	infos := make([]TransportInfo, 0, len(transports))
	for _, t := range transports {
		infos = append(infos, TransportInfo{
			Name:         t.Name(),
			Description:  t.Description(),
			Priority:     t.Priority(),
			Capabilities: t.Capabilities(),
			Healthy:      t.HealthCheck(context.Background()) == nil,
			Example:      t.ClientExample(),
		})
	}
	return infos
}

// GetTransport implements EvalAgent.GetTransport
func (a *DefaultEvalAgent) GetTransport(name string) (Transport, bool) {
	return a.registry.Get(name)
}

// AutoConfigureTransports initializes and starts every transport registered
// with the agent using a fixed TransportConfig (1000 max connections, 30s
// timeout, no CORS or rate-limit settings), so a caller doesn't have to wire
// each transport's lifecycle by hand.
func (a *DefaultEvalAgent) AutoConfigureTransports(ctx context.Context) {
	manager := NewTransportManagerWithLogger(a.registry, a.logger)

	registered := a.registry.List()
	names := make([]string, 0, len(registered))
	for _, t := range registered {
		names = append(names, t.Name())
	}
	startTime := time.Now()

	a.logger.Info("Starting transport auto-configuration", map[string]interface{}{
		"operation":       "auto_configure_transports",
		"transport_names": names,
		"transport_count": len(names),
	})

	configured, failed := 0, 0
	defaultConfig := TransportConfig{MaxConnections: 1000, Timeout: 30 * time.Second}

	for _, name := range names {
		if err := manager.InitializeTransport(name, defaultConfig); err != nil {
			failed++
			a.logger.Warn("transport auto-configuration init failed", map[string]interface{}{
				"operation": "auto_configure_transports",
				"transport": name,
				"error":     err.Error(),
			})
			continue
		}
		if err := manager.StartTransport(ctx, name); err != nil {
			failed++
			a.logger.Warn("transport auto-configuration start failed", map[string]interface{}{
				"operation": "auto_configure_transports",
				"transport": name,
				"error":     err.Error(),
			})
			continue
		}
		configured++
	}

	successRate := 1.0
	if total := configured + failed; total > 0 {
		successRate = float64(configured) / float64(total)
	}

	a.logger.Info("Transport auto-configuration completed", map[string]interface{}{
		"operation":        "auto_configure_transports",
		"configured_count": configured,
		"failed_count":     failed,
		"success_rate":     successRate,
		"total_duration":   time.Since(startTime).String(),
	})
}

// GetSessionManager implements EvalAgent.GetSessionManager
func (a *DefaultEvalAgent) GetSessionManager() SessionManager {
	return a.sessionManager
}

// CreateSession implements EvalAgent.CreateSession. The worker process for
// the session is spawned lazily, on the session's first Execute, Complete,
// Inspect, Reply or Interrupt call, not here.
func (a *DefaultEvalAgent) CreateSession(ctx context.Context) (*Session, error) {
	startTime := time.Now()

	sess, err := a.sessionManager.Create(ctx, nil)

	status := "success"
	if err != nil {
		status = "error"
	}
	if registry := core.GetGlobalMetricsRegistry(); registry != nil {
		registry.EmitWithContext(ctx, "evalsession.ui.operations", 1.0,
			"level", "INFO",
			"service", "eval_agent",
			"component", "ui",
			"operation", "session_create",
		)
		registry.EmitWithContext(ctx, "evalsession.ui.session.operations", 1.0,
			"operation", "create",
			"status", status,
		)
		registry.EmitWithContext(ctx, "evalsession.ui.session.duration", float64(time.Since(startTime).Milliseconds()),
			"operation", "create",
		)
	}

	if err != nil {
		return nil, err
	}

	a.logger.Info("session created", map[string]interface{}{
		"operation":  "session_create",
		"session_id": sess.ID,
	})

	if a.discovery != nil {
		info := &core.ServiceInfo{
			ID:     sess.ID,
			Name:   a.name,
			Type:   core.ComponentTypeAgent,
			Health: core.HealthHealthy,
		}
		if err := a.discovery.Register(ctx, info); err != nil {
			a.logger.Warn("session discovery registration failed", map[string]interface{}{
				"operation":  "session_create",
				"session_id": sess.ID,
				"error":      err.Error(),
			})
		}
	}

	return sess, nil
}

// GetSession implements EvalAgent.GetSession
func (a *DefaultEvalAgent) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return a.sessionManager.Get(ctx, sessionID)
}

// CheckRateLimit implements EvalAgent.CheckRateLimit
func (a *DefaultEvalAgent) CheckRateLimit(ctx context.Context, sessionID string) (bool, error) {
	allowed, _, err := a.sessionManager.CheckRateLimit(ctx, sessionID)
	return allowed, err
}

// controllerFor returns the worker controller for sessionID, spawning it on
// first use. The session must already exist in the session manager.
func (a *DefaultEvalAgent) controllerFor(ctx context.Context, sessionID string) (*session.Controller, error) {
	a.mu.RLock()
	ctrl, ok := a.controllers[sessionID]
	a.mu.RUnlock()
	if ok {
		return ctrl, nil
	}

	if _, err := a.sessionManager.Get(ctx, sessionID); err != nil {
		return nil, ErrSessionNotFound
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if ctrl, ok := a.controllers[sessionID]; ok {
		return ctrl, nil
	}

	ctrl = session.New(a.workerConfig, a.queueConfig.Capacity, a.docTable, a.logger)
	ctrl.SetTelemetry(a.telemetry)
	ctrl.SetRestartBackoff(a.queueConfig.RestartBackoff, a.queueConfig.RestartBackoffMax)
	if a.displayMirror != nil {
		ctrl.SetDisplayMirror(sessionID, a.displayMirror)
	}

	if err := ctrl.Start(ctx); err != nil {
		return nil, NewUIError("EvalAgent.controllerFor", ErrorKindSession, err)
	}

	a.controllers[sessionID] = ctrl
	return ctrl, nil
}

// eventCallbacks builds session.Callbacks that push every worker message
// onto events as an EvalEvent, closing the channel once the terminal
// message (success or error) has been delivered.
func eventCallbacks(events chan<- EvalEvent) session.Callbacks {
	return session.Callbacks{
		OnStdout: func(chunk string) {
			events <- EvalEvent{Type: EventStdout, Data: chunk, Timestamp: time.Now()}
		},
		OnStderr: func(chunk string) {
			events <- EvalEvent{Type: EventStderr, Data: chunk, Timestamp: time.Now()}
		},
		OnDisplay: func(bundle ipc.MimeBundle) {
			events <- EvalEvent{Type: EventDisplay, Mime: bundle, Timestamp: time.Now()}
		},
		OnRequest: func(req *ipc.RequestMessage, reply func(payload interface{}, err error)) {
			events <- EvalEvent{Type: EventRequest, Request: req, ContextID: eventContextID(req), Timestamp: time.Now()}
		},
		OnSuccess: func(result ipc.InboundMessage) {
			events <- EvalEvent{Type: EventResult, Mime: result.Mime, Timestamp: time.Now()}
		},
		OnError: func(err *ipc.ErrorPayload) {
			events <- EvalEvent{Type: EventError, Error: err, Timestamp: time.Now()}
		},
		AfterRun: func() {
			events <- EvalEvent{Type: EventDone, Timestamp: time.Now()}
			close(events)
		},
	}
}

// eventContextID has no role today (RequestMessage carries no context id of
// its own; the worker multiplexes by request id) but keeps EvalEvent.ContextID
// populated once the controller starts round-tripping it alongside replies.
func eventContextID(req *ipc.RequestMessage) int64 {
	return 0
}

// Execute implements EvalAgent.Execute
func (a *DefaultEvalAgent) Execute(ctx context.Context, sessionID, code string) (<-chan EvalEvent, error) {
	ctrl, err := a.controllerFor(ctx, sessionID)
	if err != nil {
		return nil, NewUIError("EvalAgent.Execute", ErrorKindSession, err)
	}

	if err := a.sessionManager.RecordRequest(ctx, sessionID); err != nil {
		a.logger.Warn("request count not recorded", map[string]interface{}{
			"operation":  "eval_execute",
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	events := make(chan EvalEvent)
	ctrl.Execute(code, eventCallbacks(events))
	return events, nil
}

// Complete implements EvalAgent.Complete
func (a *DefaultEvalAgent) Complete(ctx context.Context, sessionID, code string, cursorPos int) (<-chan EvalEvent, error) {
	ctrl, err := a.controllerFor(ctx, sessionID)
	if err != nil {
		return nil, NewUIError("EvalAgent.Complete", ErrorKindSession, err)
	}

	events := make(chan EvalEvent)
	ctrl.Complete(code, cursorPos, eventCallbacks(events))
	return events, nil
}

// Inspect implements EvalAgent.Inspect
func (a *DefaultEvalAgent) Inspect(ctx context.Context, sessionID, code string, cursorPos int) (<-chan EvalEvent, error) {
	ctrl, err := a.controllerFor(ctx, sessionID)
	if err != nil {
		return nil, NewUIError("EvalAgent.Inspect", ErrorKindSession, err)
	}

	events := make(chan EvalEvent)
	ctrl.Inspect(code, cursorPos, eventCallbacks(events))
	return events, nil
}

// Reply implements EvalAgent.Reply
func (a *DefaultEvalAgent) Reply(ctx context.Context, sessionID string, contextID int64, requestID string, payload interface{}) error {
	ctrl, err := a.controllerFor(ctx, sessionID)
	if err != nil {
		return NewUIError("EvalAgent.Reply", ErrorKindSession, err)
	}

	ctrl.Reply(contextID, requestID, payload)
	return nil
}

// Interrupt implements EvalAgent.Interrupt
func (a *DefaultEvalAgent) Interrupt(ctx context.Context, sessionID string) error {
	ctrl, err := a.controllerFor(ctx, sessionID)
	if err != nil {
		return NewUIError("EvalAgent.Interrupt", ErrorKindSession, err)
	}

	if err := ctrl.Interrupt(ctx); err != nil {
		return NewUIError("EvalAgent.Interrupt", ErrorKindTransport, err)
	}
	return nil
}

// Configure implements EvalAgent.Configure
func (a *DefaultEvalAgent) Configure(cfg EvalAgentConfig) error {
	if cfg.Name == "" {
		return NewUIError("EvalAgent.Configure", ErrorKindConfiguration, ErrInvalidConfig)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.config = cfg
	a.name = cfg.Name
	return nil
}

var _ EvalAgent = (*DefaultEvalAgent)(nil)
var _ fmt.Stringer = (*DefaultEvalAgent)(nil)

// String implements fmt.Stringer for logging contexts.
func (a *DefaultEvalAgent) String() string {
	return fmt.Sprintf("DefaultEvalAgent(%s)", a.name)
}
