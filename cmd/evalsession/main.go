// Command evalsession is a demo HTTP server fronting one
// ui.DefaultEvalAgent: it spawns one evaluator worker per browser
// session and exposes whichever streaming transports are available
// (Server-Sent Events always, WebSocket when built with -tags websocket)
// under /eval/<transport-name>.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itsneelabh/evalsession/config"
	"github.com/itsneelabh/evalsession/core"
	"github.com/itsneelabh/evalsession/discovery"
	"github.com/itsneelabh/evalsession/docs"
	"github.com/itsneelabh/evalsession/resilience"
	"github.com/itsneelabh/evalsession/session"
	"github.com/itsneelabh/evalsession/telemetry"
	"github.com/itsneelabh/evalsession/ui"
	"github.com/itsneelabh/evalsession/ui/security"

	_ "github.com/itsneelabh/evalsession/ui/transports/sse"
	_ "github.com/itsneelabh/evalsession/ui/transports/websocket"
)

// transportMountPath maps a registered transport's Name() to the HTTP
// path cmd/evalsession conventionally serves it under.
var transportMountPath = map[string]string{
	"sse":       "/eval/sse",
	"websocket": "/eval/websocket",
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "evalsession:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := core.NewProductionLogger(cfg.Telemetry.ServiceName,
		core.WithDebug(cfg.DevMode),
	)

	var agentOpts []ui.EvalAgentOption
	agentOpts = append(agentOpts, ui.WithLogger(logger))

	if cfg.Telemetry.Enabled {
		if err := telemetry.Initialize(telemetry.Config{
			Enabled:     true,
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			Provider:    "otel",
		}); err != nil {
			logger.Warn("telemetry initialization failed, continuing without it", map[string]interface{}{"error": err.Error()})
		}
		provider, err := telemetry.EnableTelemetry(cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint, logger)
		if err != nil {
			logger.Warn("otel provider unavailable, continuing without tracing", map[string]interface{}{"error": err.Error()})
		} else {
			agentOpts = append(agentOpts, ui.WithTelemetry(provider))
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := provider.Shutdown(ctx); err != nil {
					logger.Warn("telemetry shutdown failed", map[string]interface{}{"error": err.Error()})
				}
			}()
		}
	}

	if cfg.Discovery.Enabled {
		registry, err := discovery.NewRedisRegistryWithNamespace(cfg.Discovery.RedisURL, cfg.Discovery.Namespace,
			discovery.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("connect discovery registry: %w", err)
		}
		agentOpts = append(agentOpts, ui.WithDiscovery(registry))

		mirror, err := session.NewRedisDisplayMirror(cfg.Discovery.RedisURL, session.WithMirrorLogger(logger))
		if err != nil {
			logger.Warn("display mirror unavailable, continuing without it", map[string]interface{}{"error": err.Error()})
		} else {
			agentOpts = append(agentOpts, ui.WithDisplayMirror(mirror))
			defer mirror.Shutdown()
		}
	}

	var docTable *docs.Table
	if cfg.DocsPath != "" {
		table, err := docs.LoadFile(cfg.DocsPath)
		if err != nil {
			return fmt.Errorf("load docs table %q: %w", cfg.DocsPath, err)
		}
		docTable = table
		logger.Info("loaded documentation table", map[string]interface{}{"path": cfg.DocsPath, "entries": table.Len()})
	}

	sessionManager, closeSessionManager, err := newSessionManager(cfg, logger)
	if err != nil {
		return fmt.Errorf("build session manager: %w", err)
	}
	defer closeSessionManager()

	agent := ui.NewDefaultEvalAgent(cfg.Telemetry.ServiceName, cfg.Worker, cfg.Queue, docTable, sessionManager, agentOpts...)

	if err := registerTransports(agent, cfg.UI.Transport); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agent.AutoConfigureTransports(ctx)

	mux := http.NewServeMux()
	for _, info := range agent.ListTransports() {
		path, ok := transportMountPath[info.Name]
		if !ok || !info.Healthy {
			continue
		}
		transport, ok := agent.GetTransport(info.Name)
		if !ok {
			continue
		}
		if cfg.Resilience.Enabled {
			wrapped, err := wrapWithCircuitBreaker(transport, cfg.Resilience, logger)
			if err != nil {
				return fmt.Errorf("wrap transport %q with circuit breaker: %w", info.Name, err)
			}
			transport = wrapped
		}
		secConfig := security.DefaultSecurityConfig()
		secConfig.Logger = logger
		if cfg.Discovery.RedisURL != "" {
			secConfig.RedisURL = cfg.Discovery.RedisURL
		}
		transport = security.WithSecurity(transport, secConfig)
		mux.Handle(path, transport.CreateHandler(agent))
		logger.Info("mounted transport", map[string]interface{}{"transport": info.Name, "path": path, "circuit_breaker": cfg.Resilience.Enabled})
	}
	if cfg.Telemetry.Enabled {
		mux.HandleFunc("/healthz", telemetry.HealthHandler)
	} else {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
	}

	var handler http.Handler = mux
	if cfg.Telemetry.Enabled {
		handler = telemetry.TracingMiddleware(cfg.Telemetry.ServiceName)(handler)
	}
	handler = core.LoggingMiddleware(logger, cfg.DevMode)(handler)
	handler = core.RecoveryMiddleware(logger)(handler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("evalsession listening", map[string]interface{}{"port": cfg.Port, "ui_transport": cfg.UI.Transport})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down", nil)
	return server.Shutdown(shutdownCtx)
}

// registerTransports copies every transport auto-registered into
// ui.DefaultRegistry (via each transport package's init()) onto agent's
// own registry, filtered to what cfg.UI.Transport selects. The two
// registries are intentionally separate: the package-level one exists so
// a transport package can self-register without importing a concrete
// agent, and an agent only serves the transports explicitly given to it.
func registerTransports(agent ui.EvalAgent, want string) error {
	for _, t := range ui.ListTransports() {
		if !wantsTransport(want, t.Name()) {
			continue
		}
		if err := agent.RegisterTransport(t); err != nil {
			return fmt.Errorf("register transport %q: %w", t.Name(), err)
		}
	}
	return nil
}

func wantsTransport(want, name string) bool {
	switch want {
	case "both":
		return true
	default:
		return want == name
	}
}

// wrapWithCircuitBreaker decorates transport with a resilience.CircuitBreaker
// sized from cfg, so a run of transport-level failures (a worker pool that
// keeps crashing, a downstream Redis outage) trips into fast 503s instead of
// piling up queued requests behind a transport that can't serve them.
func wrapWithCircuitBreaker(transport ui.Transport, cfg config.ResilienceConfig, logger core.Logger) (ui.Transport, error) {
	breaker, err := resilience.NewCircuitBreaker(&resilience.CircuitBreakerConfig{
		Name:             transport.Name(),
		ErrorThreshold:   cfg.ErrorThreshold,
		VolumeThreshold:  cfg.VolumeThreshold,
		SleepWindow:      cfg.SleepWindow,
		HalfOpenRequests: cfg.HalfOpenRequests,
		SuccessThreshold: 0.6,
		WindowSize:       60 * time.Second,
		BucketCount:      10,
		ErrorClassifier:  resilience.DefaultErrorClassifier,
		Logger:           logger,
		Metrics:          nil,
	})
	if err != nil {
		return nil, err
	}
	return ui.NewCircuitBreakerTransport(transport, breaker, logger)
}

func newSessionManager(cfg *config.Config, logger core.Logger) (ui.SessionManager, func(), error) {
	sessionConfig := ui.SessionConfig{
		TTL:             30 * time.Minute,
		RateLimitWindow: time.Minute,
		RateLimitMax:    60,
		CleanupInterval: 5 * time.Minute,
	}

	if cfg.Discovery.RedisURL != "" {
		manager, err := ui.NewRedisSessionManager(cfg.Discovery.RedisURL, sessionConfig)
		if err != nil {
			return nil, nil, err
		}
		manager.SetLogger(logger)
		return manager, func() {
			if err := manager.Close(); err != nil {
				logger.Warn("session manager close failed", map[string]interface{}{"error": err.Error()})
			}
		}, nil
	}

	logger.Info("no redis URL configured, using in-memory session manager", nil)
	return ui.NewMockSessionManager(sessionConfig), func() {}, nil
}
