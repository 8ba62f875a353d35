package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ProductionLogger is a structured logger with three layers: console
// output (always on), metrics emission (once a MetricsRegistry is
// installed via SetMetricsRegistry), and trace-context correlation (once
// that registry also exposes baggage for the request). It implements
// ComponentAwareLogger so a copy scoped to one subsystem can be handed
// out via WithComponent without touching the original's configuration.
type ProductionLogger struct {
	level       string
	debug       bool
	serviceName string
	component   string
	format      string
	output      io.Writer
}

// ProductionLoggerOption configures a ProductionLogger.
type ProductionLoggerOption func(*ProductionLogger)

// WithFormat selects "json" (the default) or "text" output.
func WithFormat(format string) ProductionLoggerOption {
	return func(p *ProductionLogger) {
		if format != "" {
			p.format = format
		}
	}
}

// WithLevel sets the minimum level Debug() requires to emit ("debug"
// enables it, anything else suppresses it unless WithDebug is also set).
func WithLevel(level string) ProductionLoggerOption {
	return func(p *ProductionLogger) {
		p.level = strings.ToLower(level)
	}
}

// WithDebug forces Debug() to emit regardless of level.
func WithDebug(debug bool) ProductionLoggerOption {
	return func(p *ProductionLogger) {
		p.debug = debug
	}
}

// WithOutput overrides the destination, which defaults to os.Stdout.
func WithOutput(w io.Writer) ProductionLoggerOption {
	return func(p *ProductionLogger) {
		if w != nil {
			p.output = w
		}
	}
}

// NewProductionLogger builds a ProductionLogger for serviceName. With no
// options it logs JSON to stdout at info level.
func NewProductionLogger(serviceName string, opts ...ProductionLoggerOption) *ProductionLogger {
	p := &ProductionLogger{
		level:       "info",
		serviceName: serviceName,
		component:   "framework",
		format:      "json",
		output:      os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.debug = p.debug || p.level == "debug"
	trackLogger(p)
	return p
}

// EnableMetrics exists so the global metrics-registry tracking in
// interfaces.go (which predates telemetry registration for any given
// logger) has something to call; this logger already checks
// GetGlobalMetricsRegistry() live on every log call, so there is nothing
// further to toggle.
func (p *ProductionLogger) EnableMetrics() {}

// WithComponent returns a Logger scoped to component, sharing this
// logger's format/level/output. The returned value is independent: it
// does not observe later changes made by setters on the receiver.
func (p *ProductionLogger) WithComponent(component string) Logger {
	scoped := *p
	scoped.component = component
	return &scoped
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.logEvent(context.Background(), "INFO", msg, fields)
}

func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.logEvent(context.Background(), "ERROR", msg, fields)
}

func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.logEvent(context.Background(), "WARN", msg, fields)
}

func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent(context.Background(), "DEBUG", msg, fields)
	}
}

func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent(ctx, "INFO", msg, fields)
}

func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent(ctx, "ERROR", msg, fields)
}

func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent(ctx, "WARN", msg, fields)
}

func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent(ctx, "DEBUG", msg, fields)
	}
}

func (p *ProductionLogger) logEvent(ctx context.Context, level, msg string, fields map[string]interface{}) {
	timestamp := time.Now().Format(time.RFC3339)
	registry := GetGlobalMetricsRegistry()

	if p.format == "text" {
		traceInfo := ""
		if registry != nil {
			if baggage := registry.GetBaggage(ctx); baggage["request_id"] != "" {
				traceInfo = fmt.Sprintf("[req=%s] ", baggage["request_id"])
			}
		}
		var fieldStr strings.Builder
		for k, v := range fields {
			fieldStr.WriteString(fmt.Sprintf(" %s=%v", k, v))
		}
		fmt.Fprintf(p.output, "%s [%s] [%s/%s] %s%s%s\n",
			timestamp, level, p.serviceName, p.component, traceInfo, msg, fieldStr.String())
	} else {
		entry := map[string]interface{}{
			"timestamp": timestamp,
			"level":     level,
			"service":   p.serviceName,
			"component": p.component,
			"message":   msg,
		}
		if registry != nil {
			for k, v := range registry.GetBaggage(ctx) {
				entry["trace."+k] = v
			}
		}
		for k, v := range fields {
			entry[k] = v
		}
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(p.output, string(data))
		}
	}

	if registry != nil {
		p.emitMetric(ctx, level, fields)
	}
}

// emitMetric records one evalsession.framework.operations count per log call,
// carrying only the low-cardinality fields worth a label.
func (p *ProductionLogger) emitMetric(ctx context.Context, level string, fields map[string]interface{}) {
	registry := GetGlobalMetricsRegistry()
	labels := []string{
		"level", level,
		"service", p.serviceName,
		"component", p.component,
	}
	for _, k := range []string{"operation", "status", "error_type"} {
		if v, ok := fields[k]; ok {
			labels = append(labels, k, fmt.Sprintf("%v", v))
		}
	}
	registry.EmitWithContext(ctx, "evalsession.framework.operations", 1.0, labels...)
}

var (
	_ Logger               = (*ProductionLogger)(nil)
	_ ComponentAwareLogger = (*ProductionLogger)(nil)
)
