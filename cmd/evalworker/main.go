// Command evalworker is the evaluator worker child process a
// session.Controller spawns: it speaks the framed stdin/stdout protocol
// worker.Worker implements and evaluates each request with a small
// demonstration expression evaluator.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/itsneelabh/evalsession/core"
	"github.com/itsneelabh/evalsession/worker"
)

func main() {
	logger := core.NewProductionLogger("evalworker",
		core.WithOutput(os.Stderr),
		core.WithFormat(envOr("EVALWORKER_LOG_FORMAT", "json")),
		core.WithDebug(envOr("EVALWORKER_DEBUG", "") != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	// SIGINT is how Controller.Interrupt reaches this process without
	// killing it; registering a handler here keeps Go's default
	// terminate-on-SIGINT behavior from firing. The signal itself isn't
	// otherwise consulted: exprEvaluator's recursive eval loop already
	// polls ctx.Done() between steps, and a plain expression evaluates
	// fast enough that finer-grained interruption isn't worth the extra
	// plumbing for a demonstration evaluator.
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT)
	go func() {
		for range sigint {
			logger.Debug("received interrupt signal", nil)
		}
	}()

	w := worker.New(os.Stdin, os.Stdout, newExprEvaluator(), logger)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker exited with error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
