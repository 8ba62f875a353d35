// Package worker implements the evaluator worker side of the protocol:
// the child process that receives one request at a time from the
// session controller, swaps in a per-request capture frame around the
// evaluator primitive, and streams results back.
package worker

import (
	"context"
	"io"

	"github.com/itsneelabh/evalsession/core"
	"github.com/itsneelabh/evalsession/ipc"
)

// Worker drives the read-evaluate-emit loop over a framed stdin/stdout
// channel. It processes exactly one request at a time, matching the
// controller's single-flight dispatch discipline.
type Worker struct {
	dec       *ipc.Decoder
	enc       *ipc.Encoder
	evaluator Evaluator
	logger    core.Logger
}

// New builds a Worker reading framed requests from in and writing
// framed messages to out.
func New(in io.Reader, out io.Writer, evaluator Evaluator, logger core.Logger) *Worker {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Worker{
		dec:       ipc.NewDecoder(in),
		enc:       ipc.NewEncoder(out),
		evaluator: evaluator,
		logger:    logger,
	}
}

// Run announces readiness and then services inbound frames until the
// channel closes or ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	info := &ipc.WorkerInfo{ProtocolVersion: ipc.ProtocolVersion}
	if provider, ok := w.evaluator.(CapabilityProvider); ok {
		info.Evaluator = provider.Name()
		info.Capabilities = provider.Capabilities()
	}
	if err := w.enc.Encode(ipc.InboundMessage{Status: "online", Info: info}); err != nil {
		return err
	}

	var active *Context
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var frame ipc.OutboundFrame
		if err := w.dec.Decode(&frame); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if frame.IsReply {
			w.handleReply(active, frame)
			continue
		}

		active = newContext(frame.ContextID, func(msg ipc.InboundMessage) {
			if err := w.enc.Encode(msg); err != nil {
				w.logger.Error("failed to write worker message", map[string]interface{}{"error": err.Error()})
			}
		})
		current.Store(active)
		w.handleRequest(ctx, active, frame)
		current.Store(nil)
	}
}

func (w *Worker) handleReply(active *Context, frame ipc.OutboundFrame) {
	if active == nil || active.ID != frame.ContextID {
		w.logger.Warn("reply for unknown or no-longer-active context", map[string]interface{}{"context_id": frame.ContextID})
		return
	}
	if !active.resolveInput(frame.RequestID, frame.ReplyPayload, nil) {
		w.logger.Warn("reply has no matching pending request", map[string]interface{}{
			"context_id": frame.ContextID,
			"request_id": frame.RequestID,
		})
	}
}

func (w *Worker) handleRequest(ctx context.Context, wc *Context, frame ipc.OutboundFrame) {
	switch frame.Action {
	case ipc.ActionRun:
		w.runRun(ctx, wc, frame.Code)
	case ipc.ActionInspect:
		w.runInspect(ctx, wc, frame.Code)
	case ipc.ActionGetAllPropertyNames:
		w.runGetAllPropertyNames(ctx, wc, frame.Code)
	default:
		wc.Helpers.SendError(core.ErrTransformFailed)
	}
}

func (w *Worker) runRun(ctx context.Context, wc *Context, code string) {
	value, err := w.evaluator.Evaluate(ctx, code)
	if err != nil {
		wc.Helpers.SendError(err)
		return
	}
	if d, ok := IsDeferred(value); ok {
		wc.Async(true)
		go func() {
			resolved, err := d.Await(ctx)
			if err != nil {
				wc.Helpers.SendError(err)
				return
			}
			wc.Helpers.SendResult(resolved)
		}()
		return
	}
	if wc.IsAsync() || wc.IsDone() {
		return
	}
	wc.Helpers.SendResult(value)
}

func (w *Worker) runInspect(ctx context.Context, wc *Context, matchedText string) {
	value, err := w.evaluator.Evaluate(ctx, matchedText)
	if err != nil {
		wc.Helpers.SendError(err)
		return
	}
	result := Inspect(value)
	wc.markDone()
	wc.emitMessage(ipc.InboundMessage{Inspection: result.ToPayload(), End: true})
}

func (w *Worker) runGetAllPropertyNames(ctx context.Context, wc *Context, scope string) {
	value, err := w.evaluator.Evaluate(ctx, scope)
	if err != nil {
		wc.Helpers.SendError(err)
		return
	}
	names := GetAllPropertyNames(value)
	wc.markDone()
	wc.emitMessage(ipc.InboundMessage{Names: names, End: true})
}
