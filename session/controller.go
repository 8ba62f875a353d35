package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/itsneelabh/evalsession/config"
	"github.com/itsneelabh/evalsession/core"
	"github.com/itsneelabh/evalsession/docs"
	"github.com/itsneelabh/evalsession/expr"
	"github.com/itsneelabh/evalsession/ipc"
	"github.com/itsneelabh/evalsession/resilience"
	"github.com/itsneelabh/evalsession/telemetry"
	"github.com/itsneelabh/evalsession/worker"
)

// State is one of the worker's three lifecycle states (spec §3).
type State int32

const (
	StateStarting State = iota
	StateOnline
	StateDead
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateOnline:
		return "online"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// CodeTransform is a user-installable hook applied to the source of every
// `run` task before dispatch (spec §4.1). It may return a ready string or
// a *worker.Deferred that resolves to one; any other return is an error.
type CodeTransform func(code string) (interface{}, error)

// Controller is the Session Controller: it owns a spawned evaluator
// worker process, multiplexes execute/complete/inspect calls onto it one
// at a time, and routes the worker's messages to the originating Task's
// callbacks.
type Controller struct {
	cfg    config.WorkerConfig
	logger core.Logger
	docs   *docs.Table

	telemetry core.Telemetry

	mu      sync.Mutex // guards process/state transitions (kill/restart)
	process *ipc.Process
	state   atomic.Int32

	nextID   atomic.Int64
	inFlight atomic.Pointer[Task]
	info     atomic.Pointer[ipc.WorkerInfo]

	ctxTable  *contextTable
	dispTable *displayTable
	queue     *requestQueue

	sessionID     string
	displayMirror DisplayMirror

	transform CodeTransform

	cancelRead context.CancelFunc

	restartBackoff    time.Duration
	restartBackoffMax time.Duration
	rootCtx           context.Context
	intentionalDeath  atomic.Bool
}

// New builds a Controller that will spawn its worker using cfg. docTable
// may be nil, in which case inspection never resolves documentation.
func New(cfg config.WorkerConfig, queueCapacity int, docTable *docs.Table, logger core.Logger) *Controller {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	c := &Controller{
		cfg:       cfg,
		logger:    logger,
		docs:      docTable,
		telemetry: &core.NoOpTelemetry{},
		ctxTable:  newContextTable(),
		dispTable: newDisplayTable(),
		queue:     newRequestQueue(queueCapacity),
	}
	c.state.Store(int32(StateStarting))
	return c
}

// SetTelemetry installs the telemetry backend used to trace execute/
// complete/inspect operations and record queue-depth/restart metrics. A
// nil backend restores the no-op default.
func (c *Controller) SetTelemetry(t core.Telemetry) {
	if t == nil {
		t = &core.NoOpTelemetry{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.telemetry = t
}

// SetRestartBackoff installs the base and maximum delay used by the
// automatic respawn loop that follows an unexpected worker death (a crash
// or decode error in readLoop, as opposed to a caller-triggered Restart).
// A zero base disables auto-restart: handleWorkerDeath leaves the worker
// dead until a caller explicitly calls Restart.
func (c *Controller) SetRestartBackoff(base, max time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restartBackoff = base
	c.restartBackoffMax = max
}

// SetCodeTransform installs (or clears, with nil) the optional code
// transform applied to `run` tasks before dispatch.
func (c *Controller) SetCodeTransform(fn CodeTransform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transform = fn
}

// SetDisplayMirror installs a DisplayMirror that receives a best-effort
// copy of this controller's display-table activity, identified by
// sessionID. The mirror survives worker restarts (the display table
// itself is rebuilt empty on restart, but the new table gets the same
// mirror reinstalled).
func (c *Controller) SetDisplayMirror(sessionID string, mirror DisplayMirror) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
	c.displayMirror = mirror
	c.dispTable.setMirror(sessionID, mirror)
}

// State reports the worker's current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// WorkerInfo returns the handshake the worker attached to its status=online
// message (protocol version and evaluator capabilities), or nil if the
// worker has not yet announced itself or sent no handshake.
func (c *Controller) WorkerInfo() *ipc.WorkerInfo {
	return c.info.Load()
}

// Start spawns the evaluator worker process and begins servicing its
// message stream. It returns once the process has been spawned; readiness
// is signaled asynchronously via the worker's own status=online message.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rootCtx = ctx
	return c.spawnLocked(ctx)
}

func (c *Controller) spawnLocked(ctx context.Context) error {
	readCtx, cancel := context.WithCancel(ctx)
	proc, err := ipc.Spawn(readCtx, c.cfg.Command, c.cfg.Args, c.logger)
	if err != nil {
		cancel()
		return err
	}
	c.process = proc
	c.cancelRead = cancel
	c.state.Store(int32(StateStarting))
	go c.readLoop(proc)
	return nil
}

// readLoop decodes messages from the worker until the channel closes,
// routing each one and, on EOF or decode failure, transitioning the
// worker to dead.
func (c *Controller) readLoop(proc *ipc.Process) {
	for {
		var msg ipc.InboundMessage
		err := proc.Decoder.Decode(&msg)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Warn("worker decode error", map[string]interface{}{"error": err.Error()})
			}
			c.handleWorkerDeath()
			return
		}
		c.route(msg)
	}
}

// handleWorkerDeath runs whenever readLoop observes the worker process going
// away (decode error or EOF on its stdout pipe). That fires both for an
// unexpected crash and for a death Kill or Restart caused on purpose, so it
// consults intentionalDeath to tell the two apart: Kill/Restart set the flag
// before they touch the process, and handleWorkerDeath consumes it here,
// leaving the worker dead without a competing respawn attempt. Restart
// clears the flag itself once its own respawn finishes, so a later crash of
// the new process is still auto-restart eligible.
func (c *Controller) handleWorkerDeath() {
	intentional := c.intentionalDeath.Swap(false)

	c.state.Store(int32(StateDead))
	// The in-flight task, if any, is dropped without a synthesized
	// result (spec §9 open question, decided: "source drops").
	c.inFlight.Store(nil)
	c.info.Store(nil)

	if intentional {
		return
	}

	c.mu.Lock()
	backoff, rootCtx := c.restartBackoff, c.rootCtx
	c.mu.Unlock()
	if backoff > 0 && rootCtx != nil {
		go c.autoRestart(rootCtx)
	}
}

// autoRestart respawns a worker that died unexpectedly (crash, decode
// error), retrying with exponential backoff bounded by restartBackoffMax
// until it succeeds or rootCtx is done. It does not run after a
// caller-triggered Kill/Restart, which already leave the worker in the
// state the caller asked for.
func (c *Controller) autoRestart(rootCtx context.Context) {
	c.mu.Lock()
	backoff, maxDelay := c.restartBackoff, c.restartBackoffMax
	c.mu.Unlock()

	retryCfg := &resilience.RetryConfig{
		MaxAttempts:   1 << 20,
		InitialDelay:  backoff,
		MaxDelay:      maxDelay,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}

	err := resilience.Retry(rootCtx, retryCfg, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.State() != StateDead {
			return nil
		}
		if c.cancelRead != nil {
			c.cancelRead()
		}
		c.ctxTable = newContextTable()
		c.dispTable = newDisplayTable()
		c.dispTable.setMirror(c.sessionID, c.displayMirror)
		return c.spawnLocked(rootCtx)
	})
	if err != nil {
		c.logger.Error("auto-restart: giving up respawning worker", map[string]interface{}{"error": err.Error()})
		return
	}
	c.telemetry.RecordMetric("session.worker_auto_restarts", 1, nil)
}

// Execute enqueues a `run` task (spec §4.1).
func (c *Controller) Execute(code string, cb Callbacks) *Task {
	cb = c.traceCallbacks("session.execute", cb)
	task := &Task{Action: ActionRun, Code: code, Callbacks: cb}
	c.dispatchOrQueue(task)
	return task
}

// traceCallbacks wraps cb so that a span covering beforeRun..afterRun is
// opened and closed around the operation, with any delivered error
// recorded on the span before it closes. Queue depth is sampled as a
// gauge at the moment the span opens, giving a per-operation snapshot of
// backlog pressure.
func (c *Controller) traceCallbacks(opName string, cb Callbacks) Callbacks {
	var span core.Span
	wrapped := cb
	wrapped.BeforeRun = func() {
		ctx := telemetry.WithBaggage(context.Background(), "session_id", c.sessionID, "op", opName)
		_, span = c.telemetry.StartSpan(ctx, opName)
		c.telemetry.RecordMetric("session.queue_depth", float64(c.queue.len()), map[string]string{"op": opName})
		if cb.BeforeRun != nil {
			cb.BeforeRun()
		}
	}
	wrapped.AfterRun = func() {
		if span != nil {
			span.End()
		}
		if cb.AfterRun != nil {
			cb.AfterRun()
		}
	}
	wrapped.OnError = func(err *ipc.ErrorPayload) {
		if span != nil {
			span.RecordError(fmt.Errorf("%s: %s", err.Ename, err.Evalue))
		}
		if cb.OnError != nil {
			cb.OnError(err)
		}
	}
	return wrapped
}

// Complete implements the two-phase completion operation (spec §4.1).
// beforeRun fires once, synchronously; afterRun fires once, after the
// (possibly worker-backed) completion result has been delivered.
func (c *Controller) Complete(code string, cursorPos int, cb Callbacks) {
	cb = c.traceCallbacks("session.complete", cb)
	cb.fire("beforeRun")

	prefix := code
	if cursorPos >= 0 && cursorPos <= len(code) {
		prefix = code[:cursorPos]
	}
	m := expr.Parse(prefix, cursorPos)
	if m == nil {
		payload := emptyCompletion(code, cursorPos)
		if cb.OnSuccess != nil {
			cb.OnSuccess(ipc.InboundMessage{Completion: &payload, End: true})
		}
		cb.fire("afterRun")
		return
	}

	req := &completionRequest{match: m, code: code, cursorPos: cursorPos}
	task := &Task{
		Action:    ActionGetAllPropertyNames,
		Code:      m.Scope,
		Callbacks: Callbacks{OnStdout: cb.OnStdout, OnStderr: cb.OnStderr},
		terminal: func(c *Controller, msg ipc.InboundMessage) {
			defer cb.fire("afterRun")
			if msg.Error != nil {
				if cb.OnError != nil {
					cb.OnError(msg.Error)
				}
				return
			}
			payload := processCompletion(msg.Names, req)
			if cb.OnSuccess != nil {
				cb.OnSuccess(ipc.InboundMessage{Completion: &payload, End: true})
			}
		},
	}
	c.dispatchOrQueue(task)
}

// Inspect implements the two-phase inspection operation (spec §4.1),
// including the secondary scope inspection used for documentation
// resolution. As with Complete, beforeRun fires once synchronously and
// afterRun fires once after the final, doc-resolved result is delivered.
func (c *Controller) Inspect(code string, cursorPos int, cb Callbacks) {
	cb = c.traceCallbacks("session.inspect", cb)
	cb.fire("beforeRun")

	prefix := code
	if cursorPos >= 0 && cursorPos <= len(code) {
		prefix = code[:cursorPos]
	}
	m := expr.Parse(prefix, cursorPos)
	if m == nil {
		payload := emptyInspection(code, cursorPos)
		if cb.OnSuccess != nil {
			cb.OnSuccess(ipc.InboundMessage{Inspection: &payload, End: true})
		}
		cb.fire("afterRun")
		return
	}

	req := &inspectionRequest{match: m, code: code, cursorPos: cursorPos}
	task := &Task{
		Action:    ActionInspect,
		Code:      m.MatchedText,
		Callbacks: Callbacks{OnStdout: cb.OnStdout, OnStderr: cb.OnStderr},
		terminal: func(c *Controller, msg ipc.InboundMessage) {
			if msg.Error != nil {
				defer cb.fire("afterRun")
				if cb.OnError != nil {
					cb.OnError(msg.Error)
				}
				return
			}
			c.finishInspection(req, msg.Inspection, cb)
		},
	}
	c.dispatchOrQueue(task)
}

// finishInspection attaches context to the primary inspection result and
// attempts documentation resolution, issuing a secondary scope inspection
// when a direct lookup misses and the expression has a scope. It always
// ends by firing afterRun exactly once.
func (c *Controller) finishInspection(req *inspectionRequest, primary *ipc.InspectionPayload, cb Callbacks) {
	attachContext(primary, req)

	if rec, ok := c.lookupDirect(req.match); ok {
		deliverInspectionWithDoc(cb, primary, rec)
		return
	}
	if req.match.Scope == "" {
		deliverInspectionWithDoc(cb, primary, docRecord{})
		return
	}

	scopeTask := &Task{
		Action: ActionInspect,
		Code:   req.match.Scope,
		terminal: func(c *Controller, msg ipc.InboundMessage) {
			var rec docRecord
			if msg.Error == nil && msg.Inspection != nil {
				rec = resolveDoc(c.docs, req.match, msg.Inspection.ConstructorList)
			}
			deliverInspectionWithDoc(cb, primary, rec)
		},
	}
	c.dispatchOrQueue(scopeTask)
}

func (c *Controller) lookupDirect(m *expr.Match) (docRecord, bool) {
	if c.docs == nil {
		return docRecord{}, false
	}
	if rec, ok := c.docs.Lookup(m.Selector); ok {
		return docRecord{Found: true, Description: rec.Summary, URL: rec.Body}, true
	}
	return docRecord{}, false
}

// deliverInspectionWithDoc delivers the final, doc-resolved inspection
// result to cb.OnSuccess and fires afterRun. It is the single exit point
// for both the direct-lookup and secondary-scope-lookup paths of
// finishInspection, so afterRun fires exactly once per Inspect call.
func deliverInspectionWithDoc(cb Callbacks, payload *ipc.InspectionPayload, rec docRecord) {
	defer cb.fire("afterRun")
	if rec.Found {
		payload.Doc = &ipc.DocInfo{Description: rec.Description, URL: rec.URL}
	}
	if cb.OnSuccess != nil {
		cb.OnSuccess(ipc.InboundMessage{Inspection: payload, End: true})
	}
}

// dispatchOrQueue follows the dispatch rules of spec §4.1: run immediately
// if online and idle, enqueue if not dead, otherwise drop.
func (c *Controller) dispatchOrQueue(task *Task) {
	switch c.State() {
	case StateOnline:
		if c.inFlight.Load() == nil {
			c.runTask(task)
			return
		}
		c.enqueue(task)
	case StateStarting:
		c.enqueue(task)
	case StateDead:
		c.logger.Warn("dropping task: worker is dead", map[string]interface{}{"action": string(task.Action)})
	}
}

func (c *Controller) enqueue(task *Task) {
	if err := c.queue.push(task); err != nil {
		c.logger.Error("failed to enqueue task", map[string]interface{}{"error": err.Error()})
	}
}

// runTask allocates the next context id, records the task, fires
// beforeRun, applies the optional code transform for run actions, and
// emits the request frame.
func (c *Controller) runTask(task *Task) {
	id := c.nextID.Add(1)
	task.ContextID = id
	c.ctxTable.add(id, task)
	c.inFlight.Store(task)
	task.Callbacks.fire("beforeRun")

	if task.Action != ActionRun || c.transformFn() == nil {
		c.send(ipc.NewRequestFrame(ipc.Action(task.Action), task.Code, id))
		return
	}

	transformed, err := c.transformFn()(task.Code)
	if err != nil {
		c.failTransform(task, err)
		return
	}
	if d, ok := worker.IsDeferred(transformed); ok {
		go func() {
			v, err := d.Await(context.Background())
			if err != nil {
				c.failTransform(task, err)
				return
			}
			code, _ := v.(string)
			c.send(ipc.NewRequestFrame(ipc.Action(task.Action), code, id))
		}()
		return
	}
	code, _ := transformed.(string)
	c.send(ipc.NewRequestFrame(ipc.Action(task.Action), code, id))
}

func (c *Controller) transformFn() CodeTransform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transform
}

// failTransform synthesizes an error message with the same shape as a
// worker-produced error and routes it through the normal message-handling
// path, per spec §4.1's code-transform failure rule.
func (c *Controller) failTransform(task *Task, err error) {
	id := task.ContextID
	c.route(ipc.InboundMessage{
		ID:    &id,
		Error: &ipc.ErrorPayload{Ename: "TransformError", Evalue: err.Error()},
		End:   true,
	})
}

func (c *Controller) send(frame ipc.OutboundFrame) {
	c.mu.Lock()
	proc := c.process
	c.mu.Unlock()
	if proc == nil {
		return
	}
	if err := proc.Encoder.Encode(frame); err != nil {
		c.logger.Error("failed to write request frame", map[string]interface{}{"error": err.Error()})
	}
}

// Reply answers a pending worker `input` sub-request.
func (c *Controller) Reply(contextID int64, requestID string, payload interface{}) {
	c.send(ipc.NewReplyFrame(payload, contextID, requestID))
}

// route implements the message routing precedence order of spec §4.1.
func (c *Controller) route(msg ipc.InboundMessage) {
	if msg.IsLog() {
		c.logger.Info("worker log", map[string]interface{}{"log": msg.Log})
		return
	}
	if msg.IsOnline() {
		if msg.Info != nil {
			c.info.Store(msg.Info)
		}
		c.state.Store(int32(StateOnline))
		c.dispatchNextQueued()
		return
	}

	var contextID int64
	var task *Task
	var ok bool
	if msg.ID != nil {
		contextID = *msg.ID
		task, ok = c.ctxTable.get(contextID)
	}

	if msg.Display != nil {
		c.routeDisplay(contextID, task, msg.Display)
		return
	}

	if msg.Request != nil {
		c.routeRequest(contextID, task, msg.Request)
		return
	}

	if !ok {
		return
	}

	if msg.Stdout != nil && task.Callbacks.OnStdout != nil {
		task.Callbacks.OnStdout(*msg.Stdout)
	}
	if msg.Stderr != nil && task.Callbacks.OnStderr != nil {
		task.Callbacks.OnStderr(*msg.Stderr)
	}

	if msg.Error != nil || msg.HasTerminalResult() {
		switch {
		case task.terminal != nil:
			// terminal closures (used by Complete/Inspect's internal
			// tasks) own their own afterRun firing, since they may
			// dispatch further internal tasks before the operation is
			// actually done.
			task.terminal(c, msg)
		case msg.Error != nil:
			if task.Callbacks.OnError != nil {
				task.Callbacks.OnError(msg.Error)
			}
		default:
			if task.Callbacks.OnSuccess != nil {
				task.Callbacks.OnSuccess(msg)
			}
		}
	}

	if msg.End {
		c.ctxTable.remove(contextID)
		task.Callbacks.fire("afterRun")
		if c.inFlight.Load() == task {
			c.inFlight.Store(nil)
			c.dispatchNextQueued()
		}
	}
}

func (c *Controller) routeDisplay(contextID int64, task *Task, d *ipc.DisplayMessage) {
	switch {
	case d.Open != "":
		if task != nil {
			c.dispTable.open(d.Open, task)
		}
	case d.Close != "":
		c.dispTable.close(d.Close)
	default:
		owner := task
		if d.DisplayID != "" {
			if t, ok := c.dispTable.owner(d.DisplayID); ok {
				owner = t
			}
		}
		if owner != nil && owner.Callbacks.OnDisplay != nil {
			owner.Callbacks.OnDisplay(d.Mime)
		}
	}
}

func (c *Controller) routeRequest(contextID int64, task *Task, req *ipc.RequestMessage) {
	if task == nil || task.Callbacks.OnRequest == nil {
		return
	}
	if req.Clear != nil {
		task.Callbacks.OnRequest(req, nil)
		return
	}
	requestID := req.RequestID
	task.Callbacks.OnRequest(req, func(payload interface{}, err error) {
		if err != nil {
			c.Reply(contextID, requestID, &ipc.ErrorPayload{Ename: "Error", Evalue: err.Error()})
			return
		}
		c.Reply(contextID, requestID, payload)
	})
}

func (c *Controller) dispatchNextQueued() {
	if c.State() != StateOnline || c.inFlight.Load() != nil {
		return
	}
	next := c.queue.pop()
	if next == nil {
		return
	}
	c.runTask(next)
}

// Kill requests worker termination, sending sig (SIGTERM if zero), and
// invokes cb with the exit code and signal once the process has exited.
// The in-flight task, if any, is dropped without a synthesized result.
func (c *Controller) Kill(sig syscall.Signal, cb func(exitCode int, signal string)) {
	if sig == 0 {
		sig = syscall.SIGTERM
	}

	c.mu.Lock()
	proc := c.process
	c.mu.Unlock()

	c.state.Store(int32(StateDead))
	c.inFlight.Store(nil)
	c.telemetry.RecordMetric("session.worker_kills", 1, map[string]string{"signal": sig.String()})

	if proc == nil {
		if cb != nil {
			cb(-1, sig.String())
		}
		return
	}

	// Only set once there's an actual process to signal: readLoop's
	// handleWorkerDeath is only reachable when a process was spawned, and an
	// unconditional Store here would stick across a later Start if this Kill
	// found no process at all, wrongly suppressing that next crash's
	// auto-restart.
	c.intentionalDeath.Store(true)

	go func() {
		_ = proc.Signal(sig)
		exitCode, signalName := waitExit(proc)
		if cb != nil {
			cb(exitCode, signalName)
		}
	}()
}

// Interrupt sends SIGINT to the worker process without tearing it down:
// unlike Kill/Restart, state, the in-flight task, and the context/display
// tables are left untouched. It aborts whatever evaluation is currently
// running; the worker is expected to respond the same way it would to any
// other evaluation failure, by sending a terminal error message for the
// in-flight context id, which routes through the normal path. Interrupt is
// a no-op if the worker hasn't been started yet.
func (c *Controller) Interrupt(ctx context.Context) error {
	c.mu.Lock()
	proc := c.process
	c.mu.Unlock()
	if proc == nil {
		return nil
	}
	c.telemetry.RecordMetric("session.worker_interrupts", 1, nil)
	return proc.Signal(syscall.SIGINT)
}

// Restart kills the current worker and respawns a fresh one, resetting
// the context and display tables (no state survives a restart, spec §1
// non-goal) while preserving the request queue, which resumes draining
// once the new worker announces online.
func (c *Controller) Restart(ctx context.Context, sig syscall.Signal, cb func(exitCode int, signal string)) {
	if sig == 0 {
		sig = syscall.SIGTERM
	}
	c.intentionalDeath.Store(true)

	c.mu.Lock()
	proc := c.process
	c.mu.Unlock()

	c.state.Store(int32(StateDead))
	c.inFlight.Store(nil)
	c.telemetry.RecordMetric("session.worker_restarts", 1, map[string]string{"signal": sig.String()})

	var exitCode int
	var signalName string
	if proc != nil {
		_ = proc.Signal(sig)
		exitCode, signalName = waitExit(proc)
	} else {
		exitCode, signalName = -1, sig.String()
	}

	c.ctxTable = newContextTable()
	c.dispTable = newDisplayTable()
	c.dispTable.setMirror(c.sessionID, c.displayMirror)
	c.info.Store(nil)

	c.mu.Lock()
	if c.cancelRead != nil {
		c.cancelRead()
	}
	err := c.spawnLocked(ctx)
	c.mu.Unlock()
	c.intentionalDeath.Store(false)

	if err != nil {
		c.logger.Error("restart: failed to respawn worker", map[string]interface{}{"error": err.Error()})
	}
	if cb != nil {
		cb(exitCode, signalName)
	}
}

// waitExit blocks until proc's process has exited and reports its exit
// code and terminating signal name (empty if it exited normally).
func waitExit(proc *ipc.Process) (int, string) {
	err := proc.Wait()
	if err == nil {
		return 0, ""
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return -1, status.Signal().String()
			}
			return status.ExitStatus(), ""
		}
		return exitErr.ExitCode(), ""
	}
	return -1, ""
}
