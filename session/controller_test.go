package session

import (
	"context"
	"os/exec"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/evalsession/config"
	"github.com/itsneelabh/evalsession/core"
	"github.com/itsneelabh/evalsession/docs"
	"github.com/itsneelabh/evalsession/ipc"
)

// newOnlineController builds a Controller with no real worker process
// attached, forced into the online/idle state. Controller.send is a no-op
// whenever its process is nil, so dispatch/routing logic can be exercised
// end-to-end by calling route() with synthetic InboundMessages in place of
// an actual child process's stdout.
func newOnlineController(t *testing.T, docTable *docs.Table) *Controller {
	t.Helper()
	c := New(config.WorkerConfig{Command: "evalworker"}, 4, docTable, &core.NoOpLogger{})
	c.state.Store(int32(StateOnline))
	return c
}

func TestDispatchRules(t *testing.T) {
	t.Run("online and idle runs immediately", func(t *testing.T) {
		c := newOnlineController(t, nil)
		task := c.Execute("1+1", Callbacks{})
		assert.NotZero(t, task.ContextID)
		assert.Equal(t, task, c.inFlight.Load())
		assert.Equal(t, 0, c.queue.len())
	})

	t.Run("online and busy enqueues", func(t *testing.T) {
		c := newOnlineController(t, nil)
		first := c.Execute("1+1", Callbacks{})
		second := c.Execute("2+2", Callbacks{})
		assert.Equal(t, first, c.inFlight.Load())
		assert.Equal(t, 1, c.queue.len())
		assert.Zero(t, second.ContextID)
	})

	t.Run("starting enqueues", func(t *testing.T) {
		c := newOnlineController(t, nil)
		c.state.Store(int32(StateStarting))
		c.Execute("1+1", Callbacks{})
		assert.Equal(t, 1, c.queue.len())
		assert.Nil(t, c.inFlight.Load())
	})

	t.Run("dead drops", func(t *testing.T) {
		c := newOnlineController(t, nil)
		c.state.Store(int32(StateDead))
		c.Execute("1+1", Callbacks{})
		assert.Equal(t, 0, c.queue.len())
		assert.Nil(t, c.inFlight.Load())
	})
}

// TestBasicExpression covers spec scenario 1: a successful run delivers
// onSuccess with the worker's mime bundle, in beforeRun/onSuccess/afterRun
// order, with no stdout observed.
func TestBasicExpression(t *testing.T) {
	c := newOnlineController(t, nil)

	var order []string
	var stdoutSeen bool
	var result ipc.InboundMessage

	task := c.Execute("['Hello','World!'].join(', ');", Callbacks{
		BeforeRun: func() { order = append(order, "beforeRun") },
		AfterRun:  func() { order = append(order, "afterRun") },
		OnStdout:  func(string) { stdoutSeen = true },
		OnSuccess: func(msg ipc.InboundMessage) {
			order = append(order, "onSuccess")
			result = msg
		},
	})

	id := task.ContextID
	c.route(ipc.InboundMessage{
		ID:   &id,
		Mime: ipc.MimeBundle{"text/plain": "'Hello, World!'"},
		End:  true,
	})

	assert.Equal(t, []string{"beforeRun", "onSuccess", "afterRun"}, order)
	assert.False(t, stdoutSeen)
	assert.Equal(t, "'Hello, World!'", result.Mime["text/plain"])
	assert.Nil(t, c.inFlight.Load())
}

// TestThrow covers spec scenario 2.
func TestThrow(t *testing.T) {
	c := newOnlineController(t, nil)

	var order []string
	var errPayload *ipc.ErrorPayload

	task := c.Execute("throw new Error('Hello, World!');", Callbacks{
		BeforeRun: func() { order = append(order, "beforeRun") },
		AfterRun:  func() { order = append(order, "afterRun") },
		OnError: func(err *ipc.ErrorPayload) {
			order = append(order, "onError")
			errPayload = err
		},
	})

	id := task.ContextID
	c.route(ipc.InboundMessage{
		ID:    &id,
		Error: &ipc.ErrorPayload{Ename: "Error", Evalue: "Hello, World!", Traceback: []string{"at <anonymous>"}},
		End:   true,
	})

	assert.Equal(t, []string{"beforeRun", "onError", "afterRun"}, order)
	require.NotNil(t, errPayload)
	assert.Equal(t, "Error", errPayload.Ename)
	assert.NotEmpty(t, errPayload.Traceback)
}

// TestStdoutCapture covers spec scenario 3: the stream callback fires
// before afterRun.
func TestStdoutCapture(t *testing.T) {
	c := newOnlineController(t, nil)

	var order []string

	task := c.Execute("console.log('Hello, World!');", Callbacks{
		AfterRun:  func() { order = append(order, "afterRun") },
		OnStdout:  func(chunk string) { order = append(order, "stdout:"+chunk) },
		OnSuccess: func(ipc.InboundMessage) { order = append(order, "onSuccess") },
	})

	id := task.ContextID
	out := "Hello, World!\n"
	c.route(ipc.InboundMessage{ID: &id, Stdout: &out})
	c.route(ipc.InboundMessage{ID: &id, Mime: ipc.MimeBundle{"text/plain": "undefined"}, End: true})

	require.Len(t, order, 3)
	assert.Equal(t, "stdout:Hello, World!\n", order[0])
	assert.Equal(t, "afterRun", order[2])
}

// TestRoutingPrecedence exercises the full message-routing precedence
// order against a single task: log, status, display, request, stdout,
// stderr, then terminal result and end-of-message cleanup.
func TestRoutingPrecedence(t *testing.T) {
	c := newOnlineController(t, nil)

	var events []string
	task := c.Execute("run()", Callbacks{
		OnStdout: func(string) { events = append(events, "stdout") },
		OnStderr: func(string) { events = append(events, "stderr") },
		OnRequest: func(req *ipc.RequestMessage, reply func(interface{}, error)) {
			events = append(events, "request")
			if reply != nil {
				reply("ok", nil)
			}
		},
		OnDisplay: func(ipc.MimeBundle) { events = append(events, "display") },
		OnSuccess: func(ipc.InboundMessage) { events = append(events, "success") },
		AfterRun:  func() { events = append(events, "afterRun") },
	})
	id := task.ContextID

	c.route(ipc.InboundMessage{Log: "starting up"})
	c.route(ipc.InboundMessage{ID: &id, Display: &ipc.DisplayMessage{Mime: ipc.MimeBundle{"text/plain": "1"}}})
	c.route(ipc.InboundMessage{ID: &id, Request: &ipc.RequestMessage{Clear: &ipc.ClearRequest{}}})

	// a single message carrying stdout, stderr, and a terminal result
	// together exercises the precedence order within route() itself:
	// stdout, then stderr, then the terminal outcome, then end-of-message
	// cleanup.
	out := "x"
	c.route(ipc.InboundMessage{
		ID:     &id,
		Stdout: &out,
		Stderr: &out,
		Mime:   ipc.MimeBundle{"text/plain": "undefined"},
		End:    true,
	})

	assert.Equal(t, []string{"display", "request", "stdout", "stderr", "success", "afterRun"}, events)
}

// TestCompletionGlobalScope covers spec scenario 4.
func TestCompletionGlobalScope(t *testing.T) {
	c := newOnlineController(t, nil)

	var payload ipc.CompletionPayload
	var order []string
	c.Complete("set", 3, Callbacks{
		BeforeRun: func() { order = append(order, "beforeRun") },
		AfterRun:  func() { order = append(order, "afterRun") },
		OnSuccess: func(msg ipc.InboundMessage) {
			order = append(order, "onSuccess")
			payload = *msg.Completion
		},
	})

	task := c.inFlight.Load()
	require.NotNil(t, task)
	c.route(ipc.InboundMessage{
		ID:    &task.ContextID,
		Names: nil,
		End:   true,
	})

	assert.Equal(t, []string{"beforeRun", "onSuccess", "afterRun"}, order)
	assert.Equal(t, []string{"setImmediate", "setInterval", "setTimeout"}, payload.List)
	assert.Equal(t, "set", payload.MatchedText)
	assert.Equal(t, 0, payload.CursorStart)
	assert.Equal(t, 3, payload.CursorEnd)
}

func TestCompletionGlobalScopePartialCursor(t *testing.T) {
	c := newOnlineController(t, nil)

	var payload ipc.CompletionPayload
	c.Complete("set", 2, Callbacks{
		OnSuccess: func(msg ipc.InboundMessage) { payload = *msg.Completion },
	})

	task := c.inFlight.Load()
	require.NotNil(t, task)
	c.route(ipc.InboundMessage{ID: &task.ContextID, End: true})

	assert.Equal(t, []string{"setImmediate", "setInterval", "setTimeout"}, payload.List)
	assert.Equal(t, "se", payload.MatchedText)
	assert.GreaterOrEqual(t, payload.CursorEnd, payload.CursorStart)
}

// TestCompletionNoMatch exercises the synchronous empty-completion path,
// which never touches the worker.
func TestCompletionNoMatch(t *testing.T) {
	c := newOnlineController(t, nil)

	var order []string
	c.Complete("", 0, Callbacks{
		BeforeRun: func() { order = append(order, "beforeRun") },
		AfterRun:  func() { order = append(order, "afterRun") },
		OnSuccess: func(ipc.InboundMessage) { order = append(order, "onSuccess") },
	})

	assert.Equal(t, []string{"beforeRun", "onSuccess", "afterRun"}, order)
	assert.Nil(t, c.inFlight.Load())
}

// TestInspectionWithDocumentation covers spec scenario 6: a direct lookup
// hit on the documentation table is attached to the delivered result.
func TestInspectionWithDocumentation(t *testing.T) {
	table := docs.NewTable(map[string]docs.Record{
		"parseInt": {
			Summary: "The parseInt() function parses a string argument.",
			Body:    "https://developer.example.org/docs/parseInt",
		},
	})
	c := newOnlineController(t, table)

	var order []string
	var payload ipc.InspectionPayload
	c.Inspect("parseInt", 8, Callbacks{
		BeforeRun: func() { order = append(order, "beforeRun") },
		AfterRun:  func() { order = append(order, "afterRun") },
		OnSuccess: func(msg ipc.InboundMessage) {
			order = append(order, "onSuccess")
			payload = *msg.Inspection
		},
	})

	task := c.inFlight.Load()
	require.NotNil(t, task)
	c.route(ipc.InboundMessage{
		ID: &task.ContextID,
		Inspection: &ipc.InspectionPayload{
			String: "function parseInt() { [native code] }",
			Type:   "Function",
		},
		End: true,
	})

	assert.Equal(t, []string{"beforeRun", "onSuccess", "afterRun"}, order)
	assert.Equal(t, "Function", payload.Type)
	require.NotNil(t, payload.Doc)
	assert.True(t, strings.HasPrefix(payload.Doc.Description, "The parseInt() function"))
	assert.True(t, strings.HasSuffix(payload.Doc.URL, "parseInt"))
	assert.Equal(t, "parseInt", payload.Code)
	assert.Equal(t, "parseInt", payload.MatchedText)
}

// TestInspectionSecondaryScopeLookup covers the two-stage path: a direct
// lookup miss on a scoped selector dispatches a secondary inspection of
// the scope to resolve its constructor list before a doc probe.
func TestInspectionSecondaryScopeLookup(t *testing.T) {
	table := docs.NewTable(map[string]docs.Record{
		"Array.prototype.push": {Summary: "Adds elements to the end of an array.", Body: "https://developer.example.org/docs/Array/push"},
	})
	c := newOnlineController(t, table)

	var payload ipc.InspectionPayload
	done := make(chan struct{})
	c.Inspect("a.push", 6, Callbacks{
		OnSuccess: func(msg ipc.InboundMessage) {
			payload = *msg.Inspection
			close(done)
		},
	})

	primary := c.inFlight.Load()
	require.NotNil(t, primary)
	c.route(ipc.InboundMessage{
		ID:         &primary.ContextID,
		Inspection: &ipc.InspectionPayload{String: "function push() { [native code] }", Type: "Function"},
		End:        true,
	})

	// the secondary scope-inspection task (on "a") should now be in flight
	secondary := c.inFlight.Load()
	require.NotNil(t, secondary)
	require.NotEqual(t, primary.ContextID, secondary.ContextID)
	c.route(ipc.InboundMessage{
		ID: &secondary.ContextID,
		Inspection: &ipc.InspectionPayload{
			String:          "[ 1, 2, 3 ]",
			Type:            "Array",
			ConstructorList: []string{"Array", "Object"},
		},
		End: true,
	})

	<-done
	require.NotNil(t, payload.Doc)
	assert.Equal(t, "Adds elements to the end of an array.", payload.Doc.Description)
}

// TestDisplayUpdate covers spec scenario 7: a display opened by one
// execute is updated by a later one via the display table.
func TestDisplayUpdate(t *testing.T) {
	c := newOnlineController(t, nil)

	var bundles []ipc.MimeBundle
	first := c.Execute("var d = $$.display('1'); d.text(1);", Callbacks{
		OnDisplay: func(b ipc.MimeBundle) { bundles = append(bundles, b) },
	})
	c.route(ipc.InboundMessage{ID: &first.ContextID, Display: &ipc.DisplayMessage{Open: "1", DisplayID: "1"}})
	c.route(ipc.InboundMessage{ID: &first.ContextID, Display: &ipc.DisplayMessage{DisplayID: "1", Mime: ipc.MimeBundle{"text/plain": "1"}}})
	c.route(ipc.InboundMessage{ID: &first.ContextID, Mime: ipc.MimeBundle{"text/plain": "undefined"}, End: true})

	second := c.Execute("d.text(2);", Callbacks{})
	c.route(ipc.InboundMessage{ID: &second.ContextID, Display: &ipc.DisplayMessage{DisplayID: "1", Mime: ipc.MimeBundle{"text/plain": "2"}}})
	c.route(ipc.InboundMessage{ID: &second.ContextID, Mime: ipc.MimeBundle{"text/plain": "undefined"}, End: true})

	require.Len(t, bundles, 2)
	assert.Equal(t, "2", bundles[1]["text/plain"])
}

// TestInputRoundTrip covers spec scenario 8: onRequest fires with the
// input payload and a reply closure; calling it answers the pending
// request (observable as a no-op send, since no real process is attached
// in this test, but the reply closure itself must not panic or block).
func TestInputRoundTrip(t *testing.T) {
	c := newOnlineController(t, nil)

	requestFired := false
	task := c.Execute("$$.input({prompt:'?', password:true}, cb);", Callbacks{
		OnRequest: func(req *ipc.RequestMessage, reply func(interface{}, error)) {
			requestFired = true
			require.NotNil(t, req.Input)
			assert.Equal(t, "?", req.Input.Prompt)
			assert.True(t, req.Input.Password)
			require.NotNil(t, reply)
			reply(map[string]string{"input": "opensesame"}, nil)
		},
	})

	id := task.ContextID
	c.route(ipc.InboundMessage{
		ID:      &id,
		Request: &ipc.RequestMessage{Input: &ipc.InputRequest{Prompt: "?", Password: true}, RequestID: "req-1"},
	})

	assert.True(t, requestFired)
	// the request stays live (no End) until the worker later reports
	// completion; the task must still be in flight.
	assert.Equal(t, task, c.inFlight.Load())
}

// TestKillWithNoProcessReportsImmediately exercises Kill's degenerate
// path when no worker has ever been spawned.
func TestKillWithNoProcessReportsImmediately(t *testing.T) {
	c := newOnlineController(t, nil)
	c.Execute("loop forever", Callbacks{})
	require.NotNil(t, c.inFlight.Load())

	done := make(chan struct{})
	var gotCode int
	var gotSignal string
	c.Kill(syscall.SIGTERM, func(exitCode int, signal string) {
		gotCode, gotSignal = exitCode, signal
		close(done)
	})
	<-done

	assert.Equal(t, StateDead, c.State())
	assert.Nil(t, c.inFlight.Load())
	assert.Equal(t, -1, gotCode)
	assert.Equal(t, syscall.SIGTERM.String(), gotSignal)
}

// TestRestartPreservesQueueResetsTables covers spec scenario 9's
// decided-open-question behavior: the request queue survives a restart
// while the context/display tables start fresh. The respawn itself is
// allowed to fail (no real worker binary exists in the test environment);
// Restart must still report the prior process's exit condition and leave
// the queue intact.
func TestRestartPreservesQueueResetsTables(t *testing.T) {
	c := New(config.WorkerConfig{Command: "evalsession-worker-does-not-exist-xyz"}, 0, nil, &core.NoOpLogger{})
	c.state.Store(int32(StateStarting))
	c.Execute("1+1", Callbacks{})
	c.Execute("2+2", Callbacks{})
	require.Equal(t, 2, c.queue.len())
	oldCtx, oldDisp := c.ctxTable, c.dispTable

	done := make(chan struct{})
	c.Restart(context.Background(), syscall.SIGTERM, func(int, string) { close(done) })
	<-done

	assert.Equal(t, 2, c.queue.len())
	assert.NotSame(t, oldCtx, c.ctxTable)
	assert.NotSame(t, oldDisp, c.dispTable)
}

func TestWorkerInfoCapturedFromHandshake(t *testing.T) {
	c := New(config.WorkerConfig{Command: "evalworker"}, 4, nil, &core.NoOpLogger{})
	assert.Nil(t, c.WorkerInfo())

	c.route(ipc.InboundMessage{Status: "online", Info: &ipc.WorkerInfo{
		ProtocolVersion: "1.0",
		Evaluator:       "js",
		Capabilities:    []string{"run", "inspect"},
	}})

	info := c.WorkerInfo()
	require.NotNil(t, info)
	assert.Equal(t, "1.0", info.ProtocolVersion)
	assert.Equal(t, "js", info.Evaluator)
	assert.Equal(t, StateOnline, c.State())
}

func TestWorkerInfoClearedOnDeathAndRestart(t *testing.T) {
	c := New(config.WorkerConfig{Command: "evalsession-worker-does-not-exist-xyz"}, 0, nil, &core.NoOpLogger{})
	c.info.Store(&ipc.WorkerInfo{ProtocolVersion: "1.0"})

	c.handleWorkerDeath()
	assert.Nil(t, c.WorkerInfo())

	c.info.Store(&ipc.WorkerInfo{ProtocolVersion: "1.0"})
	c.state.Store(int32(StateStarting))
	done := make(chan struct{})
	c.Restart(context.Background(), syscall.SIGTERM, func(int, string) { close(done) })
	<-done
	assert.Nil(t, c.WorkerInfo())
}

func TestInterruptWithNoProcessIsNoop(t *testing.T) {
	c := newOnlineController(t, nil)
	err := c.Interrupt(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, StateOnline, c.State())
}

// TestUnexpectedDeathTriggersAutoRestart spawns a real process ("false")
// that exits on its own the instant it starts, so readLoop observes an
// unplanned death with no preceding Kill/Restart call. The auto-restart
// loop should notice and respawn it, visible as the controller holding a
// new process instead of staying dead forever.
func TestUnexpectedDeathTriggersAutoRestart(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false binary not available")
	}

	c := New(config.WorkerConfig{Command: "false"}, 0, nil, &core.NoOpLogger{})
	c.SetRestartBackoff(2*time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Start(ctx))
	c.mu.Lock()
	first := c.process
	c.mu.Unlock()

	restarted := false
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		current := c.process
		c.mu.Unlock()
		if current != first {
			restarted = true
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, restarted, "a worker that crashes unexpectedly should be auto-restarted")
}

// TestKillSuppressesAutoRestart spawns a real long-lived process ("cat",
// blocked reading its own stdin) and kills it, verifying readLoop's
// subsequent handleWorkerDeath call (observing the same exit Kill caused)
// does not spawn a competing auto-restart: the worker must stay dead.
func TestKillSuppressesAutoRestart(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat binary not available")
	}

	c := New(config.WorkerConfig{Command: "cat"}, 0, nil, &core.NoOpLogger{})
	c.SetRestartBackoff(2*time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Start(ctx))

	done := make(chan struct{})
	c.Kill(syscall.SIGTERM, func(int, string) { close(done) })
	<-done

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		require.Equal(t, StateDead, c.State(), "a caller-initiated Kill must not be followed by an auto-restart")
		time.Sleep(5 * time.Millisecond)
	}
}
