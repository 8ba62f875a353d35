package worker

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/itsneelabh/evalsession/ipc"
)

// fakeEvaluator looks up canned results/errors by exact source string,
// and lets tests observe stdout writes made through the active context
// during evaluation.
type fakeEvaluator struct {
	results map[string]interface{}
	errors  map[string]error
	stdout  func()
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, code string) (interface{}, error) {
	if f.stdout != nil {
		f.stdout()
	}
	if err, ok := f.errors[code]; ok {
		return nil, err
	}
	if v, ok := f.results[code]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("fakeEvaluator: no canned result for %q", code)
}

// runOneRequest drives a Worker over in-memory pipes for exactly one
// request/response cycle (plus the initial status=online announcement)
// and returns the decoded messages.
func runOneRequest(t *testing.T, ev Evaluator, frame ipc.OutboundFrame) []ipc.InboundMessage {
	t.Helper()

	var in bytes.Buffer
	enc := ipc.NewEncoder(&in)
	if err := enc.Encode(frame); err != nil {
		t.Fatalf("encode request: %v", err)
	}

	var out bytes.Buffer
	w := New(&in, &out, ev, nil)

	// Run until the decoder hits EOF (no more frames queued).
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	dec := ipc.NewDecoder(&out)
	var msgs []ipc.InboundMessage
	for {
		var m ipc.InboundMessage
		if err := dec.Decode(&m); err != nil {
			break
		}
		msgs = append(msgs, m)
	}
	return msgs
}

func TestWorkerBasicExpression(t *testing.T) {
	ev := &fakeEvaluator{results: map[string]interface{}{
		"['Hello','World!'].join(', ');": "Hello, World!",
	}}
	msgs := runOneRequest(t, ev, ipc.NewRequestFrame(ipc.ActionRun, "['Hello','World!'].join(', ');", 1))

	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2 (status + result): %+v", len(msgs), msgs)
	}
	if !msgs[0].IsOnline() {
		t.Fatalf("first message should be status=online, got %+v", msgs[0])
	}
	result := msgs[1]
	if result.Mime == nil || result.Mime["text/plain"] != "'Hello, World!'" {
		t.Errorf("result.Mime = %v", result.Mime)
	}
	if !result.End {
		t.Error("result should be terminal")
	}
}

func TestWorkerThrow(t *testing.T) {
	ev := &fakeEvaluator{errors: map[string]error{
		"throw new Error('Hello, World!');": fmt.Errorf("Hello, World!"),
	}}
	msgs := runOneRequest(t, ev, ipc.NewRequestFrame(ipc.ActionRun, "throw new Error('Hello, World!');", 1))

	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	result := msgs[1]
	if result.Error == nil || result.Error.Evalue != "Hello, World!" {
		t.Errorf("result.Error = %+v", result.Error)
	}
	if !result.End {
		t.Error("error result should be terminal")
	}
}

func TestWorkerStdoutCapture(t *testing.T) {
	var mu sync.Mutex
	var stdoutLines []string

	ev := &fakeEvaluator{
		results: map[string]interface{}{"console.log('Hello, World!');": Undefined{}},
		stdout: func() {
			mu.Lock()
			defer mu.Unlock()
			if wc := Current(); wc != nil {
				wc.emitMessage(ipc.InboundMessage{Stdout: strPtr("Hello, World!\n")})
				stdoutLines = append(stdoutLines, "Hello, World!\n")
			}
		},
	}
	msgs := runOneRequest(t, ev, ipc.NewRequestFrame(ipc.ActionRun, "console.log('Hello, World!');", 1))

	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3 (status + stdout + result): %+v", len(msgs), msgs)
	}
	stdoutMsg := msgs[1]
	if stdoutMsg.Stdout == nil || *stdoutMsg.Stdout != "Hello, World!\n" {
		t.Errorf("stdout message = %+v", stdoutMsg)
	}
	result := msgs[2]
	if result.Mime == nil || result.Mime["text/plain"] != "undefined" {
		t.Errorf("result.Mime = %v", result.Mime)
	}
	if !result.End {
		t.Error("result should be terminal")
	}
}

func strPtr(s string) *string { return &s }

// capableEvaluator wraps fakeEvaluator to also implement CapabilityProvider,
// so Run's handshake announcement can be exercised.
type capableEvaluator struct {
	*fakeEvaluator
	name string
	caps []string
}

func (c *capableEvaluator) Name() string           { return c.name }
func (c *capableEvaluator) Capabilities() []string { return c.caps }

func TestWorkerHandshakeAnnouncesCapabilities(t *testing.T) {
	ev := &capableEvaluator{
		fakeEvaluator: &fakeEvaluator{results: map[string]interface{}{"1+1": 2.0}},
		name:          "js",
		caps:          []string{"run", "inspect"},
	}
	msgs := runOneRequest(t, ev, ipc.NewRequestFrame(ipc.ActionRun, "1+1", 1))

	if len(msgs) == 0 {
		t.Fatal("expected at least the status=online message")
	}
	online := msgs[0]
	if !online.IsOnline() {
		t.Fatalf("first message should be status=online, got %+v", online)
	}
	if online.Info == nil {
		t.Fatal("online message should carry a handshake Info payload")
	}
	if online.Info.Evaluator != "js" {
		t.Errorf("Info.Evaluator = %q, want %q", online.Info.Evaluator, "js")
	}
	if online.Info.ProtocolVersion != ipc.ProtocolVersion {
		t.Errorf("Info.ProtocolVersion = %q, want %q", online.Info.ProtocolVersion, ipc.ProtocolVersion)
	}
	if len(online.Info.Capabilities) != 2 {
		t.Errorf("Info.Capabilities = %v, want 2 entries", online.Info.Capabilities)
	}
}
