package ipc

import (
	"encoding/json"
	"testing"
)

func TestOutboundFrameRequestRoundTrip(t *testing.T) {
	f := NewRequestFrame(ActionRun, "1+1", 3)
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `["run","1+1",3]` {
		t.Fatalf("got %s", data)
	}

	var got OutboundFrame
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Action != ActionRun || got.Code != "1+1" || got.ContextID != 3 || got.IsReply {
		t.Errorf("got %+v", got)
	}
}

func TestOutboundFrameReplyRoundTrip(t *testing.T) {
	f := NewReplyFrame(map[string]interface{}{"input": "opensesame"}, 7, "req-1")
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got OutboundFrame
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.IsReply || got.ContextID != 7 || got.RequestID != "req-1" {
		t.Errorf("got %+v", got)
	}
	payload, ok := got.ReplyPayload.(map[string]interface{})
	if !ok || payload["input"] != "opensesame" {
		t.Errorf("ReplyPayload = %+v", got.ReplyPayload)
	}
}

func TestInboundMessageDiscrimination(t *testing.T) {
	raw := `{"id":5,"stdout":"hello\n"}`
	var msg InboundMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg.ID == nil || *msg.ID != 5 {
		t.Fatalf("ID = %v", msg.ID)
	}
	if msg.Stdout == nil || *msg.Stdout != "hello\n" {
		t.Fatalf("Stdout = %v", msg.Stdout)
	}
	if msg.HasTerminalResult() {
		t.Error("stdout message should not be a terminal result")
	}
}

func TestInboundMessageTerminalError(t *testing.T) {
	raw := `{"id":5,"error":{"ename":"Error","evalue":"boom","traceback":["at x"]},"end":true}`
	var msg InboundMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !msg.HasTerminalResult() || !msg.End {
		t.Fatalf("got %+v", msg)
	}
	if msg.Error.Ename != "Error" || msg.Error.Evalue != "boom" {
		t.Errorf("Error = %+v", msg.Error)
	}
}

func TestInboundMessageOnlineStatus(t *testing.T) {
	var msg InboundMessage
	if err := json.Unmarshal([]byte(`{"status":"online"}`), &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !msg.IsOnline() {
		t.Error("expected IsOnline() == true")
	}
}
