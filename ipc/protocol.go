// Package ipc defines the wire protocol exchanged between the session
// controller and the evaluator worker process, and the line-delimited
// JSON framing used to carry it over the worker's stdin/stdout pipes.
package ipc

import "encoding/json"

// ProtocolVersion identifies the wire protocol this package implements; a
// worker attaches it to its startup handshake so the controller can detect
// a skew between the two sides.
const ProtocolVersion = "1.0"

// Action identifies what an outbound request frame asks the worker to do.
type Action string

const (
	ActionRun                  Action = "run"
	ActionInspect              Action = "inspect"
	ActionGetAllPropertyNames  Action = "getAllPropertyNames"
)

// OutboundFrame is a controller-to-worker frame. It serializes as the
// positional tuple `[action, code, contextId]` for a request, or
// `[reply, replyPayload, contextId, requestId]` when it carries the
// answer to an `input` sub-request — the two shapes share a Go type so
// callers can pass either down the same write path.
type OutboundFrame struct {
	Action       Action
	Code         string
	ContextID    int64
	IsReply      bool
	ReplyPayload interface{}
	RequestID    string
}

// NewRequestFrame builds the `[action, code, contextId]` frame for a run,
// inspect, or getAllPropertyNames request.
func NewRequestFrame(action Action, code string, contextID int64) OutboundFrame {
	return OutboundFrame{Action: action, Code: code, ContextID: contextID}
}

// NewReplyFrame builds the `[reply, replyPayload, contextId, requestId]`
// frame that answers a pending `input` sub-request.
func NewReplyFrame(payload interface{}, contextID int64, requestID string) OutboundFrame {
	return OutboundFrame{IsReply: true, ReplyPayload: payload, ContextID: contextID, RequestID: requestID}
}

// MarshalJSON renders the frame as the positional tuple the worker
// expects, rather than as a JSON object.
func (f OutboundFrame) MarshalJSON() ([]byte, error) {
	if f.IsReply {
		return json.Marshal([4]interface{}{"reply", f.ReplyPayload, f.ContextID, f.RequestID})
	}
	return json.Marshal([3]interface{}{f.Action, f.Code, f.ContextID})
}

// UnmarshalJSON accepts either tuple shape, keyed off the first element.
func (f *OutboundFrame) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var tag string
	if err := json.Unmarshal(raw[0], &tag); err != nil {
		return err
	}
	if tag == "reply" {
		var contextID int64
		var requestID string
		if err := json.Unmarshal(raw[1], &f.ReplyPayload); err != nil {
			return err
		}
		if err := json.Unmarshal(raw[2], &contextID); err != nil {
			return err
		}
		if err := json.Unmarshal(raw[3], &requestID); err != nil {
			return err
		}
		f.IsReply = true
		f.ContextID = contextID
		f.RequestID = requestID
		return nil
	}

	var code string
	var contextID int64
	if err := json.Unmarshal(raw[1], &code); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[2], &contextID); err != nil {
		return err
	}
	f.Action = Action(tag)
	f.Code = code
	f.ContextID = contextID
	return nil
}

// MimeBundle maps a content type to its encoded payload. Recognized
// content types are text/plain, text/html, image/svg+xml, image/png,
// image/jpeg, and application/json; the map itself carries no
// enforcement of that set.
type MimeBundle map[string]string

// ErrorPayload is the shape of every terminal error: evaluation errors,
// protocol errors, and transform errors all carry this record.
type ErrorPayload struct {
	Ename     string   `json:"ename"`
	Evalue    string   `json:"evalue"`
	Traceback []string `json:"traceback"`
}

// DisplayMessage carries one of the three display lifecycle events. Only
// one of Open, Mime (with Close empty), or Close is populated on any
// given message.
type DisplayMessage struct {
	Open      string     `json:"open,omitempty"`
	DisplayID string     `json:"display_id,omitempty"`
	Mime      MimeBundle `json:"mime,omitempty"`
	Close     string     `json:"close,omitempty"`
}

// InputRequest is the payload of a `request.input` sub-request.
type InputRequest struct {
	Prompt   string `json:"prompt"`
	Password bool   `json:"password"`
}

// ClearRequest is the payload of a `request.clear` sub-request; it
// expects no reply.
type ClearRequest struct {
	Wait bool `json:"wait"`
}

// RequestMessage carries a worker-issued sub-request: either a prompt
// for input (expects a reply frame) or a clear-output instruction
// (expects none).
type RequestMessage struct {
	Input     *InputRequest `json:"input,omitempty"`
	Clear     *ClearRequest `json:"clear,omitempty"`
	RequestID string        `json:"id,omitempty"`
}

// CompletionPayload is the controller-internal synthesis delivered to a
// complete() caller; the worker never sends this shape.
type CompletionPayload struct {
	List        []string `json:"list"`
	Code        string   `json:"code"`
	CursorPos   int      `json:"cursorPos"`
	MatchedText string   `json:"matchedText"`
	CursorStart int      `json:"cursorStart"`
	CursorEnd   int      `json:"cursorEnd"`
}

// InspectionPayload is the structured inspection result described in
// the inspection & property enumeration semantics, plus the original
// code/cursor/matchedText context always attached by the controller and
// the documentation record the controller resolves alongside it.
type InspectionPayload struct {
	String          string   `json:"string"`
	Type            string   `json:"type"`
	ConstructorList []string `json:"constructorList,omitempty"`
	Length          *int     `json:"length,omitempty"`
	Code            string   `json:"code,omitempty"`
	CursorPos       int      `json:"cursorPos,omitempty"`
	MatchedText     string   `json:"matchedText,omitempty"`
	Doc             *DocInfo `json:"doc,omitempty"`
}

// DocInfo is the documentation record the controller attaches to an
// inspection result when the Documentation Table (§4.6) resolves the
// inspected name.
type DocInfo struct {
	Description string `json:"description"`
	URL         string `json:"url"`
}

// WorkerInfo is the one-time handshake a worker attaches to its
// status=online message: the protocol version it speaks and the names of
// the evaluator capabilities it supports, so the controller can surface
// them to callers without guessing from behavior.
type WorkerInfo struct {
	ProtocolVersion string   `json:"protocolVersion"`
	Evaluator       string   `json:"evaluator"`
	Capabilities    []string `json:"capabilities,omitempty"`
}

// InboundMessage is a worker-to-controller record. It is a closed but
// loosely-typed vocabulary: exactly one (or a small compatible set) of
// its fields is populated per message, discriminated by which field is
// non-nil/non-zero. ID is a pointer because its absence (a bare `log` or
// `status` message) is meaningful: such messages carry no context.
type InboundMessage struct {
	Log        string             `json:"log,omitempty"`
	Status     string             `json:"status,omitempty"`
	Info       *WorkerInfo        `json:"info,omitempty"`
	ID         *int64             `json:"id,omitempty"`
	Stdout     *string            `json:"stdout,omitempty"`
	Stderr     *string            `json:"stderr,omitempty"`
	Display    *DisplayMessage    `json:"display,omitempty"`
	Request    *RequestMessage    `json:"request,omitempty"`
	Error      *ErrorPayload      `json:"error,omitempty"`
	Mime       MimeBundle         `json:"mime,omitempty"`
	Completion *CompletionPayload `json:"completion,omitempty"`
	Inspection *InspectionPayload `json:"inspection,omitempty"`
	Names      []string           `json:"names,omitempty"`
	End        bool               `json:"end,omitempty"`
}

// IsLog reports whether this message is a free-form log line.
func (m *InboundMessage) IsLog() bool { return m.Log != "" }

// IsOnline reports whether this message announces worker readiness.
func (m *InboundMessage) IsOnline() bool { return m.Status == "online" }

// HasTerminalResult reports whether this message carries a run/inspect/
// getAllPropertyNames outcome (success or error), as opposed to an
// intermediate stdout/stderr/display/request message.
func (m *InboundMessage) HasTerminalResult() bool {
	return m.Error != nil || m.Mime != nil || m.Completion != nil || m.Inspection != nil || m.Names != nil
}
