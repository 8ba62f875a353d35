package worker

import (
	"context"
	"fmt"

	"github.com/itsneelabh/evalsession/ipc"
)

// InputOptions configures a prompt issued to the client via Input.
type InputOptions struct {
	Prompt   string
	Password bool
}

// Helpers is the `$$` namespace exposed to evaluated code: a bound,
// per-context set of methods for finalizing a request, streaming MIME
// output, prompting for input, and managing display handles. Every
// method that accepts user data also accepts a *Deferred in its place;
// doing so sets the async flag, suspends until it settles, then
// re-enters on the resolved value (or emits a terminal error on
// rejection).
type Helpers struct {
	ctx    context.Context
	wc     *Context
	Mimer  Mimer
}

func newHelpers(wc *Context) *Helpers {
	return &Helpers{ctx: context.Background(), wc: wc}
}

// Async reports or sets the async flag (default true when called with
// no arguments); it returns the new/current flag.
func (h *Helpers) Async(set ...bool) bool {
	return h.wc.Async(set...)
}

// Done finalizes the request. If result is given it is encoded via the
// MIME encoder and attached to the terminal message; always sets end.
func (h *Helpers) Done(result ...interface{}) {
	if len(result) == 0 {
		h.finalize(nil, false)
		return
	}
	h.SendResult(result[0], false)
}

// SendResult encodes value via the MIME encoder and sends it as the
// request's result. keepAlive, if true, suppresses the terminal end
// flag so the request stays open for further messages.
func (h *Helpers) SendResult(value interface{}, keepAlive ...bool) {
	if d, ok := IsDeferred(value); ok {
		h.awaitThenSend(d, keepAlive, h.SendResult)
		return
	}
	bundle, err := EncodeMime(value, h.Mimer)
	if err != nil {
		h.SendError(err, keepAlive...)
		return
	}
	h.emitResult(bundle, !alive(keepAlive))
}

// SendError formats err as a terminal error message, unless keepAlive
// suppresses the terminal flag.
func (h *Helpers) SendError(err interface{}, keepAlive ...bool) {
	payload := toErrorPayload(err)
	if !h.wc.markDone() && !alive(keepAlive) {
		return
	}
	h.wc.emitMessage(ipc.InboundMessage{Error: payload, End: !alive(keepAlive)})
}

// Mime sends a MIME bundle directly, bypassing the default encoder.
// bundle may be an ipc.MimeBundle or a *Deferred resolving to one.
func (h *Helpers) Mime(bundle interface{}, keepAlive ...bool) {
	if d, ok := IsDeferred(bundle); ok {
		h.awaitThenSendBundle(d, keepAlive)
		return
	}
	b, ok := bundle.(ipc.MimeBundle)
	if !ok {
		h.SendError(fmt.Errorf("mime: value was not a MimeBundle"), keepAlive...)
		return
	}
	h.emitResult(b, !alive(keepAlive))
}

func (h *Helpers) Text(payload interface{}, keepAlive ...bool) {
	h.sendSingle("text/plain", payload, keepAlive)
}
func (h *Helpers) HTML(payload interface{}, keepAlive ...bool) {
	h.sendSingle("text/html", payload, keepAlive)
}
func (h *Helpers) SVG(payload interface{}, keepAlive ...bool) {
	h.sendSingle("image/svg+xml", payload, keepAlive)
}
func (h *Helpers) PNG(payload interface{}, keepAlive ...bool) {
	h.sendSingle("image/png", payload, keepAlive)
}
func (h *Helpers) JPEG(payload interface{}, keepAlive ...bool) {
	h.sendSingle("image/jpeg", payload, keepAlive)
}
func (h *Helpers) JSON(payload interface{}, keepAlive ...bool) {
	h.sendSingle("application/json", payload, keepAlive)
}

func (h *Helpers) sendSingle(contentType string, payload interface{}, keepAlive []bool) {
	if d, ok := IsDeferred(payload); ok {
		h.wc.Async(true)
		go func() {
			value, err := d.Await(h.ctx)
			if err != nil {
				h.SendError(err, keepAlive...)
				return
			}
			h.sendSingle(contentType, value, keepAlive)
		}()
		return
	}
	str := fmt.Sprintf("%v", payload)
	h.emitResult(ipc.MimeBundle{contentType: str}, !alive(keepAlive))
}

// Input issues a prompt request to the client, auto-setting async, and
// returns a Deferred that settles with the reply payload (or an error
// if the client replied with one). If callback is provided it is also
// invoked on settlement, matching the callback-or-deferred dual style
// the user-facing helper namespace supports.
func (h *Helpers) Input(opts InputOptions, callback func(value interface{}, err error)) *Deferred {
	h.wc.Async(true)
	requestID, ch := h.wc.registerInput()
	h.wc.emitMessage(ipc.InboundMessage{Request: &ipc.RequestMessage{
		Input:     &ipc.InputRequest{Prompt: opts.Prompt, Password: opts.Password},
		RequestID: requestID,
	}})

	d := NewDeferred()
	go func() {
		reply := <-ch
		if reply.err != nil {
			d.Reject(reply.err)
		} else {
			d.Resolve(reply.payload)
		}
		if callback != nil {
			callback(reply.payload, reply.err)
		}
	}()
	return d
}

// Display creates a Display handle, optionally bound to an existing
// display id so a later execute can continue updating it.
func (h *Helpers) Display(id ...string) *Display {
	var idStr string
	if len(id) > 0 {
		idStr = id[0]
	}
	return NewDisplay(h.wc, idStr)
}

// Clear sends a clear-output request; it expects no reply.
func (h *Helpers) Clear(wait ...bool) {
	w := false
	if len(wait) > 0 {
		w = wait[0]
	}
	h.wc.emitMessage(ipc.InboundMessage{Request: &ipc.RequestMessage{Clear: &ipc.ClearRequest{Wait: w}}})
}

func (h *Helpers) finalize(bundle ipc.MimeBundle, keepAlive bool) {
	h.emitResult(bundle, !keepAlive)
}

func (h *Helpers) emitResult(bundle ipc.MimeBundle, end bool) {
	if end {
		if !h.wc.markDone() {
			return
		}
	}
	h.wc.emitMessage(ipc.InboundMessage{Mime: bundle, End: end})
}

func (h *Helpers) awaitThenSend(d *Deferred, keepAlive []bool, send func(interface{}, ...bool)) {
	h.wc.Async(true)
	go func() {
		value, err := d.Await(h.ctx)
		if err != nil {
			h.SendError(err, keepAlive...)
			return
		}
		send(value, keepAlive...)
	}()
}

func (h *Helpers) awaitThenSendBundle(d *Deferred, keepAlive []bool) {
	h.wc.Async(true)
	go func() {
		value, err := d.Await(h.ctx)
		if err != nil {
			h.SendError(err, keepAlive...)
			return
		}
		bundle, ok := value.(ipc.MimeBundle)
		if !ok {
			h.SendError(fmt.Errorf("deferred mime value was not a MimeBundle"), keepAlive...)
			return
		}
		h.emitResult(bundle, !alive(keepAlive))
	}()
}

func alive(keepAlive []bool) bool {
	return len(keepAlive) > 0 && keepAlive[0]
}

func toErrorPayload(err interface{}) *ipc.ErrorPayload {
	switch e := err.(type) {
	case *ipc.ErrorPayload:
		return e
	case error:
		return &ipc.ErrorPayload{Ename: "Error", Evalue: e.Error()}
	default:
		return &ipc.ErrorPayload{Ename: "Error", Evalue: fmt.Sprintf("%v", e)}
	}
}
