package worker

import (
	"github.com/google/uuid"

	"github.com/itsneelabh/evalsession/ipc"
)

// Display is a handle for incremental output: creating one with an id
// opens a display slot the controller can later route updates through
// from a different execute call, keyed by that id in the display table.
type Display struct {
	ctx *Context
	id  string
}

// NewDisplay creates a Display bound to ctx. If id is empty, a random
// id is generated. Creation immediately emits a display.open message.
func NewDisplay(ctx *Context, id string) *Display {
	if id == "" {
		id = uuid.NewString()
	}
	d := &Display{ctx: ctx, id: id}
	ctx.emitMessage(ipc.InboundMessage{Display: &ipc.DisplayMessage{Open: id}})
	return d
}

// ID returns the display's id.
func (d *Display) ID() string { return d.id }

// Mime emits bundle as a display update.
func (d *Display) Mime(bundle ipc.MimeBundle) {
	d.ctx.emitMessage(ipc.InboundMessage{Display: &ipc.DisplayMessage{DisplayID: d.id, Mime: bundle}})
}

// Text, HTML, SVG, PNG, and JPEG emit a single-content-type display
// update.
func (d *Display) Text(payload string) { d.Mime(ipc.MimeBundle{"text/plain": payload}) }
func (d *Display) HTML(payload string) { d.Mime(ipc.MimeBundle{"text/html": payload}) }
func (d *Display) SVG(payload string)  { d.Mime(ipc.MimeBundle{"image/svg+xml": payload}) }
func (d *Display) PNG(payload string)  { d.Mime(ipc.MimeBundle{"image/png": payload}) }
func (d *Display) JPEG(payload string) { d.Mime(ipc.MimeBundle{"image/jpeg": payload}) }
func (d *Display) JSON(payload string) { d.Mime(ipc.MimeBundle{"application/json": payload}) }

// Close emits a display.close message, removing the entry from the
// controller's display table.
func (d *Display) Close() {
	d.ctx.emitMessage(ipc.InboundMessage{Display: &ipc.DisplayMessage{Close: d.id}})
}
