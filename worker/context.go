package worker

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/itsneelabh/evalsession/ipc"
)

// Context is the worker-side runtime frame for a single in-flight
// request. Exactly one Context is acquired at a time; evaluator code
// observes it through Current() rather than
// through any process-wide global, so that "global" mutation during an
// evaluation is actually scoped to the acquiring frame.
type Context struct {
	// ID is the monotonic context id assigned by the controller.
	ID int64

	mu       sync.Mutex
	async    bool
	done     bool
	lastReq  int64
	pending  map[string]chan inputReply

	emit func(ipc.InboundMessage)

	Helpers *Helpers
}

type inputReply struct {
	payload interface{}
	err     error
}

var current atomic.Pointer[Context]

// Current returns the in-flight Context, or nil if no evaluation is in
// progress. Evaluator implementations that need to send output through
// Helpers, install displays, or prompt for input call this to reach the
// active frame.
func Current() *Context {
	return current.Load()
}

// newContext builds a Context bound to emit, the function the capture
// frame uses to send messages back to the controller over the IPC
// channel.
func newContext(id int64, emit func(ipc.InboundMessage)) *Context {
	c := &Context{
		ID:      id,
		pending: make(map[string]chan inputReply),
		emit:    emit,
	}
	c.Helpers = newHelpers(c)
	return c
}

// Async sets the context's async flag and returns the new value. Called
// with no arguments it sets the flag to true; called with one argument it
// sets it to that value. Use IsAsync to read the flag without changing it.
func (c *Context) Async(set ...bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(set) > 0 {
		c.async = set[0]
	} else {
		c.async = true
	}
	return c.async
}

// IsAsync reports the async flag without mutating it.
func (c *Context) IsAsync() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.async
}

// markDone flips the done flag and reports whether this call was the
// one that flipped it (false means the request was already finalized,
// guarding against accidental double-finalization).
func (c *Context) markDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return false
	}
	c.done = true
	return true
}

// IsDone reports whether a terminal message has already been sent for
// this context.
func (c *Context) IsDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// emitMessage sends msg over the IPC channel, stamping it with this
// context's id.
func (c *Context) emitMessage(msg ipc.InboundMessage) {
	id := c.ID
	msg.ID = &id
	c.emit(msg)
}

// registerInput allocates a request id for a pending `input` prompt and
// returns it along with the channel its reply will arrive on.
func (c *Context) registerInput() (string, chan inputReply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastReq++
	id := requestIDFromCounter(c.ID, c.lastReq)
	ch := make(chan inputReply, 1)
	c.pending[id] = ch
	return id, ch
}

// resolveInput delivers a reply frame to the pending input continuation
// registered under requestID. It reports false if no such continuation
// is pending (an unexpected reply, per core.ErrReplyUnexpected).
func (c *Context) resolveInput(requestID string, payload interface{}, err error) bool {
	c.mu.Lock()
	ch, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	ch <- inputReply{payload: payload, err: err}
	return true
}

// Await suspends the current goroutine until d settles, marking the
// context async for the duration (every helper that accepts a Deferred
// does this uniformly per the deferred-value handling contract).
func (c *Context) Await(ctx context.Context, d *Deferred) (interface{}, error) {
	c.Async(true)
	return d.Await(ctx)
}

func requestIDFromCounter(contextID, counter int64) string {
	return strconv.FormatInt(contextID, 10) + "-" + strconv.FormatInt(counter, 10)
}
