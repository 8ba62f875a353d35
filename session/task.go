// Package session implements the Session Controller: the supervisor that
// owns a spawned evaluator worker process, multiplexes execute/complete/
// inspect requests onto it one at a time via a strictly-ordered queue,
// and routes the worker's streamed messages back to per-request callbacks.
package session

import (
	"github.com/itsneelabh/evalsession/ipc"
)

// Action identifies what a Task asks the worker to do. Its values mirror
// the three ipc.Action values a Task can carry.
type Action string

const (
	ActionRun                 Action = Action(ipc.ActionRun)
	ActionInspect             Action = Action(ipc.ActionInspect)
	ActionGetAllPropertyNames Action = Action(ipc.ActionGetAllPropertyNames)
)

// Callbacks is the set of per-request hooks a caller of execute/complete/
// inspect may supply. Every field is optional; a nil callback is simply
// not invoked.
type Callbacks struct {
	OnSuccess func(result ipc.InboundMessage)
	OnError   func(err *ipc.ErrorPayload)
	BeforeRun func()
	AfterRun  func()
	OnStdout  func(chunk string)
	OnStderr  func(chunk string)
	OnDisplay func(bundle ipc.MimeBundle)
	// OnRequest is invoked for a worker sub-request. reply is nil for a
	// clear request, which expects no answer.
	OnRequest func(req *ipc.RequestMessage, reply func(payload interface{}, err error))
}

func (c Callbacks) fire(name string) {
	switch name {
	case "beforeRun":
		if c.BeforeRun != nil {
			c.BeforeRun()
		}
	case "afterRun":
		if c.AfterRun != nil {
			c.AfterRun()
		}
	}
}

// Task is one unit of work: an action, its source/matched text, and the
// callback set the controller will route messages through. It is created
// by the controller on each public call, mutated only by the controller,
// and retired once its terminal message has been delivered and AfterRun
// has run.
type Task struct {
	Action    Action
	Code      string
	Callbacks Callbacks

	// ContextID is assigned when the task is dispatched to the worker; it
	// is zero while the task sits in the queue.
	ContextID int64

	// terminal, when set, intercepts the task's terminal message instead
	// of Callbacks.OnSuccess/OnError being invoked directly. It is
	// responsible for calling into Callbacks itself once it has finished
	// post-processing (completion filtering, documentation lookup). Used
	// for the internal getAllPropertyNames/inspect tasks that back the
	// public complete/inspect operations (spec §4.1).
	terminal func(c *Controller, msg ipc.InboundMessage)
}
