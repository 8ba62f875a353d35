package worker

import "context"

// Evaluator is the injected, language-unspecified evaluation primitive:
// given a source string, it returns a value or an error. The worker
// never inspects the source language; it only reacts to the shape of
// what comes back (a plain value, a *Deferred, or an error).
type Evaluator interface {
	Evaluate(ctx context.Context, code string) (interface{}, error)
}

// CapabilityProvider is an optional interface an Evaluator may implement
// to describe itself for the worker's startup handshake. Evaluators that
// don't implement it are announced with no capabilities.
type CapabilityProvider interface {
	Name() string
	Capabilities() []string
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, code string) (interface{}, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, code string) (interface{}, error) {
	return f(ctx, code)
}

// Deferred models an asynchronous evaluation result or helper input: the
// worker suspends the in-flight request until it settles, and the
// rejection path is reported as a terminal error exactly like a thrown
// evaluation error.
type Deferred struct {
	done  chan struct{}
	value interface{}
	err   error
}

// NewDeferred returns a Deferred that has not yet settled.
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolve settles the Deferred successfully. Calling it more than once
// is a no-op after the first call.
func (d *Deferred) Resolve(value interface{}) {
	select {
	case <-d.done:
		return
	default:
	}
	d.value = value
	close(d.done)
}

// Reject settles the Deferred with an error.
func (d *Deferred) Reject(err error) {
	select {
	case <-d.done:
		return
	default:
	}
	d.err = err
	close(d.done)
}

// Await blocks until the Deferred settles or ctx is canceled.
func (d *Deferred) Await(ctx context.Context) (interface{}, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsDeferred reports whether v is a *Deferred, the uniform test every
// helper applies to its input before deciding whether to suspend.
func IsDeferred(v interface{}) (*Deferred, bool) {
	d, ok := v.(*Deferred)
	return d, ok
}
