// Package promise implements the three-state Promise primitive used by
// every asynchronous built-in (filesystem, fetch, nap/setTimeout-based
// helpers): pending to fulfilled/rejected transitions, with microtask
// delivery of then/catch listeners.
package promise

import (
	"sync"

	"github.com/google/uuid"
)

// State is one of the three Promise states. Transitions are strictly from
// Pending to exactly one terminal state.
type State int

const (
	Pending State = iota
	Fulfilled
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Enqueuer is the minimal scheduler surface a Promise needs to deliver
// listeners as microtasks.
type Enqueuer interface {
	EnqueueMicrotask(task func())
}

// LoopSubmitter marshals a closure onto the loop thread. A Promise whose
// settlement may happen from a worker thread (e.g. a filesystem promise
// resolved from a background read) must route listener delivery through
// this, composed with a microtask enqueue — never deliver inline from the
// resolving thread.
type LoopSubmitter interface {
	Submit(fn func())
}

// Promise is the Go-level resolution primitive underlying every
// asynchronous built-in. It carries no notion of the JS value
// representation — callers pass whatever `any` they like as the
// fulfillment value or rejection reason.
type Promise struct {
	mu    sync.Mutex
	state State
	value any
	id    string

	thenCbs  []func(any)
	catchCbs []func(any)

	sched Enqueuer
	loop  LoopSubmitter // nil: listeners are delivered via a direct microtask enqueue, no loop marshal
}

// New creates a Pending Promise. loop may be nil, in which case listener
// delivery skips the loop-thread marshal step and goes straight to a
// microtask enqueue (matching bridge.RunOnLoop's inline fallback when no
// reactor loop is registered).
func New(sched Enqueuer, loop LoopSubmitter) *Promise {
	return &Promise{sched: sched, loop: loop, id: uuid.NewString()}
}

// ID is a stable identifier for this Promise instance, used only for
// diagnostics journal correlation — never for equality or ordering
// semantics.
func (p *Promise) ID() string { return p.id }

// State returns the current state.
func (p *Promise) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Fulfill transitions the promise to Fulfilled with value, if it is still
// Pending. A second call (to Fulfill or Reject) is a silent no-op.
func (p *Promise) Fulfill(value any) {
	p.settle(Fulfilled, value, func() []func(any) {
		cbs := p.thenCbs
		p.thenCbs, p.catchCbs = nil, nil
		return cbs
	})
}

// Reject transitions the promise to Rejected with reason, if it is still
// Pending. A second call is a silent no-op.
func (p *Promise) Reject(reason any) {
	p.settle(Rejected, reason, func() []func(any) {
		cbs := p.catchCbs
		p.thenCbs, p.catchCbs = nil, nil
		return cbs
	})
}

func (p *Promise) settle(state State, value any, takeListeners func() []func(any)) {
	p.mu.Lock()
	if p.state != Pending {
		p.mu.Unlock()
		return
	}
	p.state = state
	p.value = value
	cbs := takeListeners()
	p.mu.Unlock()

	for _, cb := range cbs {
		p.deliver(cb, value)
	}
}

// Then registers a fulfillment listener. If the promise is already
// fulfilled, cb is delivered once as a microtask with the stored value. If
// already rejected, cb is never called. If still pending, cb is appended
// to the fulfillment list.
func (p *Promise) Then(cb func(any)) {
	p.mu.Lock()
	switch p.state {
	case Pending:
		p.thenCbs = append(p.thenCbs, cb)
		p.mu.Unlock()
	case Fulfilled:
		v := p.value
		p.mu.Unlock()
		p.deliver(cb, v)
	case Rejected:
		p.mu.Unlock()
	}
}

// Catch registers a rejection listener, symmetric to Then.
func (p *Promise) Catch(cb func(any)) {
	p.mu.Lock()
	switch p.state {
	case Pending:
		p.catchCbs = append(p.catchCbs, cb)
		p.mu.Unlock()
	case Rejected:
		v := p.value
		p.mu.Unlock()
		p.deliver(cb, v)
	case Fulfilled:
		p.mu.Unlock()
	}
}

// deliver schedules cb(value) via RunOnLoop composed with a microtask
// enqueue, so settlement from a worker thread is always safe and no
// listener ever runs inline.
func (p *Promise) deliver(cb func(any), value any) {
	submit := func(fn func()) {
		if p.loop != nil {
			p.loop.Submit(fn)
			return
		}
		fn()
	}
	submit(func() {
		p.sched.EnqueueMicrotask(func() { cb(value) })
	})
}
