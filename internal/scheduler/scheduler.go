// Package scheduler implements the cooperative microtask/macrotask
// dispatcher that sits between the reactor loop and the evaluator. It is
// the single-threaded heart of the runtime: every user-visible callback and
// every Promise listener eventually runs through here, on the loop thread.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/swazilang/asyncrt/internal/core"
)

// Continuation is a reference-counted (by closing over whatever state it
// needs), side-effectful, zero-argument callback queued by the scheduler.
// It is invoked exactly once, on the loop thread; any panic it raises is
// recovered and logged — it must never escape into the scheduler.
//
// Declared as an alias (not a defined type) so that other packages —
// notably internal/bridge, which must not import this package's concrete
// Scheduler type to avoid a dependency cycle — can declare interfaces in
// terms of plain func() and still have *Scheduler satisfy them.
type Continuation = func()

// idlePollInterval bounds how long run_until_idle's wait can go without
// rechecking the idle predicate even in the absence of an explicit Notify.
// Callers are still expected to call Notify on every external-state change
// that might satisfy the predicate (§4.1); this is a safety net, not the
// primary wake path.
const idlePollInterval = 50 * time.Millisecond

// Scheduler holds the microtask and macrotask deques plus the condition
// variable used by run_until_idle. Deques are guarded by their own mutexes;
// no lock is ever held across invocation of a task.
type Scheduler struct {
	microMu    sync.Mutex
	microtasks []Continuation

	macroMu    sync.Mutex
	macrotasks []Continuation

	condMu sync.Mutex
	cond   *sync.Cond

	stopped atomic.Bool
	log     core.Logger

	// onTick, when non-nil, is invoked after every macrotask that actually
	// ran (diagnostics journal hook, §4.10). Never touches core invariants.
	onTick func()
}

// New creates an idle Scheduler. A nil logger is replaced with a discard
// logger.
func New(log core.Logger) *Scheduler {
	if log == nil {
		log = core.DiscardLogger()
	}
	s := &Scheduler{log: log}
	s.cond = sync.NewCond(&s.condMu)
	return s
}

// SetTickHook installs a diagnostics callback invoked after each tick that
// executed a macrotask. Not part of the scheduler's public contract; used
// only by the optional diagnostics journal.
func (s *Scheduler) SetTickHook(fn func()) { s.onTick = fn }

// EnqueueMicrotask is safe to call from any thread. It appends to the
// microtask deque and wakes any waiter.
func (s *Scheduler) EnqueueMicrotask(task Continuation) {
	s.microMu.Lock()
	s.microtasks = append(s.microtasks, task)
	s.microMu.Unlock()
	s.wake()
}

// EnqueueMacrotask is safe to call from any thread. It appends to the
// macrotask deque and wakes any waiter.
func (s *Scheduler) EnqueueMacrotask(task Continuation) {
	s.macroMu.Lock()
	s.macrotasks = append(s.macrotasks, task)
	s.macroMu.Unlock()
	s.wake()
}

// popMicrotask removes and returns the front microtask, or (nil, false) if
// the deque is empty.
func (s *Scheduler) popMicrotask() (Continuation, bool) {
	s.microMu.Lock()
	defer s.microMu.Unlock()
	if len(s.microtasks) == 0 {
		return nil, false
	}
	t := s.microtasks[0]
	s.microtasks = s.microtasks[1:]
	return t, true
}

// popMacrotask removes and returns the front macrotask, or (nil, false) if
// the deque is empty.
func (s *Scheduler) popMacrotask() (Continuation, bool) {
	s.macroMu.Lock()
	defer s.macroMu.Unlock()
	if len(s.macrotasks) == 0 {
		return nil, false
	}
	t := s.macrotasks[0]
	s.macrotasks = s.macrotasks[1:]
	return t, true
}

func (s *Scheduler) queuesEmpty() bool {
	s.microMu.Lock()
	microEmpty := len(s.microtasks) == 0
	s.microMu.Unlock()
	s.macroMu.Lock()
	macroEmpty := len(s.macrotasks) == 0
	s.macroMu.Unlock()
	return microEmpty && macroEmpty
}

// run invokes a single Continuation, recovering and logging any panic so it
// never propagates into the scheduler.
func (s *Scheduler) run(task Continuation) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduler: task panicked", "panic", r)
		}
	}()
	task()
}

// RunOne drains all microtasks currently queued — re-sampling after each
// invocation so a microtask that enqueues another microtask is observed in
// the same drain — then pops and runs at most one macrotask. It never
// blocks. Returns whether a macrotask was executed.
func (s *Scheduler) RunOne() bool {
	for {
		task, ok := s.popMicrotask()
		if !ok {
			break
		}
		s.run(task)
	}

	task, ok := s.popMacrotask()
	if !ok {
		return false
	}
	s.run(task)
	if s.onTick != nil {
		s.onTick()
	}
	return true
}

// RunUntilIdle repeats RunOne; when it returns false it waits on the
// condition variable until a microtask or macrotask is queued, stop() is
// called, or hasPending transitions to false. It exits once both queues are
// empty and either hasPending is nil or hasPending() is false.
func (s *Scheduler) RunUntilIdle(hasPending func() bool) {
	for {
		if s.stopped.Load() {
			return
		}
		if s.RunOne() {
			continue
		}
		if s.queuesEmpty() && (hasPending == nil || !hasPending()) {
			return
		}
		if s.stopped.Load() {
			return
		}
		s.waitForWork()
	}
}

// waitForWork blocks on the condition variable until woken by Notify, an
// enqueue, Stop, or the idle poll fallback.
func (s *Scheduler) waitForWork() {
	s.condMu.Lock()
	timer := time.AfterFunc(idlePollInterval, func() {
		s.condMu.Lock()
		s.cond.Broadcast()
		s.condMu.Unlock()
	})
	s.cond.Wait()
	timer.Stop()
	s.condMu.Unlock()
}

func (s *Scheduler) wake() {
	s.condMu.Lock()
	s.cond.Broadcast()
	s.condMu.Unlock()
}

// Notify wakes any waiter so it can re-evaluate external state (e.g. an
// active-work counter dropping to zero).
func (s *Scheduler) Notify() { s.wake() }

// Stop sets the terminal flag. Every subsequent RunUntilIdle call returns
// immediately. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
	s.wake()
}

// Stopped reports whether Stop has been called.
func (s *Scheduler) Stopped() bool { return s.stopped.Load() }
