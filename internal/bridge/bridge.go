// Package bridge implements the cross-thread callback bridge: the
// type-erased boxing, ownership transfer, and single-thread delivery
// mechanism every asynchronous producer (timers, sockets, filesystem
// promises, stdin) uses to hand a language-level callback and its captured
// arguments to the evaluator thread.
//
// State is process-wide, matching the original runtime's global scheduler
// pointer plus runner closure: registration happens once at startup, and
// early native calls (before registration) degrade gracefully rather than
// panicking.
package bridge

import "sync"

// Payload is the owned envelope carrying a callback reference and its
// captured argument list across a thread boundary. The receiving side
// (the Runner) is obliged to treat it as consumed after a single
// invocation — ownership transfers by value here, there is nothing to
// free explicitly, but the one-invocation contract still holds.
//
// Callback may be nil, in which case the payload is a pure wake-up signal
// and the Runner must drop it without invoking anything.
type Payload struct {
	Callback any
	Args     []any
}

// Enqueuer is the minimal surface of scheduler.Scheduler the bridge needs,
// kept as an interface so this package never imports the scheduler
// package's concrete type (avoids a dependency cycle with packages that
// need both).
type Enqueuer interface {
	EnqueueMicrotask(task func())
	EnqueueMacrotask(task func())
}

// LoopSubmitter schedules a zero-argument closure to run on the reactor
// loop thread. Implemented by the reactor adapter.
type LoopSubmitter interface {
	Submit(fn func())
}

// Runner is supplied by the evaluator at startup. It extracts the callback
// and arguments from a Payload, invokes the callback through the
// evaluator, and is responsible for any evaluator-side cleanup — the
// payload itself needs no explicit destruction in Go.
type Runner func(payload *Payload)

type registration struct {
	scheduler Enqueuer
	runner    Runner
	loop      LoopSubmitter
}

var (
	mu    sync.RWMutex
	state registration
)

// Register installs the current scheduler, runner, and (optional) reactor
// loop submitter. Called once at runtime startup. Concurrent registration
// is not supported — the second caller simply replaces the first, mirroring
// the original single-writer global.
func Register(sched Enqueuer, runner Runner, loop LoopSubmitter) {
	mu.Lock()
	defer mu.Unlock()
	state = registration{scheduler: sched, runner: runner, loop: loop}
}

// Reset clears the registration. Exists for test isolation; production
// callers register exactly once at startup and never reset.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	state = registration{}
}

func current() registration {
	mu.RLock()
	defer mu.RUnlock()
	return state
}

// EnqueueCallbackGlobal wraps payload in a Continuation that invokes the
// registered runner, and hands that Continuation to the scheduler's
// macrotask queue. If no scheduler is registered, the call is a silent
// no-op (there is nowhere to deliver it).
func EnqueueCallbackGlobal(payload *Payload) {
	reg := current()
	if reg.scheduler == nil || reg.runner == nil {
		return
	}
	runner := reg.runner
	reg.scheduler.EnqueueMacrotask(func() { runner(payload) })
}

// EnqueueMicrotaskGlobal is identical to EnqueueCallbackGlobal except the
// resulting Continuation is placed on the microtask queue instead.
func EnqueueMicrotaskGlobal(payload *Payload) {
	reg := current()
	if reg.scheduler == nil || reg.runner == nil {
		return
	}
	runner := reg.runner
	reg.scheduler.EnqueueMicrotask(func() { runner(payload) })
}

// RunOnLoop submits fn to run on the reactor loop thread. If no loop is
// registered, fn runs inline on the caller's goroutine — callers must
// tolerate both outcomes, exactly as the spec requires.
func RunOnLoop(fn func()) {
	reg := current()
	if reg.loop == nil {
		fn()
		return
	}
	reg.loop.Submit(fn)
}

// HasScheduler reports whether a scheduler has been registered. Used by
// run_event_loop to decide whether it has anything to do.
func HasScheduler() bool {
	return current().scheduler != nil
}
