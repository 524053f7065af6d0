// Package reactor is the abstract single-threaded event-loop substrate the
// rest of the runtime is layered on: timers, readable/writable stream
// handles, signals, and a thread-safe wake/submit primitive. It stands in
// for the external libuv-like reactor named in the specification — this
// module doesn't bind to a specific reactor library, it only needs the
// shape one provides.
//
// The "loop thread" in this implementation is whichever goroutine drives
// the owning scheduler's RunUntilIdle/RunOne loop. Submit marshals a
// closure onto that thread by enqueueing it as a macrotask, so every
// invariant about FIFO ordering and single-threaded execution that the
// scheduler already provides carries over to reactor-submitted work for
// free.
package reactor

import (
	"sync/atomic"
	"time"
)

// Enqueuer is the minimal scheduler surface the reactor needs to marshal
// work onto the loop thread and to wake a blocked RunUntilIdle waiter.
type Enqueuer interface {
	EnqueueMacrotask(task func())
	Notify()
}

// Loop is the reactor adapter. It owns every timer and stream handle
// created through it and is the sole path by which worker goroutines
// reach the loop thread.
type Loop struct {
	sched Enqueuer
	alive atomic.Bool
}

// New creates a Loop bound to sched. The loop is considered alive from
// construction until Stop is called.
func New(sched Enqueuer) *Loop {
	l := &Loop{sched: sched}
	l.alive.Store(true)
	return l
}

// Submit marshals fn onto the loop thread. Implements bridge.LoopSubmitter.
func (l *Loop) Submit(fn func()) {
	l.sched.EnqueueMacrotask(fn)
}

// IsAlive reports whether the loop has not been stopped.
func (l *Loop) IsAlive() bool { return l.alive.Load() }

// Stop marks the loop as no longer alive. Existing timers keep running
// their goroutines until they individually notice (via their own cancel
// flag); Stop does not forcibly cancel them — that is the caller's job via
// each handle's Close.
func (l *Loop) Stop() { l.alive.Store(false) }

// HandleKind names the reactor-native handle kinds referenced by the
// external interface (§6): Timer, Idle, Prepare, Check, Async, Poll,
// Signal, plus the stream kinds used internally.
type HandleKind int

const (
	KindTimer HandleKind = iota
	KindIdle
	KindPrepare
	KindCheck
	KindAsync
	KindPoll
	KindSignal
	KindTCP
	KindUDP
	KindUnix
	KindPipe
	KindWebSocket
)

// Handle models the lifetime of a reactor-owned I/O object: strictly from
// init to the completion of an asynchronous close. Close is idempotent —
// only the first caller's closeFn runs; later callers are no-ops, matching the "closed.exchange(true) gates the close
// sequence" invariant shared by every stream/timer implementation.
type Handle struct {
	Kind   HandleKind
	closed atomic.Bool
	loop   *Loop
}

// NewHandle creates a Handle owned by loop.
func NewHandle(loop *Loop, kind HandleKind) *Handle {
	return &Handle{Kind: kind, loop: loop}
}

// Closed reports whether Close has already won the race to close this
// handle (the close completion may still be pending on the loop thread).
func (h *Handle) Closed() bool { return h.closed.Load() }

// Close gates the close sequence: only the first caller's onClose runs,
// and it runs asynchronously on the loop thread (via Submit), mirroring a
// reactor's async close-completion callback. Subsequent callers are no-ops.
func (h *Handle) Close(onClose func()) {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	if onClose == nil {
		return
	}
	if h.loop != nil {
		h.loop.Submit(onClose)
	} else {
		onClose()
	}
}

// Timer is a reactor-native one-shot or repeating timer. It is the
// "reactor path" referenced by the timer subsystem (§4.3): used only when
// a Loop is available: the fallback thread-based path is implemented by
// the timer package directly without this type.
type Timer struct {
	handle *Handle
	timer  *time.Timer
	ticker *time.Ticker
	stopCh chan struct{}
}

// StartTimer schedules fire to run on loop's thread after delay, and every
// period thereafter if period > 0 (period == 0 means one-shot). fire is
// always invoked via loop.Submit, so it executes with the same
// single-threaded guarantees as any other macrotask.
func (l *Loop) StartTimer(delay, period time.Duration, fire func()) *Timer {
	h := NewHandle(l, KindTimer)
	t := &Timer{handle: h, stopCh: make(chan struct{})}

	if period > 0 {
		t.ticker = time.NewTicker(delay)
		go func() {
			first := true
			for {
				select {
				case <-t.ticker.C:
					if h.Closed() {
						return
					}
					l.Submit(fire)
					if first {
						first = false
						t.ticker.Reset(period)
					}
				case <-t.stopCh:
					return
				}
			}
		}()
	} else {
		t.timer = time.AfterFunc(delay, func() {
			if h.Closed() {
				return
			}
			l.Submit(fire)
		})
	}
	return t
}

// Stop cancels the timer. Idempotent.
func (t *Timer) Stop() {
	t.handle.Close(nil)
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.ticker != nil {
		t.ticker.Stop()
		select {
		case <-t.stopCh:
		default:
			close(t.stopCh)
		}
	}
}
