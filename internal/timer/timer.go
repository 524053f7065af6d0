// Package timer implements the setTimeout/setInterval/clearTimeout/
// clearInterval/nap machinery: a map of timer-id to entry, a reactor-native
// path used when a reactor loop is available, and a thread-based fallback
// path (sleeping in <=50ms slices, checking a cancel flag) used otherwise.
package timer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swazilang/asyncrt/internal/bridge"
	"github.com/swazilang/asyncrt/internal/core"
	"github.com/swazilang/asyncrt/internal/promise"
	"github.com/swazilang/asyncrt/internal/reactor"
)

// fallbackSlice bounds how long the thread-based fallback path sleeps
// between cancel-flag checks, keeping clearTimeout responsive even with no
// reactor available.
const fallbackSlice = 50 * time.Millisecond

// Loop is the minimal reactor surface the timer subsystem needs.
type Loop interface {
	StartTimer(delay, period time.Duration, fire func()) *reactor.Timer
}

// entry is the timer map's value type (§3 TimerEntry).
type entry struct {
	id           int64
	period       time.Duration // 0 for one-shot
	cancelled    atomic.Bool
	reactorTimer *reactor.Timer
	stopCh       chan struct{}
	closeOnce    sync.Once
}

func (e *entry) stop() {
	e.cancelled.Store(true)
	if e.reactorTimer != nil {
		e.reactorTimer.Stop()
	}
	if e.stopCh != nil {
		e.closeOnce.Do(func() { close(e.stopCh) })
	}
}

// Registry is the global timer map plus id issuance.
type Registry struct {
	mu        sync.Mutex
	entries   map[int64]*entry
	nextID    atomic.Int64
	loop      Loop // nil: every timer uses the fallback thread path
	log       core.Logger
	eventHook func(kind, detail string)
}

// SetEventHook installs a diagnostics callback invoked once per timer fire
// and once per explicit cancel. Not part of the timer subsystem's public
// contract; used only by the optional diagnostics journal (§4.10).
func (r *Registry) SetEventHook(fn func(kind, detail string)) {
	r.eventHook = fn
}

func (r *Registry) notify(kind, detail string) {
	if r.eventHook != nil {
		r.eventHook(kind, detail)
	}
}

// NewRegistry creates an empty timer registry. loop may be nil, in which
// case every timer is created on the fallback thread path.
func NewRegistry(loop Loop, log core.Logger) *Registry {
	if log == nil {
		log = core.DiscardLogger()
	}
	return &Registry{entries: make(map[int64]*entry), loop: loop, log: log}
}

// HasPending reports whether the timer map is non-empty — one of the
// sources ORed into the scheduler's idle predicate (§4.8).
func (r *Registry) HasPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries) > 0
}

// schedule is the shared core of SetTimeout/SetInterval/Nap: allocate an
// id, insert the entry, and start it on whichever path is available. fire
// is invoked once per tick (every `period` if repeating) with the entry
// already removed from the map if one-shot.
func (r *Registry) schedule(delay, period time.Duration, fire func()) int64 {
	id := r.nextID.Add(1)
	e := &entry{id: id, period: period}

	r.mu.Lock()
	r.entries[id] = e
	r.mu.Unlock()

	wrapped := func() {
		r.mu.Lock()
		cur, ok := r.entries[id]
		if !ok || cur.cancelled.Load() {
			r.mu.Unlock()
			return
		}
		oneShot := period == 0
		if oneShot {
			delete(r.entries, id)
		}
		r.mu.Unlock()
		r.log.Debug("timer fired", "id", id, "one_shot", oneShot)
		r.notify("timer_fire", fmt.Sprintf("id=%d one_shot=%v", id, oneShot))
		fire()
	}

	if r.loop != nil {
		e.reactorTimer = r.loop.StartTimer(delay, period, wrapped)
	} else {
		e.stopCh = make(chan struct{})
		go r.runFallback(e, delay, period, wrapped)
	}
	return id
}

// runFallback is the thread-based path used when no reactor loop exists.
// It sleeps in bounded slices so Clear can interrupt it promptly, and
// enqueues through the same wrapped closure the reactor path uses.
func (r *Registry) runFallback(e *entry, delay, period time.Duration, wrapped func()) {
	deadline := time.Now().Add(delay)
	for {
		if !r.sleepUntil(e, deadline) {
			return
		}
		if e.cancelled.Load() {
			return
		}
		wrapped()
		if period == 0 {
			return
		}
		deadline = time.Now().Add(period)
	}
}

// sleepUntil sleeps in <=fallbackSlice increments until deadline, the
// cancel flag is set, or explicit stop. Returns false if it should give up
// (stopped or cancelled).
func (r *Registry) sleepUntil(e *entry, deadline time.Time) bool {
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return !e.cancelled.Load()
		}
		slice := remaining
		if slice > fallbackSlice {
			slice = fallbackSlice
		}
		select {
		case <-e.stopCh:
			return false
		case <-time.After(slice):
		}
		if e.cancelled.Load() {
			return false
		}
	}
}

// SetTimeout registers a one-shot timer. cb and args are handed verbatim
// to bridge.EnqueueCallbackGlobal on fire — the bridge is oblivious to
// their contents.
func (r *Registry) SetTimeout(delay time.Duration, cb any, args []any) int64 {
	return r.schedule(delay, 0, func() {
		bridge.EnqueueCallbackGlobal(&bridge.Payload{Callback: cb, Args: args})
	})
}

// SetInterval registers a repeating timer, firing every period starting
// after the first period elapses.
func (r *Registry) SetInterval(period time.Duration, cb any, args []any) int64 {
	return r.schedule(period, period, func() {
		bridge.EnqueueCallbackGlobal(&bridge.Payload{Callback: cb, Args: args})
	})
}

// Nap returns a Promise that resolves with nil ("undefined") after delay.
// Rejection is not defined for Nap, matching §4.3.
func (r *Registry) Nap(delay time.Duration, sched promise.Enqueuer, loop promise.LoopSubmitter) *promise.Promise {
	p := promise.New(sched, loop)
	r.schedule(delay, 0, func() { p.Fulfill(nil) })
	return p
}

// Clear cancels a timer by id. Safe to call more than once or with an
// unknown id (no-op).
func (r *Registry) Clear(id int64) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	e.stop()
	r.notify("timer_cancel", fmt.Sprintf("id=%d", id))
}
