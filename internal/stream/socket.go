// Package stream implements the common stream/socket lifecycle pattern
// shared by TCP, UDP, Unix-domain, IPC-pipe, and WebSocket handles (§4.5):
// reactor-handle ownership, idempotent read-start, write-queue draining,
// idempotent close, and active-work accounting.
package stream

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/core"
	"github.com/swazilang/asyncrt/internal/reactor"
)

// diagHook is the optional loop-events journal callback (§4.10), installed
// process-wide via SetDiagnosticsHook exactly like bridge.Register's global
// registration — every protocol constructs its handle through newSocket and
// closes it through Socket.Close, so this single pair of call sites covers
// every stream kind without threading a hook parameter through each of
// DialTCP/ListenTCP/BindUDP/DialUnix/ListenUnix/OpenPipe/DialWebSocket/
// AcceptWebSocket.
var (
	diagMu   sync.RWMutex
	diagHook func(kind, detail string)
)

// SetDiagnosticsHook installs fn to be called once per stream open and once
// per stream close. Passing nil disables it. Not part of the stream
// lifecycle's public contract; used only by the optional diagnostics
// journal.
func SetDiagnosticsHook(fn func(kind, detail string)) {
	diagMu.Lock()
	diagHook = fn
	diagMu.Unlock()
}

func notifyDiagnostics(kind, detail string) {
	diagMu.RLock()
	fn := diagHook
	diagMu.RUnlock()
	if fn != nil {
		fn(kind, detail)
	}
}

// HighWaterMark is the back-pressure threshold: writableNeedsDrain()
// compares pending-write bytes against this.
const HighWaterMark = 16 * 1024

// EventHandler is a user-installed event callback. Arguments are whatever
// the event supplies (a []byte for "data", nothing for "close"/"end"/
// "drain"/"connect", an error-ish value for "error").
type EventHandler func(args ...any)

// MacrotaskEnqueuer is the minimal scheduler surface a Socket needs: every
// event handler is delivered as a macrotask, never invoked inline from the
// reactor/goroutine that produced it.
type MacrotaskEnqueuer interface {
	EnqueueMacrotask(task func())
}

var identitySeq atomic.Int64

// nextIdentity hands out the stable numeric identity every StreamHandle
// carries.
func nextIdentity() int64 { return identitySeq.Add(1) }

// Socket is the common state every protocol-specific handle (TCPSocket,
// UDPSocket, UnixSocket, Pipe, WebSocket) embeds.
type Socket struct {
	ID int64

	sched MacrotaskEnqueuer
	work  *activework.Counter
	log   core.Logger

	handle *reactor.Handle

	handlersMu sync.Mutex
	handlers   map[string][]EventHandler

	reading atomic.Bool
	paused  atomic.Bool

	pendingMu     sync.Mutex
	pendingWrites [][]byte // writes queued before the handle is ready (IPC)
	ready         bool

	pendingBytes atomic.Int64

	drainMu  sync.Mutex
	drainCbs []func()

	remoteMu sync.Mutex
	remote   string
}

// newSocket constructs the shared state. work may be nil for protocols
// that do not participate in active-work accounting (servers: §4.5
// "Servers do not participate").
func newSocket(loop *reactor.Loop, kind reactor.HandleKind, sched MacrotaskEnqueuer, work *activework.Counter, log core.Logger) *Socket {
	if log == nil {
		log = core.DiscardLogger()
	}
	s := &Socket{
		ID:       nextIdentity(),
		sched:    sched,
		work:     work,
		log:      log,
		handle:   reactor.NewHandle(loop, kind),
		handlers: make(map[string][]EventHandler),
		ready:    true, // most protocols are ready immediately; IPC overrides this
	}
	notifyDiagnostics("stream_open", fmt.Sprintf("id=%d kind=%v", s.ID, kind))
	return s
}

// On registers an event handler. Matches the JS-visible `.on(event, cb)`
// shape one level below the JS marshaling boundary.
func (s *Socket) On(event string, h EventHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[event] = append(s.handlers[event], h)
}

// Emit delivers event to every registered handler, each as its own
// macrotask — no listener ever runs inline on the producing thread.
func (s *Socket) Emit(event string, args ...any) {
	s.handlersMu.Lock()
	hs := append([]EventHandler(nil), s.handlers[event]...)
	s.handlersMu.Unlock()
	for _, h := range hs {
		h := h
		s.sched.EnqueueMacrotask(func() { h(args...) })
	}
}

// HasHandler reports whether at least one handler is registered for event.
func (s *Socket) HasHandler(event string) bool {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	return len(s.handlers[event]) > 0
}

// Closed reports whether Close has already run (or is running).
func (s *Socket) Closed() bool { return s.handle.Closed() }

// markReading stores the shared `reading` flag, which tracks whether a read
// subscription is active. The protocol implementations set that flag
// directly through reading.CompareAndSwap in their StartReading methods;
// nothing in this package calls markReading.
func (s *Socket) markReading(v bool) { s.reading.Store(v) }

// IsReading reports whether a read subscription is currently active.
func (s *Socket) IsReading() bool { return s.reading.Load() }

// Paused reports whether reads are currently paused.
func (s *Socket) Paused() bool { return s.paused.Load() }

// SetRemote records the remote-endpoint string (e.g. "host:port" or a
// filesystem path), exposed to script code as remoteAddress/remotePort.
func (s *Socket) SetRemote(addr string) {
	s.remoteMu.Lock()
	s.remote = addr
	s.remoteMu.Unlock()
}

// Remote returns the recorded remote-endpoint string.
func (s *Socket) Remote() string {
	s.remoteMu.Lock()
	defer s.remoteMu.Unlock()
	return s.remote
}

// AddPendingBytes adjusts the pending-write byte counter. When it
// transitions from non-zero to zero, every registered drain callback is
// invoked exactly once and then removed (§ Drain contract).
func (s *Socket) AddPendingBytes(delta int64) {
	newVal := s.pendingBytes.Add(delta)
	if newVal == 0 && delta < 0 {
		s.drainAll()
	}
}

// PendingBytes returns the current pending-write byte count.
func (s *Socket) PendingBytes() int64 { return s.pendingBytes.Load() }

// WritableNeedsDrain compares pending-write bytes against HighWaterMark.
func (s *Socket) WritableNeedsDrain() bool { return s.pendingBytes.Load() > HighWaterMark }

// OnDrain registers a one-shot drain callback, consumed (removed) the next
// time pending bytes reach zero.
func (s *Socket) OnDrain(cb func()) {
	s.drainMu.Lock()
	s.drainCbs = append(s.drainCbs, cb)
	s.drainMu.Unlock()
}

func (s *Socket) drainAll() {
	s.drainMu.Lock()
	cbs := s.drainCbs
	s.drainCbs = nil
	s.drainMu.Unlock()
	for _, cb := range cbs {
		cb := cb
		s.sched.EnqueueMacrotask(cb)
	}
	s.Emit("drain")
}

// QueuePendingWrite buffers data submitted before the handle is ready
// (IPC pipes). Returns true if it was queued (not ready yet).
func (s *Socket) QueuePendingWrite(data []byte) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if s.ready {
		return false
	}
	s.pendingWrites = append(s.pendingWrites, data)
	return true
}

// SetReady marks the handle ready and returns every buffered pending
// write, in FIFO submission order, for the caller to flush. Only IPC pipes
// ever start unready (every other protocol is ready at construction).
func (s *Socket) SetReady() [][]byte {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.ready = true
	pending := s.pendingWrites
	s.pendingWrites = nil
	return pending
}

// MarkNotReady flips a freshly constructed socket into the not-ready state
// (used only by IPC pipes awaiting the reactor-side open completion).
func (s *Socket) MarkNotReady() {
	s.pendingMu.Lock()
	s.ready = false
	s.pendingMu.Unlock()
}

// IsReady reports whether writes are flushed immediately or queued.
func (s *Socket) IsReady() bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return s.ready
}

// WorkStart/WorkDone wrap the active-work counter, a no-op if this socket
// does not participate (servers).
func (s *Socket) WorkStart() {
	if s.work != nil {
		s.work.Inc()
	}
}

func (s *Socket) WorkDone() {
	if s.work != nil {
		s.work.Dec()
	}
}

// Close runs closeFn exactly once (via the reactor handle's idempotent
// close gate), then emits "close". Subsequent calls are no-ops.
func (s *Socket) Close(closeFn func()) {
	s.handle.Close(func() {
		if closeFn != nil {
			closeFn()
		}
		notifyDiagnostics("stream_close", fmt.Sprintf("id=%d kind=%v", s.ID, s.handle.Kind))
		s.Emit("close")
	})
}
