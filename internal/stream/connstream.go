package stream

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/core"
	"github.com/swazilang/asyncrt/internal/reactor"
)

// readChunk bounds a single read(2) into the per-connection buffer. Chosen
// to comfortably hold a TCP segment without excessive copying.
const readChunk = 64 * 1024

// ConnStream is the shared lifecycle for the net.Conn-backed protocols
// (TCP and Unix-domain sockets; IPC pipes use their own Pipe type): a
// background reader goroutine delivering "data"/"end"/"error" events, and
// a writer goroutine draining a FIFO queue of pending writes while
// maintaining the back-pressure byte counter.
type ConnStream struct {
	*Socket

	loop *reactor.Loop
	conn io.ReadWriteCloser
	log  core.Logger

	writeMu    sync.Mutex
	writeQueue [][]byte
	writeCond  *sync.Cond
	writerDone chan struct{}

	holdMu sync.Mutex
	held   []byte
}

// NewConnStream wraps conn with the common lifecycle, registers it as kind
// with the reactor, and starts the background reader and writer
// goroutines. work may be nil for listener-spawned ends that do not
// participate in active-work accounting per protocol convention; pass a
// non-nil counter for client-initiated connections (§4.5).
func NewConnStream(loop *reactor.Loop, kind reactor.HandleKind, sched MacrotaskEnqueuer, work *activework.Counter, log core.Logger, conn io.ReadWriteCloser) *ConnStream {
	if log == nil {
		log = core.DiscardLogger()
	}
	cs := &ConnStream{
		Socket:     newSocket(loop, kind, sched, work, log),
		loop:       loop,
		conn:       conn,
		log:        log,
		writerDone: make(chan struct{}),
	}
	cs.writeCond = sync.NewCond(&cs.writeMu)
	go cs.writeLoop()
	return cs
}

// StartReading begins the background read loop, idempotently (§4.5
// "read-start idempotence": a second call while already reading is a
// no-op). Each chunk read is delivered as a "data" event; EOF delivers
// "end"; any other error delivers "error" then closes the stream.
func (cs *ConnStream) StartReading() {
	if !cs.reading.CompareAndSwap(false, true) {
		return
	}
	go cs.readLoop()
}

// PauseReading marks the stream paused. The reader goroutine keeps
// reading into the kernel/runtime buffer (Go's net.Conn offers no
// suspend primitive) but withholds "data" emission until ResumeReading,
// buffering at most one pending chunk — callers needing true backpressure
// should stop calling resume until ready, mirroring pause()/resume()
// semantics at the script level.
func (cs *ConnStream) PauseReading() { cs.paused.Store(true) }

// ResumeReading clears the paused flag and flushes the held chunk (if any)
// via its own "data" emission.
func (cs *ConnStream) ResumeReading() {
	cs.paused.Store(false)
	cs.emitHeld()
}

func (cs *ConnStream) readLoop() {
	buf := make([]byte, readChunk)
	for {
		if cs.Closed() {
			return
		}
		n, err := cs.conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			cs.deliverData(chunk)
		}
		if err != nil {
			if cs.Closed() || errors.Is(err, io.EOF) {
				cs.Emit("end")
			} else {
				cs.Emit("error", err)
			}
			cs.CloseStream()
			return
		}
	}
}

func (cs *ConnStream) deliverData(chunk []byte) {
	if cs.paused.Load() {
		cs.holdMu.Lock()
		cs.held = chunk
		cs.holdMu.Unlock()
		return
	}
	cs.Emit("data", chunk)
}

func (cs *ConnStream) emitHeld() {
	cs.holdMu.Lock()
	chunk := cs.held
	cs.held = nil
	cs.holdMu.Unlock()
	if chunk != nil {
		cs.Emit("data", chunk)
	}
}

// Write enqueues data for the writer goroutine. Returns whether the
// caller should treat the stream as needing a "drain" wait
// (WritableNeedsDrain) after this call.
func (cs *ConnStream) Write(data []byte) bool {
	if cs.Closed() {
		return false
	}
	cs.AddPendingBytes(int64(len(data)))
	cs.writeMu.Lock()
	cs.writeQueue = append(cs.writeQueue, data)
	cs.writeCond.Signal()
	cs.writeMu.Unlock()
	return cs.WritableNeedsDrain()
}

func (cs *ConnStream) writeLoop() {
	defer close(cs.writerDone)
	for {
		cs.writeMu.Lock()
		for len(cs.writeQueue) == 0 && !cs.Closed() {
			cs.writeCond.Wait()
		}
		if len(cs.writeQueue) == 0 && cs.Closed() {
			cs.writeMu.Unlock()
			return
		}
		chunk := cs.writeQueue[0]
		cs.writeQueue = cs.writeQueue[1:]
		cs.writeMu.Unlock()

		_, err := cs.conn.Write(chunk)
		cs.AddPendingBytes(-int64(len(chunk)))
		if err != nil {
			cs.Emit("error", err)
			cs.CloseStream()
			return
		}
	}
}

// CloseStream runs the idempotent close sequence: closes the underlying
// conn, wakes the writer goroutine so it can exit, and emits "close".
func (cs *ConnStream) CloseStream() {
	cs.Close(func() {
		cs.conn.Close()
		cs.writeMu.Lock()
		cs.writeCond.Broadcast()
		cs.writeMu.Unlock()
		cs.WorkDone()
	})
}

// RemoteAddrString extracts a "host:port"-style string from a net.Conn, or
// "" if conn isn't a net.Conn (e.g. an IPC FIFO).
func RemoteAddrString(conn io.ReadWriteCloser) string {
	if nc, ok := conn.(net.Conn); ok {
		if ra := nc.RemoteAddr(); ra != nil {
			return ra.String()
		}
	}
	return ""
}
