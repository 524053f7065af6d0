package stream

import (
	"fmt"
	"os"
	"sync"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/core"
	"github.com/swazilang/asyncrt/internal/reactor"
)

// Pipe is a named-pipe (FIFO) endpoint. Unlike TCP/Unix sockets, opening a
// FIFO for writing blocks until a reader opens the other end (and vice
// versa), so Pipe starts in the not-ready state and flips to ready only
// once the blocking os.OpenFile call returns on its own goroutine — any
// writes submitted in between are queued (§4.5 pending-write queue for
// not-yet-ready handles) and flushed in submission order once ready.
type Pipe struct {
	*Socket

	path     string
	isReader bool
	file     *os.File
	writeErr error

	workDoneOnce sync.Once
}

// releaseWork decrements the active-work counter exactly once per
// open/reopen cycle, regardless of whether the release is triggered by an
// open failure or an explicit close.
func (p *Pipe) releaseWork() {
	p.workDoneOnce.Do(p.WorkDone)
}

// OpenPipe opens path as a FIFO: O_RDONLY for a reader, O_WRONLY for a
// writer, matching the original runtime's open-mode convention. The open
// itself runs on its own goroutine since FIFO opens block until the peer
// end is present; "ready" fires once the open completes.
func OpenPipe(loop *reactor.Loop, sched MacrotaskEnqueuer, work *activework.Counter, log core.Logger, path string, isReader bool) *Pipe {
	if log == nil {
		log = core.DiscardLogger()
	}
	p := &Pipe{
		Socket:   newSocket(loop, reactor.KindPipe, sched, work, log),
		path:     path,
		isReader: isReader,
	}
	p.MarkNotReady()
	p.WorkStart()
	go p.openAndRun()
	return p
}

func (p *Pipe) openAndRun() {
	flags := os.O_WRONLY
	if p.isReader {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(p.path, flags, 0)
	if err != nil {
		p.Emit("error", fmt.Errorf("ipc open %s: %w", p.path, err))
		p.releaseWork()
		return
	}
	p.file = f

	flushed := p.SetReady()
	p.Emit("ready")
	for _, chunk := range flushed {
		p.writeNow(chunk)
	}

	if p.isReader {
		p.StartReading()
	}
}

// StartReading begins the background read loop for a reader pipe,
// idempotently.
func (p *Pipe) StartReading() {
	if !p.isReader || p.file == nil {
		return
	}
	if !p.reading.CompareAndSwap(false, true) {
		return
	}
	go p.readLoop()
}

func (p *Pipe) readLoop() {
	buf := make([]byte, 64*1024)
	for {
		if p.Closed() {
			return
		}
		n, err := p.file.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			p.Emit("data", chunk)
		}
		if err != nil {
			if p.Closed() {
				return
			}
			p.Emit("end")
			p.ClosePipe()
			return
		}
	}
}

// Write submits data for the writer end. If the pipe isn't ready yet
// (open still in flight), data is queued and flushed in order once ready.
func (p *Pipe) Write(data []byte) {
	if p.QueuePendingWrite(data) {
		return
	}
	p.writeNow(data)
}

func (p *Pipe) writeNow(data []byte) {
	if p.file == nil {
		return
	}
	if _, err := p.file.Write(data); err != nil {
		p.writeErr = err
		p.Emit("error", err)
	}
}

// Reopen closes the current file descriptor and re-opens path, matching
// the supplemented "reopen" lifecycle operation (§10) used when a
// long-lived pipe's peer has cycled. Reading, if active, resumes
// automatically once the reopened file is ready.
func (p *Pipe) Reopen() {
	if p.file != nil {
		_ = p.file.Close()
	}
	p.file = nil
	p.reading.Store(false)
	p.MarkNotReady()
	p.workDoneOnce = sync.Once{}
	p.WorkStart()
	go p.openAndRun()
}

// ClosePipe runs the idempotent close sequence.
func (p *Pipe) ClosePipe() {
	p.Close(func() {
		if p.file != nil {
			_ = p.file.Close()
		}
		p.releaseWork()
	})
}
