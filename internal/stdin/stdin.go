// Package stdin implements the process-wide standard-input reader: a
// background goroutine that reads raw bytes, splits them into lines
// (unless raw mode is active), and dispatches "data"/"eof"/"sigint"
// events, plus pause/resume and an optional single-line prompt echo.
//
// State is process-wide to match the original runtime's single global
// stdin handle: only one reader goroutine per process ever exists.
package stdin

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-isatty"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/bridge"
	"github.com/swazilang/asyncrt/internal/core"
)

// controlSIGINT and controlEOF are the raw byte values the original
// runtime special-cases regardless of raw/cooked mode: Ctrl-C and Ctrl-D.
const (
	controlSIGINT = 0x03
	controlEOF    = 0x04
)

// EventHandler mirrors stream.EventHandler's shape; kept local to avoid
// this package depending on stream for a single type alias.
type EventHandler func(args ...any)

// Reader is the stdin subsystem. A process has at most one in normal use,
// but the type is not itself a singleton — New may be called more than
// once in tests with an arbitrary io.Reader.
type Reader struct {
	mu       sync.Mutex
	handlers map[string][]EventHandler

	raw            atomic.Bool
	paused         atomic.Bool
	discardOnPause atomic.Bool
	discardNext    atomic.Bool
	closed         atomic.Bool

	started atomic.Bool
	in      io.Reader
	out     io.Writer
	log     core.Logger
	work    *activework.Counter

	promptMu sync.Mutex
	prompt   string
}

// New wraps r (typically os.Stdin) and w (typically os.Stdout, for prompt
// echo). work tracks whether an active "data" subscription should keep
// the event loop alive.
func New(r io.Reader, w io.Writer, work *activework.Counter, log core.Logger) *Reader {
	if log == nil {
		log = core.DiscardLogger()
	}
	return &Reader{
		handlers: make(map[string][]EventHandler),
		in:       r,
		out:      w,
		log:      log,
		work:     work,
	}
}

// IsTTY reports whether the wrapped reader is a real terminal, used to
// decide whether raw-mode toggling or prompt echo make sense at all.
func (rd *Reader) IsTTY() bool {
	f, ok := rd.in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// On registers an event handler for "data", "eof", or "sigint". The first
// registration for any event starts the background reader goroutine
// (ensure-init semantics, mirroring the original runtime's lazy init).
func (rd *Reader) On(event string, h EventHandler) error {
	switch event {
	case "data", "eof", "sigint":
	default:
		return fmt.Errorf("stdin.on: unknown event %q (valid: data, eof, sigint)", event)
	}
	rd.mu.Lock()
	rd.handlers[event] = append(rd.handlers[event], h)
	rd.mu.Unlock()
	rd.ensureStarted()
	return nil
}

func (rd *Reader) ensureStarted() {
	if !rd.started.CompareAndSwap(false, true) {
		return
	}
	if rd.work != nil {
		rd.work.Inc()
	}
	go rd.readLoop()
}

func (rd *Reader) emit(event string, args ...any) {
	rd.mu.Lock()
	hs := append([]EventHandler(nil), rd.handlers[event]...)
	rd.mu.Unlock()
	for _, h := range hs {
		h := h
		bridge.EnqueueCallbackGlobal(&bridge.Payload{
			Callback: func() { h(args...) },
		})
	}
}

// SetRawMode toggles between line-buffered ("cooked") and byte-at-a-time
// ("raw") delivery. In raw mode every byte is delivered individually as a
// "data" event (after Ctrl-C/Ctrl-D interception); in cooked mode bytes
// accumulate until a newline and the accumulated line (without the
// trailing newline) is delivered as one "data" event.
func (rd *Reader) SetRawMode(enabled bool) { rd.raw.Store(enabled) }

// SetDiscardOnPause controls whether a Pause followed by Resume discards
// exactly the first chunk delivered by the kernel after Resume — the
// supplemented convention (§10) for consuming a stray buffered read that
// arrived while the consumer was not ready to act on it.
func (rd *Reader) SetDiscardOnPause(enabled bool) { rd.discardOnPause.Store(enabled) }

// Pause stops "data" delivery. The underlying goroutine keeps reading
// from the OS (Go offers no portable "stop reading fd" short of closing
// it), but discards everything until Resume.
func (rd *Reader) Pause() {
	rd.paused.Store(true)
}

// Resume re-enables "data" delivery. If SetDiscardOnPause was set, the
// very next chunk read after Resume is silently dropped.
func (rd *Reader) Resume() {
	if rd.discardOnPause.Load() {
		rd.discardNext.Store(true)
	}
	rd.paused.Store(false)
}

// Prompt records and immediately echoes a prompt string to the writer
// passed to New. An empty string clears the active prompt.
func (rd *Reader) Prompt(text string) {
	rd.promptMu.Lock()
	rd.prompt = text
	rd.promptMu.Unlock()
	if text != "" && rd.out != nil {
		fmt.Fprint(rd.out, text)
	}
}

func (rd *Reader) readLoop() {
	defer func() {
		if rd.work != nil {
			rd.work.Dec()
		}
	}()
	br := bufio.NewReader(rd.in)
	var lineBuf []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			rd.closed.Store(true)
			rd.emit("eof")
			return
		}
		if rd.closed.Load() {
			return
		}
		if rd.paused.Load() {
			continue
		}
		if rd.discardNext.CompareAndSwap(true, false) {
			// Drop this byte and the rest of the chunk it arrived in.
			_, _ = br.Discard(br.Buffered())
			continue
		}
		rd.handleByte(b, &lineBuf)
	}
}

func (rd *Reader) handleByte(b byte, lineBuf *[]byte) {
	switch b {
	case controlSIGINT:
		rd.emit("sigint")
		rd.emit("data", []byte{b})
		return
	case controlEOF:
		rd.emit("eof")
		rd.emit("data", []byte{b})
		return
	}

	if rd.raw.Load() {
		rd.emit("data", []byte{b})
		return
	}

	if b < 0x20 && b != '\n' && b != '\r' {
		rd.emit("data", []byte{b})
		return
	}

	*lineBuf = append(*lineBuf, b)
	if b == '\n' {
		line := *lineBuf
		if n := len(line); n > 0 && line[n-1] == '\n' {
			line = line[:n-1]
		}
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		*lineBuf = nil
		rd.emit("data", append([]byte(nil), line...))
		rd.promptMu.Lock()
		prompt := rd.prompt
		rd.promptMu.Unlock()
		if prompt != "" && rd.out != nil {
			fmt.Fprint(rd.out, prompt)
		}
	}
}
