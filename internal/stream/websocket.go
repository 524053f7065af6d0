package stream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/core"
	"github.com/swazilang/asyncrt/internal/reactor"
)

// WebSocket layers the masked-client/unmasked-server frame protocol on
// top of an HTTP upgrade, using github.com/coder/websocket for the
// handshake and framing. "data" events carry (payload []byte, isText
// bool); Send chooses the frame opcode from the same flag.
type WebSocket struct {
	*Socket

	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	log    core.Logger
}

func newWebSocket(loop *reactor.Loop, sched MacrotaskEnqueuer, work *activework.Counter, log core.Logger, conn *websocket.Conn) *WebSocket {
	if log == nil {
		log = core.DiscardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	ws := &WebSocket{
		Socket: newSocket(loop, reactor.KindWebSocket, sched, work, log),
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
	return ws
}

// DialWebSocket performs a client-side handshake against url ("ws://" or
// "wss://"). The resulting connection uses the client (masked) framing
// side automatically, per the library's role detection from Dial.
func DialWebSocket(loop *reactor.Loop, sched MacrotaskEnqueuer, work *activework.Counter, log core.Logger, url string) (*WebSocket, error) {
	conn, _, err := websocket.Dial(context.Background(), url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	ws := newWebSocket(loop, sched, work, log, conn)
	ws.SetRemote(url)
	ws.WorkStart()
	return ws, nil
}

// AcceptWebSocket completes a server-side upgrade from within an HTTP
// handler, then returns the unmasked-server-framed connection. Call from
// an http.Handler wired to the runtime's HTTP surface.
func AcceptWebSocket(loop *reactor.Loop, sched MacrotaskEnqueuer, work *activework.Counter, log core.Logger, w http.ResponseWriter, r *http.Request) (*WebSocket, error) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket accept: %w", err)
	}
	ws := newWebSocket(loop, sched, work, log, conn)
	ws.SetRemote(r.RemoteAddr)
	ws.WorkStart()
	return ws, nil
}

// StartReading begins the background frame-receive loop, idempotently.
func (ws *WebSocket) StartReading() {
	if !ws.reading.CompareAndSwap(false, true) {
		return
	}
	go ws.readLoop()
}

func (ws *WebSocket) readLoop() {
	for {
		if ws.Closed() {
			return
		}
		typ, data, err := ws.conn.Read(ws.ctx)
		if err != nil {
			if ws.Closed() {
				return
			}
			ws.Emit("error", err)
			ws.CloseWebSocket(websocket.StatusInternalError, "read error")
			return
		}
		ws.Emit("data", data, typ == websocket.MessageText)
	}
}

// Send writes a single WebSocket message, text if asText is set, binary
// otherwise.
func (ws *WebSocket) Send(data []byte, asText bool) error {
	if ws.Closed() {
		return fmt.Errorf("websocket: send on closed connection")
	}
	ws.AddPendingBytes(int64(len(data)))
	defer ws.AddPendingBytes(-int64(len(data)))
	typ := websocket.MessageBinary
	if asText {
		typ = websocket.MessageText
	}
	return ws.conn.Write(ws.ctx, typ, data)
}

// CloseWebSocket runs the close handshake (status code plus reason) and
// the idempotent local-close sequence.
func (ws *WebSocket) CloseWebSocket(code websocket.StatusCode, reason string) {
	ws.Close(func() {
		_ = ws.conn.Close(code, reason)
		ws.cancel()
		ws.WorkDone()
	})
}
