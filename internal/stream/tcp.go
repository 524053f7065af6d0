package stream

import (
	"fmt"
	"net"
	"time"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/core"
	"github.com/swazilang/asyncrt/internal/reactor"
)

// TCPSocket is a client-initiated TCP connection: it holds the work
// counter while connecting and while open, releasing it on close (§4.5:
// "client sockets participate in active-work accounting; servers do
// not").
type TCPSocket struct {
	*ConnStream
}

// TCPConnectOptions mirrors the supplemented connect-time socket tuning
// (SPEC_FULL.md §10): Nagle disable and keep-alive, layered on top of the
// teacher's plain net.Dial connect path.
type TCPConnectOptions struct {
	NoDelay       bool
	KeepAlive     bool
	KeepAlivePing time.Duration
}

// DialTCP connects to address ("host:port"), applies the requested socket
// options, and returns a ready TCPSocket with reading not yet started
// (caller invokes StartReading once "data" listeners are attached,
// matching the lazy-start convention used across every stream kind).
func DialTCP(loop *reactor.Loop, sched MacrotaskEnqueuer, work *activework.Counter, log core.Logger, address string, opts TCPConnectOptions) (*TCPSocket, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("tcp connect %s: %w", address, err)
	}
	applyTCPOptions(conn, opts)

	cs := NewConnStream(loop, reactor.KindTCP, sched, work, log, conn)
	cs.SetRemote(RemoteAddrString(conn))
	sock := &TCPSocket{ConnStream: cs}
	sock.WorkStart() // held for the lifetime of the client connection, released on close
	return sock, nil
}

func applyTCPOptions(conn net.Conn, opts TCPConnectOptions) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if opts.NoDelay {
		_ = tc.SetNoDelay(true)
	}
	if opts.KeepAlive {
		_ = tc.SetKeepAlive(true)
		if opts.KeepAlivePing > 0 {
			_ = tc.SetKeepAlivePeriod(opts.KeepAlivePing)
		}
	}
}

// TCPServer listens for inbound TCP connections and hands each accepted
// connection to onConn as a fresh TCPSocket. The listener itself does not
// participate in active-work accounting (§4.5); each accepted connection
// does, for the duration of its own lifetime, via the accept-spawned
// socket's own work counter.
type TCPServer struct {
	ln     net.Listener
	loop   *reactor.Loop
	sched  MacrotaskEnqueuer
	work   *activework.Counter
	log    core.Logger
	handle *reactor.Handle
}

// ListenTCP binds address and begins accepting in the background. onConn
// is invoked (as a macrotask, so it runs with the same single-thread
// guarantee as any other event handler) once per accepted connection.
func ListenTCP(loop *reactor.Loop, sched MacrotaskEnqueuer, work *activework.Counter, log core.Logger, address string, onConn func(*TCPSocket)) (*TCPServer, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("tcp listen %s: %w", address, err)
	}
	if log == nil {
		log = core.DiscardLogger()
	}
	srv := &TCPServer{
		ln:     ln,
		loop:   loop,
		sched:  sched,
		work:   work,
		log:    log,
		handle: reactor.NewHandle(loop, reactor.KindTCP),
	}
	go srv.acceptLoop(onConn)
	return srv, nil
}

func (srv *TCPServer) acceptLoop(onConn func(*TCPSocket)) {
	for {
		conn, err := srv.ln.Accept()
		if err != nil {
			if srv.handle.Closed() {
				return
			}
			srv.log.Error("tcp accept failed", "err", err)
			return
		}
		cs := NewConnStream(srv.loop, reactor.KindTCP, srv.sched, srv.work, srv.log, conn)
		cs.SetRemote(RemoteAddrString(conn))
		sock := &TCPSocket{ConnStream: cs}
		sock.WorkStart() // paired with the WorkDone in CloseStream
		srv.sched.EnqueueMacrotask(func() { onConn(sock) })
	}
}

// Addr returns the bound listener address, useful when address was
// "host:0" and the OS chose an ephemeral port.
func (srv *TCPServer) Addr() net.Addr { return srv.ln.Addr() }

// Close stops accepting and closes the listener. Idempotent.
func (srv *TCPServer) Close() {
	srv.handle.Close(func() {
		_ = srv.ln.Close()
	})
}
