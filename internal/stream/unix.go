package stream

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/core"
	"github.com/swazilang/asyncrt/internal/reactor"
)

// UnixSocket is a path-addressed (or Linux abstract-namespace) stream
// socket, layered on ConnStream exactly like TCPSocket.
type UnixSocket struct {
	*ConnStream
}

// abstractPrefix marks a Linux abstract-namespace address (a leading NUL
// byte in the real socket address); script-facing paths spell this with a
// leading "@", the supplemented convention this runtime exposes (§10).
const abstractPrefix = "@"

func resolveUnixPath(path string) string {
	if strings.HasPrefix(path, abstractPrefix) {
		return "\x00" + path[len(abstractPrefix):]
	}
	return path
}

// DialUnix connects to a Unix-domain socket path.
func DialUnix(loop *reactor.Loop, sched MacrotaskEnqueuer, work *activework.Counter, log core.Logger, path string) (*UnixSocket, error) {
	addr := resolveUnixPath(path)
	conn, err := net.Dial("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("unix connect %s: %w", path, err)
	}
	cs := NewConnStream(loop, reactor.KindUnix, sched, work, log, conn)
	cs.SetRemote(path)
	sock := &UnixSocket{ConnStream: cs}
	sock.WorkStart()
	return sock, nil
}

// UnixServer listens on a filesystem (or abstract-namespace) path.
type UnixServer struct {
	ln     net.Listener
	loop   *reactor.Loop
	sched  MacrotaskEnqueuer
	work   *activework.Counter
	log    core.Logger
	handle *reactor.Handle
	path   string
	unlink bool
}

// ListenUnix binds path (removing any stale socket file first, per the
// conventional Unix-socket server contract) and begins accepting. File
// permissions default to 0666, matching the spec's supplemented
// filesystem-perms note (§10). Close removes the socket file afterward
// unless path is an abstract-namespace address, which has no file to
// unlink.
func ListenUnix(loop *reactor.Loop, sched MacrotaskEnqueuer, work *activework.Counter, log core.Logger, path string, onConn func(*UnixSocket)) (*UnixServer, error) {
	if log == nil {
		log = core.DiscardLogger()
	}
	addr := resolveUnixPath(path)
	abstract := strings.HasPrefix(path, abstractPrefix)
	if !abstract {
		_ = os.Remove(addr) // best-effort cleanup of a stale socket file
	}
	ln, err := net.Listen("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("unix listen %s: %w", path, err)
	}
	if !abstract {
		_ = os.Chmod(addr, 0666)
	}
	srv := &UnixServer{
		ln:     ln,
		loop:   loop,
		sched:  sched,
		work:   work,
		log:    log,
		handle: reactor.NewHandle(loop, reactor.KindUnix),
		path:   addr,
		unlink: !abstract,
	}
	go srv.acceptLoop(onConn)
	return srv, nil
}

func (srv *UnixServer) acceptLoop(onConn func(*UnixSocket)) {
	for {
		conn, err := srv.ln.Accept()
		if err != nil {
			if srv.handle.Closed() {
				return
			}
			srv.log.Error("unix accept failed", "err", err)
			return
		}
		cs := NewConnStream(srv.loop, reactor.KindUnix, srv.sched, srv.work, srv.log, conn)
		cs.SetRemote(srv.path)
		sock := &UnixSocket{ConnStream: cs}
		sock.WorkStart() // paired with the WorkDone in CloseStream
		srv.sched.EnqueueMacrotask(func() { onConn(sock) })
	}
}

// Close stops accepting, closes the listener, and unlinks the socket file
// unless it was an abstract-namespace address.
func (srv *UnixServer) Close() {
	srv.handle.Close(func() {
		_ = srv.ln.Close()
		if srv.unlink {
			_ = os.Remove(srv.path)
		}
	})
}
