package builtins

import (
	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/reactor"
	"github.com/swazilang/asyncrt/internal/stream"
)

// Unix builds the "unix" module (§6): createServer, connect. Socket shape
// is the TCP shape plus {isOpen, writableNeedsDrain, pause, resume, path}.
func Unix(loop *reactor.Loop, sched stream.MacrotaskEnqueuer, work *activework.Counter) Module {
	return Module{
		"connect": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			sock, err := stream.DialUnix(loop, sched, work, nil, path)
			if err != nil {
				return nil, err
			}
			sock.StartReading()
			return unixSocketObject(sock, path), nil
		},
		"createServer": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			cb, err := argCallback(args, 1)
			if err != nil {
				return nil, err
			}
			onConn := func(sock *stream.UnixSocket) {
				sock.StartReading()
				invokeServerCallback(cb, unixSocketObject(sock, path))
			}
			srv, err := stream.ListenUnix(loop, sched, work, nil, path, onConn)
			if err != nil {
				return nil, err
			}
			return Module{
				"listen": func(args ...any) (any, error) { return nil, nil },
				"close": func(args ...any) (any, error) {
					srv.Close()
					return nil, nil
				},
			}, nil
		},
	}
}

func unixSocketObject(sock *stream.UnixSocket, path string) Module {
	m := socketFuncs(sock)
	m["isOpen"] = func(args ...any) (any, error) { return !sock.Closed(), nil }
	m["writableNeedsDrain"] = func(args ...any) (any, error) { return sock.WritableNeedsDrain(), nil }
	m["pause"] = func(args ...any) (any, error) {
		sock.PauseReading()
		return nil, nil
	}
	m["resume"] = func(args ...any) (any, error) {
		sock.ResumeReading()
		return nil, nil
	}
	m["path"] = func(args ...any) (any, error) { return path, nil }
	return m
}
