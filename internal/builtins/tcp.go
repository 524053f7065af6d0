package builtins

import (
	"fmt"
	"net"
	"strconv"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/reactor"
	"github.com/swazilang/asyncrt/internal/stream"
)

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// connStreamHandle is the common shape every ConnStream-backed protocol
// satisfies, used to build the shared {write, close, on, remoteAddress,
// remotePort} object (§6).
type connStreamHandle interface {
	Write(data []byte) bool
	CloseStream()
	On(event string, h stream.EventHandler)
	Remote() string
}

func socketFuncs(sock connStreamHandle) Module {
	return Module{
		"write": func(args ...any) (any, error) {
			data, err := argBytes(args, 0)
			if err != nil {
				return nil, err
			}
			return sock.Write(data), nil
		},
		"close": func(args ...any) (any, error) {
			sock.CloseStream()
			return nil, nil
		},
		"on": func(args ...any) (any, error) {
			event, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			cb, err := argCallback(args, 1)
			if err != nil {
				return nil, err
			}
			sock.On(event, callbackHandler(cb))
			return nil, nil
		},
		"remoteAddress": func(args ...any) (any, error) {
			host, _ := splitHostPort(sock.Remote())
			return host, nil
		},
		"remotePort": func(args ...any) (any, error) {
			_, port := splitHostPort(sock.Remote())
			return port, nil
		},
	}
}

// callbackHandler adapts an opaque script callback value into a
// stream.EventHandler; invocation always goes through the bridge so event
// delivery is never inline from the reactor/goroutine that produced it.
func callbackHandler(cb any) stream.EventHandler {
	return func(args ...any) { invokeViaBridge(cb, args) }
}

// TCP builds the "tcp" module (§6): createServer, connect.
func TCP(loop *reactor.Loop, sched stream.MacrotaskEnqueuer, work *activework.Counter) Module {
	return Module{
		"connect": func(args ...any) (any, error) {
			address, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			opts := stream.TCPConnectOptions{
				NoDelay:   argBool(args, 1),
				KeepAlive: argBool(args, 2),
			}
			sock, err := stream.DialTCP(loop, sched, work, nil, address, opts)
			if err != nil {
				return nil, err
			}
			sock.StartReading()
			return socketFuncs(sock), nil
		},
		"createServer": func(args ...any) (any, error) {
			var srv *stream.TCPServer
			return Module{
				"listen": func(args ...any) (any, error) {
					if srv != nil {
						return nil, fmt.Errorf("tcp server: listen called twice")
					}
					port, err := argInt(args, 0)
					if err != nil {
						return nil, err
					}
					host, _ := argString(args, 1)
					if host == "" {
						host = "0.0.0.0"
					}
					cb, cbErr := argCallback(args, 2)
					onConn := func(sock *stream.TCPSocket) {
						sock.StartReading()
						if cbErr == nil {
							invokeServerCallback(cb, socketFuncs(sock))
						}
					}
					s, err := stream.ListenTCP(loop, sched, work, nil, net.JoinHostPort(host, strconv.Itoa(port)), onConn)
					if err != nil {
						return nil, err
					}
					srv = s
					return nil, nil
				},
				"close": func(args ...any) (any, error) {
					if srv != nil {
						srv.Close()
					}
					return nil, nil
				},
			}, nil
		},
	}
}
