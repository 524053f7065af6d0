package builtins

import (
	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/reactor"
	"github.com/swazilang/asyncrt/internal/stream"
)

// UDP builds the "udp" module (§6): createSocket. The returned socket
// object shape is {bind, send, on, address, close, isOpen} per §6, plus the
// supplemented multicast/broadcast controls from §9.
func UDP(loop *reactor.Loop, sched stream.MacrotaskEnqueuer, work *activework.Counter) Module {
	return Module{
		"createSocket": func(args ...any) (any, error) {
			return udpSocketObject(loop, sched, work), nil
		},
	}
}

func udpSocketObject(loop *reactor.Loop, sched stream.MacrotaskEnqueuer, work *activework.Counter) Module {
	var sock *stream.UDPSocket
	return Module{
		"bind": func(args ...any) (any, error) {
			address, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			opts := stream.UDPOptions{
				Broadcast:    argBool(args, 1),
				MulticastTTL: 0,
			}
			if ttl, err := argInt(args, 2); err == nil {
				opts.MulticastTTL = ttl
			}
			s, err := stream.BindUDP(loop, sched, work, nil, address, opts)
			if err != nil {
				return nil, err
			}
			sock = s
			sock.StartReading()
			return nil, nil
		},
		"send": func(args ...any) (any, error) {
			if sock == nil {
				return nil, errNotBound("send")
			}
			data, err := argBytes(args, 0)
			if err != nil {
				return nil, err
			}
			addr, err := argString(args, 1)
			if err != nil {
				return nil, err
			}
			cb, cbErr := argCallback(args, 2)
			n, sendErr := sock.Send(data, addr)
			if cbErr == nil {
				invokeViaBridge(cb, []any{sendErr, n})
			}
			return n, sendErr
		},
		"on": func(args ...any) (any, error) {
			if sock == nil {
				return nil, errNotBound("on")
			}
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
		"address": func(args ...any) (any, error) {
			if sock == nil {
				return nil, errNotBound("address")
			}
			return sock.LocalAddr().String(), nil
		},
		"close": func(args ...any) (any, error) {
			if sock != nil {
				sock.CloseSocket()
			}
			return nil, nil
		},
		"isOpen": func(args ...any) (any, error) {
			return sock != nil && !sock.Closed(), nil
		},
		"joinGroup": func(args ...any) (any, error) {
			if sock == nil {
				return nil, errNotBound("joinGroup")
			}
			group, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			iface, _ := argString(args, 1)
			return nil, sock.JoinGroup(parseIP(group), iface)
		},
		"leaveGroup": func(args ...any) (any, error) {
			if sock == nil {
				return nil, errNotBound("leaveGroup")
			}
			group, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			iface, _ := argString(args, 1)
			return nil, sock.LeaveGroup(parseIP(group), iface)
		},
	}
}
