package builtins

import (
	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/reactor"
	"github.com/swazilang/asyncrt/internal/stream"
)

// IPC builds the "ipc" module (§6): openPipe, returning
// {on, write, close, path, mode}.
func IPC(loop *reactor.Loop, sched stream.MacrotaskEnqueuer, work *activework.Counter) Module {
	return Module{
		"openPipe": func(args ...any) (any, error) {
			path, err := argString(args, 0)
			if err != nil {
				return nil, err
			}
			mode, err := argString(args, 1)
			if err != nil {
				return nil, err
			}
			isReader := mode == "r"
			p := stream.OpenPipe(loop, sched, work, nil, path, isReader)
			return Module{
				"on": func(args ...any) (any, error) {
					event, err := argString(args, 0)
					if err != nil {
						return nil, err
					}
					cb, err := argCallback(args, 1)
					if err != nil {
						return nil, err
					}
					p.On(event, callbackHandler(cb))
					return nil, nil
				},
				"write": func(args ...any) (any, error) {
					data, err := argBytes(args, 0)
					if err != nil {
						return nil, err
					}
					p.Write(data)
					return nil, nil
				},
				"close": func(args ...any) (any, error) {
					p.ClosePipe()
					return nil, nil
				},
				"reopen": func(args ...any) (any, error) {
					p.Reopen()
					return nil, nil
				},
				"path": func(args ...any) (any, error) { return path, nil },
				"mode": func(args ...any) (any, error) { return mode, nil },
			}, nil
		},
	}
}
