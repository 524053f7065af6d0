package builtins

import (
	"time"

	"github.com/swazilang/asyncrt/internal/bridge"
	"github.com/swazilang/asyncrt/internal/promise"
	"github.com/swazilang/asyncrt/internal/scheduler"
	"github.com/swazilang/asyncrt/internal/timer"
)

// Timers builds the "timers" module (§6):
// setTimeout, clearTimeout, setInterval, clearInterval, nap,
// queueMicrotask, queueMacrotask.
func Timers(reg *timer.Registry, sched *scheduler.Scheduler, loop promise.LoopSubmitter) Module {
	return Module{
		"setTimeout": func(args ...any) (any, error) {
			delayMs, err := argInt(args, 0)
			if err != nil {
				return nil, err
			}
			cb, err := argCallback(args, 1)
			if err != nil {
				return nil, err
			}
			id := reg.SetTimeout(time.Duration(delayMs)*time.Millisecond, cb, restArgs(args, 2))
			return id, nil
		},
		"clearTimeout": func(args ...any) (any, error) {
			id, err := argInt(args, 0)
			if err != nil {
				return nil, err
			}
			reg.Clear(int64(id))
			return nil, nil
		},
		"setInterval": func(args ...any) (any, error) {
			periodMs, err := argInt(args, 0)
			if err != nil {
				return nil, err
			}
			cb, err := argCallback(args, 1)
			if err != nil {
				return nil, err
			}
			id := reg.SetInterval(time.Duration(periodMs)*time.Millisecond, cb, restArgs(args, 2))
			return id, nil
		},
		"clearInterval": func(args ...any) (any, error) {
			id, err := argInt(args, 0)
			if err != nil {
				return nil, err
			}
			reg.Clear(int64(id))
			return nil, nil
		},
		"nap": func(args ...any) (any, error) {
			delayMs, err := argInt(args, 0)
			if err != nil {
				return nil, err
			}
			return reg.Nap(time.Duration(delayMs)*time.Millisecond, sched, loop), nil
		},
		"queueMicrotask": func(args ...any) (any, error) {
			cb, err := argCallback(args, 0)
			if err != nil {
				return nil, err
			}
			bridge.EnqueueMicrotaskGlobal(&bridge.Payload{Callback: cb, Args: restArgs(args, 1)})
			return nil, nil
		},
		"queueMacrotask": func(args ...any) (any, error) {
			cb, err := argCallback(args, 0)
			if err != nil {
				return nil, err
			}
			bridge.EnqueueCallbackGlobal(&bridge.Payload{Callback: cb, Args: restArgs(args, 1)})
			return nil, nil
		},
	}
}
