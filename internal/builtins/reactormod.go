package builtins

import "github.com/swazilang/asyncrt/internal/reactor"

// Reactor builds the low-level "reactor" module (§6): run, stop, isAlive.
// Timer/Idle/Prepare/Check/Async/Poll/Signal handle construction is left to
// the subsystem-specific builtins (timers, stream protocols) that already
// wrap reactor.Handle/reactor.Timer internally — this module exposes only
// the loop-wide controls a script might use directly.
func Reactor(loop *reactor.Loop) Module {
	return Module{
		"run": func(args ...any) (any, error) {
			// The reactor loop in this design has no separate "run" step
			// of its own; it is driven by the scheduler's RunUntilIdle
			// (§4.8). Exposed for API-shape completeness.
			return nil, nil
		},
		"stop": func(args ...any) (any, error) {
			loop.Stop()
			return nil, nil
		},
		"isAlive": func(args ...any) (any, error) {
			return loop.IsAlive(), nil
		},
	}
}
