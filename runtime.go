// Package asyncrt is the evaluator integration boundary (§4.8): it wires
// the scheduler, reactor, cross-thread bridge, timer and active-work
// registries, stdin reader, diagnostics journal, and JS engine backend
// into a single Runtime, and exposes the three calls an embedding
// evaluator needs — ScheduleCallback, RunEventLoop, InvokeFunction —
// plus the built-in module dictionaries (§6) for the evaluator to bind
// into script globals however its own value system requires.
package asyncrt

import (
	"fmt"
	"os"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/bridge"
	"github.com/swazilang/asyncrt/internal/builtins"
	"github.com/swazilang/asyncrt/internal/core"
	"github.com/swazilang/asyncrt/internal/diagnostics"
	"github.com/swazilang/asyncrt/internal/jsengine"
	"github.com/swazilang/asyncrt/internal/reactor"
	"github.com/swazilang/asyncrt/internal/scheduler"
	"github.com/swazilang/asyncrt/internal/stdin"
	"github.com/swazilang/asyncrt/internal/stream"
	"github.com/swazilang/asyncrt/internal/timer"
)

// Config controls Runtime construction. All fields are optional; the zero
// value gives a usable runtime with no diagnostics journal and the
// default-tagged JS engine backend.
type Config struct {
	// MemoryLimitMB caps the QuickJS heap. Ignored by V8 builds.
	MemoryLimitMB int

	// DiagnosticsDSN, if non-empty, opens a SQLite-backed loop-events
	// journal at this path (§4.10). Left empty, diagnostics are a no-op.
	DiagnosticsDSN string

	// Logger receives ambient scheduler/timer/stream log lines. Defaults
	// to a discarding logger.
	Logger core.Logger
}

// Runtime is the fully wired asynchronous substrate described by the
// runtime specification: one scheduler, one reactor loop, one set of
// built-in module dictionaries, bound to one JS engine instance.
type Runtime struct {
	cfg        Config
	engine     core.JSRuntime
	sched      *scheduler.Scheduler
	loop       *reactor.Loop
	work       *activework.Registry
	timers     *timer.Registry
	stdinRd    *stdin.Reader
	journal    *diagnostics.Journal
	Modules    map[string]builtins.Module
	EngineName string
}

// New constructs a Runtime: the JS engine backend, scheduler, reactor
// loop, active-work registry, timer registry, stdin reader, optional
// diagnostics journal, cross-thread bridge registration, and every
// built-in module dictionary from §6, all wired together.
func New(cfg Config) (*Runtime, error) {
	log := cfg.Logger
	if log == nil {
		log = core.DiscardLogger()
	}

	engine, err := jsengine.New(cfg.MemoryLimitMB)
	if err != nil {
		return nil, fmt.Errorf("asyncrt: engine init: %w", err)
	}

	var journal *diagnostics.Journal
	if cfg.DiagnosticsDSN != "" {
		journal, err = diagnostics.Open(cfg.DiagnosticsDSN)
		if err != nil {
			engine.Close()
			return nil, fmt.Errorf("asyncrt: diagnostics: %w", err)
		}
	}

	sched := scheduler.New(log)
	loop := reactor.New(sched)
	work := activework.NewRegistry()
	timers := timer.NewRegistry(loop, log)
	work.AddPredicate(timers.HasPending)

	stdinRd := stdin.New(os.Stdin, os.Stdout, work.Counter("stdin"), log)

	if journal != nil {
		sched.SetTickHook(func() { journal.Record("tick", "") })
		timers.SetEventHook(journal.Record)
		stream.SetDiagnosticsHook(journal.Record)
	}

	bridge.Register(sched, func(p *bridge.Payload) {
		if p.Callback == nil {
			return
		}
		invokeCallback(engine, p.Callback, p.Args)
	}, loop)

	rt := &Runtime{
		cfg:        cfg,
		engine:     engine,
		sched:      sched,
		loop:       loop,
		work:       work,
		timers:     timers,
		stdinRd:    stdinRd,
		journal:    journal,
		EngineName: jsengine.Name,
	}

	rt.Modules = map[string]builtins.Module{
		"timers":  builtins.Timers(timers, sched, loop),
		"tcp":     builtins.TCP(loop, sched, work.Counter("tcp")),
		"udp":     builtins.UDP(loop, sched, work.Counter("udp")),
		"unix":    builtins.Unix(loop, sched, work.Counter("unix")),
		"ipc":     builtins.IPC(loop, sched, work.Counter("ipc")),
		"stdin":   builtins.Stdin(stdinRd),
		"fs":      builtins.FS(sched, loop),
		"reactor": builtins.Reactor(loop),
	}

	return rt, nil
}

// invokeCallback hands a bridge-delivered callback to the engine. A
// callback value that genuinely arrived from script is expected to already
// be a Go-callable closure the evaluator layer wrapped before handing it to
// a builtins module — this runtime never inspects engine-specific function
// handles itself, matching the contract documented on bridge.Payload. Plain
// Go closures (used by internal tests and native-to-native wiring) are
// invoked directly.
func invokeCallback(_ core.JSRuntime, cb any, args []any) {
	switch fn := cb.(type) {
	case func():
		fn()
	case func(...any):
		fn(args...)
	default:
		// An evaluator binding a real script function must wrap it in one
		// of the two shapes above before handing it to a builtins module;
		// anything else is a caller error and is silently dropped rather
		// than panicking the loop thread.
	}
}

// ScheduleCallback is the evaluator's entry point for handing this runtime
// a callback to invoke on the next macrotask turn, outside of any builtin
// module (§4.8's schedule_callback).
func (rt *Runtime) ScheduleCallback(cb any, args ...any) {
	bridge.EnqueueCallbackGlobal(&bridge.Payload{Callback: cb, Args: args})
}

// RunEventLoop drives the scheduler until no subsystem reports pending
// work (§4.8's run_event_loop) — the sole blocking call an embedding
// evaluator needs to make once script evaluation reaches its end.
func (rt *Runtime) RunEventLoop() {
	rt.sched.RunUntilIdle(rt.work.HasPending)
}

// InvokeFunction evaluates a snippet of script through the bound engine
// and returns its result as a string (§4.8's invoke_function). Richer
// value marshaling belongs to the evaluator, not this boundary.
func (rt *Runtime) InvokeFunction(js string) (string, error) {
	return rt.engine.EvalString(js)
}

// Engine exposes the underlying core.JSRuntime directly, for evaluator code
// that holds its own reference to the engine rather than going through
// InvokeFunction.
func (rt *Runtime) Engine() core.JSRuntime { return rt.engine }

// Stop halts the reactor loop and scheduler and disposes of the JS
// engine. Must be called exactly once, after RunEventLoop returns.
func (rt *Runtime) Stop() {
	rt.loop.Stop()
	rt.sched.Stop()
	rt.engine.Close()
	if rt.journal != nil {
		rt.journal.Close()
		stream.SetDiagnosticsHook(nil)
	}
	bridge.Reset()
}
