package core

// JSRuntime abstracts the JavaScript engine (V8 or QuickJS) behind a
// common interface used by the scheduler, the cross-thread bridge, and the
// built-in module factories. It is the single boundary this repository
// exposes to the evaluator (§4.8 of the runtime specification) — everything
// upstream of it (lexer, parser, AST, value representation) is an external
// collaborator. The substrate only ever needs to hand the engine a script
// and get a result back; richer marshaling (function registration, globals,
// typed eval, binary transfer) belongs to the evaluator integration layer
// itself, not this boundary.
type JSRuntime interface {
	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// Close disposes of the underlying engine (VM/Isolate). Must be called
	// exactly once, after the owning scheduler has stopped.
	Close()
}
