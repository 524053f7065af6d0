package builtins

import "github.com/swazilang/asyncrt/internal/bridge"

// invokeViaBridge hands an opaque script callback and its arguments to the
// bridge for delivery on the loop thread, exactly like every other
// asynchronous event in this package (§4.5's "never delivered inline"
// invariant applies uniformly whether the event originated from a reactor
// completion, a reader goroutine, or here).
func invokeViaBridge(cb any, args []any) {
	bridge.EnqueueCallbackGlobal(&bridge.Payload{Callback: cb, Args: args})
}

// invokeServerCallback delivers a newly accepted connection's script-level
// wrapper object to a createServer connection callback.
func invokeServerCallback(cb any, socketObj Module) {
	invokeViaBridge(cb, []any{socketObj})
}
