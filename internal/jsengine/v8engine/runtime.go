//go:build v8

// Package v8engine implements core.JSRuntime on top of github.com/tommie/v8go,
// the cgo binding to V8. Selected with the v8 build tag when the embedder
// wants V8's JIT instead of the default CGo-free QuickJS backend.
package v8engine

import (
	"github.com/swazilang/asyncrt/internal/core"
	v8 "github.com/tommie/v8go"
)

// Runtime implements core.JSRuntime for the V8 engine.
type Runtime struct {
	iso *v8.Isolate
	ctx *v8.Context
}

var _ core.JSRuntime = (*Runtime)(nil)

// New creates a fresh V8 isolate and context and wraps it as a
// core.JSRuntime.
func New() (*Runtime, error) {
	iso := v8.NewIsolate()
	ctx := v8.NewContext(iso)
	return &Runtime{iso: iso, ctx: ctx}, nil
}

// Close disposes of the context and isolate. Must be called exactly once.
func (r *Runtime) Close() {
	r.ctx.Close()
	r.iso.Dispose()
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *Runtime) EvalString(js string) (string, error) {
	val, err := r.ctx.RunScript(js, "eval_string.js")
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return val.String(), nil
}
