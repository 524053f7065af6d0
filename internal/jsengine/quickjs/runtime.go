//go:build !v8

// Package quickjs implements core.JSRuntime on top of modernc.org/quickjs,
// the CGo-free QuickJS port. This is the default engine backend (§4.9):
// selected whenever the v8 build tag is absent, suited to environments where
// linking against V8's C++ runtime is undesirable.
package quickjs

import (
	"fmt"

	"github.com/swazilang/asyncrt/internal/core"
	"modernc.org/quickjs"
)

// Runtime implements core.JSRuntime for the QuickJS engine.
type Runtime struct {
	vm *quickjs.VM
}

var _ core.JSRuntime = (*Runtime)(nil)

// New creates a fresh QuickJS VM and wraps it as a core.JSRuntime. A nil
// memoryLimitMB (0) leaves QuickJS's default allocator limit in place.
func New(memoryLimitMB int) (*Runtime, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("quickjs: creating VM: %w", err)
	}
	if memoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(memoryLimitMB) * 1024 * 1024)
	}
	return &Runtime{vm: vm}, nil
}

// Close disposes of the underlying VM. Must be called exactly once.
func (r *Runtime) Close() {
	r.vm.Close()
}

// EvalString evaluates JavaScript and returns the result as a Go string.
func (r *Runtime) EvalString(js string) (string, error) {
	result, err := r.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}
