//go:build !v8

// Package jsengine selects the compiled-in core.JSRuntime backend: QuickJS
// by default, or V8 when built with the v8 tag (§4.9).
package jsengine

import (
	"github.com/swazilang/asyncrt/internal/core"
	"github.com/swazilang/asyncrt/internal/jsengine/quickjs"
)

// New constructs the default QuickJS-backed runtime. memoryLimitMB is
// ignored by the V8 build of this function.
func New(memoryLimitMB int) (core.JSRuntime, error) {
	return quickjs.New(memoryLimitMB)
}

// Name identifies the compiled-in backend, for diagnostics and CLI output.
const Name = "quickjs"
