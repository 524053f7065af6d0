//go:build v8

// Package jsengine selects the compiled-in core.JSRuntime backend: QuickJS
// by default, or V8 when built with the v8 tag (§4.9).
package jsengine

import (
	"github.com/swazilang/asyncrt/internal/core"
	"github.com/swazilang/asyncrt/internal/jsengine/v8engine"
)

// New constructs the V8-backed runtime. memoryLimitMB is accepted for
// signature parity with the QuickJS build but has no V8 equivalent wired
// here; V8's own isolate resource constraints are left at defaults.
func New(memoryLimitMB int) (core.JSRuntime, error) {
	return v8engine.New()
}

// Name identifies the compiled-in backend, for diagnostics and CLI output.
const Name = "v8"
