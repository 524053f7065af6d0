package core

import "errors"

// Sentinel error kinds surfaced to script code as typed error objects.
// The Go-side error wraps one of these with %w so callers can use
// errors.Is regardless of the descriptive text attached.
var (
	// ErrType marks a bad argument shape (missing callback, wrong value kind).
	ErrType = errors.New("type error")

	// ErrRuntime marks an unavailable runtime collaborator (no reactor,
	// no loop, no scheduler registered).
	ErrRuntime = errors.New("runtime error")

	// ErrIO marks a closed-handle or failed I/O operation.
	ErrIO = errors.New("io error")

	// ErrSystem marks a failed reactor primitive (init/bind/start/close).
	ErrSystem = errors.New("system error")

	// ErrNotSupported marks a platform-specific operation unavailable on
	// the current OS.
	ErrNotSupported = errors.New("not supported")

	// ErrRange marks a size/limit violation.
	ErrRange = errors.New("range error")
)
