//go:build !v8

package quickjs

import "testing"

func TestEvalArithmetic(t *testing.T) {
	rt, err := New(0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close()

	got, err := rt.EvalString("21 + 21")
	if err != nil {
		t.Fatalf("EvalString: %v", err)
	}
	if got != "42" {
		t.Fatalf("EvalString = %q, want %q", got, "42")
	}
}

func TestNewRespectsMemoryLimit(t *testing.T) {
	rt, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close()

	got, err := rt.EvalString(`"ok"`)
	if err != nil {
		t.Fatalf("EvalString: %v", err)
	}
	if got != "ok" {
		t.Fatalf("EvalString = %q, want %q", got, "ok")
	}
}
