package promise

import (
	"testing"

	"github.com/swazilang/asyncrt/internal/reactor"
	"github.com/swazilang/asyncrt/internal/scheduler"
)

func TestFulfillThenDelivery(t *testing.T) {
	s := scheduler.New(nil)
	p := New(s, nil)

	var got any
	p.Then(func(v any) { got = v })
	p.Fulfill("hi")

	if got != nil {
		t.Fatal("listener must not run inline during Fulfill")
	}
	s.RunUntilIdle(nil)
	if got != "hi" {
		t.Fatalf("got = %v, want hi", got)
	}
}

func TestSingleResolve(t *testing.T) {
	s := scheduler.New(nil)
	p := New(s, nil)

	var got any
	var catchCalled bool
	p.Then(func(v any) { got = v })
	p.Catch(func(any) { catchCalled = true })

	p.Fulfill("x")
	p.Fulfill("y")
	p.Reject("z")

	s.RunUntilIdle(nil)
	if got != "x" {
		t.Fatalf("got = %v, want x (second fulfill/reject must be ignored)", got)
	}
	if catchCalled {
		t.Fatal("catch must not be called once already fulfilled")
	}
	if p.State() != Fulfilled {
		t.Fatalf("state = %v, want Fulfilled", p.State())
	}
}

func TestLateListenerStillDeliveredOnce(t *testing.T) {
	s := scheduler.New(nil)
	p := New(s, nil)
	p.Fulfill(42)

	calls := 0
	var got any
	p.Then(func(v any) {
		calls++
		got = v
	})

	s.RunUntilIdle(nil)
	if calls != 1 || got != 42 {
		t.Fatalf("calls=%d got=%v, want calls=1 got=42", calls, got)
	}
}

func TestRejectDeliversToCatchOnly(t *testing.T) {
	s := scheduler.New(nil)
	p := New(s, nil)

	var thenCalled bool
	var reason any
	p.Then(func(any) { thenCalled = true })
	p.Catch(func(v any) { reason = v })

	p.Reject("boom")
	s.RunUntilIdle(nil)

	if thenCalled {
		t.Fatal("then listener must not be called on rejection")
	}
	if reason != "boom" {
		t.Fatalf("reason = %v, want boom", reason)
	}
}

func TestDeliveryGoesThroughLoopWhenPresent(t *testing.T) {
	s := scheduler.New(nil)
	l := reactor.New(s)
	p := New(s, l)

	var got any
	p.Then(func(v any) { got = v })
	p.Fulfill("via-loop")

	if !s.RunOne() {
		t.Fatal("expected the loop-submitted closure to run as a macrotask")
	}
	// That macrotask enqueues the microtask; drain it too.
	s.RunUntilIdle(nil)
	if got != "via-loop" {
		t.Fatalf("got = %v, want via-loop", got)
	}
}

func TestSettleFromWorkerThreadIsSafe(t *testing.T) {
	s := scheduler.New(nil)
	l := reactor.New(s)
	p := New(s, l)

	done := make(chan struct{})
	var got any
	p.Then(func(v any) {
		got = v
		close(done)
	})

	go p.Fulfill("from-worker")

	go s.RunUntilIdle(func() bool {
		select {
		case <-done:
			return false
		default:
			return true
		}
	})

	<-done
	if got != "from-worker" {
		t.Fatalf("got = %v, want from-worker", got)
	}
}
