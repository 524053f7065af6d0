package timer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/swazilang/asyncrt/internal/bridge"
	"github.com/swazilang/asyncrt/internal/reactor"
	"github.com/swazilang/asyncrt/internal/scheduler"
)

// wireRunner registers a bridge runner that just invokes cb.(func()) with
// no arguments, enough for these tests' synthetic callbacks.
func wireRunner(t *testing.T, s *scheduler.Scheduler, loop bridge.LoopSubmitter) {
	t.Helper()
	bridge.Register(s, func(p *bridge.Payload) {
		if p.Callback == nil {
			return
		}
		p.Callback.(func())()
	}, loop)
	t.Cleanup(bridge.Reset)
}

func TestHoldOpenFiresOnceNoEarlierThanDelay(t *testing.T) {
	s := scheduler.New(nil)
	l := reactor.New(s)
	wireRunner(t, s, l)

	reg := NewRegistry(l, nil)
	var calls atomic.Int32
	start := time.Now()
	reg.SetTimeout(30*time.Millisecond, func() { calls.Add(1) }, nil)

	s.RunUntilIdle(reg.HasPending)

	if time.Since(start) < 25*time.Millisecond {
		t.Fatal("run_until_idle returned before the timer's delay elapsed")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestIdleExitWithNoTimers(t *testing.T) {
	s := scheduler.New(nil)
	l := reactor.New(s)
	reg := NewRegistry(l, nil)

	done := make(chan struct{})
	go func() {
		s.RunUntilIdle(reg.HasPending)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run_until_idle did not return promptly with no timers")
	}
}

func TestCancelBeforeDeadlineNeverFires(t *testing.T) {
	s := scheduler.New(nil)
	l := reactor.New(s)
	wireRunner(t, s, l)
	reg := NewRegistry(l, nil)

	var calls atomic.Int32
	id := reg.SetTimeout(50*time.Millisecond, func() { calls.Add(1) }, nil)
	reg.Clear(id)

	s.RunUntilIdle(reg.HasPending)
	time.Sleep(70 * time.Millisecond)
	s.RunOne()

	if calls.Load() != 0 {
		t.Fatalf("calls = %d, want 0 (cancelled before deadline)", calls.Load())
	}
}

// TestIntervalCancellationAfterThreeFires mirrors scenario B from the
// spec: id = setInterval(10, f); setTimeout(35, () => clearInterval(id)).
// f must fire exactly 3 times.
func TestIntervalCancellationAfterThreeFires(t *testing.T) {
	s := scheduler.New(nil)
	l := reactor.New(s)
	wireRunner(t, s, l)
	reg := NewRegistry(l, nil)

	var mu sync.Mutex
	var calls int
	id := reg.SetInterval(10*time.Millisecond, func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}, nil)

	reg.SetTimeout(35*time.Millisecond, func() { reg.Clear(id) }, nil)

	go s.RunUntilIdle(reg.HasPending)
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	got := calls
	mu.Unlock()

	if got != 3 {
		t.Fatalf("calls = %d, want 3 (clear fires at ~35ms over a 10ms period)", got)
	}

	// No further fires after settling.
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	settled := calls
	mu.Unlock()
	if settled != got {
		t.Fatalf("interval kept firing after clearInterval: %d -> %d", got, settled)
	}
}

func TestFallbackPathWithoutReactor(t *testing.T) {
	s := scheduler.New(nil)
	wireRunner(t, s, nil) // no loop registered -> bridge runs inline via RunOnLoop fallback... but EnqueueCallbackGlobal always uses macrotask
	reg := NewRegistry(nil, nil)

	var calls atomic.Int32
	reg.SetTimeout(20*time.Millisecond, func() { calls.Add(1) }, nil)

	go s.RunUntilIdle(reg.HasPending)
	time.Sleep(200 * time.Millisecond)

	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 via the fallback thread path", calls.Load())
	}
}

func TestClearUnknownIDIsNoop(t *testing.T) {
	reg := NewRegistry(nil, nil)
	reg.Clear(999) // must not panic
}

func TestNapResolvesWithNilAfterDelay(t *testing.T) {
	s := scheduler.New(nil)
	l := reactor.New(s)
	reg := NewRegistry(l, nil)

	p := reg.Nap(20*time.Millisecond, s, l)
	var got any
	gotCalled := false
	p.Then(func(v any) { got = v; gotCalled = true })

	s.RunUntilIdle(reg.HasPending)
	if !gotCalled {
		t.Fatal("nap's promise listener never ran")
	}
	if got != nil {
		t.Fatalf("got = %v, want nil (undefined)", got)
	}
}
