package reactor

import (
	"sync"
	"testing"
	"time"

	"github.com/swazilang/asyncrt/internal/scheduler"
)

func TestSubmitRunsOnSchedulerThread(t *testing.T) {
	s := scheduler.New(nil)
	l := New(s)

	ran := false
	l.Submit(func() { ran = true })
	if ran {
		t.Fatal("Submit must not run inline")
	}
	if !s.RunOne() {
		t.Fatal("expected submitted closure to run as a macrotask")
	}
	if !ran {
		t.Fatal("submitted closure never ran")
	}
}

func TestHandleCloseIdempotent(t *testing.T) {
	s := scheduler.New(nil)
	l := New(s)
	h := NewHandle(l, KindTCP)

	var calls int
	var mu sync.Mutex
	onClose := func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	h.Close(onClose)
	h.Close(onClose)
	h.Close(onClose)

	s.RunUntilIdle(nil)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("onClose called %d times, want exactly 1", calls)
	}
	if !h.Closed() {
		t.Fatal("handle should report closed")
	}
}

func TestStartTimerOneShot(t *testing.T) {
	s := scheduler.New(nil)
	l := New(s)

	fired := make(chan struct{})
	start := time.Now()
	l.StartTimer(20*time.Millisecond, 0, func() { close(fired) })

	go s.RunUntilIdle(func() bool { return true })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("timer fired too early")
	}
}

func TestStartTimerRepeat(t *testing.T) {
	s := scheduler.New(nil)
	l := New(s)

	var mu sync.Mutex
	count := 0
	timer := l.StartTimer(10*time.Millisecond, 10*time.Millisecond, func() {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer timer.Stop()

	go s.RunUntilIdle(func() bool { return true })

	time.Sleep(55 * time.Millisecond)
	timer.Stop()

	mu.Lock()
	defer mu.Unlock()
	if count < 2 {
		t.Fatalf("expected at least 2 fires, got %d", count)
	}
}

func TestStopMarksLoopDead(t *testing.T) {
	s := scheduler.New(nil)
	l := New(s)
	if !l.IsAlive() {
		t.Fatal("new loop should be alive")
	}
	l.Stop()
	if l.IsAlive() {
		t.Fatal("loop should report dead after Stop")
	}
}
