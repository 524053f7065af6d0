package stream

import (
	"sync"
	"testing"

	"github.com/swazilang/asyncrt/internal/reactor"
	"github.com/swazilang/asyncrt/internal/scheduler"
)

func TestWritableNeedsDrainCrossesHighWaterMark(t *testing.T) {
	s := scheduler.New(nil)
	loop := reactor.New(s)
	sock := newSocket(loop, reactor.KindTCP, s, nil, nil)

	sock.AddPendingBytes(HighWaterMark)
	if sock.WritableNeedsDrain() {
		t.Fatal("exactly at the high-water mark should not yet need drain")
	}
	sock.AddPendingBytes(1)
	if !sock.WritableNeedsDrain() {
		t.Fatal("one byte past the high-water mark should need drain")
	}
}

func TestOnDrainFiresOnceWhenPendingReachesZero(t *testing.T) {
	s := scheduler.New(nil)
	loop := reactor.New(s)
	sock := newSocket(loop, reactor.KindTCP, s, nil, nil)

	var mu sync.Mutex
	fires := 0
	sock.AddPendingBytes(100)
	sock.OnDrain(func() {
		mu.Lock()
		fires++
		mu.Unlock()
	})
	sock.AddPendingBytes(-100)

	s.RunUntilIdle(nil)

	mu.Lock()
	defer mu.Unlock()
	if fires != 1 {
		t.Fatalf("fires = %d, want 1", fires)
	}
}

func TestPendingWriteQueueFlushesInOrderOnReady(t *testing.T) {
	sock := &Socket{handlers: make(map[string][]EventHandler)}
	sock.MarkNotReady()

	if !sock.QueuePendingWrite([]byte("a")) {
		t.Fatal("expected write to queue while not ready")
	}
	if !sock.QueuePendingWrite([]byte("b")) {
		t.Fatal("expected second write to queue while not ready")
	}

	flushed := sock.SetReady()
	if len(flushed) != 2 || string(flushed[0]) != "a" || string(flushed[1]) != "b" {
		t.Fatalf("flushed = %v, want [a b] in order", flushed)
	}

	if sock.QueuePendingWrite([]byte("c")) {
		t.Fatal("writes after ready must not be queued")
	}
}

func TestEmitDeliversAsMacrotaskNotInline(t *testing.T) {
	s := scheduler.New(nil)
	loop := reactor.New(s)
	sock := newSocket(loop, reactor.KindTCP, s, nil, nil)

	var called bool
	sock.On("custom", func(args ...any) { called = true })
	sock.Emit("custom")

	if called {
		t.Fatal("handler must not run inline from Emit")
	}
	s.RunUntilIdle(nil)
	if !called {
		t.Fatal("handler never ran after draining the scheduler")
	}
}
