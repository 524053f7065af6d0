package stdin

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/swazilang/asyncrt/internal/bridge"
	"github.com/swazilang/asyncrt/internal/scheduler"
)

func wireInlineBridge(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	s := scheduler.New(nil)
	bridge.Register(s, func(p *bridge.Payload) {
		if p.Callback == nil {
			return
		}
		p.Callback.(func())()
	}, nil)
	t.Cleanup(bridge.Reset)
	return s
}

func TestCookedModeSplitsOnNewline(t *testing.T) {
	s := wireInlineBridge(t)
	in := strings.NewReader("hello\nworld\n")
	rd := New(in, nil, nil, nil)

	var mu sync.Mutex
	var lines []string
	rd.On("data", func(args ...any) {
		mu.Lock()
		lines = append(lines, string(args[0].([]byte)))
		mu.Unlock()
	})

	go s.RunUntilIdle(func() bool { return true })
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(lines)
		mu.Unlock()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 || lines[0] != "hello" || lines[1] != "world" {
		t.Fatalf("lines = %v, want [hello world]", lines)
	}
}

func TestSIGINTByteTriggersSigintEvent(t *testing.T) {
	s := wireInlineBridge(t)
	in := bytes.NewReader([]byte{0x03})
	rd := New(in, nil, nil, nil)

	sigintFired := make(chan struct{})
	rd.On("sigint", func(args ...any) { close(sigintFired) })
	rd.On("data", func(args ...any) {})

	go s.RunUntilIdle(func() bool { return true })
	defer s.Stop()

	select {
	case <-sigintFired:
	case <-time.After(2 * time.Second):
		t.Fatal("sigint handler never ran")
	}
}

func TestPauseDiscardsDataUntilResume(t *testing.T) {
	s := wireInlineBridge(t)
	in := strings.NewReader("a\nb\nc\n")
	rd := New(in, nil, nil, nil)

	var mu sync.Mutex
	var lines []string
	rd.On("data", func(args ...any) {
		mu.Lock()
		lines = append(lines, string(args[0].([]byte)))
		mu.Unlock()
	})
	rd.Pause()

	go s.RunUntilIdle(func() bool { return true })
	defer s.Stop()

	time.Sleep(100 * time.Millisecond)
	rd.Resume()

	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	for _, l := range lines {
		if l == "a" {
			t.Fatal("line read while paused must not have been delivered")
		}
	}
}

func TestUnknownEventRejected(t *testing.T) {
	rd := New(strings.NewReader(""), nil, nil, nil)
	if err := rd.On("bogus", func(args ...any) {}); err == nil {
		t.Fatal("expected an error for an unknown event name")
	}
}
