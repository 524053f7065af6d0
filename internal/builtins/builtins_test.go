package builtins

import (
	"testing"
	"time"

	"github.com/swazilang/asyncrt/internal/bridge"
	"github.com/swazilang/asyncrt/internal/reactor"
	"github.com/swazilang/asyncrt/internal/scheduler"
	"github.com/swazilang/asyncrt/internal/timer"
)

func wireScheduler(t *testing.T) (*scheduler.Scheduler, *reactor.Loop) {
	t.Helper()
	s := scheduler.New(nil)
	l := reactor.New(s)
	bridge.Register(s, func(p *bridge.Payload) {
		if p.Callback == nil {
			return
		}
		p.Callback.(func(...any))(p.Args...)
	}, l)
	t.Cleanup(bridge.Reset)
	return s, l
}

func TestTimersSetTimeoutFiresCallback(t *testing.T) {
	s, l := wireScheduler(t)
	reg := timer.NewRegistry(l, nil)
	mod := Timers(reg, s, l)

	var fired bool
	_, err := mod["setTimeout"](5, func(...any) { fired = true })
	if err != nil {
		t.Fatalf("setTimeout: %v", err)
	}

	s.RunUntilIdle(reg.HasPending)
	if !fired {
		t.Fatal("callback never fired")
	}
}

func TestTimersClearTimeoutPreventsFire(t *testing.T) {
	s, l := wireScheduler(t)
	reg := timer.NewRegistry(l, nil)
	mod := Timers(reg, s, l)

	var fired bool
	idAny, _ := mod["setTimeout"](20, func(...any) { fired = true })
	mod["clearTimeout"](idAny)

	deadline := time.Now().Add(60 * time.Millisecond)
	for time.Now().Before(deadline) {
		s.RunOne()
	}
	if fired {
		t.Fatal("callback fired after clearTimeout")
	}
}

func TestFSModuleReadFileRoundTrip(t *testing.T) {
	s, l := wireScheduler(t)
	mod := FS(s, l)
	dir := t.TempDir()
	path := dir + "/hello.txt"

	if _, err := mod["writeFile"](path, "hi"); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	s.RunUntilIdle(nil)

	v, err := mod["readFile"](path)
	if err != nil {
		t.Fatalf("readFile: %v", err)
	}
	var got []byte
	v.(interface{ Then(func(any)) }).Then(func(val any) { got = val.([]byte) })
	s.RunUntilIdle(nil)
	if string(got) != "hi" {
		t.Fatalf("got = %q, want hi", got)
	}
}
