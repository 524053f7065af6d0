package stream

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/reactor"
	"github.com/swazilang/asyncrt/internal/scheduler"
)

func TestUnixSocketEchoAndUnlinkOnClose(t *testing.T) {
	s := scheduler.New(nil)
	loop := reactor.New(s)
	path := filepath.Join(t.TempDir(), "test.sock")

	srv, err := ListenUnix(loop, s, nil, nil, path, func(conn *UnixSocket) {
		conn.On("data", func(args ...any) { conn.Write(args[0].([]byte)) })
		conn.StartReading()
	})
	if err != nil {
		t.Fatalf("ListenUnix: %v", err)
	}

	go s.RunUntilIdle(func() bool { return true })
	defer s.Stop()

	client, err := DialUnix(loop, s, &activework.Counter{}, nil, path)
	if err != nil {
		t.Fatalf("DialUnix: %v", err)
	}

	var mu sync.Mutex
	var got []byte
	done := make(chan struct{})
	client.On("data", func(args ...any) {
		mu.Lock()
		got = args[0].([]byte)
		mu.Unlock()
		close(done)
	})
	client.StartReading()
	client.Write([]byte("ping"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo")
	}

	mu.Lock()
	if string(got) != "ping" {
		t.Fatalf("got = %q, want ping", got)
	}
	mu.Unlock()

	srv.Close()
	time.Sleep(50 * time.Millisecond)
	if _, err := os.Stat(path); err == nil {
		t.Fatal("expected socket file to be unlinked after server Close")
	}
}
