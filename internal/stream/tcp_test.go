package stream

import (
	"sync"
	"testing"
	"time"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/reactor"
	"github.com/swazilang/asyncrt/internal/scheduler"
)

// TestTCPEchoRoundTrip mirrors scenario D from the spec: a client writes a
// line, the server echoes it back verbatim.
func TestTCPEchoRoundTrip(t *testing.T) {
	s := scheduler.New(nil)
	loop := reactor.New(s)

	var wg sync.WaitGroup
	wg.Add(1)
	srv, err := ListenTCP(loop, s, nil, nil, "127.0.0.1:0", func(conn *TCPSocket) {
		conn.On("data", func(args ...any) {
			conn.Write(args[0].([]byte))
		})
		conn.StartReading()
	})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer srv.Close()

	work := &activework.Counter{}
	client, err := DialTCP(loop, s, work, nil, srv.Addr().String(), TCPConnectOptions{})
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}

	var got []byte
	client.On("data", func(args ...any) {
		got = args[0].([]byte)
		wg.Done()
	})
	client.StartReading()
	client.Write([]byte("hello\n"))

	go s.RunUntilIdle(func() bool { return true })
	defer s.Stop()

	waitFor(t, &wg, 2*time.Second)
	if string(got) != "hello\n" {
		t.Fatalf("got = %q, want %q", got, "hello\n")
	}
}

// TestTCPCloseIsIdempotent checks that closing a connected socket twice
// emits "close" exactly once.
func TestTCPCloseIsIdempotent(t *testing.T) {
	s := scheduler.New(nil)
	loop := reactor.New(s)

	srv, err := ListenTCP(loop, s, nil, nil, "127.0.0.1:0", func(conn *TCPSocket) {})
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer srv.Close()

	client, err := DialTCP(loop, s, &activework.Counter{}, nil, srv.Addr().String(), TCPConnectOptions{})
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}

	var closeCount int
	var mu sync.Mutex
	client.On("close", func(args ...any) {
		mu.Lock()
		closeCount++
		mu.Unlock()
	})

	client.CloseStream()
	client.CloseStream()

	go s.RunUntilIdle(func() bool { return true })
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if closeCount != 1 {
		t.Fatalf("closeCount = %d, want 1", closeCount)
	}
}

func waitFor(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for expected event")
	}
}
