package stream

import (
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/swazilang/asyncrt/internal/activework"
	"github.com/swazilang/asyncrt/internal/reactor"
	"github.com/swazilang/asyncrt/internal/scheduler"
)

func mkfifo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.fifo")
	if err := syscall.Mkfifo(path, 0600); err != nil {
		t.Fatalf("Mkfifo: %v", err)
	}
	return path
}

// TestPipeQueuesWritesUntilReady mirrors the named-pipe lifecycle: a
// writer end opens before any reader exists (blocking in the kernel), so
// writes submitted immediately are queued and flushed, in order, once the
// peer is present and "ready" fires.
func TestPipeQueuesWritesUntilReady(t *testing.T) {
	s := scheduler.New(nil)
	loop := reactor.New(s)
	path := mkfifo(t)

	go s.RunUntilIdle(func() bool { return true })
	defer s.Stop()

	writer := OpenPipe(loop, s, &activework.Counter{}, nil, path, false)
	writer.Write([]byte("first"))
	writer.Write([]byte("second"))

	var mu sync.Mutex
	var chunks [][]byte
	done := make(chan struct{})
	reader := OpenPipe(loop, s, &activework.Counter{}, nil, path, true)
	reader.On("data", func(args ...any) {
		mu.Lock()
		chunks = append(chunks, args[0].([]byte))
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reader to receive pending writes")
	}
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(chunks) == 0 {
		t.Fatal("reader received no data")
	}
	var all []byte
	for _, c := range chunks {
		all = append(all, c...)
	}
	if string(all) != "firstsecond" {
		t.Fatalf("got = %q, want firstsecond (FIFO order preserved)", all)
	}

	writer.ClosePipe()
	reader.ClosePipe()
}
