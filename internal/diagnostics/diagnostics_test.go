package diagnostics

import (
	"path/filepath"
	"testing"
)

func TestOpenRejectsEmptyDSN(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected an error for an empty DSN")
	}
}

func TestNilJournalMethodsAreNoops(t *testing.T) {
	var j *Journal
	j.Record("scheduler.tick", "macrotask ran")
	events, err := j.Events("")
	if err != nil || events != nil {
		t.Fatalf("events = %v, err = %v, want nil, nil", events, err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close on nil journal: %v", err)
	}
}

func TestRecordAndQueryRoundTrip(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "journal.sqlite3")
	j, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	j.Record("timer.fire", "id=1")
	j.Record("stream.open", "kind=tcp")
	j.Record("timer.fire", "id=2")

	timerEvents, err := j.Events("timer.fire")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(timerEvents) != 2 {
		t.Fatalf("len(timerEvents) = %d, want 2", len(timerEvents))
	}
	if timerEvents[0].Detail != "id=1" || timerEvents[1].Detail != "id=2" {
		t.Fatalf("timer events out of order: %+v", timerEvents)
	}

	all, err := j.Events("")
	if err != nil {
		t.Fatalf("Events(\"\"): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
}
