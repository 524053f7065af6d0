// Package diagnostics implements the optional loop-events journal: a
// SQLite-backed recorder of scheduler ticks, timer fire/cancel events,
// and stream open/close transitions, for post-mortem debugging. Disabled
// by default — a nil *Journal is a valid no-op receiver for every method
// here, matching the original runtime's opt-in Durable Object/D1 storage
// pattern of isolating an on-disk database behind a validated handle.
package diagnostics

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Event is one journal row. Never read by the core scheduler/timer/stream
// packages — this is a pure observer.
type Event struct {
	ID     uint `gorm:"primaryKey"`
	Kind   string
	Detail string
	At     time.Time
}

// TableName pins the table name regardless of gorm's pluralization
// conventions, matching the fixed schema named in the design.
func (Event) TableName() string { return "loop_events" }

// Journal wraps a gorm.DB opened against a SQLite file. A nil *Journal is
// a safe no-op — every method below guards against it — so callers can
// pass a nil journal everywhere the DiagnosticsDSN config was left empty.
type Journal struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at dsn and migrates the
// loop_events schema. An empty dsn is rejected — callers wanting a no-op
// journal should use a nil *Journal instead of calling Open.
func Open(dsn string) (*Journal, error) {
	if dsn == "" {
		return nil, fmt.Errorf("diagnostics: empty DSN")
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("diagnostics: open %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("diagnostics: migrate: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends one event. A nil Journal or nil *gorm.DB makes this a
// silent no-op, so production call sites never need a nil check before
// calling Record.
func (j *Journal) Record(kind, detail string) {
	if j == nil || j.db == nil {
		return
	}
	j.db.Create(&Event{Kind: kind, Detail: detail, At: timeNow()})
}

// timeNow is split out so tests can't be surprised by wall-clock skew
// across a slow CI run; kept trivial since the journal has no ordering
// invariant beyond insertion order.
func timeNow() time.Time { return time.Now() }

// Events returns every recorded event of the given kind, oldest first. An
// empty kind returns every event regardless of kind.
func (j *Journal) Events(kind string) ([]Event, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	var events []Event
	q := j.db.Order("id asc")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("diagnostics: query: %w", err)
	}
	return events, nil
}

// Close releases the underlying database connection. Safe to call on a
// nil Journal.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
