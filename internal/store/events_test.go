package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"creatordesk/internal/model"
)

// testDB creates an in-memory SQLite database with the events schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			message TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX idx_events_created_at ON events(created_at DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func TestCreateAndListEvents(t *testing.T) {
	events := NewEvents(testDB(t))
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, msg := range []string{"first", "second", "third"} {
		_, err := events.CreateEvent(ctx, CreateEventParams{
			Level:     model.EventLevelWarning,
			Category:  model.EventCategoryPanel,
			Message:   msg,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreateEvent(%q) error = %v", msg, err)
		}
	}

	got, err := events.ListRecentEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentEvents() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events; want 2", len(got))
	}
	if got[0].Message != "third" || got[1].Message != "second" {
		t.Errorf("events out of order: %q, %q", got[0].Message, got[1].Message)
	}
	if got[0].Metadata != "{}" {
		t.Errorf("Metadata = %q; want default {}", got[0].Metadata)
	}
}

func TestPruneEvents(t *testing.T) {
	events := NewEvents(testDB(t))
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	for _, at := range []time.Time{old, old, recent} {
		if _, err := events.CreateEvent(ctx, CreateEventParams{
			Level:     model.EventLevelInfo,
			Category:  model.EventCategorySystem,
			Message:   "event",
			CreatedAt: at,
		}); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
	}

	pruned, err := events.PruneEvents(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneEvents() error = %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned = %d; want 2", pruned)
	}

	remaining, err := events.ListRecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentEvents() error = %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("remaining = %d; want 1", len(remaining))
	}
}
