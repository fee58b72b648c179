package logging

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"creatordesk/internal/model"
	"creatordesk/internal/store"
)

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
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func testLogger(t *testing.T, db *sql.DB) *slog.Logger {
	t.Helper()
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewEventLogHandler(inner, db))
}

func TestWarnRecordsReachEventLog(t *testing.T) {
	db := testDB(t)
	logger := testLogger(t, db)

	logger.Warn("panel fetch failed", "panel", "users", "error", "boom")
	logger.Info("user logged in") // Below threshold, must not be persisted

	events, err := store.NewEvents(db).ListRecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecentEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events; want 1", len(events))
	}
	if events[0].Level != model.EventLevelWarning {
		t.Errorf("Level = %q; want warning", events[0].Level)
	}
	if events[0].Message != "panel fetch failed" {
		t.Errorf("Message = %q", events[0].Message)
	}
}

func TestCategoryFromAttribute(t *testing.T) {
	db := testDB(t)
	logger := testLogger(t, db)

	logger.Error("something odd", "category", model.EventCategoryUpload)

	events, err := store.NewEvents(db).ListRecentEvents(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListRecentEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events; want 1", len(events))
	}
	if events[0].Category != model.EventCategoryUpload {
		t.Errorf("Category = %q; want upload", events[0].Category)
	}
}

func TestCategoryInference(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"admin login rejected", model.EventCategoryAuth},
		{"upload request failed", model.EventCategoryUpload},
		{"error deleting user", model.EventCategoryPanel},
		{"cache backend unavailable", model.EventCategoryCache},
		{"disk almost full", model.EventCategorySystem},
	}

	db := testDB(t)
	logger := testLogger(t, db)

	for _, tt := range tests {
		logger.Warn(tt.message)
	}

	events, err := store.NewEvents(db).ListRecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecentEvents() error = %v", err)
	}
	if len(events) != len(tests) {
		t.Fatalf("got %d events; want %d", len(events), len(tests))
	}
	// ListRecentEvents returns newest first
	for i, tt := range tests {
		ev := events[len(events)-1-i]
		if ev.Category != tt.want {
			t.Errorf("category for %q = %q; want %q", tt.message, ev.Category, tt.want)
		}
	}
}

func TestMetadataSerialization(t *testing.T) {
	db := testDB(t)
	logger := testLogger(t, db)

	logger.Warn("panel fetch failed", "panel", "images", "status", 503)

	events, err := store.NewEvents(db).ListRecentEvents(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListRecentEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events; want 1", len(events))
	}
	want := `{"panel":"images","status":"503"}`
	if events[0].Metadata != want {
		t.Errorf("Metadata = %q; want %q", events[0].Metadata, want)
	}
}
