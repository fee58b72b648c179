package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"creatordesk/internal/model"
)

// Events provides access to the audit event log.
type Events struct {
	db *sql.DB
}

// NewEvents creates an Events store over the given database.
func NewEvents(db *sql.DB) *Events {
	return &Events{db: db}
}

// CreateEventParams holds the fields for a new event log entry.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent inserts one event log entry.
func (e *Events) CreateEvent(ctx context.Context, params CreateEventParams) (int64, error) {
	if params.Metadata == "" {
		params.Metadata = "{}"
	}
	if params.CreatedAt.IsZero() {
		params.CreatedAt = time.Now()
	}

	res, err := e.db.ExecContext(ctx,
		`INSERT INTO events (level, category, message, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		params.Level, params.Category, params.Message, params.Metadata, params.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting event: %w", err)
	}
	return res.LastInsertId()
}

// ListRecentEvents returns the most recent events, newest first.
func (e *Events) ListRecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := e.db.QueryContext(ctx,
		`SELECT id, level, category, message, metadata, created_at FROM events ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Level, &ev.Category, &ev.Message, &ev.Metadata, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// PruneEvents deletes events older than the given cutoff. Returns the number
// of rows removed.
func (e *Events) PruneEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := e.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return res.RowsAffected()
}
