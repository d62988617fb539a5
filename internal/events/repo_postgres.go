package events

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo appends to the intake_events table:
//
//	id         TEXT PRIMARY KEY
//	call_id    TEXT NOT NULL
//	kind       TEXT NOT NULL
//	message    TEXT NOT NULL DEFAULT ''
//	created_at TIMESTAMPTZ NOT NULL

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO intake_events (id, call_id, kind, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.CallID, e.Kind, e.Message, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("events: append: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListByCall(ctx context.Context, callID string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, call_id, kind, message, created_at
		FROM intake_events WHERE call_id = $1 ORDER BY created_at`, callID)
	if err != nil {
		return nil, fmt.Errorf("events: list by call: %w", err)
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.CallID, &e.Kind, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("events: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
