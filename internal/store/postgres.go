package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"intake-platform/internal/intake"
	"intake-platform/pkg/utils"
)

var errUnavailable = errors.New("store: unavailable")

// Postgres persists call records via database/sql over the pgx stdlib
// driver.
//
// Schema (call_records):
//
//	call_id             TEXT PRIMARY KEY
//	external_call_ref   TEXT NOT NULL
//	caller_phone        TEXT NOT NULL
//	status              TEXT NOT NULL
//	customer_fields     JSONB NOT NULL DEFAULT '{}'
//	urgency             INT  NOT NULL DEFAULT 0
//	notification_status TEXT NOT NULL DEFAULT 'not_attempted'
//	created_at          TIMESTAMPTZ NOT NULL
//	updated_at          TIMESTAMPTZ NOT NULL
//
// customer_fields is stored as a single JSONB value and replaced atomically
// on merge; records are never deleted here (retention is an ops concern).

type Postgres struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, clock: time.Now}
}

func (p *Postgres) Create(ctx context.Context, callID, callerPhone, externalRef string) (intake.CallRecord, error) {
	now := p.clock().UTC()
	rec := intake.CallRecord{
		CallID:             callID,
		ExternalCallRef:    externalRef,
		CallerPhone:        callerPhone,
		Status:             intake.StatusStarted,
		NotificationStatus: intake.NotificationNotAttempted,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	// Idempotent on call_id so a retried webhook does not error.
	err := utils.WithTx(ctx, p.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO call_records
				(call_id, external_call_ref, caller_phone, status, customer_fields, urgency, notification_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, '{}', 0, $5, $6, $6)
			ON CONFLICT (call_id) DO NOTHING`,
			callID, externalRef, callerPhone, rec.Status, rec.NotificationStatus, now)
		return err
	})
	if err != nil {
		return intake.CallRecord{}, fmt.Errorf("store: create call record: %w", err)
	}
	return rec, nil
}

func (p *Postgres) MergeFields(ctx context.Context, callID string, fields intake.CustomerFields) error {
	blob, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("store: encode customer fields: %w", err)
	}
	return p.exec(ctx, callID, `
		UPDATE call_records SET customer_fields = $2, updated_at = $3 WHERE call_id = $1`,
		callID, blob, p.clock().UTC())
}

func (p *Postgres) SetUrgency(ctx context.Context, callID string, urgency int) error {
	// urgency = 0 guard keeps the first rating immutable.
	return p.exec(ctx, callID, `
		UPDATE call_records SET urgency = $2, updated_at = $3 WHERE call_id = $1 AND urgency = 0`,
		callID, urgency, p.clock().UTC())
}

func (p *Postgres) SetStatus(ctx context.Context, callID string, status intake.CallStatus) error {
	return p.exec(ctx, callID, `
		UPDATE call_records SET status = $2, updated_at = $3 WHERE call_id = $1`,
		callID, status, p.clock().UTC())
}

func (p *Postgres) SetNotificationStatus(ctx context.Context, callID string, ns intake.NotificationStatus) error {
	return p.exec(ctx, callID, `
		UPDATE call_records SET notification_status = $2, updated_at = $3 WHERE call_id = $1`,
		callID, ns, p.clock().UTC())
}

func (p *Postgres) Get(ctx context.Context, callID string) (intake.CallRecord, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT call_id, external_call_ref, caller_phone, status, customer_fields, urgency, notification_status, created_at, updated_at
		FROM call_records WHERE call_id = $1`, callID)
	return scanRecord(row)
}

func (p *Postgres) ListNotificationFailures(ctx context.Context) ([]intake.CallRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT call_id, external_call_ref, caller_phone, status, customer_fields, urgency, notification_status, created_at, updated_at
		FROM call_records WHERE notification_status = $1 ORDER BY created_at DESC`,
		intake.NotificationFailed)
	if err != nil {
		return nil, fmt.Errorf("store: list notification failures: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (p *Postgres) ListCalls(ctx context.Context, from, to time.Time) ([]intake.CallRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT call_id, external_call_ref, caller_phone, status, customer_fields, urgency, notification_status, created_at, updated_at
		FROM call_records WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("store: list calls: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (p *Postgres) exec(ctx context.Context, callID, query string, args ...any) error {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: update call %s: %w", callID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either the record does not exist or an immutability guard held;
		// the SetUrgency guard intentionally lands here on a second rating.
		if exists, err := p.exists(ctx, callID); err == nil && !exists {
			return intake.ErrNotFound
		}
	}
	return nil
}

func (p *Postgres) exists(ctx context.Context, callID string) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx, `SELECT 1 FROM call_records WHERE call_id = $1`, callID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (intake.CallRecord, error) {
	var rec intake.CallRecord
	var blob []byte
	err := row.Scan(&rec.CallID, &rec.ExternalCallRef, &rec.CallerPhone, &rec.Status,
		&blob, &rec.Urgency, &rec.NotificationStatus, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return intake.CallRecord{}, intake.ErrNotFound
	}
	if err != nil {
		return intake.CallRecord{}, fmt.Errorf("store: scan call record: %w", err)
	}
	if len(blob) > 0 {
		if err := json.Unmarshal(blob, &rec.CustomerFields); err != nil {
			return intake.CallRecord{}, fmt.Errorf("store: decode customer fields: %w", err)
		}
	}
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]intake.CallRecord, error) {
	out := make([]intake.CallRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
