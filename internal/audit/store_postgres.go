package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresStore persists audit records in PostgreSQL through database/sql.
// The caller owns the *sql.DB and registers the driver (lib/pq).
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresStoreOption configures a PostgresStore.
type PostgresStoreOption func(*PostgresStore)

// WithPostgresClock sets the clock used for zero-timestamp records.
func WithPostgresClock(clock func() time.Time) PostgresStoreOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewPostgresStore(db *sql.DB, opts ...PostgresStoreOption) *PostgresStore {
	s := &PostgresStore{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnsureSchema creates the audit table when it does not exist yet. Called
// once at startup; safe to call repeatedly.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_records (
			id          UUID PRIMARY KEY,
			timestamp   TIMESTAMPTZ NOT NULL,
			session_id  TEXT NOT NULL,
			action      TEXT NOT NULL,
			outcome     TEXT NOT NULL,
			reason      TEXT NOT NULL DEFAULT '',
			samples     INTEGER NOT NULL DEFAULT 0,
			kos         INTEGER NOT NULL DEFAULT 0,
			matches     INTEGER NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			request_id  TEXT NOT NULL DEFAULT '',
			client_ip   TEXT NOT NULL DEFAULT '',
			device      TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_audit_records_session
			ON audit_records (session_id, timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_records_timestamp
			ON audit_records (timestamp DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.clock()
	}
	query := `
		INSERT INTO audit_records (
			id, timestamp, session_id, action, outcome, reason,
			samples, kos, matches, duration_ms,
			request_id, client_ip, device
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		rec.Timestamp,
		rec.SessionID,
		string(rec.Action),
		rec.Outcome,
		rec.Reason,
		rec.Samples,
		rec.KOs,
		rec.Matches,
		rec.DurationMS,
		rec.RequestID,
		rec.ClientIP,
		rec.Device,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySession(ctx context.Context, sessionID string) ([]Record, error) {
	query := `
		SELECT timestamp, session_id, action, outcome, reason,
			   samples, kos, matches, duration_ms,
			   request_id, client_ip, device
		FROM audit_records
		WHERE session_id = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	query := `
		SELECT timestamp, session_id, action, outcome, reason,
			   samples, kos, matches, duration_ms,
			   request_id, client_ip, device
		FROM audit_records
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			rec    Record
			action string
		)
		err := rows.Scan(
			&rec.Timestamp,
			&rec.SessionID,
			&action,
			&rec.Outcome,
			&rec.Reason,
			&rec.Samples,
			&rec.KOs,
			&rec.Matches,
			&rec.DurationMS,
			&rec.RequestID,
			&rec.ClientIP,
			&rec.Device,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Action = Action(action)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
