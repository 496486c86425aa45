// Package db provides database connection helpers, schema migration, and the
// terminal-prediction audit trail. The audit store is optional: the engine's
// working state is memory-resident and the database is only written behind
// terminal transitions, never read on the ingestion path.
package db

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'

	"github.com/appolinair2355/Apdepo/predictor"
)

// Connect opens a Postgres connection for the given DSN.
func Connect(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes for all required tables. It is
// the embedded fallback for deployments without the versioned migration
// files on disk.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			target_index INTEGER PRIMARY KEY,
			created_from INTEGER NOT NULL,
			combination TEXT,
			status TEXT NOT NULL,
			verify_offset INTEGER DEFAULT 0,
			message_id BIGINT DEFAULT 0,
			created_at TIMESTAMPTZ,
			resolved_at TIMESTAMPTZ,
			recorded_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_resolved_at ON predictions (resolved_at DESC)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// AuditStore records terminal predictions. It satisfies predictor.AuditSink.
type AuditStore struct {
	DB *sql.DB
}

// RecordTerminal upserts one terminal prediction. Failures are logged, not
// surfaced: the audit trail must never stall or fail the engine.
func (s *AuditStore) RecordTerminal(ctx context.Context, p predictor.Prediction) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_, err := s.DB.ExecContext(wctx, `INSERT INTO predictions
		(target_index, created_from, combination, status, verify_offset, message_id, created_at, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (target_index) DO UPDATE SET
			status=EXCLUDED.status, verify_offset=EXCLUDED.verify_offset,
			message_id=EXCLUDED.message_id, resolved_at=EXCLUDED.resolved_at`,
		p.TargetIndex, p.CreatedFromIndex, p.Combination, p.Status.String(),
		p.Offset, p.MessageID, p.CreatedAt, p.ResolvedAt)
	if err != nil {
		slog.Warn("audit record failed", slog.Int("target", p.TargetIndex), slog.Any("err", err))
	}
}

// AuditRow is one recorded terminal prediction as served by /status.
type AuditRow struct {
	TargetIndex int       `json:"target_index"`
	Status      string    `json:"status"`
	Offset      int       `json:"offset"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// RecentTerminal returns the most recently resolved predictions.
func RecentTerminal(ctx context.Context, db *sql.DB, limit int) ([]AuditRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx, `SELECT target_index, status, verify_offset, resolved_at
		FROM predictions WHERE resolved_at IS NOT NULL
		ORDER BY resolved_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		if err := rows.Scan(&r.TargetIndex, &r.Status, &r.Offset, &r.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Heartbeat upserts a timestamped kv marker so /status can show when a
// component last ran.
func Heartbeat(ctx context.Context, db *sql.DB, key string) {
	_, _ = db.ExecContext(ctx, `INSERT INTO kv (key,value,updated_at)
		VALUES ($1, to_char(NOW() AT TIME ZONE 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"'), NOW())
		ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`, key)
}
