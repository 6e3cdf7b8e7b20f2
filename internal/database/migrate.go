package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies the schema. Every statement is idempotent so it runs on
// each start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name           TEXT NOT NULL,
		email          TEXT NOT NULL DEFAULT '',
		active         BOOLEAN NOT NULL DEFAULT TRUE,
		deactivated_at TIMESTAMPTZ,
		reactivated_at TIMESTAMPTZ,
		subscription   JSONB NOT NULL DEFAULT '{}'::jsonb,
		document_tree  JSONB NOT NULL DEFAULT '{}'::jsonb,
		version        BIGINT NOT NULL DEFAULT 1,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS clients_active_idx ON clients (active)`,

	`CREATE TABLE IF NOT EXISTS employee_assignments (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		employee_id UUID NOT NULL,
		client_id   UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		year        INTEGER NOT NULL CHECK (year BETWEEN 2000 AND 2100),
		month       INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		task        TEXT NOT NULL DEFAULT '',
		assigned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		is_removed  BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS employee_assignments_active_uq
		ON employee_assignments (employee_id, client_id, year, month, task)
		WHERE NOT is_removed`,

	`CREATE TABLE IF NOT EXISTS reconciliation_runs (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		job         TEXT NOT NULL,
		run_date    TIMESTAMPTZ NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		trigger     TEXT NOT NULL,
		report      JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS reconciliation_runs_job_idx ON reconciliation_runs (job, started_at DESC)`,
}
