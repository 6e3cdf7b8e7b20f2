package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MrJamesThe3rd/ledgerly/internal/reconcile"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) SaveRun(ctx context.Context, run *reconcile.Run) error {
	query := `
		INSERT INTO reconciliation_runs (job, run_date, started_at, finished_at, trigger, report)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		run.Job,
		run.RunDate,
		run.StartedAt,
		run.FinishedAt,
		run.Trigger,
		[]byte(run.Report),
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("saving reconciliation run: %w", err)
	}

	return nil
}

func (s *Store) ListRuns(ctx context.Context, filter reconcile.RunFilter) ([]*reconcile.Run, error) {
	query := `
		SELECT id, job, run_date, started_at, finished_at, trigger, report
		FROM reconciliation_runs`

	var args []any

	argIdx := 1

	if filter.Job != nil {
		query += fmt.Sprintf(" WHERE job = $%d", argIdx)

		args = append(args, *filter.Job)
		argIdx++
	}

	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)

		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reconciliation runs: %w", err)
	}
	defer rows.Close()

	var runs []*reconcile.Run

	for rows.Next() {
		var (
			r      reconcile.Run
			report []byte
		)

		if err := rows.Scan(&r.ID, &r.Job, &r.RunDate, &r.StartedAt, &r.FinishedAt, &r.Trigger, &report); err != nil {
			return nil, fmt.Errorf("scanning reconciliation run: %w", err)
		}

		r.Report = report
		runs = append(runs, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reconciliation runs: %w", err)
	}

	return runs, nil
}
