package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/assignment"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateAssignment(ctx context.Context, a *assignment.Assignment) error {
	query := `
		INSERT INTO employee_assignments (employee_id, client_id, year, month, task, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		a.EmployeeID,
		a.ClientID,
		a.Year,
		a.Month,
		a.Task,
		a.AssignedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("creating assignment: %w", err)
	}

	return nil
}

func (s *Store) ListAssignments(ctx context.Context, filter assignment.ListFilter) ([]*assignment.Assignment, error) {
	query := `
		SELECT id, employee_id, client_id, year, month, task, assigned_at, is_removed
		FROM employee_assignments
		WHERE TRUE`

	var args []any

	argIdx := 1

	if !filter.IncludeRemoved {
		query += " AND NOT is_removed"
	}

	if filter.EmployeeID != nil {
		query += fmt.Sprintf(" AND employee_id = $%d", argIdx)

		args = append(args, *filter.EmployeeID)
		argIdx++
	}

	if filter.ClientID != nil {
		query += fmt.Sprintf(" AND client_id = $%d", argIdx)

		args = append(args, *filter.ClientID)
	}

	query += " ORDER BY year ASC, month ASC, assigned_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var list []*assignment.Assignment

	for rows.Next() {
		var a assignment.Assignment
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.ClientID, &a.Year, &a.Month, &a.Task, &a.AssignedAt, &a.IsRemoved); err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}

		list = append(list, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignments: %w", err)
	}

	return list, nil
}

func (s *Store) RemoveAssignment(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE employee_assignments SET is_removed = TRUE WHERE id = $1 AND NOT is_removed`, id)
	if err != nil {
		return fmt.Errorf("removing assignment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("removing assignment: %w", err)
	}

	if n == 0 {
		return &ledger.NotFoundError{Kind: "assignment", Key: id.String()}
	}

	return nil
}
