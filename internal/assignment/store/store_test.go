package store_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgerly/internal/assignment"
	"github.com/MrJamesThe3rd/ledgerly/internal/assignment/store"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *store.Store) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db, mock, store.New(db)
}

func TestStore_ListAssignments(t *testing.T) {
	employee, clientID := uuid.New(), uuid.New()
	assigned := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	type testCase struct {
		name   string
		filter assignment.ListFilter
		query  string
		args   []driver.Value
	}

	tests := []testCase{
		{
			name:   "ActiveForEmployeeAndClient",
			filter: assignment.ListFilter{EmployeeID: &employee, ClientID: &clientID},
			query:  `AND NOT is_removed AND employee_id = \$1 AND client_id = \$2 ORDER BY`,
			args:   []driver.Value{employee, clientID},
		},
		{
			name:   "IncludeRemoved",
			filter: assignment.ListFilter{IncludeRemoved: true, ClientID: &clientID},
			query:  `WHERE TRUE AND client_id = \$1 ORDER BY`,
			args:   []driver.Value{clientID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, s := setupMockDB(t)

			rows := sqlmock.NewRows([]string{"id", "employee_id", "client_id", "year", "month", "task", "assigned_at", "is_removed"}).
				AddRow(uuid.NewString(), employee.String(), clientID.String(), 2025, 6, "vat", assigned, false)

			mock.ExpectQuery(tt.query).WithArgs(tt.args...).WillReturnRows(rows)

			got, err := s.ListAssignments(context.Background(), tt.filter)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, ledger.Period{Year: 2025, Month: 6}, got[0].Period())
			assert.Equal(t, employee, got[0].EmployeeID)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_RemoveAssignment(t *testing.T) {
	_, mock, s := setupMockDB(t)

	id := uuid.New()

	mock.ExpectExec(`UPDATE employee_assignments SET is_removed = TRUE`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE employee_assignments SET is_removed = TRUE`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.RemoveAssignment(context.Background(), id))
	assert.ErrorIs(t, s.RemoveAssignment(context.Background(), id), ledger.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateAssignment(t *testing.T) {
	_, mock, s := setupMockDB(t)

	id := uuid.New()
	a := &assignment.Assignment{
		EmployeeID: uuid.New(),
		ClientID:   uuid.New(),
		Year:       2025,
		Month:      6,
		AssignedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery(`INSERT INTO employee_assignments`).
		WithArgs(a.EmployeeID, a.ClientID, 2025, 6, "", a.AssignedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))

	require.NoError(t, s.CreateAssignment(context.Background(), a))
	assert.Equal(t, id, a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
