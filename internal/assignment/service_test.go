package assignment_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/ledgerly/internal/assignment"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

func TestService_ActiveScope(t *testing.T) {
	employee, clientID := uuid.New(), uuid.New()

	type testCase struct {
		name      string
		setupMock func(m *assignment.MockRepository)
		want      []ledger.Period
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "ActiveOnly",
			setupMock: func(m *assignment.MockRepository) {
				m.EXPECT().
					ListAssignments(gomock.Any(), assignment.ListFilter{EmployeeID: &employee, ClientID: &clientID}).
					Return([]*assignment.Assignment{
						{EmployeeID: employee, ClientID: clientID, Year: 2025, Month: 5},
						{EmployeeID: employee, ClientID: clientID, Year: 2025, Month: 6, Task: "vat"},
						{EmployeeID: employee, ClientID: clientID, Year: 2025, Month: 7, IsRemoved: true},
					}, nil)
			},
			want: []ledger.Period{{Year: 2025, Month: 5}, {Year: 2025, Month: 6}},
		},
		{
			name: "Empty",
			setupMock: func(m *assignment.MockRepository) {
				m.EXPECT().ListAssignments(gomock.Any(), gomock.Any()).Return(nil, nil)
			},
		},
		{
			name: "RepoError",
			setupMock: func(m *assignment.MockRepository) {
				m.EXPECT().ListAssignments(gomock.Any(), gomock.Any()).Return(nil, errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := assignment.NewMockRepository(ctrl)
			tt.setupMock(repo)

			svc := assignment.NewService(repo, nil)
			got, err := svc.ActiveScope(context.Background(), employee, clientID)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, got, len(tt.want))

			for _, p := range tt.want {
				assert.True(t, got.Contains(p), p.String())
			}

			assert.False(t, got.Contains(ledger.Period{Year: 2025, Month: 7}))
		})
	}
}

func TestService_Create_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := assignment.NewService(assignment.NewMockRepository(ctrl), nil)

	_, err := svc.Create(context.Background(), assignment.CreateParams{
		ClientID: uuid.New(),
		Period:   ledger.Period{Year: 2025, Month: 6},
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = svc.Create(context.Background(), assignment.CreateParams{
		EmployeeID: uuid.New(),
		ClientID:   uuid.New(),
		Period:     ledger.Period{Year: 2025, Month: 13},
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestService_ImportRoster(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	e1, c1 := uuid.New(), uuid.New()

	csv := strings.Join([]string{
		"Employee_ID;Client_ID;Year;Month;Task",
		e1.String() + ";" + c1.String() + ";2025;6;vat",
		e1.String() + ";" + c1.String() + ";2025;7;vat",
		"not-a-uuid;" + c1.String() + ";2025;7;",
		e1.String() + ";" + c1.String() + ";2025;13;",
		e1.String() + ";" + c1.String() + ";2025;7;vat",
	}, "\n")

	repo := assignment.NewMockRepository(ctrl)
	repo.EXPECT().
		ListAssignments(gomock.Any(), assignment.ListFilter{}).
		Return([]*assignment.Assignment{{EmployeeID: e1, ClientID: c1, Year: 2025, Month: 6, Task: "vat"}}, nil)

	var created []*assignment.Assignment

	repo.EXPECT().
		CreateAssignment(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a *assignment.Assignment) error {
			a.ID = uuid.New()
			created = append(created, a)

			return nil
		})

	svc := assignment.NewService(repo, nil)

	res, err := svc.ImportRoster(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 4, res.Errors[0].Row)
	assert.Equal(t, 5, res.Errors[1].Row)
	assert.ErrorIs(t, res.Errors[1].Err, ledger.ErrValidation)

	require.Len(t, created, 1)
	assert.Equal(t, 7, created[0].Month)
	assert.Equal(t, "vat", created[0].Task)
}

func TestService_ImportRoster_MissingColumn(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := assignment.NewService(assignment.NewMockRepository(ctrl), nil)

	_, err := svc.ImportRoster(context.Background(), strings.NewReader("employee_id,client_id,year\n"))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}
