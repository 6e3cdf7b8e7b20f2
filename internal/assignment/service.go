package assignment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/encoding"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=assignment
type Repository interface {
	CreateAssignment(ctx context.Context, a *Assignment) error
	ListAssignments(ctx context.Context, filter ListFilter) ([]*Assignment, error)
	RemoveAssignment(ctx context.Context, id uuid.UUID) error
}

// ListFilter narrows ListAssignments. Removed assignments are excluded
// unless IncludeRemoved is set.
type ListFilter struct {
	EmployeeID     *uuid.UUID
	ClientID       *uuid.UUID
	IncludeRemoved bool
}

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{repo: repo, logger: logger, now: time.Now}
}

// ActiveScope returns the months of clientID the employee is currently
// assigned to.
func (s *Service) ActiveScope(ctx context.Context, employeeID, clientID uuid.UUID) (ledger.PeriodSet, error) {
	list, err := s.repo.ListAssignments(ctx, ListFilter{EmployeeID: &employeeID, ClientID: &clientID})
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}

	scope := ledger.NewPeriodSet()

	for _, a := range list {
		if a.IsRemoved || a.ClientID != clientID {
			continue
		}

		scope.Add(a.Period())
	}

	return scope, nil
}

type CreateParams struct {
	EmployeeID uuid.UUID
	ClientID   uuid.UUID
	Period     ledger.Period
	Task       string
}

func (p CreateParams) validate() error {
	if p.EmployeeID == uuid.Nil {
		return &ledger.ValidationError{Field: "employeeId", Reason: "must be set"}
	}

	if p.ClientID == uuid.Nil {
		return &ledger.ValidationError{Field: "clientId", Reason: "must be set"}
	}

	return p.Period.Validate()
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Assignment, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	a := &Assignment{
		EmployeeID: params.EmployeeID,
		ClientID:   params.ClientID,
		Year:       params.Period.Year,
		Month:      params.Period.Month,
		Task:       params.Task,
		AssignedAt: s.now(),
	}

	if err := s.repo.CreateAssignment(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Assignment, error) {
	return s.repo.ListAssignments(ctx, filter)
}

// Remove soft-deletes an assignment; the employee loses access immediately.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	return s.repo.RemoveAssignment(ctx, id)
}

// ImportResult reports a roster import. Rows are numbered from 1 including
// the header.
type ImportResult struct {
	Created int
	Skipped int
	Errors  []RowError
}

type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

var rosterColumns = []string{"employee_id", "client_id", "year", "month"}

// ImportRoster reads a CSV roster with columns employee_id, client_id, year,
// month and an optional task. Charset and delimiter are detected. Bad rows are
// reported and skipped; assignments that already exist are counted as
// skipped.
func (s *Service) ImportRoster(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader, err := encoding.NewCSVReader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(rows) == 0 {
		return nil, &ledger.ValidationError{Field: "roster", Reason: "file is empty"}
	}

	cols, err := rosterHeader(rows[0])
	if err != nil {
		return nil, err
	}

	existing, err := s.existingKeys(ctx)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{}

	for i, row := range rows[1:] {
		rowNum := i + 2

		params, err := parseRosterRow(cols, row)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: rowNum, Err: err})
			continue
		}

		k := keyOf(params.EmployeeID, params.ClientID, params.Period, params.Task)
		if _, dup := existing[k]; dup {
			res.Skipped++
			continue
		}

		if _, err := s.Create(ctx, params); err != nil {
			if errors.Is(err, ledger.ErrValidation) {
				res.Errors = append(res.Errors, RowError{Row: rowNum, Err: err})
				continue
			}

			return res, fmt.Errorf("creating assignment from row %d: %w", rowNum, err)
		}

		existing[k] = struct{}{}
		res.Created++
	}

	s.logger.Info("roster imported",
		"created", res.Created,
		"skipped", res.Skipped,
		"errors", len(res.Errors),
	)

	return res, nil
}

type rosterKey struct {
	employee, client uuid.UUID
	period           ledger.Period
	task             string
}

func keyOf(employee, client uuid.UUID, p ledger.Period, task string) rosterKey {
	return rosterKey{employee: employee, client: client, period: p, task: task}
}

func (s *Service) existingKeys(ctx context.Context) (map[rosterKey]struct{}, error) {
	list, err := s.repo.ListAssignments(ctx, ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}

	keys := make(map[rosterKey]struct{}, len(list))
	for _, a := range list {
		keys[keyOf(a.EmployeeID, a.ClientID, a.Period(), a.Task)] = struct{}{}
	}

	return keys, nil
}

func rosterHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for _, c := range rosterColumns {
		if _, ok := cols[c]; !ok {
			return nil, &ledger.ValidationError{Field: "roster header", Reason: "missing column " + c}
		}
	}

	return cols, nil
}

func parseRosterRow(cols map[string]int, row []string) (CreateParams, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}

		return strings.TrimSpace(row[i])
	}

	var (
		params CreateParams
		err    error
	)

	if params.EmployeeID, err = uuid.Parse(get("employee_id")); err != nil {
		return params, &ledger.ValidationError{Field: "employee_id", Reason: err.Error()}
	}

	if params.ClientID, err = uuid.Parse(get("client_id")); err != nil {
		return params, &ledger.ValidationError{Field: "client_id", Reason: err.Error()}
	}

	if params.Period.Year, err = strconv.Atoi(get("year")); err != nil {
		return params, &ledger.ValidationError{Field: "year", Reason: "not a number"}
	}

	if params.Period.Month, err = strconv.Atoi(get("month")); err != nil {
		return params, &ledger.ValidationError{Field: "month", Reason: "not a number"}
	}

	params.Task = get("task")

	return params, params.validate()
}
