package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/notes"
	"github.com/MrJamesThe3rd/ledgerly/internal/plan"
	"github.com/MrJamesThe3rd/ledgerly/internal/tenantlock"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=client
type Repository interface {
	CreateClient(ctx context.Context, c *Client) error
	GetClient(ctx context.Context, id uuid.UUID) (*Client, error)
	ListClients(ctx context.Context, filter ListFilter) ([]*Client, error)
	ListClientIDs(ctx context.Context) ([]uuid.UUID, error)
	// SaveClient persists c only if the stored version still equals c.Version,
	// then increments c.Version. A stale version yields ledger.ErrConflict.
	SaveClient(ctx context.Context, c *Client) error
}

// ScopeSource resolves which months of a client an employee is assigned to.
type ScopeSource interface {
	ActiveScope(ctx context.Context, employeeID, clientID uuid.UUID) (ledger.PeriodSet, error)
}

// Notifier is told about events worth an email. Implementations must not
// fail the calling operation.
type Notifier interface {
	MonthLocked(ctx context.Context, c *Client, p ledger.Period, actor string)
	PlanChanged(ctx context.Context, c *Client, outcome plan.Outcome)
}

type ListFilter struct {
	Active *bool
}

const maxSaveAttempts = 3

type Service struct {
	repo     Repository
	locker   tenantlock.Locker
	scopes   ScopeSource
	notifier Notifier
	engine   *notes.Engine
	plans    *plan.Scheduler
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLocker(l tenantlock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithScopeSource(src ScopeSource) Option {
	return func(s *Service) { s.scopes = src }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithPlanScheduler(p *plan.Scheduler) Option {
	return func(s *Service) { s.plans = p }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		loc:    time.UTC,
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.locker == nil {
		s.locker = tenantlock.NewLocal()
	}

	if s.plans == nil {
		s.plans = plan.NewScheduler(nil, s.loc)
	}

	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}

	s.engine = notes.NewEngine(s.logger)

	return s
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) Plans() *plan.Scheduler {
	return s.plans
}

// MutateFunc changes c in place and reports whether anything changed.
// Unchanged clients are not saved.
type MutateFunc func(c *Client) (changed bool, err error)

// Mutate is the single read-modify-write path for a tenant. It holds the
// tenant lock for the whole cycle and saves with a version check; a lost race
// reloads and reapplies fn up to maxSaveAttempts times before ErrConflict is
// returned.
func (s *Service) Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*Client, error) {
	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("locking client %s: %w", id, err)
	}
	defer release()

	for attempt := 1; ; attempt++ {
		c, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}

		changed, err := fn(c)
		if err != nil {
			return nil, err
		}

		if !changed {
			return c, nil
		}

		err = s.repo.SaveClient(ctx, c)
		if err == nil {
			return c, nil
		}

		if !ledger.IsRetryable(err) || attempt == maxSaveAttempts {
			return nil, fmt.Errorf("saving client %s: %w", id, err)
		}

		s.logger.Warn("client modified concurrently, retrying",
			"client_id", id,
			"attempt", attempt,
		)
	}
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Client, error) {
	c, err := s.repo.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.Tree == nil {
		c.Tree = ledger.NewTree()
	}

	return c, nil
}

type CreateParams struct {
	Name  string
	Email string
	Plan  string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Client, error) {
	if params.Name == "" {
		return nil, &ledger.ValidationError{Field: "name", Reason: "must not be empty"}
	}

	if _, ok := s.plans.Catalog().Lookup(params.Plan); !ok {
		return nil, &plan.InvalidPlanError{Plan: params.Plan, Reason: "unknown plan"}
	}

	now := s.now()

	c := &Client{
		Name:   params.Name,
		Email:  params.Email,
		Active: true,
		Subscription: plan.Subscription{
			ActivePlan:  params.Plan,
			ActiveSince: now,
			History:     []plan.ChangeRecord{},
		},
		Tree: ledger.NewTree(),
	}

	if err := s.repo.CreateClient(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.load(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Client, error) {
	return s.repo.ListClients(ctx, filter)
}

func (s *Service) ListClientIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListClientIDs(ctx)
}

// Deactivate marks the tenant inactive. Months created afterwards pick up the
// inactive status.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, actor Actor) (*Client, error) {
	if actor.Role != ledger.RoleAdmin {
		return nil, ledger.ErrForbidden
	}

	return s.Mutate(ctx, id, func(c *Client) (bool, error) {
		if !c.Active {
			return false, nil
		}

		now := s.now()
		c.Active = false
		c.DeactivatedAt = &now

		return true, nil
	})
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID, actor Actor) (*Client, error) {
	if actor.Role != ledger.RoleAdmin {
		return nil, ledger.ErrForbidden
	}

	return s.Mutate(ctx, id, func(c *Client) (bool, error) {
		if c.Active {
			return false, nil
		}

		now := s.now()
		c.Active = true
		c.ReactivatedAt = &now

		return true, nil
	})
}

// monthFor returns the month container of p, creating it with the tenant's
// status for that month if needed.
func (s *Service) monthFor(c *Client, p ledger.Period) (*ledger.Month, error) {
	m, _, err := c.Tree.GetOrCreate(p, c.ActivityWindow().StatusFor(p, s.loc), s.now())
	return m, err
}

// viewer turns an actor into a notes.Viewer. Employees always carry their
// assignment scope; admins only when they asked for assigned months.
func (s *Service) viewer(ctx context.Context, clientID uuid.UUID, actor Actor, needScope bool) (notes.Viewer, error) {
	v := notes.Viewer{Role: actor.Role, ID: actor.ID}

	switch actor.Role {
	case ledger.RoleClient:
		if actor.ID != clientID {
			return v, ledger.ErrForbidden
		}
	case ledger.RoleEmployee:
		needScope = true
	case ledger.RoleAdmin:
	default:
		return v, &ledger.ValidationError{Field: "role", Reason: "unknown " + string(actor.Role)}
	}

	if !needScope {
		return v, nil
	}

	if s.scopes == nil {
		v.Scope = ledger.NewPeriodSet()
		return v, nil
	}

	scope, err := s.scopes.ActiveScope(ctx, actor.ID, clientID)
	if err != nil {
		return v, fmt.Errorf("resolving assignment scope: %w", err)
	}

	v.Scope = scope

	return v, nil
}

// authorize checks that actor may write inside period p of the client.
func authorize(v notes.Viewer, p ledger.Period) error {
	if v.Role == ledger.RoleEmployee && !v.Scope.Contains(p) {
		return ledger.ErrForbidden
	}

	return nil
}

func (s *Service) ExtractNotes(ctx context.Context, id uuid.UUID, actor Actor, filter notes.Filter) ([]notes.AnnotatedNote, error) {
	v, err := s.viewer(ctx, id, actor, filter.AssignedOnly)
	if err != nil {
		return nil, err
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.engine.Extract(c.ID, c.Tree, v, filter)
}

// Month returns the tenant together with one of its months, read-only. An
// employee must be assigned to p.
func (s *Service) Month(ctx context.Context, id uuid.UUID, actor Actor, p ledger.Period) (*Client, *ledger.Month, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	v, err := s.viewer(ctx, id, actor, false)
	if err != nil {
		return nil, nil, err
	}

	if err := authorize(v, p); err != nil {
		return nil, nil, err
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	m, ok := c.Tree.Month(p)
	if !ok {
		return nil, nil, &ledger.NotFoundError{Kind: "month", Key: p.String()}
	}

	return c, m, nil
}

// Inbox extracts the actor's visible notes across every tenant. Tenants the
// actor may not read are skipped.
func (s *Service) Inbox(ctx context.Context, actor Actor, filter notes.Filter) ([]notes.AnnotatedNote, error) {
	ids, err := s.repo.ListClientIDs(ctx)
	if err != nil {
		return nil, err
	}

	var out []notes.AnnotatedNote

	for _, id := range ids {
		got, err := s.ExtractNotes(ctx, id, actor, filter)
		if errors.Is(err, ledger.ErrForbidden) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("extracting notes of client %s: %w", id, err)
		}

		out = append(out, got...)
	}

	notes.SortNewestFirst(out)

	return out, nil
}

func (s *Service) MarkNotesViewed(ctx context.Context, id uuid.UUID, actor Actor, sel notes.Selection) (notes.MarkResult, error) {
	var res notes.MarkResult

	v, err := s.viewer(ctx, id, actor, sel.Filter.AssignedOnly)
	if err != nil {
		return res, err
	}

	_, err = s.Mutate(ctx, id, func(c *Client) (bool, error) {
		var err error

		res, err = s.engine.MarkViewed(c.ID, c.Tree, v, sel, s.now())
		if err != nil {
			return false, err
		}

		return res.Marked > 0, nil
	})

	return res, err
}

type AddNoteParams struct {
	Location ledger.Location
	Text     string
}

// AddNote appends a note written by actor. Locked nodes still accept notes;
// the month container is created on demand.
func (s *Service) AddNote(ctx context.Context, id uuid.UUID, actor Actor, params AddNoteParams) (ledger.Note, error) {
	if err := params.Location.Validate(); err != nil {
		return ledger.Note{}, err
	}

	v, err := s.viewer(ctx, id, actor, false)
	if err != nil {
		return ledger.Note{}, err
	}

	if err := authorize(v, params.Location.Period); err != nil {
		return ledger.Note{}, err
	}

	noteParams := ledger.NewNoteParams{
		Text:       params.Text,
		AddedBy:    actor.Name,
		AuthorRole: actor.Role,
		AuthorID:   &actor.ID,
	}

	if actor.Role == ledger.RoleEmployee {
		noteParams.EmployeeID = &actor.ID
	}

	var note ledger.Note

	_, err = s.Mutate(ctx, id, func(c *Client) (bool, error) {
		if _, err := s.monthFor(c, params.Location.Period); err != nil {
			return false, err
		}

		n, err := ledger.NewNote(noteParams, s.now())
		if err != nil {
			return false, err
		}

		if err := c.Tree.AddNote(params.Location, n); err != nil {
			return false, err
		}

		note = n

		return true, nil
	})
	if err != nil {
		return ledger.Note{}, err
	}

	return note, nil
}

type AddFileParams struct {
	Period    ledger.Period
	Category  ledger.CategoryRef
	Name      string
	URL       string
	SizeBytes int64
}

func (s *Service) AddFile(ctx context.Context, id uuid.UUID, actor Actor, params AddFileParams) (ledger.File, error) {
	if err := params.Period.Validate(); err != nil {
		return ledger.File{}, err
	}

	v, err := s.viewer(ctx, id, actor, false)
	if err != nil {
		return ledger.File{}, err
	}

	if err := authorize(v, params.Period); err != nil {
		return ledger.File{}, err
	}

	var file ledger.File

	_, err = s.Mutate(ctx, id, func(c *Client) (bool, error) {
		m, err := s.monthFor(c, params.Period)
		if err != nil {
			return false, err
		}

		cat, err := m.Category(params.Category)
		if err != nil {
			return false, err
		}

		file = ledger.File{
			Name:       params.Name,
			URL:        params.URL,
			SizeBytes:  params.SizeBytes,
			UploadedAt: s.now(),
			UploadedBy: actor.Name,
			Notes:      []ledger.Note{},
		}

		if err := cat.AddFile(file); err != nil {
			return false, err
		}

		return true, nil
	})
	if err != nil {
		return ledger.File{}, err
	}

	return file, nil
}

func (s *Service) AddOtherCategory(ctx context.Context, id uuid.UUID, actor Actor, p ledger.Period, name string) error {
	if err := p.Validate(); err != nil {
		return err
	}

	v, err := s.viewer(ctx, id, actor, false)
	if err != nil {
		return err
	}

	if err := authorize(v, p); err != nil {
		return err
	}

	_, err = s.Mutate(ctx, id, func(c *Client) (bool, error) {
		m, err := s.monthFor(c, p)
		if err != nil {
			return false, err
		}

		if _, err := m.AddOther(name); err != nil {
			return false, err
		}

		return true, nil
	})

	return err
}

// LockMonth freezes month p of the client, creating the container if it does
// not exist yet. Clients may not lock.
func (s *Service) LockMonth(ctx context.Context, id uuid.UUID, actor Actor, p ledger.Period) (ledger.LockOutcome, error) {
	return s.lock(ctx, id, actor, p, nil)
}

// LockCategory freezes a single category of month p.
func (s *Service) LockCategory(ctx context.Context, id uuid.UUID, actor Actor, p ledger.Period, ref ledger.CategoryRef) (ledger.LockOutcome, error) {
	return s.lock(ctx, id, actor, p, &ref)
}

func (s *Service) lock(ctx context.Context, id uuid.UUID, actor Actor, p ledger.Period, ref *ledger.CategoryRef) (ledger.LockOutcome, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	if actor.Role == ledger.RoleClient {
		return 0, ledger.ErrForbidden
	}

	v, err := s.viewer(ctx, id, actor, false)
	if err != nil {
		return 0, err
	}

	if err := authorize(v, p); err != nil {
		return 0, err
	}

	var outcome ledger.LockOutcome

	c, err := s.Mutate(ctx, id, func(c *Client) (bool, error) {
		m, err := s.monthFor(c, p)
		if err != nil {
			return false, err
		}

		var node ledger.Lockable = m

		if ref != nil {
			cat, err := m.Category(*ref)
			if err != nil {
				return false, err
			}

			node = cat
		}

		outcome = ledger.Lock(node, actor.Name, s.now())

		return outcome == ledger.LockApplied, nil
	})
	if err != nil {
		return 0, err
	}

	if outcome == ledger.LockApplied && ref == nil {
		s.notifier.MonthLocked(ctx, c, p, actor.Name)
	}

	return outcome, nil
}

// UnlockMonth is the administrative reversal of LockMonth.
func (s *Service) UnlockMonth(ctx context.Context, id uuid.UUID, actor Actor, p ledger.Period) (ledger.LockOutcome, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	if actor.Role != ledger.RoleAdmin {
		return 0, ledger.ErrForbidden
	}

	var outcome ledger.LockOutcome

	_, err := s.Mutate(ctx, id, func(c *Client) (bool, error) {
		m, ok := c.Tree.Month(p)
		if !ok {
			return false, &ledger.NotFoundError{Kind: "month", Key: p.String()}
		}

		outcome = ledger.Unlock(m, actor.Name, s.now())

		return outcome == ledger.LockApplied, nil
	})
	if err != nil {
		return 0, err
	}

	return outcome, nil
}

// RequestPlanChange is open to admins and to the client itself.
func (s *Service) RequestPlanChange(ctx context.Context, id uuid.UUID, actor Actor, newPlan string) (plan.Outcome, error) {
	switch {
	case actor.Role == ledger.RoleAdmin:
	case actor.Role == ledger.RoleClient && actor.ID == id:
	default:
		return plan.Outcome{}, ledger.ErrForbidden
	}

	var outcome plan.Outcome

	c, err := s.Mutate(ctx, id, func(c *Client) (bool, error) {
		var err error

		outcome, err = s.plans.RequestChange(&c.Subscription, newPlan, actor.Name, s.now())
		if err != nil {
			return false, err
		}

		return true, nil
	})
	if err != nil {
		return plan.Outcome{}, err
	}

	s.notifier.PlanChanged(ctx, c, outcome)

	return outcome, nil
}

type nopNotifier struct{}

func (nopNotifier) MonthLocked(context.Context, *Client, ledger.Period, string) {}
func (nopNotifier) PlanChanged(context.Context, *Client, plan.Outcome)         {}
