package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/notes"
)

var (
	june2025 = ledger.Period{Year: 2025, Month: 6}
	fixedNow = time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)
	admin    = client.Actor{Role: ledger.RoleAdmin, ID: uuid.New(), Name: "Ana Admin"}
)

func clock() time.Time { return fixedNow }

func newClient() *client.Client {
	return &client.Client{
		ID:     uuid.New(),
		Name:   "Acme",
		Email:  "books@acme.test",
		Active: true,
		Tree:   ledger.NewTree(),
	}
}

func TestService_Mutate(t *testing.T) {
	type testCase struct {
		name      string
		fn        client.MutateFunc
		setupMock func(m *client.MockRepository, c *client.Client)
		wantErr   error
	}

	touch := func(c *client.Client) (bool, error) {
		c.Name = "Renamed"
		return true, nil
	}

	tests := []testCase{
		{
			name: "Success",
			fn:   touch,
			setupMock: func(m *client.MockRepository, c *client.Client) {
				m.EXPECT().GetClient(gomock.Any(), c.ID).Return(c, nil)
				m.EXPECT().SaveClient(gomock.Any(), c).Return(nil)
			},
		},
		{
			name: "UnchangedIsNotSaved",
			fn:   func(*client.Client) (bool, error) { return false, nil },
			setupMock: func(m *client.MockRepository, c *client.Client) {
				m.EXPECT().GetClient(gomock.Any(), c.ID).Return(c, nil)
			},
		},
		{
			name: "FnErrorIsNotSaved",
			fn:   func(*client.Client) (bool, error) { return false, ledger.ErrLocked },
			setupMock: func(m *client.MockRepository, c *client.Client) {
				m.EXPECT().GetClient(gomock.Any(), c.ID).Return(c, nil)
			},
			wantErr: ledger.ErrLocked,
		},
		{
			name: "ConflictIsRetried",
			fn:   touch,
			setupMock: func(m *client.MockRepository, c *client.Client) {
				m.EXPECT().GetClient(gomock.Any(), c.ID).Return(c, nil).Times(2)
				gomock.InOrder(
					m.EXPECT().SaveClient(gomock.Any(), c).Return(ledger.ErrConflict),
					m.EXPECT().SaveClient(gomock.Any(), c).Return(nil),
				)
			},
		},
		{
			name: "ConflictAfterThreeAttempts",
			fn:   touch,
			setupMock: func(m *client.MockRepository, c *client.Client) {
				m.EXPECT().GetClient(gomock.Any(), c.ID).Return(c, nil).Times(3)
				m.EXPECT().SaveClient(gomock.Any(), c).Return(ledger.ErrConflict).Times(3)
			},
			wantErr: ledger.ErrConflict,
		},
		{
			name: "OtherSaveErrorIsNotRetried",
			fn:   touch,
			setupMock: func(m *client.MockRepository, c *client.Client) {
				m.EXPECT().GetClient(gomock.Any(), c.ID).Return(c, nil)
				m.EXPECT().SaveClient(gomock.Any(), c).Return(errors.New("db down"))
			},
			wantErr: errors.New("db down"),
		},
		{
			name: "NotFound",
			fn:   touch,
			setupMock: func(m *client.MockRepository, c *client.Client) {
				m.EXPECT().GetClient(gomock.Any(), c.ID).Return(nil, &ledger.NotFoundError{Kind: "client", Key: c.ID.String()})
			},
			wantErr: ledger.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			c := newClient()
			repo := client.NewMockRepository(ctrl)
			tt.setupMock(repo, c)

			svc := client.NewService(repo, client.WithClock(clock))
			got, err := svc.Mutate(context.Background(), c.ID, tt.fn)

			if tt.wantErr != nil {
				require.Error(t, err)

				if errors.Is(tt.wantErr, ledger.ErrLocked) || errors.Is(tt.wantErr, ledger.ErrConflict) || errors.Is(tt.wantErr, ledger.ErrNotFound) {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.ErrorContains(t, err, tt.wantErr.Error())
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, c.ID, got.ID)
		})
	}
}

func TestService_LockMonth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := newClient()
	repo := client.NewMockRepository(ctrl)
	notifier := client.NewMockNotifier(ctrl)

	repo.EXPECT().GetClient(gomock.Any(), c.ID).Return(c, nil).Times(2)
	repo.EXPECT().SaveClient(gomock.Any(), c).Return(nil).Times(1)
	notifier.EXPECT().MonthLocked(gomock.Any(), c, june2025, admin.Name).Times(1)

	svc := client.NewService(repo, client.WithClock(clock), client.WithNotifier(notifier))

	outcome, err := svc.LockMonth(context.Background(), c.ID, admin, june2025)
	require.NoError(t, err)
	assert.Equal(t, ledger.LockApplied, outcome)

	m, ok := c.Tree.Month(june2025)
	require.True(t, ok)
	assert.True(t, m.IsLocked)
	assert.True(t, m.WasLockedOnce)
	assert.True(t, m.Sales.IsLocked)
	assert.True(t, m.Purchase.IsLocked)
	assert.True(t, m.Bank.IsLocked)
	require.Len(t, m.Notes, 1)
	assert.Equal(t, ledger.RoleSystem, m.Notes[0].AuthorRole)

	outcome, err = svc.LockMonth(context.Background(), c.ID, admin, june2025)
	require.NoError(t, err)
	assert.Equal(t, ledger.LockAlreadyHeld, outcome)
	assert.Len(t, m.Notes, 1)
}

func TestService_LockMonth_Authorization(t *testing.T) {
	employeeID := uuid.New()

	type testCase struct {
		name      string
		actor     func(c *client.Client) client.Actor
		setupMock func(r *client.MockRepository, s *client.MockScopeSource, c *client.Client)
		wantErr   error
	}

	tests := []testCase{
		{
			name:    "ClientCannotLock",
			actor:   func(c *client.Client) client.Actor { return client.Actor{Role: ledger.RoleClient, ID: c.ID} },
			wantErr: ledger.ErrForbidden,
		},
		{
			name:  "EmployeeOutsideScope",
			actor: func(*client.Client) client.Actor { return client.Actor{Role: ledger.RoleEmployee, ID: employeeID} },
			setupMock: func(_ *client.MockRepository, s *client.MockScopeSource, c *client.Client) {
				s.EXPECT().ActiveScope(gomock.Any(), employeeID, c.ID).Return(ledger.NewPeriodSet(june2025.Next()), nil)
			},
			wantErr: ledger.ErrForbidden,
		},
		{
			name:  "EmployeeInsideScope",
			actor: func(*client.Client) client.Actor { return client.Actor{Role: ledger.RoleEmployee, ID: employeeID, Name: "Eve"} },
			setupMock: func(r *client.MockRepository, s *client.MockScopeSource, c *client.Client) {
				s.EXPECT().ActiveScope(gomock.Any(), employeeID, c.ID).Return(ledger.NewPeriodSet(june2025), nil)
				r.EXPECT().GetClient(gomock.Any(), c.ID).Return(c, nil)
				r.EXPECT().SaveClient(gomock.Any(), c).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			c := newClient()
			repo := client.NewMockRepository(ctrl)
			scopes := client.NewMockScopeSource(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(repo, scopes, c)
			}

			svc := client.NewService(repo, client.WithClock(clock), client.WithScopeSource(scopes))

			_, err := svc.LockMonth(context.Background(), c.ID, tt.actor(c), june2025)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestService_UnlockMonth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := newClient()
	m, _, err := c.Tree.GetOrCreate(june2025, ledger.StatusActive, fixedNow)
	require.NoError(t, err)
	ledger.Lock(m, "Ana Admin", fixedNow)

	repo := client.NewMockRepository(ctrl)
	repo.EXPECT().GetClient(gomock.Any(), c.ID).Return(c, nil).Times(2)
	repo.EXPECT().SaveClient(gomock.Any(), c).Return(nil)

	svc := client.NewService(repo, client.WithClock(clock))

	_, err = svc.UnlockMonth(context.Background(), c.ID, client.Actor{Role: ledger.RoleEmployee, ID: uuid.New()}, june2025)
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	outcome, err := svc.UnlockMonth(context.Background(), c.ID, admin, june2025)
	require.NoError(t, err)
	assert.Equal(t, ledger.LockApplied, outcome)
	assert.False(t, m.IsLocked)
	assert.True(t, m.WasLockedOnce)
	assert.False(t, m.Bank.IsLocked)
	require.Len(t, m.Notes, 2)
	assert.Equal(t, "Month unlocked by Ana Admin.", m.Notes[1].Text)

	_, err = svc.UnlockMonth(context.Background(), c.ID, admin, june2025.Next())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestService_RequestPlanChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := newClient()
	c.Subscription.ActivePlan = "basic"

	repo := client.NewMockRepository(ctrl)
	notifier := client.NewMockNotifier(ctrl)

	repo.EXPECT().GetClient(gomock.Any(), c.ID).Return(c, nil).Times(2)
	repo.EXPECT().SaveClient(gomock.Any(), c).Return(nil)
	notifier.EXPECT().PlanChanged(gomock.Any(), c, gomock.Any())

	svc := client.NewService(repo, client.WithClock(clock), client.WithNotifier(notifier))
	self := client.Actor{Role: ledger.RoleClient, ID: c.ID, Name: "Acme"}

	outcome, err := svc.RequestPlanChange(context.Background(), c.ID, self, "premium")
	require.NoError(t, err)
	assert.Equal(t, "basic", outcome.ActivePlan)
	assert.Equal(t, "premium", outcome.PendingPlan)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), outcome.EffectiveFrom)
	assert.Equal(t, "premium", c.Subscription.PendingPlan)

	_, err = svc.RequestPlanChange(context.Background(), c.ID, self, "basic")
	assert.ErrorIs(t, err, ledger.ErrValidation)

	other := client.Actor{Role: ledger.RoleClient, ID: uuid.New()}
	_, err = svc.RequestPlanChange(context.Background(), c.ID, other, "premium")
	assert.ErrorIs(t, err, ledger.ErrForbidden)
}

func TestService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := client.NewMockRepository(ctrl)
	repo.EXPECT().
		CreateClient(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c *client.Client) error {
			c.ID = uuid.New()
			c.CreatedAt = fixedNow
			return nil
		})

	svc := client.NewService(repo, client.WithClock(clock))

	c, err := svc.Create(context.Background(), client.CreateParams{Name: "Acme", Plan: "standard"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.True(t, c.Active)
	assert.Equal(t, "standard", c.Subscription.ActivePlan)
	assert.Equal(t, 0, c.Tree.Len())

	_, err = svc.Create(context.Background(), client.CreateParams{Name: "Acme", Plan: "gold"})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = svc.Create(context.Background(), client.CreateParams{Plan: "basic"})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestService_Deactivate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := newClient()
	repo := client.NewMockRepository(ctrl)
	repo.EXPECT().GetClient(gomock.Any(), c.ID).Return(c, nil).Times(2)
	repo.EXPECT().SaveClient(gomock.Any(), c).Return(nil)

	svc := client.NewService(repo, client.WithClock(clock))

	got, err := svc.Deactivate(context.Background(), c.ID, admin)
	require.NoError(t, err)
	assert.False(t, got.Active)
	require.NotNil(t, got.DeactivatedAt)
	assert.Equal(t, fixedNow, *got.DeactivatedAt)

	// Second call finds the client already inactive and does not save.
	_, err = svc.Deactivate(context.Background(), c.ID, admin)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusInactive, c.ActivityWindow().StatusFor(june2025, time.UTC))
}

// memRepo is a versioned in-memory Repository. Stored clients are deep
// copies so concurrent callers never share a tree.
type memRepo struct {
	mu      sync.Mutex
	clients map[uuid.UUID][]byte
	version map[uuid.UUID]int64
}

type storedClient struct {
	Client *client.Client
	Tree   *ledger.Tree
}

func newMemRepo(cs ...*client.Client) *memRepo {
	r := &memRepo{clients: map[uuid.UUID][]byte{}, version: map[uuid.UUID]int64{}}
	for _, c := range cs {
		_ = r.CreateClient(context.Background(), c)
	}

	return r
}

func (r *memRepo) put(c *client.Client) error {
	tree := c.Tree
	copied := *c
	copied.Tree = nil

	b, err := json.Marshal(storedClient{Client: &copied, Tree: tree})
	if err != nil {
		return err
	}

	r.clients[c.ID] = b

	return nil
}

func (r *memRepo) CreateClient(_ context.Context, c *client.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	c.Version = 1
	r.version[c.ID] = 1

	return r.put(c)
}

func (r *memRepo) GetClient(_ context.Context, id uuid.UUID) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.clients[id]
	if !ok {
		return nil, &ledger.NotFoundError{Kind: "client", Key: id.String()}
	}

	var sc storedClient
	if err := json.Unmarshal(b, &sc); err != nil {
		return nil, err
	}

	sc.Client.Tree = sc.Tree

	return sc.Client, nil
}

func (r *memRepo) ListClients(context.Context, client.ListFilter) ([]*client.Client, error) {
	return nil, nil
}

func (r *memRepo) ListClientIDs(context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}

	return ids, nil
}

func (r *memRepo) SaveClient(_ context.Context, c *client.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.version[c.ID] != c.Version {
		return ledger.ErrConflict
	}

	c.Version++
	r.version[c.ID] = c.Version

	return r.put(c)
}

func TestService_ConcurrentMutationsAreSerialized(t *testing.T) {
	c := newClient()
	repo := newMemRepo(c)
	svc := client.NewService(repo, client.WithClock(clock))

	const writers = 20

	var wg sync.WaitGroup

	for i := range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.AddNote(context.Background(), c.ID, admin, client.AddNoteParams{
				Location: ledger.Location{Kind: ledger.LocationMonth, Period: june2025},
				Text:     fmt.Sprintf("note %d", i),
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	// A lock racing the note writers must not drop any of them.
	_, err := svc.LockMonth(context.Background(), c.ID, admin, june2025)
	require.NoError(t, err)

	got, err := repo.GetClient(context.Background(), c.ID)
	require.NoError(t, err)

	m, ok := got.Tree.Month(june2025)
	require.True(t, ok)
	assert.Len(t, m.Notes, writers+1)
	assert.True(t, m.IsLocked)
	assert.Equal(t, int64(writers+2), got.Version)
}

func TestService_NotesRoundTrip(t *testing.T) {
	c := newClient()
	repo := newMemRepo(c)

	employee := client.Actor{Role: ledger.RoleEmployee, ID: uuid.New(), Name: "Eve"}
	otherEmployee := client.Actor{Role: ledger.RoleEmployee, ID: uuid.New(), Name: "Otto"}
	self := client.Actor{Role: ledger.RoleClient, ID: c.ID, Name: "Acme"}

	scopes := scopeMap{
		employee.ID:      ledger.NewPeriodSet(june2025),
		otherEmployee.ID: ledger.NewPeriodSet(june2025),
	}

	svc := client.NewService(repo, client.WithClock(clock), client.WithScopeSource(scopes))
	ctx := context.Background()

	salesLoc := ledger.Location{Kind: ledger.LocationCategory, Period: june2025, Category: ledger.CategorySales}

	_, err := svc.AddNote(ctx, c.ID, self, client.AddNoteParams{Location: salesLoc, Text: "invoice missing?"})
	require.NoError(t, err)

	_, err = svc.AddNote(ctx, c.ID, employee, client.AddNoteParams{Location: salesLoc, Text: "found it"})
	require.NoError(t, err)

	_, err = svc.AddNote(ctx, c.ID, employee, client.AddNoteParams{
		Location: ledger.Location{Kind: ledger.LocationMonth, Period: june2025.Next()},
		Text:     "out of scope",
	})
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	seenByOther, err := svc.ExtractNotes(ctx, c.ID, otherEmployee, notes.Filter{})
	require.NoError(t, err)
	require.Len(t, seenByOther, 1)
	assert.Equal(t, "invoice missing?", seenByOther[0].Note.Text)

	seenByClient, err := svc.ExtractNotes(ctx, c.ID, self, notes.Filter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, seenByClient, 1)
	assert.Equal(t, "found it", seenByClient[0].Note.Text)

	res, err := svc.MarkNotesViewed(ctx, c.ID, self, notes.Selection{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Marked)
	assert.Equal(t, 0, res.RemainingUnread)

	res, err = svc.MarkNotesViewed(ctx, c.ID, self, notes.Selection{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Marked)
	assert.Equal(t, 0, res.RemainingUnread)

	_, err = svc.ExtractNotes(ctx, c.ID, client.Actor{Role: ledger.RoleClient, ID: uuid.New()}, notes.Filter{})
	assert.ErrorIs(t, err, ledger.ErrForbidden)
}

func TestService_AdminNotesWaitForOtherAdmins(t *testing.T) {
	c := newClient()
	svc := client.NewService(newMemRepo(c), client.WithClock(clock))
	ctx := context.Background()

	otherAdmin := client.Actor{Role: ledger.RoleAdmin, ID: uuid.New(), Name: "Rui Admin"}

	n, err := svc.AddNote(ctx, c.ID, admin, client.AddNoteParams{
		Location: ledger.Location{Kind: ledger.LocationMonth, Period: june2025},
		Text:     "bank statement pending",
	})
	require.NoError(t, err)
	require.NotNil(t, n.AuthorID)
	assert.Equal(t, admin.ID, *n.AuthorID)

	own, err := svc.ExtractNotes(ctx, c.ID, admin, notes.Filter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, own)

	res, err := svc.MarkNotesViewed(ctx, c.ID, otherAdmin, notes.Selection{IDs: []uuid.UUID{n.ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Marked)

	seen, err := svc.ExtractNotes(ctx, c.ID, otherAdmin, notes.Filter{})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.False(t, seen[0].Unread)
	assert.True(t, seen[0].Note.ViewedByAdmin)
	assert.True(t, seen[0].Note.ViewedByViewer(otherAdmin.ID))
}

func TestService_AddFileAndOtherCategory(t *testing.T) {
	c := newClient()
	repo := newMemRepo(c)
	svc := client.NewService(repo, client.WithClock(clock))
	ctx := context.Background()

	require.NoError(t, svc.AddOtherCategory(ctx, c.ID, admin, june2025, "payroll"))

	payroll := ledger.CategoryRef{Type: ledger.CategoryOther, Name: "payroll"}

	_, err := svc.AddFile(ctx, c.ID, admin, client.AddFileParams{Period: june2025, Category: payroll, Name: "june.pdf"})
	require.NoError(t, err)

	_, err = svc.LockMonth(ctx, c.ID, admin, june2025)
	require.NoError(t, err)

	_, err = svc.AddFile(ctx, c.ID, admin, client.AddFileParams{Period: june2025, Category: payroll, Name: "late.pdf"})
	assert.ErrorIs(t, err, ledger.ErrLocked)

	err = svc.AddOtherCategory(ctx, c.ID, admin, june2025, "travel")
	assert.ErrorIs(t, err, ledger.ErrLocked)

	_, err = svc.AddNote(ctx, c.ID, admin, client.AddNoteParams{
		Location: ledger.Location{Kind: ledger.LocationFile, Period: june2025, Category: ledger.CategoryOther, OtherName: "payroll", FileName: "june.pdf"},
		Text:     "checked",
	})
	require.NoError(t, err)

	got, err := repo.GetClient(ctx, c.ID)
	require.NoError(t, err)

	m, _ := got.Tree.Month(june2025)
	require.Len(t, m.Other, 1)
	assert.True(t, m.Other[0].Document.IsLocked)
	require.Len(t, m.Other[0].Document.Files, 1)
	assert.Len(t, m.Other[0].Document.Files[0].Notes, 1)
}

type scopeMap map[uuid.UUID]ledger.PeriodSet

func (s scopeMap) ActiveScope(_ context.Context, employeeID, _ uuid.UUID) (ledger.PeriodSet, error) {
	if set, ok := s[employeeID]; ok {
		return set, nil
	}

	return ledger.NewPeriodSet(), nil
}
