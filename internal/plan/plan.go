package plan

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

// Plan is one subscription tier offered to tenants.
type Plan struct {
	Name       string
	MonthlyFee decimal.Decimal
	MaxFiles   int // per month, 0 means unlimited
}

// Catalog lists the plans a tenant may subscribe to, keyed by name.
type Catalog map[string]Plan

// DefaultCatalog is used when no catalog is configured.
func DefaultCatalog() Catalog {
	return Catalog{
		"basic":    {Name: "basic", MonthlyFee: decimal.RequireFromString("49.00"), MaxFiles: 50},
		"standard": {Name: "standard", MonthlyFee: decimal.RequireFromString("99.00"), MaxFiles: 200},
		"premium":  {Name: "premium", MonthlyFee: decimal.RequireFromString("199.00")},
	}
}

func (c Catalog) Lookup(name string) (Plan, bool) {
	p, ok := c[name]
	return p, ok
}

// Names returns the plan names in ascending fee order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}

	slices.SortFunc(names, func(a, b string) int {
		if cmp := c[a].MonthlyFee.Cmp(c[b].MonthlyFee); cmp != 0 {
			return cmp
		}

		if a < b {
			return -1
		}

		return 1
	})

	return names
}

// ChangeRecord is one append-only entry of a tenant's plan history.
type ChangeRecord struct {
	FromPlan      string    `json:"fromPlan"`
	ToPlan        string    `json:"toPlan"`
	RequestedAt   time.Time `json:"requestedAt"`
	EffectiveFrom time.Time `json:"effectiveFrom"`
	RequestedBy   string    `json:"requestedBy"`
	Notes         string    `json:"notes,omitempty"`
}

// Subscription holds a tenant's active plan, its pending next-period plan and
// the history of changes.
type Subscription struct {
	ActivePlan  string         `json:"activePlan"`
	ActiveSince time.Time      `json:"activeSince"`
	PendingPlan string         `json:"pendingPlan,omitempty"`
	PendingFrom *time.Time     `json:"pendingFrom,omitempty"`
	History     []ChangeRecord `json:"history"`
}

// Outcome is returned to callers of RequestChange.
type Outcome struct {
	ActivePlan    string
	PendingPlan   string
	EffectiveFrom time.Time
	Immediate     bool
	Fee           decimal.Decimal
}

// ErrInvalidPlan is the sentinel behind InvalidPlanError.
var ErrInvalidPlan = errors.New("invalid plan")

// InvalidPlanError rejects a change request.
type InvalidPlanError struct {
	Plan   string
	Reason string
}

func (e *InvalidPlanError) Error() string {
	return fmt.Sprintf("invalid plan %q: %s", e.Plan, e.Reason)
}

func (e *InvalidPlanError) Unwrap() []error {
	return []error{ErrInvalidPlan, ledger.ErrValidation}
}
