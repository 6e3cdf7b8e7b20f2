package plan

import (
	"time"

	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

// Scheduler decides whether a plan change applies now or on the next period.
// Calendar days are evaluated in loc.
type Scheduler struct {
	catalog Catalog
	loc     *time.Location
}

func NewScheduler(catalog Catalog, loc *time.Location) *Scheduler {
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{catalog: catalog, loc: loc}
}

func (s *Scheduler) Catalog() Catalog {
	return s.catalog
}

func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// IsPeriodStart reports whether t falls on the first calendar day of its month.
func (s *Scheduler) IsPeriodStart(t time.Time) bool {
	return t.In(s.loc).Day() == 1
}

// nextPeriodStart is midnight on the first day of the month after t.
func (s *Scheduler) nextPeriodStart(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, 1, 0)
}

func (s *Scheduler) dayStart(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// RequestChange applies newPlan immediately when requestedAt is the first day
// of a month, and otherwise stores it as the pending plan for next month.
// Either way one record is appended to the history.
func (s *Scheduler) RequestChange(sub *Subscription, newPlan, requestedBy string, requestedAt time.Time) (Outcome, error) {
	p, ok := s.catalog.Lookup(newPlan)
	if !ok {
		return Outcome{}, &InvalidPlanError{Plan: newPlan, Reason: "unknown plan"}
	}

	if newPlan == sub.ActivePlan {
		return Outcome{}, &InvalidPlanError{Plan: newPlan, Reason: "already the active plan"}
	}

	record := ChangeRecord{
		FromPlan:    sub.ActivePlan,
		ToPlan:      newPlan,
		RequestedAt: requestedAt,
		RequestedBy: requestedBy,
	}

	if s.IsPeriodStart(requestedAt) {
		record.EffectiveFrom = s.dayStart(requestedAt)
		record.Notes = "applied immediately"

		sub.ActivePlan = newPlan
		sub.ActiveSince = record.EffectiveFrom
		sub.PendingPlan = ""
		sub.PendingFrom = nil
		sub.History = append(sub.History, record)

		return Outcome{
			ActivePlan:    sub.ActivePlan,
			EffectiveFrom: record.EffectiveFrom,
			Immediate:     true,
			Fee:           p.MonthlyFee,
		}, nil
	}

	effective := s.nextPeriodStart(requestedAt)
	record.EffectiveFrom = effective
	record.Notes = "scheduled for next period"

	if sub.PendingPlan != "" {
		record.Notes = "replaces pending plan " + sub.PendingPlan
	}

	sub.PendingPlan = newPlan
	sub.PendingFrom = &effective
	sub.History = append(sub.History, record)

	return Outcome{
		ActivePlan:    sub.ActivePlan,
		PendingPlan:   sub.PendingPlan,
		EffectiveFrom: effective,
		Fee:           p.MonthlyFee,
	}, nil
}

// ApplyPending swaps the pending plan in. It reports false when nothing was
// pending.
func (s *Scheduler) ApplyPending(sub *Subscription, at time.Time) (ChangeRecord, bool) {
	if sub.PendingPlan == "" {
		return ChangeRecord{}, false
	}

	record := ChangeRecord{
		FromPlan:      sub.ActivePlan,
		ToPlan:        sub.PendingPlan,
		RequestedAt:   at,
		EffectiveFrom: s.dayStart(at),
		RequestedBy:   ledger.SystemActor,
		Notes:         "pending plan applied",
	}

	sub.ActivePlan = sub.PendingPlan
	sub.ActiveSince = record.EffectiveFrom
	sub.PendingPlan = ""
	sub.PendingFrom = nil
	sub.History = append(sub.History, record)

	return record, true
}
