package ledger

import (
	"fmt"
	"time"
)

const (
	minYear = 2000
	maxYear = 2100
)

// Period identifies one calendar month of a tenant's tree.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// PeriodOf returns the calendar month containing t in loc.
func PeriodOf(t time.Time, loc *time.Location) Period {
	t = t.In(loc)
	return Period{Year: t.Year(), Month: int(t.Month())}
}

func (p Period) Validate() error {
	if p.Year < minYear || p.Year > maxYear {
		return &ValidationError{Field: "year", Reason: fmt.Sprintf("%d outside %d..%d", p.Year, minYear, maxYear)}
	}

	if p.Month < 1 || p.Month > 12 {
		return &ValidationError{Field: "month", Reason: fmt.Sprintf("%d outside 1..12", p.Month)}
	}

	return nil
}

// Start is the first instant of the month in loc.
func (p Period) Start(loc *time.Location) time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
}

// End is the first instant of the following month in loc.
func (p Period) End(loc *time.Location) time.Time {
	return p.Start(loc).AddDate(0, 1, 0)
}

func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}

	return Period{Year: p.Year, Month: p.Month - 1}
}

func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}

	return Period{Year: p.Year, Month: p.Month + 1}
}

func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}

	return p.Month < o.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// ParsePeriod reads the YYYY-MM form produced by String.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, &ValidationError{Field: "period", Reason: fmt.Sprintf("%q is not YYYY-MM", s)}
	}

	p := Period{Year: t.Year(), Month: int(t.Month())}

	return p, p.Validate()
}

// PeriodSet is the set of months an employee is assigned to for one client.
type PeriodSet map[Period]struct{}

func NewPeriodSet(periods ...Period) PeriodSet {
	s := make(PeriodSet, len(periods))
	for _, p := range periods {
		s[p] = struct{}{}
	}

	return s
}

func (s PeriodSet) Add(p Period) {
	s[p] = struct{}{}
}

func (s PeriodSet) Contains(p Period) bool {
	_, ok := s[p]
	return ok
}

// ActiveStatus records whether the tenant was active in a month when its
// container was created. It is never recomputed.
type ActiveStatus string

const (
	StatusActive   ActiveStatus = "active"
	StatusInactive ActiveStatus = "inactive"
)

// ActivityWindow carries a tenant's most recent (de)activation timestamps.
type ActivityWindow struct {
	DeactivatedAt *time.Time
	ReactivatedAt *time.Time
}

// StatusFor reports the tenant's status as of the last instant of p.
// A deactivation inside the month makes it inactive unless a later
// reactivation also happened before the month ended.
func (w ActivityWindow) StatusFor(p Period, loc *time.Location) ActiveStatus {
	if w.DeactivatedAt == nil {
		return StatusActive
	}

	end := p.End(loc)
	if !w.DeactivatedAt.Before(end) {
		return StatusActive
	}

	if w.ReactivatedAt != nil && w.ReactivatedAt.After(*w.DeactivatedAt) && w.ReactivatedAt.Before(end) {
		return StatusActive
	}

	return StatusInactive
}
