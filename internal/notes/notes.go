// Package notes flattens a tenant's document tree into the notes a viewer may
// see, and records read receipts for them.
package notes

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

// Viewer describes who is looking at a tenant's notes. Scope is only
// meaningful for employees and for admins filtering with AssignedOnly.
type Viewer struct {
	Role  ledger.Role
	ID    uuid.UUID
	Scope ledger.PeriodSet
}

// AnnotatedNote is a note together with the coordinates needed to find it again.
type AnnotatedNote struct {
	ClientID uuid.UUID
	Note     ledger.Note
	Location ledger.Location
	Unread   bool
}

// Filter narrows an extraction. Nil fields do not filter.
type Filter struct {
	Year         *int
	Month        *int
	Category     *ledger.CategoryType
	Since        *time.Time
	Until        *time.Time
	AssignedOnly bool
	UnreadOnly   bool
}

func (f Filter) Validate() error {
	if f.Month != nil && (*f.Month < 1 || *f.Month > 12) {
		return &ledger.ValidationError{Field: "month", Reason: "must be within 1..12"}
	}

	if f.Category != nil && !f.Category.Valid() {
		return &ledger.ValidationError{Field: "category", Reason: "unknown " + string(*f.Category)}
	}

	if f.Since != nil && f.Until != nil && f.Until.Before(*f.Since) {
		return &ledger.ValidationError{Field: "until", Reason: "before since"}
	}

	return nil
}

// NoteRef is the legacy content key of a note: text, author, timestamp and
// location. Prefer note IDs; two notes can share the same ref.
type NoteRef struct {
	Text     string
	AddedBy  string
	AddedAt  time.Time
	Location ledger.Location
}

// Selection picks the notes to mark as viewed. IDs and Refs are combined;
// when both are empty, Filter selects every matching visible note.
type Selection struct {
	IDs    []uuid.UUID
	Refs   []NoteRef
	Filter Filter
}

func (s Selection) byFilter() bool {
	return len(s.IDs) == 0 && len(s.Refs) == 0
}

// MarkResult summarises a MarkViewed call.
type MarkResult struct {
	Marked          int
	RemainingUnread int
	// Ambiguous counts refs that matched more than one note; those notes
	// are left untouched.
	Ambiguous int
}
