package notes

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

// Engine applies the single visibility policy to a tenant's tree.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{logger: logger}
}

// Visible is the visibility policy shared by every role. Admins and clients
// see everything; employees see client-written notes and their own, and only
// inside their assignment scope.
func Visible(v Viewer, n *ledger.Note, loc ledger.Location) bool {
	switch v.Role {
	case ledger.RoleAdmin, ledger.RoleClient:
		return true
	case ledger.RoleEmployee:
		if n.EmployeeID != nil && *n.EmployeeID != v.ID {
			return false
		}

		return v.Scope.Contains(loc.Period)
	}

	return false
}

// unread reports whether the note still waits for this viewer. Notes written
// by the viewer never count as unread.
func unread(v Viewer, n *ledger.Note) bool {
	return !n.ViewedByViewer(v.ID) && !n.AuthoredBy(v.Role, v.ID)
}

func validateViewer(v Viewer) error {
	if !v.Role.Valid() {
		return &ledger.ValidationError{Field: "viewer role", Reason: "unknown " + string(v.Role)}
	}

	if v.ID == uuid.Nil {
		return &ledger.ValidationError{Field: "viewer id", Reason: "must be set"}
	}

	return nil
}

// Extract returns the notes of tree visible to v, filtered by f and sorted by
// AddedAt descending.
func (e *Engine) Extract(clientID uuid.UUID, tree *ledger.Tree, v Viewer, f Filter) ([]AnnotatedNote, error) {
	if err := validateViewer(v); err != nil {
		return nil, err
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	var out []AnnotatedNote

	e.walk(clientID, tree, v, f, func(loc ledger.Location, n *ledger.Note) {
		out = append(out, AnnotatedNote{
			ClientID: clientID,
			Note:     cloneNote(n),
			Location: loc,
			Unread:   unread(v, n),
		})
	})

	SortNewestFirst(out)

	return out, nil
}

// MarkViewed appends a read receipt for v to every selected, visible note that
// v has not seen yet.
func (e *Engine) MarkViewed(clientID uuid.UUID, tree *ledger.Tree, v Viewer, sel Selection, now time.Time) (MarkResult, error) {
	var res MarkResult

	if err := validateViewer(v); err != nil {
		return res, err
	}

	if err := sel.Filter.Validate(); err != nil {
		return res, err
	}

	var targets []*ledger.Note

	if sel.byFilter() {
		e.walk(clientID, tree, v, sel.Filter, func(_ ledger.Location, n *ledger.Note) {
			targets = append(targets, n)
		})
	} else {
		targets, res.Ambiguous = e.resolve(clientID, tree, v, sel)
	}

	for _, n := range targets {
		if !unread(v, n) {
			continue
		}

		if n.MarkViewed(v.ID, v.Role, now) {
			res.Marked++
		}
	}

	e.walk(clientID, tree, v, Filter{UnreadOnly: true}, func(ledger.Location, *ledger.Note) {
		res.RemainingUnread++
	})

	return res, nil
}

// resolve finds the notes named by IDs and refs. A ref matching more than one
// note is reported as ambiguous and none of its matches are returned.
func (e *Engine) resolve(clientID uuid.UUID, tree *ledger.Tree, v Viewer, sel Selection) ([]*ledger.Note, int) {
	ids := make(map[uuid.UUID]struct{}, len(sel.IDs))
	for _, id := range sel.IDs {
		ids[id] = struct{}{}
	}

	refMatches := make([][]*ledger.Note, len(sel.Refs))
	seen := make(map[*ledger.Note]struct{})

	var targets []*ledger.Note

	add := func(n *ledger.Note) {
		if _, ok := seen[n]; ok {
			return
		}

		seen[n] = struct{}{}
		targets = append(targets, n)
	}

	e.walk(clientID, tree, v, Filter{}, func(loc ledger.Location, n *ledger.Note) {
		if _, ok := ids[n.ID]; ok && n.ID != uuid.Nil {
			add(n)
		}

		for i, ref := range sel.Refs {
			if ref.matches(loc, n) {
				refMatches[i] = append(refMatches[i], n)
			}
		}
	})

	ambiguous := 0

	for i, matches := range refMatches {
		switch {
		case len(matches) == 1:
			add(matches[0])
		case len(matches) > 1:
			ambiguous++

			e.logger.Warn("note reference matches several notes, skipping",
				"client_id", clientID,
				"location", sel.Refs[i].Location.String(),
				"added_at", sel.Refs[i].AddedAt,
				"matches", len(matches),
			)
		}
	}

	return targets, ambiguous
}

func (r NoteRef) matches(loc ledger.Location, n *ledger.Note) bool {
	return r.Text == n.Text &&
		r.AddedBy == n.AddedBy &&
		r.AddedAt.Equal(n.AddedAt) &&
		r.Location == loc
}

// walk visits every visible note matching f. Quarantined or nil nodes are
// logged and skipped; they never abort the traversal.
func (e *Engine) walk(clientID uuid.UUID, tree *ledger.Tree, v Viewer, f Filter, fn func(ledger.Location, *ledger.Note)) {
	if tree == nil {
		return
	}

	for _, q := range tree.Quarantined() {
		e.logger.Warn("skipping malformed month node",
			"client_id", clientID,
			"year", q.YearKey,
			"month", q.MonthKey,
			"reason", q.Reason,
		)
	}

	for p, m := range tree.All() {
		if m == nil {
			e.logger.Warn("skipping empty month node", "client_id", clientID, "period", p.String())
			continue
		}

		if !f.matchesPeriod(v, p) {
			continue
		}

		for loc, notes := range m.NoteSlots(p) {
			if !f.matchesLocation(loc) {
				continue
			}

			for i := range *notes {
				n := &(*notes)[i]

				if !Visible(v, n, loc) || !f.matchesNote(v, n) {
					continue
				}

				fn(loc, n)
			}
		}
	}
}

func (f Filter) matchesPeriod(v Viewer, p ledger.Period) bool {
	if f.Year != nil && *f.Year != p.Year {
		return false
	}

	if f.Month != nil && *f.Month != p.Month {
		return false
	}

	if f.AssignedOnly && !v.Scope.Contains(p) {
		return false
	}

	return true
}

func (f Filter) matchesLocation(loc ledger.Location) bool {
	if f.Category == nil {
		return true
	}

	return loc.Kind != ledger.LocationMonth && loc.Category == *f.Category
}

func (f Filter) matchesNote(v Viewer, n *ledger.Note) bool {
	if f.Since != nil && n.AddedAt.Before(*f.Since) {
		return false
	}

	if f.Until != nil && n.AddedAt.After(*f.Until) {
		return false
	}

	if f.UnreadOnly && !unread(v, n) {
		return false
	}

	return true
}

// SortNewestFirst orders notes by AddedAt descending, breaking ties by
// location and note ID so repeated extractions are identical.
func SortNewestFirst(ns []AnnotatedNote) {
	slices.SortStableFunc(ns, compareNewestFirst)
}

func compareNewestFirst(a, b AnnotatedNote) int {
	if c := b.Note.AddedAt.Compare(a.Note.AddedAt); c != 0 {
		return c
	}

	if c := a.Location.Compare(b.Location); c != 0 {
		return c
	}

	return strings.Compare(a.Note.ID.String(), b.Note.ID.String())
}

func cloneNote(n *ledger.Note) ledger.Note {
	c := *n
	c.ViewedBy = slices.Clone(n.ViewedBy)

	return c
}
