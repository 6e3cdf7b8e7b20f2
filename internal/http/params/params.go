// Package params parses path and query parameters shared by the handlers.
package params

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/notes"
)

func ID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, &ledger.ValidationError{Field: name, Reason: "not a valid id"}
	}

	return id, nil
}

// Period reads the {year} and {month} path parameters.
func Period(r *http.Request) (ledger.Period, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return ledger.Period{}, &ledger.ValidationError{Field: "year", Reason: "not a number"}
	}

	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		return ledger.Period{}, &ledger.ValidationError{Field: "month", Reason: "not a number"}
	}

	p := ledger.Period{Year: year, Month: month}

	return p, p.Validate()
}

// Date parses a query value as a date or an RFC 3339 timestamp. A bare date
// is midnight in loc.
func Date(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return t, nil
	}

	return time.Parse(time.RFC3339, value)
}

// NotesFilter builds a notes.Filter from the query string.
func NotesFilter(r *http.Request, loc *time.Location) (notes.Filter, error) {
	q := r.URL.Query()

	var f notes.Filter

	if s := q.Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			return f, &ledger.ValidationError{Field: "year", Reason: "not a number"}
		}

		f.Year = new(y)
	}

	if s := q.Get("month"); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil {
			return f, &ledger.ValidationError{Field: "month", Reason: "not a number"}
		}

		f.Month = new(m)
	}

	if s := q.Get("category"); s != "" {
		f.Category = new(ledger.CategoryType(s))
	}

	if s := q.Get("since"); s != "" {
		t, err := Date(s, loc)
		if err != nil {
			return f, &ledger.ValidationError{Field: "since", Reason: "not a date"}
		}

		f.Since = new(t)
	}

	if s := q.Get("until"); s != "" {
		t, err := Date(s, loc)
		if err != nil {
			return f, &ledger.ValidationError{Field: "until", Reason: "not a date"}
		}

		f.Until = new(t)
	}

	f.AssignedOnly = q.Get("assigned_only") == "true"
	f.UnreadOnly = q.Get("unread_only") == "true"

	return f, f.Validate()
}
