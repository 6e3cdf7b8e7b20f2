package ledger

import (
	"iter"
	"slices"
	"time"
)

// CategoryType names one of the fixed category slots of a month, or "other".
type CategoryType string

const (
	CategorySales    CategoryType = "sales"
	CategoryPurchase CategoryType = "purchase"
	CategoryBank     CategoryType = "bank"
	CategoryOther    CategoryType = "other"
)

func (c CategoryType) Valid() bool {
	switch c {
	case CategorySales, CategoryPurchase, CategoryBank, CategoryOther:
		return true
	}

	return false
}

// LockState is shared by months and categories.
type LockState struct {
	IsLocked      bool       `json:"isLocked"`
	WasLockedOnce bool       `json:"wasLockedOnce"`
	LockedAt      *time.Time `json:"lockedAt,omitempty"`
	LockedBy      string     `json:"lockedBy,omitempty"`
	AutoLockDate  *time.Time `json:"autoLockDate,omitempty"`
}

// File is the metadata of an uploaded document. The binary lives elsewhere.
type File struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	SizeBytes  int64     `json:"sizeBytes"`
	UploadedAt time.Time `json:"uploadedAt"`
	UploadedBy string    `json:"uploadedBy"`
	Notes      []Note    `json:"notes"`
}

type Category struct {
	Files []File `json:"files"`
	Notes []Note `json:"categoryNotes"`
	LockState
}

// File returns the named file of the category.
func (c *Category) File(name string) (*File, error) {
	for i := range c.Files {
		if c.Files[i].Name == name {
			return &c.Files[i], nil
		}
	}

	return nil, &NotFoundError{Kind: "file", Key: name}
}

// AddFile appends file metadata. Locked categories reject new files.
func (c *Category) AddFile(f File) error {
	if c.IsLocked {
		return ErrLocked
	}

	if f.Name == "" {
		return &ValidationError{Field: "file name", Reason: "must not be empty"}
	}

	if _, err := c.File(f.Name); err == nil {
		return &ValidationError{Field: "file name", Reason: "already exists: " + f.Name}
	}

	if f.Notes == nil {
		f.Notes = []Note{}
	}

	c.Files = append(c.Files, f)

	return nil
}

// OtherCategory wraps a named, free-form category of a month.
type OtherCategory struct {
	Name     string   `json:"name"`
	Document Category `json:"document"`
}

// CategoryRef addresses a category inside a month.
type CategoryRef struct {
	Type CategoryType
	Name string // only for CategoryOther
}

type Month struct {
	Sales    Category        `json:"sales"`
	Purchase Category        `json:"purchase"`
	Bank     Category        `json:"bank"`
	Other    []OtherCategory `json:"other"`
	Notes    []Note          `json:"monthNotes"`
	LockState

	ActiveStatus ActiveStatus `json:"monthActiveStatus"`
	CreatedAt    time.Time    `json:"createdAt"`
}

func newMonth(status ActiveStatus, now time.Time) *Month {
	return &Month{
		Sales:        Category{Files: []File{}, Notes: []Note{}},
		Purchase:     Category{Files: []File{}, Notes: []Note{}},
		Bank:         Category{Files: []File{}, Notes: []Note{}},
		Other:        []OtherCategory{},
		Notes:        []Note{},
		ActiveStatus: status,
		CreatedAt:    now,
	}
}

// Category resolves a reference to the matching category of the month.
func (m *Month) Category(ref CategoryRef) (*Category, error) {
	switch ref.Type {
	case CategorySales:
		return &m.Sales, nil
	case CategoryPurchase:
		return &m.Purchase, nil
	case CategoryBank:
		return &m.Bank, nil
	case CategoryOther:
		for i := range m.Other {
			if m.Other[i].Name == ref.Name {
				return &m.Other[i].Document, nil
			}
		}

		return nil, &NotFoundError{Kind: "category", Key: "other/" + ref.Name}
	}

	return nil, &ValidationError{Field: "category", Reason: "unknown type " + string(ref.Type)}
}

// AddOther creates a named "other" category. The month must be unlocked.
func (m *Month) AddOther(name string) (*Category, error) {
	if m.IsLocked {
		return nil, ErrLocked
	}

	if name == "" {
		return nil, &ValidationError{Field: "category name", Reason: "must not be empty"}
	}

	if _, err := m.Category(CategoryRef{Type: CategoryOther, Name: name}); err == nil {
		return nil, &ValidationError{Field: "category name", Reason: "already exists: " + name}
	}

	m.Other = append(m.Other, OtherCategory{
		Name:     name,
		Document: Category{Files: []File{}, Notes: []Note{}},
	})

	return &m.Other[len(m.Other)-1].Document, nil
}

// Categories yields sales, purchase, bank and then every other category in order.
func (m *Month) Categories() iter.Seq2[CategoryRef, *Category] {
	return func(yield func(CategoryRef, *Category) bool) {
		fixed := []struct {
			t CategoryType
			c *Category
		}{
			{CategorySales, &m.Sales},
			{CategoryPurchase, &m.Purchase},
			{CategoryBank, &m.Bank},
		}
		for _, f := range fixed {
			if !yield(CategoryRef{Type: f.t}, f.c) {
				return
			}
		}

		for i := range m.Other {
			if !yield(CategoryRef{Type: CategoryOther, Name: m.Other[i].Name}, &m.Other[i].Document) {
				return
			}
		}
	}
}

// NoteSlots yields every note list of the month together with its location:
// the month itself, each category, then each file of that category.
func (m *Month) NoteSlots(p Period) iter.Seq2[Location, *[]Note] {
	return func(yield func(Location, *[]Note) bool) {
		if !yield(Location{Kind: LocationMonth, Period: p}, &m.Notes) {
			return
		}

		for ref, c := range m.Categories() {
			loc := Location{Kind: LocationCategory, Period: p, Category: ref.Type, OtherName: ref.Name}
			if !yield(loc, &c.Notes) {
				return
			}

			for i := range c.Files {
				floc := loc
				floc.Kind = LocationFile
				floc.FileName = c.Files[i].Name

				if !yield(floc, &c.Files[i].Notes) {
					return
				}
			}
		}
	}
}

// QuarantinedNode is a persisted month that could not be decoded. It is kept
// verbatim and written back unchanged on save.
type QuarantinedNode struct {
	YearKey  string
	MonthKey string
	Reason   string
}

// Tree is one tenant's year → month hierarchy.
type Tree struct {
	years map[int]map[int]*Month

	// keys holds the keys a decoded month was stored under, so it is
	// written back in place and never over a quarantined sibling.
	keys map[Period]nodeKey

	quarantine  map[string]map[string][]byte
	quarantined []QuarantinedNode
	blocked     PeriodSet
}

type nodeKey struct {
	year, month string
}

func NewTree() *Tree {
	return &Tree{years: make(map[int]map[int]*Month)}
}

// Month returns an existing month container.
func (t *Tree) Month(p Period) (*Month, bool) {
	months, ok := t.years[p.Year]
	if !ok {
		return nil, false
	}

	m, ok := months[p.Month]

	return m, ok
}

// GetOrCreate returns the month for p, creating the year and month nodes with
// default unlocked content when missing. created reports whether it was new.
func (t *Tree) GetOrCreate(p Period, status ActiveStatus, now time.Time) (*Month, bool, error) {
	if err := p.Validate(); err != nil {
		return nil, false, err
	}

	if m, ok := t.Month(p); ok {
		return m, false, nil
	}

	if t.blocked.Contains(p) {
		return nil, false, &ValidationError{Field: "month " + p.String(), Reason: "persisted node is malformed"}
	}

	if t.years == nil {
		t.years = make(map[int]map[int]*Month)
	}

	months, ok := t.years[p.Year]
	if !ok {
		months = make(map[int]*Month)
		t.years[p.Year] = months
	}

	m := newMonth(status, now)
	months[p.Month] = m

	return m, true, nil
}

// All yields every month ordered by year then month. The sequence is lazy
// and may be ranged over any number of times.
func (t *Tree) All() iter.Seq2[Period, *Month] {
	return func(yield func(Period, *Month) bool) {
		years := make([]int, 0, len(t.years))
		for y := range t.years {
			years = append(years, y)
		}

		slices.Sort(years)

		for _, y := range years {
			months := make([]int, 0, len(t.years[y]))
			for m := range t.years[y] {
				months = append(months, m)
			}

			slices.Sort(months)

			for _, m := range months {
				if !yield(Period{Year: y, Month: m}, t.years[y][m]) {
					return
				}
			}
		}
	}
}

// Len is the number of month containers.
func (t *Tree) Len() int {
	n := 0
	for _, months := range t.years {
		n += len(months)
	}

	return n
}

// Quarantined lists months skipped while decoding.
func (t *Tree) Quarantined() []QuarantinedNode {
	return t.quarantined
}
