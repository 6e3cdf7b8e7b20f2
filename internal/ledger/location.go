package ledger

import (
	"cmp"
	"fmt"
)

type LocationKind string

const (
	LocationMonth    LocationKind = "month"
	LocationCategory LocationKind = "category"
	LocationFile     LocationKind = "file"
)

// Location holds the coordinates needed to find a note list inside a tree.
type Location struct {
	Kind LocationKind `json:"kind"`
	Period
	Category  CategoryType `json:"category,omitempty"`
	OtherName string       `json:"otherName,omitempty"`
	FileName  string       `json:"fileName,omitempty"`
}

func (l Location) Validate() error {
	if err := l.Period.Validate(); err != nil {
		return err
	}

	switch l.Kind {
	case LocationMonth:
		return nil
	case LocationCategory, LocationFile:
	default:
		return &ValidationError{Field: "location kind", Reason: fmt.Sprintf("unknown %q", l.Kind)}
	}

	if !l.Category.Valid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown %q", l.Category)}
	}

	if l.Category == CategoryOther && l.OtherName == "" {
		return &ValidationError{Field: "otherName", Reason: "required for other categories"}
	}

	if l.Kind == LocationFile && l.FileName == "" {
		return &ValidationError{Field: "fileName", Reason: "required for file notes"}
	}

	return nil
}

func (l Location) CategoryRef() CategoryRef {
	return CategoryRef{Type: l.Category, Name: l.OtherName}
}

func (l Location) String() string {
	s := l.Period.String()
	if l.Kind == LocationMonth {
		return s
	}

	s += "/" + string(l.Category)
	if l.OtherName != "" {
		s += ":" + l.OtherName
	}

	if l.Kind == LocationFile {
		s += "/" + l.FileName
	}

	return s
}

// Compare orders locations by period, then kind and names.
func (l Location) Compare(o Location) int {
	if c := cmp.Compare(l.Year, o.Year); c != 0 {
		return c
	}

	if c := cmp.Compare(l.Month, o.Month); c != 0 {
		return c
	}

	return cmp.Compare(l.String(), o.String())
}

// NotesAt resolves loc to the note list it addresses. Every node on the path
// must already exist.
func (t *Tree) NotesAt(loc Location) (*[]Note, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	m, ok := t.Month(loc.Period)
	if !ok {
		return nil, &NotFoundError{Kind: "month", Key: loc.Period.String()}
	}

	if loc.Kind == LocationMonth {
		return &m.Notes, nil
	}

	c, err := m.Category(loc.CategoryRef())
	if err != nil {
		return nil, err
	}

	if loc.Kind == LocationCategory {
		return &c.Notes, nil
	}

	f, err := c.File(loc.FileName)
	if err != nil {
		return nil, err
	}

	return &f.Notes, nil
}

// AddNote appends note at loc. Notes are accepted on locked nodes.
func (t *Tree) AddNote(loc Location, note Note) error {
	notes, err := t.NotesAt(loc)
	if err != nil {
		return err
	}

	*notes = append(*notes, note)

	return nil
}
