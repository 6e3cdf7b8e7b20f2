package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Role is the kind of viewer or author interacting with a tenant's notes.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleClient   Role = "client"
	RoleSystem   Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleClient:
		return true
	}

	return false
}

// SystemActor is the author and actor name used by scheduled jobs.
const SystemActor = "system"

// ReadReceipt proves that a viewer has seen a note.
type ReadReceipt struct {
	ViewerID   uuid.UUID `json:"viewerId"`
	ViewerRole Role      `json:"viewerRole"`
	ViewedAt   time.Time `json:"viewedAt"`
}

// Note is immutable once added; only the receipt fields change.
type Note struct {
	ID         uuid.UUID  `json:"id"`
	Text       string     `json:"text"`
	AddedBy    string     `json:"addedBy"`
	AuthorRole Role       `json:"authorRole"`
	AuthorID   *uuid.UUID `json:"authorId,omitempty"`
	EmployeeID *uuid.UUID `json:"employeeId,omitempty"` // nil when written by the client
	AddedAt    time.Time  `json:"addedAt"`

	ViewedBy         []ReadReceipt `json:"viewedBy,omitempty"`
	ViewedByAdmin    bool          `json:"viewedByAdmin"`
	ViewedByEmployee bool          `json:"viewedByEmployee"`
	ViewedByClient   bool          `json:"viewedByClient"`
}

// NewNoteParams describes a note to be appended somewhere in a tree.
type NewNoteParams struct {
	Text       string
	AddedBy    string
	AuthorRole Role
	AuthorID   *uuid.UUID
	EmployeeID *uuid.UUID
}

func NewNote(params NewNoteParams, at time.Time) (Note, error) {
	if params.Text == "" {
		return Note{}, &ValidationError{Field: "text", Reason: "must not be empty"}
	}

	if params.AuthorRole == RoleEmployee && params.EmployeeID == nil {
		return Note{}, &ValidationError{Field: "employeeId", Reason: "required for employee notes"}
	}

	authorID := params.AuthorID
	if authorID == nil && params.EmployeeID != nil {
		authorID = new(*params.EmployeeID)
	}

	return Note{
		ID:         uuid.New(),
		Text:       params.Text,
		AddedBy:    params.AddedBy,
		AuthorRole: params.AuthorRole,
		AuthorID:   authorID,
		EmployeeID: params.EmployeeID,
		AddedAt:    at,
	}, nil
}

// ViewedByViewer reports whether viewerID already holds a receipt.
func (n *Note) ViewedByViewer(viewerID uuid.UUID) bool {
	for _, r := range n.ViewedBy {
		if r.ViewerID == viewerID {
			return true
		}
	}

	return false
}

// MarkViewed records a receipt for the viewer. It returns false when the
// viewer had already seen the note.
func (n *Note) MarkViewed(viewerID uuid.UUID, role Role, at time.Time) bool {
	if n.ViewedByViewer(viewerID) {
		return false
	}

	n.ViewedBy = append(n.ViewedBy, ReadReceipt{ViewerID: viewerID, ViewerRole: role, ViewedAt: at})

	switch role {
	case RoleAdmin:
		n.ViewedByAdmin = true
	case RoleEmployee:
		n.ViewedByEmployee = true
	case RoleClient:
		n.ViewedByClient = true
	}

	return true
}

// AuthoredBy reports whether the note was written by the given viewer. Two
// admins are different authors; a tenant has a single client identity, so a
// client note without an author ID still belongs to the client viewer.
func (n *Note) AuthoredBy(role Role, viewerID uuid.UUID) bool {
	if n.AuthorRole != role {
		return false
	}

	switch {
	case n.AuthorID != nil:
		return *n.AuthorID == viewerID
	case role == RoleEmployee:
		return n.EmployeeID != nil && *n.EmployeeID == viewerID
	case role == RoleClient:
		return true
	}

	return false
}
