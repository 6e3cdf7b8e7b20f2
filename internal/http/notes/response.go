package notes

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/notes"
)

type noteResponse struct {
	ID         uuid.UUID   `json:"id"`
	ClientID   uuid.UUID   `json:"client_id"`
	Text       string      `json:"text"`
	AddedBy    string      `json:"added_by"`
	AuthorRole ledger.Role `json:"author_role"`
	AddedAt    time.Time   `json:"added_at"`
	Location   locationDTO `json:"location"`
	Path       string      `json:"path"`
	Unread     bool        `json:"unread"`
}

func toResponse(n notes.AnnotatedNote) noteResponse {
	return noteResponse{
		ID:         n.Note.ID,
		ClientID:   n.ClientID,
		Text:       n.Note.Text,
		AddedBy:    n.Note.AddedBy,
		AuthorRole: n.Note.AuthorRole,
		AddedAt:    n.Note.AddedAt,
		Location: locationDTO{
			Kind:      n.Location.Kind,
			Year:      n.Location.Year,
			Month:     n.Location.Month,
			Category:  n.Location.Category,
			OtherName: n.Location.OtherName,
			FileName:  n.Location.FileName,
		},
		Path:   n.Location.String(),
		Unread: n.Unread,
	}
}
