package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/export"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/params"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/respond"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/notes"
)

type Service interface {
	ExtractNotes(ctx context.Context, id uuid.UUID, actor client.Actor, filter notes.Filter) ([]notes.AnnotatedNote, error)
	Inbox(ctx context.Context, actor client.Actor, filter notes.Filter) ([]notes.AnnotatedNote, error)
	MarkNotesViewed(ctx context.Context, id uuid.UUID, actor client.Actor, sel notes.Selection) (notes.MarkResult, error)
	AddNote(ctx context.Context, id uuid.UUID, actor client.Actor, params client.AddNoteParams) (ledger.Note, error)
}

type Handler struct {
	svc Service
	loc *time.Location
}

func NewHandler(svc Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}

	return &Handler{svc: svc, loc: loc}
}

// Routes is mounted under /clients/{id}/notes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.add)
	r.Post("/viewed", h.markViewed)
}

// InboxRoutes is mounted under /inbox.
func (h *Handler) InboxRoutes(r chi.Router) {
	r.Get("/", h.inbox)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id, err := params.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	filter, err := params.NotesFilter(r, h.loc)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	actor, _ := auth.ActorFrom(r.Context())

	ns, err := h.svc.ExtractNotes(r.Context(), id, actor, filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.write(w, r, ns, "notes_"+id.String())
}

func (h *Handler) inbox(w http.ResponseWriter, r *http.Request) {
	filter, err := params.NotesFilter(r, h.loc)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	actor, _ := auth.ActorFrom(r.Context())

	ns, err := h.svc.Inbox(r.Context(), actor, filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.write(w, r, ns, "inbox")
}

// write answers with JSON, or with a workbook when format=xlsx.
func (h *Handler) write(w http.ResponseWriter, r *http.Request, ns []notes.AnnotatedNote, name string) {
	if r.URL.Query().Get("format") != "xlsx" {
		resp := make([]noteResponse, 0, len(ns))
		for _, n := range ns {
			resp = append(resp, toResponse(n))
		}

		respond.JSON(w, http.StatusOK, resp)

		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", name))

	if err := export.WriteNotes(w, ns); err != nil {
		slog.Error("failed to write notes workbook", "error", err)
	}
}

type locationDTO struct {
	Kind      ledger.LocationKind `json:"kind"`
	Year      int                 `json:"year"`
	Month     int                 `json:"month"`
	Category  ledger.CategoryType `json:"category,omitempty"`
	OtherName string              `json:"other_name,omitempty"`
	FileName  string              `json:"file_name,omitempty"`
}

func (l locationDTO) location() ledger.Location {
	return ledger.Location{
		Kind:      l.Kind,
		Period:    ledger.Period{Year: l.Year, Month: l.Month},
		Category:  l.Category,
		OtherName: l.OtherName,
		FileName:  l.FileName,
	}
}

type addNoteRequest struct {
	Location locationDTO `json:"location"`
	Text     string      `json:"text"`
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	id, err := params.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req addNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, r, err.Error())
		return
	}

	actor, _ := auth.ActorFrom(r.Context())

	n, err := h.svc.AddNote(r.Context(), id, actor, client.AddNoteParams{
		Location: req.Location.location(),
		Text:     req.Text,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, n)
}

type noteRefDTO struct {
	Text     string      `json:"text"`
	AddedBy  string      `json:"added_by"`
	AddedAt  time.Time   `json:"added_at"`
	Location locationDTO `json:"location"`
}

type markViewedRequest struct {
	IDs  []uuid.UUID  `json:"ids"`
	Refs []noteRefDTO `json:"refs"`
}

type markViewedResponse struct {
	Marked          int `json:"marked"`
	RemainingUnread int `json:"remaining_unread"`
	Ambiguous       int `json:"ambiguous"`
}

// markViewed takes ids and refs from the body. When both are empty the query
// string filter selects every matching note.
func (h *Handler) markViewed(w http.ResponseWriter, r *http.Request) {
	id, err := params.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	filter, err := params.NotesFilter(r, h.loc)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req markViewedRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.BadRequest(w, r, err.Error())
			return
		}
	}

	sel := notes.Selection{IDs: req.IDs, Filter: filter}
	for _, ref := range req.Refs {
		sel.Refs = append(sel.Refs, notes.NoteRef{
			Text:     ref.Text,
			AddedBy:  ref.AddedBy,
			AddedAt:  ref.AddedAt,
			Location: ref.Location.location(),
		})
	}

	actor, _ := auth.ActorFrom(r.Context())

	res, err := h.svc.MarkNotesViewed(r.Context(), id, actor, sel)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, markViewedResponse{
		Marked:          res.Marked,
		RemainingUnread: res.RemainingUnread,
		Ambiguous:       res.Ambiguous,
	})
}
