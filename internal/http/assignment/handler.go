package assignment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/assignment"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/params"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/respond"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

// maxRosterSize bounds an uploaded roster.
const maxRosterSize = 10 << 20

type Service interface {
	Create(ctx context.Context, params assignment.CreateParams) (*assignment.Assignment, error)
	List(ctx context.Context, filter assignment.ListFilter) ([]*assignment.Assignment, error)
	Remove(ctx context.Context, id uuid.UUID) error
	ImportRoster(ctx context.Context, r io.Reader) (*assignment.ImportResult, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Routes is admin only, except employees may list their own assignments.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(ledger.RoleAdmin))
		r.Post("/", h.create)
		r.Delete("/{id}", h.remove)
		r.Post("/import", h.importRoster)
	})
}

type assignmentResponse struct {
	ID         uuid.UUID `json:"id"`
	EmployeeID uuid.UUID `json:"employee_id"`
	ClientID   uuid.UUID `json:"client_id"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	Task       string    `json:"task,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
	IsRemoved  bool      `json:"is_removed"`
}

func toResponse(a *assignment.Assignment) assignmentResponse {
	return assignmentResponse{
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		ClientID:   a.ClientID,
		Year:       a.Year,
		Month:      a.Month,
		Task:       a.Task,
		AssignedAt: a.AssignedAt,
		IsRemoved:  a.IsRemoved,
	}
}

type createAssignmentRequest struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	ClientID   uuid.UUID `json:"client_id"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	Task       string    `json:"task"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, r, err.Error())
		return
	}

	a, err := h.svc.Create(r.Context(), assignment.CreateParams{
		EmployeeID: req.EmployeeID,
		ClientID:   req.ClientID,
		Period:     ledger.Period{Year: req.Year, Month: req.Month},
		Task:       req.Task,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(a))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	q := r.URL.Query()

	filter := assignment.ListFilter{IncludeRemoved: q.Get("include_removed") == "true"}

	switch actor.Role {
	case ledger.RoleAdmin:
		if s := q.Get("employee_id"); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				respond.BadRequest(w, r, "invalid employee_id")
				return
			}

			filter.EmployeeID = &id
		}
	case ledger.RoleEmployee:
		filter.EmployeeID = &actor.ID
	default:
		respond.Error(w, r, ledger.ErrForbidden)
		return
	}

	if s := q.Get("client_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respond.BadRequest(w, r, "invalid client_id")
			return
		}

		filter.ClientID = &id
	}

	as, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]assignmentResponse, 0, len(as))
	for _, a := range as {
		resp = append(resp, toResponse(a))
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := params.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.Remove(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type rowErrorResponse struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type importResponse struct {
	Created int                `json:"created"`
	Skipped int                `json:"skipped"`
	Errors  []rowErrorResponse `json:"errors"`
}

// importRoster takes the CSV in a multipart "file" field.
func (h *Handler) importRoster(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRosterSize)

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.BadRequest(w, r, "missing file: "+err.Error())
		return
	}
	defer file.Close()

	res, err := h.svc.ImportRoster(r.Context(), file)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := importResponse{Created: res.Created, Skipped: res.Skipped, Errors: []rowErrorResponse{}}
	for _, e := range res.Errors {
		resp.Errors = append(resp.Errors, rowErrorResponse{Row: e.Row, Error: e.Err.Error()})
	}

	respond.JSON(w, http.StatusOK, resp)
}
