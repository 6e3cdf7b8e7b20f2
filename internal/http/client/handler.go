package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/params"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/respond"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/plan"
)

type Service interface {
	Create(ctx context.Context, params client.CreateParams) (*client.Client, error)
	Get(ctx context.Context, id uuid.UUID) (*client.Client, error)
	List(ctx context.Context, filter client.ListFilter) ([]*client.Client, error)
	Deactivate(ctx context.Context, id uuid.UUID, actor client.Actor) (*client.Client, error)
	Reactivate(ctx context.Context, id uuid.UUID, actor client.Actor) (*client.Client, error)
	RequestPlanChange(ctx context.Context, id uuid.UUID, actor client.Actor, newPlan string) (plan.Outcome, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.With(auth.RequireRole(ledger.RoleAdmin)).Post("/", h.create)
	r.With(auth.RequireRole(ledger.RoleAdmin, ledger.RoleEmployee)).Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/deactivate", h.deactivate)
	r.Post("/{id}/reactivate", h.reactivate)
	r.Post("/{id}/plan", h.changePlan)
}

type createClientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, r, err.Error())
		return
	}

	c, err := h.svc.Create(r.Context(), client.CreateParams{
		Name:  req.Name,
		Email: req.Email,
		Plan:  req.Plan,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var filter client.ListFilter

	switch r.URL.Query().Get("active") {
	case "true":
		filter.Active = new(true)
	case "false":
		filter.Active = new(false)
	}

	clients, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]clientResponse, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, toResponse(c))
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := params.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	if actor.Role == ledger.RoleClient && actor.ID != id {
		respond.Error(w, r, ledger.ErrForbidden)
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toDetailResponse(c))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.svc.Deactivate)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.svc.Reactivate)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, client.Actor) (*client.Client, error)) {
	id, err := params.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	actor, _ := auth.ActorFrom(r.Context())

	c, err := fn(r.Context(), id, actor)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(c))
}

type changePlanRequest struct {
	Plan string `json:"plan"`
}

func (h *Handler) changePlan(w http.ResponseWriter, r *http.Request) {
	id, err := params.ID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req changePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, r, err.Error())
		return
	}

	actor, _ := auth.ActorFrom(r.Context())

	outcome, err := h.svc.RequestPlanChange(r.Context(), id, actor, req.Plan)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, planOutcomeResponse{
		ActivePlan:    outcome.ActivePlan,
		PendingPlan:   outcome.PendingPlan,
		EffectiveFrom: outcome.EffectiveFrom,
		Immediate:     outcome.Immediate,
		MonthlyFee:    outcome.Fee.StringFixed(2),
	})
}
