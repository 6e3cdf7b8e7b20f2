package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/ledgerly/internal/export"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/params"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/respond"
	"github.com/MrJamesThe3rd/ledgerly/internal/reconcile"
)

type Service interface {
	RunAutoLock(ctx context.Context, runDate time.Time, trigger reconcile.Trigger) (*reconcile.Run, reconcile.AutoLockReport, error)
	RunPlanChange(ctx context.Context, runDate time.Time, trigger reconcile.Trigger) (*reconcile.Run, reconcile.PlanChangeReport, error)
	ListRuns(ctx context.Context, filter reconcile.RunFilter) ([]*reconcile.Run, error)
}

type Handler struct {
	svc Service
	loc *time.Location
	now func() time.Time
}

func NewHandler(svc Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}

	return &Handler{svc: svc, loc: loc, now: time.Now}
}

// Routes is admin only; the router applies the guard.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auto-lock", h.autoLock)
	r.Post("/plan-change", h.planChange)
	r.Get("/runs", h.listRuns)
}

type runResponse struct {
	Run    *reconcile.Run `json:"run"`
	Report any            `json:"report"`
	Error  string         `json:"error,omitempty"`
}

// runDate reads ?date=, defaulting to now. Re-running a past date is how an
// operator backfills a missed cycle.
func (h *Handler) runDate(r *http.Request) (time.Time, error) {
	s := r.URL.Query().Get("date")
	if s == "" {
		return h.now(), nil
	}

	t, err := params.Date(s, h.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}

	return t, nil
}

func (h *Handler) autoLock(w http.ResponseWriter, r *http.Request) {
	at, err := h.runDate(r)
	if err != nil {
		respond.BadRequest(w, r, err.Error())
		return
	}

	run, rep, err := h.svc.RunAutoLock(r.Context(), at, reconcile.TriggerManual)
	h.writeRun(w, r, run, rep, err)
}

func (h *Handler) planChange(w http.ResponseWriter, r *http.Request) {
	at, err := h.runDate(r)
	if err != nil {
		respond.BadRequest(w, r, err.Error())
		return
	}

	run, rep, err := h.svc.RunPlanChange(r.Context(), at, reconcile.TriggerManual)
	h.writeRun(w, r, run, rep, err)
}

// writeRun reports a run that was recorded even when it stopped early.
func (h *Handler) writeRun(w http.ResponseWriter, r *http.Request, run *reconcile.Run, rep any, err error) {
	if run == nil {
		respond.Error(w, r, err)
		return
	}

	resp := runResponse{Run: run, Report: rep}
	if err != nil {
		resp.Error = err.Error()
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter reconcile.RunFilter

	if s := q.Get("job"); s != "" {
		filter.Job = new(reconcile.Job(s))
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respond.BadRequest(w, r, "invalid limit")
			return
		}

		filter.Limit = n
	}

	runs, err := h.svc.ListRuns(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if q.Get("format") != "xlsx" {
		if runs == nil {
			runs = []*reconcile.Run{}
		}

		respond.JSON(w, http.StatusOK, runs)

		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\"reconciliation_runs.xlsx\"")

	if err := export.WriteRuns(w, runs); err != nil {
		slog.Error("failed to write runs workbook", "error", err)
	}
}
