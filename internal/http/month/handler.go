package month

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/export"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/params"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/respond"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

type Service interface {
	Month(ctx context.Context, id uuid.UUID, actor client.Actor, p ledger.Period) (*client.Client, *ledger.Month, error)
	LockMonth(ctx context.Context, id uuid.UUID, actor client.Actor, p ledger.Period) (ledger.LockOutcome, error)
	LockCategory(ctx context.Context, id uuid.UUID, actor client.Actor, p ledger.Period, ref ledger.CategoryRef) (ledger.LockOutcome, error)
	UnlockMonth(ctx context.Context, id uuid.UUID, actor client.Actor, p ledger.Period) (ledger.LockOutcome, error)
	AddFile(ctx context.Context, id uuid.UUID, actor client.Actor, params client.AddFileParams) (ledger.File, error)
	AddOtherCategory(ctx context.Context, id uuid.UUID, actor client.Actor, p ledger.Period, name string) error
}

type Exporter interface {
	Export(ctx context.Context, id uuid.UUID, actor client.Actor, p ledger.Period, outputDir string) ([]export.Item, error)
	GenerateSummary(items []export.Item) string
}

type Handler struct {
	svc      Service
	exporter Exporter
}

func NewHandler(svc Service, exporter Exporter) *Handler {
	return &Handler{svc: svc, exporter: exporter}
}

// Routes is mounted under /clients/{id}/months/{year}/{month}.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.get)
	r.Post("/lock", h.lock)
	r.Post("/unlock", h.unlock)
	r.Post("/categories/{category}/lock", h.lockCategory)
	r.Post("/files", h.addFile)
	r.Post("/other", h.addOther)
	r.Get("/export", h.export)
}

type target struct {
	id     uuid.UUID
	period ledger.Period
	actor  client.Actor
}

func parseTarget(r *http.Request) (target, error) {
	id, err := params.ID(r, "id")
	if err != nil {
		return target{}, err
	}

	p, err := params.Period(r)
	if err != nil {
		return target{}, err
	}

	actor, _ := auth.ActorFrom(r.Context())

	return target{id: id, period: p, actor: actor}, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	t, err := parseTarget(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	_, m, err := h.svc.Month(r.Context(), t.id, t.actor, t.period)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, m)
}

type lockResponse struct {
	Outcome string `json:"outcome"`
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	t, err := parseTarget(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	outcome, err := h.svc.LockMonth(r.Context(), t.id, t.actor, t.period)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, lockResponse{Outcome: outcome.String()})
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	t, err := parseTarget(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	outcome, err := h.svc.UnlockMonth(r.Context(), t.id, t.actor, t.period)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, lockResponse{Outcome: outcome.String()})
}

func (h *Handler) lockCategory(w http.ResponseWriter, r *http.Request) {
	t, err := parseTarget(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	ref := ledger.CategoryRef{
		Type: ledger.CategoryType(chi.URLParam(r, "category")),
		Name: r.URL.Query().Get("name"),
	}

	outcome, err := h.svc.LockCategory(r.Context(), t.id, t.actor, t.period, ref)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, lockResponse{Outcome: outcome.String()})
}

type addFileRequest struct {
	Category  ledger.CategoryType `json:"category"`
	OtherName string              `json:"other_name,omitempty"`
	Name      string              `json:"name"`
	URL       string              `json:"url"`
	SizeBytes int64               `json:"size_bytes"`
}

func (h *Handler) addFile(w http.ResponseWriter, r *http.Request) {
	t, err := parseTarget(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req addFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, r, err.Error())
		return
	}

	f, err := h.svc.AddFile(r.Context(), t.id, t.actor, client.AddFileParams{
		Period:    t.period,
		Category:  ledger.CategoryRef{Type: req.Category, Name: req.OtherName},
		Name:      req.Name,
		URL:       req.URL,
		SizeBytes: req.SizeBytes,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, f)
}

type addOtherRequest struct {
	Name string `json:"name"`
}

func (h *Handler) addOther(w http.ResponseWriter, r *http.Request) {
	t, err := parseTarget(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req addOtherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, r, err.Error())
		return
	}

	if err := h.svc.AddOtherCategory(r.Context(), t.id, t.actor, t.period, req.Name); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// export streams a zip with every downloaded file of the month and a
// summary.txt listing them.
func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	t, err := parseTarget(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tmpDir, err := os.MkdirTemp("", "ledgerly-export-*")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	defer os.RemoveAll(tmpDir)

	items, err := h.exporter.Export(r.Context(), t.id, t.actor, t.period, tmpDir)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	summary := h.exporter.GenerateSummary(items)
	if err := os.WriteFile(filepath.Join(tmpDir, "summary.txt"), []byte(summary), 0o644); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"export_%s_%d%02d.zip\"", t.id, t.period.Year, t.period.Month))

	zipWriter := zip.NewWriter(w)
	defer zipWriter.Close()

	err = filepath.Walk(tmpDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		relPath, _ := filepath.Rel(tmpDir, path)

		zf, err := zipWriter.Create(filepath.ToSlash(relPath))
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(zf, f)

		return err
	})
	if err != nil {
		slog.Error("failed to create zip", "error", err)
	}
}
