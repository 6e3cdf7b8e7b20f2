package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/ledgerly/internal/http/assignment"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/month"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/notes"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/reconcile"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

type Options struct {
	CORSOrigins []string
	Timeout     time.Duration
}

type Handlers struct {
	Clients     *client.Handler
	Months      *month.Handler
	Notes       *notes.Handler
	Assignments *assignment.Handler
	Reconcile   *reconcile.Handler
}

func New(opts Options, authn *auth.Authenticator, h Handlers) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(authn.Middleware)

		r.Route("/clients", func(r chi.Router) {
			h.Clients.Routes(r)

			r.Route("/{id}/months/{year}/{month}", h.Months.Routes)
			r.Route("/{id}/notes", h.Notes.Routes)
		})

		r.Route("/inbox", h.Notes.InboxRoutes)

		r.Route("/assignments", func(r chi.Router) {
			r.Use(auth.RequireRole(ledger.RoleAdmin, ledger.RoleEmployee))
			h.Assignments.Routes(r)
		})

		r.Route("/reconcile", func(r chi.Router) {
			r.Use(auth.RequireRole(ledger.RoleAdmin))
			h.Reconcile.Routes(r)
		})
	})

	return router
}
