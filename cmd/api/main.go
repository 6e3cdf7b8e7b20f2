package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/ledgerly/internal/app"
	"github.com/MrJamesThe3rd/ledgerly/internal/config"
	ledgerlyHttp "github.com/MrJamesThe3rd/ledgerly/internal/http"
	assignmentHandler "github.com/MrJamesThe3rd/ledgerly/internal/http/assignment"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/auth"
	clientHandler "github.com/MrJamesThe3rd/ledgerly/internal/http/client"
	monthHandler "github.com/MrJamesThe3rd/ledgerly/internal/http/month"
	notesHandler "github.com/MrJamesThe3rd/ledgerly/internal/http/notes"
	reconcileHandler "github.com/MrJamesThe3rd/ledgerly/internal/http/reconcile"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.App.LogLevel)
	slog.SetDefault(logger)

	if cfg.Auth.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	router := ledgerlyHttp.New(
		ledgerlyHttp.Options{
			CORSOrigins: cfg.Server.CORSOrigins,
			Timeout:     cfg.Server.Timeout,
		},
		auth.New(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		ledgerlyHttp.Handlers{
			Clients:     clientHandler.NewHandler(a.Clients),
			Months:      monthHandler.NewHandler(a.Clients, a.Export),
			Notes:       notesHandler.NewHandler(a.Clients, a.Location),
			Assignments: assignmentHandler.NewHandler(a.Assignments),
			Reconcile:   reconcileHandler.NewHandler(a.Reconcile, a.Location),
		},
	)

	if cfg.Scheduler.Enabled {
		a.Scheduler.Start(ctx)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "addr", srv.Addr, "time_zone", a.Location.String())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
