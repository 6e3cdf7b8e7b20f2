package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/MrJamesThe3rd/ledgerly/internal/app"
	"github.com/MrJamesThe3rd/ledgerly/internal/cli"
	"github.com/MrJamesThe3rd/ledgerly/internal/config"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		// Rejected input or a locked month: nothing to retry as is.
		if ledger.IsClientError(err) {
			os.Exit(2)
		}

		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := app.NewLogger(cfg.App.LogLevel)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	c := &cli.App{
		Reconcile: a.Reconcile,
		Roster:    a.Assignments,
		Location:  a.Location,
		JSON:      !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}

	if cfg.Auth.JWTSecret != "" {
		c.Tokens = auth.New(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	}

	return cli.NewRootCmd(c).ExecuteContext(ctx)
}
