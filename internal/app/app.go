// Package app wires the services shared by the api, ledgerctl and tui
// binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/MrJamesThe3rd/ledgerly/internal/assignment"
	assignmentStore "github.com/MrJamesThe3rd/ledgerly/internal/assignment/store"
	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	clientStore "github.com/MrJamesThe3rd/ledgerly/internal/client/store"
	"github.com/MrJamesThe3rd/ledgerly/internal/config"
	"github.com/MrJamesThe3rd/ledgerly/internal/database"
	"github.com/MrJamesThe3rd/ledgerly/internal/export"
	"github.com/MrJamesThe3rd/ledgerly/internal/notify"
	"github.com/MrJamesThe3rd/ledgerly/internal/plan"
	"github.com/MrJamesThe3rd/ledgerly/internal/reconcile"
	reconcileStore "github.com/MrJamesThe3rd/ledgerly/internal/reconcile/store"
	"github.com/MrJamesThe3rd/ledgerly/internal/tenantlock"
)

type App struct {
	Config   *config.Config
	Location *time.Location
	Logger   *slog.Logger

	Clients     *client.Service
	Assignments *assignment.Service
	Reconcile   *reconcile.Service
	Export      *export.Service
	Scheduler   *reconcile.Scheduler

	db    *sql.DB
	redis *redis.Client
}

// NewLogger builds the process logger from LOG_LEVEL.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	a := &App{Config: cfg, Location: loc, Logger: logger, db: db}

	locker, err := a.newLocker(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	var sender notify.Sender = notify.LogSender{Logger: logger}
	if cfg.Mail.BaseURL != "" {
		sender = notify.NewMailer(notify.MailerConfig{
			BaseURL:    cfg.Mail.BaseURL,
			APIKey:     cfg.Mail.APIKey,
			From:       cfg.Mail.From,
			Timeout:    cfg.Mail.Timeout,
			RetryCount: cfg.Mail.RetryCount,
		})
	}

	notifier := notify.NewNotifier(sender, logger)
	plans := plan.NewScheduler(nil, loc)

	a.Assignments = assignment.NewService(assignmentStore.New(db), logger)
	a.Clients = client.NewService(clientStore.New(db),
		client.WithLocker(locker),
		client.WithScopeSource(a.Assignments),
		client.WithNotifier(notifier),
		client.WithPlanScheduler(plans),
		client.WithLocation(loc),
		client.WithLogger(logger),
	)

	jobCfg := reconcile.JobConfig{
		Location:    loc,
		TenantPause: cfg.Scheduler.TenantPause,
		Logger:      logger,
		Notifier:    notifier,
	}

	a.Reconcile = reconcile.NewService(
		reconcile.NewAutoLockJob(a.Clients, jobCfg),
		reconcile.NewPlanChangeJob(a.Clients, plans, jobCfg),
		reconcileStore.New(db),
		logger,
	)

	a.Scheduler = reconcile.NewScheduler(a.Reconcile, reconcile.SchedulerConfig{
		Location:       loc,
		AutoLockDay:    cfg.Scheduler.AutoLockDay,
		AutoLockHour:   cfg.Scheduler.AutoLockHour,
		PlanChangeHour: cfg.Scheduler.PlanChangeHour,
		TickInterval:   cfg.Scheduler.TickInterval,
		Logger:         logger,
	})

	a.Export = export.NewService(a.Clients, export.Config{APIToken: cfg.Storage.Token}, logger)

	return a, nil
}

// newLocker uses Redis when configured so that several processes serialise
// on the same tenant.
func (a *App) newLocker(ctx context.Context) (tenantlock.Locker, error) {
	if a.Config.Redis.Addr == "" {
		a.Logger.Info("tenant locks are process-local")
		return tenantlock.NewLocal(), nil
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})

	if err := rc.Ping(ctx).Err(); err != nil {
		rc.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	a.redis = rc

	return tenantlock.NewRedis(rc, a.Config.Redis.KeyPrefix, tenantlock.WithLogger(a.Logger)), nil
}

func (a *App) Close() error {
	var errs []error

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}

	errs = append(errs, a.db.Close())

	return errors.Join(errs...)
}
