package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/semmidev/pgkeeper/internal/adapter/compressor"
	"github.com/semmidev/pgkeeper/internal/adapter/database"
	"github.com/semmidev/pgkeeper/internal/adapter/notifier"
	"github.com/semmidev/pgkeeper/internal/adapter/storage"
	"github.com/semmidev/pgkeeper/internal/config"
	"github.com/semmidev/pgkeeper/internal/domain"
	"github.com/semmidev/pgkeeper/internal/infrastructure/lock"
	"github.com/semmidev/pgkeeper/internal/infrastructure/logger"
	"github.com/semmidev/pgkeeper/internal/infrastructure/scheduler"
	"github.com/semmidev/pgkeeper/internal/usecase"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         domain.Database
	compressor domain.Compressor
	notifier   domain.Notifier
	dashboard  *Dashboard
	loadConfig func() (*config.Config, error)
	now        func() time.Time
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.DaemonLogFile())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)
	log.Infof("Backing up %d database(s) on %s:%d, %s", len(cfg.Targets()), cfg.Postgres.Host, cfg.Postgres.Port, cfg.Schedule)

	a := &App{
		config:     cfg,
		logger:     log,
		db:         database.NewPostgreSQL(database.ExecRunner{}, database.DefaultTimeouts()),
		compressor: compressor.NewGzip(),
		loadConfig: config.Load,
		now:        time.Now,
	}

	if cfg.Notify.TelegramBotToken != "" && cfg.Notify.TelegramChatID != "" {
		tg, err := notifier.NewTelegram(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID)
		if err != nil {
			log.Errorf("Failed to initialize Telegram: %v", err)
		} else {
			a.notifier = tg
			log.Infof("Telegram notifications enabled")
		}
	}

	if cfg.App.DashboardAddr != "" {
		a.dashboard = NewDashboard(
			storage.NewLocal(cfg.Backup.Dir),
			storage.NewLocal(cfg.DataRoot()),
			storage.NewLocal(cfg.LogRoot()),
			log,
		)
	}

	return a, nil
}

// Run starts the scheduler and, when configured, the dashboard. It returns
// when ctx is cancelled or a backup run fails.
func (a *App) Run(ctx context.Context) error {
	schedule, err := scheduler.ScheduleFor(a.config.Schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	sched := scheduler.New(schedule, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx, a.RunBackup)
	})
	if a.dashboard != nil {
		g.Go(func() error {
			return a.dashboard.Serve(gctx, a.config.App.DashboardAddr)
		})
	}

	a.logger.Infof("Scheduler started: %s", a.config.Schedule)
	return g.Wait()
}

// RunBackup performs one scheduled backup run. The run is not interrupted
// when ctx is cancelled; cancellation only takes effect between runs.
func (a *App) RunBackup(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	runLock, err := lock.Acquire(cfg.LockFile())
	if errors.Is(err, lock.ErrLocked) {
		a.logger.Warnf("Skipping backup: %v", err)
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := runLock.Release(); err != nil {
			a.logger.Warnf("Failed to release lock: %v", err)
		}
	}()

	runLog, err := a.logger.ForRun(cfg.LogRoot(), a.now())
	if err != nil {
		return err
	}
	defer runLog.Close()

	runCtx := context.WithoutCancel(ctx)
	runLog.Infof("=== Backup run started ===")
	uc := usecase.NewBackup(a.db, a.compressor, usecase.NewCleanup(runLog), runLog)
	run, err := uc.Execute(runCtx, cfg.RunConfig(), cfg.Targets())

	if a.notifier != nil {
		if nerr := a.notifier.Notify(runCtx, usecase.RunSummary(cfg.Postgres.Host, run, err)); nerr != nil {
			runLog.Warnf("Failed to send notification: %v", nerr)
		}
	}
	if err != nil {
		runLog.Errorf("=== Backup run failed: %v ===", err)
		return err
	}
	runLog.Infof("=== Backup run finished ===")
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	a.logger.Close()
}
