package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/semmidev/drupal-archive/internal/adapter/archive"
	"github.com/semmidev/drupal-archive/internal/adapter/dburl"
	"github.com/semmidev/drupal-archive/internal/adapter/drush"
	"github.com/semmidev/drupal-archive/internal/adapter/settings"
	"github.com/semmidev/drupal-archive/internal/adapter/storage"
	"github.com/semmidev/drupal-archive/internal/config"
	"github.com/semmidev/drupal-archive/internal/domain"
	"github.com/semmidev/drupal-archive/internal/infrastructure/logger"
	"github.com/semmidev/drupal-archive/internal/infrastructure/scheduler"
	"github.com/semmidev/drupal-archive/internal/infrastructure/shell"
	"github.com/semmidev/drupal-archive/internal/usecase"
)

type App struct {
	config    *config.Config
	logger    *logger.Logger
	fs        afero.Fs
	drush     *drush.Checker
	inspector *archive.Inspector
	dumpUC    *usecase.Dump
	restoreUC *usecase.Restore
	scheduler *scheduler.Scheduler
}

func New(cfg *config.Config, verbosity int) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile, verbosity)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	fs := afero.NewOsFs()
	runner := shell.NewRunner(cfg.Commands.Shell, cfg.Timeouts.Command, log)
	reader := settings.NewReader(fs)
	checker := drush.NewChecker(runner, cfg.Commands.Drush, cfg.Timeouts.Probe, log)
	inspector := archive.NewInspector()

	tools := usecase.Toolchain{
		Drush:           cfg.Commands.Drush,
		MySQL:           cfg.Commands.MySQL,
		MySQLDump:       cfg.Commands.MySQLDump,
		Tar:             cfg.Commands.Tar,
		Gzip:            cfg.Commands.Gzip,
		CommandTimeout:  cfg.Timeouts.Command,
		TransferTimeout: cfg.Timeouts.Transfer,
		TempDir:         cfg.App.TempDir,
		Verbose:         log.Verbose(),
	}

	return &App{
		config:    cfg,
		logger:    log,
		fs:        fs,
		drush:     checker,
		inspector: inspector,
		dumpUC:    usecase.NewDump(fs, runner, reader, checker, inspector, log, tools),
		restoreUC: usecase.NewRestore(fs, runner, reader, checker, dburl.Parse, log, tools),
	}, nil
}

func (a *App) Logger() *logger.Logger {
	return a.logger
}

func (a *App) Dump(ctx context.Context, job domain.ArchiveJobSpec) (string, error) {
	return a.dumpUC.Execute(ctx, job)
}

func (a *App) Restore(ctx context.Context, job domain.RestoreJobSpec) (string, error) {
	return a.restoreUC.Execute(ctx, job)
}

func (a *App) Inspect(path string) (*archive.Layout, error) {
	return a.inspector.Inspect(path)
}

// Publish uploads an archive to every enabled target. It returns the number
// of targets tried.
func (a *App) Publish(ctx context.Context, path string) (int, error) {
	targets := a.uploadTargets(ctx)
	if len(targets) == 0 {
		return 0, nil
	}
	return len(targets), usecase.NewPublisher(targets, a.logger).Publish(ctx, path, filepath.Base(path))
}

func (a *App) uploadTargets(ctx context.Context) []usecase.UploadTarget {
	var targets []usecase.UploadTarget

	for _, targetCfg := range a.config.GetEnabledUploadTargets() {
		var stor domain.Storage
		var err error

		switch targetCfg.Type {
		case "local":
			stor, err = storage.NewLocal(a.fs, targetCfg.Path)
		case "gdrive":
			stor, err = storage.NewGDrive(ctx, &targetCfg)
		case "s3":
			stor, err = storage.NewS3(ctx, &targetCfg)
		case "telegram":
			stor, err = storage.NewTelegram(&targetCfg)
		default:
			a.logger.Warnf("Unknown upload target type: %s", targetCfg.Type)
			continue
		}
		if err != nil {
			a.logger.Errorf("Failed to initialize %s target: %v", targetCfg.Type, err)
			continue
		}

		a.logger.Infof("%s upload enabled", targetCfg.Type)
		targets = append(targets, usecase.UploadTarget{
			Name:    targetCfg.Type,
			Storage: stor,
		})
	}

	return targets
}

// RunSchedule runs the configured dumps and the retention cleanup until ctx
// is cancelled.
func (a *App) RunSchedule(ctx context.Context) error {
	if err := a.config.ValidateSchedules(); err != nil {
		return fmt.Errorf("invalid schedule config: %w", err)
	}

	local, err := storage.NewLocal(a.fs, a.config.Backup.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to initialize local storage: %w", err)
	}

	targets := a.uploadTargets(ctx)
	scheduled := usecase.NewScheduledBackup(a.dumpUC, local, usecase.NewPublisher(targets, a.logger), a.logger)
	cleanup := usecase.NewCleanup(
		append([]usecase.UploadTarget{{Name: "local", Storage: local}}, targets...),
		a.logger,
		a.config.Backup.RetentionDays,
	)

	a.scheduler = scheduler.New(a.logger)

	for _, s := range a.config.GetEnabledSchedules() {
		job := domain.ScheduledDump{
			Name:     s.Name,
			Source:   s.Source,
			Schedule: s.Cron,
			UseDrush: s.UseDrush,
		}
		if err := a.scheduler.AddJob(job.Name, job.Schedule, func(ctx context.Context) error {
			return scheduled.Execute(ctx, job)
		}); err != nil {
			return fmt.Errorf("failed to schedule dump of %s: %w", job.Name, err)
		}
		a.logger.Infof("Scheduled dump of %s (%s): %s", job.Name, job.Source, job.Schedule)
		if job.UseDrush && !a.drush.Check(ctx) {
			a.logger.Warnf("Dumps of %s will fail until a compatible drush is installed", job.Name)
		}
	}

	a.logger.Infof("Scheduling cleanup: %s", a.config.Backup.CleanupSchedule)
	if err := a.scheduler.AddJob("cleanup", a.config.Backup.CleanupSchedule, cleanup.Execute); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	a.scheduler.Start()
	a.logger.Infof("Scheduler started with %d job(s), archives in %s + %d remote target(s)",
		a.scheduler.Len(), a.config.Backup.LocalPath, len(targets))

	<-ctx.Done()
	return nil
}

func (a *App) Shutdown() {
	if a.scheduler != nil {
		a.logger.Infof("Shutting down scheduler...")
		a.scheduler.Stop()
	}
	a.logger.Close()
}
