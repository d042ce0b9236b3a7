package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/semmidev/drupal-archive/internal/domain"
	"github.com/semmidev/drupal-archive/internal/infrastructure/shell"
)

type SettingsSource interface {
	Locate(root string) (string, error)
	Extract(path string) (domain.DatabaseCredentials, error)
}

// Dump archives a site and its database into a single tar.gz.
type Dump struct {
	fs       afero.Fs
	runner   domain.CommandRunner
	settings SettingsSource
	drush    CompatibilityChecker
	verifier ArchiveVerifier
	logger   Logger
	tools    Toolchain
	now      func() time.Time
}

func NewDump(
	fs afero.Fs,
	runner domain.CommandRunner,
	settings SettingsSource,
	drush CompatibilityChecker,
	verifier ArchiveVerifier,
	logger Logger,
	tools Toolchain,
) *Dump {
	return &Dump{
		fs:       fs,
		runner:   runner,
		settings: settings,
		drush:    drush,
		verifier: verifier,
		logger:   logger,
		tools:    tools.withDefaults(),
		now:      time.Now,
	}
}

// Execute runs the job and returns the absolute path of the archive.
func (uc *Dump) Execute(ctx context.Context, job domain.ArchiveJobSpec) (string, error) {
	destination, err := filepath.Abs(job.Destination)
	if err != nil {
		return "", fmt.Errorf("failed to resolve destination: %w", err)
	}

	exists, err := afero.Exists(uc.fs, destination)
	if err != nil {
		return "", fmt.Errorf("failed to stat destination: %w", err)
	}
	if exists && !job.Overwrite {
		return "", &domain.DestinationExistsError{Path: destination}
	}

	source, err := filepath.Abs(job.Source)
	if err != nil {
		return "", fmt.Errorf("failed to resolve source: %w", err)
	}

	start := uc.now()
	if job.UseDrush {
		if err := uc.dumpWithDrush(ctx, source, destination, job.Overwrite); err != nil {
			return "", err
		}
	} else {
		if err := uc.dumpManually(ctx, source, destination, exists); err != nil {
			return "", err
		}
		if job.Verify && uc.verifier != nil {
			if err := uc.verifier.Verify(destination); err != nil {
				return "", fmt.Errorf("archive verification: %w", err)
			}
		}
	}

	if info, err := uc.fs.Stat(destination); err == nil {
		uc.logger.Infof("Backup of %s finished in %s, size: %s",
			source, time.Since(start).Round(time.Second), humanize.Bytes(uint64(info.Size())))
	}
	return destination, nil
}

func (uc *Dump) dumpWithDrush(ctx context.Context, source, destination string, overwrite bool) error {
	if err := uc.drush.Verify(ctx); err != nil {
		return err
	}

	overwriteFlag := "--no-overwrite"
	if overwrite {
		overwriteFlag = "--overwrite"
	}
	command := fmt.Sprintf("cd %s && %s", shell.Quote(source),
		shell.Quote(uc.tools.Drush, "archive-dump", "--destination="+destination, overwriteFlag))
	if uc.tools.Verbose {
		command += " -vvv"
	}

	uc.logger.Infof("Creating archive of %s with drush", source)
	if _, err := uc.runner.Run(ctx, command, uc.tools.TransferTimeout); err != nil {
		return fmt.Errorf("drush archive-dump: %w", err)
	}
	return nil
}

type step struct {
	title   string
	command string
	timeout time.Duration
}

func (uc *Dump) dumpManually(ctx context.Context, source, destination string, replace bool) error {
	settingsPath, err := uc.settings.Locate(source)
	if err != nil {
		return err
	}
	creds, err := uc.settings.Extract(settingsPath)
	if err != nil {
		return &domain.SettingsNotFoundError{Searched: []string{settingsPath}, Err: err}
	}
	uc.logger.Infof("Found credentials for database %q in %s", creds.Database, settingsPath)

	if err := uc.fs.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	if replace {
		if err := uc.fs.Remove(destination); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove existing archive: %w", err)
		}
	}

	parent, site := filepath.Dir(source), filepath.Base(source)
	sqlName := fmt.Sprintf("database_%d.sql", uc.now().Unix())
	sqlPath := filepath.Join(uc.tools.TempDir, sqlName)
	defer uc.fs.Remove(sqlPath)

	steps := []step{
		{
			title:   "dump database " + creds.Database,
			command: shell.Quote(append(clientArgs(uc.tools.MySQLDump, creds), creds.Database)...) + " > " + shell.Quote(sqlPath),
			timeout: uc.tools.TransferTimeout,
		},
		{
			title: "archive " + source,
			command: fmt.Sprintf("cd %s && %s", shell.Quote(parent), shell.Quote(
				uc.tools.Tar, "--dereference", "--exclude="+site+"/sites/*/files", "-cf", destination, site)),
			timeout: uc.tools.TransferTimeout,
		},
		{
			title: "add database dump to archive",
			command: fmt.Sprintf("cd %s && %s", shell.Quote(uc.tools.TempDir), shell.Quote(
				uc.tools.Tar, "--dereference", "-rf", destination, sqlName)),
			timeout: uc.tools.TransferTimeout,
		},
		{
			title:   "compress archive",
			command: shell.Quote(uc.tools.Gzip, "--no-name", "-f", destination),
			timeout: uc.tools.TransferTimeout,
		},
		{
			title:   "rename compressed archive",
			command: shell.Quote("mv", "-f", destination+".gz", destination),
			timeout: uc.tools.CommandTimeout,
		},
	}

	for _, s := range steps {
		uc.logger.Infof("Running step: %s", s.title)
		if _, err := runRedacted(ctx, uc.runner, s.command, s.timeout, creds.Password); err != nil {
			return fmt.Errorf("failed to %s: %w", s.title, err)
		}
	}
	return nil
}
