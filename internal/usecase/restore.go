package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/semmidev/drupal-archive/internal/domain"
	"github.com/semmidev/drupal-archive/internal/infrastructure/shell"
)

type SettingsWriter interface {
	SettingsPath(root string) string
	Append(path string, creds domain.DatabaseCredentials) error
}

// URLParser turns a --db-url value into credentials.
type URLParser func(raw string) (domain.DatabaseCredentials, error)

// Restore unpacks a site archive and loads its database.
type Restore struct {
	fs       afero.Fs
	runner   domain.CommandRunner
	settings SettingsWriter
	drush    CompatibilityChecker
	parseURL URLParser
	logger   Logger
	tools    Toolchain
	now      func() time.Time
}

func NewRestore(
	fs afero.Fs,
	runner domain.CommandRunner,
	settings SettingsWriter,
	drush CompatibilityChecker,
	parseURL URLParser,
	logger Logger,
	tools Toolchain,
) *Restore {
	return &Restore{
		fs:       fs,
		runner:   runner,
		settings: settings,
		drush:    drush,
		parseURL: parseURL,
		logger:   logger,
		tools:    tools.withDefaults(),
		now:      time.Now,
	}
}

// Execute runs the job and returns the absolute path of the restored site.
func (uc *Restore) Execute(ctx context.Context, job domain.RestoreJobSpec) (string, error) {
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

	if strings.TrimSpace(job.DatabaseURL) == "" {
		return "", &domain.MissingDatabaseURLError{}
	}
	creds, err := uc.parseURL(job.DatabaseURL)
	if err != nil {
		return "", &domain.MissingDatabaseURLError{Err: err}
	}

	archive, err := filepath.Abs(job.Archive)
	if err != nil {
		return "", fmt.Errorf("failed to resolve archive: %w", err)
	}
	if ok, _ := afero.Exists(uc.fs, archive); !ok {
		return "", fmt.Errorf("archive %s does not exist", archive)
	}

	if job.UseDrush {
		if err := uc.drush.Verify(ctx); err != nil {
			return "", err
		}
	}

	if exists {
		uc.logger.Infof("Removing existing destination %s", destination)
		if err := forceRemoveAll(uc.fs, destination); err != nil {
			return "", err
		}
	}

	if job.UseDrush {
		err = uc.restoreWithDrush(ctx, archive, destination, job)
	} else {
		err = uc.restoreManually(ctx, archive, destination, creds)
	}
	if err != nil {
		return "", err
	}

	uc.logger.Infof("Restored %s into %s", archive, destination)
	return destination, nil
}

func (uc *Restore) restoreWithDrush(ctx context.Context, archive, destination string, job domain.RestoreJobSpec) error {
	args := []string{uc.tools.Drush, "archive-restore", archive,
		"--destination=" + destination, "--db-url=" + job.DatabaseURL}
	if job.Overwrite {
		args = append(args, "--overwrite")
	}
	command := shell.Quote(args...)
	if uc.tools.Verbose {
		command += " -vvv"
	}

	uc.logger.Infof("Restoring %s with drush", archive)
	if _, err := runRedacted(ctx, uc.runner, command, uc.tools.TransferTimeout, job.DatabaseURL); err != nil {
		return fmt.Errorf("drush archive-restore: %w", err)
	}
	return nil
}

func (uc *Restore) restoreManually(ctx context.Context, archive, destination string, creds domain.DatabaseCredentials) error {
	wd, err := newWorkingDirectory(uc.fs, uc.tools.TempDir, uc.now())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := wd.Close(); cerr != nil {
			uc.logger.Warnf("Failed to clean up %s: %v", wd.Path, cerr)
		}
	}()

	uc.logger.Infof("Extracting %s", archive)
	extract := shell.Quote(uc.tools.Tar, "-xf", archive, "-C", wd.Path)
	if _, err := uc.runner.Run(ctx, extract, uc.tools.TransferTimeout); err != nil {
		return fmt.Errorf("failed to extract archive: %w", err)
	}

	siteDir, err := wd.first(func(info os.FileInfo) bool { return info.IsDir() }, "a site directory")
	if err != nil {
		return err
	}
	uc.logger.Infof("Copying %s to %s", filepath.Base(siteDir), destination)
	if err := copyTree(uc.fs, siteDir, destination); err != nil {
		return fmt.Errorf("failed to copy site: %w", err)
	}

	sqlFile, err := wd.first(func(info os.FileInfo) bool {
		return !info.IsDir() && strings.HasSuffix(info.Name(), ".sql")
	}, "a *.sql database dump")
	if err != nil {
		return err
	}

	client := clientArgs(uc.tools.MySQL, creds)
	create := shell.Quote(append(client, "-e",
		"CREATE DATABASE `"+strings.ReplaceAll(creds.Database, "`", "``")+"`")...)
	if _, err := runRedacted(ctx, uc.runner, create, uc.tools.CommandTimeout, creds.Password); err != nil {
		uc.logger.Warnf("Could not create database %s, loading into the existing one: %v", creds.Database, err)
	}

	uc.logger.Infof("Loading %s into database %s", filepath.Base(sqlFile), creds.Database)
	load := shell.Quote(append(client, creds.Database)...) + " < " + shell.Quote(sqlFile)
	if _, err := runRedacted(ctx, uc.runner, load, uc.tools.TransferTimeout, creds.Password); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	settingsPath := uc.settings.SettingsPath(destination)
	if err := uc.settings.Append(settingsPath, creds); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
