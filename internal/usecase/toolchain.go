package usecase

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/semmidev/drupal-archive/internal/domain"
	"github.com/semmidev/drupal-archive/internal/infrastructure/shell"
)

type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

type CompatibilityChecker interface {
	Verify(ctx context.Context) error
}

type ArchiveVerifier interface {
	Verify(archivePath string) error
}

// Toolchain names the external binaries and the limits they run under.
type Toolchain struct {
	Drush     string
	MySQL     string
	MySQLDump string
	Tar       string
	Gzip      string

	// CommandTimeout bounds short commands, TransferTimeout the ones moving
	// a whole database or site tree.
	CommandTimeout  time.Duration
	TransferTimeout time.Duration

	// TempDir holds SQL dumps and restore working directories.
	TempDir string

	// Verbose asks drush for debug output.
	Verbose bool
}

func (t Toolchain) withDefaults() Toolchain {
	if t.Drush == "" {
		t.Drush = "drush"
	}
	if t.MySQL == "" {
		t.MySQL = "mysql"
	}
	if t.MySQLDump == "" {
		t.MySQLDump = "mysqldump"
	}
	if t.Tar == "" {
		t.Tar = "tar"
	}
	if t.Gzip == "" {
		t.Gzip = "gzip"
	}
	if t.CommandTimeout <= 0 {
		t.CommandTimeout = 300 * time.Second
	}
	if t.TransferTimeout <= 0 {
		t.TransferTimeout = 600 * time.Second
	}
	if t.TempDir == "" {
		t.TempDir = os.TempDir()
	}
	return t
}

// clientArgs builds the connection flags shared by mysql and mysqldump.
func clientArgs(binary string, creds domain.DatabaseCredentials) []string {
	args := []string{
		binary,
		"--user=" + creds.Username,
		"--password=" + creds.Password,
		"--host=" + creds.Host,
	}
	if creds.Port != "" {
		args = append(args, "--port="+creds.Port)
	}
	return args
}

// runRedacted runs command and hides secret in the returned error.
func runRedacted(ctx context.Context, runner domain.CommandRunner, command string, timeout time.Duration, secret string) (string, error) {
	out, err := runner.Run(ctx, command, timeout)
	var cmdErr *domain.ExternalCommandError
	if err != nil && secret != "" && errors.As(err, &cmdErr) {
		cmdErr.Command = shell.Redact(cmdErr.Command, secret)
	}
	return out, err
}
