package domain

import (
	"context"
	"time"
)

// CommandRunner executes a shell command line and returns its trimmed stdout.
// Failures are reported as *ExternalCommandError.
type CommandRunner interface {
	Run(ctx context.Context, command string, timeout time.Duration) (string, error)
}
