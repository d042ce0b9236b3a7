package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/semmidev/drupal-archive/internal/domain"
)

const DefaultTimeout = 300 * time.Second

type Logger interface {
	Debugf(template string, args ...interface{})
}

// Runner runs command lines through a POSIX shell.
type Runner struct {
	shell          string
	defaultTimeout time.Duration
	logger         Logger
}

func NewRunner(shell string, defaultTimeout time.Duration, logger Logger) *Runner {
	if shell == "" {
		shell = "/bin/sh"
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Runner{
		shell:          shell,
		defaultTimeout: defaultTimeout,
		logger:         logger,
	}
}

// Run executes command and returns its trimmed stdout. The process group is
// killed when timeout elapses or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.logger.Debugf("Running command %q", command)

	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	setProcessGroup(cmd)
	cmd.WaitDelay = 5 * time.Second

	var stdout, combined bytes.Buffer
	stream := &lineLogger{logger: r.logger}
	shared := &lockedWriter{w: &combined, tee: stream}
	cmd.Stdout = &teeWriter{primary: &stdout, secondary: shared}
	cmd.Stderr = shared

	err := cmd.Run()
	stream.flush()
	if err == nil {
		return strings.TrimSpace(stdout.String()), nil
	}

	cmdErr := &domain.ExternalCommandError{
		Command:  command,
		ExitCode: -1,
		Output:   combined.String(),
		Err:      err,
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		cmdErr.TimedOut = true
		return "", cmdErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	return "", cmdErr
}

type teeWriter struct {
	primary   *bytes.Buffer
	secondary *lockedWriter
}

func (t *teeWriter) Write(p []byte) (int, error) {
	t.primary.Write(p)
	return t.secondary.Write(p)
}

// lockedWriter is shared by the stdout and stderr copy goroutines.
type lockedWriter struct {
	mu  sync.Mutex
	w   *bytes.Buffer
	tee *lineLogger
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(p)
	l.tee.write(p)
	return len(p), nil
}

type lineLogger struct {
	logger  Logger
	pending []byte
}

func (l *lineLogger) write(p []byte) {
	l.pending = append(l.pending, p...)
	for {
		i := bytes.IndexByte(l.pending, '\n')
		if i < 0 {
			return
		}
		l.logger.Debugf("%s", bytes.TrimRight(l.pending[:i], "\r"))
		l.pending = l.pending[i+1:]
	}
}

func (l *lineLogger) flush() {
	if len(l.pending) > 0 {
		l.logger.Debugf("%s", l.pending)
		l.pending = nil
	}
}
