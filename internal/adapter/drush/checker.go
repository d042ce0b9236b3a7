package drush

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/juju/version/v2"

	"github.com/semmidev/drupal-archive/internal/domain"
	"github.com/semmidev/drupal-archive/internal/infrastructure/shell"
)

// MaxSupportedVersion is the last drush release shipping archive-dump and
// archive-restore.
const MaxSupportedVersion = "8.1.17"

var versionPattern = regexp.MustCompile(`\b[7-9]\.\d+\.\d+`)

type Logger interface {
	Warnf(template string, args ...interface{})
	Infof(template string, args ...interface{})
}

type Checker struct {
	runner  domain.CommandRunner
	binary  string
	timeout time.Duration
	ceiling version.Number
	logger  Logger
}

func NewChecker(runner domain.CommandRunner, binary string, timeout time.Duration, logger Logger) *Checker {
	if binary == "" {
		binary = "drush"
	}
	return &Checker{
		runner:  runner,
		binary:  binary,
		timeout: timeout,
		ceiling: version.MustParse(MaxSupportedVersion),
		logger:  logger,
	}
}

// Verify returns nil when the installed drush still has the archive commands.
func (c *Checker) Verify(ctx context.Context) error {
	out, err := c.runner.Run(ctx, shell.Quote(c.binary, "--version"), c.timeout)
	if err != nil {
		return &domain.ToolVersionUndetectableError{Tool: c.binary, Err: err}
	}

	found, err := ParseVersion(out)
	if err != nil {
		return &domain.ToolVersionUndetectableError{Tool: c.binary, Output: out}
	}

	if found.Compare(c.ceiling) > 0 {
		return &domain.IncompatibleToolVersionError{
			Tool:    c.binary,
			Found:   found.String(),
			Ceiling: c.ceiling.String(),
		}
	}

	c.logger.Infof("Using %s %s", c.binary, found)
	return nil
}

// Check is Verify reduced to a yes/no answer; the reason is logged.
func (c *Checker) Check(ctx context.Context) bool {
	if err := c.Verify(ctx); err != nil {
		c.logger.Warnf("Drush cannot be used: %v", err)
		return false
	}
	return true
}

// ParseVersion extracts the first 7.x, 8.x or 9.x version from drush output.
func ParseVersion(output string) (version.Number, error) {
	match := versionPattern.FindString(output)
	if match == "" {
		return version.Number{}, fmt.Errorf("no drush version in %q", output)
	}
	n, err := version.Parse(match)
	if err != nil {
		return version.Number{}, fmt.Errorf("failed to parse drush version %q: %w", match, err)
	}
	return n, nil
}
