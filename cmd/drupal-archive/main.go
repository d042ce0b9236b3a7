package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semmidev/drupal-archive/internal/app"
	"github.com/semmidev/drupal-archive/internal/config"
	"github.com/semmidev/drupal-archive/internal/ui"
)

var version = "dev" // overridden by -ldflags "-X main.version=..."

type rootOptions struct {
	configPath string
	verbosity  int
}

// newApp loads the configuration and wires the application for one command.
func (o *rootOptions) newApp() (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	ui.Quiet = o.verbosity > 0
	application, err := app.New(cfg, o.verbosity)
	if err != nil {
		return nil, fmt.Errorf("initialize app: %w", err)
	}
	return application, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "drupal-archive",
		Short:         "Back up and restore Drupal sites as a single tar.gz",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default ./drupal-archive.yaml if present)")
	root.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "increase verbosity (-v info, -vv debug with command output)")

	root.AddCommand(
		newDumpCmd(opts),
		newRestoreCmd(opts),
		newInspectCmd(opts),
		newScheduleCmd(opts),
		newGDriveAuthCmd(opts),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		ui.Error("%v", err)
		cancel()
		os.Exit(1)
	}
}
