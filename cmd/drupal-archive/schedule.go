package main

import (
	"github.com/spf13/cobra"

	"github.com/semmidev/drupal-archive/internal/ui"
)

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the configured scheduled dumps and retention cleanup until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := opts.newApp()
			if err != nil {
				return err
			}
			defer application.Shutdown()

			ui.Info("Scheduler running, press Ctrl+C to stop")
			return application.RunSchedule(cmd.Context())
		},
	}
}
