package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/semmidev/drupal-archive/internal/domain"
	"github.com/semmidev/drupal-archive/internal/ui"
)

func newDumpCmd(opts *rootOptions) *cobra.Command {
	var (
		job     domain.ArchiveJobSpec
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "dump <source> <destination>",
		Short: "Archive a Drupal site and its database into a tar.gz",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			job.Source, job.Destination = args[0], args[1]

			application, err := opts.newApp()
			if err != nil {
				return err
			}
			defer application.Shutdown()

			ctx := cmd.Context()
			path, err := ui.StepSpinner("Creating archive of "+job.Source, func() (string, error) {
				return application.Dump(ctx, job)
			})
			if err != nil {
				return err
			}

			if publish {
				n, err := ui.StepSpinner("Publishing archive", func() (int, error) {
					return application.Publish(ctx, path)
				})
				switch {
				case n == 0:
					ui.Warning("No upload target is enabled, nothing published")
				case err != nil:
					ui.Warning("Some uploads failed: %v", err)
				}
			}

			if info, err := os.Stat(path); err == nil {
				ui.Success("Archive created (%s)", humanize.Bytes(uint64(info.Size())))
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&job.Overwrite, "overwrite", false, "replace an existing destination archive")
	cmd.Flags().BoolVar(&job.UseDrush, "use-drush", false, "delegate to drush archive-dump (drush <= 8.1.17)")
	cmd.Flags().BoolVar(&job.Verify, "verify", false, "inspect the produced archive layout")
	cmd.Flags().BoolVar(&publish, "publish", false, "upload the archive to the configured targets")
	return cmd
}
