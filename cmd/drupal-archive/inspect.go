package main

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/semmidev/drupal-archive/internal/ui"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Show the layout of an archive and check it can be restored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := opts.newApp()
			if err != nil {
				return err
			}
			defer application.Shutdown()

			layout, err := application.Inspect(args[0])
			if err != nil {
				return err
			}

			if err := ui.Table([]string{"Property", "Value"}, [][]string{
				{"Archive", layout.Path},
				{"Size", humanize.Bytes(uint64(layout.Size))},
				{"Compressed", strconv.FormatBool(layout.Compressed)},
				{"Entries", humanize.Comma(int64(layout.Entries))},
				{"Site directories", strings.Join(layout.Roots, ", ")},
				{"SQL dumps", strings.Join(layout.SQLFiles, ", ")},
				{"Uploaded files", humanize.Comma(int64(len(layout.UploadedFiles)))},
			}); err != nil {
				return err
			}

			if err := layout.Validate(); err != nil {
				return err
			}
			ui.Success("Archive layout is restorable")
			return nil
		},
	}
}
