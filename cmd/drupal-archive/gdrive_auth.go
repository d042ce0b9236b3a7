package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semmidev/drupal-archive/internal/app"
	"github.com/semmidev/drupal-archive/internal/ui"
)

func newGDriveAuthCmd(opts *rootOptions) *cobra.Command {
	var clientSecret, addr string

	cmd := &cobra.Command{
		Use:   "gdrive-auth",
		Short: "Obtain a refresh token for a gdrive upload target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := opts.newApp()
			if err != nil {
				return err
			}
			defer application.Shutdown()

			authorizer, err := app.NewGDriveAuthorizer(clientSecret, application.Logger())
			if err != nil {
				return err
			}

			token, err := authorizer.Authorize(cmd.Context(), addr, func(url string) {
				ui.Info("Open %s in a browser and grant access", url)
			})
			if err != nil {
				return err
			}

			ui.Success("Authorized, set refresh_token on the gdrive target:")
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientSecret, "client-secret", "client_secret.json", "OAuth client secret downloaded from the Google console")
	cmd.Flags().StringVar(&addr, "addr", "localhost:8085", "listen address of the OAuth callback server")
	return cmd
}
