package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobuk/clistcal/internal/calendar"
	"github.com/bobuk/clistcal/internal/credstore"
	"github.com/bobuk/clistcal/internal/logging"
)

func newAuthCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize clistcal to manage your Google calendar",
		Long: `Load the stored Google token for the configured account, refreshing it if it
has expired, or run the browser consent flow when none is stored. The token is
saved in the local database so scheduled syncs can run unattended. With
--reset, the stored token is dropped first and consent is asked again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.config.Provider != "google" {
				return fmt.Errorf("the %s provider does not use OAuth", a.config.Provider)
			}

			if reset {
				if err := a.store.Delete(ctx, a.config.Account); err != nil {
					return fmt.Errorf("error removing stored token: %w", err)
				}
				a.printer.Printf(logging.VerbosityPhases, "🗑 Stored token for %s removed\n", a.config.Account)
			}

			auth := &credstore.WebAuthenticator{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
			factory := calendar.NewCalendarFactory(ctx, a.config, a.store, auth, a.logger)
			ts, err := factory.TokenSource()
			if err != nil {
				return err
			}
			if _, err := ts.Token(); err != nil {
				return fmt.Errorf("error retrieving token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Account %s authorized\n", a.config.Account)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Drop the stored token and authorize again")
	return cmd
}
