package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bobuk/clistcal/internal/reconcile"
)

func newClearCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every upcoming contest event created by clistcal",
		Long: `Delete upcoming calendar events whose description carries the CLIST_CONTEST
marker. Events without the marker are never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer a.Close()

			provider, err := a.calendarProvider()
			if err != nil {
				return err
			}
			r := reconcile.New(reconcile.Options{
				Calendar:   provider,
				CalendarID: a.calendarID,
				Printer:    a.printer,
				Logger:     a.logger,
				DryRun:     dryRun,
			})

			report := &reconcile.Report{DryRun: dryRun}
			r.Clear(ctx, report)
			printSummary(a.printer, report)
			return report.Err()
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the events that would be removed")
	return cmd
}
