package cmd

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bobuk/clistcal/internal/clist"
	"github.com/bobuk/clistcal/internal/contest"
	"github.com/bobuk/clistcal/internal/logging"
	"github.com/bobuk/clistcal/internal/reconcile"
)

func newSyncCmd() *cobra.Command {
	var clearFirst, dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Add upcoming contests that are missing from the calendar",
		Long: `Fetch upcoming contests from clist.by, keep those matching the platform
filter, and add an event for each contest whose "<RESOURCE> - <title>" summary
is not already in the calendar. With --clear, every tagged contest event is
removed first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.reconciler(dryRun)
			if err != nil {
				return err
			}
			report := r.Run(ctx, reconcile.RunOptions{Clear: clearFirst})
			printSummary(a.printer, report)
			return report.Err()
		},
	}

	cmd.Flags().BoolVar(&clearFirst, "clear", false, "Remove all tagged contest events before syncing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without touching the calendar")
	return cmd
}

func (a *app) reconciler(dryRun bool) (*reconcile.Reconciler, error) {
	if err := a.config.RequireClistCredentials(); err != nil {
		return nil, err
	}
	source, err := clist.NewClient(clist.Options{
		Endpoint:   a.config.Clist.Endpoint,
		Username:   a.config.Clist.Username,
		APIKey:     a.config.Clist.APIKey,
		Limit:      a.config.Clist.Limit,
		HTTPClient: &http.Client{Timeout: a.config.Clist.Timeout.Duration},
	})
	if err != nil {
		return nil, err
	}
	filter, err := contest.NewFilter(a.config.Rules())
	if err != nil {
		return nil, err
	}
	provider, err := a.calendarProvider()
	if err != nil {
		return nil, err
	}

	return reconcile.New(reconcile.Options{
		Source:     source,
		Calendar:   provider,
		CalendarID: a.calendarID,
		Filter:     filter,
		Location:   a.config.Location(),
		Printer:    a.printer,
		Logger:     a.logger,
		DryRun:     dryRun,
	}), nil
}

func printSummary(p *logging.Printer, report *reconcile.Report) {
	if report.DryRun {
		p.Printf(logging.VerbosityPhases, "📋 Would add %d, would remove %d, %d already present\n",
			len(report.WouldCreate), len(report.WouldRemove), len(report.Skipped))
	} else {
		p.Printf(logging.VerbosityPhases, "📋 Added %d, removed %d, %d already present\n",
			len(report.Created), len(report.Removed), len(report.Skipped))
	}
	if report.Failed() {
		p.Failed("%d operation(s) failed", len(report.Failures))
	}
}
