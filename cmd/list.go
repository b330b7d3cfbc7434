package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobuk/clistcal/internal/contest"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List upcoming contest events created by clistcal",
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
			events, err := provider.ListEvents(ctx, a.calendarID, time.Now(), time.Time{})
			if err != nil {
				return fmt.Errorf("❌ Error retrieving events: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "📋 Here's the list of contests in your calendar:")
			loc := a.config.Location()
			n := 0
			for _, event := range events {
				if !contest.IsTagged(event.Description) {
					continue
				}
				n++
				fmt.Fprintf(out, "  📅 %s  %s\n     %s\n", event.Start.In(loc).Format("2006-01-02 15:04 MST"), event.Summary, event.HTMLLink)
			}
			fmt.Fprintf(out, "%d contest event(s)\n", n)
			return nil
		},
	}
}
