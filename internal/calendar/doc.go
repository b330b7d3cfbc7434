// Package calendar is the calendar adapter: a small CalendarProvider
// interface (list, add, delete) with Google Calendar and CalDAV
// implementations, and a factory that builds the configured one.
//
// Example usage:
//
//	factory := calendar.NewCalendarFactory(ctx, cfg, store, auth, logger)
//	provider, err := factory.CreateCalendarProvider(cfg.Provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	events, err := provider.ListEvents(ctx, "primary", time.Now(), time.Time{})
package calendar
