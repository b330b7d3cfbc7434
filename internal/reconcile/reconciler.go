package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/bobuk/clistcal/internal/calendar"
	"github.com/bobuk/clistcal/internal/contest"
	"github.com/bobuk/clistcal/internal/logging"
)

// ContestSource lists upcoming contests.
type ContestSource interface {
	UpcomingContests(ctx context.Context) ([]contest.Contest, error)
}

type Options struct {
	Source     ContestSource
	Calendar   calendar.CalendarProvider
	CalendarID string
	Filter     *contest.Filter
	// Location pins created events to a fixed timezone.
	Location *time.Location
	Printer  *logging.Printer
	Logger   *slog.Logger
	Now      func() time.Time
	DryRun   bool
}

// RunOptions gates the destructive clear phase.
type RunOptions struct {
	Clear bool
}

// Reconciler adds missing contest events and clears tagged ones. Every call
// is sequential and blocking.
type Reconciler struct {
	source     ContestSource
	cal        calendar.CalendarProvider
	calendarID string
	filter     *contest.Filter
	loc        *time.Location
	out        *logging.Printer
	logger     *slog.Logger
	now        func() time.Time
	dryRun     bool
}

func New(opts Options) *Reconciler {
	r := &Reconciler{
		source:     opts.Source,
		cal:        opts.Calendar,
		calendarID: opts.CalendarID,
		filter:     opts.Filter,
		loc:        opts.Location,
		out:        opts.Printer,
		logger:     opts.Logger,
		now:        opts.Now,
		dryRun:     opts.DryRun,
	}
	if r.calendarID == "" {
		r.calendarID = "primary"
	}
	if r.filter == nil {
		r.filter, _ = contest.NewFilter(nil)
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.out == nil {
		r.out = logging.NewPrinter(io.Discard, logging.VerbosityQuiet)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Run clears tagged events when opts.Clear is set, then syncs.
func (r *Reconciler) Run(ctx context.Context, opts RunOptions) *Report {
	report := &Report{DryRun: r.dryRun}
	if opts.Clear {
		r.Clear(ctx, report)
	}
	r.Sync(ctx, report)
	return report
}

// Clear deletes every upcoming event whose description carries the marker.
// Untagged events are never touched. A failed delete does not stop the loop.
func (r *Reconciler) Clear(ctx context.Context, report *Report) {
	logger := logging.WithOperation(r.logger, "clear")
	r.out.Printf(logging.VerbosityPhases, "🧹 Clearing tagged contest events...\n")

	events, err := r.cal.ListEvents(ctx, r.calendarID, r.now(), time.Time{})
	if err != nil {
		logger.Error("failed to list events", logging.Err(err))
		r.out.Failed("Failed to list events: %v", err)
		report.fail(OpListEvents, "", OutcomeFatal, err)
		return
	}

	for _, event := range events {
		if !contest.IsTagged(event.Description) {
			continue
		}
		if r.dryRun {
			r.out.Printf(logging.VerbosityChanges, "  🗑 Would remove %s\n", event.Summary)
			report.WouldRemove = append(report.WouldRemove, event.Summary)
			report.markRemoved(event.ID)
			continue
		}
		r.out.Removed(event.Summary)
		if err := r.cal.DeleteEvent(ctx, r.calendarID, event.ID); err != nil {
			logger.Error("failed to delete event", logging.EventID(event.ID), logging.Contest(event.Summary), logging.Err(err))
			r.out.Failed("Failed to remove %s: %v", event.Summary, err)
			report.fail(OpDeleteEvent, event.Summary, OutcomeRecoverable, err)
			continue
		}
		report.Removed = append(report.Removed, event.Summary)
	}

	if r.dryRun {
		r.out.Done("Calendar clear planned.")
	} else {
		r.out.Done("Calendar cleared.")
	}
}

// Sync creates an event for every filtered contest whose identity key is not
// already the summary of an upcoming event. The event list is read after any
// clear pass in the same run.
func (r *Reconciler) Sync(ctx context.Context, report *Report) {
	logger := logging.WithOperation(r.logger, "sync")
	r.out.Printf(logging.VerbosityPhases, "🚀 Starting contest synchronization...\n")

	contests, err := r.source.UpcomingContests(ctx)
	if invalid := invalidContests(err); invalid != nil {
		r.skipInvalid(logger, report, invalid)
	} else if err != nil {
		logger.Error("failed to fetch contests", logging.Err(err))
		r.out.Failed("Failed to fetch contests: %v", err)
		report.fail(OpFetchContests, "", OutcomeRecoverable, err)
		contests = nil
	}

	events, err := r.cal.ListEvents(ctx, r.calendarID, r.now(), time.Time{})
	if err != nil {
		// Without the current events every contest would look missing.
		logger.Error("failed to list events, skipping inserts", logging.Err(err))
		r.out.Failed("Failed to list events: %v", err)
		report.fail(OpListEvents, "", OutcomeFatal, err)
		return
	}

	if r.dryRun {
		events = report.withoutRemoved(events)
	}

	missing, skipped := r.diff(contests, events)
	logger.Debug("contests fetched", slog.Int("fetched", len(contests)), slog.Int("missing", len(missing)), slog.Int("events", len(events)))
	for _, key := range skipped {
		r.out.Printf(logging.VerbositySkipped, "  ⚠️ Event already exists: %s\n", key)
	}
	report.Skipped = append(report.Skipped, skipped...)

	for _, c := range missing {
		key := contest.IdentityKey(c)
		r.out.Printf(logging.VerbosityContests, "  ✨ %s\n", key)

		if r.dryRun {
			r.out.Printf(logging.VerbosityChanges, "  ➕ Would add %s\n", key)
			report.WouldCreate = append(report.WouldCreate, key)
			continue
		}

		created, err := r.cal.AddEvent(ctx, r.calendarID, r.eventFor(c))
		if err != nil {
			logger.Error("failed to add event", logging.Contest(key), logging.Err(err))
			r.out.Failed("Failed to add %s: %v", key, err)
			report.fail(OpInsertEvent, key, OutcomeRecoverable, err)
			continue
		}
		logger.Debug("event added", logging.Contest(key), logging.EventID(created.ID), logging.Status(logging.StatusSuccess))
		r.out.Created(key, created.HTMLLink)
		report.Created = append(report.Created, Created{Summary: key, Link: created.HTMLLink})
	}

	if r.dryRun {
		r.out.Done("Contest synchronization planned.")
	} else {
		r.out.Done("All contests added to calendar.")
	}
}

// skipInvalid records unparseable contests the filter would have kept. The
// rest are dropped quietly, as a valid row for them would be.
func (r *Reconciler) skipInvalid(logger *slog.Logger, report *Report, invalid []*contest.InvalidError) {
	for _, inv := range invalid {
		key := contest.IdentityKey(inv.Contest)
		if !r.filter.Match(inv.Contest) {
			logger.Debug("ignoring unparseable contest", logging.Contest(key), logging.Err(inv.Err))
			continue
		}
		logger.Warn("skipping unparseable contest", logging.Contest(key), logging.Err(inv.Err))
		r.out.Failed("Skipping %s: %v", key, inv.Err)
		report.fail(OpFetchContests, key, OutcomeRecoverable, inv.Err)
	}
}

// invalidContests unpacks an error made up only of *contest.InvalidError, the
// partial result of a fetch. Any other error yields nil.
func invalidContests(err error) []*contest.InvalidError {
	if err == nil {
		return nil
	}
	errs := []error{err}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		errs = merr.Errors
	}
	invalid := make([]*contest.InvalidError, 0, len(errs))
	for _, e := range errs {
		var inv *contest.InvalidError
		if !errors.As(e, &inv) {
			return nil
		}
		invalid = append(invalid, inv)
	}
	return invalid
}

// Plan returns the filtered contests that have no event with a matching
// summary, at most one per identity key.
func (r *Reconciler) Plan(contests []contest.Contest, events []*calendar.Event) []contest.Contest {
	missing, _ := r.diff(contests, events)
	return missing
}

func (r *Reconciler) diff(contests []contest.Contest, events []*calendar.Event) (missing []contest.Contest, skipped []string) {
	existing := make(map[string]bool, len(events))
	for _, event := range events {
		existing[event.Summary] = true
	}
	for _, c := range r.filter.Apply(contests) {
		key := contest.IdentityKey(c)
		if existing[key] {
			skipped = append(skipped, key)
			continue
		}
		// Later contests with the same key are the same contest.
		existing[key] = true
		missing = append(missing, c)
	}
	return missing, skipped
}

func (r *Reconciler) eventFor(c contest.Contest) *calendar.Event {
	return &calendar.Event{
		Summary:     contest.IdentityKey(c),
		Description: contest.Description(c),
		Start:       c.Start.In(r.loc),
		End:         c.End.In(r.loc),
		TimeZone:    r.loc.String(),
	}
}
