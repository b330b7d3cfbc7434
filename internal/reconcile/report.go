package reconcile

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/bobuk/clistcal/internal/calendar"
)

// Outcome classifies the result of one operation in a run.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeRecoverable failures are logged and the run continues.
	OutcomeRecoverable
	// OutcomeFatal failures abort the phase they occur in.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRecoverable:
		return "recoverable"
	case OutcomeFatal:
		return "fatal"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Operation names used in results.
const (
	OpFetchContests = "fetch_contests"
	OpListEvents    = "list_events"
	OpInsertEvent   = "insert_event"
	OpDeleteEvent   = "delete_event"
)

// Result is the outcome of a single operation.
type Result struct {
	Op      string
	Subject string
	Outcome Outcome
	Err     error
}

// Created records an event inserted for a contest.
type Created struct {
	Summary string
	Link    string
}

// Report aggregates one run. Skipped lists identity keys that already had an
// event; existing events are never updated.
type Report struct {
	Created  []Created
	Removed  []string
	Skipped  []string
	Failures []Result

	// Dry runs fill these instead of Created and Removed.
	DryRun      bool
	WouldCreate []string
	WouldRemove []string

	wouldRemoveIDs map[string]bool
}

func (r *Report) markRemoved(id string) {
	if r.wouldRemoveIDs == nil {
		r.wouldRemoveIDs = make(map[string]bool)
	}
	r.wouldRemoveIDs[id] = true
}

// withoutRemoved hides events a dry-run clear pass would have deleted.
func (r *Report) withoutRemoved(events []*calendar.Event) []*calendar.Event {
	if len(r.wouldRemoveIDs) == 0 {
		return events
	}
	kept := make([]*calendar.Event, 0, len(events))
	for _, e := range events {
		if !r.wouldRemoveIDs[e.ID] {
			kept = append(kept, e)
		}
	}
	return kept
}

func (r *Report) fail(op, subject string, outcome Outcome, err error) {
	r.Failures = append(r.Failures, Result{Op: op, Subject: subject, Outcome: outcome, Err: err})
}

// Failed reports whether any operation failed.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

// Fatal reports whether any failure aborted a phase.
func (r *Report) Fatal() bool {
	for _, f := range r.Failures {
		if f.Outcome == OutcomeFatal {
			return true
		}
	}
	return false
}

// Err aggregates all failures, or returns nil for a clean run.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, f := range r.Failures {
		if f.Subject != "" {
			result = multierror.Append(result, fmt.Errorf("%s %q (%s): %w", f.Op, f.Subject, f.Outcome, f.Err))
		} else {
			result = multierror.Append(result, fmt.Errorf("%s (%s): %w", f.Op, f.Outcome, f.Err))
		}
	}
	return result.ErrorOrNil()
}
