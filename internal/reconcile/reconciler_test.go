package reconcile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobuk/clistcal/internal/calendar"
	"github.com/bobuk/clistcal/internal/contest"
	"github.com/bobuk/clistcal/internal/logging"
)

func init() {
	color.NoColor = true
}

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	contests []contest.Contest
	err      error
	calls    int
}

func (f *fakeSource) UpcomingContests(context.Context) ([]contest.Contest, error) {
	f.calls++
	return f.contests, f.err
}

// fakeCalendar is an in-memory CalendarProvider.
type fakeCalendar struct {
	events    []*calendar.Event
	nextID    int
	listErr   error
	addErr    map[string]error
	deleteErr map[string]error
	adds      int
	deletes   int
}

func (f *fakeCalendar) ListEvents(_ context.Context, _ string, timeMin, _ time.Time) ([]*calendar.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*calendar.Event
	for _, e := range f.events {
		if !e.Start.Before(timeMin) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeCalendar) AddEvent(_ context.Context, _ string, event *calendar.Event) (*calendar.Event, error) {
	if err := f.addErr[event.Summary]; err != nil {
		return nil, err
	}
	f.adds++
	f.nextID++
	created := *event
	created.ID = fmt.Sprintf("evt%d", f.nextID)
	created.HTMLLink = "https://calendar.example/" + created.ID
	f.events = append(f.events, &created)
	return &created, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _ string, eventID string) error {
	if err := f.deleteErr[eventID]; err != nil {
		return err
	}
	f.deletes++
	for i, e := range f.events {
		if e.ID == eventID {
			f.events = append(f.events[:i], f.events[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeCalendar) find(summary string) *calendar.Event {
	for _, e := range f.events {
		if e.Summary == summary {
			return e
		}
	}
	return nil
}

func weeklyContest() contest.Contest {
	start := testNow.Add(24 * time.Hour)
	return contest.Contest{
		Resource: "leetcode.com",
		Event:    "Weekly Contest 400",
		Href:     "https://leetcode.com/contest/weekly-contest-400",
		Start:    start,
		End:      start.Add(90 * time.Minute),
		Duration: 5400,
	}
}

func newTestReconciler(src ContestSource, cal calendar.CalendarProvider, out io.Writer, dryRun bool) *Reconciler {
	return New(Options{
		Source:   src,
		Calendar: cal,
		Printer:  logging.NewPrinter(out, logging.VerbosityEverything),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return testNow },
		DryRun:   dryRun,
	})
}

func TestSync_CreatesEvent(t *testing.T) {
	src := &fakeSource{contests: []contest.Contest{weeklyContest()}}
	cal := &fakeCalendar{}
	var out bytes.Buffer

	report := newTestReconciler(src, cal, &out, false).Run(context.Background(), RunOptions{})

	require.NoError(t, report.Err())
	require.Len(t, cal.events, 1)
	event := cal.events[0]
	assert.Equal(t, "LEETCODE.COM - Weekly Contest 400", event.Summary)
	assert.True(t, strings.HasPrefix(event.Description, "1h 30m - https://leetcode.com/contest/weekly-contest-400"))
	assert.True(t, contest.IsTagged(event.Description))
	assert.True(t, event.Start.Equal(weeklyContest().Start))
	assert.True(t, event.End.Equal(weeklyContest().End))
	assert.Equal(t, "UTC", event.TimeZone)

	require.Len(t, report.Created, 1)
	assert.Equal(t, "https://calendar.example/evt1", report.Created[0].Link)
	assert.Contains(t, out.String(), "LEETCODE.COM - Weekly Contest 400 - https://calendar.example/evt1")
}

func TestSync_Idempotent(t *testing.T) {
	src := &fakeSource{contests: []contest.Contest{
		weeklyContest(),
		{Resource: "codeforces.com", Event: "Codeforces Round 950", Start: testNow.Add(48 * time.Hour), End: testNow.Add(50 * time.Hour), Duration: 7200},
	}}
	cal := &fakeCalendar{}
	r := newTestReconciler(src, cal, io.Discard, false)

	first := r.Run(context.Background(), RunOptions{})
	require.NoError(t, first.Err())
	assert.Len(t, first.Created, 2)

	second := r.Run(context.Background(), RunOptions{})
	require.NoError(t, second.Err())
	assert.Empty(t, second.Created)
	assert.Len(t, second.Skipped, 2)
	assert.Equal(t, 2, cal.adds)
}

func TestSync_MatchesAnyEventBySummary(t *testing.T) {
	c := weeklyContest()
	cal := &fakeCalendar{events: []*calendar.Event{{
		ID:      "manual",
		Summary: contest.IdentityKey(c),
		Start:   c.Start,
	}}}

	report := newTestReconciler(&fakeSource{contests: []contest.Contest{c}}, cal, io.Discard, false).
		Run(context.Background(), RunOptions{})

	require.NoError(t, report.Err())
	assert.Zero(t, cal.adds)
	assert.Equal(t, []string{"LEETCODE.COM - Weekly Contest 400"}, report.Skipped)
}

func TestSync_DuplicateKeysInBatch(t *testing.T) {
	c := weeklyContest()
	moved := c
	moved.Start = c.Start.Add(time.Hour)
	moved.End = c.End.Add(time.Hour)
	cal := &fakeCalendar{}

	report := newTestReconciler(&fakeSource{contests: []contest.Contest{c, moved}}, cal, io.Discard, false).
		Run(context.Background(), RunOptions{})

	require.NoError(t, report.Err())
	assert.Equal(t, 1, cal.adds)
}

func TestSync_FiltersContests(t *testing.T) {
	src := &fakeSource{contests: []contest.Contest{
		{Resource: "atcoder.jp", Event: "AtCoder Heuristic Contest 10", Href: "https://atcoder.jp/contests/ahc010", Start: testNow.Add(time.Hour)},
		{Resource: "codeforces.com", Event: "April Fools Contest 2024", Start: testNow.Add(time.Hour)},
		{Resource: "topcoder.com", Event: "SRM 1", Start: testNow.Add(time.Hour)},
		{Resource: "dmoj.ca", Event: "DMOPC '24 June", Start: testNow.Add(time.Hour)},
	}}
	cal := &fakeCalendar{}

	report := newTestReconciler(src, cal, io.Discard, false).Run(context.Background(), RunOptions{})

	require.NoError(t, report.Err())
	require.Len(t, cal.events, 1)
	assert.Equal(t, "DMOJ.CA - DMOPC '24 June", cal.events[0].Summary)
}

func TestSync_InsertFailureContinues(t *testing.T) {
	src := &fakeSource{contests: []contest.Contest{
		{Resource: "dmoj.ca", Event: "A", Start: testNow.Add(time.Hour)},
		{Resource: "dmoj.ca", Event: "B", Start: testNow.Add(time.Hour)},
	}}
	cal := &fakeCalendar{addErr: map[string]error{"DMOJ.CA - A": errors.New("quota exceeded")}}

	report := newTestReconciler(src, cal, io.Discard, false).Run(context.Background(), RunOptions{})

	require.Error(t, report.Err())
	assert.False(t, report.Fatal())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, OpInsertEvent, report.Failures[0].Op)
	assert.Equal(t, OutcomeRecoverable, report.Failures[0].Outcome)
	assert.NotNil(t, cal.find("DMOJ.CA - B"))
	assert.ErrorContains(t, report.Err(), "quota exceeded")
}

func TestSync_FetchFailureIsRecoverable(t *testing.T) {
	src := &fakeSource{err: errors.New("status 503")}
	cal := &fakeCalendar{}

	report := newTestReconciler(src, cal, io.Discard, false).Run(context.Background(), RunOptions{})

	require.Error(t, report.Err())
	assert.False(t, report.Fatal())
	assert.Equal(t, OpFetchContests, report.Failures[0].Op)
	assert.Zero(t, cal.adds)
}

func TestSync_PartialFetchKeepsValidContests(t *testing.T) {
	var invalid *multierror.Error
	invalid = multierror.Append(invalid,
		&contest.InvalidError{Contest: contest.Contest{Resource: "dmoj.ca", Event: "Broken"}, Err: errors.New("invalid start")},
		&contest.InvalidError{Contest: contest.Contest{Resource: "codechef.com", Event: "Starters 120"}, Err: errors.New("invalid end")},
	)
	src := &fakeSource{contests: []contest.Contest{weeklyContest()}, err: invalid}
	cal := &fakeCalendar{}

	report := newTestReconciler(src, cal, io.Discard, false).Run(context.Background(), RunOptions{})

	assert.Equal(t, 1, cal.adds)
	assert.NotNil(t, cal.find("LEETCODE.COM - Weekly Contest 400"))

	require.Len(t, report.Failures, 1)
	assert.Equal(t, OpFetchContests, report.Failures[0].Op)
	assert.Equal(t, "DMOJ.CA - Broken", report.Failures[0].Subject)
	assert.Equal(t, OutcomeRecoverable, report.Failures[0].Outcome)
	assert.False(t, report.Fatal())
	assert.Error(t, report.Err())
}

func TestSync_UnparseableContestOutsideFilterIsIgnored(t *testing.T) {
	invalid := &contest.InvalidError{Contest: contest.Contest{Resource: "codechef.com", Event: "Starters 120"}, Err: errors.New("invalid start")}
	src := &fakeSource{contests: []contest.Contest{weeklyContest()}, err: multierror.Append(nil, invalid)}
	cal := &fakeCalendar{}

	report := newTestReconciler(src, cal, io.Discard, false).Run(context.Background(), RunOptions{})

	assert.Equal(t, 1, cal.adds)
	assert.NoError(t, report.Err())
}

func TestSync_ListFailureSkipsInserts(t *testing.T) {
	src := &fakeSource{contests: []contest.Contest{weeklyContest()}}
	cal := &fakeCalendar{listErr: errors.New("unauthorized")}

	report := newTestReconciler(src, cal, io.Discard, false).Run(context.Background(), RunOptions{})

	assert.True(t, report.Fatal())
	assert.Zero(t, cal.adds)
}

func TestClear_RemovesOnlyTagged(t *testing.T) {
	c := weeklyContest()
	cal := &fakeCalendar{events: []*calendar.Event{
		{ID: "tagged", Summary: "LEETCODE.COM - Weekly Contest 399", Description: "1h 30m - x\n\nCLIST_CONTEST", Start: testNow.Add(time.Hour)},
		{ID: "collision", Summary: contest.IdentityKey(c), Description: "my own note", Start: testNow.Add(time.Hour)},
		{ID: "past", Summary: "old", Description: contest.Marker, Start: testNow.Add(-time.Hour)},
	}}

	report := &Report{}
	newTestReconciler(&fakeSource{}, cal, io.Discard, false).Clear(context.Background(), report)

	require.NoError(t, report.Err())
	assert.Equal(t, []string{"LEETCODE.COM - Weekly Contest 399"}, report.Removed)
	assert.Nil(t, cal.find("LEETCODE.COM - Weekly Contest 399"))
	assert.NotNil(t, cal.find(contest.IdentityKey(c)))
	assert.NotNil(t, cal.find("old"))
}

func TestClear_DeleteFailureContinues(t *testing.T) {
	cal := &fakeCalendar{
		events: []*calendar.Event{
			{ID: "a", Summary: "A", Description: contest.Marker, Start: testNow.Add(time.Hour)},
			{ID: "b", Summary: "B", Description: contest.Marker, Start: testNow.Add(time.Hour)},
		},
		deleteErr: map[string]error{"a": errors.New("backend error")},
	}

	report := &Report{}
	newTestReconciler(&fakeSource{}, cal, io.Discard, false).Clear(context.Background(), report)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, OpDeleteEvent, report.Failures[0].Op)
	assert.Equal(t, "A", report.Failures[0].Subject)
	assert.Equal(t, []string{"B"}, report.Removed)
}

func TestRun_ClearThenSyncSeesPostClearState(t *testing.T) {
	c := weeklyContest()
	created, _ := (&fakeCalendar{}).AddEvent(context.Background(), "primary", &calendar.Event{
		Summary:     contest.IdentityKey(c),
		Description: contest.Description(c),
		Start:       c.Start,
		End:         c.End,
	})
	created.ID = "previous"
	cal := &fakeCalendar{events: []*calendar.Event{created}}
	src := &fakeSource{contests: []contest.Contest{c}}

	report := newTestReconciler(src, cal, io.Discard, false).Run(context.Background(), RunOptions{Clear: true})

	require.NoError(t, report.Err())
	assert.Equal(t, []string{contest.IdentityKey(c)}, report.Removed)
	require.Len(t, report.Created, 1)
	require.Len(t, cal.events, 1)
	assert.NotEqual(t, "previous", cal.events[0].ID)
}

func TestRun_CreatedEventsAreClearable(t *testing.T) {
	src := &fakeSource{contests: []contest.Contest{weeklyContest()}}
	cal := &fakeCalendar{}
	r := newTestReconciler(src, cal, io.Discard, false)

	require.NoError(t, r.Run(context.Background(), RunOptions{}).Err())
	require.Len(t, cal.events, 1)

	report := &Report{}
	r.Clear(context.Background(), report)
	require.NoError(t, report.Err())
	assert.Empty(t, cal.events)
}

func TestRun_DryRun(t *testing.T) {
	c := weeklyContest()
	cal := &fakeCalendar{events: []*calendar.Event{
		{ID: "tagged", Summary: contest.IdentityKey(c), Description: contest.Description(c), Start: c.Start},
	}}
	src := &fakeSource{contests: []contest.Contest{c}}
	var out bytes.Buffer

	report := newTestReconciler(src, cal, &out, true).Run(context.Background(), RunOptions{Clear: true})

	require.NoError(t, report.Err())
	assert.True(t, report.DryRun)
	assert.Equal(t, []string{contest.IdentityKey(c)}, report.WouldRemove)
	assert.Equal(t, []string{contest.IdentityKey(c)}, report.WouldCreate)
	assert.Zero(t, cal.adds)
	assert.Zero(t, cal.deletes)
	assert.Len(t, cal.events, 1)
	assert.Contains(t, out.String(), "Would add")
}

func TestEventFor_UsesConfiguredTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	r := New(Options{Source: &fakeSource{}, Calendar: &fakeCalendar{}, Location: loc})
	event := r.eventFor(weeklyContest())

	assert.Equal(t, "Asia/Tokyo", event.TimeZone)
	assert.Equal(t, loc, event.Start.Location())
	assert.True(t, event.Start.Equal(weeklyContest().Start))
}

func TestPlan(t *testing.T) {
	c := weeklyContest()
	other := contest.Contest{Resource: "dmoj.ca", Event: "DMOPC"}
	r := New(Options{Source: &fakeSource{}, Calendar: &fakeCalendar{}})

	missing := r.Plan([]contest.Contest{c, other, other}, []*calendar.Event{{Summary: contest.IdentityKey(c)}})
	require.Len(t, missing, 1)
	assert.Equal(t, "DMOPC", missing[0].Event)
}

func TestReport_Err(t *testing.T) {
	report := &Report{}
	assert.NoError(t, report.Err())
	assert.False(t, report.Failed())

	report.fail(OpDeleteEvent, "A", OutcomeRecoverable, errors.New("boom"))
	report.fail(OpListEvents, "", OutcomeFatal, errors.New("down"))

	err := report.Err()
	require.Error(t, err)
	assert.True(t, report.Failed())
	assert.True(t, report.Fatal())
	assert.Contains(t, err.Error(), `delete_event "A" (recoverable): boom`)
	assert.Contains(t, err.Error(), "list_events (fatal): down")
}
