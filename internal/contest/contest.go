package contest

import (
	"fmt"
	"strings"
	"time"
)

// Marker tags calendar events owned by clistcal. Any event whose description
// contains it may be removed by a clear pass.
const Marker = "CLIST_CONTEST"

// Contest is an upcoming competitive-programming contest as listed by clist.
type Contest struct {
	ID       int64
	Resource string
	Event    string
	Href     string
	Start    time.Time
	End      time.Time
	// Duration in seconds, as reported upstream. End-Start is not checked against it.
	Duration int64
}

// IdentityKey joins a contest with its calendar event: "<RESOURCE> - <event>".
func IdentityKey(c Contest) string {
	return fmt.Sprintf("%s - %s", strings.ToUpper(c.Resource), c.Event)
}

// FormatDuration renders seconds as "<H>h <M>m", dropping leftover seconds.
// Negative durations render as "0h 0m".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}

// Description builds the body of the calendar event created for c.
func Description(c Contest) string {
	return fmt.Sprintf("%s - %s\n\n%s", FormatDuration(c.Duration), c.Href, Marker)
}

// IsTagged reports whether an event description carries the ownership marker.
func IsTagged(description string) bool {
	return strings.Contains(description, Marker)
}

// InvalidError reports an upstream contest that could not be parsed. Contest
// holds the fields that were readable.
type InvalidError struct {
	Contest Contest
	Err     error
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("contest %q: %v", e.Contest.Event, e.Err)
}

func (e *InvalidError) Unwrap() error {
	return e.Err
}
