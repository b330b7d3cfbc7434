package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupportedProvider is returned by the factory for unknown provider types.
var ErrUnsupportedProvider = errors.New("unsupported provider type")

// CalendarProvider is the calendar backend the reconciler drives. Events are
// created and deleted, never updated.
type CalendarProvider interface {
	// ListEvents returns single occurrences starting at or after timeMin.
	// A zero timeMax means no upper bound.
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*Event, error)
	AddEvent(ctx context.Context, calendarID string, event *Event) (*Event, error)
	DeleteEvent(ctx context.Context, calendarID string, eventID string) error
}

type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	// TimeZone is an IANA name; created events are pinned to it.
	TimeZone string
	HTMLLink string
	Status   string
}
