package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type GoogleCalendarProvider struct {
	service *calendar.Service
}

func NewGoogleCalendarProvider(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*GoogleCalendarProvider, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleCalendarProvider{service: service}, nil
}

func (g *GoogleCalendarProvider) AddEvent(ctx context.Context, calendarID string, event *Event) (*Event, error) {
	start, end := event.Start, event.End
	if event.TimeZone != "" {
		if loc, err := time.LoadLocation(event.TimeZone); err == nil {
			start, end = start.In(loc), end.In(loc)
		}
	}
	googleEvent := &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
	}

	created, err := g.service.Events.Insert(calendarID, googleEvent).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return fromGoogleEvent(created), nil
}

// DeleteEvent treats an event that is already gone as deleted.
func (g *GoogleCalendarProvider) DeleteEvent(ctx context.Context, calendarID string, eventID string) error {
	err := g.service.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) && (gErr.Code == http.StatusNotFound || gErr.Code == http.StatusGone) {
			return nil
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func (g *GoogleCalendarProvider) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*Event, error) {
	call := g.service.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	if !timeMax.IsZero() {
		call = call.TimeMax(timeMax.Format(time.RFC3339))
	}

	var result []*Event
	err := call.Pages(ctx, func(events *calendar.Events) error {
		for _, item := range events.Items {
			result = append(result, fromGoogleEvent(item))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return result, nil
}

func fromGoogleEvent(item *calendar.Event) *Event {
	if item == nil {
		return &Event{}
	}
	event := &Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		HTMLLink:    item.HtmlLink,
		Status:      item.Status,
	}
	if item.Start != nil {
		event.Start = parseEventDateTime(item.Start)
		event.TimeZone = item.Start.TimeZone
	}
	if item.End != nil {
		event.End = parseEventDateTime(item.End)
	}
	return event
}

// parseEventDateTime handles both timed and all-day events.
func parseEventDateTime(dt *calendar.EventDateTime) time.Time {
	if dt.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, dt.DateTime)
		return t
	}
	t, _ := time.Parse("2006-01-02", dt.Date)
	return t
}
