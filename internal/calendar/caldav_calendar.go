package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

// defaultCalDAVHorizon bounds ListEvents when no timeMax is given; CalDAV
// time-range filters need both ends.
const defaultCalDAVHorizon = 2 * 365 * 24 * time.Hour

const propWRTimezone = "X-WR-TIMEZONE"

type CalDAVProvider struct {
	client    *caldav.Client
	serverURL *url.URL
}

// NewCalDAVProvider connects to serverURL and checks the server answers.
func NewCalDAVProvider(ctx context.Context, serverURL, username, password string) (*CalDAVProvider, error) {
	return newCalDAVProvider(ctx, http.DefaultClient, serverURL, username, password)
}

func newCalDAVProvider(ctx context.Context, base webdav.HTTPClient, serverURL, username, password string) (*CalDAVProvider, error) {
	baseURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CalDAV server URL: %w", err)
	}

	httpClient := base
	if username != "" && password != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, username, password)
	}

	c, err := caldav.NewClient(httpClient, baseURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create CalDAV client: %w", err)
	}

	if _, err := c.FindCalendars(ctx, ""); err != nil {
		return nil, fmt.Errorf("failed to connect to CalDAV server: %w", err)
	}

	return &CalDAVProvider{
		client:    c,
		serverURL: baseURL,
	}, nil
}

// AddEvent stores event as a new calendar object. Times are written in UTC so
// no VTIMEZONE is needed; the zone travels as X-WR-TIMEZONE for display. The
// returned ID is the object path.
func (c *CalDAVProvider) AddEvent(ctx context.Context, calendarID string, event *Event) (*Event, error) {
	calPath, err := calendarPath(calendarID)
	if err != nil {
		return nil, err
	}

	eventUID := "clistcal-" + uuid.NewString()

	icalEvent := ical.NewEvent()
	icalEvent.Props.SetText("UID", eventUID)
	icalEvent.Props.SetDateTime("DTSTAMP", time.Now().UTC())
	icalEvent.Props.SetText("SUMMARY", event.Summary)
	icalEvent.Props.SetText("DESCRIPTION", event.Description)
	icalEvent.Props.SetDateTime("DTSTART", event.Start.UTC())
	icalEvent.Props.SetDateTime("DTEND", event.End.UTC())
	icalEvent.Props.SetText("STATUS", "CONFIRMED")

	cal := ical.NewCalendar()
	cal.Props.SetText("VERSION", "2.0")
	cal.Props.SetText("PRODID", "-//clistcal//EN")
	if event.TimeZone != "" {
		cal.Props.SetText(propWRTimezone, event.TimeZone)
	}
	cal.Children = append(cal.Children, icalEvent.Component)

	obj, err := c.client.PutCalendarObject(ctx, path.Join(calPath, eventUID+".ics"), cal)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return &Event{
		ID:          obj.Path,
		Summary:     event.Summary,
		Description: event.Description,
		Start:       event.Start,
		End:         event.End,
		TimeZone:    event.TimeZone,
		HTMLLink:    c.link(obj.Path),
		Status:      "confirmed",
	}, nil
}

// DeleteEvent removes the object at eventID, as returned by AddEvent and
// ListEvents. A bare UID is taken as "<uid>.ics" in the calendar.
func (c *CalDAVProvider) DeleteEvent(ctx context.Context, calendarID string, eventID string) error {
	objectPath := eventID
	if !strings.HasPrefix(eventID, "/") {
		calPath, err := calendarPath(calendarID)
		if err != nil {
			return err
		}
		objectPath = path.Join(calPath, eventID+".ics")
	}
	if err := c.client.RemoveAll(ctx, objectPath); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func (c *CalDAVProvider) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*Event, error) {
	calPath, err := calendarPath(calendarID)
	if err != nil {
		return nil, err
	}
	if timeMax.IsZero() {
		timeMax = timeMin.Add(defaultCalDAVHorizon)
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{{
				Name:  "VEVENT",
				Props: []string{"UID", "SUMMARY", "DESCRIPTION", "DTSTART", "DTEND", "STATUS"},
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: timeMin,
				End:   timeMax,
			}},
		},
	}

	objects, err := c.client.QueryCalendar(ctx, calPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var result []*Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, comp := range obj.Data.Children {
			if comp.Name != "VEVENT" {
				continue
			}
			event := fromICalEvent(comp)
			event.ID = obj.Path
			event.HTMLLink = c.link(obj.Path)
			if event.TimeZone == "" {
				event.TimeZone = getTextProp(obj.Data.Props, propWRTimezone)
			}
			result = append(result, event)
		}
	}
	return result, nil
}

func (c *CalDAVProvider) link(p string) string {
	u := *c.serverURL
	u.Path = p
	return u.String()
}

func fromICalEvent(comp *ical.Component) *Event {
	status := getTextProp(comp.Props, "STATUS")
	if status == "" {
		status = "confirmed"
	}
	start, _ := comp.Props.DateTime("DTSTART", time.UTC)
	end, _ := comp.Props.DateTime("DTEND", time.UTC)

	var tz string
	if prop := comp.Props.Get("DTSTART"); prop != nil {
		tz = prop.Params.Get("TZID")
	}

	return &Event{
		ID:          getTextProp(comp.Props, "UID"),
		Summary:     getTextProp(comp.Props, "SUMMARY"),
		Description: getTextProp(comp.Props, "DESCRIPTION"),
		Start:       start,
		End:         end,
		TimeZone:    tz,
		Status:      strings.ToLower(status),
	}
}

// calendarPath accepts either a full calendar URL or a bare path.
func calendarPath(calendarID string) (string, error) {
	calURL, err := url.Parse(calendarID)
	if err != nil {
		return "", fmt.Errorf("invalid calendar URL: %w", err)
	}
	if calURL.Path == "" {
		return "", fmt.Errorf("calendar URL %q has no path", calendarID)
	}
	return calURL.Path, nil
}

func getTextProp(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	return prop.Value
}
