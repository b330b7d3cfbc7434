package clist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/bobuk/clistcal/internal/contest"
)

// DefaultEndpoint is the clist.by v4 contest listing.
const DefaultEndpoint = "https://clist.by/api/v4/contest/"

// ErrMissingCredentials is returned by NewClient when username or key is empty.
var ErrMissingCredentials = errors.New("clist username and api key are required")

// Options configures a Client.
type Options struct {
	Endpoint   string
	Username   string
	APIKey     string
	Limit      int
	HTTPClient *http.Client
}

// Client fetches upcoming contests from clist.
type Client struct {
	endpoint *url.URL
	username string
	apiKey   string
	limit    int
	client   *http.Client
}

// NewClient validates opts and returns a Client. A nil HTTPClient gets a 30s timeout.
func NewClient(opts Options) (*Client, error) {
	if opts.Username == "" || opts.APIKey == "" {
		return nil, ErrMissingCredentials
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	endpoint, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid clist endpoint: %w", err)
	}
	if opts.Limit <= 0 {
		opts.Limit = 1000
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint: endpoint,
		username: opts.Username,
		apiKey:   opts.APIKey,
		limit:    opts.Limit,
		client:   opts.HTTPClient,
	}, nil
}

type contestObject struct {
	ID       int64  `json:"id"`
	Resource string `json:"resource"`
	Event    string `json:"event"`
	Href     string `json:"href"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration int64  `json:"duration"`
}

type contestList struct {
	Objects []contestObject `json:"objects"`
}

// StatusError is returned for a non-200 response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch contests: status %s", e.Status)
}

// UpcomingContests sends a single request for one bounded page of upcoming
// contests. There is no retry and no further pagination.
//
// Rows with unparseable timestamps are skipped. The valid contests are still
// returned, together with a *multierror.Error of *contest.InvalidError, one per
// skipped row.
func (c *Client) UpcomingContests(ctx context.Context) ([]contest.Contest, error) {
	u := *c.endpoint
	q := u.Query()
	q.Set("upcoming", "true")
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("order_by", "start")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("ApiKey %s:%s", c.username, c.apiKey))
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contests: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var list contestList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode contests: %w", err)
	}

	var invalid *multierror.Error
	contests := make([]contest.Contest, 0, len(list.Objects))
	for _, obj := range list.Objects {
		c := contest.Contest{
			ID:       obj.ID,
			Resource: obj.Resource,
			Event:    obj.Event,
			Href:     obj.Href,
			Duration: obj.Duration,
		}
		if c.Start, err = parseTime(obj.Start); err != nil {
			invalid = multierror.Append(invalid, &contest.InvalidError{Contest: c, Err: fmt.Errorf("invalid start: %w", err)})
			continue
		}
		if c.End, err = parseTime(obj.End); err != nil {
			invalid = multierror.Append(invalid, &contest.InvalidError{Contest: c, Err: fmt.Errorf("invalid end: %w", err)})
			continue
		}
		contests = append(contests, c)
	}
	return contests, invalid.ErrorOrNil()
}

// clist returns naive ISO8601 timestamps in UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseTime(s string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		t, err = time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
