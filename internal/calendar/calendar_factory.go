package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/bobuk/clistcal/internal/config"
	"github.com/bobuk/clistcal/internal/credstore"
	"github.com/bobuk/clistcal/internal/logging"
)

// CalendarFactory creates the configured provider, wiring OAuth credentials
// from the token store for Google.
type CalendarFactory struct {
	ctx    context.Context
	config *config.Config
	store  credstore.Store
	auth   credstore.Authenticator
	logger *slog.Logger
}

func NewCalendarFactory(ctx context.Context, cfg *config.Config, store credstore.Store, auth credstore.Authenticator, logger *slog.Logger) *CalendarFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &CalendarFactory{
		ctx:    ctx,
		config: cfg,
		store:  store,
		auth:   auth,
		logger: logger,
	}
}

// CreateCalendarProvider returns a provider for providerType ("google" or "caldav").
func (cf *CalendarFactory) CreateCalendarProvider(providerType string) (CalendarProvider, error) {
	cf.logger.Debug("creating calendar provider", logging.Provider(providerType))
	switch providerType {
	case "google":
		ts, err := cf.TokenSource()
		if err != nil {
			return nil, err
		}
		return NewGoogleCalendarProvider(cf.ctx, oauth2.NewClient(cf.ctx, ts))

	case "caldav":
		dav := cf.config.CalDAV
		if dav.ServerURL == "" {
			return nil, fmt.Errorf("no CalDAV server_url configured")
		}
		return NewCalDAVProvider(cf.ctx, dav.ServerURL, dav.Username, dav.Password)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, providerType)
	}
}

// CalendarID is the calendar the provider of providerType operates on.
func (cf *CalendarFactory) CalendarID(providerType string) string {
	if providerType == "caldav" {
		return cf.config.CalDAV.CalendarPath
	}
	return cf.config.CalendarID
}

// TokenSource loads or obtains the Google token for the configured account.
func (cf *CalendarFactory) TokenSource() (oauth2.TokenSource, error) {
	oauthConfig, err := OAuthConfig(cf.config)
	if err != nil {
		return nil, err
	}
	return credstore.NewTokenSource(cf.ctx, oauthConfig, cf.store, cf.config.Account, cf.auth, cf.logger)
}

// OAuthConfig builds the Google OAuth client from credentials_file or from
// client_id/client_secret.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	if cfg.CredentialsFile != "" {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read client secret file: %w", err)
		}
		oauthConfig, err := google.ConfigFromJSON(b, calendar.CalendarEventsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse client secret file: %w", err)
		}
		return oauthConfig, nil
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("google provider requires client_id and client_secret or credentials_file")
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       []string{calendar.CalendarEventsScope},
	}, nil
}
