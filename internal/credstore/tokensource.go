package credstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/bobuk/clistcal/internal/logging"
)

// Authenticator obtains a fresh token from the user.
type Authenticator interface {
	Authenticate(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error)
}

// WebAuthenticator prints the consent URL to Out and reads the authorization
// code from In.
type WebAuthenticator struct {
	In  io.Reader
	Out io.Writer
}

func (a *WebAuthenticator) Authenticate(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(a.Out, "Go to the following link in your browser then type the "+
		"authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Fscan(a.In, &authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

// NewTokenSource loads the token for account, authenticating when none is
// stored, refreshes it when expired (re-authenticating if the refresh fails),
// and persists every token it hands out that differs from the stored one.
// A failed re-authentication is returned as an error.
func NewTokenSource(ctx context.Context, config *oauth2.Config, store Store, account string, auth Authenticator, logger *slog.Logger) (oauth2.TokenSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithOperation(logger, "credentials").With(slog.String("account", account))

	token, err := store.Load(ctx, account)
	switch {
	case errors.Is(err, ErrNoToken):
		logger.Info("no token found, obtaining a new token")
		if token, err = authenticate(ctx, config, store, account, auth); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case !token.Valid():
		refreshed, refreshErr := config.TokenSource(ctx, token).Token()
		if refreshErr != nil {
			logger.Warn("token refresh failed, re-authenticating", logging.Err(refreshErr))
			if token, err = authenticate(ctx, config, store, account, auth); err != nil {
				return nil, err
			}
			break
		}
		logger.Info("token refreshed")
		if err := store.Save(ctx, account, refreshed); err != nil {
			return nil, err
		}
		token = refreshed
	}

	return &persistingTokenSource{
		ctx:     ctx,
		base:    oauth2.ReuseTokenSource(token, config.TokenSource(ctx, token)),
		store:   store,
		account: account,
		last:    token.AccessToken,
		logger:  logger,
	}, nil
}

func authenticate(ctx context.Context, config *oauth2.Config, store Store, account string, auth Authenticator) (*oauth2.Token, error) {
	if auth == nil {
		return nil, fmt.Errorf("authentication required for account %s", account)
	}
	token, err := auth.Authenticate(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("authenticating account %s: %w", account, err)
	}
	if err := store.Save(ctx, account, token); err != nil {
		return nil, err
	}
	return token, nil
}

// persistingTokenSource saves tokens refreshed mid-run.
type persistingTokenSource struct {
	ctx     context.Context
	base    oauth2.TokenSource
	store   Store
	account string
	logger  *slog.Logger

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token.AccessToken != p.last {
		if err := p.store.Save(p.ctx, p.account, token); err != nil {
			p.logger.Warn("failed to persist refreshed token", logging.Err(err))
		} else {
			p.last = token.AccessToken
		}
	}
	return token, nil
}
