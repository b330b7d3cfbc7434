package credstore

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned by Store.Load when the account has no saved token.
var ErrNoToken = errors.New("no token stored for account")

// Store persists OAuth tokens per account.
type Store interface {
	Load(ctx context.Context, account string) (*oauth2.Token, error)
	Save(ctx context.Context, account string, token *oauth2.Token) error
}
