// Package credstore persists the access/refresh token pair outside process
// memory so a restart recovers the session without signing in again.
//
// The pair is always written and cleared as a unit. Readers never observe an
// access token without its refresh token.
package credstore

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// Fixed key names for the two persisted entries.
const (
	KeyAccessToken  = "auth_token"
	KeyRefreshToken = "auth_refresh_token"
)

// ErrIncompletePair is returned by Save when either token is empty.
var ErrIncompletePair = errors.New("credstore: access and refresh token must both be set")

// Store is the durable home of the credential pair.
// Load returns (nil, nil) when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, tok *oauth2.Token) error
	Clear(ctx context.Context) error
}

// record is the on-disk and in-memory shape of a pair.
type record struct {
	AccessToken  string `json:"auth_token"`
	RefreshToken string `json:"auth_refresh_token"`
}

func toRecord(tok *oauth2.Token) (record, error) {
	if tok == nil || tok.AccessToken == "" || tok.RefreshToken == "" {
		return record{}, ErrIncompletePair
	}
	return record{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

// token converts a record back into a token; half-present pairs count as absent.
func (r record) token() *oauth2.Token {
	if r.AccessToken == "" || r.RefreshToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    "Bearer",
	}
}
