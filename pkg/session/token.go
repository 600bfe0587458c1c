package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// newToken builds the held token from a server pair. Access tokens are opaque
// to the client; when one happens to be a JWT its exp claim is copied into
// Expiry for display only. Refresh stays driven by 401 responses.
func newToken(access, refresh string) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}
	tok.Expiry = accessExpiry(access)
	return tok
}

func accessExpiry(access string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func cloneToken(t *oauth2.Token) *oauth2.Token {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
