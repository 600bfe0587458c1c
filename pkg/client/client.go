// Package client talks to the portal auth and user-management API.
//
// Client is the request gateway: it attaches the current bearer token at send
// time and, on a 401, asks its Credentials for a refreshed token and retries
// exactly once. Auth exposes the raw auth endpoints the session manager needs
// and never retries.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/naveenspark/portal/internal/metrics"
	"github.com/naveenspark/portal/pkg/domain"
)

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// Auth marks the request as protected: a bearer token is attached and
	// a 401 triggers the refresh-and-retry protocol.
	Auth bool
}

// Credentials supplies and maintains the token pair used by protected requests.
type Credentials interface {
	Token() *oauth2.Token
	Refresh(ctx context.Context, stale string) (*oauth2.Token, error)
	Expire(accessToken string, reason error)
}

// Client is the portal API gateway.
type Client struct {
	*transport
	creds Credentials
}

// New creates a gateway that authenticates protected requests with creds.
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	return &Client{transport: newTransport(baseURL, opts), creds: creds}
}

// Do sends r and decodes a successful JSON response into out (which may be nil).
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	if !r.Auth {
		return c.send(ctx, r, nil, out)
	}

	tok := c.creds.Token()
	if tok == nil || tok.AccessToken == "" {
		metrics.Requests.WithLabelValues("unauthenticated").Inc()
		return domain.ErrUnauthenticated
	}

	err := c.send(ctx, r, tok, out)
	if !IsStatus(err, http.StatusUnauthorized) {
		return err
	}

	fresh, rerr := c.creds.Refresh(ctx, tok.AccessToken)
	if rerr != nil {
		if errors.Is(rerr, context.Canceled) || errors.Is(rerr, context.DeadlineExceeded) {
			return rerr
		}
		metrics.Requests.WithLabelValues("unauthenticated").Inc()
		return fmt.Errorf("%w: %w", domain.ErrUnauthenticated, rerr)
	}

	metrics.Retries.Inc()
	err = c.send(ctx, r, fresh, out)
	if IsStatus(err, http.StatusUnauthorized) {
		metrics.Requests.WithLabelValues("terminal").Inc()
		c.creds.Expire(fresh.AccessToken, domain.ErrTerminalAuthFailure)
		return fmt.Errorf("%w: %w", domain.ErrTerminalAuthFailure, err)
	}
	return err
}

// Me returns the profile of the signed-in user.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/auth/profile", Auth: true}, &u); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	return &u, nil
}
