package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/naveenspark/portal/pkg/domain"
)

// Auth calls the authentication endpoints directly, without the refresh protocol.
type Auth struct {
	*transport
}

// NewAuth creates a raw auth endpoint client.
func NewAuth(baseURL string, opts ...Option) *Auth {
	return &Auth{transport: newTransport(baseURL, opts)}
}

// Login exchanges credentials for a token pair.
func (a *Auth) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := a.send(ctx, Request{Method: http.MethodPost, Path: "/auth/login", Body: req}, nil, &resp); err != nil {
		return nil, fmt.Errorf("client.Login: %w", signInError(err))
	}
	return &resp, nil
}

// Register creates an account and returns its token pair.
func (a *Auth) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := a.send(ctx, Request{Method: http.MethodPost, Path: "/auth/register", Body: req}, nil, &resp); err != nil {
		return nil, fmt.Errorf("client.Register: %w", signInError(err))
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new pair.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*domain.RefreshResponse, error) {
	var resp domain.RefreshResponse
	req := Request{Method: http.MethodPost, Path: "/auth/refresh", Body: domain.RefreshRequest{RefreshToken: refreshToken}}
	if err := a.send(ctx, req, nil, &resp); err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			return nil, fmt.Errorf("client.Refresh: %w: %w", domain.ErrRefreshRejected, err)
		}
		return nil, fmt.Errorf("client.Refresh: %w", err)
	}
	return &resp, nil
}

// Logout tells the server to revoke accessToken.
func (a *Auth) Logout(ctx context.Context, accessToken string) error {
	tok := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	if err := a.send(ctx, Request{Method: http.MethodPost, Path: "/auth/logout"}, tok, nil); err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	return nil
}
