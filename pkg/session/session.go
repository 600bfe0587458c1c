// Package session owns the client's authentication state: the token pair, the
// signed-in user, and the transitions between them.
//
// The Manager is the only writer of the persisted credential pair. Request
// code reads the current token through Token and asks for a new one through
// Refresh; concurrent refreshes for the same stale token share one network
// call.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/naveenspark/portal/pkg/domain"
)

// State is the position of the session in its lifecycle.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
	StateError
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Status is the coarse loading indicator shown by the UI.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
)

// Status derives the coarse status from s.
func (s State) Status() Status {
	switch s {
	case StateAuthenticating, StateRefreshing:
		return StatusLoading
	case StateError:
		return StatusError
	}
	return StatusIdle
}

// Snapshot is a consistent copy of the session at one instant.
type Snapshot struct {
	State        State
	Status       Status
	AccessToken  string
	RefreshToken string
	// AccessExpiry is read from the access token's exp claim when it is a
	// JWT, zero otherwise. Display only.
	AccessExpiry    time.Time
	User            *domain.User
	LastError       string
	IsAuthenticated bool
}

// EventKind identifies a session notification.
type EventKind int

const (
	// EventSignedIn fires after login, registration or a validated restore.
	EventSignedIn EventKind = iota
	// EventSignedOut fires after an explicit logout.
	EventSignedOut
	// EventRefreshed fires after the token pair was rotated.
	EventRefreshed
	// EventExpired fires when the session was cleared by a failure. Navigation
	// should return to the login entry point.
	EventExpired
)

func (k EventKind) String() string {
	switch k {
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	case EventRefreshed:
		return "refreshed"
	case EventExpired:
		return "expired"
	}
	return "unknown"
}

// Event is delivered to subscribers on every externally visible transition.
type Event struct {
	Kind EventKind
	Err  error
}

// AuthAPI is the subset of the auth service the manager calls directly.
// None of these calls go through refresh-and-retry.
type AuthAPI interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.RefreshResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

// IdentityFetcher loads the current user with the held token.
type IdentityFetcher interface {
	Me(ctx context.Context) (*domain.User, error)
}

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session: manager closed")
	// ErrBusy is returned when a sign-in is already in flight.
	ErrBusy = errors.New("session: sign-in already in progress")
	// ErrSignedIn is returned by Login/Register while a session is held.
	ErrSignedIn = errors.New("session: already signed in")
	// ErrSuperseded is returned when a logout or newer sign-in overtook the call.
	ErrSuperseded = errors.New("session: superseded by a newer transition")
)
