package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error taxonomy shared by the session manager, the gateway and the UI.
var (
	// ErrValidation marks malformed input, fixable by the user.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials means the server rejected the email/password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNetwork marks a transport failure; resubmitting may succeed.
	ErrNetwork = errors.New("network error")
	// ErrNoRefreshToken means a refresh was needed but none is held.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrRefreshRejected means the server denied the refresh token.
	ErrRefreshRejected = errors.New("refresh token rejected")
	// ErrTerminalAuthFailure is a 401 received after a successful refresh and retry.
	ErrTerminalAuthFailure = errors.New("authentication failed after refresh")
	// ErrUnauthenticated means the session is gone and the user must sign in again.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// APIError is the error body returned by the server.
type APIError struct {
	Message string              `json:"message"`
	Status  int                 `json:"status,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// ValidationError carries per-field messages. It unwraps to ErrValidation.
type ValidationError struct {
	Fields  map[string]string
	Message string
}

// Add records a message for field, keeping the first one.
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	if _, ok := v.Fields[field]; !ok {
		v.Fields[field] = msg
	}
}

// Field returns the message for field, or "".
func (v *ValidationError) Field(field string) string {
	if v == nil {
		return ""
	}
	return v.Fields[field]
}

// OrNil returns v as an error if it holds anything, otherwise nil.
func (v *ValidationError) OrNil() error {
	if len(v.Fields) == 0 && v.Message == "" {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	if len(v.Fields) == 0 {
		if v.Message != "" {
			return v.Message
		}
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() error {
	return ErrValidation
}

// ValidationFromAPI converts a server error body into a ValidationError.
func ValidationFromAPI(apiErr APIError) *ValidationError {
	v := &ValidationError{Message: apiErr.Message}
	for field, msgs := range apiErr.Errors {
		if len(msgs) > 0 {
			v.Add(field, msgs[0])
		}
	}
	return v
}
