package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/naveenspark/portal/pkg/domain"
)

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
	API        domain.APIError
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// ErrorMessage returns the server's message when err carries one, else err.Error().
func ErrorMessage(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.API.Message != "" {
		return httpErr.API.Message
	}
	return err.Error()
}

func decodeError(resp *http.Response) error {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if readErr != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
	}
	var body struct {
		domain.APIError
		Error string `json:"error"`
	}
	if json.Unmarshal(respBody, &body) == nil {
		msg := body.Message
		if msg == "" {
			msg = body.Error
		}
		if msg != "" || len(body.Errors) > 0 {
			body.APIError.Message = msg
			body.APIError.Status = resp.StatusCode
			if msg == "" {
				msg = http.StatusText(resp.StatusCode)
			}
			return &HTTPError{StatusCode: resp.StatusCode, Message: msg, API: body.APIError}
		}
	}
	msg := string(respBody)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: msg, API: domain.APIError{Status: resp.StatusCode}}
}

// signInError maps a login/register failure onto the domain taxonomy.
func signInError(err error) error {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	switch httpErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		v := domain.ValidationFromAPI(httpErr.API)
		if v.Message == "" && len(v.Fields) == 0 {
			v.Message = httpErr.Message
		}
		return v
	}
	return err
}
