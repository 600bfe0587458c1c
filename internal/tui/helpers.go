package tui

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/naveenspark/portal/pkg/client"
	"github.com/naveenspark/portal/pkg/domain"
)

// formatTime renders a relative timestamp.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < 0:
		return formatUntil(t)
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatUntil renders how long until t, e.g. "in 14m".
func formatUntil(t time.Time) string {
	d := time.Until(t)
	switch {
	case d <= 0:
		return "expired"
	case d < time.Minute:
		return "in <1m"
	case d < time.Hour:
		return fmt.Sprintf("in %dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("in %dh", int(d.Hours()))
	default:
		return fmt.Sprintf("in %dd", int(d.Hours()/24))
	}
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// errorText turns an operation error into a one-line message for a status bar.
func errorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, domain.ErrNetwork):
		return "Could not reach the server"
	case errors.Is(err, domain.ErrTerminalAuthFailure),
		errors.Is(err, domain.ErrRefreshRejected),
		errors.Is(err, domain.ErrNoRefreshToken):
		return "Your session has expired, please sign in again"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Please sign in"
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) && verr.Message != "" {
		return verr.Message
	}
	return client.ErrorMessage(err)
}
