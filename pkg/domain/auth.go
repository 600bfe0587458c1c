package domain

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MinPasswordLen is the shortest password the forms accept.
const MinPasswordLen = 6

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User         User   `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse is returned by POST /auth/refresh.
type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Validate checks the login form before it is sent.
func (r LoginRequest) Validate() error {
	v := &ValidationError{}
	validateEmail(v, r.Email)
	if r.Password == "" {
		v.Add("password", "password is required")
	}
	return v.OrNil()
}

// Validate checks the registration form before it is sent.
func (r RegisterRequest) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(r.Name) == "" {
		v.Add("name", "name is required")
	}
	validateEmail(v, r.Email)
	validateNewPassword(v, r.Password)
	return v.OrNil()
}

func validateNewPassword(v *ValidationError, password string) {
	switch {
	case password == "":
		v.Add("password", "password is required")
	case utf8.RuneCountInString(password) < MinPasswordLen:
		v.Add("password", "password must be at least 6 characters")
	}
}

func validateEmail(v *ValidationError, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		v.Add("email", "email is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		v.Add("email", "email is invalid")
	}
}
