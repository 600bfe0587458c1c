package domain

import (
	"strings"
	"time"
)

// Role is the access level of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ValidRole returns true if r is a known role.
func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the identity record returned by the auth and users endpoints.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserCreateRequest is the payload for creating a user.
type UserCreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserUpdateRequest is a partial update; nil fields are left unchanged.
type UserUpdateRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *Role   `json:"role,omitempty"`
}

// Validate checks a new user before it is sent.
func (r UserCreateRequest) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(r.Name) == "" {
		v.Add("name", "name is required")
	}
	validateEmail(v, r.Email)
	validateNewPassword(v, r.Password)
	return v.OrNil()
}

// Validate checks the fields that are set.
func (r UserUpdateRequest) Validate() error {
	v := &ValidationError{}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		v.Add("name", "name must not be empty")
	}
	if r.Email != nil {
		validateEmail(v, *r.Email)
	}
	if r.Role != nil && !ValidRole(*r.Role) {
		v.Add("role", "role must be user or admin")
	}
	return v.OrNil()
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is a paginated listing response.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// HasNext reports whether a further page exists.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}
