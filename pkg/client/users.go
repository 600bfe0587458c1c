package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/naveenspark/portal/pkg/domain"
)

const defaultPageLimit = 10

// ListUsers fetches one page of users.
func (c *Client) ListUsers(ctx context.Context, page, limit int) (*domain.Page[domain.User], error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var out domain.Page[domain.User]
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/users", Query: params, Auth: true}, &out); err != nil {
		return nil, fmt.Errorf("client.ListUsers: %w", err)
	}
	return &out, nil
}

// GetUser fetches a single user by ID.
func (c *Client) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/users/" + url.PathEscape(id), Auth: true}, &u); err != nil {
		return nil, fmt.Errorf("client.GetUser: %w", err)
	}
	return &u, nil
}

// CreateUser creates a user.
func (c *Client) CreateUser(ctx context.Context, req domain.UserCreateRequest) (*domain.User, error) {
	var u domain.User
	if err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/users", Body: req, Auth: true}, &u); err != nil {
		return nil, fmt.Errorf("client.CreateUser: %w", err)
	}
	return &u, nil
}

// UpdateUser applies a partial update to a user.
func (c *Client) UpdateUser(ctx context.Context, id string, req domain.UserUpdateRequest) (*domain.User, error) {
	var u domain.User
	if err := c.Do(ctx, Request{Method: http.MethodPut, Path: "/users/" + url.PathEscape(id), Body: req, Auth: true}, &u); err != nil {
		return nil, fmt.Errorf("client.UpdateUser: %w", err)
	}
	return &u, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if err := c.Do(ctx, Request{Method: http.MethodDelete, Path: "/users/" + url.PathEscape(id), Auth: true}, nil); err != nil {
		return fmt.Errorf("client.DeleteUser: %w", err)
	}
	return nil
}
