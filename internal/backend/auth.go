package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Me returns the identity of the current session.
func (c *Client) Me(ctx context.Context) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, "", nil)
	if err != nil {
		return "", err
	}
	identity := strings.TrimSpace(string(data))
	if identity == "" {
		return "", errors.Wrap(ErrAuthRequired, "empty identity")
	}
	return identity, nil
}

// Login opens a session; the session cookie is kept by the client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	err := c.sendJSON(ctx, http.MethodPost, "/api/auth/login",
		credentials{Username: username, Password: password}, nil)
	if errors.Is(err, ErrAuthRequired) {
		return errors.Wrap(ErrBadCredentials, username)
	}
	return err
}

// Register creates an account. A taken username yields ErrUserExists.
func (c *Client) Register(ctx context.Context, username, password string) error {
	err := c.sendJSON(ctx, http.MethodPost, "/api/auth/register",
		credentials{Username: username, Password: password}, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		return errors.Wrap(ErrUserExists, username)
	}
	return err
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, "", nil)
	return err
}

// UserExists reports whether an account named username exists.
func (c *Client) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := c.getJSON(ctx, "/api/users/exists", url.Values{"username": {username}}, &exists)
	return exists, err
}
