// Package backend is the HTTP client for the chat backend: authentication,
// chat rooms, message history, file uploads and the bulletin board.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

var (
	// ErrAuthRequired is returned when the session is missing or expired.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNetwork wraps failures to reach the backend at all.
	ErrNetwork = errors.New("backend unreachable")

	// ErrUserExists is returned by Register for a taken username.
	ErrUserExists = errors.New("username already exists")

	// ErrBadCredentials is returned by Login when the backend rejects the
	// username or password.
	ErrBadCredentials = errors.New("invalid username or password")
)

// StatusError is an unexpected HTTP status with the response text.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return e.Method + " " + e.Path + ": " + http.StatusText(e.Code) + ": " + msg
}

// Client talks to the backend with a cookie-based session.
type Client struct {
	base *url.URL
	hc   *http.Client
}

// New creates a Client for the backend at baseURL. A zero timeout disables
// the per-request timeout.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid server url %q", baseURL)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}

	return &Client{
		base: base,
		hc:   &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

// SessionHeader returns the session cookie as request headers, for handshakes
// made outside this client (the realtime WebSocket).
func (c *Client) SessionHeader() http.Header {
	h := http.Header{}
	var parts []string
	for _, cookie := range c.hc.Jar.Cookies(c.base) {
		parts = append(parts, cookie.Name+"="+cookie.Value)
	}
	if len(parts) > 0 {
		h.Set("Cookie", strings.Join(parts, "; "))
	}
	return h
}

// endpoint resolves path against the base URL. path is already escaped:
// callers escape each dynamic segment with url.PathEscape.
func (c *Client) endpoint(path string, query url.Values) (string, error) {
	u := *c.base
	raw := strings.TrimSuffix(c.base.EscapedPath(), "/") + path
	unescaped, err := url.PathUnescape(raw)
	if err != nil {
		return "", errors.Wrapf(err, "invalid request path %q", raw)
	}
	u.Path, u.RawPath = unescaped, raw
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// do sends a request and returns the body of a 2xx response. 401 and 403 map
// to ErrAuthRequired.
func (c *Client) do(ctx context.Context, method, path string, query url.Values,
	contentType string, body io.Reader) ([]byte, error) {
	target, err := c.endpoint(path, query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s %s", method, path)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "reading %s %s: %v", method, path, err)
	}
	jww.DEBUG.Printf("%s %s %d %v", method, path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, errors.Wrapf(ErrAuthRequired, "%s %s", method, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, query, "", nil)
	if err != nil {
		return err
	}
	return decodeJSON(data, out, path)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s body", path)
	}
	data, err := c.do(ctx, method, path, nil, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeJSON(data, out, path)
}

func decodeJSON(data []byte, out any, path string) error {
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "failed to decode response of %s", path)
	}
	return nil
}
