// Package rest binds form operations to a JSON REST resource.
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
)

// TokenProvider supplies the bearer token for each request. Returning an
// empty token sends the request unauthenticated.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function into a TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls fn.
func (fn TokenFunc) Token(ctx context.Context) (string, error) {
	return fn(ctx)
}

// StaticToken always returns the same token.
type StaticToken string

// Token returns t.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Error is returned for non-2xx responses. Fields carries per-field messages
// when the body includes an "errors" object.
type Error struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rest: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("rest: unexpected status %d", e.Status)
}

// FieldErrors exposes Fields so callers can push them into a form.
func (e *Error) FieldErrors() map[string][]string {
	return e.Fields
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTokenProvider sets the bearer token source.
func WithTokenProvider(tokens TokenProvider) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// Client performs JSON requests against a base URL.
type Client struct {
	base    *url.URL
	http    *http.Client
	tokens  TokenProvider
	headers http.Header
}

// New constructs a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("rest: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("rest: base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:    base,
		http:    http.DefaultClient,
		headers: make(http.Header),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Do sends body (JSON encoded when non-nil) and decodes the response into out
// (when non-nil and the response has a body).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.base.ResolveReference(&url.URL{Path: strings.TrimLeft(path, "/")})
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return fmt.Errorf("rest: encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("rest: build request: %w", err)
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("rest: token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rest: %s %s: %w", method, target.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rest: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("rest: decode response: %w", err)
	}
	return nil
}

type errorBody struct {
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Errors  map[string]any `json:"errors"`
}

func decodeError(status int, raw []byte) error {
	restErr := &Error{Status: status}
	var body errorBody
	if err := sonic.ConfigStd.Unmarshal(raw, &body); err != nil {
		restErr.Message = strings.TrimSpace(string(raw))
		return restErr
	}
	restErr.Message = body.Message
	if restErr.Message == "" {
		restErr.Message = body.Error
	}
	if len(body.Errors) > 0 {
		restErr.Fields = make(map[string][]string, len(body.Errors))
		for field, value := range body.Errors {
			switch v := value.(type) {
			case string:
				restErr.Fields[field] = []string{v}
			case []any:
				for _, item := range v {
					restErr.Fields[field] = append(restErr.Fields[field], fmt.Sprint(item))
				}
			}
		}
	}
	return restErr
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var restErr *Error
	return errors.As(err, &restErr) && restErr.Status == status
}
