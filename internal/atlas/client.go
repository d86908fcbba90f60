// Package atlas is a client for the Atlas backend REST API.
//
// The backend authenticates callers with a session cookie. The console does
// not hold credentials of its own: it forwards the browser's cookies, which
// travel with the request context (see WithCookies).
package atlas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 2 * time.Minute

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// IsUnauthorized reports whether err is a 401 or 403 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}

type cookiesKey struct{}

// WithCookies returns a context whose backend calls carry the given cookies.
func WithCookies(ctx context.Context, cookies []*http.Cookie) context.Context {
	return context.WithValue(ctx, cookiesKey{}, cookies)
}

func cookiesFrom(ctx context.Context) []*http.Cookie {
	cookies, _ := ctx.Value(cookiesKey{}).([]*http.Cookie)
	return cookies
}

// Client talks to one backend.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// NewClient returns a client for the backend at baseURL. A zero timeout
// selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout: timeout,
			// Redirects from the backend are reported, not followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// endpoint joins an already escaped path onto the base URL.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + path
	if p, err := url.PathUnescape(u.RawPath); err == nil {
		u.Path = p
	} else {
		u.Path = c.baseURL.Path + path
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for _, ck := range cookiesFrom(ctx) {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out (if non-nil).
// Non-2xx responses become *APIError.
func (c *Client) do(req *http.Request, out any) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp, fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
		}
	}
	return resp, nil
}

// decodeError builds an APIError, taking the message from a string "detail"
// field when the body carries one.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(data, &body) != nil || len(body.Detail) == 0 {
		return apiErr
	}
	var detail string
	if json.Unmarshal(body.Detail, &detail) == nil {
		apiErr.Detail = detail
	}
	return apiErr
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req, out)
	return err
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// Health checks the backend /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.getJSON(ctx, "/health", nil, nil)
}
