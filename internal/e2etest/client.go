package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/justinas/nosurf"
	"github.com/myrjola/chronicler/internal/errors"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client talks JSON to a running Chronicler server. It keeps the session cookies and the CSRF token between calls.
type Client struct {
	client    *http.Client
	url       string
	csrfToken string
}

// Session is the response of GET /api/session.
type Session struct {
	ClientID  string `json:"clientId"`
	CSRFToken string `json:"csrfToken"`
}

// NewClient creates a cookie-aware HTTP client for the server at url.
func NewClient(url string) (*Client, error) {
	jar, err := newUnsafeCookieJar()
	if err != nil {
		return nil, errors.Wrap(err, "create unsafe cookie jar")
	}
	return &Client{
		client:    &http.Client{Jar: jar}, //nolint:exhaustruct // defaults are fine.
		url:       url,
		csrfToken: "",
	}, nil
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+urlPath, nil)
		if err != nil {
			return errors.Wrap(err, "create request")
		}
		var resp *http.Response
		if resp, err = c.client.Do(req); err == nil {
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Session establishes the client session and remembers the CSRF token for subsequent unsafe requests.
func (c *Client) Session(ctx context.Context) (Session, error) {
	var session Session
	status, err := c.DoJSON(ctx, http.MethodGet, "/api/session", nil, &session)
	if err != nil {
		return Session{}, err
	}
	if status != http.StatusOK {
		return Session{}, errors.New("unexpected status code", slog.Int("status", status))
	}
	c.csrfToken = session.CSRFToken
	return session, nil
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, urlPath, nil)
}

// Do sends body encoded as JSON. Unsafe methods carry the CSRF token, fetching it first if needed.
func (c *Client) Do(ctx context.Context, method, urlPath string, body any) (*http.Response, error) {
	if method != http.MethodGet && c.csrfToken == "" {
		if _, err := c.Session(ctx); err != nil {
			return nil, errors.Wrap(err, "establish session")
		}
	}
	return c.do(ctx, method, urlPath, body, c.csrfToken)
}

// DoWithoutCSRF is like Do but never sends a CSRF token.
func (c *Client) DoWithoutCSRF(ctx context.Context, method, urlPath string, body any) (*http.Response, error) {
	return c.do(ctx, method, urlPath, body, "")
}

// DoJSON sends body with Do and decodes the JSON response into out when out is not nil. It returns the status code.
func (c *Client) DoJSON(ctx context.Context, method, urlPath string, body, out any) (int, error) {
	resp, err := c.Do(ctx, method, urlPath, body)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if out == nil {
		if _, err = io.Copy(io.Discard, resp.Body); err != nil {
			return resp.StatusCode, errors.Wrap(err, "discard body")
		}
		return resp.StatusCode, nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, errors.Wrap(err, "decode response", slog.Int("status", resp.StatusCode))
	}
	return resp.StatusCode, nil
}

func (c *Client) do(ctx context.Context, method, urlPath string, body any, csrfToken string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal body")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, reader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if csrfToken != "" {
		req.Header.Set(nosurf.HeaderName, csrfToken)
	}
	var resp *http.Response
	if resp, err = c.client.Do(req); err != nil {
		return nil, errors.Wrap(err, "do request", slog.String("method", method), slog.String("path", urlPath))
	}
	return resp, nil
}
